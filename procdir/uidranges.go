// Copyright 2024 The lxcwatch authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package procdir

import (
	"os"
	"strconv"

	"github.com/moby/sys/user"
	"golang.org/x/exp/slices"
)

// subUIDPath is where subordinate user ID delegations are conventionally
// kept; see subuid(5).
const subUIDPath = "/etc/subuid"

// UIDRange is a contiguous range of user IDs, starting at Start and spanning
// Count IDs.
type UIDRange struct {
	Start uint32
	Count uint32
}

// Contains returns true if uid falls within this range.
func (r UIDRange) Contains(uid uint32) bool {
	return uid >= r.Start && uid-r.Start < r.Count
}

// UIDRanges is an immutable set of user ID ranges; processes owned by any ID
// in the set are considered to belong to the session.
type UIDRanges []UIDRange

// Contains returns true if uid falls within any of the ranges in this set.
func (rs UIDRanges) Contains(uid uint32) bool {
	for _, r := range rs {
		if r.Contains(uid) {
			return true
		}
	}
	return false
}

// LoadUIDRanges snapshots the user IDs belonging to the current session: the
// process's real user ID, plus any subordinate ID ranges delegated to that
// user in /etc/subuid. A missing or unreadable subuid file simply means no
// subordinate IDs have been delegated.
func LoadUIDRanges() UIDRanges {
	return loadUIDRanges(subUIDPath)
}

func loadUIDRanges(subuidpath string) UIDRanges {
	uid := uint32(os.Getuid())
	// delegations may be keyed by user name or by numeric ID, per subuid(5).
	owners := []string{strconv.FormatUint(uint64(uid), 10)}
	if u, err := user.CurrentUser(); err == nil {
		owners = append(owners, u.Name)
	}
	ranges := UIDRanges{{Start: uid, Count: 1}}
	subids, err := user.ParseSubIDFileFilter(subuidpath,
		func(id user.SubID) bool { return slices.Contains(owners, id.Name) })
	if err != nil {
		return ranges
	}
	for _, id := range subids {
		if id.SubID <= 0 || id.Count <= 0 {
			// mangled delegations parse as zeroes; never admit UID 0 ranges.
			continue
		}
		ranges = append(ranges, UIDRange{Start: uint32(id.SubID), Count: uint32(id.Count)})
	}
	return ranges
}
