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

package peers

import (
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/moby/sys/mountinfo"
	"github.com/pkg/errors"
)

// ErrNoRootMount means a peer's mount table has no entry mounted at "/", so
// its filesystem root cannot be determined and the peer cannot be serviced.
var ErrNoRootMount = errors.New("no root mount entry")

// peer is the resolved identity of a connected peer process: where it thinks
// it is and where its filesystem actually lives on the host.
type peer struct {
	pid  int
	cwd  string // working directory, in the peer's view.
	root string // the peer's filesystem root, in the host's view.
}

// resolvePeer looks up a peer process's working directory and filesystem
// root in the proc filesystem. The root is the mount-source of the mount
// table entry mounted at the peer's "/"; without such an entry the peer is
// unservicable and ErrNoRootMount is returned.
func resolvePeer(procroot string, pid int) (peer, error) {
	base := filepath.Join(procroot, strconv.Itoa(pid))
	cwd, err := os.Readlink(filepath.Join(base, "cwd"))
	if err != nil {
		return peer{}, errors.Wrapf(err, "cannot determine working directory of peer %d", pid)
	}
	mf, err := os.Open(filepath.Join(base, "mountinfo"))
	if err != nil {
		return peer{}, errors.Wrapf(err, "cannot read mount table of peer %d", pid)
	}
	defer mf.Close()
	mounts, err := mountinfo.GetMountsFromReader(mf, nil)
	if err != nil {
		return peer{}, errors.Wrapf(err, "cannot parse mount table of peer %d", pid)
	}
	for _, mount := range mounts {
		if mount.Mountpoint != "/" {
			continue
		}
		return peer{pid: pid, cwd: cwd, root: mount.Root}, nil
	}
	return peer{}, errors.Wrapf(ErrNoRootMount, "peer %d", pid)
}

// classify translates a single peer request into the target to hand off to
// the opener: URLs with a real scheme pass verbatim, "file:" URLs and bare
// paths become host filesystem paths, resolved against the peer's working
// directory when relative and translated under the peer's root unless that
// root already is the host's root. isPath tells path targets (which need to
// exist as directories) apart from verbatim URL targets.
func (p peer) classify(request string) (target string, isPath bool) {
	path := request
	if u, err := url.Parse(request); err == nil && u.Scheme != "" {
		if u.Scheme != "file" {
			return request, false
		}
		path = u.Path
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.cwd, path)
	}
	if p.root != "/" {
		path = filepath.Join(p.root, path)
	}
	return filepath.Clean(path), true
}
