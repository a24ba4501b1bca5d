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

package lxcwatch

import (
	"fmt"
	"strings"
)

// EntryKey uniquely identifies a displayed entry: a container name paired with
// a process PID. The reserved PID 0 identifies the container's header entry,
// that is, the entry representing the container itself rather than one of its
// confined processes.
//
// Keys are totally ordered, first by container name and then by PID, so that a
// container's header entry always sorts immediately before the container's
// process entries.
type EntryKey struct {
	Container string // name of the container this entry belongs to.
	PID       int    // confined process PID, or 0 for the container header.
}

// HeaderKey returns the key of the container header entry for the specified
// container name.
func HeaderKey(container string) EntryKey {
	return EntryKey{Container: container}
}

// IsHeader returns true if this key identifies a container header entry, as
// opposed to a confined process entry.
func (k EntryKey) IsHeader() bool { return k.PID == 0 }

// Compare returns an integer comparing two keys, following the usual less
// than zero, zero, greater than zero convention. Keys order by container name
// first and PID second; the zero PID of header entries thus sorts before any
// (positive) process PID of the same container.
func (k EntryKey) Compare(other EntryKey) int {
	if c := strings.Compare(k.Container, other.Container); c != 0 {
		return c
	}
	return k.PID - other.PID
}

// String renders a textual representation of an entry key.
func (k EntryKey) String() string {
	if k.IsHeader() {
		return fmt.Sprintf("container '%s'", k.Container)
	}
	return fmt.Sprintf("container '%s' PID %d", k.Container, k.PID)
}

// Entry is a single displayed item: either a container header (PID 0) or a
// confined process of a container. Entries are considered immutable once
// created.
type Entry struct {
	EntryKey
	Command string // process command name; empty for header entries.
	UID     uint32 // owning user ID; zero value for header entries.
}

// HeaderEntry returns the container header entry for the specified container
// name.
func HeaderEntry(container string) Entry {
	return Entry{EntryKey: HeaderKey(container)}
}

// String renders a textual representation of the information kept about a
// displayed entry.
func (e Entry) String() string {
	if e.IsHeader() {
		return e.EntryKey.String()
	}
	return fmt.Sprintf("process '%s' (PID %d, UID %d) in container '%s'",
		e.Command, e.PID, e.UID, e.Container)
}
