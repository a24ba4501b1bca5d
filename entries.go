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
	"golang.org/x/exp/slices"
)

// Entries is a sequence of displayed entries kept sorted by entry key at all
// times, so containers group together with their header entry leading their
// process entries. Entries must not be used from multiple go routines
// simultaneously; callers serialize access (the watcher does so).
type Entries []Entry

// compareByKey orders entries by their keys.
func compareByKey(a Entry, b EntryKey) int { return a.EntryKey.Compare(b) }

// Index returns the position of the entry with the specified key and true, or
// the position where such an entry would have to be inserted and false.
func (es Entries) Index(k EntryKey) (int, bool) {
	return slices.BinarySearchFunc(es, k, compareByKey)
}

// Contains returns true if an entry with the specified key is present.
func (es Entries) Contains(k EntryKey) bool {
	_, ok := es.Index(k)
	return ok
}

// Insert adds the specified entry at its sorted position, returning true if it
// was newly added and false if an entry with the same key already exists (the
// existing entry is then left alone: entries are immutable).
func (es *Entries) Insert(e Entry) bool {
	idx, ok := es.Index(e.EntryKey)
	if ok {
		return false
	}
	*es = slices.Insert(*es, idx, e)
	return true
}

// Delete removes the entry with the specified key, returning true if it was
// present. Deleting an absent key is not an error.
func (es *Entries) Delete(k EntryKey) bool {
	idx, ok := es.Index(k)
	if !ok {
		return false
	}
	*es = slices.Delete(*es, idx, idx+1)
	return true
}

// Keys returns the keys of all entries, in order.
func (es Entries) Keys() []EntryKey {
	keys := make([]EntryKey, len(es))
	for idx, e := range es {
		keys[idx] = e.EntryKey
	}
	return keys
}

// Container returns all entries belonging to the specified container,
// including its header entry if present, in order.
func (es Entries) Container(name string) Entries {
	first, _ := es.Index(HeaderKey(name))
	last := first
	for last < len(es) && es[last].Container == name {
		last++
	}
	return es[first:last:last]
}

// ProcessCount returns the number of process (non-header) entries of the
// specified container.
func (es Entries) ProcessCount(name string) (count int) {
	for _, e := range es.Container(name) {
		if !e.IsHeader() {
			count++
		}
	}
	return
}

// Delta describes the ordered changes turning a previously displayed entry
// sequence into a fresh one: entries to remove (by key) and entries to add at
// their sorted positions.
type Delta struct {
	Add    []Entry    // entries to newly display, in key order.
	Remove []EntryKey // keys of entries to stop displaying, in key order.
}

// IsZero returns true if the delta neither adds nor removes anything.
func (d Delta) IsZero() bool { return len(d.Add) == 0 && len(d.Remove) == 0 }

// Diff determines the delta turning the displayed entry sequence into the
// fresh one: displayed entries whose keys have no fresh counterpart get
// removed, fresh keys not yet displayed get added. Diffing an entry sequence
// against itself yields the zero delta.
func Diff(displayed, fresh Entries) Delta {
	var delta Delta
	didx, fidx := 0, 0
	for didx < len(displayed) && fidx < len(fresh) {
		switch c := displayed[didx].EntryKey.Compare(fresh[fidx].EntryKey); {
		case c < 0:
			delta.Remove = append(delta.Remove, displayed[didx].EntryKey)
			didx++
		case c > 0:
			delta.Add = append(delta.Add, fresh[fidx])
			fidx++
		default:
			didx++
			fidx++
		}
	}
	for ; didx < len(displayed); didx++ {
		delta.Remove = append(delta.Remove, displayed[didx].EntryKey)
	}
	for ; fidx < len(fresh); fidx++ {
		delta.Add = append(delta.Add, fresh[fidx])
	}
	return delta
}
