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

/*
Package lxcwatch watches LXC containers and the processes confined inside them
as they come and go, maintaining an ordered sequence of display entries: one
header entry per active container, followed by one entry per matched confined
process.

This root package contains only the passive display data model: [Entry],
[EntryKey], the sorted [Entries] sequence, and the [Delta] add/remove changes
produced when reconciling a fresh discovery against the entries currently on
display. The moving parts live in the subpackages:

  - [github.com/lxcwatch/lxcwatch/watcher] keeps the entry sequence in sync by
    merging streaming container state-change events with periodic full
    discoveries.
  - [github.com/lxcwatch/lxcwatch/engineclient/lxc] wraps the external
    lxc-monitor and lxc-ls tools.
  - [github.com/lxcwatch/lxcwatch/procdir] resolves which processes are
    confined by which container, based on the proc filesystem.
  - [github.com/lxcwatch/lxcwatch/peers] serves path/URL open requests from
    processes confined inside containers, translating them into host-visible
    paths.
  - [github.com/lxcwatch/lxcwatch/spawn] and
    [github.com/lxcwatch/lxcwatch/lineio] supply the child-process and
    stream-framing plumbing underneath.

In order to cause only as low system load as possible, the watcher monitors
the container state-change event stream instead of stupid polling; full
discoveries run only at refresh points and their results are reconciled
minimally into the displayed entries.
*/
package lxcwatch
