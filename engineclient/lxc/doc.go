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
Package lxc implements the engine client for LXC. LXC has no daemon API to
connect to; its stable surface here is the standard output of its command-line
tools. The client thus shells out: a long-lived lxc-monitor child streams
container state-change lines, and one-shot lxc-ls runs produce point-in-time
snapshots of the active container names.

The monitor's line grammar is narrow and version-stable: a single-quoted
container name (quotes inside the name are backslash-escaped), free text, and
a final bracketed state keyword. Only the STARTING and STOPPED states are
acted upon. A line not matching the grammar means the tool's output format has
changed under us; that is a terminal stream failure and deliberately not
papered over by skipping the line.
*/
package lxc
