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
Package procdir discovers the processes confined inside LXC containers by
walking the proc filesystem: every process owned by one of the session's user
IDs (the real user ID plus any subordinate ID ranges delegated to that user)
and optionally matching a command-name allowlist gets its cgroup membership
inspected for the container confining it.

Processes routinely vanish while a scan is underway; their metadata files
then simply fail to read and the process is silently treated as already
exited, never surfaced as an error. A scan's result is a complete snapshot:
it is only returned once every discovered process has reached a terminal
outcome, included or skipped.
*/
package procdir
