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
Package spawn runs external programs with their standard output wired through
a [github.com/lxcwatch/lxcwatch/lineio] sink, reporting a single terminal exit
outcome exactly once.

The ordering contract matters here: a child's exit and the final drain of its
stdout pipe arrive through independent channels, and observing the exit first
would lose terminal output. The supervising go routine therefore always drains
the pipe to its end before reaping the child, so by the time the exit outcome
becomes observable the sink has been finalized with all of the child's output.

[Capture] buffers the entire output for after the exit, for one-shot listing
tools; [Stream] delivers output line by line while the child runs, for
long-lived monitoring tools.
*/
package spawn
