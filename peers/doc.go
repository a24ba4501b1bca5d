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
Package peers serves open requests from processes confined inside containers:
a peer connects to one of the unix sockets this server listens on and sends
newline-terminated requests, each either a URL or a filesystem path. URLs get
handed off to the host's open facility verbatim; paths get translated from
the peer's view of the filesystem into the host's view, using the peer's
working directory and its root as found in its mount table, and are then
handed off if they name an existing directory.

The server never replies; it half-closes the write direction of every
accepted connection right away. Malformed or unusable requests are logged and
ignored, they never take the server down.
*/
package peers
