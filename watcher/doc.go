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
Package watcher reconciles the displayed entry sequence with what the
container tools and the process directory report: container lifecycle events
update the sequence as they arrive, while refreshes snapshot the active
containers and their confined processes concurrently and then fold the joint
result into the sequence as a single delta.

The container lister and the process directory are independently
authoritative, each over its own key space: the lister decides which
container header entries exist, the process scan decides which process
entries exist. A confined process additionally implies its container's header
entry even when the lister doesn't (yet) report that container.
*/
package watcher
