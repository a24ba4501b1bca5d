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

// Package engineclient decouples the container watch logic from the concrete
// way a container engine gets asked about its containers. The one production
// implementation lives in the lxc subpackage and shells out to the LXC
// command-line tools; tests substitute fakes.
package engineclient
