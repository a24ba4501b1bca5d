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

package procdir

import (
	"regexp"
	"strings"
)

// containerPattern matches the cgroup path elements LXC confines container
// payloads under: "/lxc/<name>" (legacy), "/lxc.payload/<name>" and
// "/lxc.payload.<name>". It deliberately does not match the
// "lxc.monitor.<name>" cgroups housing the per-container monitor processes,
// as those merely supervise a container without being confined in it. With
// nested containers the first (outermost) match decides.
var containerPattern = regexp.MustCompile(`/lxc(?:/|\.payload[/.])([^/]+)`)

// containerOfCgroups determines the name of the container confining a
// process from the contents of its /proc/<pid>/cgroup file, returning false
// if the process isn't inside any container payload cgroup. Each record is
// of the form "hierarchy-ID:controller-list:path" and only the path matters
// here.
func containerOfCgroups(cgroups string) (string, bool) {
	for _, record := range strings.Split(cgroups, "\n") {
		fields := strings.SplitN(record, ":", 3)
		if len(fields) != 3 {
			continue
		}
		if m := containerPattern.FindStringSubmatch(fields[2]); m != nil {
			return m[1], true
		}
	}
	return "", false
}
