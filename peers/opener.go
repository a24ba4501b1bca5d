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

package peers

import (
	"github.com/lxcwatch/lxcwatch/spawn"
	"github.com/sirupsen/logrus"
)

// Opener hands a directory path or URL off to the host's open facility.
type Opener interface {
	Open(target string) error
}

// ExecOpener opens targets by running a host-level open tool, "xdg-open" by
// default. The tool's exit status is only ever logged: an open that fails
// after the handoff is the desktop's problem, not the peer server's.
type ExecOpener struct {
	argv []string
}

// NewExecOpener returns an Opener running the specified open tool command,
// defaulting to "xdg-open" when no command is given.
func NewExecOpener(argv ...string) *ExecOpener {
	if len(argv) == 0 {
		argv = []string{"xdg-open"}
	}
	return &ExecOpener{argv: argv}
}

// Open runs the open tool with the given target as its sole argument.
func (o *ExecOpener) Open(target string) error {
	_, err := spawn.Capture(append(append([]string(nil), o.argv...), target),
		spawn.WithExitHandler(func(c *spawn.ChildProcess) {
			if err := c.Check(); err != nil {
				logrus.Warnf("open tool failed: %s", err.Error())
			}
		}))
	return err
}
