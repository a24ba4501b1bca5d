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

package spawn

import (
	"github.com/lxcwatch/lxcwatch/lineio"
)

// Captured is a child process whose entire output becomes available as a
// single blob after the child has exited; intended for one-shot listing
// tools.
type Captured struct {
	*ChildProcess
	capture *lineio.Capture
}

// Capture spawns the program specified by the argument vector, buffering its
// complete standard output for retrieval through Output after exit.
func Capture(argv []string, opts ...NewOption) (*Captured, error) {
	capture := &lineio.Capture{}
	child, err := New(capture, argv, opts...)
	if err != nil {
		return nil, err
	}
	return &Captured{ChildProcess: child, capture: capture}, nil
}

// Output returns the child's complete captured output together with the
// count of output bytes dropped beyond the capture cap. Asking before the
// child's exit has been recorded is a usage error and fails fast with
// [ErrStillRunning].
func (c *Captured) Output() (out []byte, overflow int, err error) {
	if !c.Exited() {
		return nil, 0, ErrStillRunning
	}
	return c.capture.Bytes(), c.capture.Overflow(), nil
}

// Stream spawns the program specified by the argument vector, invoking the
// line handler once per line of standard output while the child runs. There
// is no terminal buffered result; oversized lines go to the optional
// overflow handler (pass nil to discard them).
func Stream(line func(line []byte), overflow func(excess []byte), argv []string, opts ...NewOption) (*ChildProcess, error) {
	return New(&lineio.Framer{Line: line, Overflow: overflow}, argv, opts...)
}
