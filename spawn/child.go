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
	"io"
	"os/exec"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/lxcwatch/lxcwatch/lineio"
)

// ChildProcess is a spawned external program whose standard output is drained
// into a lineio sink. The program is looked up in the search path and runs
// with the inherited environment. ChildProcess assumes single ownership of
// the child's PID for signalling purposes.
type ChildProcess struct {
	cmd    *exec.Cmd
	sink   lineio.Sink
	onExit func(*ChildProcess)

	done chan struct{} // closed exactly once, after drain and reap.

	mu      sync.Mutex
	exited  bool        // exit outcome recorded; PID must not be signalled anymore.
	waiterr error       // reaping failed for a non-exit reason.
	pumperr error       // stdout drain failed.
}

// NewOption configures a ChildProcess while it is being spawned.
type NewOption func(*ChildProcess)

// WithExitHandler sets the at-most-one completion handler, invoked exactly
// once from the supervising go routine after the child's exit outcome has
// been recorded (and thus after its output sink has been finalized).
func WithExitHandler(handler func(*ChildProcess)) NewOption {
	return func(c *ChildProcess) {
		c.onExit = handler
	}
}

// New spawns the program specified by the argument vector, draining its
// standard output into the specified sink. It returns as soon as the child
// has been started; supervision then proceeds on a dedicated go routine.
func New(sink lineio.Sink, argv []string, opts ...NewOption) (*ChildProcess, error) {
	if len(argv) == 0 {
		return nil, errors.New("cannot spawn an empty argument vector")
	}
	c := &ChildProcess{
		cmd:  exec.Command(argv[0], argv[1:]...),
		sink: sink,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	stdout, err := c.cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "cannot plumb stdout of '%s'", argv[0])
	}
	if err := c.cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "cannot spawn '%s'", argv[0])
	}
	go c.supervise(stdout)
	return c, nil
}

// supervise drains the child's stdout pipe to its very end and only then
// reaps the child. Exit and pipe data arrive through independent kernel
// channels; reaping first would allow terminal output to get lost, so the
// drain strictly comes first.
func (c *ChildProcess) supervise(stdout io.ReadCloser) {
	pumperr := lineio.Pump(stdout, c.sink)
	err := c.cmd.Wait()
	c.mu.Lock()
	c.pumperr = pumperr
	c.exited = true
	if _, isexit := err.(*exec.ExitError); err != nil && !isexit {
		// exit status outcomes are read off ProcessState later; anything else
		// from reaping is a supervisory failure in its own right.
		c.waiterr = err
	}
	c.mu.Unlock()
	close(c.done)
	if c.onExit != nil {
		c.onExit(c)
	}
}

// PID returns the OS process ID of the child.
func (c *ChildProcess) PID() int { return c.cmd.Process.Pid }

// Argv returns the child's argument vector.
func (c *ChildProcess) Argv() []string { return c.cmd.Args }

// Done returns a channel that is closed once the child's exit outcome has
// been recorded, with its output completely drained.
func (c *ChildProcess) Done() <-chan struct{} { return c.done }

// Exited returns true once the child's exit outcome has been recorded.
func (c *ChildProcess) Exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Kill sends the specified signal to the child, unless its exit has already
// been recorded: then Kill is a no-op, as the kernel may meanwhile have
// reused the PID for an unrelated process.
func (c *ChildProcess) Kill(sig unix.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exited {
		return nil
	}
	return unix.Kill(c.cmd.Process.Pid, sig)
}
