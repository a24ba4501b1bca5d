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
	"fmt"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrStillRunning is returned when asking for a child's exit outcome before
// any exit has been recorded: that's a usage error of the caller, not a state
// to silently succeed on.
var ErrStillRunning = errors.New("child process still running")

// AbnormalExitError reports a child that did not exit plainly with status
// zero: it either exited with a non-zero code, was killed by a signal, or its
// supervision failed in some other unexpected way.
type AbnormalExitError struct {
	Argv   []string    // the child's argument vector, for reporting.
	Code   int         // non-zero exit code, if plainly exited.
	Signal unix.Signal // terminating signal, if signal-killed.
	Err    error       // unexpected supervision failure, if any.
}

// Signalled returns true if the child was killed by a signal.
func (e *AbnormalExitError) Signalled() bool { return e.Signal != 0 }

// Unwrap returns the underlying supervision failure, if any.
func (e *AbnormalExitError) Unwrap() error { return e.Err }

// Error returns a textual description of how the child went south.
func (e *AbnormalExitError) Error() string {
	child := "child"
	if len(e.Argv) > 0 {
		child = fmt.Sprintf("child '%s'", strings.Join(e.Argv, " "))
	}
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s supervision failed: %s", child, e.Err.Error())
	case e.Signalled():
		return fmt.Sprintf("%s killed by signal %s", child, unix.SignalName(e.Signal))
	default:
		return fmt.Sprintf("%s exited with code %d", child, e.Code)
	}
}

// Check returns nil if the child exited plainly with a zero status, and an
// [AbnormalExitError] for non-zero exits, signal kills and other abnormal
// terminations. Calling Check before the child's exit has been recorded is a
// usage error and fails fast with [ErrStillRunning].
func (c *ChildProcess) Check() error {
	select {
	case <-c.done:
	default:
		return errors.WithStack(ErrStillRunning)
	}
	c.mu.Lock()
	waiterr, pumperr := c.waiterr, c.pumperr
	c.mu.Unlock()
	if waiterr != nil {
		return &AbnormalExitError{Argv: c.cmd.Args, Err: waiterr}
	}
	if pumperr != nil {
		return &AbnormalExitError{Argv: c.cmd.Args, Err: pumperr}
	}
	ws, ok := c.cmd.ProcessState.Sys().(syscall.WaitStatus)
	if !ok {
		return &AbnormalExitError{Argv: c.cmd.Args,
			Err: errors.New("unexpected wait status type")}
	}
	switch {
	case ws.Exited() && ws.ExitStatus() == 0:
		return nil
	case ws.Exited():
		return &AbnormalExitError{Argv: c.cmd.Args, Code: ws.ExitStatus()}
	case ws.Signaled():
		return &AbnormalExitError{Argv: c.cmd.Args, Signal: unix.Signal(ws.Signal())}
	default:
		return &AbnormalExitError{Argv: c.cmd.Args,
			Err: errors.Errorf("unexpected wait status %#x", uint32(ws))}
	}
}
