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

package lxc

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/lxcwatch/lxcwatch/engineclient"
	"github.com/lxcwatch/lxcwatch/spawn"
)

// monitorLine matches a single state-change line of the monitor tool: a
// single-quoted container name (backslash escapes cover quotes inside the
// name), free text, and a final bracketed state keyword.
var monitorLine = regexp.MustCompile(`^'((?:[^'\\]|\\.)*)'.*\[([A-Z_]+)\]\s*$`)

// LifecycleEvents streams container state-change events from a freshly
// spawned monitor child, limited to containers becoming active (STARTING) and
// ceasing to be active (STOPPED). The stream ends terminally with an error on
// the error channel: the cancelled context, a monitor line not matching the
// grammar, or the monitor child dying on its own.
func (c *Client) LifecycleEvents(ctx context.Context) (<-chan engineclient.ContainerEvent, <-chan error) {
	evs := make(chan engineclient.ContainerEvent)
	errs := make(chan error, 1)

	monctx, stop := context.WithCancel(ctx)
	failch := make(chan error, 1)
	fail := func(err error) {
		select {
		case failch <- err:
		default: // keep only the first terminal failure.
		}
		stop()
	}

	child, err := spawn.Stream(
		func(line []byte) {
			ev, acted, perr := parseMonitorLine(line)
			if perr != nil {
				fail(perr)
				return
			}
			if !acted {
				return
			}
			select {
			case evs <- ev:
			case <-monctx.Done():
			}
		},
		func([]byte) {
			// the grammar cannot produce an oversized line, so the stream is
			// garbage from here on.
			fail(errors.New("oversized container monitor line"))
		},
		c.monitorArgv)
	if err != nil {
		stop()
		close(evs)
		errs <- errors.Wrap(err, "cannot start container monitor")
		close(errs)
		return evs, errs
	}
	c.mu.Lock()
	c.monitor = child
	c.mu.Unlock()

	// Signal the monitor child to exit as soon as the watch stops, for
	// whatever reason; signalling a child whose exit has been recorded is a
	// safe no-op.
	go func() {
		<-monctx.Done()
		_ = child.Kill(unix.SIGTERM)
	}()

	go func() {
		defer close(errs)
		<-child.Done()
		stop()
		// The child's exit is recorded only after its output has been fully
		// drained, so no line handler can still be sending events here.
		close(evs)
		var err error
		select {
		case err = <-failch:
		default:
			if err = ctx.Err(); err == nil {
				// The monitor died all on its own; that's terminal, too.
				if err = child.Check(); err == nil {
					err = errors.New("container monitor exited unexpectedly")
				}
			}
		}
		errs <- err
	}()
	return evs, errs
}

// parseMonitorLine parses a single monitor output line, returning the
// corresponding lifecycle event and true for the acted-upon STARTING and
// STOPPED states, false for all other states, and an error for a line not
// matching the grammar.
func parseMonitorLine(line []byte) (ev engineclient.ContainerEvent, acted bool, err error) {
	m := monitorLine.FindSubmatch(line)
	if m == nil {
		return ev, false, errors.Errorf(
			"unexpected container monitor output: %q", string(line))
	}
	name := unescapeName(string(m[1]))
	switch string(m[2]) {
	case "STARTING":
		return engineclient.ContainerEvent{
			Type: engineclient.ContainerStarted, Name: name}, true, nil
	case "STOPPED":
		return engineclient.ContainerEvent{
			Type: engineclient.ContainerExited, Name: name}, true, nil
	}
	return ev, false, nil
}

// unescapeName removes the backslash escaping from a quoted container name.
func unescapeName(name string) string {
	if !strings.Contains(name, `\`) {
		return name
	}
	var b strings.Builder
	for idx := 0; idx < len(name); idx++ {
		if name[idx] == '\\' && idx+1 < len(name) {
			idx++
		}
		b.WriteByte(name[idx])
	}
	return b.String()
}
