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
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/lxcwatch/lxcwatch/engineclient"
	"github.com/lxcwatch/lxcwatch/spawn"
)

// Type specifies this container engine's type identifier.
const Type = "linuxcontainers.org"

// The LXC tool invocations used unless overridden; lxc-ls with "-1" prints
// one container name per line, but any whitespace-separated output splits
// fine.
var (
	defaultMonitorArgv = []string{"lxc-monitor"}
	defaultListerArgv  = []string{"lxc-ls", "--active", "-1"}
)

// Client is the LXC EngineClient, interrogating LXC through its command-line
// tools.
type Client struct {
	monitorArgv []string
	listerArgv  []string

	mu      sync.Mutex
	monitor *spawn.ChildProcess // currently running monitor child, if any.
}

// Make sure that the EngineClient interface is fully implemented.
var _ engineclient.EngineClient = (*Client)(nil)

// NewOption represents options to New when creating a new LXC client.
type NewOption func(*Client)

// WithMonitorCommand overrides the argument vector of the streaming
// state-change monitor tool.
func WithMonitorCommand(argv ...string) NewOption {
	return func(c *Client) { c.monitorArgv = argv }
}

// WithListerCommand overrides the argument vector of the one-shot active
// container listing tool.
func WithListerCommand(argv ...string) NewOption {
	return func(c *Client) { c.listerArgv = argv }
}

// New returns a new LXC engine client.
func New(opts ...NewOption) *Client {
	c := &Client{
		monitorArgv: defaultMonitorArgv,
		listerArgv:  defaultListerArgv,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close signals a still-running monitor child to exit. The signal is
// advisory; no synchronous termination is guaranteed.
func (c *Client) Close() {
	c.mu.Lock()
	monitor := c.monitor
	c.mu.Unlock()
	if monitor != nil {
		_ = monitor.Kill(unix.SIGTERM)
	}
}

// List returns the names of the currently active containers, from a single
// complete run of the listing tool.
func (c *Client) List(ctx context.Context) ([]string, error) {
	child, err := spawn.Capture(c.listerArgv)
	if err != nil {
		return nil, errors.Wrap(err, "cannot list containers")
	}
	select {
	case <-ctx.Done():
		_ = child.Kill(unix.SIGKILL)
		return nil, ctx.Err()
	case <-child.Done():
	}
	if err := child.Check(); err != nil {
		return nil, errors.Wrap(err, "container listing failed")
	}
	out, overflow, _ := child.Output()
	if overflow > 0 {
		logrus.Warnf("container listing truncated, %d byte(s) dropped", overflow)
	}
	return strings.Fields(string(out)), nil
}
