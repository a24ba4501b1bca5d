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
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// scanConcurrency bounds the number of processes resolved simultaneously
// during a single scan.
const scanConcurrency = 64

// ConfinedProcess describes a single process found to be confined inside an
// LXC container.
type ConfinedProcess struct {
	Container string // name of the confining container
	PID       int    // PID as seen from this proc filesystem
	Command   string // command name, as of /proc/$PID/comm
	UID       uint32 // owning user ID
}

// Directory discovers container-confined processes from the proc filesystem.
// It is stateless and safe for concurrent scans.
type Directory struct {
	procroot  string
	uids      UIDRanges
	allowlist map[string]struct{} // nil allows all command names
}

// NewOption configures a Directory as it is created by New.
type NewOption func(*Directory)

// WithProcRoot sets the root of the proc filesystem to scan, defaulting to
// "/proc".
func WithProcRoot(root string) NewOption {
	return func(d *Directory) {
		d.procroot = root
	}
}

// WithCommandAllowlist restricts scans to processes with one of the given
// command names, ignoring all others.
func WithCommandAllowlist(commands ...string) NewOption {
	return func(d *Directory) {
		d.allowlist = map[string]struct{}{}
		for _, command := range commands {
			d.allowlist[command] = struct{}{}
		}
	}
}

// New returns a Directory discovering processes owned by the user IDs in the
// given set.
func New(uids UIDRanges, opts ...NewOption) *Directory {
	d := &Directory{
		procroot: "/proc",
		uids:     uids,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Scan walks the proc filesystem and returns the processes currently
// confined in LXC containers, sorted by container name and PID. Scan only
// returns after every process discovered in the enumeration has reached its
// outcome, so the result is a self-consistent snapshot (modulo processes
// coming and going, which proc never freezes for anyone anyway).
func (d *Directory) Scan(ctx context.Context) ([]ConfinedProcess, error) {
	// os.ReadDir insists on sorting its entries, which for thousands of
	// processes just burns CPU, so read the directory unsorted.
	procdir, err := os.Open(d.procroot)
	if err != nil {
		return nil, errors.Wrap(err, "cannot scan process directory")
	}
	entries, err := procdir.ReadDir(-1)
	procdir.Close()
	if err != nil {
		return nil, errors.Wrap(err, "cannot scan process directory")
	}
	var procs []ConfinedProcess
	results := make(chan ConfinedProcess)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for proc := range results {
			procs = append(procs, proc)
		}
	}()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue // not a process entry
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if proc, ok := d.resolve(pid); ok {
				results <- proc
			}
			return nil
		})
	}
	err = g.Wait()
	close(results)
	<-done
	if err != nil {
		return nil, err
	}
	slices.SortFunc(procs, func(a, b ConfinedProcess) int {
		if c := strings.Compare(a.Container, b.Container); c != 0 {
			return c
		}
		return a.PID - b.PID
	})
	return procs, nil
}

// resolve inspects a single process, returning its details and true if it is
// owned by one of the session's user IDs and confined in a container. A
// process vanishing mid-inspection isn't an error, just a process that has
// exited.
func (d *Directory) resolve(pid int) (ConfinedProcess, bool) {
	base := filepath.Join(d.procroot, strconv.Itoa(pid))
	var st unix.Stat_t
	if err := unix.Stat(base, &st); err != nil {
		return ConfinedProcess{}, false
	}
	if !d.uids.Contains(st.Uid) {
		return ConfinedProcess{}, false
	}
	comm, err := os.ReadFile(filepath.Join(base, "comm"))
	if err != nil {
		return ConfinedProcess{}, false
	}
	command, _, _ := strings.Cut(string(comm), "\n")
	if d.allowlist != nil {
		if _, ok := d.allowlist[command]; !ok {
			return ConfinedProcess{}, false
		}
	}
	cgroups, err := os.ReadFile(filepath.Join(base, "cgroup"))
	if err != nil {
		return ConfinedProcess{}, false
	}
	container, ok := containerOfCgroups(string(cgroups))
	if !ok {
		return ConfinedProcess{}, false
	}
	return ConfinedProcess{
		Container: container,
		PID:       pid,
		Command:   command,
		UID:       st.Uid,
	}, true
}
