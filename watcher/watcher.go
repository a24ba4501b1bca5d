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

package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lxcwatch/lxcwatch"
	"github.com/lxcwatch/lxcwatch/engineclient"
	"github.com/lxcwatch/lxcwatch/procdir"
	"golang.org/x/sync/errgroup"
)

// ProcessScanner snapshots the processes currently confined in containers; a
// procdir.Directory is the real thing.
type ProcessScanner interface {
	Scan(ctx context.Context) ([]procdir.ConfinedProcess, error)
}

// Watcher keeps track of the currently active LXC containers and their
// confined processes, as a sorted sequence of display entries.
type Watcher interface {
	// Entries returns a snapshot copy of the currently displayed entry
	// sequence.
	Entries() lxcwatch.Entries
	// Refresh snapshots the active containers and confined processes,
	// reconciling the displayed entries with the joint result. Refreshes
	// never overlap; a refresh triggered while another one is underway waits
	// its turn.
	Refresh(ctx context.Context) error
	// Ready returns a channel that gets closed after the first refresh has
	// settled. Users don't need to wait for it to query entries, it just
	// helps those that want the initial state to be complete.
	Ready() <-chan struct{}
	// Watch runs the initial refresh and then continuously consumes
	// container lifecycle events, optionally re-refreshing periodically.
	// Watch only returns after its context has been cancelled; it
	// automatically restarts the event stream after failures, subject to
	// the configured backoff.
	Watch(ctx context.Context) error
	// Close releases the underlying engine client resources.
	Close()
}

// watcher reconciles lifecycle events and refresh snapshots into the one
// displayed entry sequence. The sequence is only ever mutated under mu, and
// whole refresh cycles additionally serialize on refreshmu so that two
// overlapping refreshes can never fight over the sequence.
type watcher struct {
	engine   engineclient.EngineClient
	scanner  ProcessScanner
	retrier  backoff.BackOff
	interval time.Duration
	ondelta  func(lxcwatch.Delta)
	ondone   func()

	refreshmu sync.Mutex // serializes whole refresh cycles.

	mu         sync.Mutex
	entries    lxcwatch.Entries
	refreshing bool     // a refresh snapshot is underway.
	stopped    []string // containers stopped while the snapshot was underway.
	started    []string // containers started while the snapshot was underway.

	once  sync.Once     // "protects" the ready channel
	ready chan struct{} // ready channel signal
}

// NewOption configures a Watcher as it is created by New.
type NewOption func(*watcher)

// WithBackoff sets the backoff governing event stream restarts. It defaults
// to backoff.StopBackOff, so a failed watch is never retried.
func WithBackoff(b backoff.BackOff) NewOption {
	return func(w *watcher) {
		w.retrier = b
	}
}

// WithPollInterval additionally refreshes at the given interval while
// watching, catching processes coming and going without container lifecycle
// events. Zero disables polling.
func WithPollInterval(interval time.Duration) NewOption {
	return func(w *watcher) {
		w.interval = interval
	}
}

// WithDeltaHandler calls the given handler for every non-zero change to the
// displayed entries, from lifecycle events as well as from refreshes. The
// handler is called with the entries lock held, so it must not call back
// into the watcher.
func WithDeltaHandler(handler func(lxcwatch.Delta)) NewOption {
	return func(w *watcher) {
		w.ondelta = handler
	}
}

// WithRefreshedHandler calls the given handler exactly once per refresh
// cycle, after both snapshots have completed and their joint result has been
// folded in (or the cycle has failed).
func WithRefreshedHandler(handler func()) NewOption {
	return func(w *watcher) {
		w.ondone = handler
	}
}

// New returns a new Watcher tracking active containers and their confined
// processes, using the specified engine client and process scanner.
func New(engine engineclient.EngineClient, scanner ProcessScanner, opts ...NewOption) Watcher {
	w := &watcher{
		engine:  engine,
		scanner: scanner,
		retrier: &backoff.StopBackOff{},
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Entries returns a snapshot copy of the currently displayed entry sequence.
func (w *watcher) Entries() lxcwatch.Entries {
	w.mu.Lock()
	defer w.mu.Unlock()
	entries := make(lxcwatch.Entries, len(w.entries))
	copy(entries, w.entries)
	return entries
}

// Ready returns a channel that gets closed after the first refresh has
// settled.
func (w *watcher) Ready() <-chan struct{} {
	return w.ready
}

// Close releases the underlying engine client resources.
func (w *watcher) Close() {
	w.engine.Close()
}

// Refresh snapshots the active containers and the confined processes
// concurrently, waits for both snapshots to complete, and then reconciles
// the displayed entries with the joint result in one go.
func (w *watcher) Refresh(ctx context.Context) (err error) {
	w.refreshmu.Lock()
	defer w.refreshmu.Unlock()
	w.mu.Lock()
	w.refreshing = true
	w.stopped = nil
	w.started = nil
	w.mu.Unlock()
	defer func() {
		if w.ondone != nil {
			w.ondone()
		}
		w.once.Do(func() { close(w.ready) })
	}()
	var names []string
	var procs []procdir.ConfinedProcess
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		names, err = w.engine.List(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		procs, err = w.scanner.Scan(ctx)
		return err
	})
	err = g.Wait()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.refreshing = false
	if err != nil {
		return err
	}
	var fresh lxcwatch.Entries
	for _, name := range names {
		fresh.Insert(lxcwatch.HeaderEntry(name))
	}
	for _, proc := range procs {
		fresh.Insert(lxcwatch.HeaderEntry(proc.Container))
		fresh.Insert(lxcwatch.Entry{
			EntryKey: lxcwatch.EntryKey{Container: proc.Container, PID: proc.PID},
			Command:  proc.Command,
			UID:      proc.UID,
		})
	}
	// The snapshots cannot be ordered against the event stream, so lifecycle
	// events seen while the snapshots were underway overrule them: entries
	// of containers that stopped in between must not come back, containers
	// that started in between must not vanish again.
	for _, name := range w.stopped {
		for _, k := range fresh.Container(name).Keys() {
			fresh.Delete(k)
		}
	}
	for _, name := range w.started {
		fresh.Insert(lxcwatch.HeaderEntry(name))
	}
	w.stopped = nil
	w.started = nil
	w.apply(lxcwatch.Diff(w.entries, fresh), fresh)
	return nil
}

// apply installs the fresh entry sequence as the displayed one, notifying
// the delta handler about the change. Callers must hold mu.
func (w *watcher) apply(delta lxcwatch.Delta, fresh lxcwatch.Entries) {
	w.entries = fresh
	if w.ondelta != nil && !delta.IsZero() {
		w.ondelta(delta)
	}
}

// Watch runs the initial refresh and then continuously consumes container
// lifecycle events. Watch only returns after the specified context has been
// cancelled, restarting the event stream after failures subject to the
// configured backoff.
func (w *watcher) Watch(ctx context.Context) error {
	return backoff.Retry(func() error {
		// The event stream gets its own cancellable child context so that a
		// failed refresh can abort the stream without cancelling the parent.
		evctx, cancelevents := context.WithCancel(ctx)
		defer cancelevents()
		evs, errs := w.engine.LifecycleEvents(evctx)
		// Buffered so an in-flight refresh can always deliver its verdict
		// even after this watch session has already ended otherwise.
		refreshed := make(chan error, 1)
		inflight := true
		go func() { refreshed <- w.Refresh(ctx) }()
		var tick <-chan time.Time
		if w.interval > 0 {
			ticker := time.NewTicker(w.interval)
			defer ticker.Stop()
			tick = ticker.C
		}
		for {
			select {
			case err := <-errs:
				// A cancelled context gets flattened into the stream error,
				// so check the parent context first and give it priority: a
				// deliberate cancellation must not be retried.
				if ctxerr := ctx.Err(); ctxerr != nil {
					return backoff.Permanent(ctxerr)
				}
				return err

			case err := <-refreshed:
				inflight = false
				if err == nil {
					continue
				}
				if ctxerr := ctx.Err(); ctxerr != nil {
					return backoff.Permanent(ctxerr)
				}
				return err

			case <-tick:
				if inflight {
					continue // the previous refresh hasn't settled yet.
				}
				inflight = true
				go func() { refreshed <- w.Refresh(ctx) }()

			case ev, ok := <-evs:
				if !ok {
					// terminally failed streams close their event channel;
					// the verdict arrives on the error channel.
					evs = nil
					continue
				}
				switch ev.Type {
				case engineclient.ContainerStarted:
					w.containerStarted(ev.Name)
				case engineclient.ContainerExited:
					w.containerStopped(ev.Name)
				}
			}
		}
	}, w.retrier)
}

// containerStarted adds the header entry of a newly started container.
func (w *watcher) containerStarted(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.refreshing {
		w.started = append(w.started, name)
	}
	header := lxcwatch.HeaderEntry(name)
	if !w.entries.Insert(header) {
		return
	}
	if w.ondelta != nil {
		w.ondelta(lxcwatch.Delta{Add: []lxcwatch.Entry{header}})
	}
}

// containerStopped removes every entry of a stopped container, the header as
// well as all its process entries.
func (w *watcher) containerStopped(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.refreshing {
		w.stopped = append(w.stopped, name)
	}
	keys := w.entries.Container(name).Keys()
	if len(keys) == 0 {
		return
	}
	for _, k := range keys {
		w.entries.Delete(k)
	}
	if w.ondelta != nil {
		w.ondelta(lxcwatch.Delta{Remove: keys})
	}
}
