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

// lxcwatch is a headless supervisor for LXC containers and their confined
// processes: it logs containers and processes coming and going and serves
// "open" requests from container-confined peers on unix sockets.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/lxcwatch/lxcwatch"
	"github.com/lxcwatch/lxcwatch/engineclient/lxc"
	"github.com/lxcwatch/lxcwatch/peers"
	"github.com/lxcwatch/lxcwatch/procdir"
	"github.com/lxcwatch/lxcwatch/watcher"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// defaultSocketPath places the peer socket into the user's runtime
// directory, if there is one.
func defaultSocketPath() string {
	rundir := os.Getenv("XDG_RUNTIME_DIR")
	if rundir == "" {
		rundir = os.TempDir()
	}
	return filepath.Join(rundir, "lxcwatch.sock")
}

func newCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lxcwatch",
		Short: "lxcwatch watches LXC containers and their confined processes",
		Long: `lxcwatch follows LXC container lifecycle events and periodically scans the
process table for processes confined inside containers, logging every change.
It also listens on unix sockets for single-line open requests from
container-confined peers, translating their paths into the host's view and
handing existing directories (and URLs) off to the host's open tool.`,
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringSlice("socket", []string{defaultSocketPath()},
		"unix socket path(s) serving peer open requests")
	cmd.Flags().StringSlice("command", nil,
		"only display confined processes with these command names; empty displays all")
	cmd.Flags().Duration("poll", 15*time.Second,
		"process table rescan interval; 0 disables polling")
	cmd.Flags().String("log-level", "info",
		"logging level (trace, debug, info, warning, error)")
	cmd.Flags().StringSlice("monitor-command", nil,
		"override the container state monitor tool invocation")
	cmd.Flags().StringSlice("lister-command", nil,
		"override the active container listing tool invocation")
	cmd.Flags().StringSlice("open-command", nil,
		"override the host open tool invocation (defaults to xdg-open)")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	levelname, _ := cmd.Flags().GetString("log-level")
	level, err := logrus.ParseLevel(levelname)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	var engineopts []lxc.NewOption
	if argv, _ := cmd.Flags().GetStringSlice("monitor-command"); len(argv) > 0 {
		engineopts = append(engineopts, lxc.WithMonitorCommand(argv...))
	}
	if argv, _ := cmd.Flags().GetStringSlice("lister-command"); len(argv) > 0 {
		engineopts = append(engineopts, lxc.WithListerCommand(argv...))
	}
	engine := lxc.New(engineopts...)

	var scanopts []procdir.NewOption
	if commands, _ := cmd.Flags().GetStringSlice("command"); len(commands) > 0 {
		scanopts = append(scanopts, procdir.WithCommandAllowlist(commands...))
	}
	scanner := procdir.New(procdir.LoadUIDRanges(), scanopts...)

	poll, _ := cmd.Flags().GetDuration("poll")
	retrier := backoff.NewExponentialBackOff()
	retrier.MaxElapsedTime = 0 // keep watching, however bad it gets.
	w := watcher.New(engine, scanner,
		watcher.WithBackoff(retrier),
		watcher.WithPollInterval(poll),
		watcher.WithDeltaHandler(logDelta))

	openargv, _ := cmd.Flags().GetStringSlice("open-command")
	server := peers.New(peers.NewExecOpener(openargv...))
	sockets, _ := cmd.Flags().GetStringSlice("socket")
	if err := server.Listen(sockets...); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), unix.SIGINT, unix.SIGTERM)
	defer stop()
	logrus.Infof("lxcwatch up, serving peer requests on %v", sockets)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Serve(ctx) })
	g.Go(func() error { return w.Watch(ctx) })
	err = g.Wait()
	// Mandated shutdown steps: stop the monitor child, remove the socket
	// files.
	w.Close()
	server.Close()
	if ctx.Err() != nil {
		logrus.Info("lxcwatch shut down")
		return nil
	}
	return err
}

// logDelta logs every change to the displayed containers and processes.
func logDelta(delta lxcwatch.Delta) {
	for _, k := range delta.Remove {
		logrus.Infof("gone: %s", k.String())
	}
	for _, e := range delta.Add {
		logrus.Infof("new: %s", e.String())
	}
}
