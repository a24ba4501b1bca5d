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
	"context"
	"net"
	"os"
	"sync"

	"github.com/lxcwatch/lxcwatch/lineio"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Server accepts peer connections on unix sockets and hands the requested
// directories and URLs off to its Opener.
type Server struct {
	opener   Opener
	procroot string

	mu        sync.Mutex
	listeners []*net.UnixListener
	paths     []string
}

// NewOption configures a Server as it is created by New.
type NewOption func(*Server)

// WithProcRoot sets the root of the proc filesystem used to resolve peers,
// defaulting to "/proc".
func WithProcRoot(root string) NewOption {
	return func(s *Server) {
		s.procroot = root
	}
}

// New returns a peer request server handing successfully resolved requests
// off to the specified Opener.
func New(opener Opener, opts ...NewOption) *Server {
	s := &Server{
		opener:   opener,
		procroot: "/proc",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen binds the server to the given unix socket paths. A stale socket
// file left behind at one of the paths gets removed before binding; anything
// else occupying a path is an error.
func (s *Server) Listen(paths ...string) error {
	for _, path := range paths {
		if info, err := os.Lstat(path); err == nil {
			if info.Mode()&os.ModeSocket == 0 {
				return errors.Errorf("cannot listen on %q: occupied by a non-socket", path)
			}
			if err := os.Remove(path); err != nil {
				return errors.Wrap(err, "cannot remove stale socket")
			}
		}
		l, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
		if err != nil {
			return errors.Wrapf(err, "cannot listen on %q", path)
		}
		// The listeners get closed explicitly, with the socket files
		// removed as the final shutdown step.
		l.SetUnlinkOnClose(false)
		s.mu.Lock()
		s.listeners = append(s.listeners, l)
		s.paths = append(s.paths, path)
		s.mu.Unlock()
	}
	return nil
}

// Serve accepts and serves peer connections on all bound sockets until the
// context gets cancelled or the server is closed.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	listeners := append([]*net.UnixListener(nil), s.listeners...)
	s.mu.Unlock()
	stop := context.AfterFunc(ctx, func() {
		for _, l := range listeners {
			l.Close()
		}
	})
	defer stop()
	g := &errgroup.Group{}
	for _, l := range listeners {
		l := l
		g.Go(func() error {
			for {
				conn, err := l.AcceptUnix()
				if err != nil {
					if errors.Is(err, net.ErrClosed) {
						return nil
					}
					return errors.Wrap(err, "accepting peer connection failed")
				}
				go s.serve(conn)
			}
		})
	}
	err := g.Wait()
	if ctxerr := ctx.Err(); ctxerr != nil {
		return ctxerr
	}
	return err
}

// Close stops accepting connections and removes all bound socket files.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listeners {
		l.Close()
	}
	s.listeners = nil
	for _, path := range s.paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logrus.Warnf("cannot remove socket %q: %s", path, err.Error())
		}
	}
	s.paths = nil
}

// serve handles a single accepted peer connection: resolve who's calling,
// half-close our sending direction as we never reply, then act on each
// received request line. A peer we cannot resolve gets dropped unserviced.
func (s *Server) serve(conn *net.UnixConn) {
	defer conn.Close()
	pid, err := peerPID(conn)
	if err != nil {
		logrus.Warnf("cannot identify peer: %s", err.Error())
		return
	}
	peer, err := resolvePeer(s.procroot, pid)
	if err != nil {
		logrus.Warnf("cannot resolve peer: %s", err.Error())
		return
	}
	_ = conn.CloseWrite()
	framer := lineio.Framer{
		Line: func(line []byte) {
			s.open(peer, string(line))
		},
		Overflow: func(excess []byte) {
			logrus.Warnf("ignoring oversized request from peer %d", peer.pid)
		},
	}
	if err := lineio.Pump(conn, &framer); err != nil {
		logrus.Warnf("peer %d connection failed: %s", peer.pid, err.Error())
	}
}

// open classifies a single request line and hands the target off to the
// opener if it qualifies.
func (s *Server) open(peer peer, request string) {
	if request == "" {
		return
	}
	target, isPath := peer.classify(request)
	if isPath {
		info, err := os.Stat(target)
		if err != nil || !info.IsDir() {
			logrus.Infof("ignoring request for %q from peer %d: not an existing directory",
				target, peer.pid)
			return
		}
	}
	logrus.Debugf("opening %q for peer %d", target, peer.pid)
	if err := s.opener.Open(target); err != nil {
		logrus.Warnf("cannot open %q: %s", target, err.Error())
	}
}

// peerPID returns the PID of the process at the other end of the connected
// unix socket, courtesy of the kernel's socket credential mechanism.
func peerPID(conn *net.UnixConn) (int, error) {
	sc, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}
	var ucred *unix.Ucred
	var ucrederr error
	if err := sc.Control(func(fd uintptr) {
		ucred, ucrederr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return 0, err
	}
	if ucrederr != nil {
		return 0, ucrederr
	}
	return int(ucred.Pid), nil
}
