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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/success"
)

// mkproc synthesizes a proc filesystem entry for a fake process.
func mkproc(root string, pid int, comm, cgroups string) {
	GinkgoHelper()
	base := filepath.Join(root, strconv.Itoa(pid))
	Expect(os.MkdirAll(base, 0o755)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(base, "comm"), []byte(comm+"\n"), 0o644)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(base, "cgroup"), []byte(cgroups+"\n"), 0o644)).To(Succeed())
}

var _ = Describe("process directory scans", func() {

	var procroot string
	var ownuids UIDRanges

	BeforeEach(func() {
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).Within(2 * time.Second).ProbeEvery(100 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
		})
		procroot = GinkgoT().TempDir()
		ownuids = UIDRanges{{Start: uint32(os.Getuid()), Count: 1}}
	})

	It("finds confined processes and sorts them", func(ctx context.Context) {
		mkproc(procroot, 666, "mc", "0::/lxc.payload.boxB/init.scope")
		mkproc(procroot, 42, "mc", "0::/lxc.payload.boxA/init.scope")
		mkproc(procroot, 7, "bash", "0::/lxc.payload.boxB/init.scope")
		mkproc(procroot, 1, "systemd", "0::/init.scope")
		Expect(os.WriteFile(filepath.Join(procroot, "uptime"), []byte("42"), 0o644)).To(Succeed())
		Expect(os.MkdirAll(filepath.Join(procroot, "self"), 0o755)).To(Succeed())

		d := New(ownuids, WithProcRoot(procroot))
		Expect(Successful(d.Scan(ctx))).To(Equal([]ConfinedProcess{
			{Container: "boxA", PID: 42, Command: "mc", UID: uint32(os.Getuid())},
			{Container: "boxB", PID: 7, Command: "bash", UID: uint32(os.Getuid())},
			{Container: "boxB", PID: 666, Command: "mc", UID: uint32(os.Getuid())},
		}))
	})

	It("ignores processes owned by foreign user IDs", func(ctx context.Context) {
		mkproc(procroot, 42, "mc", "0::/lxc.payload.boxA/init.scope")
		d := New(UIDRanges{{Start: uint32(os.Getuid()) + 1, Count: 1}},
			WithProcRoot(procroot))
		Expect(Successful(d.Scan(ctx))).To(BeEmpty())
	})

	It("restricts scans to allowlisted commands", func(ctx context.Context) {
		mkproc(procroot, 42, "mc", "0::/lxc.payload.boxA/init.scope")
		mkproc(procroot, 43, "bash", "0::/lxc.payload.boxA/init.scope")
		d := New(ownuids, WithProcRoot(procroot), WithCommandAllowlist("mc"))
		procs := Successful(d.Scan(ctx))
		Expect(procs).To(HaveLen(1))
		Expect(procs[0].Command).To(Equal("mc"))
	})

	It("skips monitor processes", func(ctx context.Context) {
		mkproc(procroot, 42, "lxc-monitor", "0::/lxc.monitor.boxU")
		d := New(ownuids, WithProcRoot(procroot))
		Expect(Successful(d.Scan(ctx))).To(BeEmpty())
	})

	It("treats a process without metadata as already gone", func(ctx context.Context) {
		Expect(os.MkdirAll(filepath.Join(procroot, "12345"), 0o755)).To(Succeed())
		d := New(ownuids, WithProcRoot(procroot))
		Expect(Successful(d.Scan(ctx))).To(BeEmpty())
	})

	It("reports an unreadable proc filesystem", func(ctx context.Context) {
		d := New(ownuids, WithProcRoot(filepath.Join(procroot, "gone")))
		Expect(d.Scan(ctx)).Error().To(HaveOccurred())
	})

	It("aborts a scan when its context is cancelled", func() {
		mkproc(procroot, 42, "mc", "0::/lxc.payload.boxA/init.scope")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d := New(ownuids, WithProcRoot(procroot))
		Expect(d.Scan(ctx)).Error().To(MatchError(context.Canceled))
	})

})
