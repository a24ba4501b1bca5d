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
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/fdooze"
	. "github.com/thediveo/success"
)

// sh runs an inline shell script as the child program.
func sh(script string) []string { return []string{"/bin/sh", "-c", script} }

var _ = Describe("child processes", func() {

	BeforeEach(func() {
		goodfds := Filedescriptors()
		DeferCleanup(func() {
			Eventually(Goroutines).ShouldNot(HaveLeaked())
			Expect(Filedescriptors()).NotTo(HaveLeakedFds(goodfds))
		})
	})

	It("refuses an empty argument vector", func() {
		_, err := Capture(nil)
		Expect(err).To(HaveOccurred())
	})

	It("captures the complete output, available only after exit", func() {
		child := Successful(Capture(sh("printf 'ahoy'; sleep 0.2; printf ' there'")))
		Expect(child.PID()).NotTo(BeZero())

		_, _, err := child.Output()
		Expect(errors.Is(err, ErrStillRunning)).To(BeTrue())

		Eventually(child.Done()).Within(5 * time.Second).Should(BeClosed())
		out, overflow, err := child.Output()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(Equal("ahoy there"))
		Expect(overflow).To(BeZero())
		Expect(child.Check()).To(Succeed())
	})

	It("streams output line by line while the child runs", func() {
		linech := make(chan string, 16)
		child := Successful(Stream(func(line []byte) {
			linech <- string(line)
		}, nil, sh("echo one; echo two; sleep 2")))
		defer func() {
			Expect(child.Kill(unix.SIGKILL)).To(Succeed())
			Eventually(child.Done()).Within(5 * time.Second).Should(BeClosed())
		}()

		Eventually(linech).Within(5 * time.Second).Should(Receive(Equal("one")))
		Eventually(linech).Within(5 * time.Second).Should(Receive(Equal("two")))
		Expect(child.Exited()).To(BeFalse())
	})

	It("doesn't lose terminal output when the child exits immediately", func() {
		var lines []string
		child := Successful(Stream(func(line []byte) {
			lines = append(lines, string(line))
		}, nil, sh("printf 'parting words'")))
		Eventually(child.Done()).Within(5 * time.Second).Should(BeClosed())
		// Done closes only after the pipe drain, so no synchronization against
		// the line handler is needed anymore at this point.
		Expect(lines).To(ConsistOf("parting words"))
	})

	It("invokes the exit handler exactly once, after the output drain", func() {
		var calls int32
		child := Successful(Capture(sh("printf 'swan song'"),
			WithExitHandler(func(c *ChildProcess) {
				atomic.AddInt32(&calls, 1)
			})))
		Eventually(child.Done()).Within(5 * time.Second).Should(BeClosed())
		Eventually(func() int32 { return atomic.LoadInt32(&calls) }).
			Should(Equal(int32(1)))
		Consistently(func() int32 { return atomic.LoadInt32(&calls) }, "200ms").
			Should(Equal(int32(1)))
		out, _ := Successful2R(child.Output())
		Expect(string(out)).To(Equal("swan song"))
	})

	It("kills a running child, but never signals a reaped PID", func() {
		child := Successful(Capture(sh("exec sleep 30")))
		Expect(child.Exited()).To(BeFalse())
		Expect(child.Kill(unix.SIGTERM)).To(Succeed())
		Eventually(child.Done()).Within(5 * time.Second).Should(BeClosed())
		// now a no-op, not an ESRCH or worse: a signal to a reused PID.
		Expect(child.Kill(unix.SIGKILL)).To(Succeed())
	})

})
