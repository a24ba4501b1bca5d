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

package lineio

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// frame runs the specified stream through a fresh Framer, delivering it in
// chunks of the specified size (0 means all at once), and returns the
// resulting line sequence as well as the concatenated overflow data.
func frame(stream string, chunksize int, max int) (lines []string, excess string) {
	f := &Framer{
		Line:     func(line []byte) { lines = append(lines, string(line)) },
		Overflow: func(data []byte) { excess += string(data) },
		Max:      max,
	}
	if chunksize <= 0 {
		chunksize = len(stream) + 1
	}
	for len(stream) > 0 {
		n := chunksize
		if n > len(stream) {
			n = len(stream)
		}
		f.Absorb([]byte(stream[:n]))
		stream = stream[n:]
	}
	f.Finalize()
	return
}

var _ = Describe("line framer", func() {

	It("splits newline-terminated lines", func() {
		lines, excess := frame("foo\nbar\nbaz\n", 0, 0)
		Expect(lines).To(Equal([]string{"foo", "bar", "baz"}))
		Expect(excess).To(BeEmpty())
	})

	It("flushes a trailing partial line on finalize", func() {
		lines, _ := frame("foo\nbar", 0, 0)
		Expect(lines).To(Equal([]string{"foo", "bar"}))
	})

	It("handles CRLF and lone CR terminators", func() {
		lines, _ := frame("dos\r\nmac\rnix\n", 0, 0)
		Expect(lines).To(Equal([]string{"dos", "mac", "nix"}))
	})

	It("emits empty lines for empty terminated lines", func() {
		lines, _ := frame("\n\nfoo\n", 0, 0)
		Expect(lines).To(Equal([]string{"", "", "foo"}))
	})

	It("produces the same lines regardless of chunk boundaries", func() {
		const stream = "one\r\ntwo\rthree\nfour\r\r\nfive"
		want, _ := frame(stream, 0, 0)
		for chunksize := 1; chunksize <= len(stream); chunksize++ {
			lines, _ := frame(stream, chunksize, 0)
			Expect(lines).To(Equal(want),
				"diverging line sequence for chunk size %d", chunksize)
		}
	})

	It("splits a CRLF straddling a chunk boundary only once", func() {
		var lines []string
		f := &Framer{Line: func(line []byte) { lines = append(lines, string(line)) }}
		f.Absorb([]byte("foo\r"))
		f.Absorb([]byte("\nbar\n"))
		f.Finalize()
		Expect(lines).To(Equal([]string{"foo", "bar"}))
	})

	It("routes an oversized line completely to overflow", func() {
		long := strings.Repeat("x", 100)
		lines, excess := frame("ok\n"+long+"\nfine\n", 7, 16)
		Expect(lines).To(Equal([]string{"ok", "fine"}))
		Expect(excess).To(Equal(long))
	})

	It("keeps routing to overflow until the terminator, across chunk sizes", func() {
		long := strings.Repeat("y", 64)
		for chunksize := 1; chunksize <= 65; chunksize += 13 {
			lines, excess := frame(long+"\nafter", chunksize, 10)
			Expect(lines).To(Equal([]string{"after"}),
				"leaked line fragment for chunk size %d", chunksize)
			Expect(excess).To(Equal(long))
		}
	})

	It("doesn't flush an oversized partial line as a final line", func() {
		long := strings.Repeat("z", 32)
		lines, excess := frame(long, 0, 10)
		Expect(lines).To(BeEmpty())
		Expect(excess).To(Equal(long))
	})

	It("silently discards overflow without an overflow handler", func() {
		var lines []string
		f := &Framer{
			Line: func(line []byte) { lines = append(lines, string(line)) },
			Max:  4,
		}
		f.Absorb([]byte("much too long\nok\n"))
		f.Finalize()
		Expect(lines).To(Equal([]string{"ok"}))
	})

})
