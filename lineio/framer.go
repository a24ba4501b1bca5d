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
	"bytes"
)

// Framer splits a byte stream into logical lines, invoking the Line handler
// once per complete line, without the terminator. The sequence of lines
// produced is independent of how the stream gets chopped into Absorb chunks.
//
// Line terminators are newlines, optionally preceded by a carriage return; a
// carriage return not immediately followed by a newline also ends the current
// line, so producers with mixed line endings still frame sensibly.
//
// A logical line whose accumulated size exceeds the cap is never delivered to
// the Line handler, not even partially: all its bytes, including those
// buffered before crossing the cap, go to the Overflow handler instead, and
// this routing sticks until the line's terminator has been seen. An oversized
// line can thus not masquerade as a valid-looking shorter line plus a
// fragment. On Finalize any buffered partial line is flushed as a final line,
// subject to the same overflow routing.
//
// Line and Overflow handler arguments are only valid for the duration of the
// handler call.
type Framer struct {
	Line     func(line []byte)   // called once per complete line.
	Overflow func(excess []byte) // oversized line data; optional, nil discards.

	// Max overrides the line size cap when positive; zero means MaxSize.
	// Useful mostly in tests.
	Max int

	buf       []byte
	excess    bool // current logical line has blown the cap.
	pendingCR bool // swallow an immediately following newline.
}

var _ Sink = (*Framer)(nil)

func (f *Framer) cap() int {
	if f.Max > 0 {
		return f.Max
	}
	return MaxSize
}

// Absorb consumes the next chunk of stream data, emitting all lines completed
// by it.
func (f *Framer) Absorb(chunk []byte) {
	for len(chunk) > 0 {
		if f.pendingCR {
			f.pendingCR = false
			if chunk[0] == '\n' {
				chunk = chunk[1:]
				continue
			}
		}
		term := bytes.IndexAny(chunk, "\r\n")
		if term < 0 {
			f.accumulate(chunk)
			return
		}
		f.accumulate(chunk[:term])
		if chunk[term] == '\r' {
			f.pendingCR = true
		}
		f.endLine()
		chunk = chunk[term+1:]
	}
}

// Finalize flushes a buffered partial line, if any, as the stream's final
// line.
func (f *Framer) Finalize() {
	f.pendingCR = false
	if f.excess {
		f.excess = false
		return
	}
	if len(f.buf) > 0 {
		f.Line(f.buf)
		f.buf = f.buf[:0]
	}
}

// accumulate adds terminator-free line data, switching the current logical
// line over to overflow routing as soon as it blows the cap.
func (f *Framer) accumulate(data []byte) {
	if len(data) == 0 {
		return
	}
	if f.excess {
		f.overflow(data)
		return
	}
	f.buf = append(f.buf, data...)
	if len(f.buf) > f.cap() {
		// The whole line so far moves over to the overflow handler, so the
		// normal Line handler never sees any fragment of it.
		f.excess = true
		f.overflow(f.buf)
		f.buf = nil
	}
}

// endLine completes the current logical line at a detected terminator.
func (f *Framer) endLine() {
	if f.excess {
		f.excess = false
		return
	}
	f.Line(f.buf)
	f.buf = f.buf[:0]
}

func (f *Framer) overflow(excess []byte) {
	if f.Overflow != nil {
		f.Overflow(excess)
	}
}
