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

// Capture buffers an entire byte stream into a single blob, up to the size
// cap: bytes beyond the cap are dropped and only counted. Dropping instead of
// failing keeps the stream's producer alive; the Overflow count tells how
// much got lost.
type Capture struct {
	// Max overrides the capture size cap when positive; zero means MaxSize.
	Max int

	buf       bytes.Buffer
	dropped   int
	finalized bool
}

var _ Sink = (*Capture)(nil)

func (c *Capture) cap() int {
	if c.Max > 0 {
		return c.Max
	}
	return MaxSize
}

// Absorb consumes the next chunk of stream data, buffering it up to the cap.
func (c *Capture) Absorb(chunk []byte) {
	if room := c.cap() - c.buf.Len(); room < len(chunk) {
		c.dropped += len(chunk) - room
		chunk = chunk[:room]
	}
	c.buf.Write(chunk)
}

// Finalize marks the captured blob as complete.
func (c *Capture) Finalize() {
	c.finalized = true
}

// Finalized returns true after the stream has ended and the captured blob
// thus is complete.
func (c *Capture) Finalized() bool { return c.finalized }

// Bytes returns the captured blob; it is complete only after Finalized
// reports true.
func (c *Capture) Bytes() []byte { return c.buf.Bytes() }

// Overflow returns the number of stream bytes dropped beyond the cap.
func (c *Capture) Overflow() int { return c.dropped }
