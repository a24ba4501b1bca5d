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
	"io"

	"github.com/pkg/errors"
)

// ErrEmptyRead signals a read that returned neither data, nor end-of-stream,
// nor a failure. That's a broken stream source and not a recoverable
// condition, so the pump aborts loudly instead of spinning on it.
var ErrEmptyRead = errors.New("empty read without end-of-stream")

// pumpChunkSize is the read buffer size of a single pump cycle.
const pumpChunkSize = 32 * 1024

// Pump drains the specified reader into the specified sink until the stream
// ends, then finalizes the sink exactly once and returns nil. This is the one
// draining loop shared by child-process pipes and peer socket connections.
//
// On a read failure the sink is not finalized, as the stream didn't properly
// end; the failure is returned instead. Pump blocks its calling go routine;
// run it on a dedicated one.
func Pump(r io.Reader, sink Sink) error {
	chunk := make([]byte, pumpChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			sink.Absorb(chunk[:n])
		}
		switch {
		case err == io.EOF:
			sink.Finalize()
			return nil
		case err != nil:
			return errors.Wrap(err, "stream pump failed")
		case n == 0:
			return errors.WithStack(ErrEmptyRead)
		}
	}
}
