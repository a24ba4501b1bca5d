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

// MaxSize bounds the amount of stream data a sink buffers: the longest
// logical line a Framer accumulates, and the largest blob a Capture stores.
// Data beyond the bound is routed to overflow handling instead of ever
// growing the buffers.
const MaxSize = 100 * 1024

// Sink consumes a byte stream chunk by chunk. Absorb gets called with each
// chunk of data as it arrives; the chunk is only valid for the duration of
// the call. Finalize gets called exactly once after the last chunk, when the
// stream's producer has closed its end.
//
// Sinks are not safe for concurrent use; all Absorb calls and the final
// Finalize must come from a single go routine (the pump's).
type Sink interface {
	Absorb(chunk []byte)
	Finalize()
}
