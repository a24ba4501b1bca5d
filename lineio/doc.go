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

/*
Package lineio turns byte streams arriving in arbitrary chunks into either a
sequence of complete lines ([Framer]) or a single size-capped blob
([Capture]), with strict bounds on memory use no matter how hostile the
stream: an endless line cannot make a Framer buffer grow without limit, and a
Capture never stores more than its cap, merely counting the excess.

Both are [Sink] implementations fed chunk-wise through Absorb and finished
with a single Finalize once the stream's producer has closed its end. [Pump]
drains an [io.Reader] into a Sink, so child-process pipes and peer sockets
share one draining loop.
*/
package lineio
