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

package engineclient

import (
	"context"
)

// EngineClient defines the generic methods needed in order to watch the
// containers of a container engine, regardless of how the specific engine
// gets interrogated.
type EngineClient interface {
	// List the names of the currently active containers; a complete
	// point-in-time snapshot.
	List(ctx context.Context) ([]string, error)
	// Stream container lifecycle events, limited to containers becoming
	// active and ceasing to be active. The error channel becomes readable
	// when the event stream has failed terminally; the event channel is
	// closed then.
	LifecycleEvents(ctx context.Context) (<-chan ContainerEvent, <-chan error)

	// Clean up and release any engine client resources, if necessary.
	Close()
}

// ContainerEventType identifies and enumerates the few container lifecycle
// events we're interested in.
type ContainerEventType byte

// Container lifecycle events, covering only "active" containers.
const (
	ContainerStarted ContainerEventType = iota
	ContainerExited
)

// ContainerEvent is a container lifecycle event of a container becoming
// active or having stopped.
type ContainerEvent struct {
	Type ContainerEventType // type of lifecycle event.
	Name string             // name of the container.
}
