/*
Copyright 2024 Alexandre Mahdhaoui

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package power

import (
	"context"
	"errors"
	"time"
)

// ErrGuestNotFound is returned by Connector.LookupByName when the guest does
// not exist on the hypervisor. The monitor treats it as "already powered
// off", never as a failure.
var ErrGuestNotFound = errors.New("guest not found")

// Connector provides access to guests on a hypervisor backend.
// Implemented once per backend (see internal/driver/libvirt).
type Connector interface {
	// LookupByName resolves a live guest handle.
	// Returns an error wrapping ErrGuestNotFound if the guest does not exist.
	LookupByName(ctx context.Context, name string) (Guest, error)
}

// Guest is a handle to a running guest. The monitor only queries and signals
// it; it never mutates guest configuration.
type Guest interface {
	// State reads the guest's current power state. May fail transiently.
	State(ctx context.Context) (State, error)

	// Shutdown asks the guest OS to power itself off. Fire-and-forget: the
	// signal may be lost or arrive before the guest is ready to process it,
	// and it may fail if the guest already transitioned. Callers must treat
	// such failures as benign.
	Shutdown(ctx context.Context) error

	// Destroy forcibly powers off the guest. Idempotent: destroying a guest
	// that is already off or gone is not an error.
	Destroy(ctx context.Context) error

	// Free releases the handle.
	Free()
}

// Policy holds the timing parameters of one power-off operation.
// Timeout == 0 means no clean shutdown was requested: the monitor still
// issues a single signal but reports failure without polling.
// RetryInterval == 0 means re-signal on every tick.
type Policy struct {
	Timeout       time.Duration
	RetryInterval time.Duration
}

// Outcome is the result of one monitor run. Transient: produced once per
// invocation, never persisted.
type Outcome struct {
	// Succeeded reports whether the guest reached a terminal state (or was
	// already gone) within the timeout budget.
	Succeeded bool `json:"succeeded"`

	// Elapsed is the number of one-second ticks that passed before the
	// outcome was decided.
	Elapsed int `json:"elapsedSeconds"`

	// SignalsSent counts the shutdown signals issued, including the initial
	// one.
	SignalsSent int `json:"signalsSent"`
}
