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

// State is the abstract power state of a guest, decoupled from any
// hypervisor's native state codes. Each backend maps its own codes onto this
// set; the monitor only ever looks at State.
type State int

const (
	StateNoState State = iota
	StateRunning
	StateBlocked
	StatePaused
	StateShuttingDown
	StateShutoff
	StateCrashed
	StateSuspended
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateNoState:
		return "nostate"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StatePaused:
		return "paused"
	case StateShuttingDown:
		return "shutting-down"
	case StateShutoff:
		return "shutoff"
	case StateCrashed:
		return "crashed"
	case StateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// Terminal reports whether the guest has reached a state from which no
// further shutdown signaling is needed. Only SHUTOFF and CRASHED qualify;
// any state this package does not know about is non-terminal, so an unknown
// code can never be mistaken for a successful shutdown.
func (s State) Terminal() bool {
	switch s {
	case StateShutoff, StateCrashed:
		return true
	default:
		return false
	}
}
