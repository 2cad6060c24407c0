//go:build unit

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

package power_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alexandremahdhaoui/virtpower/pkg/power"
)

func TestStateTerminal(t *testing.T) {
	terminal := []power.State{power.StateShutoff, power.StateCrashed}
	nonTerminal := []power.State{
		power.StateNoState,
		power.StateRunning,
		power.StateBlocked,
		power.StatePaused,
		power.StateShuttingDown,
		power.StateSuspended,
		power.State(42), // unknown codes must never classify as terminal
	}

	for _, state := range terminal {
		assert.True(t, state.Terminal(), "state %s should be terminal", state)
	}

	for _, state := range nonTerminal {
		assert.False(t, state.Terminal(), "state %s should not be terminal", state)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "shutoff", power.StateShutoff.String())
	assert.Equal(t, "crashed", power.StateCrashed.String())
	assert.Equal(t, "running", power.StateRunning.String())
	assert.Equal(t, "unknown", power.State(42).String())
}
