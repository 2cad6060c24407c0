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
	"log/slog"
	"time"

	"github.com/go-logr/logr"
)

// Monitor drives the clean-shutdown wait loop for one guest at a time.
//
// It signals the guest to shut down, re-signals at a fixed cadence in case
// the first signal was lost or arrived before the guest OS was ready to
// process it, and polls once per second until the guest reaches a terminal
// state or the timeout budget is exhausted. The monitor never hard-destroys
// the guest; that fallback belongs to the caller, which must issue it
// whatever the outcome.
//
// A Monitor is stateless between runs and safe for concurrent use against
// different guests. Runs against the same guest must be serialized by the
// caller (see KeyedMutex).
type Monitor struct {
	connector Connector
	clock     Clock
	logger    logr.Logger
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithClock overrides the monitor's tick clock. Used by tests to count ticks
// without real elapsed time.
func WithClock(clock Clock) MonitorOption {
	return func(m *Monitor) {
		m.clock = clock
	}
}

// WithLogger overrides the monitor's logger. The default logs through the
// process-wide slog handler.
func WithLogger(logger logr.Logger) MonitorOption {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// NewMonitor creates a Monitor polling guests through the given connector.
func NewMonitor(connector Connector, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		connector: connector,
		clock:     realClock{},
		logger:    logr.FromSlogHandler(slog.Default().Handler()),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Run executes one clean-shutdown attempt against the named guest and
// reports the outcome. It never returns an error: a vanished guest is
// success, transient hypervisor failures are absorbed into the next tick,
// and an exhausted budget is a normal, reportable failure.
//
// Policy.Timeout == 0 still sends the single initial signal but reports
// failure without polling, preserving the "attempted and failed" boundary
// callers branch on.
func (m *Monitor) Run(ctx context.Context, name string, policy Policy) Outcome {
	timeout := int(policy.Timeout / time.Second)
	retryInterval := int(policy.RetryInterval / time.Second)

	guest, err := m.connector.LookupByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrGuestNotFound) {
			// A vanished guest is, by definition, already off.
			m.logger.Info("guest not found, treating as powered off", "guestName", name)
			return observeOutcome(Outcome{Succeeded: true, Elapsed: 0, SignalsSent: 0})
		}

		// Without a handle there is nothing to signal; report failure so the
		// caller falls back to a hard destroy.
		m.logger.Error(err, "failed to look up guest", "guestName", name)

		return observeOutcome(Outcome{Succeeded: false, Elapsed: 0, SignalsSent: 0})
	}

	state, err := guest.State(ctx)
	if err != nil {
		// Transient read failure; assume non-terminal and keep going.
		m.logger.V(1).Info("failed to read initial guest state", "guestName", name, "error", err.Error())
	} else if state.Terminal() {
		guest.Free()
		m.logger.Info("guest already shut down", "guestName", name, "state", state.String())

		return observeOutcome(Outcome{Succeeded: true, Elapsed: 0, SignalsSent: 0})
	}

	m.logger.V(1).Info("shutting down guest", "guestName", name, "state", state.String())

	// Always make at least one attempt once invoked; a failed signal means
	// the guest already transitioned and the next poll will confirm it.
	if err := guest.Shutdown(ctx); err != nil {
		m.logger.V(1).Info("initial shutdown signal failed", "guestName", name, "error", err.Error())
	}
	guest.Free()

	signalsSent := 1
	shutdownSignalsTotal.Inc()

	if timeout <= 0 {
		m.logger.Info("guest failed to shutdown in 0 seconds", "guestName", name)
		return observeOutcome(Outcome{Succeeded: false, Elapsed: 0, SignalsSent: signalsSent})
	}

	retryCountdown := retryInterval

	for sec := 0; ; sec++ {
		state, vanished, err := m.observe(ctx, name, &signalsSent, &retryCountdown, retryInterval, sec, sec < timeout)
		if vanished {
			m.logger.Info("guest vanished while awaiting shutdown",
				"guestName", name, "elapsedSeconds", sec)

			return observeOutcome(Outcome{Succeeded: true, Elapsed: sec, SignalsSent: signalsSent})
		}

		if err == nil && state.Terminal() {
			m.logger.Info("guest shutdown succeeded",
				"guestName", name, "elapsedSeconds", sec, "signalsSent", signalsSent)

			return observeOutcome(Outcome{Succeeded: true, Elapsed: sec, SignalsSent: signalsSent})
		}

		if sec == timeout {
			break
		}

		m.clock.Sleep(time.Second)
	}

	m.logger.Info("guest failed to shutdown within timeout",
		"guestName", name, "timeoutSeconds", timeout, "signalsSent", signalsSent)

	return observeOutcome(Outcome{Succeeded: false, Elapsed: timeout, SignalsSent: signalsSent})
}

// observe performs one polling tick: re-resolve the guest, read its state
// and, when the retry countdown has run out and the budget still allows it,
// re-issue the shutdown signal. The guest may have changed state or vanished
// since the previous tick; vanishing is reported to the caller, every other
// failure is absorbed.
func (m *Monitor) observe(
	ctx context.Context,
	name string,
	signalsSent *int,
	retryCountdown *int,
	retryInterval int,
	sec int,
	mayResignal bool,
) (State, bool, error) {
	guest, err := m.connector.LookupByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrGuestNotFound) {
			return StateNoState, true, nil
		}

		// Transient lookup failure: nothing to observe or signal this tick.
		// The countdown is left untouched so the resend fires as soon as a
		// handle is available again.
		m.logger.V(1).Info("transient guest lookup failure", "guestName", name, "error", err.Error())

		return StateNoState, false, err
	}
	defer guest.Free()

	state, stateErr := guest.State(ctx)
	if stateErr != nil {
		m.logger.V(1).Info("transient guest state read failure", "guestName", name, "error", stateErr.Error())
	} else if state.Terminal() {
		return state, false, nil
	}

	if !mayResignal {
		return state, false, stateErr
	}

	if *retryCountdown <= 0 {
		m.logger.V(1).Info("resending shutdown signal",
			"guestName", name, "state", state.String(), "elapsedSeconds", sec)

		// A failed resend means the guest stopped or vanished concurrently;
		// the next tick's state check will confirm the outcome.
		if err := guest.Shutdown(ctx); err != nil {
			m.logger.V(1).Info("shutdown resend failed", "guestName", name, "error", err.Error())
		}

		*signalsSent++
		shutdownSignalsTotal.Inc()
		*retryCountdown = retryInterval
	}
	*retryCountdown--

	return state, false, stateErr
}
