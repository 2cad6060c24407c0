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
	"time"

	"github.com/alexandremahdhaoui/virtpower/pkg/metadata"
)

const (
	// ShutdownTimeoutKey is the per-guest metadata key overriding the clean
	// shutdown timeout, in seconds.
	ShutdownTimeoutKey = "power.shutdown_timeout"

	defaultCleanShutdownTimeout = 60 * time.Second
	defaultRetryInterval        = 10 * time.Second
)

// Config holds the process-wide power-off timing defaults. It is an explicit
// value passed into the resolver and monitor, never a package global.
type Config struct {
	// DefaultCleanShutdownTimeout is used when a guest carries no
	// per-guest timeout override.
	DefaultCleanShutdownTimeout time.Duration

	// RetryInterval is the fixed cadence at which an unacknowledged shutdown
	// signal is re-issued. Not overridable per guest.
	RetryInterval time.Duration
}

// NewDefaultConfig returns a Config with the stock defaults.
func NewDefaultConfig() Config {
	return Config{
		DefaultCleanShutdownTimeout: defaultCleanShutdownTimeout,
		RetryInterval:               defaultRetryInterval,
	}
}

// ResolvePolicy derives the timing parameters for one power-off operation.
//
// When attemptClean is false it returns the zero Policy: the caller must skip
// the monitor and hard-destroy directly. Otherwise the timeout comes from the
// guest's metadata override when present and coercible, falling back to the
// configured default; the retry interval is always the configured constant.
func ResolvePolicy(
	attemptClean bool,
	guestName string,
	props map[string]any,
	cfg Config,
) Policy {
	if !attemptClean {
		return Policy{Timeout: 0, RetryInterval: 0}
	}

	timeoutSeconds := metadata.Resolve(
		guestName,
		props,
		ShutdownTimeoutKey,
		int(cfg.DefaultCleanShutdownTimeout/time.Second),
	)

	return Policy{
		Timeout:       time.Duration(timeoutSeconds) * time.Second,
		RetryInterval: cfg.RetryInterval,
	}
}
