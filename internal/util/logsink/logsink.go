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

// Package logsink dials a remote collector for structured log lines.
// Losing the sink is never fatal: when all connection attempts are
// exhausted the process keeps running with local logging only.
package logsink

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/alexandremahdhaoui/tooling/pkg/flaterrors"
	"github.com/avast/retry-go/v4"
)

const (
	// DefaultAttempts is the stock number of connection attempts.
	DefaultAttempts = 3

	// retryDelay is the fixed pause between attempts.
	retryDelay = 5 * time.Second

	dialTimeout = 10 * time.Second
)

var errSinkUnavailable = errors.New("log sink unavailable")

// Config configures the sink connection.
type Config struct {
	// Address is the TCP address of the remote collector.
	Address string `json:"address"`

	// Attempts is the maximum number of connection attempts. Zero or
	// negative means a single attempt with no retry.
	Attempts int `json:"attempts"`
}

// Dial connects to the remote collector, retrying up to cfg.Attempts times
// with a fixed delay between attempts. Intermediate failures are logged at
// info level, the final one at error level. On exhaustion it returns a nil
// writer together with the last error; callers continue without the sink.
func Dial(cfg Config) (io.WriteCloser, error) {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var conn net.Conn

	err := retry.Do(
		func() error {
			c, err := net.DialTimeout("tcp", cfg.Address, dialTimeout)
			if err != nil {
				return err
			}
			conn = c

			return nil
		},
		retry.Attempts(uint(attempts)),
		retry.Delay(retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			// OnRetry also fires for the final failed attempt, which is
			// reported at error level below instead.
			if n+1 == uint(attempts) {
				return
			}

			slog.Info(
				"failed to connect to log sink, retrying",
				"address", cfg.Address,
				"attempt", n+1,
				"maxAttempts", attempts,
				"error", err.Error(),
			)
		}),
	)
	if err != nil {
		slog.Error(
			"giving up on log sink, continuing with local logging only",
			"address", cfg.Address,
			"attempts", attempts,
			"error", err.Error(),
		)

		return nil, flaterrors.Join(err, errSinkUnavailable)
	}

	slog.Info("connected to log sink", "address", cfg.Address)

	return conn, nil
}
