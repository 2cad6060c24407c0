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
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alexandremahdhaoui/virtpower/pkg/power"
)

func TestResolvePolicy(t *testing.T) {
	cfg := power.Config{
		DefaultCleanShutdownTimeout: 60 * time.Second,
		RetryInterval:               10 * time.Second,
	}

	t.Run("clean shutdown not requested yields zero policy", func(t *testing.T) {
		policy := power.ResolvePolicy(false, "vm0", map[string]any{
			power.ShutdownTimeoutKey: 120,
		}, cfg)

		assert.Equal(t, power.Policy{Timeout: 0, RetryInterval: 0}, policy)
	})

	t.Run("no override falls back to the configured default", func(t *testing.T) {
		policy := power.ResolvePolicy(true, "vm0", nil, cfg)

		assert.Equal(t, 60*time.Second, policy.Timeout)
		assert.Equal(t, 10*time.Second, policy.RetryInterval)
	})

	t.Run("per-guest override wins", func(t *testing.T) {
		policy := power.ResolvePolicy(true, "vm0", map[string]any{
			power.ShutdownTimeoutKey: 120,
		}, cfg)

		assert.Equal(t, 120*time.Second, policy.Timeout)
	})

	t.Run("string override is coerced", func(t *testing.T) {
		policy := power.ResolvePolicy(true, "vm0", map[string]any{
			power.ShutdownTimeoutKey: "45",
		}, cfg)

		assert.Equal(t, 45*time.Second, policy.Timeout)
	})

	t.Run("non-coercible override falls back to the default", func(t *testing.T) {
		policy := power.ResolvePolicy(true, "vm0", map[string]any{
			power.ShutdownTimeoutKey: "not-a-number",
		}, cfg)

		assert.Equal(t, 60*time.Second, policy.Timeout)
	})

	t.Run("retry interval is never overridable per guest", func(t *testing.T) {
		policy := power.ResolvePolicy(true, "vm0", map[string]any{
			"power.retry_interval": 1,
		}, cfg)

		assert.Equal(t, 10*time.Second, policy.RetryInterval)
	})
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := power.NewDefaultConfig()

	assert.Equal(t, 60*time.Second, cfg.DefaultCleanShutdownTimeout)
	assert.Equal(t, 10*time.Second, cfg.RetryInterval)
}
