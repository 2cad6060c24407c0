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

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "qemu:///system", config.LibvirtURI)
	assert.Equal(t, 60, config.DefaultCleanShutdownTimeoutSeconds)
	assert.Equal(t, 10, config.RetryIntervalSeconds)
	assert.Equal(t, 8080, config.APIServer.Port)
	assert.Equal(t, 8081, config.ProbesServer.Port)
	assert.Equal(t, 8082, config.MetricsServer.Port)
	assert.Equal(t, "/metrics", config.MetricsServer.Path)
	assert.Equal(t, 3, config.LogSink.Attempts)
	assert.NoError(t, config.Validate())
}

func TestLoadConfigFromFile(t *testing.T) {
	configJSON := `{
		"libvirtURI": "qemu+ssh://host0/system",
		"defaultCleanShutdownTimeoutSeconds": 120,
		"retryIntervalSeconds": 5,
		"apiServer": {"port": 9090},
		"logSink": {"address": "collector:5170", "attempts": 5}
	}`

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(configJSON), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "qemu+ssh://host0/system", config.LibvirtURI)
	assert.Equal(t, 120, config.DefaultCleanShutdownTimeoutSeconds)
	assert.Equal(t, 5, config.RetryIntervalSeconds)
	assert.Equal(t, 9090, config.APIServer.Port)
	assert.Equal(t, "collector:5170", config.LogSink.Address)
	assert.Equal(t, 5, config.LogSink.Attempts)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, 8081, config.ProbesServer.Port)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("VIRTPOWERD_LIBVIRT_URI", "test:///default")
	t.Setenv("VIRTPOWERD_API_PORT", "7070")
	t.Setenv("VIRTPOWERD_SHUTDOWN_TIMEOUT", "30")
	t.Setenv("VIRTPOWERD_LOG_SINK_ADDRESS", "collector:5170")
	t.Setenv("VIRTPOWERD_DEVELOPMENT_MODE", "true")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "test:///default", config.LibvirtURI)
	assert.Equal(t, 7070, config.APIServer.Port)
	assert.Equal(t, 30, config.DefaultCleanShutdownTimeoutSeconds)
	assert.Equal(t, "collector:5170", config.LogSink.Address)
	assert.True(t, config.DevelopmentMode)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/does/not/exist.json")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Run("rejects empty libvirt URI", func(t *testing.T) {
		config := NewDefaultConfig()
		config.LibvirtURI = ""

		assert.Error(t, config.Validate())
	})

	t.Run("rejects negative timeout", func(t *testing.T) {
		config := NewDefaultConfig()
		config.DefaultCleanShutdownTimeoutSeconds = -1

		assert.Error(t, config.Validate())
	})

	t.Run("rejects out-of-range port", func(t *testing.T) {
		config := NewDefaultConfig()
		config.APIServer.Port = 70000

		assert.Error(t, config.Validate())
	})
}

func TestPowerConfig(t *testing.T) {
	config := NewDefaultConfig()
	config.DefaultCleanShutdownTimeoutSeconds = 90
	config.RetryIntervalSeconds = 15

	powerCfg := config.PowerConfig()

	assert.Equal(t, 90*time.Second, powerCfg.DefaultCleanShutdownTimeout)
	assert.Equal(t, 15*time.Second, powerCfg.RetryInterval)
}
