// Copyright 2024 Alexandre Mahdhaoui
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alexandremahdhaoui/virtpower/internal/util/logsink"
	"github.com/alexandremahdhaoui/virtpower/pkg/power"
)

const (
	// ConfigPathEnvKey is the environment variable key for the config file path
	ConfigPathEnvKey = "VIRTPOWERD_CONFIG_PATH"
)

// Config holds the configuration for virtpowerd
type Config struct {
	// LibvirtURI is the libvirt connection URI (e.g. "qemu:///system")
	LibvirtURI string `json:"libvirtURI"`

	// DefaultCleanShutdownTimeoutSeconds bounds a clean shutdown attempt
	// when the guest carries no per-guest override.
	DefaultCleanShutdownTimeoutSeconds int `json:"defaultCleanShutdownTimeoutSeconds"`

	// RetryIntervalSeconds is the cadence at which an unacknowledged
	// shutdown signal is re-issued.
	RetryIntervalSeconds int `json:"retryIntervalSeconds"`

	// APIServer is the configuration for the power-off API server.
	APIServer struct {
		// Port is the port for the API server.
		Port int `json:"port"`
	} `json:"apiServer"`

	// ProbesServer is the configuration for the probes server.
	ProbesServer struct {
		// LivenessPath is the path for the liveness probe.
		LivenessPath string `json:"livenessPath"`
		// ReadinessPath is the path for the readiness probe.
		ReadinessPath string `json:"readinessPath"`
		// Port is the port for the probes server.
		Port int `json:"port"`
	} `json:"probesServer"`

	// MetricsServer is the configuration for the metrics server.
	MetricsServer struct {
		// Path is the path for the metrics server.
		Path string `json:"path"`
		// Port is the port for the metrics server.
		Port int `json:"port"`
	} `json:"metricsServer"`

	// LogSink configures the optional remote log collector. An empty
	// address disables it.
	LogSink logsink.Config `json:"logSink"`

	// DevelopmentMode enables development logging
	DevelopmentMode bool `json:"developmentMode"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	config := &Config{
		LibvirtURI:                         "qemu:///system",
		DefaultCleanShutdownTimeoutSeconds: 60,
		RetryIntervalSeconds:               10,
		DevelopmentMode:                    false,
	}

	config.APIServer.Port = 8080
	config.ProbesServer.Port = 8081
	config.ProbesServer.LivenessPath = "/livez"
	config.ProbesServer.ReadinessPath = "/readyz"
	config.MetricsServer.Port = 8082
	config.MetricsServer.Path = "/metrics"
	config.LogSink.Attempts = logsink.DefaultAttempts

	return config
}

// LoadConfig loads configuration from a JSON file path or returns defaults
// with env var overrides. If configPath is empty, it uses environment
// variables only.
func LoadConfig(configPath string) (*Config, error) {
	config := NewDefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}

		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	config.applyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config
func (c *Config) applyEnvironmentOverrides() {
	if val := os.Getenv("VIRTPOWERD_LIBVIRT_URI"); val != "" {
		c.LibvirtURI = val
	}
	if val := os.Getenv("VIRTPOWERD_API_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.APIServer.Port = port
		}
	}
	if val := os.Getenv("VIRTPOWERD_PROBES_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.ProbesServer.Port = port
		}
	}
	if val := os.Getenv("VIRTPOWERD_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.MetricsServer.Port = port
		}
	}
	if val := os.Getenv("VIRTPOWERD_SHUTDOWN_TIMEOUT"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			c.DefaultCleanShutdownTimeoutSeconds = seconds
		}
	}
	if val := os.Getenv("VIRTPOWERD_LOG_SINK_ADDRESS"); val != "" {
		c.LogSink.Address = val
	}
	if val := os.Getenv("VIRTPOWERD_LOG_SINK_ATTEMPTS"); val != "" {
		if attempts, err := strconv.Atoi(val); err == nil {
			c.LogSink.Attempts = attempts
		}
	}
	if val := os.Getenv("VIRTPOWERD_DEVELOPMENT_MODE"); val == "true" {
		c.DevelopmentMode = true
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.LibvirtURI == "" {
		return errors.New("libvirtURI must not be empty")
	}
	if c.DefaultCleanShutdownTimeoutSeconds < 0 {
		return errors.New("defaultCleanShutdownTimeoutSeconds must not be negative")
	}
	if c.RetryIntervalSeconds < 0 {
		return errors.New("retryIntervalSeconds must not be negative")
	}

	for name, port := range map[string]int{
		"apiServer":     c.APIServer.Port,
		"probesServer":  c.ProbesServer.Port,
		"metricsServer": c.MetricsServer.Port,
	} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%s.port must be in range 1-65535, got %d", name, port)
		}
	}

	return nil
}

// PowerConfig converts the daemon configuration into the power package's
// explicit timing configuration.
func (c *Config) PowerConfig() power.Config {
	return power.Config{
		DefaultCleanShutdownTimeout: time.Duration(c.DefaultCleanShutdownTimeoutSeconds) * time.Second,
		RetryInterval:               time.Duration(c.RetryIntervalSeconds) * time.Second,
	}
}
