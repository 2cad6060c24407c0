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
	"fmt"
	"log/slog"
	"net/http"
	"os"

	driverlibvirt "github.com/alexandremahdhaoui/virtpower/internal/driver/libvirt"
	"github.com/alexandremahdhaoui/virtpower/internal/util/gracefulshutdown"
	"github.com/alexandremahdhaoui/virtpower/internal/util/httputil"
	"github.com/alexandremahdhaoui/virtpower/internal/util/logging"
	"github.com/alexandremahdhaoui/virtpower/internal/util/logsink"
)

const (
	Name = "virtpowerd"
)

var (
	Version        = "dev" //nolint:gochecknoglobals // set by ldflags
	CommitSHA      = "n/a" //nolint:gochecknoglobals // set by ldflags
	BuildTimestamp = "n/a" //nolint:gochecknoglobals // set by ldflags
)

// ------------------------------------------------- Main ----------------------------------------------------------- //

func main() {
	_, _ = fmt.Fprintf(
		os.Stdout,
		"Starting %s version %s (%s) %s\n",
		Name,
		Version,
		CommitSHA,
		BuildTimestamp,
	)

	// --------------------------------------------- Graceful Shutdown ---------------------------------------------- //

	gs := gracefulshutdown.New(Name)
	ctx := gs.Context()

	// --------------------------------------------- Config --------------------------------------------------------- //

	config, err := LoadConfig(os.Getenv(ConfigPathEnvKey))
	if err != nil {
		slog.ErrorContext(ctx, "loading configuration", "error", err.Error())
		gs.Shutdown(1)
	}

	// --------------------------------------------- Logging -------------------------------------------------------- //

	logOpts := logging.DefaultOptions()
	logOpts.Development = config.DevelopmentMode

	// Losing the sink is non-fatal: the daemon keeps running with local
	// logging only.
	if config.LogSink.Address != "" {
		if sink, err := logsink.Dial(config.LogSink); err == nil {
			logOpts.Sink = sink
		}
	}

	logger := logging.Setup(logOpts)

	// --------------------------------------------- Hypervisor ----------------------------------------------------- //

	connector, err := driverlibvirt.NewConnector(driverlibvirt.WithURI(config.LibvirtURI))
	if err != nil {
		slog.ErrorContext(ctx, "connecting to libvirt", "error", err.Error())
		gs.Shutdown(1)
	}

	gs.WaitGroup().Add(1)

	go func() {
		<-ctx.Done()

		if err := connector.Close(); err != nil {
			slog.Error("closing libvirt connection", "error", err.Error())
		}

		gs.WaitGroup().Done()
	}()

	// --------------------------------------------- Servers -------------------------------------------------------- //

	handler := newPowerOffHandler(connector, config.PowerConfig(), logger.WithName("power"))

	httputil.Serve(map[string]*http.Server{
		"api":     setupAPIServer(config, handler),
		"metrics": setupMetricsServer(config),
		"probes":  setupProbesServer(config, connector),
	}, gs)
}
