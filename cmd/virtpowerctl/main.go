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

// virtpowerctl powers off a libvirt guest from the command line, attempting
// a bounded clean shutdown before the hard destroy.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-logr/logr"

	driverlibvirt "github.com/alexandremahdhaoui/virtpower/internal/driver/libvirt"
	"github.com/alexandremahdhaoui/virtpower/internal/util/logging"
	"github.com/alexandremahdhaoui/virtpower/pkg/power"
)

type result struct {
	Name          string        `json:"name"`
	CleanShutdown power.Outcome `json:"cleanShutdown"`
	Destroyed     bool          `json:"destroyed"`
}

func main() {
	uri := flag.String("uri", "qemu:///system", "libvirt connection URI")
	timeout := flag.Int("timeout", 60, "clean shutdown timeout in seconds")
	retryInterval := flag.Int("retry-interval", 10, "seconds between shutdown signal resends")
	noClean := flag.Bool("no-clean", false, "skip the clean shutdown attempt and destroy immediately")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if flag.NArg() != 1 {
		_, _ = fmt.Fprintf(os.Stderr, "usage: %s [flags] <guest-name>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	var logger logr.Logger
	if *verbose {
		logger = logging.SetupDevelopment()
	} else {
		logger = logging.Setup(logging.Options{Development: true, Level: slog.LevelWarn}) //nolint:exhaustruct
	}

	name := flag.Arg(0)

	out, err := run(context.Background(), name, *uri, *timeout, *retryInterval, !*noClean, logger)
	if err != nil {
		slog.Error("power-off failed", "guestName", name, "error", err.Error())
		os.Exit(1)
	}

	encoded, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(encoded))
}

func run(
	ctx context.Context,
	name string,
	uri string,
	timeoutSeconds int,
	retryIntervalSeconds int,
	attemptClean bool,
	logger logr.Logger,
) (result, error) {
	connector, err := driverlibvirt.NewConnector(driverlibvirt.WithURI(uri))
	if err != nil {
		return result{}, err
	}
	defer func() { _ = connector.Close() }()

	cfg := power.Config{
		DefaultCleanShutdownTimeout: time.Duration(timeoutSeconds) * time.Second,
		RetryInterval:               time.Duration(retryIntervalSeconds) * time.Second,
	}

	policy := power.ResolvePolicy(attemptClean, name, nil, cfg)

	outcome := power.Outcome{} //nolint:exhaustruct
	if attemptClean {
		outcome = power.NewMonitor(connector, power.WithLogger(logger)).Run(ctx, name, policy)
	}

	// The guest must be gone when we return, whether or not it shut down
	// cleanly.
	if err := destroy(ctx, connector, name); err != nil {
		return result{}, err
	}

	return result{Name: name, CleanShutdown: outcome, Destroyed: true}, nil
}

func destroy(ctx context.Context, connector power.Connector, name string) error {
	guest, err := connector.LookupByName(ctx, name)
	if err != nil {
		if errors.Is(err, power.ErrGuestNotFound) {
			return nil
		}

		return err
	}
	defer guest.Free()

	return guest.Destroy(ctx)
}
