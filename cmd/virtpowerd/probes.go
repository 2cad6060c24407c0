package main

import (
	"fmt"
	"net/http"
)

// healthChecker reports whether the daemon can still reach its hypervisor.
// Satisfied by the libvirt connector.
type healthChecker interface {
	Alive() bool
}

// setupProbesServer exposes the liveness and readiness endpoints. Liveness
// only says the process is up; readiness additionally requires a usable
// libvirt connection, since a daemon that cannot reach the hypervisor cannot
// power off anything.
func setupProbesServer(config *Config, health healthChecker) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc(config.ProbesServer.LivenessPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc(config.ProbesServer.ReadinessPath, func(w http.ResponseWriter, _ *http.Request) {
		if !health.Alive() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("hypervisor unreachable"))

			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &http.Server{ //nolint:exhaustruct
		Addr:    fmt.Sprintf(":%d", config.ProbesServer.Port),
		Handler: mux,
	}
}
