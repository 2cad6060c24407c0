package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// scrapeTimeout bounds how long one gather may hold up a scrape; the
// power-off collectors are cheap, so anything slower means the process is in
// trouble and the scrape should say so.
const scrapeTimeout = 10 * time.Second

// setupMetricsServer exposes the power-off counters and histograms on their
// own listener, away from the API.
func setupMetricsServer(config *Config) *http.Server {
	path := config.MetricsServer.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(
		prometheus.DefaultGatherer,
		promhttp.HandlerOpts{ //nolint:exhaustruct
			ErrorHandling: promhttp.ContinueOnError,
			Timeout:       scrapeTimeout,
		},
	))

	return &http.Server{ //nolint:exhaustruct
		Addr:    fmt.Sprintf(":%d", config.MetricsServer.Port),
		Handler: mux,
	}
}
