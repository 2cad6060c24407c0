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

// Package httputil runs the HTTP servers of a virtpower binary and ties
// their lifetime to the graceful shutdown.
package httputil

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/alexandremahdhaoui/virtpower/internal/util/gracefulshutdown"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ServerNameContextKey carries the logical server name ("api", "metrics",
// "probes") on every request context.
const ServerNameContextKey contextKey = "server_name"

const shutdownDeadline = 1 * time.Minute

// Serve runs the given servers and handles their graceful shutdown. It
// blocks until the shutdown context is done.
func Serve(servers map[string]*http.Server, gs *gracefulshutdown.GracefulShutdown) {
	// 1. Run the servers.
	for name, server := range servers {
		ctx := context.WithValue(gs.Context(), ServerNameContextKey, name)

		// sets the base context to be the GracefulShutdown's context.
		server.BaseContext = func(_ net.Listener) context.Context {
			return ctx
		}

		gs.WaitGroup().Add(1)

		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.ErrorContext(ctx, "server failed", "error", err)

				// Done() must run before requesting the shutdown, otherwise
				// the wait group never decrements.
				gs.WaitGroup().Done()
				gs.Shutdown(1)

				return
			}

			gs.WaitGroup().Done()

			// The server stopped without errors; initiate a graceful
			// shutdown if none was previously initiated.
			gs.Shutdown(0)
		}()
	}

	// 2. Signal that all Add() calls have been made.
	gs.Ready()

	// 3. Await context is done.
	<-gs.Context().Done()

	// 4. Gracefully shutdown each server.
	for name, server := range servers {
		go func() {
			ctx := context.WithValue(context.Background(), ServerNameContextKey, name)

			ctx, cancel := context.WithDeadline(ctx, time.Now().Add(shutdownDeadline))
			defer cancel()

			if err := server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.ErrorContext(ctx, "error while shutting down server", "error", err)

				return
			}

			slog.InfoContext(ctx, "gracefully shut down server", "server", name)
		}()
	}
}
