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
	"log/slog"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/alexandremahdhaoui/virtpower/pkg/power"
)

// powerOffRequest is the body of POST /v1/poweroff.
type powerOffRequest struct {
	// Name is the guest's domain name.
	Name string `json:"name"`

	// CleanShutdown asks for a bounded clean shutdown attempt before the
	// hard destroy. When false the guest is destroyed immediately.
	CleanShutdown bool `json:"cleanShutdown"`

	// Metadata carries the caller's per-guest properties, e.g. the
	// power.shutdown_timeout override.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// powerOffResponse reports what happened. The guest is gone either way when
// Destroyed is true; CleanShutdown tells the caller whether it went down
// gracefully.
type powerOffResponse struct {
	Name          string        `json:"name"`
	OperationID   string        `json:"operationID"`
	CleanShutdown power.Outcome `json:"cleanShutdown"`
	Destroyed     bool          `json:"destroyed"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// powerOffHandler wires the power-off sequence: per-guest lock, policy
// resolution, shutdown monitor, unconditional hard destroy.
type powerOffHandler struct {
	connector power.Connector
	monitor   *power.Monitor
	locks     *power.KeyedMutex
	powerCfg  power.Config
}

func newPowerOffHandler(
	connector power.Connector,
	powerCfg power.Config,
	logger logr.Logger,
) *powerOffHandler {
	return &powerOffHandler{
		connector: connector,
		monitor:   power.NewMonitor(connector, power.WithLogger(logger)),
		locks:     power.NewKeyedMutex(),
		powerCfg:  powerCfg,
	}
}

// setupAPIServer creates the HTTP server exposing the power-off API.
func setupAPIServer(config *Config, handler *powerOffHandler) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/poweroff", handler.handlePowerOff)

	return &http.Server{ //nolint:exhaustruct
		Addr:    fmt.Sprintf(":%d", config.APIServer.Port),
		Handler: mux,
	}
}

func (h *powerOffHandler) handlePowerOff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := powerOffRequest{} //nolint:exhaustruct
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "name must not be empty"})
		return
	}

	opID := uuid.NewString()

	slog.InfoContext(ctx, "powering off guest",
		"operationID", opID,
		"guestName", req.Name,
		"cleanShutdown", req.CleanShutdown,
	)

	// Serialize the whole sequence per guest: two concurrent power-off
	// requests for one guest must not interleave signals.
	unlock := h.locks.Lock(req.Name)
	defer unlock()

	policy := power.ResolvePolicy(req.CleanShutdown, req.Name, req.Metadata, h.powerCfg)

	outcome := power.Outcome{} //nolint:exhaustruct
	if req.CleanShutdown {
		outcome = h.monitor.Run(ctx, req.Name, policy)
		if !outcome.Succeeded {
			slog.InfoContext(ctx, "clean shutdown failed, falling back to hard destroy",
				"operationID", opID,
				"guestName", req.Name,
				"elapsedSeconds", outcome.Elapsed,
				"signalsSent", outcome.SignalsSent,
			)
		}
	}

	// Hard destroy is issued whatever the monitor reported, so the guest is
	// guaranteed gone.
	if err := h.destroy(r, req.Name); err != nil {
		slog.ErrorContext(ctx, "failed to destroy guest",
			"operationID", opID,
			"guestName", req.Name,
			"error", err.Error(),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "failed to destroy guest"})

		return
	}

	writeJSON(w, http.StatusOK, powerOffResponse{
		Name:          req.Name,
		OperationID:   opID,
		CleanShutdown: outcome,
		Destroyed:     true,
	})
}

// destroy hard-powers-off the guest. A guest that vanished is success.
func (h *powerOffHandler) destroy(r *http.Request, name string) error {
	guest, err := h.connector.LookupByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, power.ErrGuestNotFound) {
			return nil
		}

		return err
	}
	defer guest.Free()

	return guest.Destroy(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err.Error())
	}
}
