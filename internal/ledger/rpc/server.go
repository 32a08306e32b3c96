package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"pixelmint/internal/ledger"
	"pixelmint/internal/ledger/registry"
	"pixelmint/internal/logging"
	"pixelmint/internal/services"
)

const maxSubmissionBytes = 1 << 20

// Handler serves a registry over HTTP:
//
//	POST /registrations       submit a signed registration
//	GET  /registrations/{id}  fetch an accepted registration
//	GET  /health              database health
func Handler(reg *registry.Registry, logger *slog.Logger) http.Handler {
	h := &handler{registry: reg, logger: logging.NewComponentLogger(logger, "ledger-server")}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /registrations", h.handleSubmit)
	mux.HandleFunc("GET /registrations/{id}", h.handleLookup)
	mux.HandleFunc("GET /health", h.handleHealth)
	return mux
}

// Serve listens on bind until ctx is cancelled.
func Serve(ctx context.Context, bind string, handler http.Handler, logger *slog.Logger) error {
	logger = logging.NewComponentLogger(logger, "ledger-server")
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("ledger listen: %w", err)
	}
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("ledger server listening", logging.String("address", listener.Addr().String()))
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ledger serve: %w", err)
	}
	return nil
}

type handler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func (h *handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub ledger.Submission
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxSubmissionBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&sub); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed submission")
		return
	}
	receipt, err := h.registry.Submit(r.Context(), sub)
	if err != nil {
		h.logger.Warn("registration refused", logging.Error(err))
		h.writeError(w, statusFor(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, receipt)
}

func (h *handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registry.Lookup(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, statusFor(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, reg)
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.HealthCheck(r.Context()); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
