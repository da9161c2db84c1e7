package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/andrea-alfonsi/nyx/internal/ctxlog"
)

// callRequest is the body of POST /call/{name}.
type callRequest struct {
	Args []string `json:"args"`
}

type callResponse struct {
	Name   string `json:"name"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handler routes the HTTP API.
func (a *App) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /functions", a.functionsHandler)
	mux.HandleFunc("POST /call/{name}", a.callHandler)
	return mux
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) functionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(a.ctx, w, http.StatusOK, a.Inventory())
}

func (a *App) callHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(a.ctx, w, http.StatusBadRequest, callResponse{Name: name, Error: "invalid request body: " + err.Error()})
		return
	}

	ctx := ctxlog.WithLogger(r.Context(), a.logger)
	out, err := a.Call(ctx, name, req.Args)
	switch {
	case errors.Is(err, ErrUnknownFunction):
		writeJSON(a.ctx, w, http.StatusNotFound, callResponse{Name: name, Error: err.Error()})
	case err != nil:
		writeJSON(a.ctx, w, http.StatusInternalServerError, callResponse{Name: name, Error: err.Error()})
	default:
		writeJSON(a.ctx, w, http.StatusOK, callResponse{Name: name, Output: out})
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to write response.", "error", err)
	}
}

// healthCheckServer binds the configured port and serves the HTTP API in the
// background.
func (a *App) healthCheckServer() error {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Configuring health check server.")

	addr := fmt.Sprintf(":%d", a.config.HealthcheckPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start health check server: %w", err)
	}

	srv := &http.Server{
		Handler:           a.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.httpServer = srv

	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// Serve returns http.ErrServerClosed on graceful shutdown.
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

func (a *App) closeHealthCheckServer() error {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Closing health check server...")

	if a.httpServer == nil {
		logger.Debug("Health check server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(a.ctx, a.shutdownTimeout)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	srv := a.httpServer
	a.httpServer = nil
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return err
	}

	logger.Debug("Health check server shut down gracefully.")
	return nil
}
