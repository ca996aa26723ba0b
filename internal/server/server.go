// Package server provides the HTTP server for gesturefield.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/gesturefield/internal/control"
	"github.com/ayusman/gesturefield/internal/log"
	"github.com/ayusman/gesturefield/internal/server/api"
)

// Controls is the parameter bridge surface exposed over HTTP.
type Controls interface {
	api.Controller
	api.GestureController
}

// Config holds the server configuration.
type Config struct {
	StaticDir     string
	Controls      Controls
	Session       api.StatusProvider
	Field         FieldSource
	FieldInterval time.Duration
}

// Server represents the HTTP server for the gesturefield application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	field  *FieldHandler
}

var _ Controls = (*control.Bridge)(nil)

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Controls != nil {
		s.mux.Handle("/api/params", api.NewParamsHandler(s.config.Controls))
		s.mux.Handle("/api/templates", api.NewTemplatesHandler(s.config.Controls))
	}

	if s.config.Controls != nil && s.config.Session != nil {
		s.mux.Handle("/api/session", api.NewSessionHandler(s.config.Controls, s.config.Session))
	}

	if s.config.Field != nil {
		s.field = NewFieldHandler(s.config.Field, s.config.FieldInterval)
		s.mux.Handle("/api/field", s.field)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.field != nil {
		response["field_clients"] = s.field.Clients()
		response["frames"] = s.config.Field.Frames()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Close stops background broadcasting.
func (s *Server) Close() {
	if s.field != nil {
		s.field.Close()
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
