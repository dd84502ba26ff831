// Package server provides the HTTP server for the safe-distance monitor.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/safedistance/internal/app"
	"github.com/ayusman/safedistance/internal/server/api"
	"github.com/ayusman/safedistance/internal/settings"
	"github.com/ayusman/safedistance/internal/store"
)

// shutdownTimeout bounds how long Run waits for open requests on exit.
const shutdownTimeout = 5 * time.Second

// Session is the detection session served over HTTP.
type Session interface {
	api.Session
	Latest() *app.Frame
	AddSink(s app.Sink)
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Settings  *settings.Live
	Session   Session
}

// Server represents the HTTP server for the safe-distance monitor.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	hub    *OverlayHub
}

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

	if s.config.Settings != nil {
		s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.Settings, s.config.Store))
	}

	if s.config.Store != nil {
		alerts := api.NewAlertsHandler(s.config.Store)
		s.mux.Handle("/api/alerts", alerts)
		s.mux.Handle("/api/alerts/", alerts)
	}

	if s.config.Session != nil {
		s.mux.Handle("/api/session", api.NewSessionHandler(s.config.Session))
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Session))
		s.mux.HandleFunc("/api/snapshot", s.handleSnapshot)

		s.hub = NewOverlayHub()
		s.config.Session.AddSink(s.hub)
		s.mux.Handle("/api/overlay", s.hub)
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

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}
	if s.config.Session != nil {
		response["running"] = s.config.Session.IsRunning()
		if f := s.config.Session.Latest(); f != nil {
			response["state"] = f.Result.State
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleSnapshot serves the latest annotated frame as a single JPEG.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	f := s.config.Session.Latest()
	if f == nil || f.JPEG == nil {
		http.Error(w, "No frame available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(f.JPEG)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if s.hub != nil {
		s.hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
