package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/combee/resistor-time-config/internal/bridge"
	"github.com/combee/resistor-time-config/internal/config"
	"github.com/combee/resistor-time-config/internal/logging"
	"github.com/combee/resistor-time-config/internal/settings"
	"github.com/combee/resistor-time-config/internal/watch"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
)

// Watch is the part of the watch manager the server reports on.
type Watch interface {
	Transports() []watch.TransportInfo
	Connected() bool
	Discover() ([]watch.DiscoveredPort, error)
}

// Server represents the HTTP server
type Server struct {
	config  *config.Config
	bridge  *bridge.Bridge
	watch   Watch
	host    *Host
	logs    *logging.Buffer
	log     hclog.Logger
	router  *mux.Router
	started time.Time
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, b *bridge.Bridge, w Watch, host *Host, logs *logging.Buffer, log hclog.Logger) *Server {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	s := &Server{
		config:  cfg,
		bridge:  b,
		watch:   w,
		host:    host,
		logs:    logs,
		log:     log,
		router:  mux.NewRouter(),
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.handleHealth).Methods("GET", "HEAD")

	// Watchapp events
	events := r.PathPrefix("/api/events").Subrouter()
	events.HandleFunc("/ready", s.handleReady).Methods("POST")
	events.HandleFunc("/show-configuration", s.handleShowConfiguration).Methods("POST")
	events.HandleFunc("/webview-closed", s.handleWebviewClosed).Methods("POST")

	// Status
	r.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/api/transports", s.handleTransports).Methods("GET")
	r.HandleFunc("/api/ports", s.handlePorts).Methods("GET")
	r.HandleFunc("/api/messages", s.handleMessages).Methods("GET")
	r.HandleFunc("/api/logs", s.handleLogs).Methods("GET")
	r.HandleFunc("/api/logs", s.handleClearLogs).Methods("DELETE")

	// Settings page
	r.HandleFunc("/config", s.handleConfigForm).Methods("GET", "HEAD")
	r.HandleFunc("/close", s.handleClose).Methods("GET")

	// Web UI
	r.HandleFunc("/", s.handleUI).Methods("GET", "HEAD")
}

// Handler returns the server's router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("http server listening", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if strings.HasPrefix(r.URL.Path, "/api/logs") || r.URL.Path == "/health" {
			return
		}
		s.log.Trace("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.bridge.Ready(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleShowConfiguration(w http.ResponseWriter, r *http.Request) {
	u, err := s.bridge.ShowConfiguration(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "url": u})
}

// WebviewClosedRequest is the body of a webview-closed event
type WebviewClosedRequest struct {
	Response string `json:"response"`
}

func (s *Server) handleWebviewClosed(w http.ResponseWriter, r *http.Request) {
	var req WebviewClosedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	sent, err := s.closeWebview(r.Context(), req.Response)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if sent == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "sent": false})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"sent":    true,
		"id":      sent.ID,
		"message": sent.Message.Map(),
	})
}

// closeWebview hands the response to the bridge. Delivery outlives the
// request, so the request context is detached.
func (s *Server) closeWebview(ctx context.Context, response string) (*bridge.Sent, error) {
	return s.bridge.WebviewClosed(context.WithoutCancel(ctx), response)
}

// StatusResponse is returned by /api/status
type StatusResponse struct {
	Status         string          `json:"status"`
	Variant        string          `json:"variant"`
	WatchConnected bool            `json:"watch_connected"`
	Transports     int             `json:"transports_count"`
	LastURL        string          `json:"last_url,omitempty"`
	Settings       settings.Record `json:"settings"`
	StartedAt      time.Time       `json:"started_at"`
	ConfigPath     string          `json:"config_path,omitempty"`
}

// handleStatus returns server status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:     "running",
		Variant:    string(s.bridge.Options().Variant),
		Settings:   s.bridge.Settings(),
		StartedAt:  s.started,
		ConfigPath: s.config.ConfigPath,
	}
	if s.watch != nil {
		resp.WatchConnected = s.watch.Connected()
		resp.Transports = len(s.watch.Transports())
	}
	if s.host != nil {
		resp.LastURL = s.host.LastURL()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransports(w http.ResponseWriter, r *http.Request) {
	transports := []watch.TransportInfo{}
	if s.watch != nil {
		transports = s.watch.Transports()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transports": transports})
}

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ports": []watch.DiscoveredPort{}})
		return
	}
	ports, err := s.watch.Discover()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ports": ports})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": s.bridge.History().Entries()})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	var levels []string
	if lv := r.URL.Query().Get("level"); lv != "" {
		levels = strings.Split(lv, ",")
	}
	entries := []logging.Entry{}
	if s.logs != nil {
		entries = s.logs.Entries(levels)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": entries})
}

func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs != nil {
		s.logs.Clear()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// handleUI serves the web UI
func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(webUI))
}
