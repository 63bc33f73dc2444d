// Package statusapi serves a small read-only HTTP surface alongside the
// RFB listener: health, connected-client/geometry status, and Prometheus-
// style metrics, behind a gorilla/mux router and Basic-Auth middleware.
package statusapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"rfbterm/internal/logging"
)

// StatusSource is the minimal view into the RFB server this package needs;
// rfb.Server implements it.
type StatusSource interface {
	ConnectedClients() int
	Geometry() (width, height, depth int)
	DesktopTitle() string
}

// Server is the status/metrics HTTP endpoint.
type Server struct {
	source   StatusSource
	password string
	started  time.Time
}

// NewServer builds a status server reading live state from source.
func NewServer(source StatusSource, password string) *Server {
	return &Server{source: source, password: password, started: time.Now()}
}

// Start runs the HTTP server on addr until the process receives an
// interrupt or term signal.
func (s *Server) Start(addr string) error {
	handler := s.createHandler()
	srv := &http.Server{Addr: addr, Handler: handler}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logging.Warnf("statusapi: shutdown error: %v", err)
		}
	}()

	logging.Infof("statusapi: listening on %s", addr)
	return srv.ListenAndServe()
}

func (s *Server) createHandler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/").Subrouter()
	if s.password != "" {
		api.Use(s.basicAuthMiddleware)
	}
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
	return r
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		const prefix = "Basic "
		if auth == "" || !strings.HasPrefix(auth, prefix) {
			s.unauthorized(w)
			return
		}
		decoded, err := base64.StdEncoding.DecodeString(auth[len(prefix):])
		if err != nil {
			s.unauthorized(w)
			return
		}
		parts := strings.SplitN(string(decoded), ":", 2)
		if len(parts) != 2 || parts[0] != "admin" || parts[1] != s.password {
			s.unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="rfbterm"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		logging.Warnf("statusapi: failed to encode health response: %v", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	width, height, depth := s.source.Geometry()
	status := struct {
		Title      string `json:"title"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		Depth      int    `json:"depth"`
		Clients    int    `json:"clients"`
		UptimeSecs int64  `json:"uptime_seconds"`
	}{
		Title:      s.source.DesktopTitle(),
		Width:      width,
		Height:     height,
		Depth:      depth,
		Clients:    s.source.ConnectedClients(),
		UptimeSecs: int64(time.Since(s.started).Seconds()),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		logging.Warnf("statusapi: failed to encode status response: %v", err)
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	width, height, _ := s.source.Geometry()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP rfbterm_clients_connected Number of connected RFB clients.\n")
	fmt.Fprintf(w, "# TYPE rfbterm_clients_connected gauge\n")
	fmt.Fprintf(w, "rfbterm_clients_connected %d\n", s.source.ConnectedClients())
	fmt.Fprintf(w, "# HELP rfbterm_uptime_seconds Seconds since the server started.\n")
	fmt.Fprintf(w, "# TYPE rfbterm_uptime_seconds counter\n")
	fmt.Fprintf(w, "rfbterm_uptime_seconds %d\n", int64(time.Since(s.started).Seconds()))
	fmt.Fprintf(w, "# HELP rfbterm_geometry_cells Terminal geometry in character cells.\n")
	fmt.Fprintf(w, "# TYPE rfbterm_geometry_cells gauge\n")
	fmt.Fprintf(w, "rfbterm_geometry_cells{dimension=\"width\"} %d\n", width)
	fmt.Fprintf(w, "rfbterm_geometry_cells{dimension=\"height\"} %d\n", height)
}
