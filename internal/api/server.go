// Package api serves the live preview of a running animation: an MJPEG stream
// of composited frames, a progress websocket and a few JSON endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/bryanchriswhite/speeddraw/internal/config"
	"github.com/bryanchriswhite/speeddraw/internal/logger"
	"github.com/bryanchriswhite/speeddraw/internal/output"
	"github.com/bryanchriswhite/speeddraw/internal/progress"
	"github.com/bryanchriswhite/speeddraw/internal/style"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Server represents the preview HTTP server
type Server struct {
	router   *mux.Router
	preview  *output.MJPEGOutput
	hub      *progress.Hub
	cfg      *config.Config
	upgrader websocket.Upgrader

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// NewServer creates a new preview server. cfg is the effective configuration
// reported by /api/config and may be nil.
func NewServer(preview *output.MJPEGOutput, hub *progress.Hub, cfg *config.Config) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		preview: preview,
		hub:     hub,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Progress
	api.HandleFunc("/progress", s.handleProgressStream)
	api.HandleFunc("/progress/last", s.handleLastProgress).Methods("GET")

	api.HandleFunc("/styles", s.handleStyles).Methods("GET")
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Frames
	s.router.HandleFunc("/stream", s.preview.GetHTTPHandler())
	s.router.HandleFunc("/", s.preview.GetViewerHandler())
}

// Handler returns the server's root handler
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start listens on port and serves in the background. Port 0 picks a free
// port; Addr reports the address in use.
func (s *Server) Start(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return fmt.Errorf("server already running")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", port, err)
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.WithComponent("api").Info().
		Str("addr", ln.Addr().String()).
		Msgf("Preview available at http://localhost:%d/", ln.Addr().(*net.TCPAddr).Port)

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithComponent("api").Error().Err(err).Msg("Preview server stopped")
		}
	}(s.srv)
	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops the server. Open streams are closed when ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return srv.Close()
	}
	return err
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("api").Debug().Err(err).Msg("Failed to write response")
	}
}

// HTTP Handlers

func (s *Server) handleProgressStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	// Subscribe before sending the last event so nothing is missed in between
	updates := s.hub.Subscribe()
	defer s.hub.Unsubscribe(updates)

	if last, ok := s.hub.Last(); ok {
		if err := conn.WriteJSON(last); err != nil {
			logger.WithComponent("api").Debug().Err(err).Msg("WebSocket write error")
			return
		}
	}

	// Detect the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				logger.WithComponent("api").Debug().Err(err).Msg("WebSocket write error")
				return
			}
		case <-closed:
			return
		}
	}
}

func (s *Server) handleLastProgress(w http.ResponseWriter, r *http.Request) {
	last, ok := s.hub.Last()
	if !ok {
		http.Error(w, "No progress yet", http.StatusNotFound)
		return
	}
	writeJSON(w, last)
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, style.Catalog())
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.cfg == nil {
		http.Error(w, "No configuration loaded", http.StatusNotFound)
		return
	}
	writeJSON(w, s.cfg)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	frames, lastIndex, clients := s.preview.Stats()
	writeJSON(w, map[string]any{
		"status":     "healthy",
		"version":    Version,
		"streaming":  s.preview.IsRunning(),
		"frames":     frames,
		"last_frame": lastIndex,
		"clients":    clients,
	})
}
