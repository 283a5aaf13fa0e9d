// Package server exposes the Agentboard HTTP and WebSocket API: board CRUD
// routes, the real-time subscription endpoints, and the autopilot
// configuration endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentboard/agentboard/internal/autopilot"
	"github.com/agentboard/agentboard/internal/logging"
	"github.com/agentboard/agentboard/internal/realtime"
	"github.com/agentboard/agentboard/internal/store"
)

// Server handles HTTP and WebSocket connections for the board API.
// Server is safe for concurrent use.
type Server struct {
	config    *Config
	store     *store.Store
	registry  *realtime.Registry
	autopilot *autopilot.ConfigCell
	upgrader  websocket.Upgrader
	server    *http.Server
	mu        sync.RWMutex
	running   bool
}

// Config holds server configuration including network binding options.
type Config struct {
	// Host is the network interface to bind to (e.g., "127.0.0.1" or "0.0.0.0").
	Host string `yaml:"host"`
	// Port is the TCP port number to listen on.
	Port int `yaml:"port"`
}

// New creates a server over the given collaborators. The server does not
// listen until Start is called.
func New(config *Config, st *store.Store, registry *realtime.Registry, cell *autopilot.ConfigCell) *Server {
	return &Server{
		config:    config,
		store:     st,
		registry:  registry,
		autopilot: cell,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Allow requests with no origin (same-origin, CLI tools, etc.)
				if origin == "" {
					return true
				}
				// Allow localhost origins for development
				if strings.HasPrefix(origin, "http://localhost") ||
					strings.HasPrefix(origin, "http://127.0.0.1") ||
					strings.HasPrefix(origin, "https://localhost") ||
					strings.HasPrefix(origin, "https://127.0.0.1") {
					return true
				}
				// Reject all other origins - external sites cannot connect
				return false
			},
		},
	}
}

// Start starts the server and blocks until the context is cancelled or an
// error occurs. Returns an error if the server is already running.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      requestLog(s.routes()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logging.WithComponent("server").Info("Agentboard API starting", slog.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the server with a 30-second timeout.
// It waits for active connections to complete before returning.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.running = false
	return s.server.Shutdown(ctx)
}

// routes wires every endpoint onto a fresh mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// WebSocket endpoints for real-time updates
	mux.HandleFunc("GET /ws", s.handleGlobalWS)
	mux.HandleFunc("GET /ws/projects/{id}", s.handleProjectWS)

	// Entities
	mux.HandleFunc("POST /entities/register/human", s.handleRegisterHuman)
	mux.HandleFunc("POST /entities/register/agent", s.handleRegisterAgent)
	mux.HandleFunc("GET /entities", s.handleListEntities)

	// Projects and stages
	mux.HandleFunc("POST /projects", s.handleCreateProject)
	mux.HandleFunc("GET /projects", s.handleListProjects)
	mux.HandleFunc("GET /projects/{id}", s.handleGetProject)
	mux.HandleFunc("PATCH /projects/{id}", s.handleUpdateProject)
	mux.HandleFunc("DELETE /projects/{id}", s.handleDeleteProject)
	mux.HandleFunc("POST /projects/{id}/stages", s.handleCreateStage)
	mux.HandleFunc("PATCH /stages/{id}", s.handleUpdateStage)
	mux.HandleFunc("DELETE /stages/{id}", s.handleDeleteStage)

	// Tasks, assignment, comments, logs
	mux.HandleFunc("POST /tasks", s.handleCreateTask)
	mux.HandleFunc("GET /tasks", s.handleListTasks)
	mux.HandleFunc("GET /tasks/{id}", s.handleGetTask)
	mux.HandleFunc("PATCH /tasks/{id}", s.handleUpdateTask)
	mux.HandleFunc("DELETE /tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("POST /tasks/{id}/assign", s.handleAssignTask)
	mux.HandleFunc("POST /tasks/{id}/self-assign", s.handleAssignTask)
	mux.HandleFunc("DELETE /tasks/{id}/unassign/{entityID}", s.handleUnassignTask)
	mux.HandleFunc("POST /comments", s.handleCreateComment)
	mux.HandleFunc("GET /tasks/{id}/comments", s.handleListComments)
	mux.HandleFunc("GET /tasks/{id}/logs", s.handleListTaskLogs)

	// Autopilot configuration
	mux.HandleFunc("GET /ui/autopilot/config", s.handleGetAutopilotConfig)
	mux.HandleFunc("POST /ui/autopilot/config", s.handleSetAutopilotConfig)

	return mux
}

// requestLog records each request at debug level. The ResponseWriter is
// passed through unwrapped so WebSocket upgrades can still hijack it.
func requestLog(next http.Handler) http.Handler {
	log := logging.WithComponent("server")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration", time.Since(start)))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleGetAutopilotConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.autopilot.Get())
}

func (s *Server) handleSetAutopilotConfig(w http.ResponseWriter, r *http.Request) {
	var cfg autopilot.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// The whole value is replaced; it takes effect on the loop's next read.
	s.autopilot.Set(cfg)
	writeJSON(w, http.StatusOK, cfg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps storage errors onto HTTP status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	logging.WithComponent("server").Error("storage error", slog.Any("error", err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

// pathID parses a numeric path segment.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}
