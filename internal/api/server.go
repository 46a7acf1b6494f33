// Package api serves the editor API over HTTP.
//
// All endpoints live under a configurable base path (default /editor-api).
// Failures are reported as {"detail": "<fixed message>"}; the underlying
// error is logged and never returned to the client. Upserting a room is the
// exception: its failures are a bare JSON string with status 200, which
// existing editor clients depend on.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dyluth/warren/internal/editor"
	"github.com/sirupsen/logrus"
)

// DefaultBasePath is the path prefix of every editor endpoint.
const DefaultBasePath = "/editor-api"

const maxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	BasePath     string
	DefaultDepth int // depth used when room_graph is called without one
	Logger       *logrus.Entry
}

// Server provides the editor HTTP API.
type Server struct {
	svc          *editor.Service
	basePath     string
	defaultDepth int
	log          *logrus.Entry
	server       *http.Server
}

// NewServer creates a new API server over svc.
func NewServer(svc *editor.Service, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	basePath := opts.BasePath
	if basePath == "" {
		basePath = DefaultBasePath
	}

	return &Server{
		svc:          svc,
		basePath:     basePath,
		defaultDepth: opts.DefaultDepth,
		log:          log.WithField("component", "api"),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthCheckHandler)

	b := s.basePath
	mux.HandleFunc("GET "+b+"/can-connect", s.canConnect)
	mux.HandleFunc("GET "+b+"/rooms/names", s.getRoomNames)
	mux.HandleFunc("GET "+b+"/room/{room_id}", s.getRoom)
	mux.HandleFunc("POST "+b+"/room/{room_id}", s.upsertRoom)
	mux.HandleFunc("DELETE "+b+"/room/{room_id}", s.deleteRoom)
	mux.HandleFunc("POST "+b+"/room", s.createRoom)
	mux.HandleFunc("GET "+b+"/room_graph", s.getRoomGraph)
	mux.HandleFunc("POST "+b+"/exit", s.createExit)
	mux.HandleFunc("POST "+b+"/exit/{exit_id}", s.updateExit)
	mux.HandleFunc("DELETE "+b+"/exit/{exit_id}", s.deleteExit)

	return s.logRequests(mux)
}

// Start binds addr and serves in the background.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("API server stopped")
		}
	}()

	s.log.WithFields(logrus.Fields{
		"event_type": "api_started",
		"addr":       listener.Addr().String(),
		"base_path":  s.basePath,
	}).Info("Editor API listening")
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.log.WithFields(logrus.Fields{
			"event_type":  "request",
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  r.Header.Get("X-Request-ID"),
		}).Debug("Handled request")
	})
}
