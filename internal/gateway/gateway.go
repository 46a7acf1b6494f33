// Package gateway is a thin HTTP proxy in front of the editor API. Every
// inbound request becomes exactly one outbound request; upstream status codes
// and bodies are relayed unchanged and nothing is retried.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the id that correlates a gateway request with the
// upstream call it caused.
const RequestIDHeader = "X-Request-ID"

const maxBodyBytes = 1 << 20

// Options configures a Gateway.
type Options struct {
	Upstream     string        // base URL of the editor API, e.g. http://localhost:8080/editor-api
	Timeout      time.Duration // per-call limit; 0 means none
	AllowOrigins []string      // CORS origins; "*" allows any
	Client       *http.Client  // defaults to a new client
	Logger       *logrus.Entry
}

// Gateway proxies editor requests to the primary service.
type Gateway struct {
	upstream string
	timeout  time.Duration
	client   *http.Client
	cors     corsPolicy
	log      *logrus.Entry
	server   *http.Server
}

// UpstreamError is the body returned when the primary service cannot be reached.
type UpstreamError struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Meta       string `json:"meta"`
}

// New creates a gateway for opts.Upstream.
func New(opts Options) (*Gateway, error) {
	u, err := url.Parse(opts.Upstream)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream must be an absolute URL, got %q", opts.Upstream)
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0, got %s", opts.Timeout)
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Gateway{
		upstream: strings.TrimSuffix(opts.Upstream, "/"),
		timeout:  opts.Timeout,
		client:   client,
		cors:     newCORSPolicy(opts.AllowOrigins),
		log:      log.WithField("component", "gateway"),
	}, nil
}

// Handler returns the routed handler wrapped in the CORS policy.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", g.root)
	mux.HandleFunc("GET /can-connect", g.relay(http.MethodGet, "/can-connect", false))
	mux.HandleFunc("GET /room_graph", g.roomGraph)
	mux.HandleFunc("GET /rooms/names", g.relay(http.MethodGet, "/rooms/names", false))
	mux.HandleFunc("POST /room", g.relay(http.MethodPost, "/room", true))
	mux.HandleFunc("GET /room/{id}", g.relayID(http.MethodGet, "/room/", false))
	mux.HandleFunc("POST /room/{id}", g.relayID(http.MethodPost, "/room/", true))
	mux.HandleFunc("DELETE /room/{id}", g.relayID(http.MethodDelete, "/room/", false))
	mux.HandleFunc("POST /exit", g.relay(http.MethodPost, "/exit", true))
	// Exit updates are PUT on the gateway but POST on the editor API.
	mux.HandleFunc("PUT /exit/{id}", g.relayID(http.MethodPost, "/exit/", true))
	mux.HandleFunc("POST /exit/{id}", g.relayID(http.MethodPost, "/exit/", true))
	mux.HandleFunc("DELETE /exit/{id}", g.relayID(http.MethodDelete, "/exit/", false))

	return g.cors.wrap(mux)
}

// Start binds addr and serves in the background.
func (g *Gateway) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	g.server = &http.Server{
		Handler:     g.Handler(),
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		if err := g.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.WithError(err).Error("Gateway server stopped")
		}
	}()

	g.log.WithFields(logrus.Fields{
		"event_type": "gateway_started",
		"addr":       listener.Addr().String(),
		"upstream":   g.upstream,
	}).Info("Gateway listening")
	return nil
}

// Shutdown gracefully shuts down the server.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

func (g *Gateway) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to Room Editor API"})
}

// roomGraph forwards only the query parameters the caller supplied.
func (g *Gateway) roomGraph(w http.ResponseWriter, r *http.Request) {
	in := r.URL.Query()
	out := url.Values{}
	for _, name := range []string{"start_room_id", "depth", "mode"} {
		if value := in.Get(name); value != "" {
			out.Set(name, value)
		}
	}
	g.forward(w, r, http.MethodGet, "/room_graph", out, false)
}

func (g *Gateway) relay(method, path string, withBody bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.forward(w, r, method, path, nil, withBody)
	}
}

func (g *Gateway) relayID(method, prefix string, withBody bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.PathValue("id")
		if _, err := strconv.Atoi(raw); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": fmt.Sprintf("invalid id: %q", raw)})
			return
		}
		g.forward(w, r, method, prefix+raw, nil, withBody)
	}
}

// forward makes the single upstream call for r and relays its response.
func (g *Gateway) forward(w http.ResponseWriter, r *http.Request, method, path string, query url.Values, withBody bool) {
	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set(RequestIDHeader, requestID)

	var body io.Reader
	if withBody {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "failed to read body"})
			return
		}
		body = bytes.NewReader(data)
	}

	ctx := r.Context()
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	target := g.upstream + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "failed to create request"})
		return
	}
	req.Header.Set(RequestIDHeader, requestID)
	if withBody {
		req.Header.Set("Content-Type", "application/json")
	}

	fields := logrus.Fields{
		"event_type": "forward",
		"method":     method,
		"target":     target,
		"request_id": requestID,
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.log.WithFields(fields).WithError(err).Error("Upstream request failed")
		writeJSON(w, http.StatusBadGateway, UpstreamError{
			Error:      err.Error(),
			StatusCode: http.StatusBadGateway,
			Meta:       "error with world server",
		})
		return
	}
	defer resp.Body.Close()

	fields["status"] = resp.StatusCode
	fields["duration_ms"] = time.Since(start).Milliseconds()
	entry := g.log.WithFields(fields)
	if resp.StatusCode >= 300 {
		entry.Warn("Upstream returned an error status")
	} else {
		entry.Debug("Forwarded request")
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
