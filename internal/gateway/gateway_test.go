package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/warren/internal/api"
	"github.com/dyluth/warren/internal/editor"
	"github.com/dyluth/warren/pkg/world"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method    string
	Path      string
	Query     string
	Body      string
	RequestID string
}

// recordingUpstream answers every request with status/body and records what it saw.
type recordingUpstream struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func (u *recordingUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	u.mu.Lock()
	u.requests = append(u.requests, recordedRequest{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		Body:      string(body),
		RequestID: r.Header.Get(RequestIDHeader),
	})
	status, respBody := u.status, u.body
	u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, respBody)
}

func (u *recordingUpstream) last(t *testing.T) recordedRequest {
	t.Helper()
	u.mu.Lock()
	defer u.mu.Unlock()
	require.NotEmpty(t, u.requests)
	return u.requests[len(u.requests)-1]
}

func (u *recordingUpstream) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.requests)
}

func nullLogger() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func setupGateway(t *testing.T, status int, body string) (*httptest.Server, *recordingUpstream) {
	t.Helper()
	upstream := &recordingUpstream{status: status, body: body}
	upstreamSrv := httptest.NewServer(upstream)
	t.Cleanup(upstreamSrv.Close)

	gw, err := New(Options{
		Upstream:     upstreamSrv.URL + "/editor-api",
		AllowOrigins: []string{"*"},
		Logger:       nullLogger(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)
	return srv, upstream
}

func send(t *testing.T, method, url, body string, headers map[string]string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{Upstream: "localhost:8080"})
	assert.Error(t, err)

	_, err = New(Options{Upstream: "http://localhost:8080", Timeout: -time.Second})
	assert.Error(t, err)
}

func TestRoot(t *testing.T) {
	srv, upstream := setupGateway(t, http.StatusOK, `{}`)

	resp, body := send(t, http.MethodGet, srv.URL+"/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Welcome to Room Editor API"}`, body)
	assert.Equal(t, 0, upstream.count())
}

func TestRouting(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantMethod string
		wantPath   string
		wantQuery  string
	}{
		{name: "can connect", method: "GET", path: "/can-connect", wantMethod: "GET", wantPath: "/editor-api/can-connect"},
		{name: "room names", method: "GET", path: "/rooms/names", wantMethod: "GET", wantPath: "/editor-api/rooms/names"},
		{name: "get room", method: "GET", path: "/room/4", wantMethod: "GET", wantPath: "/editor-api/room/4"},
		{name: "create room", method: "POST", path: "/room", body: `{"name":"A"}`, wantMethod: "POST", wantPath: "/editor-api/room"},
		{name: "upsert room", method: "POST", path: "/room/4", body: `{"name":"B"}`, wantMethod: "POST", wantPath: "/editor-api/room/4"},
		{name: "delete room", method: "DELETE", path: "/room/4", wantMethod: "DELETE", wantPath: "/editor-api/room/4"},
		{name: "create exit", method: "POST", path: "/exit", body: `{"name":"e"}`, wantMethod: "POST", wantPath: "/editor-api/exit"},
		{name: "put exit becomes post", method: "PUT", path: "/exit/9", body: `{"name":"w"}`, wantMethod: "POST", wantPath: "/editor-api/exit/9"},
		{name: "post exit", method: "POST", path: "/exit/9", body: `{"name":"w"}`, wantMethod: "POST", wantPath: "/editor-api/exit/9"},
		{name: "delete exit", method: "DELETE", path: "/exit/9", wantMethod: "DELETE", wantPath: "/editor-api/exit/9"},
		{name: "graph with all params", method: "GET", path: "/room_graph?start_room_id=1&depth=2&mode=global&junk=x", wantMethod: "GET", wantPath: "/editor-api/room_graph", wantQuery: "depth=2&mode=global&start_room_id=1"},
		{name: "graph without depth", method: "GET", path: "/room_graph?start_room_id=1", wantMethod: "GET", wantPath: "/editor-api/room_graph", wantQuery: "start_room_id=1"},
		{name: "graph without params", method: "GET", path: "/room_graph", wantMethod: "GET", wantPath: "/editor-api/room_graph", wantQuery: ""},
	}

	srv, upstream := setupGateway(t, http.StatusOK, `{"ok":true}`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := upstream.count()
			resp, body := send(t, tt.method, srv.URL+tt.path, tt.body, nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, `{"ok":true}`, body)
			assert.Equal(t, before+1, upstream.count())

			got := upstream.last(t)
			assert.Equal(t, tt.wantMethod, got.Method)
			assert.Equal(t, tt.wantPath, got.Path)
			assert.Equal(t, tt.wantQuery, got.Query)
			assert.Equal(t, tt.body, got.Body)
			assert.NotEmpty(t, got.RequestID)
			assert.Equal(t, got.RequestID, resp.Header.Get(RequestIDHeader))
		})
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	srv, upstream := setupGateway(t, http.StatusOK, `[]`)

	send(t, http.MethodGet, srv.URL+"/rooms/names", "", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", upstream.last(t).RequestID)
}

func TestInvalidID(t *testing.T) {
	srv, upstream := setupGateway(t, http.StatusOK, `{}`)

	resp, _ := send(t, http.MethodGet, srv.URL+"/room/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, upstream.count())
}

func TestUpstreamErrorRelayed(t *testing.T) {
	srv, upstream := setupGateway(t, http.StatusInternalServerError, `{"detail":"Error getting room"}`)

	resp, body := send(t, http.MethodGet, srv.URL+"/room/1", "", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"Error getting room"}`, body)
	assert.Equal(t, 1, upstream.count(), "no retries")
}

func TestUpstreamUnreachable(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	gw, err := New(Options{Upstream: deadURL, Logger: nullLogger()})
	require.NoError(t, err)
	srv := httptest.NewServer(gw.Handler())
	defer srv.Close()

	resp, body := send(t, http.MethodDelete, srv.URL+"/room/3", "", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var envelope UpstreamError
	require.NoError(t, json.Unmarshal([]byte(body), &envelope))
	assert.Equal(t, http.StatusBadGateway, envelope.StatusCode)
	assert.Equal(t, "error with world server", envelope.Meta)
	assert.NotEmpty(t, envelope.Error)
}

func TestTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	gw, err := New(Options{Upstream: slow.URL, Timeout: 50 * time.Millisecond, Logger: nullLogger()})
	require.NoError(t, err)
	srv := httptest.NewServer(gw.Handler())
	defer srv.Close()

	resp, _ := send(t, http.MethodGet, srv.URL+"/rooms/names", "", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	upstream := &recordingUpstream{status: http.StatusOK, body: `[]`}
	upstreamSrv := httptest.NewServer(upstream)
	defer upstreamSrv.Close()

	gw, err := New(Options{
		Upstream:     upstreamSrv.URL,
		AllowOrigins: []string{"https://builder.example"},
		Logger:       nullLogger(),
	})
	require.NoError(t, err)
	srv := httptest.NewServer(gw.Handler())
	defer srv.Close()

	t.Run("preflight from allowed origin", func(t *testing.T) {
		resp, _ := send(t, http.MethodOptions, srv.URL+"/exit/4", "", map[string]string{
			"Origin":                         "https://builder.example",
			"Access-Control-Request-Method":  "PUT",
			"Access-Control-Request-Headers": "content-type",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "https://builder.example", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PUT")
		assert.Equal(t, "content-type", resp.Header.Get("Access-Control-Allow-Headers"))
		assert.Equal(t, 0, upstream.count())
	})

	t.Run("preflight from other origin", func(t *testing.T) {
		resp, _ := send(t, http.MethodOptions, srv.URL+"/exit/4", "", map[string]string{
			"Origin":                        "https://evil.example",
			"Access-Control-Request-Method": "PUT",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("simple request", func(t *testing.T) {
		resp, _ := send(t, http.MethodGet, srv.URL+"/rooms/names", "", map[string]string{"Origin": "https://builder.example"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "https://builder.example", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	})

	t.Run("wildcard echoes origin", func(t *testing.T) {
		p := newCORSPolicy([]string{"*"})
		assert.True(t, p.allowed("http://anything"))
	})
}

// TestEndToEnd runs the gateway in front of a real editor API.
func TestEndToEnd(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := world.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	defer client.Close()

	svc := editor.New(client, editor.Options{Logger: nullLogger()})
	apiSrv := httptest.NewServer(api.NewServer(svc, api.Options{DefaultDepth: 1, Logger: nullLogger()}).Handler())
	defer apiSrv.Close()

	gw, err := New(Options{Upstream: apiSrv.URL + api.DefaultBasePath, Logger: nullLogger()})
	require.NoError(t, err)
	srv := httptest.NewServer(gw.Handler())
	defer srv.Close()

	var a, b struct {
		ID int `json:"id"`
	}
	_, body := send(t, http.MethodPost, srv.URL+"/room", `{"name":"A"}`, nil)
	require.NoError(t, json.Unmarshal([]byte(body), &a))
	_, body = send(t, http.MethodPost, srv.URL+"/room", `{"name":"B","description":"Second."}`, nil)
	require.NoError(t, json.Unmarshal([]byte(body), &b))

	resp, body := send(t, http.MethodPost, srv.URL+"/exit", `{"name":"east","source_id":`+itoa(a.ID)+`,"destination_id":`+itoa(b.ID)+`}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var exit struct {
		ID int `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &exit))

	resp, body = send(t, http.MethodPut, srv.URL+"/exit/"+itoa(exit.ID), `{"name":"eastward"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"name":"eastward"`)

	resp, body = send(t, http.MethodGet, srv.URL+"/room_graph?start_room_id="+itoa(a.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var graph editorGraph
	require.NoError(t, json.Unmarshal([]byte(body), &graph))
	assert.Len(t, graph.Rooms, 2)
	assert.Len(t, graph.Exits, 1)

	resp, _ = send(t, http.MethodGet, srv.URL+"/room/999", "", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, gw.Shutdown(ctx))
}

type editorGraph struct {
	Rooms map[string]json.RawMessage `json:"rooms"`
	Exits map[string]json.RawMessage `json:"exits"`
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
