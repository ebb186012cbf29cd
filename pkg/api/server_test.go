package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/httpsys/pkg/httpsys"
	"github.com/marmos91/httpsys/pkg/httpsys/httpsystest"
	"github.com/marmos91/httpsys/pkg/metrics"
)

func newTestListener(t *testing.T) (*httpsys.Listener, *httpsys.API) {
	t.Helper()
	api, _ := httpsystest.NewAPI()
	l, err := httpsys.NewListener(api, httpsys.ListenerOptions{
		Prefixes:          []string{"http://localhost:8080/"},
		CompletionWorkers: 1,
	}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewListener failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l, api
}

func TestRouter_Routes(t *testing.T) {
	l, api := newTestListener(t)
	srv := httptest.NewServer(NewRouter(l, api))
	defer srv.Close()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/health/ready", http.StatusServiceUnavailable},
		{"GET", "/api/v1/status", http.StatusOK},
		{"GET", "/api/v1/features", http.StatusOK},
		{"GET", "/api/v1/delegations", http.StatusOK},
		{"POST", "/api/v1/delegations", http.StatusBadRequest},
		{"GET", "/api/v1/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader("{"))
		if err != nil {
			t.Fatalf("NewRequest failed: %v", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s failed: %v", tt.method, tt.path, err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode != tt.want {
			t.Errorf("%s %s: expected %d, got %d", tt.method, tt.path, tt.want, resp.StatusCode)
		}
	}
}

func TestRouter_RootRedirect(t *testing.T) {
	w := httptest.NewRecorder()
	NewRouter(nil, nil).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusTemporaryRedirect {
		t.Errorf("Expected redirect, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/health" {
		t.Errorf("Expected redirect to /health, got %q", loc)
	}
}

func TestRouter_NoListenerHasNoManagementRoutes(t *testing.T) {
	w := httptest.NewRecorder()
	NewRouter(nil, nil).ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/status", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without a listener, got %d", w.Code)
	}
}

func TestRouter_Metrics(t *testing.T) {
	reg := metrics.InitRegistry()
	metrics.NewListenerMetrics(reg).RecordQueueOpen("create", "created")

	w := httptest.NewRecorder()
	NewRouter(nil, nil).ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /metrics, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "httpsys_request_queue_open_total") {
		t.Error("Expected listener metrics in /metrics output")
	}
}

func TestServer_StartStop(t *testing.T) {
	l, api := newTestListener(t)
	s := NewServer(APIConfig{Address: "127.0.0.1"}, l, api)
	s.server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for s.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not bind in time")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get("http://" + s.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"service":"httpsys"`) {
		t.Errorf("Unexpected health response %d: %s", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned error on shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop in time")
	}

	// Stop after shutdown is a no-op.
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("second Stop returned error: %v", err)
	}
}

func TestServer_BindFailure(t *testing.T) {
	ln := httptest.NewServer(http.NotFoundHandler())
	defer ln.Close()

	s := NewServer(APIConfig{}, nil, nil)
	s.server.Addr = strings.TrimPrefix(ln.URL, "http://")

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Expected bind failure on an address in use")
	}
}

func TestAPIConfig_Defaults(t *testing.T) {
	cfg := APIConfig{Address: "localhost"}
	cfg.ApplyDefaults()

	if cfg.Port != 9180 {
		t.Errorf("Expected default port 9180, got %d", cfg.Port)
	}
	if cfg.Addr() != "localhost:9180" {
		t.Errorf("Expected addr localhost:9180, got %q", cfg.Addr())
	}
	if !cfg.IsEnabled() {
		t.Error("Expected API enabled by default")
	}

	disabled := false
	cfg.Enabled = &disabled
	if cfg.IsEnabled() {
		t.Error("Expected API disabled when explicitly false")
	}
}
