package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/credentials"
)

func setupTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TABLESCOUT_DATA_DIR", t.TempDir())
	t.Setenv("GOOGLE_API_KEY", "test-google-key")
	t.Setenv("OPENWEATHER_API_KEY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ENABLE_RATE_LIMIT", "false")
	config.ResetForTest()
	t.Cleanup(config.ResetForTest)
}

func TestNew_ServesHealth(t *testing.T) {
	setupTestEnv(t)

	s, err := New(":0")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Shutdown(context.Background())

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected request ID header from middleware chain")
	}
}

func TestNew_RequiresGoogleKey(t *testing.T) {
	setupTestEnv(t)
	t.Setenv("GOOGLE_API_KEY", "")
	config.ResetForTest()

	if _, err := New(":0"); err == nil {
		t.Fatal("expected error without a Google API key")
	}
}

func TestNew_GoogleKeyFromCredentialStore(t *testing.T) {
	setupTestEnv(t)
	t.Setenv("GOOGLE_API_KEY", "")
	config.ResetForTest()

	cfg := config.Load()
	store, err := credentials.NewStore(cfg.CredentialsDir, cfg.MasterKey)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.Save("google_places", map[string]string{"api_key": "stored-key"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	s, err := New(":0")
	if err != nil {
		t.Fatalf("New should fall back to stored credentials: %v", err)
	}
	s.Shutdown(context.Background())
}

func TestNew_WeatherUnconfigured(t *testing.T) {
	setupTestEnv(t)

	s, err := New(":0")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Shutdown(context.Background())

	req := httptest.NewRequest("GET", "/api/weather?lat=30.27&lng=-97.74", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when weather is not configured, got %d", rr.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error.Code != "PROVIDER_NOT_CONFIGURED" {
		t.Errorf("unexpected error code: %s", body.Error.Code)
	}
}

func TestNew_RateLimitEnabled(t *testing.T) {
	setupTestEnv(t)
	t.Setenv("ENABLE_RATE_LIMIT", "true")
	t.Setenv("RATE_LIMIT_PER_IP", "1")
	t.Setenv("RATE_LIMIT_PER_IP_BURST", "1")
	config.ResetForTest()

	s, err := New(":0")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Shutdown(context.Background())

	// First request consumes the single-token burst; the second should be limited.
	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rr.Code)
		}
	}
}

func TestResolveKey(t *testing.T) {
	setupTestEnv(t)

	store, err := credentials.NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.Save("openweathermap", map[string]string{"api_key": "stored"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if got := resolveKey("from-env", store, "openweathermap"); got != "from-env" {
		t.Errorf("env key should win, got %q", got)
	}
	if got := resolveKey("", store, "openweathermap"); got != "stored" {
		t.Errorf("expected stored key, got %q", got)
	}
	if got := resolveKey("", store, "missing_provider"); got != "" {
		t.Errorf("expected empty key for unknown provider, got %q", got)
	}
}

func TestServer_GracefulShutdown(t *testing.T) {
	setupTestEnv(t)

	s, err := New("127.0.0.1:0")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	time.Sleep(100 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after shutdown")
	}
}
