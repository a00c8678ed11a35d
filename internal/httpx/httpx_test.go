package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tablescout/tablescout/internal/config"
)

func setRetryEnv(t *testing.T, maxRetries, base string) {
	t.Helper()
	t.Setenv("HTTP_MAX_RETRIES", maxRetries)
	t.Setenv("HTTP_RETRY_BASE", base)
	// reset cached config so env takes effect
	config.ResetForTest()
	config.Load()
	t.Cleanup(config.ResetForTest)
}

func buildGet(url string) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestDoWithRetry_StopsOnSuccess(t *testing.T) {
	setRetryEnv(t, "3", "1ms")

	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	resp, err := DoWithRetry(context.Background(), &http.Client{}, buildGet(ts.URL), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestDoWithRetry_RetriesOn5xx(t *testing.T) {
	setRetryEnv(t, "3", "1ms")

	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	resp, err := DoWithRetry(context.Background(), &http.Client{}, buildGet(ts.URL), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 after retries, got %d", resp.StatusCode)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoWithRetry_MaxRetriesExceededReturnsResponse(t *testing.T) {
	setRetryEnv(t, "2", "1ms")

	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	resp, err := DoWithRetry(context.Background(), &http.Client{}, buildGet(ts.URL), nil)
	// the final 5xx response is handed back, not converted to an error
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestDoWithRetry_RespectsRetryAfterSeconds(t *testing.T) {
	setRetryEnv(t, "2", "1ms")

	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	start := time.Now()
	resp, err := DoWithRetry(context.Background(), &http.Client{}, buildGet(ts.URL), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if time.Since(start) < 900*time.Millisecond {
		t.Fatalf("expected to wait for Retry-After; waited %v", time.Since(start))
	}
}

func TestDoWithRetry_ContextCanceledDuringBackoff(t *testing.T) {
	setRetryEnv(t, "3", "5s")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := DoWithRetry(ctx, &http.Client{}, buildGet(ts.URL), nil)
	if err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("expected cancellation to cut the backoff short; waited %v", time.Since(start))
	}
}

func TestDoWithRetry_PreAttemptAborts(t *testing.T) {
	setRetryEnv(t, "3", "1ms")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not have been sent")
	}))
	defer ts.Close()

	pre := func(ctx context.Context, attempt int) error { return context.Canceled }
	if _, err := DoWithRetry(context.Background(), &http.Client{}, buildGet(ts.URL), pre); err == nil {
		t.Fatal("expected pre-attempt error to abort")
	}
}

func TestDoWithRetryObs_ReportsAttempts(t *testing.T) {
	setRetryEnv(t, "2", "1ms")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	var infos []AttemptInfo
	obs := func(info AttemptInfo) { infos = append(infos, info) }
	resp, err := DoWithRetryObs(context.Background(), &http.Client{}, buildGet(ts.URL), nil, obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if len(infos) != 1 {
		t.Fatalf("expected 1 attempt report, got %d", len(infos))
	}
	if infos[0].Status != 200 || infos[0].Attempt != 1 {
		t.Errorf("unexpected attempt info: %+v", infos[0])
	}
}

func TestSafeURL_RedactsKeyParams(t *testing.T) {
	req := httptest.NewRequest("GET", "https://example.com/geo?address=austin&key=AIzaSecret123&appid=owm456", nil)
	got := safeURL(req)
	if strings.Contains(got, "AIzaSecret123") || strings.Contains(got, "owm456") {
		t.Errorf("expected key params redacted, got %q", got)
	}
	if !strings.Contains(got, "address=austin") {
		t.Errorf("non-secret params should survive, got %q", got)
	}
}

func TestRetryAfter(t *testing.T) {
	if _, ok := retryAfter(""); ok {
		t.Error("expected empty header to be ignored")
	}
	if d, ok := retryAfter("3"); !ok || d != 3*time.Second {
		t.Errorf("expected 3s, got %v ok=%v", d, ok)
	}
	future := time.Now().Add(2 * time.Second).UTC().Format(http.TimeFormat)
	if d, ok := retryAfter(future); !ok || d <= 0 {
		t.Errorf("expected positive wait for HTTP-date, got %v ok=%v", d, ok)
	}
	past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
	if _, ok := retryAfter(past); ok {
		t.Error("expected past HTTP-date to be ignored")
	}
	if _, ok := retryAfter("garbage"); ok {
		t.Error("expected unparseable header to be ignored")
	}
}
