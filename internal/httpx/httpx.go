package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/logger"
	"github.com/tablescout/tablescout/internal/metrics"
	"github.com/tablescout/tablescout/internal/secrets"
)

// safeURL renders a request URL with API-key query params redacted.
func safeURL(req *http.Request) string {
	u := secrets.MaskQueryParam(req.URL.String(), "key")
	return secrets.MaskQueryParam(u, "appid")
}

// PreAttempt lets callers run logic (e.g., rate limiting) before each try; return an error to abort.
type PreAttempt func(ctx context.Context, attempt int) error

// AttemptInfo describes a single attempt outcome.
type AttemptInfo struct {
	Attempt int
	Method  string
	URL     string
	Status  int
	Err     error
	Wait    time.Duration
}

// Observer callback to report attempt telemetry.
type Observer func(info AttemptInfo)

// DoWithRetry wraps an HTTP request with lightweight retries on 429/5xx and
// transport errors, honoring Retry-After, using config for attempt count and
// base delay.
func DoWithRetry(ctx context.Context, client *http.Client, build func(ctx context.Context) (*http.Request, error), pre PreAttempt) (*http.Response, error) {
	return DoWithRetryObs(ctx, client, build, pre, nil)
}

// DoWithRetryObs is like DoWithRetry but reports attempts to an observer.
func DoWithRetryObs(ctx context.Context, client *http.Client, build func(ctx context.Context) (*http.Request, error), pre PreAttempt, obs Observer) (*http.Response, error) {
	cfg := config.Load()
	maxAttempts := cfg.HTTPMaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	baseDelay := cfg.HTTPRetryBase
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if pre != nil {
			if err := pre(ctx, attempt); err != nil {
				return nil, err
			}
		}
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			// Network or transport error
			metrics.HTTPRequests.WithLabelValues("error").Inc()
			if attempt == maxAttempts || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if cfg.LogHTTPRetries {
					logger.Warn("httpx: giving up", "attempt", attempt, "method", req.Method, "url", safeURL(req), "error", err)
				}
				if obs != nil {
					obs(AttemptInfo{Attempt: attempt, Method: req.Method, URL: safeURL(req), Err: err})
				}
				return nil, err
			}
			metrics.HTTPRetries.Inc()
			if obs != nil {
				obs(AttemptInfo{Attempt: attempt, Method: req.Method, URL: safeURL(req), Err: err})
			}
		} else {
			// success unless 429/5xx
			if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
				metrics.HTTPRequests.WithLabelValues("success").Inc()
				if cfg.LogHTTPRetries && attempt > 1 {
					logger.Info("httpx: succeeded after retry", "attempt", attempt, "method", req.Method, "url", safeURL(req), "status", resp.StatusCode)
				}
				if obs != nil {
					obs(AttemptInfo{Attempt: attempt, Method: req.Method, URL: safeURL(req), Status: resp.StatusCode})
				}
				return resp, nil
			}
			// 429 or 5xx - will retry
			metrics.HTTPRequests.WithLabelValues("retry").Inc()
			if attempt == maxAttempts {
				if cfg.LogHTTPRetries {
					logger.Warn("httpx: giving up", "attempt", attempt, "method", req.Method, "url", safeURL(req), "status", resp.StatusCode)
				}
				if obs != nil {
					obs(AttemptInfo{Attempt: attempt, Method: req.Method, URL: safeURL(req), Status: resp.StatusCode})
				}
				return resp, nil
			}
			// Respect Retry-After header
			if wait, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
				resp.Body.Close()
				metrics.RetryAfterWaits.Observe(wait.Seconds())
				if cfg.LogHTTPRetries {
					logger.Info("httpx: honoring Retry-After", "attempt", attempt, "wait", wait, "method", req.Method, "url", safeURL(req))
				}
				if obs != nil {
					obs(AttemptInfo{Attempt: attempt, Method: req.Method, URL: safeURL(req), Status: resp.StatusCode, Wait: wait})
				}
				if err := sleep(ctx, wait); err != nil {
					return nil, err
				}
				continue
			}
			resp.Body.Close()
			metrics.HTTPRetries.Inc()
		}
		// backoff with jitter
		jitter := time.Duration(rand.Intn(200)) * time.Millisecond
		delay := baseDelay*time.Duration(attempt) + jitter
		if cfg.LogHTTPRetries {
			logger.Info("httpx: backing off", "attempt", attempt, "delay", delay, "method", req.Method, "url", safeURL(req))
		}
		if obs != nil {
			obs(AttemptInfo{Attempt: attempt, Method: req.Method, URL: safeURL(req), Wait: delay})
		}
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, errors.New("exhausted retries")
}

// retryAfter parses a Retry-After header value in either seconds or HTTP-date form.
func retryAfter(header string) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(header); err == nil {
		if delta := time.Until(t); delta > 0 {
			return delta, true
		}
	}
	return 0, false
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
