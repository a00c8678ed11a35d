package errorreporting

import (
	"os"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
)

func TestScrubPII(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		contains    []string // strings that should be present after scrubbing
		notContains []string // strings that should be removed
	}{
		{
			name:        "email address",
			input:       "User email is test@example.com",
			contains:    []string{"User email is", "[REDACTED]"},
			notContains: []string{"test@example.com"},
		},
		{
			name:        "google api key",
			input:       "places request failed for AIzaSyB1234567890abcdefghij",
			contains:    []string{"places request failed for", "[REDACTED]"},
			notContains: []string{"AIzaSyB1234567890abcdefghij"},
		},
		{
			name:        "key query parameter",
			input:       "GET /geocode/json?address=austin&key=abcdef1234567890abcdef",
			contains:    []string{"address=austin", "[REDACTED]"},
			notContains: []string{"abcdef1234567890abcdef"},
		},
		{
			name:        "API key",
			input:       "api_key: sk_test_1234567890abcdef",
			contains:    []string{"[REDACTED]"},
			notContains: []string{"sk_test_1234567890abcdef"},
		},
		{
			name:        "IP address",
			input:       "Request from 192.168.1.1",
			contains:    []string{"Request from", "[REDACTED]"},
			notContains: []string{"192.168.1.1"},
		},
		{
			name:     "no PII",
			input:    "Normal log message without sensitive data",
			contains: []string{"Normal log message without sensitive data"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := scrubPII(tt.input)

			for _, s := range tt.contains {
				if !strings.Contains(result, s) {
					t.Errorf("Expected scrubbed text to contain %q, got: %s", s, result)
				}
			}

			for _, s := range tt.notContains {
				if strings.Contains(result, s) {
					t.Errorf("Expected scrubbed text to not contain %q, got: %s", s, result)
				}
			}
		})
	}
}

func TestGetRelease(t *testing.T) {
	// Test SENTRY_RELEASE
	os.Setenv("SENTRY_RELEASE", "v1.0.0")
	defer os.Unsetenv("SENTRY_RELEASE")

	release := getRelease()
	if release != "v1.0.0" {
		t.Errorf("Expected release 'v1.0.0', got %s", release)
	}

	// Test SERVICE_VERSION fallback
	os.Unsetenv("SENTRY_RELEASE")
	os.Setenv("SERVICE_VERSION", "v2.0.0")
	defer os.Unsetenv("SERVICE_VERSION")

	release = getRelease()
	if release != "v2.0.0" {
		t.Errorf("Expected release 'v2.0.0', got %s", release)
	}

	// Test default
	os.Unsetenv("SERVICE_VERSION")
	release = getRelease()
	if release != "dev" {
		t.Errorf("Expected release 'dev', got %s", release)
	}
}

func TestInit_NotConfigured(t *testing.T) {
	// Ensure SENTRY_DSN is not set
	os.Unsetenv("SENTRY_DSN")

	err := Init("test")
	if err != nil {
		t.Errorf("Init should not error when Sentry is not configured: %v", err)
	}
}

func TestInit_Configured(t *testing.T) {
	// Set a test DSN (won't actually send data)
	os.Setenv("SENTRY_DSN", "https://examplePublicKey@o0.ingest.sentry.io/0")
	defer os.Unsetenv("SENTRY_DSN")

	err := Init("test")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// Clean up
	sentry.Flush(0)
}

func TestValidateDSN(t *testing.T) {
	if err := ValidateDSN("https://key@o0.ingest.sentry.io/0"); err != nil {
		t.Errorf("expected valid DSN, got %v", err)
	}
	if err := ValidateDSN("not-a-dsn"); err == nil {
		t.Error("expected error for malformed DSN")
	}
}
