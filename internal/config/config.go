package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tablescout/tablescout/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	UserAgent string
	// Provider API keys
	GoogleAPIKey      string
	OpenWeatherAPIKey string
	// Outbound HTTP behavior
	HTTPMaxRetries int
	HTTPRetryBase  time.Duration
	HTTPTimeout    time.Duration
	LogHTTPRetries bool
	// Response cache sizing and per-read staleness thresholds
	CacheMaxEntries int
	SearchMaxAge    time.Duration
	DetailsMaxAge   time.Duration
	GeocodeMaxAge   time.Duration
	WeatherMaxAge   time.Duration
	// Provider pacing (Google Places quota)
	PlacesRPS       float64
	PlacesBurstSize int
	// Search defaults
	SearchRadiusMeters int
	SearchMaxResults   int
	// Cost log database
	DBStatementTimeout time.Duration
	// API server security settings
	RateLimitGlobal      float64  // requests per second globally
	RateLimitGlobalBurst int      // burst size for global rate limit
	RateLimitPerIP       float64  // requests per second per IP
	RateLimitPerIPBurst  int      // burst size for per-IP rate limit
	EnableRateLimit      bool     // enable rate limiting middleware
	CORSAllowedOrigins   []string // allowed CORS origins
	// Credential storage
	DataDir        string
	CredentialsDir string
	MasterKey      string // when set, the credential store key derives from this passphrase
	// Observability settings
	LogLevel          string  // log level: debug, info, warn, error
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string  // Sentry DSN for error reporting
	SentryEnvironment string  // Sentry environment (dev, staging, production)
	SentryRelease     string  // Sentry release version
	SentrySampleRate  float64 // Sentry error sampling rate (0.0 to 1.0)
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	ua := os.Getenv("TABLESCOUT_USER_AGENT")
	if strings.TrimSpace(ua) == "" {
		ua = "tablescout/0.1"
	}
	dataDir := strings.TrimSpace(os.Getenv("TABLESCOUT_DATA_DIR"))
	if dataDir == "" {
		dataDir = "data"
	}
	cached = &Config{
		UserAgent:          ua,
		GoogleAPIKey:       strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
		OpenWeatherAPIKey:  strings.TrimSpace(os.Getenv("OPENWEATHER_API_KEY")),
		HTTPMaxRetries:     utils.GetEnvAsInt("HTTP_MAX_RETRIES", 3),
		HTTPRetryBase:      utils.GetEnvAsDuration("HTTP_RETRY_BASE", 300*time.Millisecond),
		HTTPTimeout:        utils.GetEnvAsDuration("HTTP_TIMEOUT", 15*time.Second),
		LogHTTPRetries:     utils.GetEnvAsBool("LOG_HTTP_RETRIES", false),
		CacheMaxEntries:    utils.GetEnvAsInt("CACHE_MAX_ENTRIES", 100),
		SearchMaxAge:       utils.GetEnvAsDuration("CACHE_SEARCH_MAX_AGE", 5*time.Minute),
		DetailsMaxAge:      utils.GetEnvAsDuration("CACHE_DETAILS_MAX_AGE", time.Hour),
		GeocodeMaxAge:      utils.GetEnvAsDuration("CACHE_GEOCODE_MAX_AGE", 24*time.Hour),
		WeatherMaxAge:      utils.GetEnvAsDuration("CACHE_WEATHER_MAX_AGE", time.Hour),
		PlacesRPS:          utils.GetEnvAsFloat("PLACES_RPS", 5.0),
		PlacesBurstSize:    utils.GetEnvAsInt("PLACES_BURST_SIZE", 2),
		SearchRadiusMeters: utils.GetEnvAsInt("SEARCH_RADIUS_METERS", 1500),
		SearchMaxResults:   utils.GetEnvAsInt("SEARCH_MAX_RESULTS", 10),
		DBStatementTimeout: utils.GetEnvAsDuration("DB_STATEMENT_TIMEOUT", 25*time.Second),
		// Security settings with sensible defaults
		RateLimitGlobal:      utils.GetEnvAsFloat("RATE_LIMIT_GLOBAL", 100.0),
		RateLimitGlobalBurst: utils.GetEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 200),
		RateLimitPerIP:       utils.GetEnvAsFloat("RATE_LIMIT_PER_IP", 10.0),
		RateLimitPerIPBurst:  utils.GetEnvAsInt("RATE_LIMIT_PER_IP_BURST", 20),
		EnableRateLimit:      utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),
		DataDir:              dataDir,
		CredentialsDir:       filepath.Join(dataDir, ".credentials"),
		MasterKey:            strings.TrimSpace(os.Getenv("TABLESCOUT_KEY")),
		// Observability settings
		LogLevel:          strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		SentrySampleRate:  utils.GetEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
	}
	if cached.LogLevel == "" {
		cached.LogLevel = "info"
	}
	if cached.SentryEnvironment == "" {
		if env := os.Getenv("ENV"); env != "" {
			cached.SentryEnvironment = env
		} else {
			cached.SentryEnvironment = "development"
		}
	}

	// Parse CORS allowed origins
	corsOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if corsOrigins == "" {
		// Default to common development origins
		cached.CORSAllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	} else {
		cached.CORSAllowedOrigins = strings.Split(corsOrigins, ",")
		for i := range cached.CORSAllowedOrigins {
			cached.CORSAllowedOrigins[i] = strings.TrimSpace(cached.CORSAllowedOrigins[i])
		}
	}

	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }
