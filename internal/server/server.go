// Package server assembles the HTTP API: provider clients, response caches,
// the cost log, middleware, and the stats hub.
package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/tablescout/tablescout/internal/api"
	"github.com/tablescout/tablescout/internal/api/handlers"
	"github.com/tablescout/tablescout/internal/cache"
	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/credentials"
	"github.com/tablescout/tablescout/internal/db"
	"github.com/tablescout/tablescout/internal/geocode"
	"github.com/tablescout/tablescout/internal/logger"
	"github.com/tablescout/tablescout/internal/middleware"
	"github.com/tablescout/tablescout/internal/places"
	"github.com/tablescout/tablescout/internal/secrets"
	"github.com/tablescout/tablescout/internal/weather"
)

// Server bundles the HTTP server with its background pieces.
type Server struct {
	http    *http.Server
	hub     *handlers.StatsHub
	limiter *middleware.RateLimiter
	queries *db.Queries
}

// New builds a fully wired server listening on addr. The Google API key is
// required (from env or the credential store); weather and the cost log are
// optional and their endpoints degrade gracefully when unconfigured.
func New(addr string) (*Server, error) {
	cfg := config.Load()

	store, err := credentials.NewStore(cfg.CredentialsDir, cfg.MasterKey)
	if err != nil {
		return nil, err
	}

	googleKey := resolveKey(cfg.GoogleAPIKey, store, "google_places")
	weatherKey := resolveKey(cfg.OpenWeatherAPIKey, store, "openweathermap")

	if err := secrets.ValidateRequired(map[string]string{"GOOGLE_API_KEY": googleKey}); err != nil {
		return nil, err
	}
	logger.Info("Provider keys resolved",
		"google_places", secrets.Mask(googleKey),
		"openweathermap", secrets.Mask(weatherKey))

	placesCache, err := cache.NewSynced(cfg.CacheMaxEntries)
	if err != nil {
		return nil, err
	}
	geocodeCache, err := cache.NewSynced(cfg.CacheMaxEntries)
	if err != nil {
		return nil, err
	}
	weatherCache, err := cache.NewSynced(cfg.CacheMaxEntries)
	if err != nil {
		return nil, err
	}
	caches := map[string]*cache.Synced{
		"places":  placesCache,
		"geocode": geocodeCache,
		"weather": weatherCache,
	}

	// Cost log is optional; without DATABASE_URL calls simply aren't logged.
	var queries *db.Queries
	if connStr := os.Getenv("DATABASE_URL"); connStr != "" {
		queries, err = db.Init(connStr)
		if err != nil {
			return nil, err
		}
		if err := queries.EnsureSchema(context.Background()); err != nil {
			return nil, err
		}
		logger.Info("Cost log connected", "dsn", secrets.MaskURL(connStr))
	} else {
		logger.Warn("DATABASE_URL not set; provider costs will not be logged")
	}

	var costLogger places.CostLogger
	if queries != nil {
		costLogger = queries
	}
	placesClient, err := places.New(places.Options{
		APIKey: googleKey,
		Cache:  placesCache,
		Costs:  costLogger,
	})
	if err != nil {
		return nil, err
	}

	deps := api.Deps{
		Searcher: placesClient,
		Details:  placesClient,
		Caches:   caches,
	}

	geocodeClient, err := geocode.New(geocode.Options{APIKey: googleKey, Cache: geocodeCache})
	if err != nil {
		return nil, err
	}
	deps.Geocode = geocodeClient

	if weatherKey != "" {
		weatherClient, err := weather.New(weather.Options{APIKey: weatherKey, Cache: weatherCache})
		if err != nil {
			return nil, err
		}
		deps.Weather = weatherClient
	} else {
		logger.Warn("OpenWeatherMap key not configured; /api/weather disabled")
	}

	var costReader handlers.CostReader
	if queries != nil {
		costReader = queries
		deps.Costs = queries
	}

	hub := handlers.NewStatsHub(caches, costReader)
	deps.StatsHub = hub

	router := api.NewRouter(deps)

	// Middleware chain, applied innermost to outermost.
	var handler http.Handler = router
	handler = middleware.Compress(handler)
	var rl *middleware.RateLimiter
	if cfg.EnableRateLimit {
		rl = middleware.NewRateLimiter(cfg.RateLimitGlobal, cfg.RateLimitGlobalBurst, cfg.RateLimitPerIP, cfg.RateLimitPerIPBurst)
		handler = rl.Limit(handler)
	}
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	handler = middleware.CORS(corsCfg)(handler)
	handler = middleware.Metrics(handler)
	handler = middleware.RecoverWithSentry(handler)
	handler = middleware.RequestID(handler)

	return &Server{
		http: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		hub:     hub,
		limiter: rl,
		queries: queries,
	}, nil
}

// resolveKey prefers the env-configured key, falling back to the encrypted
// credential store.
func resolveKey(envKey string, store *credentials.Store, provider string) string {
	if envKey != "" {
		return envKey
	}
	creds, err := store.Load(provider)
	if err != nil {
		logger.Warn("Failed to load stored credentials", "provider", provider, "error", err)
		return ""
	}
	if creds == nil {
		return ""
	}
	return creds["api_key"]
}

// Start runs the stats hub and serves HTTP until the listener fails or the
// server is shut down.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	logger.Info("Server listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.http.Shutdown(ctx)
}

// Handler exposes the middleware-wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
