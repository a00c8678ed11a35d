// Package places implements a Google Places API (New) client with
// cost-optimized field masks, response caching, and cost tracking.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tablescout/tablescout/internal/apierr"
	"github.com/tablescout/tablescout/internal/cache"
	"github.com/tablescout/tablescout/internal/circuitbreaker"
	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/httpx"
	"github.com/tablescout/tablescout/internal/logger"
	"github.com/tablescout/tablescout/internal/metrics"
	"github.com/tablescout/tablescout/internal/models"
	"github.com/tablescout/tablescout/internal/tracing"
)

const (
	// Provider is the label used in metrics and the cost log.
	Provider = "google_places"

	defaultBaseURL = "https://places.googleapis.com/v1"
)

// CostLogger records billed provider calls. Implemented by db.Queries;
// defined here so the client does not depend on the database package.
type CostLogger interface {
	LogAPICall(ctx context.Context, provider, endpoint string, costCents float64, statusCode int, cached bool, params map[string]any) error
}

// SearchQuery describes a nearby restaurant search.
type SearchQuery struct {
	Query        string
	Lat          float64
	Lng          float64
	RadiusMeters int // 0 means the configured default
	MaxResults   int // 0 means the configured default, capped at 20
}

// Options configures a Client. Zero-value fields fall back to config.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Cache      *cache.Synced
	Costs      CostLogger
	Limiter    *rate.Limiter
	Breaker    *circuitbreaker.CircuitBreaker
}

// Client calls the Google Places API with rate limiting, retries, a circuit
// breaker, and a bounded response cache in front of every billed request.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cache   *cache.Synced
	costs   CostLogger
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
}

// New creates a Places client. The API key is required.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, apierr.ProviderNotConfigured(Provider)
	}
	cfg := config.Load()

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	respCache := opts.Cache
	if respCache == nil {
		var err error
		respCache, err = cache.NewSynced(cfg.CacheMaxEntries)
		if err != nil {
			return nil, err
		}
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(cfg.PlacesRPS), cfg.PlacesBurstSize)
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.Config{Name: Provider})
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  opts.APIKey,
		http:    httpClient,
		cache:   respCache,
		costs:   opts.Costs,
		limiter: limiter,
		breaker: breaker,
	}, nil
}

// Cache exposes the response cache for admin operations (stats, invalidation).
func (c *Client) Cache() *cache.Synced { return c.cache }

// Search finds restaurants near a location using Text Search. Results are
// cached; a cached entry younger than the configured search max age is
// returned without a billed call.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]models.Restaurant, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, apierr.SearchInvalidQuery("")
	}
	cfg := config.Load()
	if q.RadiusMeters <= 0 {
		q.RadiusMeters = cfg.SearchRadiusMeters
	}
	if q.MaxResults <= 0 {
		q.MaxResults = cfg.SearchMaxResults
	}
	if q.MaxResults > 20 {
		q.MaxResults = 20
	}

	key := searchCacheKey(q)
	if v, ok := c.cache.Get(key, cfg.SearchMaxAge); ok {
		metrics.CacheHits.WithLabelValues("searchText").Inc()
		metrics.ProviderCallsTotal.WithLabelValues(Provider, "searchText", "cached").Inc()
		c.logCost(ctx, "searchText", 0, http.StatusOK, true, searchParams(q))
		return v.([]models.Restaurant), nil
	}
	metrics.CacheMisses.WithLabelValues("searchText").Inc()

	ctx, span := tracing.ProviderCallSpan(ctx, Provider, "searchText")
	defer span.End()

	body, err := json.Marshal(searchRequest{
		TextQuery: q.Query,
		LocationBias: locationBias{Circle: circle{
			Center: latLng{Latitude: q.Lat, Longitude: q.Lng},
			Radius: float64(q.RadiusMeters),
		}},
		MaxResults:   q.MaxResults,
		LanguageCode: "en",
	})
	if err != nil {
		return nil, err
	}

	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
		req.Header.Set("X-Goog-FieldMask", searchFieldMask)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", cfg.UserAgent)
		return req, nil
	}

	var parsed searchResponse
	if err := c.call(ctx, "searchText", costSearchTextCents, searchParams(q), build, &parsed); err != nil {
		return nil, err
	}

	restaurants := make([]models.Restaurant, 0, len(parsed.Places))
	for _, p := range parsed.Places {
		restaurants = append(restaurants, parsePlace(p))
	}
	c.cache.Set(key, restaurants)
	metrics.CacheEntries.Set(float64(c.cache.Size()))
	return restaurants, nil
}

// Details fetches a single place by its Google Places ID. Detail responses
// age out more slowly than search results.
func (c *Client) Details(ctx context.Context, placeID string) (*models.Restaurant, error) {
	if strings.TrimSpace(placeID) == "" {
		return nil, apierr.ValidationMissingField("place_id")
	}
	cfg := config.Load()

	key := "details:" + placeID
	if v, ok := c.cache.Get(key, cfg.DetailsMaxAge); ok {
		metrics.CacheHits.WithLabelValues("getPlaceDetails").Inc()
		metrics.ProviderCallsTotal.WithLabelValues(Provider, "getPlaceDetails", "cached").Inc()
		c.logCost(ctx, "getPlaceDetails", 0, http.StatusOK, true, map[string]any{"place_id": placeID})
		r := v.(models.Restaurant)
		return &r, nil
	}
	metrics.CacheMisses.WithLabelValues("getPlaceDetails").Inc()

	ctx, span := tracing.ProviderCallSpan(ctx, Provider, "getPlaceDetails")
	defer span.End()

	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/"+placeID, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
		req.Header.Set("X-Goog-FieldMask", detailsFieldMask)
		req.Header.Set("User-Agent", cfg.UserAgent)
		return req, nil
	}

	var parsed placePayload
	if err := c.call(ctx, "getPlaceDetails", costPlaceDetailsCents, map[string]any{"place_id": placeID}, build, &parsed); err != nil {
		return nil, err
	}

	restaurant := parsePlace(parsed)
	c.cache.Set(key, restaurant)
	metrics.CacheEntries.Set(float64(c.cache.Size()))
	return &restaurant, nil
}

// call issues one billed request behind the breaker, pacing each attempt
// through the rate limiter, and decodes the response into out.
func (c *Client) call(ctx context.Context, endpoint string, costCents float64, params map[string]any, build func(ctx context.Context) (*http.Request, error), out any) error {
	pre := func(ctx context.Context, attempt int) error {
		res := c.limiter.Reserve()
		if !res.OK() {
			return apierr.ProviderTransient(Provider, http.StatusTooManyRequests)
		}
		delay := res.Delay()
		if delay <= 0 {
			return nil
		}
		metrics.RateLimitWaits.WithLabelValues(Provider).Inc()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			res.Cancel()
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}

	err := c.breaker.Call(func() error {
		start := time.Now()
		resp, err := httpx.DoWithRetry(ctx, c.http, build, pre)
		if err != nil {
			metrics.ProviderCallsTotal.WithLabelValues(Provider, endpoint, "error").Inc()
			return err
		}
		defer resp.Body.Close()

		// Google bills every request that reaches the API, including failures.
		metrics.ProviderCallDuration.WithLabelValues(Provider, endpoint).Observe(time.Since(start).Seconds())
		metrics.ProviderCallCostCents.WithLabelValues(Provider, endpoint).Add(costCents)
		c.logCost(ctx, endpoint, costCents, resp.StatusCode, false, params)

		if apiErr := apierr.ClassifyStatus(Provider, resp.StatusCode); apiErr != nil {
			metrics.ProviderCallsTotal.WithLabelValues(Provider, endpoint, "error").Inc()
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			logger.Warn("places: request failed",
				"endpoint", endpoint, "status", resp.StatusCode, "body", string(snippet))
			return apiErr
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			metrics.ProviderCallsTotal.WithLabelValues(Provider, endpoint, "error").Inc()
			return apierr.ProviderSchema(Provider, err.Error())
		}
		metrics.ProviderCallsTotal.WithLabelValues(Provider, endpoint, "success").Inc()
		return nil
	})
	if err == circuitbreaker.ErrCircuitOpen {
		return apierr.ProviderCircuitOpen(Provider)
	}
	return err
}

func (c *Client) logCost(ctx context.Context, endpoint string, costCents float64, status int, cached bool, params map[string]any) {
	if c.costs == nil {
		return
	}
	if err := c.costs.LogAPICall(ctx, Provider, endpoint, costCents, status, cached, params); err != nil {
		logger.Warn("places: cost log write failed", "endpoint", endpoint, "error", err)
	}
}

func searchCacheKey(q SearchQuery) string {
	return fmt.Sprintf("search:%s|%.4f,%.4f|r%d|n%d",
		strings.ToLower(strings.TrimSpace(q.Query)), q.Lat, q.Lng, q.RadiusMeters, q.MaxResults)
}

func searchParams(q SearchQuery) map[string]any {
	return map[string]any{
		"query":         q.Query,
		"lat":           q.Lat,
		"lng":           q.Lng,
		"radius_meters": q.RadiusMeters,
		"max_results":   q.MaxResults,
	}
}
