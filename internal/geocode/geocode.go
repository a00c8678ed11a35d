// Package geocode resolves street addresses to coordinates via the Google
// Geocoding API, caching results aggressively since addresses rarely move.
package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/tablescout/tablescout/internal/apierr"
	"github.com/tablescout/tablescout/internal/cache"
	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/httpx"
	"github.com/tablescout/tablescout/internal/logger"
	"github.com/tablescout/tablescout/internal/metrics"
	"github.com/tablescout/tablescout/internal/models"
	"github.com/tablescout/tablescout/internal/tracing"
)

const (
	// Provider is the label used in metrics and the cost log.
	Provider = "google_geocoding"

	defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"
)

// Client resolves addresses with a bounded response cache in front.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cache   *cache.Synced
}

// Options configures a Client. Zero-value fields fall back to config.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Cache      *cache.Synced
}

// New creates a geocoding client. The API key is required.
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

	return &Client{
		baseURL: baseURL,
		apiKey:  opts.APIKey,
		http:    httpClient,
		cache:   respCache,
	}, nil
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Resolve geocodes an address to coordinates. A cached result younger than
// the configured geocode max age is returned without an upstream call.
func (c *Client) Resolve(ctx context.Context, address string) (models.Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return models.Coordinates{}, apierr.ValidationMissingField("address")
	}
	cfg := config.Load()

	key := "geocode:" + strings.ToLower(address)
	if v, ok := c.cache.Get(key, cfg.GeocodeMaxAge); ok {
		metrics.CacheHits.WithLabelValues("geocode").Inc()
		return v.(models.Coordinates), nil
	}
	metrics.CacheMisses.WithLabelValues("geocode").Inc()

	ctx, span := tracing.ProviderCallSpan(ctx, Provider, "geocode")
	defer span.End()

	build := func(ctx context.Context) (*http.Request, error) {
		q := url.Values{}
		q.Set("address", address)
		q.Set("key", c.apiKey)
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	}

	resp, err := httpx.DoWithRetry(ctx, c.http, build, nil)
	if err != nil {
		metrics.ProviderCallsTotal.WithLabelValues(Provider, "geocode", "error").Inc()
		return models.Coordinates{}, err
	}
	defer resp.Body.Close()

	if apiErr := apierr.ClassifyStatus(Provider, resp.StatusCode); apiErr != nil {
		metrics.ProviderCallsTotal.WithLabelValues(Provider, "geocode", "error").Inc()
		return models.Coordinates{}, apiErr
	}

	var parsed geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.ProviderCallsTotal.WithLabelValues(Provider, "geocode", "error").Inc()
		return models.Coordinates{}, apierr.ProviderSchema(Provider, err.Error())
	}

	// The API reports logical failures through a status field on HTTP 200.
	if parsed.Status != "OK" || len(parsed.Results) == 0 {
		metrics.ProviderCallsTotal.WithLabelValues(Provider, "geocode", "error").Inc()
		logger.Warn("geocode: lookup failed", "address", address, "status", parsed.Status)
		return models.Coordinates{}, apierr.ResourceNotFound("address")
	}

	loc := parsed.Results[0].Geometry.Location
	coords := models.Coordinates{Lat: loc.Lat, Lng: loc.Lng}
	c.cache.Set(key, coords)
	metrics.ProviderCallsTotal.WithLabelValues(Provider, "geocode", "success").Inc()
	return coords, nil
}
