// Package weather wraps the OpenWeatherMap API for weather-aware dining
// recommendations, flagging whether conditions suit outdoor seating.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tablescout/tablescout/internal/apierr"
	"github.com/tablescout/tablescout/internal/cache"
	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/httpx"
	"github.com/tablescout/tablescout/internal/metrics"
	"github.com/tablescout/tablescout/internal/models"
	"github.com/tablescout/tablescout/internal/tracing"
)

const (
	// Provider is the label used in metrics and the cost log.
	Provider = "openweathermap"

	defaultBaseURL = "https://api.openweathermap.org/data/2.5"
)

// Conditions that rule out outdoor dining.
var badConditions = map[string]bool{
	"rain":         true,
	"snow":         true,
	"thunderstorm": true,
	"drizzle":      true,
}

// Client fetches current and forecast weather with a bounded response cache.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cache   *cache.Synced
	now     func() time.Time
}

// Options configures a Client. Zero-value fields fall back to config.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Cache      *cache.Synced
}

// New creates a weather client. The API key is required.
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
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  opts.APIKey,
		http:    httpClient,
		cache:   respCache,
		now:     time.Now,
	}, nil
}

// weatherPayload mirrors the OpenWeatherMap current-weather shape; forecast
// list entries share it.
type weatherPayload struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	DtTxt string `json:"dt_txt"`
}

type forecastResponse struct {
	List []weatherPayload `json:"list"`
}

// Get returns weather for a location and optional date (YYYY-MM-DD). An
// empty or today's date uses current conditions; future dates use the
// 5-day/3-hour forecast. Results are cached for the configured weather max
// age.
func (c *Client) Get(ctx context.Context, lat, lng float64, date string) (models.WeatherInfo, error) {
	cfg := config.Load()

	key := cacheKey(lat, lng, date)
	if v, ok := c.cache.Get(key, cfg.WeatherMaxAge); ok {
		metrics.CacheHits.WithLabelValues("weather").Inc()
		return v.(models.WeatherInfo), nil
	}
	metrics.CacheMisses.WithLabelValues("weather").Inc()

	today := c.now().UTC().Format("2006-01-02")
	useForecast := date != "" && date != today

	var info models.WeatherInfo
	var err error
	if useForecast {
		info, err = c.fetchForecast(ctx, lat, lng, date)
	} else {
		info, err = c.fetchCurrent(ctx, lat, lng)
	}
	if err != nil {
		return models.WeatherInfo{}, err
	}

	c.cache.Set(key, info)
	return info, nil
}

func (c *Client) fetchCurrent(ctx context.Context, lat, lng float64) (models.WeatherInfo, error) {
	ctx, span := tracing.ProviderCallSpan(ctx, Provider, "weather")
	defer span.End()

	var payload weatherPayload
	if err := c.fetch(ctx, "/weather", lat, lng, &payload); err != nil {
		metrics.ProviderCallsTotal.WithLabelValues(Provider, "weather", "error").Inc()
		return models.WeatherInfo{}, err
	}
	metrics.ProviderCallsTotal.WithLabelValues(Provider, "weather", "success").Inc()
	return parseWeather(payload), nil
}

// fetchForecast pulls the 5-day/3-hour forecast and picks the entry closest
// to noon on the target date.
func (c *Client) fetchForecast(ctx context.Context, lat, lng float64, date string) (models.WeatherInfo, error) {
	ctx, span := tracing.ProviderCallSpan(ctx, Provider, "forecast")
	defer span.End()

	var payload forecastResponse
	if err := c.fetch(ctx, "/forecast", lat, lng, &payload); err != nil {
		metrics.ProviderCallsTotal.WithLabelValues(Provider, "forecast", "error").Inc()
		return models.WeatherInfo{}, err
	}
	metrics.ProviderCallsTotal.WithLabelValues(Provider, "forecast", "success").Inc()

	if len(payload.List) == 0 {
		return parseWeather(weatherPayload{}), nil
	}

	target, err := time.Parse("2006-01-02 15:04:05", date+" 12:00:00")
	if err != nil {
		return models.WeatherInfo{}, apierr.ValidationInvalidValue("date", "date must be YYYY-MM-DD")
	}

	best := payload.List[0]
	bestDiff := math.Inf(1)
	for _, entry := range payload.List {
		ts, err := time.Parse("2006-01-02 15:04:05", entry.DtTxt)
		if err != nil {
			continue
		}
		diff := math.Abs(ts.Sub(target).Seconds())
		if diff < bestDiff {
			best = entry
			bestDiff = diff
		}
	}
	return parseWeather(best), nil
}

func (c *Client) fetch(ctx context.Context, path string, lat, lng float64, out any) error {
	build := func(ctx context.Context) (*http.Request, error) {
		q := url.Values{}
		q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
		q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
		q.Set("units", "imperial")
		q.Set("appid", c.apiKey)
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	}

	resp, err := httpx.DoWithRetry(ctx, c.http, build, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if apiErr := apierr.ClassifyStatus(Provider, resp.StatusCode); apiErr != nil {
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apierr.ProviderSchema(Provider, err.Error())
	}
	return nil
}

func parseWeather(p weatherPayload) models.WeatherInfo {
	condition := "unknown"
	description := ""
	if len(p.Weather) > 0 {
		condition = strings.ToLower(p.Weather[0].Main)
		description = p.Weather[0].Description
	}
	return models.WeatherInfo{
		TemperatureF:    p.Main.Temp,
		Condition:       condition,
		Description:     description,
		OutdoorSuitable: outdoorSuitable(p.Main.Temp, condition, p.Wind.Speed),
		WindMPH:         p.Wind.Speed,
		Humidity:        p.Main.Humidity,
	}
}

// outdoorSuitable reports whether conditions suit patio seating: 55-95F,
// no precipitation, wind under 20 mph.
func outdoorSuitable(tempF float64, condition string, windMPH float64) bool {
	return tempF >= 55 && tempF <= 95 && !badConditions[condition] && windMPH < 20
}

func cacheKey(lat, lng float64, date string) string {
	if date == "" {
		date = "now"
	}
	return fmt.Sprintf("weather:%.2f,%.2f,%s", lat, lng, date)
}
