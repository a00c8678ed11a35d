package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/tablescout/tablescout/internal/apierr"
	"github.com/tablescout/tablescout/internal/models"
	"github.com/tablescout/tablescout/internal/tracing"
)

// WeatherFetcher abstracts weather lookup for testability.
type WeatherFetcher interface {
	Get(ctx context.Context, lat, lng float64, date string) (models.WeatherInfo, error)
}

// GetWeather handles GET /api/weather?lat=..&lng=..&date=YYYY-MM-DD.
func GetWeather(f WeatherFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.StartSpan(r.Context(), "handlers.GetWeather")
		defer span.End()

		if f == nil {
			writeError(w, r, apierr.ProviderNotConfigured("openweathermap"))
			return
		}

		lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
		if err != nil {
			writeError(w, r, apierr.ValidationInvalidValue("lat", ""))
			return
		}
		lng, err := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
		if err != nil {
			writeError(w, r, apierr.ValidationInvalidValue("lng", ""))
			return
		}

		date := r.URL.Query().Get("date")
		if date != "" {
			if _, err := time.Parse("2006-01-02", date); err != nil {
				writeError(w, r, apierr.ValidationInvalidValue("date", "date must be YYYY-MM-DD"))
				return
			}
		}

		info, err := f.Get(ctx, lat, lng, date)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, info)
	}
}
