package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tablescout/tablescout/internal/apierr"
	"github.com/tablescout/tablescout/internal/models"
	"github.com/tablescout/tablescout/internal/places"
	"github.com/tablescout/tablescout/internal/tracing"
)

// RestaurantSearcher abstracts restaurant search for testability.
type RestaurantSearcher interface {
	Search(ctx context.Context, q places.SearchQuery) ([]models.Restaurant, error)
}

// AddressResolver abstracts geocoding for testability.
type AddressResolver interface {
	Resolve(ctx context.Context, address string) (models.Coordinates, error)
}

// SearchResponse is the payload for GET /api/search.
type SearchResponse struct {
	Results []models.Restaurant `json:"results"`
	Count   int                 `json:"count"`
	Center  models.Coordinates  `json:"center"`
}

// SearchRestaurants handles GET /api/search. The center comes either from
// lat/lng parameters or from geocoding a "near" address.
func SearchRestaurants(s RestaurantSearcher, g AddressResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.StartSpan(r.Context(), "handlers.SearchRestaurants")
		defer span.End()

		query := strings.TrimSpace(r.URL.Query().Get("query"))
		if query == "" {
			writeError(w, r, apierr.SearchInvalidQuery("query parameter is required"))
			return
		}

		center, err := resolveCenter(ctx, g, r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		sq := places.SearchQuery{Query: query, Lat: center.Lat, Lng: center.Lng}
		if v := r.URL.Query().Get("radius"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, r, apierr.ValidationInvalidValue("radius", "radius must be a positive integer of meters"))
				return
			}
			sq.RadiusMeters = n
		}
		if v := r.URL.Query().Get("max_results"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, r, apierr.ValidationInvalidValue("max_results", "max_results must be a positive integer"))
				return
			}
			sq.MaxResults = n
		}

		span.SetAttributes(
			attribute.String("search_query", query),
			attribute.Float64("lat", center.Lat),
			attribute.Float64("lng", center.Lng),
		)

		results, err := s.Search(ctx, sq)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, SearchResponse{
			Results: results,
			Count:   len(results),
			Center:  center,
		})
	}
}

// resolveCenter picks the search center from lat/lng params or a geocoded
// "near" address.
func resolveCenter(ctx context.Context, g AddressResolver, r *http.Request) (models.Coordinates, error) {
	latStr := r.URL.Query().Get("lat")
	lngStr := r.URL.Query().Get("lng")
	near := strings.TrimSpace(r.URL.Query().Get("near"))

	if latStr != "" || lngStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return models.Coordinates{}, apierr.ValidationInvalidValue("lat", "")
		}
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil {
			return models.Coordinates{}, apierr.ValidationInvalidValue("lng", "")
		}
		return models.Coordinates{Lat: lat, Lng: lng}, nil
	}

	if near == "" {
		return models.Coordinates{}, apierr.ValidationMissingField("lat/lng or near")
	}
	if g == nil {
		return models.Coordinates{}, apierr.ProviderNotConfigured("google_geocoding")
	}
	return g.Resolve(ctx, near)
}
