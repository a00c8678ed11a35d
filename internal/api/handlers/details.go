package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tablescout/tablescout/internal/models"
	"github.com/tablescout/tablescout/internal/tracing"
)

// DetailsFetcher abstracts place detail lookup for testability.
type DetailsFetcher interface {
	Details(ctx context.Context, placeID string) (*models.Restaurant, error)
}

// GetPlaceDetails handles GET /api/places/{id}.
func GetPlaceDetails(f DetailsFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.StartSpan(r.Context(), "handlers.GetPlaceDetails")
		defer span.End()

		placeID := mux.Vars(r)["id"]
		restaurant, err := f.Details(ctx, placeID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, restaurant)
	}
}
