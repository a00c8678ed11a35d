package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/tablescout/tablescout/internal/apierr"
	"github.com/tablescout/tablescout/internal/db"
	"github.com/tablescout/tablescout/internal/tracing"
)

// CostReader abstracts the cost log for testability.
type CostReader interface {
	CostsByProvider(ctx context.Context, since time.Time) ([]db.ProviderCost, error)
	DailyCosts(ctx context.Context, since time.Time) ([]db.DailyCost, error)
	TotalCostCents(ctx context.Context, since time.Time) (float64, error)
}

// CostsResponse is the payload for GET /api/costs.
type CostsResponse struct {
	Since          time.Time         `json:"since"`
	TotalCostCents float64           `json:"total_cost_cents"`
	ByProvider     []db.ProviderCost `json:"by_provider"`
	Daily          []db.DailyCost    `json:"daily"`
}

// GetCosts handles GET /api/costs?days=N (default 30).
func GetCosts(q CostReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.StartSpan(r.Context(), "handlers.GetCosts")
		defer span.End()

		if q == nil {
			writeError(w, r, apierr.SystemUnavailable("cost log is not configured"))
			return
		}

		days := 30
		if v := r.URL.Query().Get("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 365 {
				writeError(w, r, apierr.ValidationInvalidValue("days", "days must be between 1 and 365"))
				return
			}
			days = n
		}
		since := time.Now().AddDate(0, 0, -days)

		total, err := q.TotalCostCents(ctx, since)
		if err != nil {
			writeError(w, r, apierr.SystemDatabase(""))
			return
		}
		byProvider, err := q.CostsByProvider(ctx, since)
		if err != nil {
			writeError(w, r, apierr.SystemDatabase(""))
			return
		}
		daily, err := q.DailyCosts(ctx, since)
		if err != nil {
			writeError(w, r, apierr.SystemDatabase(""))
			return
		}

		writeJSON(w, http.StatusOK, CostsResponse{
			Since:          since,
			TotalCostCents: total,
			ByProvider:     byProvider,
			Daily:          daily,
		})
	}
}
