package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sqlc-dev/pqtype"

	"github.com/tablescout/tablescout/internal/metrics"
)

// APICall is one row of the provider cost log.
type APICall struct {
	ID         int64
	Provider   string
	Endpoint   string
	CostCents  float64
	StatusCode int
	Cached     bool
	Params     pqtype.NullRawMessage
	CreatedAt  time.Time
}

// ProviderCost aggregates spend for one provider/endpoint pair.
type ProviderCost struct {
	Provider       string  `json:"provider"`
	Endpoint       string  `json:"endpoint"`
	Calls          int64   `json:"calls"`
	CachedCalls    int64   `json:"cached_calls"`
	TotalCostCents float64 `json:"total_cost_cents"`
}

// DailyCost aggregates spend per calendar day.
type DailyCost struct {
	Day            time.Time `json:"day"`
	Calls          int64     `json:"calls"`
	TotalCostCents float64   `json:"total_cost_cents"`
}

const insertAPICall = `
INSERT INTO api_calls (provider, endpoint, cost_cents, status_code, cached, params)
VALUES ($1, $2, $3, $4, $5, $6)
`

// LogAPICall records a billed (or cache-served) provider call. Params are
// stored as JSONB for later inspection; a nil map is stored as SQL NULL.
func (q *Queries) LogAPICall(ctx context.Context, provider, endpoint string, costCents float64, statusCode int, cached bool, params map[string]any) error {
	start := time.Now()

	var raw pqtype.NullRawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		raw = pqtype.NullRawMessage{RawMessage: b, Valid: true}
	}

	_, err := q.db.ExecContext(ctx, insertAPICall, provider, endpoint, costCents, statusCode, cached, raw)
	metrics.DBOperationDuration.WithLabelValues("log_api_call").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DBOperationErrors.WithLabelValues("log_api_call").Inc()
	}
	return err
}

const costsByProvider = `
SELECT provider, endpoint,
       COUNT(*) AS calls,
       COUNT(*) FILTER (WHERE cached) AS cached_calls,
       COALESCE(SUM(cost_cents), 0) AS total_cost_cents
FROM api_calls
WHERE created_at >= $1
GROUP BY provider, endpoint
ORDER BY total_cost_cents DESC
`

// CostsByProvider returns per-provider/endpoint spend since the given time.
func (q *Queries) CostsByProvider(ctx context.Context, since time.Time) ([]ProviderCost, error) {
	start := time.Now()
	rows, err := q.db.QueryContext(ctx, costsByProvider, since)
	metrics.DBOperationDuration.WithLabelValues("costs_by_provider").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DBOperationErrors.WithLabelValues("costs_by_provider").Inc()
		return nil, err
	}
	defer rows.Close()

	var costs []ProviderCost
	for rows.Next() {
		var c ProviderCost
		if err := rows.Scan(&c.Provider, &c.Endpoint, &c.Calls, &c.CachedCalls, &c.TotalCostCents); err != nil {
			return nil, err
		}
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

const dailyCosts = `
SELECT date_trunc('day', created_at) AS day,
       COUNT(*) AS calls,
       COALESCE(SUM(cost_cents), 0) AS total_cost_cents
FROM api_calls
WHERE created_at >= $1
GROUP BY day
ORDER BY day
`

// DailyCosts returns per-day spend since the given time.
func (q *Queries) DailyCosts(ctx context.Context, since time.Time) ([]DailyCost, error) {
	start := time.Now()
	rows, err := q.db.QueryContext(ctx, dailyCosts, since)
	metrics.DBOperationDuration.WithLabelValues("daily_costs").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DBOperationErrors.WithLabelValues("daily_costs").Inc()
		return nil, err
	}
	defer rows.Close()

	var costs []DailyCost
	for rows.Next() {
		var c DailyCost
		if err := rows.Scan(&c.Day, &c.Calls, &c.TotalCostCents); err != nil {
			return nil, err
		}
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

const totalCostCents = `
SELECT COALESCE(SUM(cost_cents), 0) FROM api_calls WHERE created_at >= $1
`

// TotalCostCents returns total spend since the given time.
func (q *Queries) TotalCostCents(ctx context.Context, since time.Time) (float64, error) {
	start := time.Now()
	var total float64
	err := q.db.QueryRowContext(ctx, totalCostCents, since).Scan(&total)
	metrics.DBOperationDuration.WithLabelValues("total_cost_cents").Observe(time.Since(start).Seconds())
	if err != nil && err != sql.ErrNoRows {
		metrics.DBOperationErrors.WithLabelValues("total_cost_cents").Inc()
		return 0, err
	}
	return total, nil
}

const recentAPICalls = `
SELECT id, provider, endpoint, cost_cents, status_code, cached, params, created_at
FROM api_calls
ORDER BY created_at DESC
LIMIT $1
`

// RecentAPICalls returns the most recent cost log rows, newest first.
func (q *Queries) RecentAPICalls(ctx context.Context, limit int) ([]APICall, error) {
	if limit <= 0 {
		limit = 50
	}
	start := time.Now()
	rows, err := q.db.QueryContext(ctx, recentAPICalls, limit)
	metrics.DBOperationDuration.WithLabelValues("recent_api_calls").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DBOperationErrors.WithLabelValues("recent_api_calls").Inc()
		return nil, err
	}
	defer rows.Close()

	var calls []APICall
	for rows.Next() {
		var c APICall
		if err := rows.Scan(&c.ID, &c.Provider, &c.Endpoint, &c.CostCents, &c.StatusCode, &c.Cached, &c.Params, &c.CreatedAt); err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// EnsureSchema creates the api_calls table if it does not exist.
func (q *Queries) EnsureSchema(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS api_calls (
    id          BIGSERIAL PRIMARY KEY,
    provider    TEXT NOT NULL,
    endpoint    TEXT NOT NULL,
    cost_cents  DOUBLE PRECISION NOT NULL DEFAULT 0,
    status_code INTEGER NOT NULL,
    cached      BOOLEAN NOT NULL DEFAULT FALSE,
    params      JSONB,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_api_calls_created_at ON api_calls (created_at);
CREATE INDEX IF NOT EXISTS idx_api_calls_provider ON api_calls (provider, endpoint);
`)
	return err
}
