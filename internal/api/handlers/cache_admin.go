package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/tablescout/tablescout/internal/apierr"
	"github.com/tablescout/tablescout/internal/cache"
)

// CacheAdminHandler exposes stats and invalidation for the named response
// caches (places, geocode, weather).
type CacheAdminHandler struct {
	caches map[string]*cache.Synced
}

// NewCacheAdminHandler creates a cache admin handler over the given caches.
func NewCacheAdminHandler(caches map[string]*cache.Synced) *CacheAdminHandler {
	return &CacheAdminHandler{caches: caches}
}

// CacheStats describes one cache in the stats response.
type CacheStats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Entries int     `json:"entries"`
}

// GetStats handles GET /api/admin/cache/stats.
func (h *CacheAdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]CacheStats, len(h.caches))
	for name, c := range h.caches {
		m := c.Stats()
		stats[name] = CacheStats{
			Hits:    m.Hits,
			Misses:  m.Misses,
			HitRate: m.HitRate(),
			Entries: c.Size(),
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

type invalidateRequest struct {
	Cache string `json:"cache,omitempty"` // empty means all caches
	Key   string `json:"key,omitempty"`   // empty means every entry
}

type invalidateResponse struct {
	Status      string   `json:"status"`
	Invalidated []string `json:"invalidated"`
}

// Invalidate handles POST /api/admin/cache/invalidate. With no body (or an
// empty one) every cache is cleared; a body can narrow it to one cache or a
// single key.
func (h *CacheAdminHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
			writeError(w, r, apierr.ValidationInvalidJSON())
			return
		}
	}

	targets := h.caches
	if req.Cache != "" {
		c, ok := h.caches[req.Cache]
		if !ok {
			writeError(w, r, apierr.ResourceNotFound("cache"))
			return
		}
		targets = map[string]*cache.Synced{req.Cache: c}
	}

	var cleared []string
	for name, c := range targets {
		if req.Key != "" {
			if c.Invalidate(req.Key) {
				cleared = append(cleared, name)
			}
			continue
		}
		c.Clear()
		cleared = append(cleared, name)
	}
	sort.Strings(cleared)

	writeJSON(w, http.StatusOK, invalidateResponse{Status: "ok", Invalidated: cleared})
}
