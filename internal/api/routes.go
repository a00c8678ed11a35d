// Package api wires the HTTP routes for the restaurant search service.
package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tablescout/tablescout/internal/api/handlers"
	"github.com/tablescout/tablescout/internal/cache"
)

// Deps holds the router's dependencies. Searcher and Details are usually the
// same *places.Client; Costs and Geocode may be nil when unconfigured.
type Deps struct {
	Searcher handlers.RestaurantSearcher
	Details  handlers.DetailsFetcher
	Geocode  handlers.AddressResolver
	Weather  handlers.WeatherFetcher
	Costs    handlers.CostReader
	Caches   map[string]*cache.Synced
	StatsHub *handlers.StatsHub
}

// NewRouter builds the API router.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	// Search and place details
	r.HandleFunc("/api/search", handlers.SearchRestaurants(d.Searcher, d.Geocode)).Methods("GET")
	r.HandleFunc("/api/places/{id}", handlers.GetPlaceDetails(d.Details)).Methods("GET")

	// Weather
	r.HandleFunc("/api/weather", handlers.GetWeather(d.Weather)).Methods("GET")

	// Cost log
	r.HandleFunc("/api/costs", handlers.GetCosts(d.Costs)).Methods("GET")

	// Cache administration
	cacheAdmin := handlers.NewCacheAdminHandler(d.Caches)
	r.HandleFunc("/api/admin/cache/stats", cacheAdmin.GetStats).Methods("GET")
	r.HandleFunc("/api/admin/cache/invalidate", cacheAdmin.Invalidate).Methods("POST")

	// Live stats stream
	if d.StatsHub != nil {
		r.HandleFunc("/api/stats/live", d.StatsHub.ServeWS)
	}

	// Operational endpoints
	r.HandleFunc("/health", handlers.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return r
}
