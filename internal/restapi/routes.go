package restapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// limited wraps a handler with rate limiting and response compression.
func (api *RestAPI) limited(handler http.HandlerFunc) http.Handler {
	compressed := CompressionMiddleware(handler)
	if api.rateLimiter == nil {
		// Tests that construct RestAPI directly skip the limiter.
		return compressed
	}
	return api.rateLimiter.Handler()(compressed)
}

// SetRoutes registers all API endpoints. Health and metrics are never
// rate limited.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", api.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("GET /stations", api.limited(api.stationsHandler))
	mux.Handle("GET /departures/{stationId}", api.limited(api.departuresHandler))
	mux.Handle("GET /alerts", api.limited(api.alertsHandler))
}
