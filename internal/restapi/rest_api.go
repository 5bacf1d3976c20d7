// Package restapi serves the read-only JSON query surface over the static
// index and the realtime engines.
package restapi

import (
	"time"

	"github.com/kcole93/metroflow-api-sub000/internal/alerts"
	"github.com/kcole93/metroflow-api-sub000/internal/app"
	"github.com/kcole93/metroflow-api-sub000/internal/departures"
)

type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware
	departures  *departures.Engine
	alerts      *alerts.Engine
}

// NewRestAPI builds the API with its engines and a shared rate limiter.
func NewRestAPI(application *app.Application) *RestAPI {
	return &RestAPI{
		Application: application,
		rateLimiter: NewRateLimitMiddleware(application.Config.RateLimit, time.Second),
		departures:  departures.NewEngine(application.GtfsManager, application.Fetcher, application.Clock),
		alerts:      alerts.NewEngine(application.GtfsManager, application.Fetcher, application.Clock),
	}
}

// Shutdown releases background resources. Safe to call more than once.
func (api *RestAPI) Shutdown() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
}
