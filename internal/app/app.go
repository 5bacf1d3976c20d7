// Package app wires the long-lived dependencies shared by every request
// handler.
package app

import (
	"log/slog"

	"github.com/kcole93/metroflow-api-sub000/internal/appconf"
	"github.com/kcole93/metroflow-api-sub000/internal/clock"
	"github.com/kcole93/metroflow-api-sub000/internal/feed"
	"github.com/kcole93/metroflow-api-sub000/internal/gtfs"
)

type Application struct {
	Config      appconf.Config
	GtfsConfig  gtfs.Config
	Logger      *slog.Logger
	GtfsManager *gtfs.Manager
	Fetcher     *feed.Fetcher
	Clock       clock.Clock
}
