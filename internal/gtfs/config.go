package gtfs

import (
	"time"

	"github.com/kcole93/metroflow-api-sub000/internal/appconf"
)

// DefaultFeedBaseURL is the upstream GTFS-Realtime endpoint prefix; feed
// paths from feeds.go are appended to it.
const DefaultFeedBaseURL = "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/"

type Config struct {
	// StaticRoot contains one directory per system (lirr/, mnr/, subway/),
	// each holding the GTFS tables.
	StaticRoot string

	// Timezone is the operational time zone, e.g. "America/New_York".
	Timezone string

	FeedBaseURL string

	// RefreshInterval controls the periodic static reload. Zero disables it.
	RefreshInterval time.Duration

	// Cache TTL overrides for the feed fetcher; zero keeps the defaults.
	SubwayFeedTTL time.Duration
	RailFeedTTL   time.Duration
	AlertsFeedTTL time.Duration

	Env     appconf.Environment
	Verbose bool
}

// Location resolves the operational time zone, defaulting to UTC when the
// zone name is unknown so queries degrade rather than fail.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
