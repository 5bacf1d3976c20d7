package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/kcole93/metroflow-api-sub000/internal/appconf"
	"github.com/kcole93/metroflow-api-sub000/internal/gtfs"
	"github.com/kcole93/metroflow-api-sub000/internal/restapi"
)

func main() {
	var cfg appconf.Config
	var gtfsCfg gtfs.Config
	var envFlag string

	flag.IntVar(&cfg.Port, "port", 4000, "API server port")
	flag.StringVar(&envFlag, "env", "development", "Environment (development|test|production)")
	flag.IntVar(&cfg.RateLimit, "rate-limit", 100, "Requests per second per client for rate limiting")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable debug logging")
	flag.StringVar(&gtfsCfg.StaticRoot, "static-root", "./data", "Directory holding one GTFS subdirectory per system (lirr, mnr, subway)")
	flag.StringVar(&gtfsCfg.Timezone, "timezone", "America/New_York", "Operational time zone")
	flag.StringVar(&gtfsCfg.FeedBaseURL, "feed-base-url", gtfs.DefaultFeedBaseURL, "Base URL for GTFS-Realtime feeds")
	flag.DurationVar(&gtfsCfg.RefreshInterval, "refresh-interval", 24*time.Hour, "Static data reload interval (0 disables)")
	flag.DurationVar(&gtfsCfg.SubwayFeedTTL, "subway-feed-ttl", 0, "Subway feed cache TTL override")
	flag.DurationVar(&gtfsCfg.RailFeedTTL, "rail-feed-ttl", 0, "Railroad feed cache TTL override")
	flag.DurationVar(&gtfsCfg.AlertsFeedTTL, "alerts-feed-ttl", 0, "Alerts feed cache TTL override")
	flag.Parse()

	cfg.Env = appconf.EnvFlagToEnvironment(envFlag)
	gtfsCfg.Env = cfg.Env
	gtfsCfg.Verbose = cfg.Verbose

	coreApp, err := BuildApplication(cfg, gtfsCfg)
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	api := restapi.NewRestAPI(coreApp)
	srv := CreateServer(coreApp, api, cfg)

	if err := Run(srv, coreApp, api); err != nil {
		coreApp.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
