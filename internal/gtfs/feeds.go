package gtfs

import "strings"

// The upstream feed layout is fixed: the subway publishes one GTFS-Realtime
// feed per route group, each railroad publishes a single feed, and service
// alerts for all systems arrive on one consolidated feed. Paths are joined
// to the configured feed base URL.
const (
	feedPathACE     = "nyct%2Fgtfs-ace"
	feedPathBDFM    = "nyct%2Fgtfs-bdfm"
	feedPathG       = "nyct%2Fgtfs-g"
	feedPathJZ      = "nyct%2Fgtfs-jz"
	feedPathNQRW    = "nyct%2Fgtfs-nqrw"
	feedPathL       = "nyct%2Fgtfs-l"
	feedPathNumeric = "nyct%2Fgtfs"
	feedPathSI      = "nyct%2Fgtfs-si"
	feedPathLIRR    = "lirr%2Fgtfs-lirr"
	feedPathMNR     = "mnr%2Fgtfs-mnr"

	// AlertsFeedPath is the consolidated service alert feed.
	AlertsFeedPath = "camsys%2Fall-alerts"
)

// subwayRouteFeeds maps subway route original IDs to their feed path.
var subwayRouteFeeds = map[string]string{
	"A": feedPathACE, "C": feedPathACE, "E": feedPathACE,
	"B": feedPathBDFM, "D": feedPathBDFM, "F": feedPathBDFM, "M": feedPathBDFM,
	"G": feedPathG,
	"J": feedPathJZ, "Z": feedPathJZ,
	"N": feedPathNQRW, "Q": feedPathNQRW, "R": feedPathNQRW, "W": feedPathNQRW,
	"L": feedPathL,
	"1": feedPathNumeric, "2": feedPathNumeric, "3": feedPathNumeric,
	"4": feedPathNumeric, "5": feedPathNumeric, "6": feedPathNumeric,
	"7": feedPathNumeric, "GS": feedPathNumeric,
	"SI": feedPathSI,
}

// FeedPathForRoute returns the realtime feed path serving a route.
func FeedPathForRoute(system System, routeOriginalID string) (string, bool) {
	switch system {
	case SystemLIRR:
		return feedPathLIRR, true
	case SystemMNR:
		return feedPathMNR, true
	case SystemSubway:
		path, ok := subwayRouteFeeds[routeOriginalID]
		return path, ok
	}
	return "", false
}

// FeedURLSystem derives the system a feed URL belongs to.
func FeedURLSystem(feedURL string) (System, bool) {
	switch {
	case strings.Contains(feedURL, "lirr"):
		return SystemLIRR, true
	case strings.Contains(feedURL, "mnr"):
		return SystemMNR, true
	case strings.Contains(feedURL, "nyct"):
		return SystemSubway, true
	}
	return "", false
}

// agencySystems maps alert informed_entity agency IDs to systems. Bus
// agencies are absent on purpose; their route references are skipped.
var agencySystems = map[string]System{
	"MTASBWY":  SystemSubway,
	"MTA NYCT": SystemSubway,
	"LI":       SystemLIRR,
	"MNR":      SystemMNR,
}

// busAgencies are agency IDs whose informed entities are ignored entirely
// on the route side.
var busAgencies = map[string]struct{}{
	"MTA NYCT BUS": {},
	"MTABC":        {},
	"MTA BUS":      {},
}

// SystemForAgency resolves an alert agency ID. The second return reports
// whether the agency is a bus system.
func SystemForAgency(agencyID string) (System, bool, bool) {
	if _, bus := busAgencies[agencyID]; bus {
		return "", true, false
	}
	system, ok := agencySystems[agencyID]
	return system, false, ok
}

// MNRTerminalStopID is the shared downtown terminal for Metro-North. Its
// position in a trip's stop sequence determines direction when nothing else
// does, and an arrival there is a terminal arrival.
const MNRTerminalStopID = "1"
