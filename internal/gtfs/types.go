package gtfs

import (
	"strings"
	"sync"
	"time"
)

// System identifies one of the three co-located transit systems.
type System string

const (
	SystemLIRR   System = "LIRR"
	SystemMNR    System = "MNR"
	SystemSubway System = "SUBWAY"
)

// Systems lists every known system in a stable order.
var Systems = []System{SystemLIRR, SystemMNR, SystemSubway}

// ParseSystem validates a system name as supplied by a client.
func ParseSystem(s string) (System, bool) {
	switch System(strings.ToUpper(s)) {
	case SystemLIRR:
		return SystemLIRR, true
	case SystemMNR:
		return SystemMNR, true
	case SystemSubway:
		return SystemSubway, true
	}
	return "", false
}

const idSeparator = "-"

// NamespacedID joins a system and an upstream identifier. The upstream
// realtime feeds and static files key by the original identifier, so both
// forms are kept on every entity.
func NamespacedID(system System, originalID string) string {
	return string(system) + idSeparator + originalID
}

// SplitNamespacedID returns the system and original identifier of a
// namespaced ID, or false if the prefix is not a known system.
func SplitNamespacedID(id string) (System, string, bool) {
	for _, system := range Systems {
		prefix := string(system) + idSeparator
		if strings.HasPrefix(id, prefix) {
			return system, id[len(prefix):], true
		}
	}
	return "", "", false
}

// Stop is a station or platform. Parent stops are stations; child stops are
// platforms, and departures are predicted at platforms.
type Stop struct {
	ID               string // namespaced
	OriginalID       string
	Name             string
	Lat              float64
	Lon              float64
	HasLocation      bool
	ParentStationID  string // namespaced, or empty
	LocationType     int
	ChildStopIDs     map[string]struct{} // original ids
	ServedByRouteIDs map[string]struct{} // original route ids
	FeedURLs         map[string]struct{}
	System           System
	Borough          string
}

// PlatformIDs returns the station's child stop original IDs, falling back to
// the stop's own original ID when it has no children.
func (s *Stop) PlatformIDs() []string {
	if len(s.ChildStopIDs) == 0 {
		return []string{s.OriginalID}
	}
	ids := make([]string, 0, len(s.ChildStopIDs))
	for id := range s.ChildStopIDs {
		ids = append(ids, id)
	}
	return ids
}

type Route struct {
	ID         string // namespaced
	OriginalID string
	AgencyID   string
	ShortName  string
	LongName   string
	Type       int
	Color      string
	TextColor  string
	System     System
}

// DirectionNone marks a trip whose direction_id was absent or empty.
const DirectionNone int8 = -1

// Trip is keyed by its raw (unnamespaced) trip ID because the realtime
// feeds emit raw trip IDs.
type Trip struct {
	ID                string
	RouteID           string // original
	ServiceID         string
	Headsign          string
	ShortName         string
	PeakOffPeak       string // "0", "1", or empty
	DirectionID       int8   // 0, 1, or DirectionNone
	BlockID           string
	ShapeID           string
	System            System
	DestinationStopID string // original, computed from stop_times
	VehicleLabel      string
	Accessible        bool
	BikesAllowed      bool
}

// StopTime links a trip to a stop. Times are service-day strings
// ("HH:MM:SS"); hours 24-29 roll into the next civil day.
type StopTime struct {
	ArrivalTime   string
	DepartureTime string
	StopSequence  int
	Track         string
}

// Calendar is one row of calendar.txt: a weekday mask bounded by a date
// window. Dates are "YYYYMMDD" strings, comparable lexicographically.
type Calendar struct {
	ServiceID string
	Weekdays  [7]bool // indexed by time.Weekday
	StartDate string
	EndDate   string
}

const (
	// ExceptionAdded and ExceptionRemoved are calendar_dates exception types.
	ExceptionAdded   = 1
	ExceptionRemoved = 2
)

type CalendarDate struct {
	ServiceID     string
	Date          string // "YYYYMMDD"
	ExceptionType int
}

// StaticIndex is the read-only view of the static timetable corpus. It is
// built wholesale, published under an atomic pointer, and never mutated
// after publication.
type StaticIndex struct {
	Stops  map[string]*Stop  // namespaced stop ID
	Routes map[string]*Route // namespaced route ID
	Trips  map[string]*Trip  // raw trip ID

	// StopTimes is keyed by original stop ID, then raw trip ID. The
	// departure path iterates platform (original) IDs against it.
	StopTimes map[string]map[string]*StopTime

	// TripsByShortName resolves commuter-rail realtime identifiers that do
	// not match static trip IDs.
	TripsByShortName map[string]string

	// TripsByVehicleLabel resolves MNR realtime entities by vehicle label.
	TripsByVehicleLabel map[string]string

	Calendars     map[string]*Calendar
	CalendarDates map[string][]CalendarDate

	BuiltAt time.Time

	// activeServiceMemo caches calendar resolution by civil date string.
	// It lives on the index so a refresh naturally discards stale entries.
	activeServiceMemo sync.Map
}

// StopsMatching returns stations (and standalone stops) whose name contains
// the query, optionally restricted to one system. Platforms with a parent
// are excluded; clients address stations.
func (idx *StaticIndex) StopsMatching(query string, system System) []*Stop {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []*Stop
	for _, stop := range idx.Stops {
		if stop.ParentStationID != "" {
			continue
		}
		if system != "" && stop.System != system {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(stop.Name), q) {
			continue
		}
		out = append(out, stop)
	}
	return out
}
