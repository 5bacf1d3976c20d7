package models

// Station is one entry in the /stations response.
type Station struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	System    string   `json:"system"`
	Lat       float64  `json:"lat,omitempty"`
	Lon       float64  `json:"lon,omitempty"`
	Borough   string   `json:"borough,omitempty"`
	RouteIDs  []string `json:"routeIds"`
	Platforms []string `json:"platforms,omitempty"`
}

// DepartureSource tags where a departure came from.
type DepartureSource string

const (
	SourceRealtime  DepartureSource = "realtime"
	SourceScheduled DepartureSource = "scheduled"
)

// Departure is one entry in the /departures response, ordered by
// (direction rank, time).
type Departure struct {
	TripID             string          `json:"tripId"`
	RouteID            string          `json:"routeId"`
	System             string          `json:"system"`
	Direction          Direction       `json:"direction"`
	Destination        string          `json:"destination"`
	DestinationBorough string          `json:"destinationBorough,omitempty"`
	Time               int64           `json:"time"` // unix millis; 0 means unknown
	Status             string          `json:"status"`
	DelayMinutes       *int            `json:"delayMinutes,omitempty"`
	Track              string          `json:"track,omitempty"`
	Peak               string          `json:"peak,omitempty"`
	IsTerminalArrival  bool            `json:"isTerminalArrival,omitempty"`
	IsAccessible       bool            `json:"isAccessible,omitempty"`
	BikesAllowed       bool            `json:"bikesAllowed,omitempty"`
	Source             DepartureSource `json:"source"`
}

// ActivePeriod is an alert validity window in unix millis. Zero bounds are
// open.
type ActivePeriod struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

// AlertLabels carries optional human-readable names for affected entities.
type AlertLabels struct {
	Lines    map[string]string `json:"lines,omitempty"`
	Stations map[string]string `json:"stations,omitempty"`
}

// Alert is one entry in the /alerts response.
type Alert struct {
	ID               string         `json:"id"`
	Header           string         `json:"header"`
	Description      string         `json:"description,omitempty"`
	AffectedLines    []string       `json:"affectedLines"`
	AffectedStations []string       `json:"affectedStations"`
	ActivePeriods    []ActivePeriod `json:"activePeriods"`
	PrimaryPeriod    *ActivePeriod  `json:"primaryPeriod,omitempty"`
	Labels           *AlertLabels   `json:"labels,omitempty"`
}
