package gtfs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"
)

func init() {
	// LazyCSVReader survives sloppy quoting in upstream exports; the BOM
	// reader strips unicode byte order marks if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})
}

// Every field is declared as a string: the static corpus is string-typed by
// definition, and each field is trimmed before interpretation.

type stopRow struct {
	StopID        string `csv:"stop_id"`
	StopName      string `csv:"stop_name"`
	StopLat       string `csv:"stop_lat"`
	StopLon       string `csv:"stop_lon"`
	LocationType  string `csv:"location_type"`
	ParentStation string `csv:"parent_station"`
}

type routeRow struct {
	RouteID        string `csv:"route_id"`
	AgencyID       string `csv:"agency_id"`
	RouteShortName string `csv:"route_short_name"`
	RouteLongName  string `csv:"route_long_name"`
	RouteType      string `csv:"route_type"`
	RouteColor     string `csv:"route_color"`
	RouteTextColor string `csv:"route_text_color"`
}

type tripRow struct {
	RouteID              string `csv:"route_id"`
	ServiceID            string `csv:"service_id"`
	TripID               string `csv:"trip_id"`
	TripHeadsign         string `csv:"trip_headsign"`
	TripShortName        string `csv:"trip_short_name"`
	DirectionID          string `csv:"direction_id"`
	BlockID              string `csv:"block_id"`
	ShapeID              string `csv:"shape_id"`
	PeakOffPeak          string `csv:"peak_offpeak"`
	VehicleLabel         string `csv:"vehicle_label"`
	WheelchairAccessible string `csv:"wheelchair_accessible"`
	BikesAllowed         string `csv:"bikes_allowed"`
}

type stopTimeRow struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  string `csv:"stop_sequence"`
	Track         string `csv:"track"`
}

type calendarRow struct {
	ServiceID string `csv:"service_id"`
	Monday    string `csv:"monday"`
	Tuesday   string `csv:"tuesday"`
	Wednesday string `csv:"wednesday"`
	Thursday  string `csv:"thursday"`
	Friday    string `csv:"friday"`
	Saturday  string `csv:"saturday"`
	Sunday    string `csv:"sunday"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
}

type calendarDateRow struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType string `csv:"exception_type"`
}

// systemTables holds one system's raw corpus after the parallel parse pass.
type systemTables struct {
	system        System
	stops         []*stopRow
	routes        []*routeRow
	trips         []*tripRow
	stopTimes     []*stopTimeRow
	calendars     []*calendarRow
	calendarDates []*calendarDateRow
}

func parseTable[T any](dir, name string, out *[]T) error {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.Unmarshal(f, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// parseSystemTables reads one system's tables from root/<system>/. The
// calendar tables are individually optional, but at least one must exist.
func parseSystemTables(root string, system System) (*systemTables, error) {
	dir := filepath.Join(root, strings.ToLower(string(system)))

	t := &systemTables{system: system}
	if err := parseTable(dir, "stops.txt", &t.stops); err != nil {
		return nil, err
	}
	if err := parseTable(dir, "routes.txt", &t.routes); err != nil {
		return nil, err
	}
	if err := parseTable(dir, "trips.txt", &t.trips); err != nil {
		return nil, err
	}
	if err := parseTable(dir, "stop_times.txt", &t.stopTimes); err != nil {
		return nil, err
	}

	haveCalendar := false
	if _, err := os.Stat(filepath.Join(dir, "calendar.txt")); err == nil {
		if err := parseTable(dir, "calendar.txt", &t.calendars); err != nil {
			return nil, err
		}
		haveCalendar = true
	}
	if _, err := os.Stat(filepath.Join(dir, "calendar_dates.txt")); err == nil {
		if err := parseTable(dir, "calendar_dates.txt", &t.calendarDates); err != nil {
			return nil, err
		}
		haveCalendar = true
	}
	if !haveCalendar {
		return nil, fmt.Errorf("%s: missing calendar.txt and calendar_dates.txt", dir)
	}

	return t, nil
}
