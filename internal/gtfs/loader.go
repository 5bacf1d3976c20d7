package gtfs

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kcole93/metroflow-api-sub000/internal/geo"
)

// LoadStaticIndex builds a complete StaticIndex from the corpus rooted at
// cfg.StaticRoot, one directory per system. The passes are ordered; each
// must complete before the next begins. Any table or row error aborts the
// load and the caller keeps whatever index it already had.
func LoadStaticIndex(cfg Config, geoIndex *geo.Index) (*StaticIndex, error) {
	// Pass 1: parse every system's tables in parallel.
	tables := make([]*systemTables, len(Systems))
	errs := make([]error, len(Systems))
	var wg sync.WaitGroup
	for i, system := range Systems {
		wg.Add(1)
		go func(i int, system System) {
			defer wg.Done()
			tables[i], errs[i] = parseSystemTables(cfg.StaticRoot, system)
		}(i, system)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	idx := &StaticIndex{
		Stops:               make(map[string]*Stop),
		Routes:              make(map[string]*Route),
		Trips:               make(map[string]*Trip),
		StopTimes:           make(map[string]map[string]*StopTime),
		TripsByShortName:    make(map[string]string),
		TripsByVehicleLabel: make(map[string]string),
		Calendars:           make(map[string]*Calendar),
		CalendarDates:       make(map[string][]CalendarDate),
		BuiltAt:             time.Now(),
	}

	// Pass 2: routes, under namespaced keys.
	for _, t := range tables {
		if err := buildRoutes(idx, t); err != nil {
			return nil, err
		}
	}

	// Pass 3: one scan of all stop_times to find each trip's destination,
	// the stop at the maximum stop_sequence. Ties resolve last-wins in
	// file order.
	destinations, err := computeDestinations(tables)
	if err != nil {
		return nil, err
	}

	// Pass 4: trips, keyed by raw trip ID.
	for _, t := range tables {
		if err := buildTrips(idx, t, destinations); err != nil {
			return nil, err
		}
	}

	// Pass 5: stops, with geo region resolution.
	for _, t := range tables {
		if err := buildStops(idx, t, geoIndex); err != nil {
			return nil, err
		}
	}

	// Pass 6: link children to parents.
	linkChildStops(idx)

	// Pass 7: the stop-time lookup, keyed by original stop ID.
	for _, t := range tables {
		if err := buildStopTimeLookup(idx, t); err != nil {
			return nil, err
		}
	}

	// Pass 8: route and feed linkage on stops and their parents.
	linkRoutesAndFeeds(idx, cfg.FeedBaseURL)

	// Pass 9: auxiliary realtime-resolution indexes.
	buildAuxIndexes(idx)

	// Calendars are not pass-ordered against the above; they only need to
	// exist before the index is published.
	for _, t := range tables {
		if err := buildCalendars(idx, t); err != nil {
			return nil, err
		}
	}

	validateTripServices(idx)

	return idx, nil
}

func buildRoutes(idx *StaticIndex, t *systemTables) error {
	for _, row := range t.routes {
		originalID := strings.TrimSpace(row.RouteID)
		if originalID == "" {
			return fmt.Errorf("%s routes: empty route_id", t.system)
		}
		routeType, err := parseOptionalInt(row.RouteType, 0)
		if err != nil {
			return fmt.Errorf("%s route %s: bad route_type: %w", t.system, originalID, err)
		}
		route := &Route{
			ID:         NamespacedID(t.system, originalID),
			OriginalID: originalID,
			AgencyID:   strings.TrimSpace(row.AgencyID),
			ShortName:  strings.TrimSpace(row.RouteShortName),
			LongName:   strings.TrimSpace(row.RouteLongName),
			Type:       routeType,
			Color:      strings.TrimSpace(row.RouteColor),
			TextColor:  strings.TrimSpace(row.RouteTextColor),
			System:     t.system,
		}
		idx.Routes[route.ID] = route
	}
	return nil
}

func computeDestinations(tables []*systemTables) (map[string]string, error) {
	type maxSeq struct {
		seq    int
		stopID string
	}
	winners := make(map[string]maxSeq)
	for _, t := range tables {
		for _, row := range t.stopTimes {
			tripID := strings.TrimSpace(row.TripID)
			stopID := strings.TrimSpace(row.StopID)
			seq, err := strconv.Atoi(strings.TrimSpace(row.StopSequence))
			if err != nil {
				return nil, fmt.Errorf("%s stop_times trip %s: bad stop_sequence %q: %w",
					t.system, tripID, row.StopSequence, err)
			}
			// Last-wins on equal sequence: >= keeps file order ties.
			if w, ok := winners[tripID]; !ok || seq >= w.seq {
				winners[tripID] = maxSeq{seq: seq, stopID: stopID}
			}
		}
	}
	destinations := make(map[string]string, len(winners))
	for tripID, w := range winners {
		destinations[tripID] = w.stopID
	}
	return destinations, nil
}

func buildTrips(idx *StaticIndex, t *systemTables, destinations map[string]string) error {
	for _, row := range t.trips {
		tripID := strings.TrimSpace(row.TripID)
		if tripID == "" {
			return fmt.Errorf("%s trips: empty trip_id", t.system)
		}

		directionID := DirectionNone
		if raw := strings.TrimSpace(row.DirectionID); raw != "" {
			d, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("%s trip %s: bad direction_id %q: %w", t.system, tripID, raw, err)
			}
			directionID = int8(d)
		}

		trip := &Trip{
			ID:                tripID,
			RouteID:           strings.TrimSpace(row.RouteID),
			ServiceID:         strings.TrimSpace(row.ServiceID),
			Headsign:          strings.TrimSpace(row.TripHeadsign),
			ShortName:         strings.TrimSpace(row.TripShortName),
			PeakOffPeak:       strings.TrimSpace(row.PeakOffPeak),
			DirectionID:       directionID,
			BlockID:           strings.TrimSpace(row.BlockID),
			ShapeID:           strings.TrimSpace(row.ShapeID),
			System:            t.system,
			DestinationStopID: destinations[tripID],
			VehicleLabel:      strings.TrimSpace(row.VehicleLabel),
			Accessible:        strings.TrimSpace(row.WheelchairAccessible) == "1",
			BikesAllowed:      strings.TrimSpace(row.BikesAllowed) == "1",
		}
		idx.Trips[trip.ID] = trip
	}
	return nil
}

func buildStops(idx *StaticIndex, t *systemTables, geoIndex *geo.Index) error {
	for _, row := range t.stops {
		originalID := strings.TrimSpace(row.StopID)
		if originalID == "" {
			return fmt.Errorf("%s stops: empty stop_id", t.system)
		}

		stop := &Stop{
			ID:               NamespacedID(t.system, originalID),
			OriginalID:       originalID,
			Name:             strings.TrimSpace(row.StopName),
			ChildStopIDs:     make(map[string]struct{}),
			ServedByRouteIDs: make(map[string]struct{}),
			FeedURLs:         make(map[string]struct{}),
			System:           t.system,
		}

		// Coordinates stay unset when they fail to parse; upstream exports
		// leave them blank for some service stops.
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(row.StopLat), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(row.StopLon), 64)
		if latErr == nil && lonErr == nil {
			stop.Lat, stop.Lon = lat, lon
			stop.HasLocation = true
			if geoIndex != nil {
				if borough, ok := geoIndex.Lookup(lat, lon); ok {
					stop.Borough = borough
				}
			}
		}

		if parent := strings.TrimSpace(row.ParentStation); parent != "" {
			stop.ParentStationID = NamespacedID(t.system, parent)
		}

		locationType, err := parseOptionalInt(row.LocationType, 0)
		if err != nil {
			return fmt.Errorf("%s stop %s: bad location_type: %w", t.system, originalID, err)
		}
		stop.LocationType = locationType

		idx.Stops[stop.ID] = stop
	}
	return nil
}

func linkChildStops(idx *StaticIndex) {
	for _, stop := range idx.Stops {
		if stop.ParentStationID == "" {
			continue
		}
		parent, ok := idx.Stops[stop.ParentStationID]
		if !ok {
			slog.Warn("stop references unknown parent station",
				slog.String("stop", stop.ID),
				slog.String("parent", stop.ParentStationID))
			continue
		}
		parent.ChildStopIDs[stop.OriginalID] = struct{}{}
	}
}

func buildStopTimeLookup(idx *StaticIndex, t *systemTables) error {
	for _, row := range t.stopTimes {
		tripID := strings.TrimSpace(row.TripID)
		stopID := strings.TrimSpace(row.StopID)
		seq, err := strconv.Atoi(strings.TrimSpace(row.StopSequence))
		if err != nil {
			return fmt.Errorf("%s stop_times trip %s: bad stop_sequence %q: %w",
				t.system, tripID, row.StopSequence, err)
		}
		byTrip, ok := idx.StopTimes[stopID]
		if !ok {
			byTrip = make(map[string]*StopTime)
			idx.StopTimes[stopID] = byTrip
		}
		byTrip[tripID] = &StopTime{
			ArrivalTime:   strings.TrimSpace(row.ArrivalTime),
			DepartureTime: strings.TrimSpace(row.DepartureTime),
			StopSequence:  seq,
			Track:         strings.TrimSpace(row.Track),
		}
	}
	return nil
}

// linkRoutesAndFeeds walks the stop-time lookup once and projects each
// entry onto its stop and that stop's parent: the serving route's original
// ID and the route's feed URL land on both.
func linkRoutesAndFeeds(idx *StaticIndex, feedBaseURL string) {
	for stopOriginalID, byTrip := range idx.StopTimes {
		for tripID := range byTrip {
			trip, ok := idx.Trips[tripID]
			if !ok {
				continue
			}
			route, ok := idx.Routes[NamespacedID(trip.System, trip.RouteID)]
			if !ok {
				continue
			}
			stop, ok := idx.Stops[NamespacedID(trip.System, stopOriginalID)]
			if !ok {
				continue
			}

			feedPath, haveFeed := FeedPathForRoute(trip.System, route.OriginalID)
			feedURL := feedBaseURL + feedPath

			stop.ServedByRouteIDs[route.OriginalID] = struct{}{}
			if haveFeed {
				stop.FeedURLs[feedURL] = struct{}{}
			}
			if stop.ParentStationID != "" {
				if parent, ok := idx.Stops[stop.ParentStationID]; ok {
					parent.ServedByRouteIDs[route.OriginalID] = struct{}{}
					if haveFeed {
						parent.FeedURLs[feedURL] = struct{}{}
					}
				}
			}
		}
	}
}

func buildAuxIndexes(idx *StaticIndex) {
	for _, trip := range idx.Trips {
		if trip.ShortName != "" {
			idx.TripsByShortName[trip.ShortName] = trip.ID
		}
		if trip.System == SystemMNR && trip.VehicleLabel != "" {
			idx.TripsByVehicleLabel[trip.VehicleLabel] = trip.ID
		}
	}
}

func buildCalendars(idx *StaticIndex, t *systemTables) error {
	for _, row := range t.calendars {
		serviceID := strings.TrimSpace(row.ServiceID)
		if serviceID == "" {
			return fmt.Errorf("%s calendar: empty service_id", t.system)
		}
		cal := &Calendar{
			ServiceID: serviceID,
			StartDate: strings.TrimSpace(row.StartDate),
			EndDate:   strings.TrimSpace(row.EndDate),
		}
		days := []struct {
			raw     string
			weekday time.Weekday
		}{
			{row.Monday, time.Monday},
			{row.Tuesday, time.Tuesday},
			{row.Wednesday, time.Wednesday},
			{row.Thursday, time.Thursday},
			{row.Friday, time.Friday},
			{row.Saturday, time.Saturday},
			{row.Sunday, time.Sunday},
		}
		for _, d := range days {
			v, err := parseOptionalInt(d.raw, 0)
			if err != nil {
				return fmt.Errorf("%s calendar %s: bad weekday flag: %w", t.system, serviceID, err)
			}
			cal.Weekdays[d.weekday] = v == 1
		}
		idx.Calendars[serviceID] = cal
	}

	for _, row := range t.calendarDates {
		serviceID := strings.TrimSpace(row.ServiceID)
		exceptionType, err := strconv.Atoi(strings.TrimSpace(row.ExceptionType))
		if err != nil {
			return fmt.Errorf("%s calendar_dates %s: bad exception_type: %w", t.system, serviceID, err)
		}
		idx.CalendarDates[serviceID] = append(idx.CalendarDates[serviceID], CalendarDate{
			ServiceID:     serviceID,
			Date:          strings.TrimSpace(row.Date),
			ExceptionType: exceptionType,
		})
	}
	return nil
}

// validateTripServices logs trips whose service ID is unknown. Such trips
// are tolerated but never emitted by the scheduled pass.
func validateTripServices(idx *StaticIndex) {
	for _, trip := range idx.Trips {
		if trip.ServiceID == "" {
			continue
		}
		if _, ok := idx.Calendars[trip.ServiceID]; ok {
			continue
		}
		if _, ok := idx.CalendarDates[trip.ServiceID]; ok {
			continue
		}
		slog.Warn("trip references unknown service",
			slog.String("trip", trip.ID),
			slog.String("service", trip.ServiceID),
			slog.String("system", string(trip.System)))
	}
}

func parseOptionalInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
