// Package departures reconciles realtime trip updates with the static
// timetable into a single departure board per station. Realtime entries win;
// scheduled entries fill in only where no realtime identity claimed the trip.
package departures

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/kcole93/metroflow-api-sub000/internal/clock"
	"github.com/kcole93/metroflow-api-sub000/internal/feed"
	"github.com/kcole93/metroflow-api-sub000/internal/gtfs"
	"github.com/kcole93/metroflow-api-sub000/internal/logging"
	"github.com/kcole93/metroflow-api-sub000/internal/models"
)

// lookbehind keeps departures that just left visible on the board.
const lookbehind = 60 * time.Second

// DefaultLimitMinutes bounds the board window when the client does not.
const DefaultLimitMinutes = 30

// SourceFilter restricts which pipeline feeds the departure board.
type SourceFilter string

const (
	FilterAll       SourceFilter = ""
	FilterRealtime  SourceFilter = "realtime"
	FilterScheduled SourceFilter = "scheduled"
)

// ParseSourceFilter validates a client-supplied source parameter.
func ParseSourceFilter(s string) (SourceFilter, bool) {
	switch SourceFilter(strings.ToLower(s)) {
	case FilterAll, FilterRealtime, FilterScheduled:
		return SourceFilter(strings.ToLower(s)), true
	}
	return "", false
}

// Engine owns the reconciliation of realtime feeds against the static index.
type Engine struct {
	manager *gtfs.Manager
	fetcher *feed.Fetcher
	clock   clock.Clock
}

func NewEngine(manager *gtfs.Manager, fetcher *feed.Fetcher, clk clock.Clock) *Engine {
	return &Engine{manager: manager, fetcher: fetcher, clock: clk}
}

// Departures builds the board for one station. The second return reports
// whether the station exists; an unknown station yields an empty board.
func (e *Engine) Departures(ctx context.Context, stationID string, limitMinutes int, filter SourceFilter) ([]models.Departure, bool) {
	idx := e.manager.Index()
	station, ok := idx.Stops[stationID]
	if !ok {
		return nil, false
	}
	if limitMinutes <= 0 {
		limitMinutes = DefaultLimitMinutes
	}

	now := e.clock.Now().In(e.manager.Location())
	windowStart := now.Add(-lookbehind)
	windowEnd := now.Add(time.Duration(limitMinutes) * time.Minute)

	platforms := make(map[string]struct{})
	for _, id := range station.PlatformIDs() {
		platforms[id] = struct{}{}
	}

	// processed collects every identifier under which a realtime trip could
	// later be matched by the scheduled pass.
	processed := make(map[string]struct{})

	var out []models.Departure
	if filter != FilterScheduled {
		out = e.realtimePass(ctx, idx, station, platforms, now, windowStart, windowEnd, processed)
	}

	if filter != FilterRealtime {
		// The railroads publish sparse realtime coverage, so their boards
		// always merge in the timetable. The subway feed is authoritative;
		// its timetable shows only when realtime produced nothing.
		runScheduled := station.System != gtfs.SystemSubway || len(out) == 0
		if filter == FilterScheduled {
			runScheduled = true
		}
		if runScheduled {
			out = append(out, e.scheduledPass(idx, station, platforms, now, windowStart, windowEnd, processed)...)
		}
	}

	sortDepartures(out)
	return out, true
}

// sortDepartures orders a board by direction rank, then time. Entries with
// no usable time sink to the end of their direction group. The sort is
// stable so equal entries keep pipeline order, realtime first.
func sortDepartures(deps []models.Departure) {
	sort.SliceStable(deps, func(i, j int) bool {
		ri, rj := deps[i].Direction.Rank(), deps[j].Direction.Rank()
		if ri != rj {
			return ri < rj
		}
		ti, tj := deps[i].Time, deps[j].Time
		if (ti == 0) != (tj == 0) {
			return tj == 0
		}
		return ti < tj
	})
}

type feedResult struct {
	system gtfs.System
	msg    *gtfsrt.FeedMessage
}

func (e *Engine) realtimePass(ctx context.Context, idx *gtfs.StaticIndex, station *gtfs.Stop, platforms map[string]struct{}, now, windowStart, windowEnd time.Time, processed map[string]struct{}) []models.Departure {
	logger := logging.FromContext(ctx).With(
		slog.String("component", "departure_engine"),
		slog.String("station", station.ID))

	urls := make([]string, 0, len(station.FeedURLs))
	for u := range station.FeedURLs {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	results := make([]feedResult, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		system, ok := gtfs.FeedURLSystem(u)
		if !ok {
			logger.Warn("feed url matches no system", slog.String("url", u))
			continue
		}
		wg.Add(1)
		go func(i int, feedURL string, system gtfs.System) {
			defer wg.Done()
			results[i] = feedResult{
				system: system,
				msg:    e.fetcher.FetchAndDecode(ctx, feedURL, logicalFeedName(feedURL)),
			}
		}(i, u, system)
	}
	wg.Wait()

	var out []models.Departure
	for _, result := range results {
		if result.msg == nil {
			continue
		}
		out = append(out, e.processFeed(idx, result.system, result.msg, station, platforms, now, windowStart, windowEnd, processed)...)
	}
	return out
}

func (e *Engine) processFeed(idx *gtfs.StaticIndex, system gtfs.System, msg *gtfsrt.FeedMessage, station *gtfs.Stop, platforms map[string]struct{}, now, windowStart, windowEnd time.Time, processed map[string]struct{}) []models.Departure {
	var out []models.Departure
	for _, entity := range msg.GetEntity() {
		update := entity.GetTripUpdate()
		if update == nil || len(update.GetStopTimeUpdate()) == 0 {
			continue
		}
		rawTripID := update.GetTrip().GetTripId()
		if rawTripID == "" {
			continue
		}
		if _, dup := processed[rawTripID]; dup {
			continue
		}

		trip, matchKeys := resolveStaticTrip(idx, system, update)

		updates := update.GetStopTimeUpdate()
		lastStopID := lastUpdateStopID(updates)
		direction := tripDirection(system, update, trip, updates)
		destination, destBorough := e.destination(idx, system, trip, lastStopID)
		routeID, routeLongName := e.resolveRoute(idx, system, update, trip)
		if destination == "" {
			destination = routeLongName
		}

		for _, stu := range updates {
			if _, served := platforms[stu.GetStopId()]; !served {
				continue
			}

			when, usedArrival := relevantTime(system, stu)
			if when == 0 {
				continue
			}
			t := time.Unix(when, 0)
			if t.Before(windowStart) || t.After(windowEnd) {
				continue
			}

			terminal := usedArrival &&
				(stu.GetStopId() == lastStopID ||
					(system == gtfs.SystemMNR && stu.GetStopId() == gtfs.MNRTerminalStopID))

			delaySec := stu.GetDeparture().GetDelay()
			if delaySec == 0 {
				delaySec = stu.GetArrival().GetDelay()
			}
			var delayMin *int
			if delaySec != 0 {
				v := delayMinutes(delaySec)
				delayMin = &v
			}

			dep := models.Departure{
				TripID:             rawTripID,
				RouteID:            routeID,
				System:             string(system),
				Direction:          direction,
				Destination:        destination,
				DestinationBorough: destBorough,
				Time:               when * 1000,
				Status:             deriveStatus(delayMin, t.Sub(now)),
				DelayMinutes:       delayMin,
				Track:              trackFor(stu),
				IsTerminalArrival:  terminal,
				Source:             models.SourceRealtime,
			}
			if trip != nil {
				dep.Peak = peakLabel(trip.PeakOffPeak)
				dep.IsAccessible = trip.Accessible
				dep.BikesAllowed = trip.BikesAllowed
			}
			out = append(out, dep)
		}

		if trip != nil {
			matchKeys = append(matchKeys, trip.ID)
			if trip.ShortName != "" {
				matchKeys = append(matchKeys, trip.ShortName)
			}
			if trip.VehicleLabel != "" {
				matchKeys = append(matchKeys, trip.VehicleLabel)
			}
		}
		for _, key := range matchKeys {
			processed[key] = struct{}{}
		}
	}
	return out
}

// resolveStaticTrip maps a realtime trip identity onto the static timetable.
// The subway and the LIRR publish static trip IDs directly. MNR realtime
// identities go through the vehicle label, then the trip short name, then a
// zero-stripped trip ID. Every key consulted is returned so the caller can
// mark them all processed.
func resolveStaticTrip(idx *gtfs.StaticIndex, system gtfs.System, update *gtfsrt.TripUpdate) (*gtfs.Trip, []string) {
	raw := update.GetTrip().GetTripId()
	keys := []string{raw}
	if stripped := stripLeadingZeros(raw); stripped != raw {
		keys = append(keys, stripped)
	}

	if system != gtfs.SystemMNR {
		return idx.Trips[raw], keys
	}

	if label := update.GetVehicle().GetLabel(); label != "" {
		keys = append(keys, label)
		if tripID, ok := idx.TripsByVehicleLabel[label]; ok {
			return idx.Trips[tripID], keys
		}
	}
	if tripID, ok := idx.TripsByShortName[raw]; ok {
		return idx.Trips[tripID], keys
	}
	return idx.Trips[stripLeadingZeros(raw)], keys
}

func stripLeadingZeros(id string) string {
	trimmed := strings.TrimLeft(id, "0")
	if trimmed == "" && id != "" {
		return "0"
	}
	return trimmed
}

// lastUpdateStopID returns the stop of the highest-sequence update, falling
// back to positional order when sequences are absent.
func lastUpdateStopID(updates []*gtfsrt.TripUpdate_StopTimeUpdate) string {
	if len(updates) == 0 {
		return ""
	}
	last := updates[len(updates)-1]
	best := last.GetStopSequence()
	for _, stu := range updates {
		if stu.GetStopSequence() > best {
			best = stu.GetStopSequence()
			last = stu
		}
	}
	return last.GetStopId()
}

func firstUpdateStopID(updates []*gtfsrt.TripUpdate_StopTimeUpdate) string {
	if len(updates) == 0 {
		return ""
	}
	first := updates[0]
	best := first.GetStopSequence()
	for _, stu := range updates {
		if stu.GetStopSequence() < best {
			best = stu.GetStopSequence()
			first = stu
		}
	}
	return first.GetStopId()
}

// tripDirection derives the signed direction. The subway carries it in the
// vendor trip extension; the railroads carry a direction_id on the static
// trip. An MNR trip with neither is classified by where the shared terminal
// sits in its update sequence.
func tripDirection(system gtfs.System, update *gtfsrt.TripUpdate, trip *gtfs.Trip, updates []*gtfsrt.TripUpdate_StopTimeUpdate) models.Direction {
	if system == gtfs.SystemSubway {
		if ext := feed.NyctTrip(update.GetTrip()); ext != nil {
			switch ext.Direction {
			case feed.NyctDirectionNorth:
				return models.DirectionNorth
			case feed.NyctDirectionSouth:
				return models.DirectionSouth
			}
		}
		return models.DirectionUnknown
	}

	if trip != nil {
		if d := railDirection(trip.DirectionID); d != models.DirectionUnknown {
			return d
		}
	}

	if system == gtfs.SystemMNR {
		switch gtfs.MNRTerminalStopID {
		case lastUpdateStopID(updates):
			return models.DirectionInbound
		case firstUpdateStopID(updates):
			return models.DirectionOutbound
		}
	}
	return models.DirectionUnknown
}

// railDirection maps a static direction_id under the railroad convention.
func railDirection(directionID int8) models.Direction {
	switch directionID {
	case 0:
		return models.DirectionOutbound
	case 1:
		return models.DirectionInbound
	}
	return models.DirectionUnknown
}

// destination names where the trip is going. MNR riders know trains by
// headsign, so MNR prefers it; elsewhere the realtime path is fresher than
// the timetable text. The borough is carried along whenever the name came
// from a located stop.
func (e *Engine) destination(idx *gtfs.StaticIndex, system gtfs.System, trip *gtfs.Trip, lastStopID string) (string, string) {
	headsign := ""
	staticDestName, staticDestBorough := "", ""
	if trip != nil {
		headsign = trip.Headsign
		if trip.DestinationStopID != "" {
			if stop, ok := idx.Stops[gtfs.NamespacedID(system, trip.DestinationStopID)]; ok {
				staticDestName, staticDestBorough = stop.Name, stop.Borough
			}
		}
	}
	lastName, lastBorough := "", ""
	if lastStopID != "" {
		if stop, ok := idx.Stops[gtfs.NamespacedID(system, lastStopID)]; ok {
			lastName, lastBorough = stop.Name, stop.Borough
		}
	}

	if system == gtfs.SystemMNR {
		switch {
		case headsign != "":
			return headsign, ""
		case staticDestName != "":
			return staticDestName, staticDestBorough
		default:
			return lastName, lastBorough
		}
	}
	switch {
	case lastName != "":
		return lastName, lastBorough
	case staticDestName != "":
		return staticDestName, staticDestBorough
	default:
		return headsign, ""
	}
}

// resolveRoute returns the namespaced route ID and the route long name. The
// realtime route reference wins over the static trip's.
func (e *Engine) resolveRoute(idx *gtfs.StaticIndex, system gtfs.System, update *gtfsrt.TripUpdate, trip *gtfs.Trip) (string, string) {
	original := update.GetTrip().GetRouteId()
	if original == "" && trip != nil {
		original = trip.RouteID
	}
	if original == "" {
		return "", ""
	}
	id := gtfs.NamespacedID(system, original)
	longName := ""
	if route, ok := idx.Routes[id]; ok {
		longName = route.LongName
	}
	return id, longName
}

// relevantTime picks the event anchoring a board entry. Departure wins; the
// railroads additionally board pure arrivals so terminal trains still show.
func relevantTime(system gtfs.System, stu *gtfsrt.TripUpdate_StopTimeUpdate) (int64, bool) {
	if t := stu.GetDeparture().GetTime(); t > 0 {
		return t, false
	}
	if system != gtfs.SystemSubway {
		if t := stu.GetArrival().GetTime(); t > 0 {
			return t, true
		}
	}
	return 0, false
}

// trackFor reads the posted track. The subway posts it on the NYCT update
// extension; the railroads post it on their own update extension and
// occasionally on the arrival or departure event instead.
func trackFor(stu *gtfsrt.TripUpdate_StopTimeUpdate) string {
	if ext := feed.NyctStopTime(stu); ext != nil && ext.ActualTrack != "" {
		return ext.ActualTrack
	}
	if ext := feed.RailroadStopTime(stu); ext != nil && ext.Track != "" {
		return ext.Track
	}
	if track := feed.EventTrack(stu.GetDeparture()); track != "" {
		return track
	}
	return feed.EventTrack(stu.GetArrival())
}

func peakLabel(code string) string {
	switch code {
	case "1":
		return "Peak"
	case "0":
		return "Off-Peak"
	}
	return ""
}

func (e *Engine) scheduledPass(idx *gtfs.StaticIndex, station *gtfs.Stop, platforms map[string]struct{}, now, windowStart, windowEnd time.Time, processed map[string]struct{}) []models.Departure {
	active := idx.ActiveServiceIDs(now)

	var out []models.Departure
	for platform := range platforms {
		for tripID, stopTime := range idx.StopTimes[platform] {
			trip, ok := idx.Trips[tripID]
			if !ok || trip.System != station.System {
				continue
			}
			if isProcessed(processed, tripID, trip) {
				continue
			}
			if _, running := active[trip.ServiceID]; !running {
				continue
			}

			timeText := stopTime.DepartureTime
			if timeText == "" {
				timeText = stopTime.ArrivalTime
			}
			t, err := parseServiceDayTime(timeText, now)
			if err != nil {
				continue
			}
			if t.Before(windowStart) || t.After(windowEnd) {
				continue
			}

			destination, destBorough := scheduledDestination(idx, trip)
			routeID := gtfs.NamespacedID(trip.System, trip.RouteID)
			if destination == "" {
				if route, ok := idx.Routes[routeID]; ok {
					destination = route.LongName
				}
			}

			visibleTripID := tripID
			if trip.System == gtfs.SystemMNR && trip.ShortName != "" {
				visibleTripID = trip.ShortName
			}

			out = append(out, models.Departure{
				TripID:             visibleTripID,
				RouteID:            routeID,
				System:             string(trip.System),
				Direction:          scheduledDirection(trip),
				Destination:        destination,
				DestinationBorough: destBorough,
				Time:               t.Unix() * 1000,
				Status:             StatusScheduled,
				Track:              stopTime.Track,
				Peak:               peakLabel(trip.PeakOffPeak),
				IsAccessible:       trip.Accessible,
				BikesAllowed:       trip.BikesAllowed,
				Source:             models.SourceScheduled,
			})
		}
	}
	return out
}

// scheduledDestination names a timetable trip's destination. With no
// realtime stop list the headsign leads for every system.
func scheduledDestination(idx *gtfs.StaticIndex, trip *gtfs.Trip) (string, string) {
	if trip.Headsign != "" {
		return trip.Headsign, ""
	}
	if trip.DestinationStopID != "" {
		if stop, ok := idx.Stops[gtfs.NamespacedID(trip.System, trip.DestinationStopID)]; ok {
			return stop.Name, stop.Borough
		}
	}
	return "", ""
}

func scheduledDirection(trip *gtfs.Trip) models.Direction {
	if trip.System == gtfs.SystemSubway {
		// Subway timetable trip IDs end in "..N" or "..S". The subway
		// export's direction_id tracks the service pattern, not the compass
		// direction the realtime feed signs, so the suffix is authoritative.
		if i := strings.LastIndex(trip.ID, "."); i >= 0 && i+1 < len(trip.ID) {
			switch trip.ID[i+1] {
			case 'N':
				return models.DirectionNorth
			case 'S':
				return models.DirectionSouth
			}
		}
		return models.DirectionUnknown
	}
	return railDirection(trip.DirectionID)
}

// isProcessed reports whether the realtime pass already claimed this trip
// under any of its identities.
func isProcessed(processed map[string]struct{}, tripID string, trip *gtfs.Trip) bool {
	if _, ok := processed[tripID]; ok {
		return true
	}
	if _, ok := processed[stripLeadingZeros(tripID)]; ok {
		return true
	}
	if trip.ShortName != "" {
		if _, ok := processed[trip.ShortName]; ok {
			return true
		}
	}
	if trip.VehicleLabel != "" {
		if _, ok := processed[trip.VehicleLabel]; ok {
			return true
		}
	}
	return false
}

// parseServiceDayTime resolves an "HH:MM:SS" service-day string against the
// civil date of now. Hours 24 through 29 belong to the previous service day
// and roll into the next civil day.
func parseServiceDayTime(value string, now time.Time) (time.Time, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("malformed service time %q", value)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed service time %q: %w", value, err)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed service time %q: %w", value, err)
	}
	ss, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed service time %q: %w", value, err)
	}
	if hh < 0 || hh > 29 || mm < 0 || mm > 59 || ss < 0 || ss > 59 {
		return time.Time{}, fmt.Errorf("service time %q out of range", value)
	}

	dayOffset := 0
	if hh >= 24 {
		hh -= 24
		dayOffset = 1
	}
	year, month, day := now.Date()
	return time.Date(year, month, day+dayOffset, hh, mm, ss, 0, now.Location()), nil
}

func logicalFeedName(feedURL string) string {
	if i := strings.LastIndex(feedURL, "/"); i >= 0 && i+1 < len(feedURL) {
		return feedURL[i+1:]
	}
	return feedURL
}
