// Package alerts turns the consolidated service alert feed into filtered,
// station-aware JSON alerts. Bus references are dropped, route and stop
// references resolve against the static index, and alert bodies convert
// from HTML to Markdown-like text only after filtering.
package alerts

import (
	"context"
	"sort"
	"strings"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/kcole93/metroflow-api-sub000/internal/clock"
	"github.com/kcole93/metroflow-api-sub000/internal/feed"
	"github.com/kcole93/metroflow-api-sub000/internal/gtfs"
	"github.com/kcole93/metroflow-api-sub000/internal/models"
)

const alertsFeedName = "all-alerts"

// Query holds the filter predicates for one alerts request. All predicates
// are conjunctive.
type Query struct {
	// Lines are namespaced route IDs, matched case-insensitively.
	Lines []string
	// ActiveNow keeps only alerts with a period covering the present.
	ActiveNow bool
	// StationID keeps alerts naming the station or any route serving it.
	StationID string
	// IncludeLabels attaches human-readable names for affected entities.
	IncludeLabels bool
}

type Engine struct {
	manager *gtfs.Manager
	fetcher *feed.Fetcher
	clock   clock.Clock
}

func NewEngine(manager *gtfs.Manager, fetcher *feed.Fetcher, clk clock.Clock) *Engine {
	return &Engine{manager: manager, fetcher: fetcher, clock: clk}
}

// parsedAlert keeps match sets and raw HTML alongside the outgoing shape
// until filtering decides which alerts survive.
type parsedAlert struct {
	alert           models.Alert
	descriptionHTML string
	lines           map[string]struct{} // namespaced, lowercased
	stations        map[string]struct{} // namespaced
}

// Alerts fetches, parses, filters and renders the current alerts.
func (e *Engine) Alerts(ctx context.Context, query Query) []models.Alert {
	idx := e.manager.Index()
	nowMs := e.clock.Now().UnixMilli()

	feedURL := e.manager.Config().FeedBaseURL + gtfs.AlertsFeedPath
	msg := e.fetcher.FetchAndDecode(ctx, feedURL, alertsFeedName)
	if msg == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var parsed []parsedAlert
	for _, entity := range msg.GetEntity() {
		if _, dup := seen[entity.GetId()]; dup {
			continue
		}
		seen[entity.GetId()] = struct{}{}
		alert := entity.GetAlert()
		if alert == nil {
			continue
		}
		parsed = append(parsed, parseAlert(idx, entity.GetId(), alert, nowMs))
	}

	survivors := parsed[:0]
	for _, pa := range parsed {
		if e.matches(idx, pa, query, nowMs) {
			survivors = append(survivors, pa)
		}
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return primaryStart(survivors[i].alert) > primaryStart(survivors[j].alert)
	})

	out := make([]models.Alert, 0, len(survivors))
	for _, pa := range survivors {
		pa.alert.Description = htmlToMarkdown(pa.descriptionHTML)
		if query.IncludeLabels {
			pa.alert.Labels = buildLabels(idx, pa.alert)
		}
		out = append(out, pa.alert)
	}
	return out
}

func primaryStart(alert models.Alert) int64 {
	if alert.PrimaryPeriod == nil {
		return 0
	}
	return alert.PrimaryPeriod.Start
}

func parseAlert(idx *gtfs.StaticIndex, id string, alert *gtfsrt.Alert, nowMs int64) parsedAlert {
	pa := parsedAlert{
		alert:    models.Alert{ID: id},
		lines:    make(map[string]struct{}),
		stations: make(map[string]struct{}),
	}

	for _, ie := range alert.GetInformedEntity() {
		agency := ie.GetAgencyId()
		if _, isBus, _ := gtfs.SystemForAgency(agency); isBus {
			continue
		}
		if routeID := ie.GetRouteId(); routeID != "" {
			if system, _, known := gtfs.SystemForAgency(agency); known {
				namespaced := gtfs.NamespacedID(system, routeID)
				if _, exists := idx.Routes[namespaced]; exists {
					if _, dup := pa.lines[strings.ToLower(namespaced)]; !dup {
						pa.lines[strings.ToLower(namespaced)] = struct{}{}
						pa.alert.AffectedLines = append(pa.alert.AffectedLines, namespaced)
					}
				}
			}
		}
		if stopID := ie.GetStopId(); stopID != "" {
			// Alert stop references carry no system, so every prefix is
			// tried; a child stop also pulls in its parent station.
			for _, system := range gtfs.Systems {
				namespaced := gtfs.NamespacedID(system, stopID)
				stop, exists := idx.Stops[namespaced]
				if !exists {
					continue
				}
				addStation(&pa, namespaced)
				if stop.ParentStationID != "" {
					addStation(&pa, stop.ParentStationID)
				}
			}
		}
	}

	for _, period := range alert.GetActivePeriod() {
		pa.alert.ActivePeriods = append(pa.alert.ActivePeriods, models.ActivePeriod{
			Start: int64(period.GetStart()) * 1000,
			End:   int64(period.GetEnd()) * 1000,
		})
	}
	pa.alert.PrimaryPeriod = choosePrimaryPeriod(pa.alert.ActivePeriods, nowMs)

	pa.alert.Header = pickTranslation(alert.GetHeaderText(), "en")
	pa.descriptionHTML = pickTranslation(alert.GetDescriptionText(), "en-html")

	if pa.alert.AffectedLines == nil {
		pa.alert.AffectedLines = []string{}
	}
	if pa.alert.AffectedStations == nil {
		pa.alert.AffectedStations = []string{}
	}
	return pa
}

func addStation(pa *parsedAlert, namespaced string) {
	if _, dup := pa.stations[namespaced]; dup {
		return
	}
	pa.stations[namespaced] = struct{}{}
	pa.alert.AffectedStations = append(pa.alert.AffectedStations, namespaced)
}

// choosePrimaryPeriod picks the period shown as the alert's headline window:
// one covering the present if any, else the nearest future one, else the
// first listed.
func choosePrimaryPeriod(periods []models.ActivePeriod, nowMs int64) *models.ActivePeriod {
	if len(periods) == 0 {
		return nil
	}
	for i := range periods {
		if periodActive(periods[i], nowMs) {
			return &periods[i]
		}
	}
	var future *models.ActivePeriod
	for i := range periods {
		if periods[i].Start > nowMs && (future == nil || periods[i].Start < future.Start) {
			future = &periods[i]
		}
	}
	if future != nil {
		return future
	}
	return &periods[0]
}

// periodActive treats a zero bound as open.
func periodActive(period models.ActivePeriod, nowMs int64) bool {
	if period.Start != 0 && period.Start > nowMs {
		return false
	}
	if period.End != 0 && period.End < nowMs {
		return false
	}
	return true
}

// pickTranslation prefers the requested language, then plain "en", then the
// first translation present.
func pickTranslation(ts *gtfsrt.TranslatedString, language string) string {
	translations := ts.GetTranslation()
	if len(translations) == 0 {
		return ""
	}
	for _, t := range translations {
		if t.GetLanguage() == language {
			return t.GetText()
		}
	}
	for _, t := range translations {
		if t.GetLanguage() == "en" {
			return t.GetText()
		}
	}
	return translations[0].GetText()
}

func (e *Engine) matches(idx *gtfs.StaticIndex, pa parsedAlert, query Query, nowMs int64) bool {
	if query.ActiveNow {
		active := false
		for _, period := range pa.alert.ActivePeriods {
			if periodActive(period, nowMs) {
				active = true
				break
			}
		}
		if !active {
			return false
		}
	}

	if len(query.Lines) > 0 {
		hit := false
		for _, line := range query.Lines {
			if _, ok := pa.lines[strings.ToLower(strings.TrimSpace(line))]; ok {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}

	if query.StationID != "" {
		if _, named := pa.stations[query.StationID]; !named {
			if !e.linesServeStation(idx, pa, query.StationID) {
				return false
			}
		}
	}
	return true
}

// linesServeStation reports whether any affected line serves the station.
func (e *Engine) linesServeStation(idx *gtfs.StaticIndex, pa parsedAlert, stationID string) bool {
	station, ok := idx.Stops[stationID]
	if !ok {
		return false
	}
	for routeID := range station.ServedByRouteIDs {
		namespaced := gtfs.NamespacedID(station.System, routeID)
		if _, hit := pa.lines[strings.ToLower(namespaced)]; hit {
			return true
		}
	}
	return false
}

// buildLabels attaches display names: subway routes read as "<short> Train"
// or "<short> Express", rail routes use the long name, stations use the
// stop name.
func buildLabels(idx *gtfs.StaticIndex, alert models.Alert) *models.AlertLabels {
	labels := &models.AlertLabels{
		Lines:    make(map[string]string),
		Stations: make(map[string]string),
	}
	for _, lineID := range alert.AffectedLines {
		route, ok := idx.Routes[lineID]
		if !ok {
			continue
		}
		if route.System == gtfs.SystemSubway {
			kind := "Train"
			if strings.Contains(strings.ToLower(route.LongName), "express") {
				kind = "Express"
			}
			labels.Lines[lineID] = route.ShortName + " " + kind
			continue
		}
		labels.Lines[lineID] = route.LongName
	}
	for _, stationID := range alert.AffectedStations {
		if stop, ok := idx.Stops[stationID]; ok {
			labels.Stations[stationID] = stop.Name
		}
	}
	return labels
}
