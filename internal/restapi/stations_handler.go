package restapi

import (
	"net/http"
	"sort"

	"github.com/kcole93/metroflow-api-sub000/internal/gtfs"
	"github.com/kcole93/metroflow-api-sub000/internal/models"
)

func (api *RestAPI) stationsHandler(w http.ResponseWriter, r *http.Request) {
	queryParams := r.URL.Query()

	var system gtfs.System
	if systemParam := queryParams.Get("system"); systemParam != "" {
		parsed, ok := gtfs.ParseSystem(systemParam)
		if !ok {
			api.validationErrorResponse(w, r, "system must be one of LIRR, MNR, SUBWAY")
			return
		}
		system = parsed
	}

	idx := api.GtfsManager.Index()
	stops := idx.StopsMatching(queryParams.Get("q"), system)

	stations := make([]models.Station, 0, len(stops))
	for _, stop := range stops {
		stations = append(stations, stationFromStop(stop))
	}
	sort.Slice(stations, func(i, j int) bool {
		if stations[i].Name != stations[j].Name {
			return stations[i].Name < stations[j].Name
		}
		return stations[i].ID < stations[j].ID
	})

	api.sendJSON(w, r, stations)
}

func stationFromStop(stop *gtfs.Stop) models.Station {
	station := models.Station{
		ID:       stop.ID,
		Name:     stop.Name,
		System:   string(stop.System),
		Borough:  stop.Borough,
		RouteIDs: []string{},
	}
	if stop.HasLocation {
		station.Lat = stop.Lat
		station.Lon = stop.Lon
	}
	for routeID := range stop.ServedByRouteIDs {
		station.RouteIDs = append(station.RouteIDs, gtfs.NamespacedID(stop.System, routeID))
	}
	sort.Strings(station.RouteIDs)
	for _, platformID := range stop.PlatformIDs() {
		station.Platforms = append(station.Platforms, gtfs.NamespacedID(stop.System, platformID))
	}
	sort.Strings(station.Platforms)
	return station
}
