package restapi

import (
	"net/http"
	"strings"

	"github.com/kcole93/metroflow-api-sub000/internal/alerts"
	"github.com/kcole93/metroflow-api-sub000/internal/models"
)

func (api *RestAPI) alertsHandler(w http.ResponseWriter, r *http.Request) {
	queryParams := r.URL.Query()

	query := alerts.Query{
		ActiveNow:     boolParam(queryParams.Get("activeNow")),
		StationID:     queryParams.Get("stationId"),
		IncludeLabels: boolParam(queryParams.Get("includeLabels")),
	}
	if linesParam := queryParams.Get("lines"); linesParam != "" {
		for _, line := range strings.Split(linesParam, ",") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				query.Lines = append(query.Lines, trimmed)
			}
		}
	}

	result := api.alerts.Alerts(r.Context(), query)
	if result == nil {
		result = []models.Alert{}
	}
	api.sendJSON(w, r, result)
}

func boolParam(value string) bool {
	return value == "true" || value == "1"
}
