package restapi

import (
	"net/http"
	"strconv"

	"github.com/kcole93/metroflow-api-sub000/internal/departures"
	"github.com/kcole93/metroflow-api-sub000/internal/models"
)

func (api *RestAPI) departuresHandler(w http.ResponseWriter, r *http.Request) {
	stationID := r.PathValue("stationId")
	queryParams := r.URL.Query()

	limitMinutes := departures.DefaultLimitMinutes
	if limitParam := queryParams.Get("limitMinutes"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			api.validationErrorResponse(w, r, "limitMinutes must be a positive integer")
			return
		}
		limitMinutes = parsed
	}

	filter, ok := departures.ParseSourceFilter(queryParams.Get("source"))
	if !ok {
		api.validationErrorResponse(w, r, "source must be realtime or scheduled")
		return
	}

	// An unknown station is an empty board, not an error.
	board, _ := api.departures.Departures(r.Context(), stationID, limitMinutes, filter)
	if board == nil {
		board = []models.Departure{}
	}
	api.sendJSON(w, r, board)
}
