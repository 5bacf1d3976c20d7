package restapi

import "net/http"

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	api.sendJSON(w, r, healthResponse{
		Status:    "ok",
		Timestamp: api.Clock.Now().UnixMilli(),
	})
}
