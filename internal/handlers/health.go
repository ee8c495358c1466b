package handlers

import (
	"net/http"
)

// HealthHandler responds with service health information.
type HealthHandler struct {
	Presence PresenceCounter
}

type healthResponse struct {
	Status    string `json:"status"`
	Connected int    `json:"connected"`
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	payload := healthResponse{Status: "ok"}
	if h.Presence != nil {
		payload.Connected = h.Presence.Count()
	}

	respondJSON(r.Context(), w, http.StatusOK, payload)
}
