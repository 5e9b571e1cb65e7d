package handlers

import "net/http"

type aiStatus interface {
	IsConfigured() bool
}

type HealthHandler struct {
	ai aiStatus
}

func NewHealthHandler(ai aiStatus) *HealthHandler {
	return &HealthHandler{ai: ai}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ok",
		"message":           "L'API fonctionne correctement",
		"gemini_configured": h.ai.IsConfigured(),
		"database":          "PostgreSQL",
	})
}
