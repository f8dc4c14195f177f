package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"trivia-tracker/internal/app"
)

// SyncHandler serves the poll and roster over plain HTTP for clients that do
// not hold a websocket open.
type SyncHandler struct {
	service *app.ContestService
}

func NewSyncHandler(service *app.ContestService) *SyncHandler {
	return &SyncHandler{service: service}
}

// ServeSync answers GET /sync?versions=0,3,1 with the rounds that changed.
func (h *SyncHandler) ServeSync(w http.ResponseWriter, r *http.Request) {
	versions, err := parseVersions(r.URL.Query().Get("versions"))
	if err != nil {
		http.Error(w, "invalid versions", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.service.Poll(r.Context(), versions))
}

// ServeTerminals answers GET /terminals with the connected terminals.
func (h *SyncHandler) ServeTerminals(w http.ResponseWriter, r *http.Request) {
	terminals, err := h.service.Terminals(r.Context())
	if err != nil {
		log.Printf("list terminals: %v", err)
		http.Error(w, "terminals unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, terminals)
}

func parseVersions(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	versions := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		versions[i] = v
	}
	return versions, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
