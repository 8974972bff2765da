package leaderboard

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// Handlers exposes the leaderboard read endpoint
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates new leaderboard handlers
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "leaderboard").Logger(),
	}
}

// HandleGetLeaderboard returns the published snapshot
func (h *Handlers) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Get()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load leaderboard")
		http.Error(w, "Failed to load leaderboard", http.StatusInternalServerError)
		return
	}
	if snapshot == nil {
		http.Error(w, "Leaderboard not published yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}
