package ranking

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
)

// Handler exposes the rankings read endpoint
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates a new ranking handler
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "ranking").Logger(),
	}
}

// HandleGetRankings returns ranked accounts for a metric.
// Query params: metric (default total_gains), limit (default 100).
func (h *Handler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	switch metric {
	case "":
		metric = MetricTotalGains
	case MetricTotalGains, MetricDailyChange:
	default:
		http.Error(w, "Unknown metric", http.StatusBadRequest)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	items, err := h.repo.GetTop(metric, limit)
	if err != nil {
		h.log.Error().Err(err).Str("metric", metric).Msg("Failed to load rankings")
		http.Error(w, "Failed to load rankings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"metric":   metric,
		"rankings": items,
	})
}
