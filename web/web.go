// Package web provides the read-only status HTTP API. It exposes the
// current throttle decision, the month-to-date usage picture, and recent
// poll history. Nothing here mutates state.
package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/tierguard/app"
	"github.com/artpar/tierguard/ports"
)

// Handler provides the status API endpoints.
type Handler struct {
	state     *app.ThrottleState
	usage     *app.UsageService
	history   ports.HistoryStore
	registry  *prometheus.Registry
	logger    zerolog.Logger
	startTime time.Time
}

// Deps contains dependencies for the status API handler.
type Deps struct {
	State    *app.ThrottleState
	Usage    *app.UsageService
	History  ports.HistoryStore
	Registry *prometheus.Registry // optional, enables /metrics
	Logger   zerolog.Logger
}

// NewHandler creates a new status API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		state:     deps.State,
		usage:     deps.Usage,
		history:   deps.History,
		registry:  deps.Registry,
		logger:    deps.Logger,
		startTime: time.Now(),
	}
}

// Router returns the status API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/throttle", h.GetThrottle)
		r.Get("/usage", h.GetUsage)
		r.Get("/history", h.GetHistory)
	})

	if h.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	}

	return r
}

// Health reports process liveness and uptime.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
	})
}

type throttleResponse struct {
	Level            string    `json:"level"`
	ShouldThrottle   bool      `json:"should_throttle"`
	PercentUsed      float64   `json:"percent_used"`
	Remaining        float64   `json:"remaining"`
	MonitoringActive bool      `json:"monitoring_active"`
	UpdatedAt        time.Time `json:"updated_at,omitempty"`
}

// GetThrottle returns the last published throttle decision. This reads
// the shared snapshot only; it never hits the provider.
func (h *Handler) GetThrottle(w http.ResponseWriter, r *http.Request) {
	snap := h.state.Get()
	writeJSON(w, http.StatusOK, throttleResponse{
		Level:            snap.Level.String(),
		ShouldThrottle:   snap.Level.ShouldThrottle(),
		PercentUsed:      snap.PercentUsed,
		Remaining:        snap.Remaining,
		MonitoringActive: snap.MonitoringActive,
		UpdatedAt:        snap.UpdatedAt,
	})
}

type usageResponse struct {
	Limit       float64   `json:"limit"`
	Used        float64   `json:"used"`
	Remaining   float64   `json:"remaining"`
	PercentUsed float64   `json:"percent_used"`
	ComputedAt  time.Time `json:"computed_at"`

	Projection struct {
		DailyAverage float64 `json:"daily_average"`
		Projected    float64 `json:"projected"`
		Overage      float64 `json:"overage"`
		Cost         float64 `json:"cost"`
	} `json:"projection"`
}

// GetUsage returns the current month-to-date usage status together with
// an end-of-month projection. Served from the status cache; at most one
// provider fetch per cache window.
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	st, err := h.usage.ComputeStatus(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("usage status failed")
		writeError(w, http.StatusBadGateway, "provider_error", "Could not compute usage status")
		return
	}

	proj, err := h.usage.ProjectedMonthlyCost(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "provider_error", "Could not compute projection")
		return
	}

	resp := usageResponse{
		Limit:       st.Limit,
		Used:        st.Used,
		Remaining:   st.Remaining,
		PercentUsed: st.PercentUsed,
		ComputedAt:  st.ComputedAt,
	}
	resp.Projection.DailyAverage = proj.DailyAverage
	resp.Projection.Projected = proj.Projected
	resp.Projection.Overage = proj.Overage
	resp.Projection.Cost = proj.Cost

	writeJSON(w, http.StatusOK, resp)
}

type historyEntry struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Used        float64   `json:"used"`
	Remaining   float64   `json:"remaining"`
	PercentUsed float64   `json:"percent_used"`
	Level       string    `json:"level"`
	Succeeded   bool      `json:"succeeded"`
	Error       string    `json:"error,omitempty"`
}

// GetHistory returns recent poll cycles, newest first. Accepts a ?limit=
// query parameter (default 50, max 500).
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 50)
	if limit > 500 {
		limit = 500
	}

	recs, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("history query failed")
		writeError(w, http.StatusInternalServerError, "storage_error", "Could not read poll history")
		return
	}

	entries := make([]historyEntry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, historyEntry{
			ID:          rec.ID,
			StartedAt:   rec.StartedAt,
			FinishedAt:  rec.FinishedAt,
			Used:        rec.Used,
			Remaining:   rec.Remaining,
			PercentUsed: rec.PercentUsed,
			Level:       rec.Level,
			Succeeded:   rec.Succeeded,
			Error:       rec.Error,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func parseIntQuery(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	var v int
	if err := json.Unmarshal([]byte(s), &v); err != nil || v <= 0 {
		return defaultVal
	}
	return v
}
