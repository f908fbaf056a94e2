package report

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opsdeck/incidentd/internal/pkg/httputil"
)

// Handler handles HTTP requests for the report module.
type Handler struct {
	aggregator *Aggregator
}

// NewHandler creates a new report handler.
func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{aggregator: aggregator}
}

// RegisterRoutes registers report routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/overview", h.Overview)
		r.Get("/daily", h.Daily)
	})
}

// Overview handles GET /reports/overview.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.aggregator.Overview(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.JSON(w, http.StatusOK, ov)
}

// Daily handles GET /reports/daily.
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	report, err := h.aggregator.Daily(r.Context(), time.Now())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}
