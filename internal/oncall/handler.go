package oncall

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/opsdeck/incidentd/internal/pkg/httputil"
)

// Handler handles HTTP requests for the oncall module.
type Handler struct {
	service *Service
}

// NewHandler creates a new oncall handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers oncall routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/oncall", h.Get)
	r.Get("/oncall/{team}", h.Get)
}

// Get handles GET /oncall and GET /oncall/{team}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, h.service.Get(chi.URLParam(r, "team")))
}
