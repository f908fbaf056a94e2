package incident

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/opsdeck/incidentd/internal/domain"
	"github.com/opsdeck/incidentd/internal/pkg/httputil"
)

// Handler handles HTTP requests for the incident module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incident handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers incident routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Get("/{id}/timeline", h.Timeline)
		r.Post("/{id}/assign", h.Assign)
		r.Post("/{id}/status", h.UpdateStatus)
		r.Post("/{id}/comments", h.AddComment)
	})
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrIncidentNotFound, Status: http.StatusNotFound},
	{Error: ErrTitleRequired, Status: http.StatusBadRequest},
	{Error: ErrInvalidSeverity, Status: http.StatusBadRequest},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
	{Error: ErrInvalidSource, Status: http.StatusBadRequest},
	{Error: ErrAssigneeRequired, Status: http.StatusBadRequest},
	{Error: ErrMessageRequired, Status: http.StatusBadRequest},
}

// CreateIncidentRequest represents incident creation request body.
type CreateIncidentRequest struct {
	Title       string         `json:"title" validate:"required"`
	Severity    string         `json:"severity" validate:"required"`
	Description string         `json:"description"`
	Assignee    string         `json:"assignee"`
	ChannelID   string         `json:"channel_id"`
	Source      string         `json:"source"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
	ActorID     string         `json:"actor_id"`
}

// Create handles POST /incidents.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	inc, err := h.service.CreateIncident(r.Context(), CreateIncidentInput{
		Title:       req.Title,
		Severity:    domain.Severity(strings.ToUpper(req.Severity)),
		Description: req.Description,
		Assignee:    req.Assignee,
		ChannelID:   req.ChannelID,
		Source:      domain.Source(req.Source),
		Tags:        req.Tags,
		Metadata:    req.Metadata,
		ActorID:     req.ActorID,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusCreated, inc)
}

// List handles GET /incidents. With ?status=open only incidents in open or
// investigating status are returned.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var (
		incidents []*domain.Incident
		err       error
	)

	if r.URL.Query().Get("status") == "open" {
		incidents, err = h.service.ListOpen(r.Context())
	} else {
		incidents, err = h.service.ListIncidents(r.Context())
	}
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{"incidents": incidents})
}

// Get handles GET /incidents/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	inc, err := h.service.GetIncident(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, inc)
}

// Timeline handles GET /incidents/{id}/timeline.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	inc, err := h.service.GetIncident(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{"timeline": inc.Timeline})
}

// AssignRequest represents assignment request body.
type AssignRequest struct {
	Assignee string `json:"assignee" validate:"required"`
	ActorID  string `json:"actor_id"`
}

// Assign handles POST /incidents/{id}/assign.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	inc, err := h.service.AssignIncident(r.Context(), chi.URLParam(r, "id"), req.Assignee, req.ActorID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, inc)
}

// UpdateStatusRequest represents status update request body.
type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required"`
	ActorID string `json:"actor_id"`
}

// UpdateStatus handles POST /incidents/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	inc, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), domain.Status(strings.ToLower(req.Status)), req.ActorID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, inc)
}

// CommentRequest represents comment request body.
type CommentRequest struct {
	Message string `json:"message" validate:"required"`
	ActorID string `json:"actor_id"`
}

// AddComment handles POST /incidents/{id}/comments.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	inc, err := h.service.AddComment(r.Context(), chi.URLParam(r, "id"), req.Message, req.ActorID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, inc)
}
