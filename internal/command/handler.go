package command

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/opsdeck/incidentd/internal/incident"
	"github.com/opsdeck/incidentd/internal/pkg/ctxlog"
	"github.com/opsdeck/incidentd/internal/pkg/httputil"
)

// Handler exposes the command executor over the form-encoded payload a chat
// platform's slash-command integration posts.
type Handler struct {
	executor *Executor
}

// NewHandler creates a new command handler.
func NewHandler(executor *Executor) *Handler {
	return &Handler{executor: executor}
}

// RegisterRoutes registers command routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/commands", h.Execute)
}

// commandResponse is the reply shape chat platforms render.
type commandResponse struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

// Execute handles POST /commands. Command failures are reported back as
// chat text with a 200 status: the chat platform is the user's error
// channel, and a failed command never affects stored state.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid form payload")
		return
	}

	text := r.PostFormValue("text")
	userID := r.PostFormValue("user_id")
	channelID := r.PostFormValue("channel_id")

	cmd, err := Parse(text)
	if err != nil {
		httputil.JSON(w, http.StatusOK, commandResponse{
			ResponseType: "ephemeral",
			Text:         fmt.Sprintf("%v\n\n%s", err, helpText),
		})
		return
	}

	reply, err := h.executor.Execute(r.Context(), cmd, userID, channelID)
	if err != nil {
		ctxlog.FromContext(r.Context()).Warn("command failed",
			"action", cmd.Action,
			"user_id", userID,
			"error", err,
		)
		httputil.JSON(w, http.StatusOK, commandResponse{
			ResponseType: "ephemeral",
			Text:         userMessage(err),
		})
		return
	}

	httputil.JSON(w, http.StatusOK, commandResponse{
		ResponseType: "in_channel",
		Text:         reply,
	})
}

// userMessage turns a core error into chat-friendly text.
func userMessage(err error) string {
	if errors.Is(err, incident.ErrIncidentNotFound) {
		return "Incident not found. Use `list` to see open incidents."
	}
	return fmt.Sprintf("Command failed: %v", err)
}
