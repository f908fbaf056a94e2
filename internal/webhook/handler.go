// Package webhook maps inbound alert payloads onto incident creation. It is
// a thin adapter: transport-level concerns end here, and once the store has
// accepted the incident the webhook response is authoritative regardless of
// any follow-up failure.
package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opsdeck/incidentd/internal/domain"
	"github.com/opsdeck/incidentd/internal/incident"
	"github.com/opsdeck/incidentd/internal/pkg/ctxlog"
	"github.com/opsdeck/incidentd/internal/pkg/httputil"
)

// titleKeys and descriptionKeys are tried in order against the alert
// payload. Alerting systems disagree on field names; the first non-empty
// string wins.
var (
	titleKeys       = []string{"title", "alert_name", "alertname", "summary", "name"}
	descriptionKeys = []string{"description", "message", "details", "text"}
	severityKeys    = []string{"severity", "priority", "level"}
)

// Handler ingests external alert webhooks.
type Handler struct {
	service *incident.Service
}

// NewHandler creates a new webhook handler.
func NewHandler(service *incident.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers webhook routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/alerts", h.IngestAlert)
}

// IngestAlert handles POST /webhooks/alerts. The payload is an arbitrary
// JSON object; the raw body is preserved as incident metadata.
func (h *Handler) IngestAlert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		recordWebhookRequest("invalid_payload")
		httputil.Error(w, http.StatusBadRequest, "invalid json payload")
		return
	}

	title := firstString(payload, titleKeys)
	if title == "" {
		title = "External alert"
	}
	severity := domain.NormalizeSeverity(firstString(payload, severityKeys))

	inc, err := h.service.CreateIncident(r.Context(), incident.CreateIncidentInput{
		Title:       title,
		Severity:    severity,
		Description: firstString(payload, descriptionKeys),
		Source:      domain.SourceWebhook,
		Metadata:    payload,
	})
	if err != nil {
		recordWebhookRequest("error")
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	recordWebhookRequest("created")
	recordWebhookLatency(time.Since(start))

	ctxlog.FromContext(r.Context()).Info("alert ingested",
		"incident_id", inc.ID,
		"severity", inc.Severity,
	)

	httputil.JSON(w, http.StatusCreated, map[string]string{
		"incident_id": inc.ID,
		"severity":    string(inc.Severity),
		"status":      string(inc.Status),
	})
}

// firstString returns the first non-empty string value among keys.
// Non-string values are stringified only for numbers, matching how alert
// sources sometimes send numeric priorities.
func firstString(payload map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := payload[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%g", v)
		}
	}
	return ""
}
