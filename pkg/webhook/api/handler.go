package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cleanscribe/cleanscribe/pkg/events"
	"github.com/cleanscribe/cleanscribe/pkg/urlvalidation"
	"github.com/cleanscribe/cleanscribe/pkg/webhook"
)

const maxRequestBodySize = 1 << 20 // 1 MiB

// Handler exposes the consumer registry over REST: register, inspect and
// remove endpoints, review deliveries, replay dead letters.
type Handler struct {
	repo      *webhook.Repository
	publisher *events.Publisher
}

// NewHandler creates a new webhook API handler.
func NewHandler(repo *webhook.Repository, publisher *events.Publisher) *Handler {
	return &Handler{repo: repo, publisher: publisher}
}

// RegisterRoutes registers all webhook API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/webhooks", h.Create)
	mux.HandleFunc("GET /api/v1/webhooks", h.List)
	mux.HandleFunc("GET /api/v1/webhooks/{id}", h.Get)
	mux.HandleFunc("DELETE /api/v1/webhooks/{id}", h.Delete)
	mux.HandleFunc("GET /api/v1/webhooks/{id}/deliveries", h.ListDeliveries)
	mux.HandleFunc("GET /api/v1/webhooks/{id}/dead-letters", h.ListDeadLetters)
	mux.HandleFunc("POST /api/v1/webhooks/{id}/dead-letters/{dlid}/replay", h.ReplayDeadLetter)
	mux.HandleFunc("POST /api/v1/webhooks/{id}/test", h.Test)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, ErrorResponse{Error: msg})
}

// consumerView renders an endpoint for API responses. The signing secret is
// shown exactly once, on registration.
func consumerView(ep *webhook.ConsumerEndpoint, withSecret bool) ConsumerResponse {
	v := ConsumerResponse{
		ID:           ep.ID,
		Name:         ep.Name,
		URL:          ep.URL,
		EventTypes:   []events.EventType(ep.EventTypes),
		IsActive:     ep.IsActive,
		Description:  ep.Description,
		FailureCount: ep.FailureCount,
		CircuitState: ep.CircuitState,
		MaxRPS:       ep.MaxRPS,
		CreatedAt:    ep.CreatedAt.Format(time.RFC3339),
		ModifiedAt:   ep.ModifiedAt.Format(time.RFC3339),
	}
	if withSecret {
		v.Secret = ep.Secret
	}
	return v
}

// Create handles POST /api/v1/webhooks
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req RegisterConsumerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.URL == "" {
		respondError(w, http.StatusBadRequest, "name and url are required")
		return
	}
	if err := urlvalidation.CheckEndpoint(req.URL); err != nil {
		respondError(w, http.StatusBadRequest, "invalid webhook URL: "+err.Error())
		return
	}

	secret, err := webhook.GenerateSecret()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate secret")
		return
	}

	ep := &webhook.ConsumerEndpoint{
		Name:        req.Name,
		URL:         req.URL,
		Secret:      secret,
		EventTypes:  webhook.EventTypesJSON(req.EventTypes),
		IsActive:    true,
		Description: req.Description,
		MaxRPS:      req.MaxRPS,
	}
	if ep.MaxRPS <= 0 {
		ep.MaxRPS = 10
	}

	if err := h.repo.CreateEndpoint(r.Context(), ep); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create webhook")
		return
	}
	respondJSON(w, http.StatusCreated, consumerView(ep, true))
}

// List handles GET /api/v1/webhooks
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	endpoints, err := h.repo.ListAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list webhooks")
		return
	}

	resp := make([]ConsumerResponse, 0, len(endpoints))
	for i := range endpoints {
		resp = append(resp, consumerView(&endpoints[i], false))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/webhooks/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ep, err := h.repo.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "webhook not found")
		return
	}
	respondJSON(w, http.StatusOK, consumerView(ep, false))
}

// Delete handles DELETE /api/v1/webhooks/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete webhook")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDeliveries handles GET /api/v1/webhooks/{id}/deliveries
func (h *Handler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.repo.ListDeliveries(r.Context(), r.PathValue("id"), 50, 0)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list deliveries")
		return
	}

	resp := make([]DeliveryResponse, 0, len(attempts))
	for i := range attempts {
		resp = append(resp, deliveryView(&attempts[i]))
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListDeadLetters handles GET /api/v1/webhooks/{id}/dead-letters
func (h *Handler) ListDeadLetters(w http.ResponseWriter, r *http.Request) {
	letters, err := h.repo.ListDeadLetters(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list dead letters")
		return
	}

	resp := make([]DeadLetterResponse, 0, len(letters))
	for i := range letters {
		resp = append(resp, deadLetterView(&letters[i]))
	}
	respondJSON(w, http.StatusOK, resp)
}

// ReplayDeadLetter handles POST /api/v1/webhooks/{id}/dead-letters/{dlid}/replay
func (h *Handler) ReplayDeadLetter(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dl, err := h.repo.GetDeadLetterByID(r.Context(), r.PathValue("dlid"))
	if err != nil || dl.ConsumerID != r.PathValue("id") {
		respondError(w, http.StatusNotFound, "dead letter not found")
		return
	}
	if !dl.Replayable {
		respondError(w, http.StatusConflict, "dead letter already replayed")
		return
	}

	// Re-publish the buried envelope to the event bus; the subscriber fans
	// it out to matching consumers again.
	var env events.Envelope
	if err := json.Unmarshal([]byte(dl.Payload), &env); err != nil {
		respondError(w, http.StatusInternalServerError, "corrupt dead letter payload")
		return
	}
	if err := h.publisher.Emit(r.Context(), env.Type, env.RecordingID, json.RawMessage(env.Data)); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to re-publish event")
		return
	}
	if err := h.repo.MarkDeadLetterReplayed(r.Context(), dl.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to mark dead letter replayed")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Test handles POST /api/v1/webhooks/{id}/test
func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	id := r.PathValue("id")

	// Verify the consumer exists before publishing anything.
	if _, err := h.repo.GetByID(r.Context(), id); err != nil {
		respondError(w, http.StatusNotFound, "webhook not found")
		return
	}

	testData := events.WebhookTestData{
		WebhookID: id,
		Message:   "This is a test webhook delivery from cleanscribe",
	}
	if err := h.publisher.Emit(r.Context(), events.WebhookTest, "", testData); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to publish test event")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "test event published"})
}
