package api

import (
	"time"

	"github.com/cleanscribe/cleanscribe/pkg/events"
	"github.com/cleanscribe/cleanscribe/pkg/webhook"
)

// RegisterConsumerRequest is the request body for registering a consumer
// endpoint.
type RegisterConsumerRequest struct {
	Name        string             `json:"name"`
	URL         string             `json:"url"`
	EventTypes  []events.EventType `json:"event_types"`
	Description string             `json:"description,omitempty"`
	MaxRPS      int                `json:"max_rps,omitempty"`
}

// ConsumerResponse is the API view of a consumer endpoint.
type ConsumerResponse struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	URL          string             `json:"url"`
	Secret       string             `json:"secret,omitempty"` // only on create
	EventTypes   []events.EventType `json:"event_types"`
	IsActive     bool               `json:"is_active"`
	Description  string             `json:"description,omitempty"`
	FailureCount int                `json:"failure_count"`
	CircuitState string             `json:"circuit_state"`
	MaxRPS       int                `json:"max_rps"`
	CreatedAt    string             `json:"created_at"`
	ModifiedAt   string             `json:"modified_at"`
}

// DeliveryResponse is the API view of one delivery attempt.
type DeliveryResponse struct {
	ID            string `json:"id"`
	EventID       string `json:"event_id"`
	EventType     string `json:"event_type"`
	ResponseCode  int    `json:"response_code"`
	AttemptNumber int    `json:"attempt_number"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	DurationMs    int64  `json:"duration_ms"`
	CreatedAt     string `json:"created_at"`
}

func deliveryView(a *webhook.DeliveryAttempt) DeliveryResponse {
	return DeliveryResponse{
		ID:            a.ID,
		EventID:       a.EventID,
		EventType:     a.EventType,
		ResponseCode:  a.ResponseCode,
		AttemptNumber: a.AttemptNumber,
		Status:        a.Status,
		Error:         a.Error,
		DurationMs:    a.DurationMs,
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
}

// DeadLetterResponse is the API view of a buried delivery.
type DeadLetterResponse struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	LastError string `json:"last_error"`
	Attempts  int    `json:"attempts"`
	CreatedAt string `json:"created_at"`
}

func deadLetterView(dl *webhook.DeadLetter) DeadLetterResponse {
	return DeadLetterResponse{
		ID:        dl.ID,
		EventID:   dl.EventID,
		EventType: dl.EventType,
		LastError: dl.LastError,
		Attempts:  dl.Attempts,
		CreatedAt: dl.CreatedAt.Format(time.RFC3339),
	}
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
