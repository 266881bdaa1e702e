package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of event flowing through the system.
type EventType string

const (
	RecordingCreated   EventType = "recording.created"
	SegmentsIngested   EventType = "segments.ingested"
	TranscriptCleaned  EventType = "transcript.cleaned"
	TranscriptEnriched EventType = "transcript.enriched"
	TranscriptStored   EventType = "transcript.stored"
	UploadCompleted    EventType = "upload.completed"
	WebhookTest        EventType = "webhook.test"
	SystemError        EventType = "error"
)

// Envelope is the standard event wrapper published to the event bus.
type Envelope struct {
	ID          string            `json:"id"`
	Type        EventType         `json:"type"`
	Source      string            `json:"source"`
	RecordingID string            `json:"recording_id"`
	Timestamp   time.Time         `json:"timestamp"`
	Data        json.RawMessage   `json:"data"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// RecordingCreatedData is the payload for recording.created events.
type RecordingCreatedData struct {
	Name     string `json:"name"`
	DeviceID string `json:"device_id,omitempty"`
}

// SegmentsIngestedData is the payload for segments.ingested events.
type SegmentsIngestedData struct {
	SegmentCount int    `json:"segment_count"`
	Source       string `json:"source"` // "webhook", "upload", "api"
}

// TranscriptCleanedData is the payload for transcript.cleaned events.
// Consumers receive the cleaned transcript verbatim and must not re-run
// dedup on it.
type TranscriptCleanedData struct {
	Transcript string            `json:"transcript"`
	Speakers   map[string]string `json:"speakers"`
	SegmentsIn int               `json:"segments_in"`
	LinesOut   int               `json:"lines_out"`
}

// TranscriptEnrichedData is the payload for transcript.enriched events.
type TranscriptEnrichedData struct {
	HookURL    string `json:"hook_url"`
	StatusCode int    `json:"status_code"`
	Renamed    int    `json:"renamed,omitempty"`
}

// SystemErrorData is the payload for error events.
type SystemErrorData struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// TranscriptStoredData is the payload for transcript.stored events.
type TranscriptStoredData struct {
	LineCount   int     `json:"line_count"`
	DurationSec float64 `json:"duration_sec,omitempty"`
}

// UploadCompletedData is the payload for upload.completed events.
type UploadCompletedData struct {
	ContentHash string `json:"content_hash"`
	SizeBytes   int    `json:"size_bytes"`
	Duplicate   bool   `json:"duplicate"`
	CRCErrors   int    `json:"crc_errors,omitempty"`
}

// WebhookTestData is the payload for webhook.test events.
type WebhookTestData struct {
	WebhookID string `json:"webhook_id"`
	Message   string `json:"message"`
}
