package ingest

import (
	"github.com/cleanscribe/cleanscribe/pkg/transcript"
)

// CreateRecordingRequest is the request body for creating a recording.
type CreateRecordingRequest struct {
	Name     string `json:"name"`
	DeviceID string `json:"device_id,omitempty"`
}

// RecordingResponse is the API representation of a recording.
type RecordingResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	DeviceID     string            `json:"device_id,omitempty"`
	Status       string            `json:"status"`
	ContentHash  string            `json:"content_hash,omitempty"`
	SegmentCount int               `json:"segment_count"`
	LineCount    int               `json:"line_count"`
	DurationSec  float64           `json:"duration_sec"`
	Speakers     map[string]string `json:"speakers,omitempty"`
	CreatedAt    string            `json:"created_at"`
	ModifiedAt   string            `json:"modified_at"`
}

// IngestSegmentsRequest is the request body for submitting a segment batch.
type IngestSegmentsRequest struct {
	Segments []transcript.RawSegment `json:"segments"`
	RuleSet  string                  `json:"rule_set,omitempty"`
}

// TranscriptResponse carries a cleaned transcript back to the caller.
type TranscriptResponse struct {
	RecordingID string            `json:"recording_id"`
	Transcript  string            `json:"transcript"`
	Speakers    map[string]string `json:"speakers"`
	SegmentsIn  int               `json:"segments_in"`
	LinesOut    int               `json:"lines_out"`
}

// ChunkUploadResponse reports the outcome of a framed device upload.
type ChunkUploadResponse struct {
	RecordingID string `json:"recording_id"`
	ContentHash string `json:"content_hash"`
	SizeBytes   int    `json:"size_bytes"`
	Duplicate   bool   `json:"duplicate"`
	Complete    bool   `json:"complete"`
	Frames      int    `json:"frames"`
	CRCErrors   int    `json:"crc_errors,omitempty"`
	Skips       int    `json:"skips,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
