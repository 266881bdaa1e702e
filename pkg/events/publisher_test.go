package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEnvelopeSerialization(t *testing.T) {
	data := &TranscriptCleanedData{
		Transcript: "Speaker 1: Hello there. [0.0s - 2.0s]",
		Speakers:   map[string]string{"SPEAKER_00": "Speaker 1"},
		SegmentsIn: 4,
		LinesOut:   1,
	}

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}

	env := Envelope{
		ID:          "test-id",
		Type:        TranscriptCleaned,
		Source:      "ingest",
		RecordingID: "rec-123",
		Timestamp:   time.Now().UTC(),
		Data:        raw,
	}

	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}

	if decoded.Type != TranscriptCleaned {
		t.Errorf("type = %q, want %q", decoded.Type, TranscriptCleaned)
	}
	if decoded.Source != "ingest" {
		t.Errorf("source = %q, want %q", decoded.Source, "ingest")
	}
	if decoded.RecordingID != "rec-123" {
		t.Errorf("recording_id = %q, want %q", decoded.RecordingID, "rec-123")
	}

	var payload TranscriptCleanedData
	if err := json.Unmarshal(decoded.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.LinesOut != 1 {
		t.Errorf("lines_out = %d, want 1", payload.LinesOut)
	}
	if payload.Speakers["SPEAKER_00"] != "Speaker 1" {
		t.Errorf("speakers = %v, want SPEAKER_00 mapped", payload.Speakers)
	}
}

func TestEventTypeConstants(t *testing.T) {
	types := []EventType{
		RecordingCreated,
		SegmentsIngested,
		TranscriptCleaned,
		TranscriptEnriched,
		TranscriptStored,
		UploadCompleted,
		WebhookTest,
		SystemError,
	}
	seen := make(map[EventType]bool, len(types))
	for _, et := range types {
		if et == "" {
			t.Error("empty event type constant")
		}
		if seen[et] {
			t.Errorf("duplicate event type %q", et)
		}
		seen[et] = true
	}
}

func TestPublisherLocalFanout(t *testing.T) {
	p := NewPublisher(nil, "test", "events")
	ch := p.Subscribe("sub-1", 4)
	defer p.Unsubscribe("sub-1")

	// Bypass Emit's queue publish; exercise the fan-out path directly.
	p.fanOut(Envelope{ID: "e1", Type: RecordingCreated, RecordingID: "rec-1"})

	select {
	case got := <-ch:
		if got.ID != "e1" {
			t.Errorf("envelope id = %q, want e1", got.ID)
		}
	default:
		t.Fatal("subscriber did not receive envelope")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	p := NewPublisher(nil, "test", "events")
	ch := p.Subscribe("sub-1", 1)
	p.Unsubscribe("sub-1")

	if _, ok := <-ch; ok {
		t.Error("channel still open after unsubscribe")
	}
	// Unsubscribing twice is a no-op.
	p.Unsubscribe("sub-1")
}
