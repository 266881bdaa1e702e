package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cleanscribe/cleanscribe/pkg/events"
	"github.com/cleanscribe/cleanscribe/pkg/urlvalidation"
)

// No DB in unit tests; the delivery-recording call panics on the nil
// repository and the recover in deliverOnce absorbs that after the HTTP
// exchange.
func newTestDeliverer() *Deliverer {
	return NewDeliverer(nil, DelivererConfig{
		MaxRetries:        1,
		TimeoutSec:        5,
		BackoffInitialSec: 1,
		BackoffMaxSec:     1,
		CBFailThreshold:   5,
		CBResetTimeoutSec: 60,
	}, nil, urlvalidation.AllowPrivateHosts())
}

func deliverOnce(t *testing.T, d *Deliverer, ep ConsumerEndpoint, env events.Envelope) {
	t.Helper()
	defer func() { recover() }()
	d.Deliver(t.Context(), ep, env)
}

func cleanedEnvelope() events.Envelope {
	data, _ := json.Marshal(events.TranscriptCleanedData{
		Transcript: "Speaker 1: Hello there.",
		Speakers:   map[string]string{"SPEAKER_00": "Speaker 1"},
		SegmentsIn: 2,
		LinesOut:   1,
	})
	return events.Envelope{
		ID:          "evt-1",
		Type:        events.TranscriptCleaned,
		Source:      "ingest",
		RecordingID: "rec-1",
		Timestamp:   time.Now().UTC(),
		Data:        data,
	}
}

func TestDelivererPostsSignedEnvelope(t *testing.T) {
	var delivered atomic.Bool

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if r.Header.Get(SignatureHeader) == "" {
			t.Error("missing signature header")
		}
		if et := r.Header.Get("X-Cleanscribe-Event"); et != string(events.TranscriptCleaned) {
			t.Errorf("event header = %q", et)
		}
		if r.Header.Get("X-Cleanscribe-Delivery") == "" {
			t.Error("missing delivery id header")
		}

		var env events.Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if env.RecordingID != "rec-1" {
			t.Errorf("recording_id = %q, want rec-1", env.RecordingID)
		}
		delivered.Store(true)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ep := ConsumerEndpoint{URL: ts.URL, Secret: "test-secret"}
	ep.ID = "wh-1"
	deliverOnce(t, newTestDeliverer(), ep, cleanedEnvelope())

	if !delivered.Load() {
		t.Error("consumer did not receive the delivery")
	}
}

func TestDelivererSignatureVerifiesAtConsumer(t *testing.T) {
	secret := "webhook-secret-123"
	var sigValid atomic.Bool

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, 4096)
		n, _ := r.Body.Read(body)
		if Verify(secret, body[:n], r.Header.Get(SignatureHeader)) {
			sigValid.Store(true)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ep := ConsumerEndpoint{URL: ts.URL, Secret: secret}
	ep.ID = "wh-sig"
	deliverOnce(t, newTestDeliverer(), ep, cleanedEnvelope())

	if !sigValid.Load() {
		t.Error("delivery signature did not verify against the consumer secret")
	}
}

func TestDelivererRejectsPrivateEndpointByDefault(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("delivery reached a loopback endpoint without the private override")
	}))
	defer ts.Close()

	d := NewDeliverer(nil, DelivererConfig{MaxRetries: 1, TimeoutSec: 5}, nil)
	ep := ConsumerEndpoint{URL: ts.URL, Secret: "s"}
	ep.ID = "wh-private"
	deliverOnce(t, d, ep, cleanedEnvelope())
}
