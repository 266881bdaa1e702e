package hooks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cleanscribe/cleanscribe/pkg/transcript"
	"github.com/cleanscribe/cleanscribe/pkg/urlvalidation"
)

func TestExecutorSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Error("expected application/json content type")
		}

		var req HookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.RecordingID != "rec-1" {
			t.Errorf("recording_id = %q, want %q", req.RecordingID, "rec-1")
		}

		resp := HookResponse{
			Renames: map[string]string{"Speaker 1": "Alice"},
			Data:    map[string]any{"confidence": 0.95},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	exec := NewExecutor(nil, urlvalidation.AllowPrivateHosts())
	cfg := HookConfig{
		URL:        ts.URL,
		TimeoutSec: 5,
	}
	req := HookRequest{
		RecordingID: "rec-1",
		Transcript:  "Speaker 1: Hello there.",
		Speakers:    map[string]string{"SPEAKER_00": "Speaker 1"},
	}

	resp, err := exec.Execute(t.Context(), cfg, req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if resp.Renames["Speaker 1"] != "Alice" {
		t.Errorf("renames = %v, want Speaker 1 -> Alice", resp.Renames)
	}
}

func TestExecutorBearerAuth(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(HookResponse{})
	}))
	defer ts.Close()

	exec := NewExecutor(nil, urlvalidation.AllowPrivateHosts())
	cfg := HookConfig{
		URL:        ts.URL,
		AuthType:   "bearer",
		AuthSecret: "my-token",
		TimeoutSec: 5,
	}

	_, err := exec.Execute(t.Context(), cfg, HookRequest{RecordingID: "r1"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if gotAuth != "Bearer my-token" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer my-token")
	}
}

func TestExecutorHMACAuth(t *testing.T) {
	var gotSig string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Hook-Signature")
		json.NewEncoder(w).Encode(HookResponse{})
	}))
	defer ts.Close()

	exec := NewExecutor(nil, urlvalidation.AllowPrivateHosts())
	cfg := HookConfig{
		URL:        ts.URL,
		AuthType:   "hmac",
		AuthSecret: "hmac-key",
		TimeoutSec: 5,
	}

	_, err := exec.Execute(t.Context(), cfg, HookRequest{RecordingID: "r1"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if gotSig == "" {
		t.Error("missing X-Hook-Signature header")
	}
}

func TestExecutorHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal error"))
	}))
	defer ts.Close()

	exec := NewExecutor(nil, urlvalidation.AllowPrivateHosts())
	cfg := HookConfig{URL: ts.URL, TimeoutSec: 5}

	_, err := exec.Execute(t.Context(), cfg, HookRequest{RecordingID: "r1"})
	if err == nil {
		t.Error("expected error for HTTP 500")
	}
}

func TestHookResponseApplyTo(t *testing.T) {
	res := transcript.Result{
		Transcript: "Speaker 1: Hello there. [0.0s - 2.0s]\nSpeaker 2: Hi!",
		Speakers:   map[string]string{"SPEAKER_00": "Speaker 1", "SPEAKER_01": "Speaker 2"},
	}

	hr := &HookResponse{Renames: map[string]string{"Speaker 1": "Alice"}}
	got := hr.ApplyTo(res)

	if got.Speakers["SPEAKER_00"] != "Alice" {
		t.Errorf("SPEAKER_00 = %q, want Alice", got.Speakers["SPEAKER_00"])
	}
	if got.Speakers["SPEAKER_01"] != "Speaker 2" {
		t.Errorf("SPEAKER_01 = %q, want Speaker 2", got.Speakers["SPEAKER_01"])
	}
	want := "Alice: Hello there. [0.0s - 2.0s]\nSpeaker 2: Hi!"
	if got.Transcript != want {
		t.Errorf("transcript = %q, want %q", got.Transcript, want)
	}
}

func TestHookResponseApplyToEmpty(t *testing.T) {
	res := transcript.Result{
		Transcript: "Speaker 1: Hello.",
		Speakers:   map[string]string{"a": "Speaker 1"},
	}

	got := (&HookResponse{}).ApplyTo(res)
	if got.Transcript != res.Transcript {
		t.Errorf("transcript changed: %q", got.Transcript)
	}

	got = (&HookResponse{Transcript: "replaced"}).ApplyTo(res)
	if got.Transcript != "replaced" {
		t.Errorf("transcript = %q, want replaced", got.Transcript)
	}
}

func TestHookResponseReplacementSkipsRenames(t *testing.T) {
	res := transcript.Result{
		Transcript: "Speaker 1: Hello.",
		Speakers:   map[string]string{"SPEAKER_00": "Speaker 1"},
	}

	hr := &HookResponse{
		Transcript: "Speaker 1: Rewritten entirely.",
		Renames:    map[string]string{"Speaker 1": "Alice"},
	}
	got := hr.ApplyTo(res)

	if got.Transcript != "Speaker 1: Rewritten entirely." {
		t.Errorf("transcript = %q, replacement must win untouched", got.Transcript)
	}
	if got.Speakers["SPEAKER_00"] != "Speaker 1" {
		t.Errorf("speakers = %v, renames must not apply alongside a replacement", got.Speakers)
	}
}
