package webhook

import (
	"strings"
	"testing"
)

func TestSignRoundTrip(t *testing.T) {
	secret := "test-secret-key"
	payload := []byte(`{"type":"transcript.cleaned","recording_id":"rec-1"}`)

	sig := Sign(secret, payload)
	if !strings.HasPrefix(sig, "sha256=") {
		t.Fatalf("signature = %q, want sha256= prefix", sig)
	}
	if !Verify(secret, payload, sig) {
		t.Error("signature did not verify against its own payload")
	}
}

func TestVerifyRejectsMismatches(t *testing.T) {
	secret := "test-secret-key"
	payload := []byte(`{"type":"transcript.cleaned","recording_id":"rec-1"}`)
	sig := Sign(secret, payload)

	tests := []struct {
		name    string
		secret  string
		payload []byte
		sig     string
	}{
		{"wrong secret", "other-secret", payload, sig},
		{"tampered payload", secret, []byte(`{"type":"transcript.cleaned","recording_id":"rec-2"}`), sig},
		{"empty signature", secret, payload, ""},
		{"bare prefix", secret, payload, "sha256="},
		{"non-hex digest", secret, payload, "sha256=zzzz"},
		{"wrong algorithm tag", secret, payload, "md5=" + sig[len("sha256="):]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Verify(tt.secret, tt.payload, tt.sig) {
				t.Error("Verify accepted an invalid signature")
			}
		})
	}
}

func TestGenerateSecret(t *testing.T) {
	s1, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if len(s1) != 64 {
		t.Errorf("secret length = %d, want 64 hex chars", len(s1))
	}

	s2, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if s1 == s2 {
		t.Error("two generated secrets should differ")
	}
}
