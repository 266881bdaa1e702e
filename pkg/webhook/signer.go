package webhook

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the body HMAC so consumers can verify a delivery
// came from this service.
const SignatureHeader = "X-Cleanscribe-Signature-256"

const signaturePrefix = "sha256="

// Sign computes the delivery signature for a payload: "sha256=" followed by
// the hex HMAC-SHA256 of the body under the consumer's secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches payload under secret, in constant
// time.
func Verify(secret string, payload []byte, signature string) bool {
	encoded, ok := strings.CutPrefix(signature, signaturePrefix)
	if !ok {
		return false
	}
	claimed, err := hex.DecodeString(encoded)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(claimed, mac.Sum(nil))
}

// GenerateSecret returns a random 256-bit signing secret, hex encoded.
func GenerateSecret() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
