// Package webhook authenticates and normalizes vendor lifecycle payloads.
// Both halves are pure: signature verification is a function of the raw body
// bytes and headers, and normalization is a function of the parsed payload.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

const (
	PublicKeyHeader         = "X-Whop-Public-Key"
	SignatureHeaderPrimary  = "X-Whop-Signature"
	SignatureHeaderFallback = "X-Signature"
)

// ComputeSignature computes the hex-encoded HMAC-SHA256 of the raw body bytes.
// The body must be the exact bytes as received, never a re-serialization.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ExtractSignature pulls the signature value out of a header. The header is
// either a bare hex signature or a structured comma-separated list of k=v
// segments, in which case the value of the "s" segment is taken.
func ExtractSignature(headerValue string) string {
	trimmed := strings.TrimSpace(headerValue)
	if trimmed == "" {
		return ""
	}

	if !strings.Contains(trimmed, "=") {
		return trimmed
	}

	for _, segment := range strings.Split(trimmed, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(segment), "=")
		if found && key == "s" {
			return strings.TrimSpace(value)
		}
	}

	return ""
}

// VerifySignature reports whether the payload is authentic. The public-key
// check is plain equality (the key is not a secret); the signature comparison
// is constant time. Anything missing or malformed fails closed.
func VerifySignature(body []byte, providedKey, primaryHeader, fallbackHeader, secret, expectedPublicKey string) bool {
	if providedKey == "" || providedKey != expectedPublicKey {
		return false
	}

	signature := ExtractSignature(primaryHeader)
	if signature == "" {
		signature = ExtractSignature(fallbackHeader)
	}
	if signature == "" {
		return false
	}

	expected := ComputeSignature(body, secret)

	if len(signature) != len(expected) {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1
}
