package webhook

import (
	"testing"
)

const (
	testSecret    = "whsec_test_secret"
	testPublicKey = "pk_test_public"
)

func TestVerifySignatureBareHex(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"purchase.created"}`)
	signature := ComputeSignature(body, testSecret)

	if !VerifySignature(body, testPublicKey, signature, "", testSecret, testPublicKey) {
		t.Error("Expected valid bare hex signature to verify")
	}
}

func TestVerifySignatureFallbackHeader(t *testing.T) {
	body := []byte(`{"id":"evt_2","type":"subscription.renewed"}`)
	signature := ComputeSignature(body, testSecret)

	if !VerifySignature(body, testPublicKey, "", signature, testSecret, testPublicKey) {
		t.Error("Expected signature in fallback header to verify")
	}
}

func TestVerifySignatureStructuredHeader(t *testing.T) {
	body := []byte(`{"id":"evt_3","type":"refund.issued"}`)
	signature := ComputeSignature(body, testSecret)
	header := "t=1742034600,s=" + signature

	if !VerifySignature(body, testPublicKey, header, "", testSecret, testPublicKey) {
		t.Error("Expected structured signature header to verify")
	}
}

func TestVerifySignatureRejections(t *testing.T) {
	body := []byte(`{"id":"evt_4","type":"purchase.created"}`)
	signature := ComputeSignature(body, testSecret)

	testCases := []struct {
		name        string
		providedKey string
		primary     string
		fallback    string
	}{
		{"missing public key", "", signature, ""},
		{"wrong public key", "pk_other", signature, ""},
		{"missing signature", testPublicKey, "", ""},
		{"wrong length signature", testPublicKey, "abcdef", ""},
		{"structured header without s segment", testPublicKey, "t=1742034600,v1=" + signature, ""},
		{"signature for different secret", testPublicKey, ComputeSignature(body, "other_secret"), ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if VerifySignature(body, tc.providedKey, tc.primary, tc.fallback, testSecret, testPublicKey) {
				t.Error("Expected verification to fail")
			}
		})
	}
}

func TestVerifySignatureBodyMutation(t *testing.T) {
	body := []byte(`{"id":"evt_5","type":"purchase.created","data":{"user_id":"u1"}}`)
	signature := ComputeSignature(body, testSecret)

	// Any single-byte mutation of the body must fail verification.
	for i := range body {
		mutated := make([]byte, len(body))
		copy(mutated, body)
		mutated[i] ^= 0x01

		if VerifySignature(mutated, testPublicKey, signature, "", testSecret, testPublicKey) {
			t.Errorf("Expected mutation at byte %d to fail verification", i)
		}
	}
}

func TestExtractSignature(t *testing.T) {
	testCases := []struct {
		name     string
		header   string
		expected string
	}{
		{"bare hex", "deadbeef", "deadbeef"},
		{"bare hex with whitespace", "  deadbeef  ", "deadbeef"},
		{"structured", "t=123,s=deadbeef", "deadbeef"},
		{"structured with spaces", "t=123, s=deadbeef", "deadbeef"},
		{"structured missing s", "t=123,v1=deadbeef", ""},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractSignature(tc.header); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}
