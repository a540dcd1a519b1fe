package webhook

import (
	"reflect"
	"testing"
	"time"

	"member-insight-service/internal/models"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestNormalizePurchaseCreated(t *testing.T) {
	raw := models.RawWebhookEvent{
		ID:        "evt_1",
		Type:      "purchase.created",
		Timestamp: "2025-03-15T10:30:00Z",
		Data: map[string]any{
			"user_id":      "u1",
			"tier":         "pro",
			"renewal_date": "2025-04-15T10:30:00Z",
		},
	}

	canonical := NormalizeAt(raw, fixedNow())

	if canonical.EventID != "evt_1" {
		t.Errorf("Expected eventId evt_1, got %s", canonical.EventID)
	}
	if canonical.Kind != models.EventKindMemberJoined {
		t.Errorf("Expected kind member_joined, got %s", canonical.Kind)
	}
	if canonical.MemberID != "u1" {
		t.Errorf("Expected memberId u1, got %s", canonical.MemberID)
	}
	if canonical.Tier != "pro" {
		t.Errorf("Expected tier pro, got %s", canonical.Tier)
	}
	if canonical.RenewalDate != "2025-04-15T10:30:00.000Z" {
		t.Errorf("Expected renewal date 2025-04-15T10:30:00.000Z, got %s", canonical.RenewalDate)
	}
	if canonical.OccurredAt != "2025-03-15T10:30:00.000Z" {
		t.Errorf("Expected occurredAt 2025-03-15T10:30:00.000Z, got %s", canonical.OccurredAt)
	}
}

func TestNormalizeDeterminism(t *testing.T) {
	raw := models.RawWebhookEvent{
		ID:        "evt_det",
		Type:      "subscription.renewed",
		Timestamp: float64(1742034600),
		Data: map[string]any{
			"member_id":  "m42",
			"plan":       map[string]any{"id": "plan_gold", "name": "Gold"},
			"renewal_at": float64(1744626600000),
		},
	}

	first := NormalizeAt(raw, fixedNow())
	second := NormalizeAt(raw, fixedNow())

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical output, got %+v and %+v", first, second)
	}
}

func TestKindFor(t *testing.T) {
	testCases := []struct {
		vendorType string
		expected   models.EventKind
		recognized bool
	}{
		{"purchase.created", models.EventKindMemberJoined, true},
		{"subscription.renewed", models.EventKindMemberRenewed, true},
		{"subscription.canceled", models.EventKindMemberCanceled, true},
		{"refund.issued", models.EventKindMemberRefunded, true},
		{"dispute.opened", models.EventKindMemberJoined, false},
		{"", models.EventKindMemberJoined, false},
	}

	for _, tc := range testCases {
		t.Run(tc.vendorType, func(t *testing.T) {
			kind, recognized := KindFor(tc.vendorType)
			if kind != tc.expected {
				t.Errorf("Expected kind %s, got %s", tc.expected, kind)
			}
			if recognized != tc.recognized {
				t.Errorf("Expected recognized=%v, got %v", tc.recognized, recognized)
			}
		})
	}
}

func TestCoerceISODate(t *testing.T) {
	testCases := []struct {
		name     string
		value    any
		expected string
	}{
		{"rfc3339 string", "2025-03-15T10:30:00Z", "2025-03-15T10:30:00.000Z"},
		{"rfc3339 with offset", "2025-03-15T12:30:00+02:00", "2025-03-15T10:30:00.000Z"},
		{"plain date", "2025-03-15", "2025-03-15T00:00:00.000Z"},
		{"epoch seconds", float64(1742034600), "2025-03-15T10:30:00.000Z"},
		{"epoch milliseconds", float64(1742034600000), "2025-03-15T10:30:00.000Z"},
		{"unparseable string", "not-a-date", ""},
		{"empty string", "", ""},
		{"whitespace string", "   ", ""},
		{"nil", nil, ""},
		{"bool", true, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CoerceISODate(tc.value); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestResolveMemberIDChain(t *testing.T) {
	testCases := []struct {
		name     string
		data     map[string]any
		expected string
	}{
		{"member_id wins", map[string]any{"member_id": "m1", "user_id": "u1"}, "m1"},
		{"user_id second", map[string]any{"user_id": "u1", "membership_id": "ms1"}, "u1"},
		{"membership_id third", map[string]any{"membership_id": "ms1", "customer_id": "c1"}, "ms1"},
		{"customer_id fourth", map[string]any{"customer_id": "c1", "id": "i1"}, "c1"},
		{"generic id last", map[string]any{"id": "i1"}, "i1"},
		{"blank strings skipped", map[string]any{"member_id": "  ", "user_id": "u1"}, "u1"},
		{"non-string skipped", map[string]any{"member_id": 42, "user_id": "u1"}, "u1"},
		{"nothing resolves", map[string]any{"unrelated": "x"}, "unknown-evt_x"},
		{"nil data", nil, "unknown-evt_x"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw := models.RawWebhookEvent{ID: "evt_x", Type: "purchase.created", Data: tc.data}
			canonical := NormalizeAt(raw, fixedNow())
			if canonical.MemberID != tc.expected {
				t.Errorf("Expected memberId %q, got %q", tc.expected, canonical.MemberID)
			}
		})
	}
}

func TestResolveTier(t *testing.T) {
	testCases := []struct {
		name     string
		data     map[string]any
		expected string
	}{
		{"direct tier", map[string]any{"tier": "pro", "plan": "basic"}, "pro"},
		{"plan string", map[string]any{"plan": "basic"}, "basic"},
		{"plan object prefers id", map[string]any{"plan": map[string]any{"id": "plan_1", "name": "Basic"}}, "plan_1"},
		{"plan object falls back to name", map[string]any{"plan": map[string]any{"name": "Basic"}}, "Basic"},
		{"blank tier ignored", map[string]any{"tier": " ", "plan": "basic"}, "basic"},
		{"no tier", map[string]any{}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw := models.RawWebhookEvent{ID: "evt_t", Type: "purchase.created", Data: tc.data}
			canonical := NormalizeAt(raw, fixedNow())
			if canonical.Tier != tc.expected {
				t.Errorf("Expected tier %q, got %q", tc.expected, canonical.Tier)
			}
		})
	}
}

func TestResolveRenewalDateFirstPresentWins(t *testing.T) {
	// The first candidate key that is present is used even when it fails to
	// coerce; later candidates are not consulted.
	raw := models.RawWebhookEvent{
		ID:   "evt_r",
		Type: "subscription.renewed",
		Data: map[string]any{
			"renewal_date": "garbage",
			"renewal_at":   "2025-04-15T10:30:00Z",
		},
	}

	canonical := NormalizeAt(raw, fixedNow())
	if canonical.RenewalDate != "" {
		t.Errorf("Expected empty renewal date, got %q", canonical.RenewalDate)
	}
}

func TestOccurredAtFallbackChain(t *testing.T) {
	testCases := []struct {
		name     string
		raw      models.RawWebhookEvent
		expected string
	}{
		{
			"timestamp preferred",
			models.RawWebhookEvent{ID: "e", Type: "purchase.created", Timestamp: "2025-03-15T10:30:00Z", CreatedAt: "2025-01-01T00:00:00Z"},
			"2025-03-15T10:30:00.000Z",
		},
		{
			"created_at second",
			models.RawWebhookEvent{ID: "e", Type: "purchase.created", CreatedAt: "2025-01-01T00:00:00Z"},
			"2025-01-01T00:00:00.000Z",
		},
		{
			"createdAt third",
			models.RawWebhookEvent{ID: "e", Type: "purchase.created", CreatedAtCamel: float64(1742034600)},
			"2025-03-15T10:30:00.000Z",
		},
		{
			"unparseable timestamp falls through",
			models.RawWebhookEvent{ID: "e", Type: "purchase.created", Timestamp: "garbage", CreatedAt: "2025-01-01T00:00:00Z"},
			"2025-01-01T00:00:00.000Z",
		},
		{
			"ingestion time default",
			models.RawWebhookEvent{ID: "e", Type: "purchase.created"},
			"2025-06-01T12:00:00.000Z",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			canonical := NormalizeAt(tc.raw, fixedNow())
			if canonical.OccurredAt != tc.expected {
				t.Errorf("Expected occurredAt %q, got %q", tc.expected, canonical.OccurredAt)
			}
		})
	}
}
