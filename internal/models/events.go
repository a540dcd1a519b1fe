package models

// EventKind is the closed set of canonical member lifecycle kinds. Vendor
// payload type strings are mapped onto this enumeration by the normalizer.
type EventKind string

const (
	EventKindMemberJoined   EventKind = "member_joined"
	EventKindMemberRenewed  EventKind = "member_renewed"
	EventKindMemberCanceled EventKind = "member_canceled"
	EventKindMemberRefunded EventKind = "member_refunded"
)

// statusByKind maps a projected event kind to the member status it implies.
var statusByKind = map[EventKind]MemberStatus{
	EventKindMemberJoined:   MemberStatusActive,
	EventKindMemberRenewed:  MemberStatusActive,
	EventKindMemberCanceled: MemberStatusCanceled,
	EventKindMemberRefunded: MemberStatusRefunded,
}

func StatusForKind(kind EventKind) MemberStatus {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return MemberStatusActive
}

// RawWebhookEvent is the vendor-shaped payload exactly as delivered. The Data
// bag is loosely typed on purpose: key names vary by event type and the
// normalizer resolves them through ordered candidate chains. Timestamp fields
// may be strings or epoch numbers, so they stay untyped until coercion.
type RawWebhookEvent struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Timestamp      any            `json:"timestamp,omitempty"`
	CreatedAt      any            `json:"created_at,omitempty"`
	CreatedAtCamel any            `json:"createdAt,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

// CanonicalEvent is the normalized, vendor-agnostic lifecycle event. All
// timestamps are ISO-8601 strings with millisecond precision. Raw retains the
// original payload for the audit log.
type CanonicalEvent struct {
	EventID     string          `json:"eventId"`
	Kind        EventKind       `json:"kind"`
	MemberID    string          `json:"memberId"`
	Tier        string          `json:"tier,omitempty"`
	RenewalDate string          `json:"renewalDate,omitempty"`
	OccurredAt  string          `json:"occurredAt"`
	Raw         RawWebhookEvent `json:"raw"`
}
