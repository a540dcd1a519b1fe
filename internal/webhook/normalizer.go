package webhook

import (
	"log"
	"strings"
	"time"

	"member-insight-service/internal/models"
)

// isoLayout renders timestamps the way the upstream contract expects them:
// UTC with millisecond precision.
const isoLayout = "2006-01-02T15:04:05.000Z"

// Epoch values above this threshold are interpreted as milliseconds,
// below it as seconds.
const millisThreshold = 10_000_000_000

// kindByVendorType is the fixed mapping from vendor payload type strings to
// canonical kinds. Unlisted types are reported by KindFor as unrecognized.
var kindByVendorType = map[string]models.EventKind{
	"purchase.created":      models.EventKindMemberJoined,
	"subscription.renewed":  models.EventKindMemberRenewed,
	"subscription.canceled": models.EventKindMemberCanceled,
	"refund.issued":         models.EventKindMemberRefunded,
}

// KindFor maps a vendor type string to a canonical kind. Unrecognized types
// default to member_joined for compatibility with the upstream contract; the
// second return value lets callers surface them instead of absorbing silently.
func KindFor(vendorType string) (models.EventKind, bool) {
	if kind, ok := kindByVendorType[vendorType]; ok {
		return kind, true
	}
	return models.EventKindMemberJoined, false
}

// CoerceISODate converts a loosely-typed timestamp value to an ISO-8601
// string. Strings are parsed as RFC3339 or plain dates, numbers as epoch
// seconds or milliseconds. Unparseable values yield "", never an error.
func CoerceISODate(value any) string {
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return ""
		}
		if parsed, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
			return parsed.UTC().Format(isoLayout)
		}
		if parsed, err := time.Parse("2006-01-02", trimmed); err == nil {
			return parsed.UTC().Format(isoLayout)
		}
		return ""
	case float64:
		return epochToISO(int64(v))
	case int64:
		return epochToISO(v)
	case int:
		return epochToISO(int64(v))
	case time.Time:
		return v.UTC().Format(isoLayout)
	default:
		return ""
	}
}

func epochToISO(value int64) string {
	millis := value
	if value <= millisThreshold {
		millis = value * 1000
	}
	return time.UnixMilli(millis).UTC().Format(isoLayout)
}

// resolveMemberID walks the ordered candidate fields and takes the first
// non-empty string. The fallback keeps unresolvable events unique and
// deterministic per raw event.
func resolveMemberID(data map[string]any, fallback string) string {
	if data == nil {
		return fallback
	}

	candidates := []string{"member_id", "user_id", "membership_id", "customer_id", "id"}
	for _, key := range candidates {
		if value, ok := data[key].(string); ok && strings.TrimSpace(value) != "" {
			return value
		}
	}

	return fallback
}

func resolveTier(data map[string]any) string {
	if data == nil {
		return ""
	}

	if tier, ok := data["tier"].(string); ok && strings.TrimSpace(tier) != "" {
		return tier
	}

	switch plan := data["plan"].(type) {
	case string:
		if strings.TrimSpace(plan) != "" {
			return plan
		}
	case map[string]any:
		if id, ok := plan["id"].(string); ok && id != "" {
			return id
		}
		if name, ok := plan["name"].(string); ok && name != "" {
			return name
		}
	}

	return ""
}

func resolveRenewalDate(data map[string]any) string {
	if data == nil {
		return ""
	}

	// First present candidate wins even when it fails to coerce.
	for _, key := range []string{"renewal_date", "renewal_at", "renewal_ts"} {
		if value, ok := data[key]; ok && value != nil {
			return CoerceISODate(value)
		}
	}

	return ""
}

func resolveOccurredAt(raw models.RawWebhookEvent, now time.Time) string {
	if ts := CoerceISODate(raw.Timestamp); ts != "" {
		return ts
	}
	if ts := CoerceISODate(raw.CreatedAt); ts != "" {
		return ts
	}
	if ts := CoerceISODate(raw.CreatedAtCamel); ts != "" {
		return ts
	}
	return now.UTC().Format(isoLayout)
}

// Normalize maps a raw vendor event to its canonical form. It never fails:
// unresolvable fields degrade to defaults.
func Normalize(raw models.RawWebhookEvent) models.CanonicalEvent {
	return NormalizeAt(raw, time.Now())
}

// NormalizeAt is Normalize with an injected clock. Normalizing the same raw
// event at the same instant yields field-for-field identical output.
func NormalizeAt(raw models.RawWebhookEvent, now time.Time) models.CanonicalEvent {
	kind, recognized := KindFor(raw.Type)
	if !recognized {
		log.Printf("Unrecognized vendor event type %q on event %s, defaulting to %s", raw.Type, raw.ID, kind)
	}

	return models.CanonicalEvent{
		EventID:     raw.ID,
		Kind:        kind,
		MemberID:    resolveMemberID(raw.Data, "unknown-"+raw.ID),
		Tier:        resolveTier(raw.Data),
		RenewalDate: resolveRenewalDate(raw.Data),
		OccurredAt:  resolveOccurredAt(raw, now),
		Raw:         raw,
	}
}
