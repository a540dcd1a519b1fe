package event

import "member-insight-service/internal/models"

const (
	// Routing key prefix for events this service emits after projection.
	RoutingKeyLifecyclePrefix = "member.lifecycle."

	// Routing key for canonical events delivered out-of-band by other
	// services; the consumer replays them through the projector.
	RoutingKeyIngest = "member.ingest"
)

type MemberLifecycleEvent struct {
	CompanyID string                `json:"companyId"`
	Event     models.CanonicalEvent `json:"event"`
	Applied   bool                  `json:"applied"`
	Timestamp int64                 `json:"timestamp"`
}
