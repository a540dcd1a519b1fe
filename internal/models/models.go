package models

// DefaultCompanyID is the tenant attributed to webhook-originated members
// and to sessions that carry no company header. The vendor webhook has no
// tenant information of its own.
const DefaultCompanyID = "mock-company"

// Enums and Constants
type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "active"
	MemberStatusCanceled MemberStatus = "canceled"
	MemberStatusRefunded MemberStatus = "refunded"
)

type SessionRole string

const (
	RoleAdmin  SessionRole = "admin"
	RoleMember SessionRole = "member"
)

// Core Models
type Member struct {
	MemberID        string       `json:"memberId" bson:"memberId"`
	CompanyID       string       `json:"companyId" bson:"companyId"`
	Email           string       `json:"email" bson:"email"`
	DisplayName     string       `json:"displayName" bson:"displayName"`
	JoinDate        string       `json:"joinDate" bson:"joinDate"`
	LastActiveAt    string       `json:"lastActiveAt" bson:"lastActiveAt"`
	LifetimeValue   float64      `json:"lifetimeValue" bson:"lifetimeValue"`
	PlanTiers       []string     `json:"planIds" bson:"planIds"`
	EngagementScore float64      `json:"engagementScore" bson:"engagementScore"`
	RiskScore       float64      `json:"riskScore" bson:"riskScore"`
	PlanTier        string       `json:"planTier,omitempty" bson:"planTier,omitempty"`
	Status          MemberStatus `json:"status,omitempty" bson:"status,omitempty"`
	LastEventType   string       `json:"lastEventType,omitempty" bson:"lastEventType,omitempty"`
	LastEventAt     string       `json:"lastEventAt,omitempty" bson:"lastEventAt,omitempty"`
	RenewalDate     string       `json:"renewalDate,omitempty" bson:"renewalDate,omitempty"`
	Metadata        Metadata     `json:"metadata" bson:"metadata"`
}

// EventLogEntry is the append-only audit record of a projected event.
// Entries are immutable after insertion.
type EventLogEntry struct {
	EventID    string    `json:"eventId" bson:"eventId"`
	MemberID   string    `json:"memberId" bson:"memberId"`
	CompanyID  string    `json:"companyId" bson:"companyId"`
	Type       EventKind `json:"type" bson:"type"`
	Metadata   any       `json:"metadata" bson:"metadata"`
	OccurredAt string    `json:"occurredAt" bson:"occurredAt"`
}

type Metadata struct {
	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}

type CompanySettings struct {
	CompanyID string `json:"companyId" bson:"companyId"`
	Anonymize bool   `json:"anonymize" bson:"anonymize"`
}

// Risk scoring
type RiskFeatures struct {
	LastActiveDaysAgo float64 `json:"lastActiveDaysAgo"`
	EngagementScore   float64 `json:"engagementScore"`
	LifetimeValue     float64 `json:"lifetimeValue"`
}

type RiskScore struct {
	MemberID    string   `json:"memberId"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	Score       float64  `json:"riskScore"`
	Reasons     []string `json:"reasons"`
	Degraded    bool     `json:"degraded,omitempty"`
}

// Remote scorer wire types (POST /score)
type ScoreItem struct {
	MemberID string             `json:"memberId"`
	Features map[string]float64 `json:"features"`
}

type ScoreRequest struct {
	Items []ScoreItem `json:"items"`
}

type ScoreResult struct {
	MemberID  string   `json:"memberId"`
	RiskScore float64  `json:"riskScore"`
	Reasons   []string `json:"reasons"`
}

// DTOs and Requests
type MemberSearchQuery struct {
	CompanyID string
	Q         string
	Limit     int
	Offset    int
}

type UpdateSettingsRequest struct {
	Anonymize bool `json:"anonymize"`
}

type ProjectionResult struct {
	Applied  bool   `json:"applied"`
	MemberID string `json:"memberId"`
}
