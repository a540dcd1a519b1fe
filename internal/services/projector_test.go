package services

import (
	"context"
	"errors"
	"testing"

	"member-insight-service/internal/models"
	"member-insight-service/internal/repository"
)

func newTestProjector() (*ProjectorService, *repository.MemoryMemberRepository, *repository.MemoryEventLogRepository) {
	members := repository.NewMemoryMemberRepository()
	events := repository.NewMemoryEventLogRepository()
	index := repository.NewMemoryProcessedIndex()
	projector := NewProjectorService(index, members, events, nil)
	return projector, members, events
}

func joinEvent(eventID, memberID, tier string) models.CanonicalEvent {
	return models.CanonicalEvent{
		EventID:    eventID,
		Kind:       models.EventKindMemberJoined,
		MemberID:   memberID,
		Tier:       tier,
		OccurredAt: "2025-03-15T10:30:00.000Z",
		Raw:        models.RawWebhookEvent{ID: eventID, Type: "purchase.created"},
	}
}

func TestProjectIdempotence(t *testing.T) {
	projector, members, events := newTestProjector()
	ctx := context.Background()

	first, err := projector.Project(ctx, joinEvent("evt_1", "u1", "pro"))
	if err != nil {
		t.Fatalf("First projection failed: %v", err)
	}
	if !first.Applied {
		t.Error("Expected first projection to apply")
	}

	second, err := projector.Project(ctx, joinEvent("evt_1", "u1", "pro"))
	if err != nil {
		t.Fatalf("Second projection failed: %v", err)
	}
	if second.Applied {
		t.Error("Expected duplicate projection to be absorbed")
	}
	if second.MemberID != "u1" {
		t.Errorf("Expected memberId u1 on duplicate, got %s", second.MemberID)
	}

	if events.Len() != 1 {
		t.Errorf("Expected exactly 1 event log entry, got %d", events.Len())
	}

	member, err := members.FindByID(ctx, models.DefaultCompanyID, "u1")
	if err != nil {
		t.Fatalf("Expected member to exist: %v", err)
	}
	if member.Status != models.MemberStatusActive {
		t.Errorf("Expected status active, got %s", member.Status)
	}
}

func TestProjectCreatesMemberWithSynthesizedIdentity(t *testing.T) {
	projector, members, _ := newTestProjector()
	ctx := context.Background()

	if _, err := projector.Project(ctx, joinEvent("evt_new", "member_abc_123", "pro")); err != nil {
		t.Fatalf("Projection failed: %v", err)
	}

	member, err := members.FindByID(ctx, models.DefaultCompanyID, "member_abc_123")
	if err != nil {
		t.Fatalf("Expected member to exist: %v", err)
	}

	if member.Email != "member_abc_123@whop.member" {
		t.Errorf("Unexpected synthesized email: %s", member.Email)
	}
	if member.DisplayName != "Whop Member member_a" {
		t.Errorf("Unexpected synthesized display name: %s", member.DisplayName)
	}
	if member.EngagementScore != 0.5 {
		t.Errorf("Expected default engagement 0.5, got %f", member.EngagementScore)
	}
	if member.RiskScore != 0.2 {
		t.Errorf("Expected default risk 0.2, got %f", member.RiskScore)
	}
	if member.LifetimeValue != 0 {
		t.Errorf("Expected zero lifetime value, got %f", member.LifetimeValue)
	}
	if member.JoinDate != "2025-03-15T10:30:00.000Z" {
		t.Errorf("Expected join date from event, got %s", member.JoinDate)
	}
	if len(member.PlanTiers) != 1 || member.PlanTiers[0] != "pro" {
		t.Errorf("Expected plan tiers [pro], got %v", member.PlanTiers)
	}
}

func TestProjectTierAccumulation(t *testing.T) {
	projector, members, _ := newTestProjector()
	ctx := context.Background()

	if _, err := projector.Project(ctx, joinEvent("evt_1", "u1", "starter")); err != nil {
		t.Fatalf("Projection failed: %v", err)
	}
	if _, err := projector.Project(ctx, joinEvent("evt_2", "u1", "premium")); err != nil {
		t.Fatalf("Projection failed: %v", err)
	}

	member, _ := members.FindByID(ctx, models.DefaultCompanyID, "u1")
	if len(member.PlanTiers) != 2 || member.PlanTiers[0] != "starter" || member.PlanTiers[1] != "premium" {
		t.Errorf("Expected plan tiers [starter premium], got %v", member.PlanTiers)
	}

	// Re-delivering an already-known tier must not shorten or grow the set.
	if _, err := projector.Project(ctx, joinEvent("evt_3", "u1", "starter")); err != nil {
		t.Fatalf("Projection failed: %v", err)
	}

	member, _ = members.FindByID(ctx, models.DefaultCompanyID, "u1")
	if len(member.PlanTiers) != 2 {
		t.Errorf("Expected plan tiers unchanged, got %v", member.PlanTiers)
	}
	if member.PlanTier != "starter" {
		t.Errorf("Expected current plan tier starter, got %s", member.PlanTier)
	}
}

func TestProjectStatusDerivation(t *testing.T) {
	testCases := []struct {
		kind     models.EventKind
		expected models.MemberStatus
	}{
		{models.EventKindMemberJoined, models.MemberStatusActive},
		{models.EventKindMemberRenewed, models.MemberStatusActive},
		{models.EventKindMemberCanceled, models.MemberStatusCanceled},
		{models.EventKindMemberRefunded, models.MemberStatusRefunded},
	}

	for _, tc := range testCases {
		t.Run(string(tc.kind), func(t *testing.T) {
			projector, members, _ := newTestProjector()
			ctx := context.Background()

			// Seed prior active state so derivation is proven independent of it.
			if _, err := projector.Project(ctx, joinEvent("evt_seed", "u1", "pro")); err != nil {
				t.Fatalf("Seed projection failed: %v", err)
			}

			canonical := models.CanonicalEvent{
				EventID:    "evt_follow",
				Kind:       tc.kind,
				MemberID:   "u1",
				OccurredAt: "2025-03-16T10:30:00.000Z",
			}
			if _, err := projector.Project(ctx, canonical); err != nil {
				t.Fatalf("Projection failed: %v", err)
			}

			member, _ := members.FindByID(ctx, models.DefaultCompanyID, "u1")
			if member.Status != tc.expected {
				t.Errorf("Expected status %s, got %s", tc.expected, member.Status)
			}
			if member.LastEventType != string(tc.kind) {
				t.Errorf("Expected last event type %s, got %s", tc.kind, member.LastEventType)
			}
		})
	}
}

func TestProjectRenewalDateRetention(t *testing.T) {
	projector, members, _ := newTestProjector()
	ctx := context.Background()

	withRenewal := joinEvent("evt_1", "u1", "pro")
	withRenewal.RenewalDate = "2025-04-15T10:30:00.000Z"
	if _, err := projector.Project(ctx, withRenewal); err != nil {
		t.Fatalf("Projection failed: %v", err)
	}

	withoutRenewal := models.CanonicalEvent{
		EventID:    "evt_2",
		Kind:       models.EventKindMemberRenewed,
		MemberID:   "u1",
		OccurredAt: "2025-03-20T10:30:00.000Z",
	}
	if _, err := projector.Project(ctx, withoutRenewal); err != nil {
		t.Fatalf("Projection failed: %v", err)
	}

	member, _ := members.FindByID(ctx, models.DefaultCompanyID, "u1")
	if member.RenewalDate != "2025-04-15T10:30:00.000Z" {
		t.Errorf("Expected renewal date retained, got %s", member.RenewalDate)
	}
	if member.LastEventAt != "2025-03-20T10:30:00.000Z" {
		t.Errorf("Expected last event timestamp updated, got %s", member.LastEventAt)
	}
}

type failingEventLog struct{}

func (f *failingEventLog) Append(ctx context.Context, entry *models.EventLogEntry) error {
	return errors.New("log write failed")
}

func (f *failingEventLog) FindByMember(ctx context.Context, companyID, memberID string, limit int) ([]*models.EventLogEntry, error) {
	return nil, nil
}

func TestProjectWithdrawsMarkOnWriteFailure(t *testing.T) {
	members := repository.NewMemoryMemberRepository()
	index := repository.NewMemoryProcessedIndex()
	broken := NewProjectorService(index, members, &failingEventLog{}, nil)
	ctx := context.Background()

	if _, err := broken.Project(ctx, joinEvent("evt_1", "u1", "pro")); err == nil {
		t.Fatal("Expected projection to fail when log append fails")
	}

	// The processed mark must be withdrawn so a retry can apply the event.
	events := repository.NewMemoryEventLogRepository()
	healthy := NewProjectorService(index, members, events, nil)

	result, err := healthy.Project(ctx, joinEvent("evt_1", "u1", "pro"))
	if err != nil {
		t.Fatalf("Retry projection failed: %v", err)
	}
	if !result.Applied {
		t.Error("Expected retry to apply after withdrawn mark")
	}
}
