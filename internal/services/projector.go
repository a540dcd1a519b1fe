package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"member-insight-service/internal/event"
	"member-insight-service/internal/models"
	"member-insight-service/internal/repository"
)

// ProjectorService applies canonical events to member state and the event
// log exactly once per event identifier. Duplicate deliveries are absorbed
// as successful no-ops.
type ProjectorService struct {
	index     repository.ProcessedEventIndex
	members   repository.MemberStore
	events    repository.EventLogStore
	publisher event.Publisher
	companyID string
	mu        sync.Mutex
}

func NewProjectorService(
	index repository.ProcessedEventIndex,
	members repository.MemberStore,
	events repository.EventLogStore,
	publisher event.Publisher,
) *ProjectorService {
	return &ProjectorService{
		index:     index,
		members:   members,
		events:    events,
		publisher: publisher,
		companyID: models.DefaultCompanyID,
	}
}

// Project applies one canonical event. The duplicate check, the state
// mutation and the log append run under a single lock so concurrent
// deliveries of the same event cannot both apply. If any write fails the
// index mark is withdrawn, so an event is never recorded as processed
// without being reflected in state.
func (s *ProjectorService) Project(ctx context.Context, canonical models.CanonicalEvent) (models.ProjectionResult, error) {
	result, err := s.project(ctx, canonical)
	if err != nil || !result.Applied {
		return result, err
	}

	if s.publisher != nil {
		lifecycleEvent := &event.MemberLifecycleEvent{
			CompanyID: s.companyID,
			Event:     canonical,
			Applied:   true,
			Timestamp: time.Now().Unix(),
		}
		if err := s.publisher.PublishMemberEvent(lifecycleEvent); err != nil {
			log.Printf("Failed to publish lifecycle event %s: %v", canonical.EventID, err)
		}
	}

	return result, nil
}

func (s *ProjectorService) project(ctx context.Context, canonical models.CanonicalEvent) (models.ProjectionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	marked, err := s.index.MarkIfNew(ctx, canonical.EventID)
	if err != nil {
		return models.ProjectionResult{}, fmt.Errorf("failed to check processed index: %w", err)
	}
	if !marked {
		return models.ProjectionResult{Applied: false, MemberID: canonical.MemberID}, nil
	}

	if err := s.apply(ctx, canonical); err != nil {
		if rmErr := s.index.Remove(ctx, canonical.EventID); rmErr != nil {
			log.Printf("Failed to withdraw processed mark for event %s: %v", canonical.EventID, rmErr)
		}
		return models.ProjectionResult{}, err
	}

	return models.ProjectionResult{Applied: true, MemberID: canonical.MemberID}, nil
}

func (s *ProjectorService) apply(ctx context.Context, canonical models.CanonicalEvent) error {
	member, err := s.members.FindByID(ctx, s.companyID, canonical.MemberID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up member %s: %w", canonical.MemberID, err)
	}

	status := models.StatusForKind(canonical.Kind)

	if member != nil {
		if canonical.Tier != "" && !containsTier(member.PlanTiers, canonical.Tier) {
			member.PlanTiers = append(member.PlanTiers, canonical.Tier)
		}
		if canonical.Tier != "" {
			member.PlanTier = canonical.Tier
		}
		member.Status = status
		member.LastEventType = string(canonical.Kind)
		member.LastEventAt = canonical.OccurredAt
		if canonical.RenewalDate != "" {
			member.RenewalDate = canonical.RenewalDate
		}
	} else {
		member = newWebhookMember(canonical, s.companyID, status)
	}

	if err := s.members.Save(ctx, member); err != nil {
		return fmt.Errorf("failed to save member %s: %w", canonical.MemberID, err)
	}

	entry := &models.EventLogEntry{
		EventID:    canonical.EventID,
		MemberID:   canonical.MemberID,
		CompanyID:  s.companyID,
		Type:       canonical.Kind,
		Metadata:   canonical.Raw,
		OccurredAt: canonical.OccurredAt,
	}
	if err := s.events.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append event %s: %w", canonical.EventID, err)
	}

	return nil
}

// newWebhookMember creates member state for an identifier first seen via
// webhook. Identity is synthesized from the member id; analytics fields get
// neutral defaults the projector never touches again.
func newWebhookMember(canonical models.CanonicalEvent, companyID string, status models.MemberStatus) *models.Member {
	var planTiers []string
	if canonical.Tier != "" {
		planTiers = []string{canonical.Tier}
	}

	return &models.Member{
		MemberID:        canonical.MemberID,
		CompanyID:       companyID,
		Email:           canonical.MemberID + "@whop.member",
		DisplayName:     "Whop Member " + shortID(canonical.MemberID),
		JoinDate:        canonical.OccurredAt,
		LastActiveAt:    canonical.OccurredAt,
		LifetimeValue:   0,
		PlanTiers:       planTiers,
		EngagementScore: 0.5,
		RiskScore:       0.2,
		PlanTier:        canonical.Tier,
		Status:          status,
		LastEventType:   string(canonical.Kind),
		LastEventAt:     canonical.OccurredAt,
		RenewalDate:     canonical.RenewalDate,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func containsTier(tiers []string, tier string) bool {
	for _, existing := range tiers {
		if existing == tier {
			return true
		}
	}
	return false
}
