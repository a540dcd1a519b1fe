package services

import (
	"context"
	"fmt"

	"member-insight-service/internal/models"
	"member-insight-service/internal/privacy"
	"member-insight-service/internal/repository"
)

const memberEventHistoryLimit = 20

// MemberService serves the read surface over projected member state. When a
// company has anonymization enabled, identity fields are masked on the way
// out; stored state is never masked.
type MemberService struct {
	members  repository.MemberStore
	events   repository.EventLogStore
	settings repository.SettingsStore
}

func NewMemberService(
	members repository.MemberStore,
	events repository.EventLogStore,
	settings repository.SettingsStore,
) *MemberService {
	return &MemberService{
		members:  members,
		events:   events,
		settings: settings,
	}
}

func (s *MemberService) SearchMembers(ctx context.Context, query *models.MemberSearchQuery) ([]*models.Member, int64, error) {
	members, totalCount, err := s.members.Search(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search members: %w", err)
	}

	if err := s.maskIfAnonymized(ctx, query.CompanyID, members); err != nil {
		return nil, 0, err
	}

	return members, totalCount, nil
}

func (s *MemberService) GetMember(ctx context.Context, companyID, memberID string) (*models.Member, error) {
	member, err := s.members.FindByID(ctx, companyID, memberID)
	if err != nil {
		return nil, err
	}

	if err := s.maskIfAnonymized(ctx, companyID, []*models.Member{member}); err != nil {
		return nil, err
	}

	return member, nil
}

func (s *MemberService) GetMemberEvents(ctx context.Context, companyID, memberID string) ([]*models.EventLogEntry, error) {
	entries, err := s.events.FindByMember(ctx, companyID, memberID, memberEventHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get member events: %w", err)
	}
	return entries, nil
}

func (s *MemberService) GetSettings(ctx context.Context, companyID string) (*models.CompanySettings, error) {
	return s.settings.Get(ctx, companyID)
}

func (s *MemberService) UpdateSettings(ctx context.Context, companyID string, req *models.UpdateSettingsRequest) (*models.CompanySettings, error) {
	settings := &models.CompanySettings{
		CompanyID: companyID,
		Anonymize: req.Anonymize,
	}
	if err := s.settings.Save(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return settings, nil
}

func (s *MemberService) maskIfAnonymized(ctx context.Context, companyID string, members []*models.Member) error {
	settings, err := s.settings.Get(ctx, companyID)
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if !settings.Anonymize {
		return nil
	}

	for _, member := range members {
		member.Email = privacy.MaskEmail(member.Email)
		member.DisplayName = privacy.MaskName(member.DisplayName)
	}
	return nil
}
