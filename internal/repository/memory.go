package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"member-insight-service/internal/models"
)

// In-memory store implementations. This is the default backing store: state
// is volatile and lives for the process lifetime only. The same interfaces
// are implemented by the mongo/redis repositories so the driver can be
// swapped by configuration.

type MemoryMemberRepository struct {
	mu      sync.RWMutex
	members []*models.Member
}

func NewMemoryMemberRepository() *MemoryMemberRepository {
	return &MemoryMemberRepository{}
}

func (r *MemoryMemberRepository) FindByID(ctx context.Context, companyID, memberID string) (*models.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, member := range r.members {
		if member.CompanyID == companyID && member.MemberID == memberID {
			copied := *member
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryMemberRepository) Save(ctx context.Context, member *models.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	currentTime := time.Now().Unix()
	if member.Metadata.CreatedAt == 0 {
		member.Metadata.CreatedAt = currentTime
	}
	member.Metadata.UpdatedAt = currentTime

	copied := *member
	for i, existing := range r.members {
		if existing.CompanyID == member.CompanyID && existing.MemberID == member.MemberID {
			copied.Metadata.CreatedAt = existing.Metadata.CreatedAt
			r.members[i] = &copied
			return nil
		}
	}

	r.members = append(r.members, &copied)
	return nil
}

func (r *MemoryMemberRepository) Search(ctx context.Context, query *models.MemberSearchQuery) ([]*models.Member, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Member
	q := strings.ToLower(query.Q)
	for _, member := range r.members {
		if member.CompanyID != query.CompanyID {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(member.Email), q) &&
			!strings.Contains(strings.ToLower(member.DisplayName), q) {
			continue
		}
		copied := *member
		matched = append(matched, &copied)
	}

	totalCount := int64(len(matched))

	if query.Offset > 0 {
		if query.Offset >= len(matched) {
			return nil, totalCount, nil
		}
		matched = matched[query.Offset:]
	}
	if query.Limit > 0 && len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}

	return matched, totalCount, nil
}

func (r *MemoryMemberRepository) ListByCompany(ctx context.Context, companyID string, limit int) ([]*models.Member, error) {
	members, _, err := r.Search(ctx, &models.MemberSearchQuery{CompanyID: companyID, Limit: limit})
	return members, err
}

type MemoryEventLogRepository struct {
	mu      sync.RWMutex
	entries []*models.EventLogEntry
}

func NewMemoryEventLogRepository() *MemoryEventLogRepository {
	return &MemoryEventLogRepository{}
}

func (r *MemoryEventLogRepository) Append(ctx context.Context, entry *models.EventLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.entries {
		if existing.EventID == entry.EventID {
			return ErrDuplicateEvent
		}
	}

	copied := *entry
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *MemoryEventLogRepository) FindByMember(ctx context.Context, companyID, memberID string, limit int) ([]*models.EventLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.EventLogEntry
	for _, entry := range r.entries {
		if entry.CompanyID == companyID && entry.MemberID == memberID {
			copied := *entry
			matched = append(matched, &copied)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].OccurredAt > matched[j].OccurredAt
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

// Len reports the total number of appended entries.
func (r *MemoryEventLogRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

type MemoryProcessedIndex struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewMemoryProcessedIndex() *MemoryProcessedIndex {
	return &MemoryProcessedIndex{
		ids: make(map[string]struct{}),
	}
}

func (r *MemoryProcessedIndex) MarkIfNew(ctx context.Context, eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ids[eventID]; exists {
		return false, nil
	}
	r.ids[eventID] = struct{}{}
	return true, nil
}

func (r *MemoryProcessedIndex) Remove(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.ids, eventID)
	return nil
}

// Reset clears the index. Test helper.
func (r *MemoryProcessedIndex) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ids = make(map[string]struct{})
}

type MemorySettingsRepository struct {
	mu       sync.RWMutex
	settings map[string]*models.CompanySettings
}

func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{
		settings: make(map[string]*models.CompanySettings),
	}
}

func (r *MemorySettingsRepository) Get(ctx context.Context, companyID string) (*models.CompanySettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if settings, ok := r.settings[companyID]; ok {
		copied := *settings
		return &copied, nil
	}
	return &models.CompanySettings{CompanyID: companyID, Anonymize: false}, nil
}

func (r *MemorySettingsRepository) Save(ctx context.Context, settings *models.CompanySettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *settings
	r.settings[settings.CompanyID] = &copied
	return nil
}
