package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"member-insight-service/internal/ml"
	"member-insight-service/internal/models"
	"member-insight-service/internal/repository"
)

// Cap on members sent to the remote scorer in one batch.
const maxScoringBatch = 200

// HeuristicFallbackReason tags scores produced by the local path.
const HeuristicFallbackReason = "heuristic_fallback"

// RiskService ranks members by churn risk. It prefers the remote scorer and
// degrades to a deterministic local heuristic when that call fails for any
// reason. The fallback itself never fails.
type RiskService struct {
	members repository.MemberStore
	scorer  ml.Scorer
	now     func() time.Time
}

func NewRiskService(members repository.MemberStore, scorer ml.Scorer) *RiskService {
	return &RiskService{
		members: members,
		scorer:  scorer,
		now:     time.Now,
	}
}

// BuildFeatures derives the read-only per-member feature snapshot. Days since
// last activity is floored at zero; unparseable activity timestamps count as
// current.
func BuildFeatures(member *models.Member, now time.Time) models.RiskFeatures {
	var daysAgo float64
	if lastActive, err := time.Parse(time.RFC3339, member.LastActiveAt); err == nil {
		daysAgo = now.Sub(lastActive).Hours() / 24
		if daysAgo < 0 {
			daysAgo = 0
		}
	}

	return models.RiskFeatures{
		LastActiveDaysAgo: daysAgo,
		EngagementScore:   member.EngagementScore,
		LifetimeValue:     member.LifetimeValue,
	}
}

// HeuristicScore is the deterministic local scoring path:
// 0.6*min(1, days/30) + 0.3*(1-min(1, engagement)) + 0.1*(1-min(1, ltv/500)),
// clamped to [0,1].
func HeuristicScore(features models.RiskFeatures) float64 {
	score := 0.6*min1(features.LastActiveDaysAgo/30) +
		0.3*(1-min1(features.EngagementScore)) +
		0.1*(1-min1(features.LifetimeValue/500))
	return clamp01(score)
}

// ScoreCompany ranks every member of a company by descending risk. The
// second return value reports whether the degraded local path produced the
// scores.
func (s *RiskService) ScoreCompany(ctx context.Context, companyID string) ([]models.RiskScore, bool, error) {
	members, err := s.members.ListByCompany(ctx, companyID, 0)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list members: %w", err)
	}

	now := s.now()

	batch := members
	if len(batch) > maxScoringBatch {
		batch = batch[:maxScoringBatch]
	}

	items := make([]models.ScoreItem, 0, len(batch))
	featuresByID := make(map[string]models.RiskFeatures, len(members))
	for _, member := range members {
		featuresByID[member.MemberID] = BuildFeatures(member, now)
	}
	for _, member := range batch {
		features := featuresByID[member.MemberID]
		items = append(items, models.ScoreItem{
			MemberID: member.MemberID,
			Features: map[string]float64{
				"lastActiveDaysAgo": features.LastActiveDaysAgo,
				"engagementScore":   features.EngagementScore,
				"lifetimeValue":     features.LifetimeValue,
			},
		})
	}

	scored, err := s.scorer.Score(ctx, items)
	if err != nil {
		log.Printf("Remote scoring failed, using heuristic fallback: %v", err)
		return s.heuristicScores(members, featuresByID), true, nil
	}

	byID := make(map[string]models.ScoreResult, len(scored))
	for _, result := range scored {
		byID[result.MemberID] = result
	}

	ranked := make([]models.RiskScore, 0, len(members))
	for _, member := range members {
		score := member.RiskScore
		reasons := []string{}
		if result, ok := byID[member.MemberID]; ok {
			score = result.RiskScore
			reasons = result.Reasons
		}
		ranked = append(ranked, models.RiskScore{
			MemberID:    member.MemberID,
			Email:       member.Email,
			DisplayName: member.DisplayName,
			Score:       clamp01(score),
			Reasons:     reasons,
		})
	}

	sortByScoreDesc(ranked)
	return ranked, false, nil
}

// heuristicScores is the pure fallback path over the already-extracted
// features.
func (s *RiskService) heuristicScores(members []*models.Member, featuresByID map[string]models.RiskFeatures) []models.RiskScore {
	ranked := make([]models.RiskScore, 0, len(members))
	for _, member := range members {
		ranked = append(ranked, models.RiskScore{
			MemberID:    member.MemberID,
			Email:       member.Email,
			DisplayName: member.DisplayName,
			Score:       HeuristicScore(featuresByID[member.MemberID]),
			Reasons:     []string{HeuristicFallbackReason},
			Degraded:    true,
		})
	}

	sortByScoreDesc(ranked)
	return ranked
}

func sortByScoreDesc(ranked []models.RiskScore) {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
}

func min1(value float64) float64 {
	if value < 1 {
		return value
	}
	return 1
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
