// Package types contains common types used across the application
package types

import (
	"github.com/okian/teampulse/internal/domain/model"
	"github.com/okian/teampulse/internal/domain/scoring"
)

// Entry represents a leaderboard entry
type Entry struct {
	Rank         int          `json:"rank"`
	MemberID     string       `json:"member_id"`
	Name         string       `json:"name"`
	Role         model.Role   `json:"role"`
	OverallScore float64      `json:"overall_score"`
	Band         scoring.Band `json:"band"`
}

// NewEntry builds the entry for a member at rank.
func NewEntry(rank int, p model.MemberPerformance) Entry {
	return Entry{
		Rank:         rank,
		MemberID:     p.MemberID,
		Name:         p.Name,
		Role:         p.Role,
		OverallScore: p.OverallScore,
		Band:         scoring.BandFor(p.OverallScore),
	}
}

// ScoredMember is a performance row annotated with its band, as returned by
// the performance endpoint.
type ScoredMember struct {
	model.MemberPerformance
	Band scoring.Band `json:"band"`
}

// Performance is the full response for one scope.
type Performance struct {
	ScopeID string          `json:"scope_id"`
	Members []ScoredMember  `json:"members"`
	Summary scoring.Summary `json:"summary"`
}

// NewPerformance annotates rows with their bands and summarizes them. Row
// order is preserved.
func NewPerformance(scopeID string, rows []model.MemberPerformance) Performance {
	members := make([]ScoredMember, len(rows))
	for i, p := range rows {
		members[i] = ScoredMember{MemberPerformance: p, Band: scoring.BandFor(p.OverallScore)}
	}
	return Performance{ScopeID: scopeID, Members: members, Summary: scoring.Summarize(rows)}
}
