package scoring

import (
	"github.com/samber/lo"

	"github.com/okian/teampulse/internal/domain/model"
)

// Summary condenses a scope's performance list into team-level figures.
type Summary struct {
	Members           int          `json:"members"`
	AvgCompletionRate float64      `json:"avg_completion_rate"`
	AvgOnTimeRate     float64      `json:"avg_on_time_rate"`
	AvgQualityScore   float64      `json:"avg_quality_score"`
	AvgOverallScore   float64      `json:"avg_overall_score"`
	TopPerformer      string       `json:"top_performer,omitempty"`
	Bands             map[Band]int `json:"bands"`
}

// Summarize averages every figure across members. The top performer is the
// member SortByOverallScore would list first.
func Summarize(perfs []model.MemberPerformance) Summary {
	s := Summary{Members: len(perfs), Bands: make(map[Band]int, len(Bands()))}
	for _, b := range Bands() {
		s.Bands[b] = 0
	}
	if len(perfs) == 0 {
		return s
	}

	n := float64(len(perfs))
	s.AvgCompletionRate = lo.SumBy(perfs, func(p model.MemberPerformance) float64 { return p.CompletionRate }) / n
	s.AvgOnTimeRate = lo.SumBy(perfs, func(p model.MemberPerformance) float64 { return p.OnTimeRate }) / n
	s.AvgQualityScore = lo.SumBy(perfs, func(p model.MemberPerformance) float64 { return p.AvgQualityScore }) / n
	s.AvgOverallScore = lo.SumBy(perfs, func(p model.MemberPerformance) float64 { return p.OverallScore }) / n

	for _, p := range perfs {
		s.Bands[BandFor(p.OverallScore)]++
	}

	ranked := append([]model.MemberPerformance(nil), perfs...)
	SortByOverallScore(ranked)
	s.TopPerformer = ranked[0].MemberID
	return s
}
