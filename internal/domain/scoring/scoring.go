// Package scoring turns task and submission records into per-member
// performance figures.
//
// Everything here is pure: no I/O, inputs are never mutated, and identical
// inputs always produce identical outputs. Callers fetch a snapshot of the
// records first and hand the materialized slices in.
package scoring

import (
	"github.com/okian/teampulse/internal/domain/model"
)

// Weights of the overall score. They are product decisions, not tunables.
const (
	CompletionWeight = 0.4
	OnTimeWeight     = 0.3
	QualityWeight    = 0.3

	// ratingScale maps a 0..5 rating onto 0..100.
	ratingScale = 100 / model.MaxRating
	percent     = 100
)

type accumulator struct {
	perf model.MemberPerformance
}

// Aggregate computes one MemberPerformance per roster entry, in roster order.
//
// Tasks and submissions whose owner is not on the roster are ignored. A
// member without any records still appears, with every figure at zero.
func Aggregate(members []model.Member, tasks []model.TaskRecord, submissions []model.SubmissionRecord) []model.MemberPerformance {
	byID := make(map[string]*accumulator, len(members))
	for _, m := range members {
		if _, ok := byID[m.ID]; ok {
			continue
		}
		byID[m.ID] = &accumulator{perf: model.MemberPerformance{
			MemberID:    m.ID,
			Name:        m.Name,
			Role:        m.Role,
			Submissions: []model.SubmissionRecord{},
		}}
	}

	for i := range tasks {
		acc, ok := byID[tasks[i].AssigneeID]
		if !ok {
			continue
		}
		acc.perf.TotalTasks++
		if tasks[i].Done() {
			acc.perf.CompletedTasks++
			if tasks[i].Late() {
				acc.perf.LateTasks++
			}
		}
	}

	for i := range submissions {
		acc, ok := byID[submissions[i].UserID]
		if !ok {
			continue
		}
		acc.perf.Submissions = append(acc.perf.Submissions, submissions[i])
		if submissions[i].Rated() {
			acc.perf.TotalRating += submissions[i].Rating
			acc.perf.RatedTasks++
		}
	}

	out := make([]model.MemberPerformance, 0, len(members))
	for _, m := range members {
		p := byID[m.ID].perf
		derive(&p)
		// Duplicate roster rows share counters but must not share the slice.
		p.Submissions = append([]model.SubmissionRecord(nil), p.Submissions...)
		if p.Submissions == nil {
			p.Submissions = []model.SubmissionRecord{}
		}
		out = append(out, p)
	}
	return out
}

// derive fills the rate fields from the counters.
func derive(p *model.MemberPerformance) {
	p.CompletionRate = 0
	if p.TotalTasks > 0 {
		p.CompletionRate = float64(p.CompletedTasks) / float64(p.TotalTasks) * percent
	}
	p.OnTimeRate = 0
	if p.CompletedTasks > 0 {
		p.OnTimeRate = float64(p.CompletedTasks-p.LateTasks) / float64(p.CompletedTasks) * percent
	}
	p.AvgQualityScore = 0
	if p.RatedTasks > 0 {
		p.AvgQualityScore = p.TotalRating / float64(p.RatedTasks) * ratingScale
	}
	p.OverallScore = OverallScore(p.CompletionRate, p.OnTimeRate, p.AvgQualityScore)
}

// OverallScore blends the three component rates with the fixed weights.
func OverallScore(completionRate, onTimeRate, qualityScore float64) float64 {
	return completionRate*CompletionWeight + onTimeRate*OnTimeWeight + qualityScore*QualityWeight
}
