package seed

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/teampulse/internal/domain/model"
	"github.com/okian/teampulse/internal/domain/scoring"
	"github.com/okian/teampulse/internal/domain/types"
)

// ErrVerification is returned when served figures disagree with the ones
// computed locally from the generated data.
var ErrVerification = errors.New("verification failed")

// verifyPerformance compares the served performance of ds with a local
// aggregation of the same records, matching rows by member id since the
// roster order depends on arrival order. It returns the number of members
// checked.
func verifyPerformance(ds Dataset, got types.Performance) (int, error) {
	want := scoring.Aggregate(ds.Members, ds.Tasks, ds.Submissions)
	if len(got.Members) != len(want) {
		return 0, fmt.Errorf("%w: scope %s has %d members, want %d",
			ErrVerification, ds.Scope.ID, len(got.Members), len(want))
	}

	served := make(map[string]types.ScoredMember, len(got.Members))
	for _, m := range got.Members {
		served[m.MemberID] = m
	}

	var errs []error
	for _, w := range want {
		g, ok := served[w.MemberID]
		if !ok {
			errs = append(errs, fmt.Errorf("member %s missing", w.MemberID))
			continue
		}
		errs = append(errs, compareRow(w, g.MemberPerformance))
		if band := scoring.BandFor(w.OverallScore); g.Band != band {
			errs = append(errs, fmt.Errorf("member %s band %s, want %s", w.MemberID, g.Band, band))
		}
	}
	if got.Summary.Members != len(want) {
		errs = append(errs, fmt.Errorf("summary counts %d members, want %d", got.Summary.Members, len(want)))
	}
	if err := errors.Join(errs...); err != nil {
		return 0, fmt.Errorf("%w: scope %s: %w", ErrVerification, ds.Scope.ID, err)
	}
	return len(want), nil
}

func compareRow(want, got model.MemberPerformance) error {
	var errs []error
	counts := []struct {
		name      string
		got, want int
	}{
		{"total_tasks", got.TotalTasks, want.TotalTasks},
		{"completed_tasks", got.CompletedTasks, want.CompletedTasks},
		{"late_tasks", got.LateTasks, want.LateTasks},
		{"rated_tasks", got.RatedTasks, want.RatedTasks},
		{"submissions", len(got.Submissions), len(want.Submissions)},
	}
	for _, c := range counts {
		if c.got != c.want {
			errs = append(errs, fmt.Errorf("member %s %s = %d, want %d", want.MemberID, c.name, c.got, c.want))
		}
	}
	rates := []struct {
		name      string
		got, want float64
	}{
		{"completion_rate", got.CompletionRate, want.CompletionRate},
		{"on_time_rate", got.OnTimeRate, want.OnTimeRate},
		{"avg_quality_score", got.AvgQualityScore, want.AvgQualityScore},
		{"overall_score", got.OverallScore, want.OverallScore},
	}
	for _, r := range rates {
		if math.Abs(r.got-r.want) > scoreTolerance {
			errs = append(errs, fmt.Errorf("member %s %s = %.6f, want %.6f", want.MemberID, r.name, r.got, r.want))
		}
	}
	return errors.Join(errs...)
}

// verifyLeaderboard checks that entries are ordered by score with dense
// ranks starting at 1. Scores compare at hundredths, as the leaderboard
// ranks them.
func verifyLeaderboard(scopeID string, entries []types.Entry) error {
	for i, e := range entries {
		if i == 0 {
			if e.Rank != 1 {
				return fmt.Errorf("%w: scope %s: first rank is %d", ErrVerification, scopeID, e.Rank)
			}
			continue
		}
		prev := entries[i-1]
		cur, before := hundredths(e.OverallScore), hundredths(prev.OverallScore)
		if cur > before {
			return fmt.Errorf("%w: scope %s: %s (%.2f) ranked below %s (%.2f)",
				ErrVerification, scopeID, e.MemberID, e.OverallScore, prev.MemberID, prev.OverallScore)
		}
		want := prev.Rank + 1
		if cur == before {
			want = prev.Rank
		}
		if e.Rank != want {
			return fmt.Errorf("%w: scope %s: %s has rank %d, want %d", ErrVerification, scopeID, e.MemberID, e.Rank, want)
		}
	}
	return nil
}

func hundredths(score float64) int64 {
	return int64(math.Round(score * 100))
}
