package seed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/teampulse/internal/adapters/http/api"
	service "github.com/okian/teampulse/internal/app"
	"github.com/okian/teampulse/internal/domain/scoring"
	"github.com/okian/teampulse/internal/domain/types"
	"github.com/okian/teampulse/pkg/logger"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestGenerate(t *testing.T) {
	Convey("Given a seeded generator configuration", t, func() {
		cfg := Config{Scopes: 2, Members: 5, TasksPerMember: 4, SubmissionsPerMember: 3, Seed: 42}

		Convey("When datasets are generated twice with the same seed", func() {
			first := Generate(cfg, base)
			second := Generate(cfg, base)

			Convey("Then the output is identical", func() {
				So(second, ShouldResemble, first)
			})
		})

		Convey("When datasets are generated", func() {
			datasets := Generate(cfg, base)

			Convey("Then every record is valid and ids are unique", func() {
				So(datasets, ShouldHaveLength, 2)
				So(datasets[0].Scope.ID, ShouldNotEqual, datasets[1].Scope.ID)

				ids := map[string]bool{}
				for _, ds := range datasets {
					So(ds.Scope.Validate(), ShouldBeNil)
					So(ds.Members, ShouldHaveLength, 5)
					for _, m := range ds.Members {
						So(m.Validate(), ShouldBeNil)
						So(ids[m.ID], ShouldBeFalse)
						ids[m.ID] = true
					}
					for _, tk := range ds.Tasks {
						So(tk.Validate(), ShouldBeNil)
						So(tk.ScopeID, ShouldEqual, ds.Scope.ID)
					}
					for _, s := range ds.Submissions {
						So(s.Validate(), ShouldBeNil)
						So(s.Rating, ShouldBeBetweenOrEqual, 0.0, 5.0)
					}
				}
			})
		})

		Convey("When a different seed is used", func() {
			other := cfg
			other.Seed = 7

			Convey("Then different ids are produced", func() {
				So(Generate(other, base)[0].Members[0].ID, ShouldNotEqual, Generate(cfg, base)[0].Members[0].ID)
			})
		})
	})
}

func TestVerifyPerformance(t *testing.T) {
	Convey("Given a generated dataset", t, func() {
		ds := Generate(Config{Scopes: 1, Members: 4, TasksPerMember: 5, SubmissionsPerMember: 3, Seed: 3}, base)[0]
		rows := scoring.Aggregate(ds.Members, ds.Tasks, ds.Submissions)

		Convey("When the served rows match in any order", func() {
			scoring.OrderName.Apply(rows)
			n, err := verifyPerformance(ds, types.NewPerformance(ds.Scope.ID, rows))

			Convey("Then every member is verified", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 4)
			})
		})

		Convey("When a served score drifts", func() {
			rows[1].OverallScore += 1
			_, err := verifyPerformance(ds, types.NewPerformance(ds.Scope.ID, rows))

			Convey("Then verification fails", func() {
				So(errors.Is(err, ErrVerification), ShouldBeTrue)
			})
		})

		Convey("When a member is missing", func() {
			_, err := verifyPerformance(ds, types.NewPerformance(ds.Scope.ID, rows[:3]))

			Convey("Then verification fails", func() {
				So(errors.Is(err, ErrVerification), ShouldBeTrue)
			})
		})
	})
}

func TestVerifyLeaderboard(t *testing.T) {
	Convey("Given leaderboard entries", t, func() {
		Convey("Then dense ranks in score order pass", func() {
			entries := []types.Entry{
				{Rank: 1, MemberID: "a", OverallScore: 90},
				{Rank: 1, MemberID: "b", OverallScore: 90},
				{Rank: 2, MemberID: "c", OverallScore: 50},
			}
			So(verifyLeaderboard("s", entries), ShouldBeNil)
		})

		Convey("Then scores equal at hundredths tie regardless of raw order", func() {
			entries := []types.Entry{
				{Rank: 1, MemberID: "a", OverallScore: 70.001},
				{Rank: 1, MemberID: "b", OverallScore: 70.004},
				{Rank: 2, MemberID: "c", OverallScore: 69.99},
			}
			So(verifyLeaderboard("s", entries), ShouldBeNil)
		})

		Convey("Then distinct scores sharing a rank fail", func() {
			entries := []types.Entry{
				{Rank: 1, MemberID: "a", OverallScore: 90},
				{Rank: 1, MemberID: "b", OverallScore: 80},
			}
			So(errors.Is(verifyLeaderboard("s", entries), ErrVerification), ShouldBeTrue)
		})

		Convey("Then an inverted order fails", func() {
			entries := []types.Entry{
				{Rank: 1, MemberID: "a", OverallScore: 10},
				{Rank: 2, MemberID: "b", OverallScore: 90},
			}
			So(errors.Is(verifyLeaderboard("s", entries), ErrVerification), ShouldBeTrue)
		})

		Convey("Then a rank gap fails", func() {
			entries := []types.Entry{
				{Rank: 1, MemberID: "a", OverallScore: 90},
				{Rank: 3, MemberID: "b", OverallScore: 50},
			}
			So(errors.Is(verifyLeaderboard("s", entries), ErrVerification), ShouldBeTrue)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithLogger(logger.Nop()), service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc, api.WithLogger(logger.Nop())).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When a seed run is executed against it", func() {
			out := filepath.Join(t.TempDir(), "seed.json")
			stats, err := Run(ctx, Config{
				BaseURL:              srv.URL,
				Scopes:               2,
				Members:              6,
				TasksPerMember:       4,
				SubmissionsPerMember: 2,
				Workers:              4,
				SettleTimeout:        10 * time.Second,
				Seed:                 11,
				OutputFile:           out,
			}, logger.Nop())

			Convey("Then every member is verified", func() {
				So(err, ShouldBeNil)
				So(stats.Scopes, ShouldEqual, 2)
				So(stats.MembersVerified, ShouldEqual, 12)
				So(stats.Failed, ShouldEqual, int64(0))
				So(stats.Requests, ShouldBeGreaterThan, int64(12))

				data, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				var saved []Dataset
				So(json.Unmarshal(data, &saved), ShouldBeNil)
				So(saved, ShouldHaveLength, 2)
			})
		})
	})

	Convey("Given an unhealthy service", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		Convey("Then the run stops at the health check", func() {
			stats, err := Run(context.Background(), Config{BaseURL: srv.URL}, logger.Nop())
			So(errors.Is(err, ErrNotReady), ShouldBeTrue)
			So(errors.Is(err, ErrUnexpectedStatus), ShouldBeTrue)
			So(stats.Failed, ShouldEqual, int64(1))
		})
	})
}
