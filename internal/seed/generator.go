package seed

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/teampulse/internal/domain/model"
)

// Dataset is everything generated for one scope.
type Dataset struct {
	Scope       model.Scope              `json:"scope"`
	Members     []model.Member           `json:"members"`
	Tasks       []model.TaskRecord       `json:"tasks"`
	Submissions []model.SubmissionRecord `json:"submissions"`
}

// generator produces reproducible datasets: the same seed yields the same
// ids, records and timestamps.
type generator struct {
	src  *rand.ChaCha8
	rng  *rand.Rand
	base time.Time
}

func newGenerator(seed uint64, base time.Time) *generator {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	src := rand.NewChaCha8(key)
	return &generator{src: src, rng: rand.New(src), base: base.UTC().Truncate(time.Second)}
}

// Generate builds cfg.Scopes datasets anchored at base.
func Generate(cfg Config, base time.Time) []Dataset {
	cfg.withDefaults()
	g := newGenerator(cfg.Seed, base)
	out := make([]Dataset, 0, cfg.Scopes)
	for i := range cfg.Scopes {
		out = append(out, g.dataset(cfg, i))
	}
	return out
}

func (g *generator) id() string {
	u, err := uuid.NewRandomFromReader(g.src)
	if err != nil {
		// ChaCha8 never fails to read.
		panic(err)
	}
	return u.String()
}

func (g *generator) pick(options []string) string {
	return options[g.rng.IntN(len(options))]
}

func (g *generator) chance(percent int) bool {
	return g.rng.IntN(100) < percent
}

func (g *generator) dataset(cfg Config, n int) Dataset {
	ds := Dataset{
		Scope: model.Scope{
			ID:   fmt.Sprintf("seed-%d-%s", n+1, g.id()[:8]),
			Name: fmt.Sprintf("Seeded scope %d", n+1),
			Kind: model.ScopeKind(g.pick(scopeKinds)),
		},
	}
	roles := model.Roles()
	for range cfg.Members {
		ds.Members = append(ds.Members, model.Member{
			ID:   g.id(),
			Name: g.pick(firstNames) + " " + g.pick(lastNames),
			Role: roles[g.rng.IntN(len(roles))],
		})
	}
	for _, m := range ds.Members {
		if cfg.TasksPerMember > 0 {
			for range g.rng.IntN(cfg.TasksPerMember + 1) {
				ds.Tasks = append(ds.Tasks, g.task(ds.Scope.ID, m.ID))
			}
		}
		if cfg.SubmissionsPerMember > 0 {
			for range g.rng.IntN(cfg.SubmissionsPerMember + 1) {
				ds.Submissions = append(ds.Submissions, g.submission(ds.Scope.ID, m.ID))
			}
		}
	}
	return ds
}

func (g *generator) task(scopeID, assigneeID string) model.TaskRecord {
	statuses := model.TaskStatuses()
	t := model.TaskRecord{
		ID:         g.id(),
		ScopeID:    scopeID,
		Title:      g.pick(taskVerbs) + " " + g.pick(taskThings),
		AssigneeID: assigneeID,
		Status:     statuses[g.rng.IntN(len(statuses))],
	}
	if g.chance(unassignedPercent) {
		t.AssigneeID = ""
	}
	if g.chance(noDueChancePercent) {
		return t
	}
	due := g.base.AddDate(0, 0, 1+g.rng.IntN(maxDueOffsetDays))
	// Updates land either before the due date or up to a week after it.
	updated := due.Add(-time.Duration(1+g.rng.IntN(72)) * time.Hour)
	if g.chance(lateChancePercent) {
		updated = due.Add(time.Duration(1+g.rng.IntN(7*24)) * time.Hour)
	}
	t.DueDate = &due
	t.UpdatedAt = &updated
	return t
}

func (g *generator) submission(scopeID, userID string) model.SubmissionRecord {
	s := model.SubmissionRecord{
		ID:          g.id(),
		ScopeID:     scopeID,
		UserID:      userID,
		SubmittedAt: g.base.AddDate(0, 0, g.rng.IntN(maxDueOffsetDays)),
	}
	if !g.chance(unratedPercent) {
		// Half-point ratings in [1, 5].
		s.Rating = float64(2+g.rng.IntN(2*maxRating-1)) / 2
		reviewed := s.SubmittedAt.Add(time.Duration(1+g.rng.IntN(48)) * time.Hour)
		s.ReviewedAt = &reviewed
		s.Feedback = "Reviewed by seed run"
	}
	return s
}
