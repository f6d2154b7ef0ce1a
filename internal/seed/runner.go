// Package seed fills a running service with generated scopes, rosters and
// records, then checks the served figures against a local aggregation.
package seed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/teampulse/internal/domain/types"
	"github.com/okian/teampulse/pkg/logger"
)

// ErrNotReady is returned when the service never became healthy or never
// published a ranking within the settle timeout.
var ErrNotReady = errors.New("service not ready")

type runner struct {
	cfg    Config
	client *client
	log    logger.Logger
	stats  *Stats

	requests atomic.Int64
	failed   atomic.Int64
}

// Run executes a complete seed run:
//  1. health check
//  2. generate datasets
//  3. create scopes and submit records concurrently
//  4. request a recompute of every scope
//  5. verify performance and leaderboards
func Run(ctx context.Context, cfg Config, log logger.Logger) (*Stats, error) {
	cfg.withDefaults()
	r := &runner{
		cfg:    cfg,
		client: newClient(cfg.BaseURL, cfg.Timeout),
		log:    log,
		stats:  &Stats{StartTime: time.Now()},
	}
	defer func() {
		r.stats.Requests = r.requests.Load()
		r.stats.Failed = r.failed.Load()
		r.stats.Duration = time.Since(r.stats.StartTime)
	}()

	log.Info(ctx, "starting seed run",
		logger.String("url", cfg.BaseURL),
		logger.Int("scopes", cfg.Scopes),
		logger.Int("members", cfg.Members),
		logger.Int("workers", cfg.Workers),
	)

	if err := r.checkHealth(ctx); err != nil {
		return r.stats, err
	}

	datasets := Generate(cfg, time.Now())
	for _, ds := range datasets {
		r.stats.Scopes++
		r.stats.Members += len(ds.Members)
		r.stats.Tasks += len(ds.Tasks)
		r.stats.Submissions += len(ds.Submissions)
	}
	if cfg.OutputFile != "" {
		if err := saveDatasets(cfg.OutputFile, datasets); err != nil {
			return r.stats, err
		}
		log.Info(ctx, "generated data saved", logger.String("file", cfg.OutputFile))
	}

	for _, ds := range datasets {
		if err := r.submit(ctx, ds); err != nil {
			return r.stats, err
		}
	}
	log.Info(ctx, "records submitted",
		logger.Int("tasks", r.stats.Tasks),
		logger.Int("submissions", r.stats.Submissions),
		logger.Any("requests", r.requests.Load()),
	)

	for _, ds := range datasets {
		if err := r.recompute(ctx, ds.Scope.ID); err != nil {
			return r.stats, err
		}
	}

	var errs []error
	for _, ds := range datasets {
		n, err := r.verify(ctx, ds)
		r.stats.MembersVerified += n
		if err != nil {
			log.Error(ctx, "scope verification failed", logger.String("scope", ds.Scope.ID), logger.Error(err))
			errs = append(errs, err)
			continue
		}
		log.Info(ctx, "scope verified", logger.String("scope", ds.Scope.ID), logger.Int("members", n))
	}
	if err := errors.Join(errs...); err != nil {
		return r.stats, err
	}

	log.Info(ctx, "seed run completed",
		logger.Int("membersVerified", r.stats.MembersVerified),
		logger.Duration("duration", time.Since(r.stats.StartTime)),
	)
	return r.stats, nil
}

func (r *runner) call(ctx context.Context, method, path string, body, out any, accept ...int) (int, error) {
	r.requests.Add(1)
	status, err := r.client.do(ctx, method, path, body, out, accept...)
	if err != nil {
		r.failed.Add(1)
	}
	return status, err
}

func (r *runner) checkHealth(ctx context.Context) error {
	if _, err := r.call(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return fmt.Errorf("%w: health check: %w", ErrNotReady, err)
	}
	return nil
}

// submit creates the scope, then posts its members, tasks and submissions
// with at most cfg.Workers requests in flight.
func (r *runner) submit(ctx context.Context, ds Dataset) error {
	base := "/scopes/" + url.PathEscape(ds.Scope.ID)
	scope := map[string]any{"name": ds.Scope.Name, "kind": ds.Scope.Kind}
	if _, err := r.call(ctx, http.MethodPut, base, scope, nil); err != nil {
		return fmt.Errorf("create scope: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	post := func(path string, body any) {
		g.Go(func() error {
			_, err := r.call(gCtx, http.MethodPost, base+path, body, nil, http.StatusAccepted)
			return err
		})
	}
	for _, m := range ds.Members {
		post("/members", m)
	}
	for _, t := range ds.Tasks {
		post("/tasks", t)
	}
	for _, s := range ds.Submissions {
		post("/submissions", s)
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("submit scope %s: %w", ds.Scope.ID, err)
	}
	r.log.Debug(ctx, "scope submitted", logger.String("scope", ds.Scope.ID))
	return nil
}

// recompute asks for a fresh ranking, retrying while the queue pushes back.
func (r *runner) recompute(ctx context.Context, scopeID string) error {
	path := "/scopes/" + url.PathEscape(scopeID) + "/recompute"
	return r.poll(ctx, func() (bool, error) {
		status, err := r.call(ctx, http.MethodPost, path, nil, nil,
			http.StatusAccepted, http.StatusOK, http.StatusTooManyRequests)
		if err != nil {
			return false, err
		}
		return status != http.StatusTooManyRequests, nil
	})
}

func (r *runner) verify(ctx context.Context, ds Dataset) (int, error) {
	base := "/scopes/" + url.PathEscape(ds.Scope.ID)

	// Wait until a ranking covering the whole roster is published.
	want := min(r.cfg.TopN, len(ds.Members))
	var entries []types.Entry
	err := r.poll(ctx, func() (bool, error) {
		entries = nil
		status, err := r.call(ctx, http.MethodGet, base+"/leaderboard?limit="+strconv.Itoa(r.cfg.TopN), nil, &entries,
			http.StatusOK, http.StatusNotFound)
		if err != nil {
			return false, err
		}
		return status == http.StatusOK && len(entries) == want, nil
	})
	if err != nil {
		return 0, err
	}
	if err := verifyLeaderboard(ds.Scope.ID, entries); err != nil {
		return 0, err
	}

	var perf types.Performance
	if _, err := r.call(ctx, http.MethodGet, base+"/performance", nil, &perf); err != nil {
		return 0, err
	}
	return verifyPerformance(ds, perf)
}

// poll calls fn until it reports done, fails, or the settle timeout passes.
func (r *runner) poll(ctx context.Context, fn func() (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.SettleTimeout)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		done, err := fn()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
		case <-ticker.C:
		}
	}
}

func saveDatasets(path string, datasets []Dataset) error {
	data, err := json.MarshalIndent(datasets, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal datasets: %w", err)
	}
	if err := os.WriteFile(path, data, outputFilePerms); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
