package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/teampulse/internal/seed"
	"github.com/okian/teampulse/pkg/logger"
)

// Default configuration constants.
const (
	defaultScopes      = 3
	defaultMembers     = 12
	defaultTasks       = 8
	defaultSubmissions = 4
	defaultTopN        = 10
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 10 * time.Second
	defaultSettle      = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		scopes      = flag.Int("scopes", defaultScopes, "Number of scopes to create")
		members     = flag.Int("members", defaultMembers, "Roster size per scope")
		tasks       = flag.Int("tasks", defaultTasks, "Maximum tasks per member")
		submissions = flag.Int("submissions", defaultSubmissions, "Maximum submissions per member")
		topN        = flag.Int("top", defaultTopN, "Leaderboard entries to fetch per scope")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent requests")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle      = flag.Duration("settle", defaultSettle, "How long to wait for rankings")
		seedValue   = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Generator seed")
		outputFile  = flag.String("output", "", "Optional file for the generated data")
		logFormat   = flag.String("log-format", "text", "Log format: text or json")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	if *verbose {
		_ = logger.SetLevelString("debug")
	}
	log := logger.Get().Named("seed")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	stats, err := seed.Run(ctx, seed.Config{
		BaseURL:              *baseURL,
		Scopes:               *scopes,
		Members:              *members,
		TasksPerMember:       *tasks,
		SubmissionsPerMember: *submissions,
		TopN:                 *topN,
		Workers:              *workers,
		Timeout:              *timeout,
		SettleTimeout:        *settle,
		Seed:                 *seedValue,
		OutputFile:           *outputFile,
	}, log)
	if stats != nil {
		log.Info(ctx, "seed statistics",
			logger.Int("scopes", stats.Scopes),
			logger.Int("members", stats.Members),
			logger.Int("tasks", stats.Tasks),
			logger.Int("submissions", stats.Submissions),
			logger.Any("requests", stats.Requests),
			logger.Any("failed", stats.Failed),
			logger.Int("membersVerified", stats.MembersVerified),
			logger.Duration("duration", stats.Duration),
		)
	}
	if err != nil {
		log.Error(ctx, "seed run failed", logger.Error(err), logger.Any("seed", *seedValue))
		os.Exit(1)
	}
}
