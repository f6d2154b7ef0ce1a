// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/okian/teampulse/internal/adapters/leaderboard"
	"github.com/okian/teampulse/internal/adapters/mq/broadcast"
	"github.com/okian/teampulse/internal/adapters/mq/queue"
	"github.com/okian/teampulse/internal/adapters/repository"
	"github.com/okian/teampulse/internal/domain/model"
	"github.com/okian/teampulse/internal/domain/scoring"
	"github.com/okian/teampulse/internal/domain/types"
	"github.com/okian/teampulse/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // shared codec

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	repository.Reader
	repository.Writer

	// RequestRecompute asks for a fresh snapshot of scopeID. It reports false
	// when a recompute for the scope is already pending, and wraps
	// queue.ErrBackpressure when the job could not be queued.
	RequestRecompute(ctx context.Context, scopeID, reason string) (bool, error)

	// Performance aggregates the current records of a scope on demand.
	Performance(ctx context.Context, scopeID string, order scoring.Order) (types.Performance, error)

	// Read operations expose the last published ranking.
	TopN(ctx context.Context, scopeID string, n int) ([]types.Entry, error)
	Rank(ctx context.Context, scopeID, memberID string) (types.Entry, error)
	Snapshot(ctx context.Context, scopeID string) (model.Snapshot, error)

	Subscribe(ctx context.Context, scopeID string) (*broadcast.Subscription, error)
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	scopesHandler      *ScopesHandler
	performanceHandler *PerformanceHandler
	streamHandler      *StreamHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := newOptions(opts)
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		scopesHandler:      NewScopesHandler(deps, o.log),
		performanceHandler: NewPerformanceHandler(deps, o.maxLimit, o.defaultLimit),
		streamHandler:      NewStreamHandler(deps, o.log, o.pingInterval),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("PUT /scopes/{scope}", MetricsMiddleware(s.scopesHandler.HandlePutScope, "scope"))
	mux.HandleFunc("POST /scopes/{scope}/members", MetricsMiddleware(s.scopesHandler.HandlePostMember, "members"))
	mux.HandleFunc("POST /scopes/{scope}/tasks", MetricsMiddleware(s.scopesHandler.HandlePostTask, "tasks"))
	mux.HandleFunc("POST /scopes/{scope}/submissions", MetricsMiddleware(s.scopesHandler.HandlePostSubmission, "submissions"))
	mux.HandleFunc("POST /scopes/{scope}/recompute", MetricsMiddleware(s.scopesHandler.HandleRecompute, "recompute"))

	mux.HandleFunc("GET /scopes/{scope}/performance", MetricsMiddleware(s.performanceHandler.HandlePerformance, "performance"))
	mux.HandleFunc("GET /scopes/{scope}/leaderboard", MetricsMiddleware(s.performanceHandler.HandleLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /scopes/{scope}/rank/{member}", MetricsMiddleware(s.performanceHandler.HandleRank, "rank"))
	mux.HandleFunc("GET /scopes/{scope}/stream", MetricsMiddleware(s.streamHandler.HandleStream, "stream"))

	mux.HandleFunc("GET /members/{member}/tasks", MetricsMiddleware(s.performanceHandler.HandleMemberTasks, "member_tasks"))
	mux.HandleFunc("GET /members/{member}/submissions", MetricsMiddleware(s.performanceHandler.HandleMemberSubmissions, "member_submissions"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure translates a domain error into a status and error body.
// Unrecognized errors become a generic 500 so internals do not leak.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, leaderboard.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrInvalidDocument), errors.Is(err, model.ErrInvalidRecord),
		errors.Is(err, ErrBadRequest), errors.Is(err, leaderboard.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, queue.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", errors.New("failed to load performance data"))
	}
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// logFailure records unexpected errors; client mistakes are not logged.
func logFailure(ctx context.Context, log logger.Logger, op string, err error) {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidDocument) ||
		errors.Is(err, model.ErrInvalidRecord) || errors.Is(err, ErrBadRequest) {
		return
	}
	log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
}
