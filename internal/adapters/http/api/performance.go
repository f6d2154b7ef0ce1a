package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/teampulse/internal/domain/model"
	"github.com/okian/teampulse/internal/domain/scoring"
)

// PerformanceHandler serves the read side: on-demand aggregation, the
// published ranking and per-member history.
type PerformanceHandler struct {
	deps         Dependencies
	maxLimit     int
	defaultLimit int
}

// NewPerformanceHandler creates a new performance handler.
func NewPerformanceHandler(deps Dependencies, maxLimit, defaultLimit int) *PerformanceHandler {
	return &PerformanceHandler{deps: deps, maxLimit: maxLimit, defaultLimit: defaultLimit}
}

// HandlePerformance handles GET /scopes/{scope}/performance?sort=overall|name.
func (h *PerformanceHandler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	order, ok := scoring.ParseOrder(r.URL.Query().Get("sort"))
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Errorf("%w: sort must be overall or name", ErrBadRequest))
		return
	}
	perf, err := h.deps.Performance(r.Context(), r.PathValue("scope"), order)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

// HandleLeaderboard handles GET /scopes/{scope}/leaderboard?limit=N.
func (h *PerformanceHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	n := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest))
			return
		}
		if v > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%w: limit above %d", ErrBadRequest, h.maxLimit))
			return
		}
		n = v
	}
	entries, err := h.deps.TopN(r.Context(), r.PathValue("scope"), n)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleRank handles GET /scopes/{scope}/rank/{member}.
func (h *PerformanceHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	entry, err := h.deps.Rank(r.Context(), r.PathValue("scope"), r.PathValue("member"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleMemberTasks handles GET /members/{member}/tasks.
func (h *PerformanceHandler) HandleMemberTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.deps.TasksByAssignee(r.Context(), r.PathValue("member"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	if tasks == nil {
		tasks = []model.TaskRecord{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// HandleMemberSubmissions handles GET /members/{member}/submissions.
func (h *PerformanceHandler) HandleMemberSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.deps.SubmissionsByUser(r.Context(), r.PathValue("member"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	if subs == nil {
		subs = []model.SubmissionRecord{}
	}
	writeJSON(w, http.StatusOK, subs)
}
