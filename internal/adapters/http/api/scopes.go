package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/teampulse/internal/adapters/mq/queue"
	"github.com/okian/teampulse/internal/domain/model"
	"github.com/okian/teampulse/pkg/logger"
	"github.com/okian/teampulse/pkg/metrics"
)

// Recompute outcomes reported to clients.
const (
	recomputeQueued    = "queued"
	recomputeCoalesced = "coalesced"
	recomputeDeferred  = "deferred"
)

type scopeRequest struct {
	Name string          `json:"name"`
	Kind model.ScopeKind `json:"kind"`
}

type ingestResponse struct {
	Status    string `json:"status"`
	Kind      string `json:"kind"`
	ID        string `json:"id"`
	Recompute string `json:"recompute"`
}

type recomputeResponse struct {
	ScopeID string `json:"scope_id"`
	Status  string `json:"status"`
}

// ScopesHandler handles the write side of a scope: the scope itself, its
// roster, its records and explicit recompute requests.
type ScopesHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewScopesHandler creates a new scopes handler.
func NewScopesHandler(deps Dependencies, log logger.Logger) *ScopesHandler {
	return &ScopesHandler{deps: deps, log: log}
}

// HandlePutScope handles PUT /scopes/{scope}.
func (h *ScopesHandler) HandlePutScope(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_scope"
	var req scopeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	scope := model.Scope{ID: r.PathValue("scope"), Name: req.Name, Kind: req.Kind}
	scope.Normalize()
	if err := h.deps.UpsertScope(r.Context(), scope); err != nil {
		logFailure(r.Context(), h.log, op, err)
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scope)
}

// HandlePostMember handles POST /scopes/{scope}/members.
func (h *ScopesHandler) HandlePostMember(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_member"
	var m model.Member
	if err := decodeBody(w, r, &m); err != nil {
		writeFailure(w, err)
		return
	}
	scopeID := r.PathValue("scope")
	if err := h.deps.UpsertMember(r.Context(), scopeID, m); err != nil {
		logFailure(r.Context(), h.log, op, err)
		writeFailure(w, err)
		return
	}
	h.accepted(w, r, scopeID, "member", m.ID)
}

// HandlePostTask handles POST /scopes/{scope}/tasks.
func (h *ScopesHandler) HandlePostTask(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_task"
	var t model.TaskRecord
	if err := decodeBody(w, r, &t); err != nil {
		writeFailure(w, err)
		return
	}
	scopeID := r.PathValue("scope")
	if err := bindScope(&t.ScopeID, scopeID); err != nil {
		writeFailure(w, err)
		return
	}
	if err := h.deps.UpsertTask(r.Context(), t); err != nil {
		logFailure(r.Context(), h.log, op, err)
		writeFailure(w, err)
		return
	}
	h.accepted(w, r, scopeID, "task", t.ID)
}

// HandlePostSubmission handles POST /scopes/{scope}/submissions.
func (h *ScopesHandler) HandlePostSubmission(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_submission"
	var s model.SubmissionRecord
	if err := decodeBody(w, r, &s); err != nil {
		writeFailure(w, err)
		return
	}
	scopeID := r.PathValue("scope")
	if err := bindScope(&s.ScopeID, scopeID); err != nil {
		writeFailure(w, err)
		return
	}
	if err := h.deps.UpsertSubmission(r.Context(), s); err != nil {
		logFailure(r.Context(), h.log, op, err)
		writeFailure(w, err)
		return
	}
	h.accepted(w, r, scopeID, "submission", s.ID)
}

// HandleRecompute handles POST /scopes/{scope}/recompute. A new job answers
// 202, a job already pending for the scope answers 200, a full queue 429.
func (h *ScopesHandler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	const op = "api.recompute"
	scopeID := r.PathValue("scope")
	if _, err := h.deps.Scope(r.Context(), scopeID); err != nil {
		logFailure(r.Context(), h.log, op, err)
		writeFailure(w, err)
		return
	}
	queued, err := h.deps.RequestRecompute(r.Context(), scopeID, "manual")
	if err != nil {
		logFailure(r.Context(), h.log, op, err)
		writeFailure(w, err)
		return
	}
	if !queued {
		writeJSON(w, http.StatusOK, recomputeResponse{ScopeID: scopeID, Status: recomputeCoalesced})
		return
	}
	writeJSON(w, http.StatusAccepted, recomputeResponse{ScopeID: scopeID, Status: recomputeQueued})
}

// accepted finishes a successful ingest. The record is already stored, so a
// full queue only defers the recompute; the next request or the periodic
// refresh picks the change up.
func (h *ScopesHandler) accepted(w http.ResponseWriter, r *http.Request, scopeID, kind, id string) {
	metrics.RecordIngest(kind)
	resp := ingestResponse{Status: "accepted", Kind: kind, ID: id, Recompute: recomputeQueued}

	queued, err := h.deps.RequestRecompute(r.Context(), scopeID, "ingest")
	switch {
	case errors.Is(err, queue.ErrBackpressure):
		resp.Recompute = recomputeDeferred
		h.log.Warn(r.Context(), "recompute deferred", logger.String("scope", scopeID), logger.String("kind", kind))
	case err != nil:
		logFailure(context.WithoutCancel(r.Context()), h.log, "api.ingest_recompute", err)
		resp.Recompute = recomputeDeferred
	case !queued:
		resp.Recompute = recomputeCoalesced
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// bindScope fills an empty scope_id from the path and rejects a conflicting one.
func bindScope(field *string, pathScope string) error {
	switch strings.TrimSpace(*field) {
	case "", pathScope:
		*field = pathScope
		return nil
	default:
		return fmt.Errorf("%w: scope_id %q does not match path scope %q", ErrBadRequest, *field, pathScope)
	}
}
