// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

// Task workflow states.
const (
	StatusToDo       TaskStatus = "ToDo"
	StatusInProgress TaskStatus = "InProgress"
	StatusReview     TaskStatus = "Review"
	StatusDone       TaskStatus = "Done"
	StatusBlocked    TaskStatus = "Blocked"
)

var taskStatuses = []TaskStatus{StatusToDo, StatusInProgress, StatusReview, StatusDone, StatusBlocked}

// TaskStatuses returns every known status in workflow order.
func TaskStatuses() []TaskStatus {
	out := make([]TaskStatus, len(taskStatuses))
	copy(out, taskStatuses)
	return out
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	for _, known := range taskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseTaskStatus accepts the canonical names as well as lower/snake/kebab
// spellings ("in_progress", "to-do").
func ParseTaskStatus(s string) (TaskStatus, bool) {
	norm := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range taskStatuses {
		if strings.ToLower(string(known)) == norm {
			return known, true
		}
	}
	return "", false
}

// TaskRecord is one task document as produced by the task store.
type TaskRecord struct {
	ID         string     `json:"id" validate:"required"`
	ScopeID    string     `json:"scope_id" validate:"required"`
	Title      string     `json:"title,omitempty" validate:"max=500"`
	AssigneeID string     `json:"assignee_id,omitempty"`
	Status     TaskStatus `json:"status" validate:"task_status"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// Done reports whether the task is completed.
func (t TaskRecord) Done() bool { return t.Status == StatusDone }

// Late reports whether a completed task was last updated after its due date.
// Tasks without both dates are never late.
func (t TaskRecord) Late() bool {
	if !t.Done() || t.DueDate == nil || t.UpdatedAt == nil {
		return false
	}
	return t.UpdatedAt.After(*t.DueDate)
}

// Validate checks the record against its declared constraints.
func (t TaskRecord) Validate() error {
	return validateStruct("task", t)
}

// Normalize rewrites a loosely spelled status to its canonical form. Unknown
// statuses are left as they are so Validate can report them.
func (t *TaskRecord) Normalize() {
	if s, ok := ParseTaskStatus(string(t.Status)); ok {
		t.Status = s
	}
}
