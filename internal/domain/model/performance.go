package model

import "time"

// MemberPerformance is the derived performance view of one roster member.
// It is rebuilt on every aggregation and never persisted on its own.
// RatedTasks counts rated submissions; it stays within TotalTasks only when
// the stored data has at most one submission per task.
type MemberPerformance struct {
	MemberID        string             `json:"member_id"`
	Name            string             `json:"name"`
	Role            Role               `json:"role"`
	TotalTasks      int                `json:"total_tasks"`
	CompletedTasks  int                `json:"completed_tasks"`
	LateTasks       int                `json:"late_tasks"`
	TotalRating     float64            `json:"total_rating"`
	RatedTasks      int                `json:"rated_tasks"`
	Submissions     []SubmissionRecord `json:"submissions"`
	CompletionRate  float64            `json:"completion_rate"`
	OnTimeRate      float64            `json:"on_time_rate"`
	AvgQualityScore float64            `json:"avg_quality_score"`
	OverallScore    float64            `json:"overall_score"`
}

// Snapshot is one materialized aggregation result for a scope.
type Snapshot struct {
	ScopeID    string              `json:"scope_id"`
	Members    []MemberPerformance `json:"members"`
	ComputedAt time.Time           `json:"computed_at"`
}

// RecomputeJob asks the worker pool to rebuild the snapshot of a scope.
type RecomputeJob struct {
	ID          string
	ScopeID     string
	Reason      string
	RequestedAt time.Time
}
