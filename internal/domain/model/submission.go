package model

import "time"

// Rating bounds for submissions. A zero rating means "not rated yet".
const (
	MinRating = 0
	MaxRating = 5
)

// SubmissionRecord is one reviewed (or pending) piece of work.
type SubmissionRecord struct {
	ID          string     `json:"id" validate:"required"`
	ScopeID     string     `json:"scope_id" validate:"required"`
	UserID      string     `json:"user_id" validate:"required"`
	Rating      float64    `json:"rating" validate:"gte=0,lte=5"`
	Feedback    string     `json:"feedback,omitempty" validate:"max=4000"`
	SubmittedAt time.Time  `json:"submitted_at" validate:"required"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

// Rated reports whether the submission carries a rating.
func (s SubmissionRecord) Rated() bool { return s.Rating > 0 }

// Validate checks the record against its declared constraints.
func (s SubmissionRecord) Validate() error {
	return validateStruct("submission", s)
}
