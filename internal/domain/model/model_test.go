package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/teampulse/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestTaskStatus(t *testing.T) {
	convey.Convey("Given task statuses", t, func() {
		convey.Convey("Then the canonical names are valid", func() {
			for _, s := range model.TaskStatuses() {
				convey.So(s.Valid(), convey.ShouldBeTrue)
			}
			convey.So(model.TaskStatus("done").Valid(), convey.ShouldBeFalse)
			convey.So(model.TaskStatus("").Valid(), convey.ShouldBeFalse)
		})

		convey.Convey("When parsing loose spellings", func() {
			cases := map[string]model.TaskStatus{
				"Done":        model.StatusDone,
				"done":        model.StatusDone,
				"in_progress": model.StatusInProgress,
				"In-Progress": model.StatusInProgress,
				"to do":       model.StatusToDo,
				"todo":        model.StatusToDo,
				" REVIEW ":    model.StatusReview,
				"blocked":     model.StatusBlocked,
			}
			for in, want := range cases {
				got, ok := model.ParseTaskStatus(in)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(got, convey.ShouldEqual, want)
			}

			_, ok := model.ParseTaskStatus("archived")
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestTaskRecordLate(t *testing.T) {
	convey.Convey("Given a completed task with both dates", t, func() {
		task := model.TaskRecord{ID: "t1", ScopeID: "s", Status: model.StatusDone, DueDate: day("2024-01-10")}

		convey.Convey("When it was updated before the due date", func() {
			task.UpdatedAt = day("2024-01-05")
			convey.So(task.Late(), convey.ShouldBeFalse)
		})

		convey.Convey("When it was updated exactly on the due date", func() {
			task.UpdatedAt = day("2024-01-10")
			convey.So(task.Late(), convey.ShouldBeFalse)
		})

		convey.Convey("When it was updated after the due date", func() {
			task.UpdatedAt = day("2024-01-15")
			convey.So(task.Late(), convey.ShouldBeTrue)
		})

		convey.Convey("When the task is not done", func() {
			task.Status = model.StatusReview
			task.UpdatedAt = day("2024-01-15")
			convey.So(task.Late(), convey.ShouldBeFalse)
		})

		convey.Convey("When a date is missing", func() {
			task.UpdatedAt = nil
			convey.So(task.Late(), convey.ShouldBeFalse)
		})
	})
}

func TestValidation(t *testing.T) {
	convey.Convey("Given records to validate", t, func() {
		convey.Convey("When a task is well formed", func() {
			task := model.TaskRecord{ID: "t1", ScopeID: "p1", AssigneeID: "u1", Status: model.StatusToDo}
			convey.So(task.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When a task has an unknown status", func() {
			task := model.TaskRecord{ID: "t1", ScopeID: "p1", Status: "Archived"}
			err := task.Validate()
			convey.So(errors.Is(err, model.ErrInvalidRecord), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "status")
		})

		convey.Convey("When a task misses its id and scope", func() {
			err := model.TaskRecord{Status: model.StatusDone}.Validate()
			convey.So(errors.Is(err, model.ErrInvalidRecord), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "id is required")
			convey.So(err.Error(), convey.ShouldContainSubstring, "scope_id is required")
		})

		convey.Convey("When a submission rating is out of range", func() {
			sub := model.SubmissionRecord{ID: "s1", ScopeID: "p1", UserID: "u1", Rating: 6, SubmittedAt: time.Now()}
			err := sub.Validate()
			convey.So(errors.Is(err, model.ErrInvalidRecord), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "rating")
		})

		convey.Convey("When a submission has no submitted_at", func() {
			sub := model.SubmissionRecord{ID: "s1", ScopeID: "p1", UserID: "u1", Rating: 4}
			err := sub.Validate()
			convey.So(errors.Is(err, model.ErrInvalidRecord), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "submitted_at")
		})

		convey.Convey("When an unrated submission is well formed", func() {
			sub := model.SubmissionRecord{ID: "s1", ScopeID: "p1", UserID: "u1", SubmittedAt: time.Now()}
			convey.So(sub.Validate(), convey.ShouldBeNil)
			convey.So(sub.Rated(), convey.ShouldBeFalse)
		})

		convey.Convey("When a member has an unknown role", func() {
			err := model.Member{ID: "u1", Name: "Ada", Role: "ceo"}.Validate()
			convey.So(errors.Is(err, model.ErrInvalidRecord), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "role")
		})

		convey.Convey("When every role is used", func() {
			for _, r := range model.Roles() {
				convey.So(model.Member{ID: "u1", Name: "Ada", Role: r}.Validate(), convey.ShouldBeNil)
			}
		})

		convey.Convey("When a scope has an unknown kind", func() {
			err := model.Scope{ID: "s1", Kind: "guild"}.Validate()
			convey.So(errors.Is(err, model.ErrInvalidRecord), convey.ShouldBeTrue)
			convey.So(model.Scope{ID: "s1", Kind: model.ScopeCollaboration}.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestNormalize(t *testing.T) {
	convey.Convey("Given records with loose or missing values", t, func() {
		convey.Convey("When a task status is spelled loosely", func() {
			task := model.TaskRecord{ID: "t1", ScopeID: "p1", Status: "in_progress"}
			task.Normalize()
			convey.So(task.Status, convey.ShouldEqual, model.StatusInProgress)
			convey.So(task.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When a task status is unknown", func() {
			task := model.TaskRecord{ID: "t1", ScopeID: "p1", Status: "archived"}
			task.Normalize()
			convey.So(task.Status, convey.ShouldEqual, model.TaskStatus("archived"))
		})

		convey.Convey("When a scope has no kind", func() {
			scope := model.Scope{ID: "s1"}
			scope.Normalize()
			convey.So(scope.Kind, convey.ShouldEqual, model.ScopeTeam)
			convey.So(scope.Validate(), convey.ShouldBeNil)
		})
	})
}
