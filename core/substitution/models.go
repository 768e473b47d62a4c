package substitution

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core/schedule"
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusAssigned Status = "assigned"
)

type (
	// Substitution is a request to have another teacher run a lesson.
	// It is Open until a substitute is set, and Assigned afterwards.
	Substitution struct {
		ID           string    `json:"id"`
		LessonID     string    `json:"lesson_id"`
		ReportedBy   string    `json:"reported_by"`
		SubstituteID string    `json:"substitute_id,omitempty"`
		Reason       string    `json:"reason,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	QueryFilter struct {
		ReportedBy   string
		SubstituteID string
		Unclaimed    bool
		LessonIDs    []string
	}

	Repository interface {
		// CreateSubstitution fails with ErrDuplicate if the lesson already has a substitution.
		CreateSubstitution(ctx context.Context, sub Substitution) (Substitution, error)
		GetSubstitution(ctx context.Context, id string) (Substitution, error)
		// QuerySubstitutions applies AND operation on the non-zero QueryFilter fields.
		QuerySubstitutions(ctx context.Context, filter QueryFilter) ([]Substitution, error)
		// SetSubstitute replaces the substitute ("" when open) only if it still is from.
		// It fails with ErrChanged when it is not, ErrNotFound when the substitution is gone.
		SetSubstitute(ctx context.Context, id, from, to string, updatedAt time.Time) (Substitution, error)
		// DeleteSubstitution fails with ErrChanged when onlyOpen is set and the substitution is assigned.
		DeleteSubstitution(ctx context.Context, id string, onlyOpen bool) error
	}

	LessonSource interface {
		GetLesson(ctx context.Context, id string) (schedule.Lesson, error)
		GetGroup(ctx context.Context, id string) (schedule.Group, error)
	}

	NewSubstitution struct {
		LessonID string `json:"-" validate:"required"`
		Reason   string `json:"reason" validate:"max=500"`
	}

	AssignSubstitute struct {
		TeacherID string `json:"teacher_id" validate:"required"`
	}
)

func (s Substitution) Status() Status {
	if s.SubstituteID != "" {
		return StatusAssigned
	}
	return StatusOpen
}

func (ns NewSubstitution) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}

func (as AssignSubstitute) Validate(validate *validator.Validate) error {
	return validate.Struct(as)
}

func (s Substitution) MarshalJSON() ([]byte, error) {
	type alias Substitution
	return json.Marshal(struct {
		alias
		Status Status `json:"status"`
	}{alias(s), s.Status()})
}
