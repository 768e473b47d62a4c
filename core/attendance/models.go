package attendance

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

var (
	// errors
	ErrLocked         = core.NewPermissionError("attendance of this lesson cannot be edited by you")
	ErrRecordNotFound = core.NewNotFoundError("presence record not found")
	ErrRecordExists   = errors.New("a presence record already exists for this lesson and student")
	errInvalidState   = errors.New(`state must be one of "unknown", "present" or "absent"`)
)

// State is the attendance of one student at one lesson.
type State int8

const (
	Unknown State = iota
	Present
	Absent
)

func StateOf(present bool) State {
	if present {
		return Present
	}
	return Absent
}

func ParseState(s string) (State, error) {
	switch core.CleanString(s, true) {
	case "", "unknown":
		return Unknown, nil
	case "present":
		return Present, nil
	case "absent":
		return Absent, nil
	}
	return Unknown, errInvalidState
}

func (s State) String() string {
	switch s {
	case Present:
		return "present"
	case Absent:
		return "absent"
	default:
		return "unknown"
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errInvalidState
	}
	parsed, err := ParseState(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type (
	// CellKey identifies one cell of the attendance matrix.
	CellKey struct {
		LessonID  string `json:"lesson_id"`
		StudentID string `json:"student_id"`
	}

	// Record is a persisted presence. No record means Unknown.
	Record struct {
		ID        string    `json:"id"`
		LessonID  string    `json:"lesson_id"`
		StudentID string    `json:"student_id"`
		Present   bool      `json:"present"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	RecordFilter struct {
		LessonIDs []string
		StudentID string
	}

	// RecordStore persists presence records. At most one record may exist per CellKey.
	RecordStore interface {
		CreatePresence(ctx context.Context, rec Record) (Record, error)
		UpdatePresence(ctx context.Context, rec Record) (Record, error)
		DeletePresence(ctx context.Context, id string) error
		// QueryPresence applies AND operation on the non-zero RecordFilter fields.
		QueryPresence(ctx context.Context, filter RecordFilter) ([]Record, error)
	}

	PointsAwarder interface {
		AwardAttendance(ctx context.Context, studentID, lessonID string) error
		RevokeAttendance(ctx context.Context, studentID, lessonID string) error
	}

	// EditGuard decides whether a teacher may write the attendance of a lesson.
	EditGuard interface {
		CanEdit(teacherID, lessonID string) bool
	}

	EditGuardFunc func(teacherID, lessonID string) bool

	// Edit is a requested cell change.
	Edit struct {
		LessonID  string `json:"lesson_id" validate:"required"`
		StudentID string `json:"student_id" validate:"required"`
		State     State  `json:"state"`
	}

	Edits struct {
		Edits []Edit `json:"edits" validate:"required,dive"`
	}
)

func (f EditGuardFunc) CanEdit(teacherID, lessonID string) bool {
	return f(teacherID, lessonID)
}

func (r Record) Key() CellKey {
	return CellKey{LessonID: r.LessonID, StudentID: r.StudentID}
}

func (r Record) State() State {
	return StateOf(r.Present)
}
