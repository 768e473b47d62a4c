package schedule

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

// DefaultLessonDuration is how long every lesson lasts unless configured otherwise.
const DefaultLessonDuration = 90 * time.Minute

var errInvalidClock = errors.New("time of day must be formatted as HH:MM")

// Clock is a time of day, in minutes since midnight.
// Values past 24:00 only appear as the end of a window spilling over midnight.
type Clock int

func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", core.CleanString(s))
	if err != nil {
		return 0, errInvalidClock
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Add(d time.Duration) Clock {
	return c + Clock(d/time.Minute)
}

// On returns the instant of c on the given calendar day.
func (c Clock) On(date time.Time) time.Time {
	return core.DateOf(date).Add(time.Duration(c) * time.Minute)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errInvalidClock
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Window is a half-open [Start, End) span of a day.
type Window struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

func (w Window) Valid() bool {
	return w.Start < w.End
}

// Overlaps reports whether w and o share any instant. Touching endpoints do not overlap.
func (w Window) Overlaps(o Window) bool {
	return !(w.End <= o.Start || w.Start >= o.End)
}

type (
	Room struct {
		ID       string `json:"id"`
		Number   string `json:"number"`
		Location string `json:"location"`
		Capacity int    `json:"capacity"`
	}

	Course struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		StartDate time.Time `json:"start_date"`
		EndDate   time.Time `json:"end_date"`
	}

	// Group is a class of students meeting once a week in a fixed slot.
	Group struct {
		ID           string       `json:"id"`
		Name         string       `json:"name"`
		CourseID     string       `json:"course_id"`
		TeacherID    string       `json:"teacher_id"`
		Weekday      time.Weekday `json:"weekday"`
		StartTime    Clock        `json:"start_time"`
		StudentCount int          `json:"student_count"`
	}

	// Lesson is one dated occurrence of a group's weekly slot.
	// Its time of day is always the group's StartTime.
	Lesson struct {
		ID              string    `json:"id"`
		Date            time.Time `json:"date"`
		Topic           string    `json:"topic"`
		GroupID         string    `json:"group_id"`
		RoomID          string    `json:"room_id"`
		EquipmentRemark string    `json:"equipment_remark,omitempty"`
		CreatedAt       time.Time `json:"created_at"`
		UpdatedAt       time.Time `json:"updated_at"`
	}

	LessonFilter struct {
		GroupID string
		RoomID  string
		Date    time.Time // zero: any date
		From    time.Time // inclusive; zero: unbounded
		To      time.Time // inclusive; zero: unbounded
	}

	NewLesson struct {
		Date            string `json:"date" validate:"required,date"`
		Topic           string `json:"topic" validate:"required,notblank,max=255"`
		GroupID         string `json:"group_id" validate:"required"`
		RoomID          string `json:"room_id" validate:"required"`
		EquipmentRemark string `json:"equipment_remark" validate:"max=1000"`
	}

	UpdateLesson struct {
		Date            string `json:"date" validate:"required,date"`
		Topic           string `json:"topic" validate:"required,notblank,max=255"`
		RoomID          string `json:"room_id" validate:"required"`
		EquipmentRemark string `json:"equipment_remark" validate:"max=1000"`
	}

	// GenerateLessons creates a lesson on every date of the group's course matching the group's weekday.
	GenerateLessons struct {
		RoomID string `json:"room_id" validate:"required"`
		Topic  string `json:"topic" validate:"max=255"`
	}

	RoomQuery struct {
		Date            string `query:"date" json:"date" validate:"required,date"`
		Start           string `query:"start" json:"start" validate:"required,clock"`
		End             string `query:"end" json:"end" validate:"required,clock"`
		ExcludeLessonID string `query:"exclude" json:"exclude"`
	}
)

// Window of the group's weekly slot, given a lesson duration.
func (g Group) Window(d time.Duration) Window {
	return Window{Start: g.StartTime, End: g.StartTime.Add(d)}
}
