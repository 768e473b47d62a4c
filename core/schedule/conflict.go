package schedule

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

var ErrInvalidWindow = core.NewValidationError(
	errors.New("invalid time window"),
	core.FieldError{Field: "end", Error: "must be after start"},
)

type (
	// Timetable is the already-fetched data a conflict check runs against:
	// the lessons held in a room on a day and the groups they belong to.
	Timetable struct {
		Lessons []Lesson
		Groups  map[string]Group
	}

	Conflict struct {
		Lesson Lesson `json:"lesson"`
		Window Window `json:"window"`
	}

	Result struct {
		Occupied  bool       `json:"occupied"`
		Conflicts []Conflict `json:"conflicts"`
	}

	// Detector tells whether a room slot is already taken.
	// It holds no state besides the lesson duration and is safe for concurrent use.
	Detector struct {
		lessonDuration time.Duration
	}
)

func NewTimetable(lessons []Lesson, groups []Group) Timetable {
	tt := Timetable{Lessons: lessons, Groups: make(map[string]Group, len(groups))}
	for _, g := range groups {
		tt.Groups[g.ID] = g
	}
	return tt
}

func NewDetector(lessonDuration time.Duration) *Detector {
	if lessonDuration <= 0 {
		lessonDuration = DefaultLessonDuration
	}
	return &Detector{lessonDuration: lessonDuration}
}

func (d *Detector) LessonDuration() time.Duration {
	return d.lessonDuration
}

// EffectiveWindow is the span a lesson occupies: its group's start time plus the lesson duration.
func (d *Detector) EffectiveWindow(group Group) Window {
	return group.Window(d.lessonDuration)
}

// CheckConflict lists the lessons of the timetable held in roomID on date whose
// effective window overlaps w. The lesson excludeLessonID (if any) is ignored,
// so an edited lesson never conflicts with itself.
// Lessons whose group is unknown are skipped.
func (d *Detector) CheckConflict(tt Timetable, roomID string, date time.Time, w Window, excludeLessonID string) (Result, error) {
	if !w.Valid() {
		return Result{}, ErrInvalidWindow
	}

	day := core.DateOf(date)
	res := Result{Conflicts: make([]Conflict, 0)}
	for _, lsn := range tt.Lessons {
		if lsn.RoomID != roomID || !core.DateOf(lsn.Date).Equal(day) {
			continue
		}
		if excludeLessonID != "" && lsn.ID == excludeLessonID {
			continue
		}
		grp, ok := tt.Groups[lsn.GroupID]
		if !ok {
			continue
		}
		other := d.EffectiveWindow(grp)
		if w.Overlaps(other) {
			res.Conflicts = append(res.Conflicts, Conflict{Lesson: lsn, Window: other})
		}
	}

	sort.Slice(res.Conflicts, func(i, j int) bool {
		ci, cj := res.Conflicts[i], res.Conflicts[j]
		if ci.Window.Start != cj.Window.Start {
			return ci.Window.Start < cj.Window.Start
		}
		return ci.Lesson.ID < cj.Lesson.ID
	})
	res.Occupied = len(res.Conflicts) > 0
	return res, nil
}

// CheckGroupSlot runs CheckConflict with the window derived from the group's weekly slot.
func (d *Detector) CheckGroupSlot(tt Timetable, roomID string, date time.Time, group Group, excludeLessonID string) (Result, error) {
	return d.CheckConflict(tt, roomID, date, d.EffectiveWindow(group), excludeLessonID)
}
