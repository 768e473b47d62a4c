package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

var (
	// errors
	ErrLessonNotFound = core.NewNotFoundError("lesson not found")
	ErrGroupNotFound  = core.NewNotFoundError("group not found")
	ErrRoomNotFound   = core.NewNotFoundError("room not found")
	ErrCourseNotFound = core.NewNotFoundError("course not found")
	ErrRoomOccupied   = errors.New("room is already occupied at that time")
)

type (
	Repository interface {
		GetRoom(ctx context.Context, id string) (Room, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		GetGroup(ctx context.Context, id string) (Group, error)
		QueryGroups(ctx context.Context, ids ...string) ([]Group, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		// QueryLessons applies AND operation on the non-zero LessonFilter fields.
		QueryLessons(ctx context.Context, filter LessonFilter) ([]Lesson, error)
		CreateLessons(ctx context.Context, lessons ...Lesson) ([]Lesson, error)
		UpdateLesson(ctx context.Context, lesson Lesson) (Lesson, error)
		DeleteLesson(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		detector *Detector
		logger   core.Logger
	}
)

func NewService(repo Repository, detector *Detector, logger core.Logger) *Service {
	return &Service{repo: repo, detector: detector, logger: logger}
}

func (svc *Service) Detector() *Detector {
	return svc.detector
}

// timetable fetches everything held in roomID on date.
func (svc *Service) timetable(ctx context.Context, roomID string, date time.Time) (Timetable, error) {
	lessons, err := svc.repo.QueryLessons(ctx, LessonFilter{RoomID: roomID, Date: core.DateOf(date)})
	if err != nil {
		return Timetable{}, errors.Wrap(err, "querying room lessons")
	}
	if len(lessons) == 0 {
		return Timetable{}, nil
	}

	seen := make(map[string]bool, len(lessons))
	ids := make([]string, 0, len(lessons))
	for _, lsn := range lessons {
		if !seen[lsn.GroupID] {
			seen[lsn.GroupID] = true
			ids = append(ids, lsn.GroupID)
		}
	}
	groups, err := svc.repo.QueryGroups(ctx, ids...)
	if err != nil {
		return Timetable{}, errors.Wrap(err, "querying lesson groups")
	}
	return NewTimetable(lessons, groups), nil
}

// CheckRoom reports whether roomID is free on date during w.
func (svc *Service) CheckRoom(ctx context.Context, roomID string, date time.Time, w Window, excludeLessonID string) (Result, error) {
	if !w.Valid() {
		return Result{}, ErrInvalidWindow
	}
	tt, err := svc.timetable(ctx, roomID, date)
	if err != nil {
		return Result{}, err
	}
	return svc.detector.CheckConflict(tt, roomID, date, w, excludeLessonID)
}

// CheckGroupSlot reports whether roomID is free on date during the weekly slot of groupID.
// An unknown group occupies nothing.
func (svc *Service) CheckGroupSlot(ctx context.Context, roomID string, date time.Time, groupID, excludeLessonID string) (Result, error) {
	grp, err := svc.repo.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Cause(err) == ErrGroupNotFound {
			return Result{Conflicts: make([]Conflict, 0)}, nil
		}
		return Result{}, errors.Wrap(err, "getting group")
	}
	return svc.checkGroup(ctx, roomID, date, grp, excludeLessonID)
}

func (svc *Service) checkGroup(ctx context.Context, roomID string, date time.Time, grp Group, excludeLessonID string) (Result, error) {
	tt, err := svc.timetable(ctx, roomID, date)
	if err != nil {
		return Result{}, err
	}
	return svc.detector.CheckGroupSlot(tt, roomID, date, grp, excludeLessonID)
}

func (svc *Service) refused(res Result) error {
	lessons := make([]Lesson, 0, len(res.Conflicts))
	for _, c := range res.Conflicts {
		lessons = append(lessons, c.Lesson)
	}
	return core.NewConflictError(ErrRoomOccupied, lessons)
}

// lookups turn unknown references into field errors.
func (svc *Service) lookupGroup(ctx context.Context, id string) (Group, error) {
	grp, err := svc.repo.GetGroup(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrGroupNotFound {
			return Group{}, core.NewValidationError(err, core.FieldError{Field: "group_id", Error: err.Error()})
		}
		return Group{}, errors.Wrap(err, "getting group")
	}
	return grp, nil
}

func (svc *Service) lookupRoom(ctx context.Context, id string) (Room, error) {
	room, err := svc.repo.GetRoom(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrRoomNotFound {
			return Room{}, core.NewValidationError(err, core.FieldError{Field: "room_id", Error: err.Error()})
		}
		return Room{}, errors.Wrap(err, "getting room")
	}
	return room, nil
}

func (svc *Service) CreateLesson(ctx context.Context, nl NewLesson) (Lesson, error) {
	date, err := parseDate("date", nl.Date)
	if err != nil {
		return Lesson{}, err
	}
	grp, err := svc.lookupGroup(ctx, nl.GroupID)
	if err != nil {
		return Lesson{}, err
	}
	if _, err = svc.lookupRoom(ctx, nl.RoomID); err != nil {
		return Lesson{}, err
	}

	res, err := svc.checkGroup(ctx, nl.RoomID, date, grp, "")
	if err != nil {
		return Lesson{}, errors.Wrap(err, "checking room conflicts")
	}
	if res.Occupied {
		return Lesson{}, svc.refused(res)
	}

	now := core.NowFunc().UTC()
	created, err := svc.repo.CreateLessons(ctx, Lesson{
		Date:            date,
		Topic:           core.CleanString(nl.Topic),
		GroupID:         grp.ID,
		RoomID:          nl.RoomID,
		EquipmentRemark: core.CleanString(nl.EquipmentRemark),
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return Lesson{}, errors.Wrap(err, "creating lesson")
	}
	return created[0], nil
}

// UpdateLesson re-checks the room; the lesson itself is excluded from the check.
func (svc *Service) UpdateLesson(ctx context.Context, id string, ul UpdateLesson) (Lesson, error) {
	lsn, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	date, err := parseDate("date", ul.Date)
	if err != nil {
		return Lesson{}, err
	}
	grp, err := svc.repo.GetGroup(ctx, lsn.GroupID)
	if err != nil {
		return Lesson{}, errors.Wrap(err, "getting lesson group")
	}
	if _, err = svc.lookupRoom(ctx, ul.RoomID); err != nil {
		return Lesson{}, err
	}

	res, err := svc.checkGroup(ctx, ul.RoomID, date, grp, lsn.ID)
	if err != nil {
		return Lesson{}, errors.Wrap(err, "checking room conflicts")
	}
	if res.Occupied {
		return Lesson{}, svc.refused(res)
	}

	lsn.Date = date
	lsn.Topic = core.CleanString(ul.Topic)
	lsn.RoomID = ul.RoomID
	lsn.EquipmentRemark = core.CleanString(ul.EquipmentRemark)
	lsn.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateLesson(ctx, lsn)
}

func (svc *Service) DeleteLesson(ctx context.Context, id string) error {
	return svc.repo.DeleteLesson(ctx, id)
}

func (svc *Service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, id)
}

func (svc *Service) GetGroup(ctx context.Context, id string) (Group, error) {
	return svc.repo.GetGroup(ctx, id)
}

func (svc *Service) ListGroupLessons(ctx context.Context, groupID string) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, LessonFilter{GroupID: groupID})
}

// Generate creates the lessons of a group for its whole course: one per date between
// the course start and end (inclusive) falling on the group's weekday.
// Dates already holding a lesson of the group are skipped. If any new date clashes
// with another lesson in the room, nothing is created and every clash is reported.
func (svc *Service) Generate(ctx context.Context, groupID string, gl GenerateLessons) ([]Lesson, error) {
	grp, err := svc.repo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	crs, err := svc.repo.GetCourse(ctx, grp.CourseID)
	if err != nil {
		return nil, errors.Wrap(err, "getting group course")
	}
	if _, err = svc.lookupRoom(ctx, gl.RoomID); err != nil {
		return nil, err
	}

	existing, err := svc.repo.QueryLessons(ctx, LessonFilter{GroupID: grp.ID, From: crs.StartDate, To: crs.EndDate})
	if err != nil {
		return nil, errors.Wrap(err, "querying group lessons")
	}
	taken := make(map[time.Time]bool, len(existing))
	for _, lsn := range existing {
		taken[core.DateOf(lsn.Date)] = true
	}

	topic := core.CleanString(gl.Topic)
	if topic == "" {
		topic = crs.Name
	}
	now := core.NowFunc().UTC()
	var (
		lessons   []Lesson
		conflicts []Lesson
	)
	for _, date := range CourseDates(crs, grp.Weekday) {
		if taken[date] {
			continue
		}
		res, err := svc.checkGroup(ctx, gl.RoomID, date, grp, "")
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("checking room conflicts on %s", date.Format(core.DateLayout)))
		}
		for _, c := range res.Conflicts {
			conflicts = append(conflicts, c.Lesson)
		}
		lessons = append(lessons, Lesson{
			Date:      date,
			Topic:     topic,
			GroupID:   grp.ID,
			RoomID:    gl.RoomID,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if len(conflicts) > 0 {
		return nil, core.NewConflictError(ErrRoomOccupied, conflicts)
	}
	if len(lessons) == 0 {
		return make([]Lesson, 0), nil
	}
	created, err := svc.repo.CreateLessons(ctx, lessons...)
	if err != nil {
		return nil, errors.Wrap(err, "creating lessons")
	}
	svc.logger.Info(fmt.Sprintf("generated %d lessons for group %s", len(created), grp.ID))
	return created, nil
}

// CourseDates lists the dates of the course falling on weekday.
func CourseDates(crs Course, weekday time.Weekday) []time.Time {
	start, end := core.DateOf(crs.StartDate), core.DateOf(crs.EndDate)
	if end.Before(start) {
		return nil
	}
	offset := (int(weekday) - int(start.Weekday()) + 7) % 7
	var dates []time.Time
	for d := start.AddDate(0, 0, offset); !d.After(end); d = d.AddDate(0, 0, 7) {
		dates = append(dates, d)
	}
	return dates
}
