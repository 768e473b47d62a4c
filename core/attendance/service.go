package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/roster"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/substitution"
)

var (
	ErrNoAccess   = core.NewPermissionError("no access to the attendance of this group")
	ErrNotInGroup = errors.New("student is not in the group")
)

type (
	LessonSource interface {
		GetGroup(ctx context.Context, id string) (schedule.Group, error)
		ListGroupLessons(ctx context.Context, groupID string) ([]schedule.Lesson, error)
	}

	GrantSource interface {
		Grants(ctx context.Context, teacherID string, lessons []schedule.Lesson) (substitution.Grants, error)
	}

	SheetLesson struct {
		schedule.Lesson
		Editable bool `json:"editable"`
	}

	SheetRow struct {
		Student roster.Student `json:"student"`
		States  []State        `json:"states"` // aligned with Sheet.Lessons
	}

	// Sheet is the attendance matrix of a group as seen by one teacher.
	Sheet struct {
		Group         schedule.Group `json:"group"`
		Lessons       []SheetLesson  `json:"lessons"`
		Rows          []SheetRow     `json:"rows"`
		RosterVisible bool           `json:"roster_visible"`
	}

	Service struct {
		lessons     LessonSource
		roster      roster.Reader
		store       RecordStore
		points      PointsAwarder
		grants      GrantSource
		logger      core.Logger
		callTimeout time.Duration
	}
)

func NewService(
	lessons LessonSource,
	rosterReader roster.Reader,
	store RecordStore,
	points PointsAwarder,
	grants GrantSource,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		lessons:     lessons,
		roster:      rosterReader,
		store:       store,
		points:      points,
		grants:      grants,
		logger:      logger,
		callTimeout: conf.Ledger.CallTimeout,
	}
}

// session is a loaded ledger plus the lessons its editor can read.
type session struct {
	group   schedule.Group
	lessons []schedule.Lesson
	grants  substitution.Grants
	ledger  *Ledger
}

// OpenLedger loads the attendance of the group lessons teacherID can read.
// The regular teacher reads every lesson; a substitute only the lessons they cover.
func (svc *Service) OpenLedger(ctx context.Context, teacherID, groupID string) (*Ledger, error) {
	sess, err := svc.open(ctx, teacherID, groupID)
	if err != nil {
		return nil, err
	}
	return sess.ledger, nil
}

func (svc *Service) open(ctx context.Context, teacherID, groupID string) (session, error) {
	grp, err := svc.lessons.GetGroup(ctx, groupID)
	if err != nil {
		return session{}, err
	}
	all, err := svc.lessons.ListGroupLessons(ctx, grp.ID)
	if err != nil {
		return session{}, errors.Wrap(err, "listing group lessons")
	}
	grants, err := svc.grants.Grants(ctx, teacherID, all)
	if err != nil {
		return session{}, errors.Wrap(err, "computing grants")
	}

	lessons := make([]schedule.Lesson, 0, len(all))
	lessonGroups := make(map[string]string, len(all))
	ids := make([]string, 0, len(all))
	for _, lsn := range all {
		if grants.CanRead(teacherID, lsn.ID) {
			lessons = append(lessons, lsn)
			lessonGroups[lsn.ID] = grp.ID
			ids = append(ids, lsn.ID)
		}
	}
	if grp.TeacherID != teacherID && len(lessons) == 0 {
		return session{}, ErrNoAccess
	}

	var records []Record
	if len(ids) > 0 {
		if records, err = svc.store.QueryPresence(ctx, RecordFilter{LessonIDs: ids}); err != nil {
			return session{}, errors.Wrap(err, "querying presence records")
		}
	}

	ledger := NewLedger(teacherID, grants, svc.store, svc.points, svc.logger, svc.callTimeout)
	ledger.Load(lessonGroups, records)
	return session{group: grp, lessons: lessons, grants: grants, ledger: ledger}, nil
}

// Sheet returns the attendance matrix of the group. Students come from the roster;
// a roster the teacher may not read yields no rows instead of an error.
func (svc *Service) Sheet(ctx context.Context, teacherID, groupID string) (Sheet, error) {
	sess, err := svc.open(ctx, teacherID, groupID)
	if err != nil {
		return Sheet{}, err
	}
	ctx = roster.WithActor(ctx, teacherID)
	students, visible, err := roster.VisibleStudents(ctx, svc.roster, groupID)
	if err != nil {
		return Sheet{}, err
	}

	sheet := Sheet{
		Group:         sess.group,
		Lessons:       make([]SheetLesson, 0, len(sess.lessons)),
		Rows:          make([]SheetRow, 0, len(students)),
		RosterVisible: visible,
	}
	for _, lsn := range sess.lessons {
		sheet.Lessons = append(sheet.Lessons, SheetLesson{Lesson: lsn, Editable: sess.grants.CanEdit(teacherID, lsn.ID)})
	}
	for _, std := range students {
		row := SheetRow{Student: std, States: make([]State, 0, len(sess.lessons))}
		for _, lsn := range sess.lessons {
			row.States = append(row.States, sess.ledger.GetState(lsn.ID, std.ID))
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

// Apply stages the edits in a fresh ledger and commits the group.
// Nothing is written if any edit targets a lesson the teacher cannot write
// or a student outside the group.
func (svc *Service) Apply(ctx context.Context, teacherID, groupID string, edits []Edit) (CommitResult, error) {
	sess, err := svc.open(ctx, teacherID, groupID)
	if err != nil {
		return CommitResult{}, err
	}
	if err = svc.checkMembers(ctx, teacherID, sess, edits); err != nil {
		return CommitResult{}, err
	}

	// lessons outside the group are never granted, so they are locked too
	for _, e := range edits {
		if err = sess.ledger.SetPending(e.LessonID, e.StudentID, e.State); err != nil {
			return CommitResult{}, err
		}
	}
	return sess.ledger.CommitGroup(ctx, groupID), nil
}

// checkMembers refuses edits about students outside the group. Without a visible
// roster, the only known members are the students already recorded on a readable lesson.
func (svc *Service) checkMembers(ctx context.Context, teacherID string, sess session, edits []Edit) error {
	students, visible, err := roster.VisibleStudents(roster.WithActor(ctx, teacherID), svc.roster, sess.group.ID)
	if err != nil {
		return err
	}
	members := make(map[string]bool, len(students))
	for _, std := range students {
		members[std.ID] = true
	}
	isMember := func(studentID string) bool {
		if visible {
			return members[studentID]
		}
		for _, lsn := range sess.lessons {
			if sess.ledger.GetState(lsn.ID, studentID) != Unknown {
				return true
			}
		}
		return false
	}

	var flds []core.FieldError
	for _, e := range edits {
		if !isMember(e.StudentID) {
			flds = append(flds, core.FieldError{Field: "student_id", Error: fmt.Sprintf("%s: %s", e.StudentID, ErrNotInGroup)})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(ErrNotInGroup, flds...)
	}
	return nil
}

// StudentRecords lists the persisted presences of a student.
func (svc *Service) StudentRecords(ctx context.Context, studentID string) ([]Record, error) {
	return svc.store.QueryPresence(ctx, RecordFilter{StudentID: studentID})
}
