package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/attendance"
	"github.com/trezcool/ratiba/core/roster"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/substitution"
	"github.com/trezcool/ratiba/tests"
)

var (
	regular = testutil.Teacher("regular")
	sub     = testutil.Teacher("sub")
)

type fixture struct {
	env     *testutil.Env
	group   schedule.Group
	lesson1 schedule.Lesson
	lesson2 schedule.Lesson
}

func setup(t *testing.T) fixture {
	testutil.FreezeTime(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))

	env := testutil.NewEnv(nil)
	room := testutil.CreateRoom(t, env, "101")
	crs := testutil.CreateCourse(t, env, "Maths", "2024-03-01", "2024-06-30")
	grp := testutil.CreateGroup(t, env, "#5", crs.ID, regular.ID, time.Tuesday, "10:00")
	env.Roster.AddStudents(grp.ID, roster.Student{ID: "ann", Name: "Ann"}, roster.Student{ID: "bob", Name: "Bob"})

	return fixture{
		env:     env,
		group:   grp,
		lesson1: testutil.CreateLesson(t, env, grp.ID, room.ID, "2024-03-05"),
		lesson2: testutil.CreateLesson(t, env, grp.ID, room.ID, "2024-03-12"),
	}
}

func (fx fixture) balance(t *testing.T, studentID string) int {
	bal, err := fx.env.PointsSvc.Balance(context.Background(), studentID)
	require.NoError(t, err)
	return bal.Total
}

func TestService_Apply(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	svc := fx.env.AttendanceSvc

	res, err := svc.Apply(ctx, regular.ID, fx.group.ID, []attendance.Edit{
		{LessonID: fx.lesson1.ID, StudentID: "ann", State: attendance.Present},
		{LessonID: fx.lesson1.ID, StudentID: "bob", State: attendance.Absent},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Committed)
	assert.Equal(t, 1, fx.balance(t, "ann"))
	assert.Equal(t, 0, fx.balance(t, "bob"))

	// flip both: ann loses her point, bob earns one
	res, err = svc.Apply(ctx, regular.ID, fx.group.ID, []attendance.Edit{
		{LessonID: fx.lesson1.ID, StudentID: "ann", State: attendance.Unknown},
		{LessonID: fx.lesson1.ID, StudentID: "bob", State: attendance.Present},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Committed)
	assert.Equal(t, 0, fx.balance(t, "ann"))
	assert.Equal(t, 1, fx.balance(t, "bob"))

	recs, err := svc.StudentRecords(ctx, "ann")
	require.NoError(t, err)
	assert.Empty(t, recs)

	// strangers cannot open the group
	_, err = svc.Apply(ctx, "stranger", fx.group.ID, nil)
	assert.Equal(t, attendance.ErrNoAccess, err)
}

func TestService_substitutionLock(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	svc := fx.env.AttendanceSvc
	coord := fx.env.Coordinator

	s, err := coord.ReportSubstituteNeeded(ctx, substitution.NewSubstitution{LessonID: fx.lesson1.ID}, regular)
	require.NoError(t, err)
	_, err = coord.Claim(ctx, s.ID, sub)
	require.NoError(t, err)

	edit := []attendance.Edit{{LessonID: fx.lesson1.ID, StudentID: "ann", State: attendance.Present}}

	_, err = svc.Apply(ctx, regular.ID, fx.group.ID, edit)
	assert.Equal(t, attendance.ErrLocked, err)

	res, err := svc.Apply(ctx, sub.ID, fx.group.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Committed)

	// the substitute sees only the covered lesson
	_, err = svc.Apply(ctx, sub.ID, fx.group.ID, []attendance.Edit{{LessonID: fx.lesson2.ID, StudentID: "ann", State: attendance.Present}})
	assert.Equal(t, attendance.ErrLocked, err)

	sheet, err := svc.Sheet(ctx, sub.ID, fx.group.ID)
	require.NoError(t, err)
	require.Len(t, sheet.Lessons, 1)
	assert.True(t, sheet.Lessons[0].Editable)

	// after release, the reverse holds
	_, err = coord.Release(ctx, s.ID, sub)
	require.NoError(t, err)
	_, err = svc.Apply(ctx, sub.ID, fx.group.ID, edit)
	assert.Equal(t, attendance.ErrNoAccess, err)
	_, err = svc.Apply(ctx, regular.ID, fx.group.ID, []attendance.Edit{{LessonID: fx.lesson1.ID, StudentID: "ann", State: attendance.Absent}})
	assert.NoError(t, err)
}

func TestService_ledgerGuardRefresh(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	coord := fx.env.Coordinator

	ledger, err := fx.env.AttendanceSvc.OpenLedger(ctx, regular.ID, fx.group.ID)
	require.NoError(t, err)
	require.NoError(t, ledger.SetPending(fx.lesson1.ID, "ann", attendance.Present))

	s, err := coord.ReportSubstituteNeeded(ctx, substitution.NewSubstitution{LessonID: fx.lesson1.ID}, regular)
	require.NoError(t, err)
	_, err = coord.Claim(ctx, s.ID, sub)
	require.NoError(t, err)

	lessons := []schedule.Lesson{fx.lesson1, fx.lesson2}
	grants, err := coord.Grants(ctx, regular.ID, lessons)
	require.NoError(t, err)
	ledger.SetGuard(grants)
	assert.Equal(t, attendance.ErrLocked, ledger.SetPending(fx.lesson1.ID, "bob", attendance.Present))
	assert.NoError(t, ledger.SetPending(fx.lesson2.ID, "bob", attendance.Present))

	_, err = coord.Release(ctx, s.ID, sub)
	require.NoError(t, err)
	grants, err = coord.Grants(ctx, regular.ID, lessons)
	require.NoError(t, err)
	ledger.SetGuard(grants)
	assert.NoError(t, ledger.SetPending(fx.lesson1.ID, "bob", attendance.Present))
}

func TestService_Sheet(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	svc := fx.env.AttendanceSvc

	_, err := svc.Apply(ctx, regular.ID, fx.group.ID, []attendance.Edit{
		{LessonID: fx.lesson2.ID, StudentID: "bob", State: attendance.Absent},
	})
	require.NoError(t, err)

	sheet, err := svc.Sheet(ctx, regular.ID, fx.group.ID)
	require.NoError(t, err)
	assert.True(t, sheet.RosterVisible)
	require.Len(t, sheet.Lessons, 2)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, []attendance.State{attendance.Unknown, attendance.Unknown}, sheet.Rows[0].States)
	assert.Equal(t, []attendance.State{attendance.Unknown, attendance.Absent}, sheet.Rows[1].States)

	// a forbidden roster read is omitted, not an error
	fx.env.Roster.Deny(fx.group.ID, regular.ID)
	sheet, err = svc.Sheet(ctx, regular.ID, fx.group.ID)
	require.NoError(t, err)
	assert.False(t, sheet.RosterVisible)
	assert.Empty(t, sheet.Rows)
	assert.Len(t, sheet.Lessons, 2)

	_, err = svc.Sheet(ctx, regular.ID, "nope")
	assert.True(t, core.IsNotFound(err))
}

func TestService_Apply_nonMember(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	svc := fx.env.AttendanceSvc

	_, err := svc.Apply(ctx, regular.ID, fx.group.ID, []attendance.Edit{
		{LessonID: fx.lesson1.ID, StudentID: "ann", State: attendance.Present},
		{LessonID: fx.lesson1.ID, StudentID: "not-in-group", State: attendance.Present},
	})
	assert.True(t, core.IsValidation(err), "Apply() error = %v", err)
	if vErr, ok := err.(*core.ValidationError); assert.True(t, ok) {
		assert.Equal(t, attendance.ErrNotInGroup, vErr.Err)
		assert.Len(t, vErr.Fields, 1)
	}

	// the whole batch was refused
	for _, std := range []string{"ann", "not-in-group"} {
		recs, err := svc.StudentRecords(ctx, std)
		require.NoError(t, err)
		assert.Empty(t, recs)
		assert.Zero(t, fx.balance(t, std))
	}

	t.Run("hidden roster", func(t *testing.T) {
		_, err := svc.Apply(ctx, regular.ID, fx.group.ID, []attendance.Edit{{LessonID: fx.lesson1.ID, StudentID: "bob", State: attendance.Absent}})
		require.NoError(t, err)
		fx.env.Roster.Deny(fx.group.ID, regular.ID)

		// students already recorded stay editable
		res, err := svc.Apply(ctx, regular.ID, fx.group.ID, []attendance.Edit{{LessonID: fx.lesson2.ID, StudentID: "bob", State: attendance.Present}})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Committed)

		_, err = svc.Apply(ctx, regular.ID, fx.group.ID, []attendance.Edit{{LessonID: fx.lesson1.ID, StudentID: "ann", State: attendance.Present}})
		assert.True(t, core.IsValidation(err), "Apply() error = %v", err)
		assert.Zero(t, fx.balance(t, "ann"))
	})
}
