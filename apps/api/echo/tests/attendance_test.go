package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core/attendance"
	"github.com/trezcool/ratiba/core/points"
	"github.com/trezcool/ratiba/core/roster"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/substitution"
	"github.com/trezcool/ratiba/tests"
)

type attendanceFixture struct {
	app
	group  schedule.Group
	l1, l2 schedule.Lesson
}

func setupAttendance(t *testing.T) attendanceFixture {
	a := setup(t)
	testutil.FreezeTime(t, time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))

	room := testutil.CreateRoom(t, a.env, "101")
	crs := testutil.CreateCourse(t, a.env, "Maths", "2026-09-07", "2026-12-21")
	grp := testutil.CreateGroup(t, a.env, "M1", crs.ID, "t1", time.Monday, "10:00")
	a.env.Roster.AddStudents(grp.ID, roster.Student{ID: "s1", Name: "Amani"}, roster.Student{ID: "s2", Name: "Baraka"})

	return attendanceFixture{
		app:   a,
		group: grp,
		l1:    testutil.CreateLesson(t, a.env, grp.ID, room.ID, "2026-10-19"),
		l2:    testutil.CreateLesson(t, a.env, grp.ID, room.ID, "2026-10-26"),
	}
}

func (fx attendanceFixture) path() string {
	return "/v1/groups/" + fx.group.ID + "/attendance"
}

func edits(t *testing.T, ee ...attendance.Edit) []byte {
	return marchallObj(t, attendance.Edits{Edits: ee})
}

func Test_attendanceApi_sheet(t *testing.T) {
	fx := setupAttendance(t)
	t1 := getToken(t, fx.app, testutil.Teacher("t1"))

	rec := fx.do(http.MethodGet, fx.path(), t1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sheet attendance.Sheet
	unmarchall(t, rec, &sheet)
	assert.True(t, sheet.RosterVisible)
	require.Len(t, sheet.Lessons, 2)
	assert.True(t, sheet.Lessons[0].Editable)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, []attendance.State{attendance.Unknown, attendance.Unknown}, sheet.Rows[0].States)

	fx.run(t, []httpTest{
		{name: "Auth required", path: fx.path(), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Other teachers have no access", path: fx.path(), token: getToken(t, fx.app, testutil.Teacher("t9")),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: attendance.ErrNoAccess.Error()}),
		},
		{
			name: "Unknown group", path: "/v1/groups/nope/attendance", token: t1,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: schedule.ErrGroupNotFound.Error()}),
		},
	})

	t.Run("forbidden roster hides rows", func(t *testing.T) {
		fx.env.Roster.Deny(fx.group.ID, "t1")
		rec := fx.do(http.MethodGet, fx.path(), t1)
		require.Equal(t, http.StatusOK, rec.Code)

		var sheet attendance.Sheet
		unmarchall(t, rec, &sheet)
		assert.False(t, sheet.RosterVisible)
		assert.Empty(t, sheet.Rows)
		assert.Len(t, sheet.Lessons, 2)
	})
}

func Test_attendanceApi_apply(t *testing.T) {
	fx := setupAttendance(t)
	ctx := context.Background()
	t1 := getToken(t, fx.app, testutil.Teacher("t1"))

	balance := func(studentID string) int {
		bal, err := fx.env.PointsSvc.Balance(ctx, studentID)
		require.NoError(t, err)
		return bal.Total
	}

	t.Run("first marks create records and award points", func(t *testing.T) {
		rec := fx.do(http.MethodPut, fx.path(), t1, edits(t,
			attendance.Edit{LessonID: fx.l1.ID, StudentID: "s1", State: attendance.Present},
			attendance.Edit{LessonID: fx.l1.ID, StudentID: "s2", State: attendance.Absent},
		))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res attendance.CommitResult
		unmarchall(t, rec, &res)
		assert.Equal(t, 2, res.Committed)
		assert.Equal(t, 1, balance("s1"))
		assert.Equal(t, 0, balance("s2"))
	})

	t.Run("same marks again write nothing", func(t *testing.T) {
		rec := fx.do(http.MethodPut, fx.path(), t1, edits(t,
			attendance.Edit{LessonID: fx.l1.ID, StudentID: "s1", State: attendance.Present},
		))
		require.Equal(t, http.StatusOK, rec.Code)

		var res attendance.CommitResult
		unmarchall(t, rec, &res)
		assert.Equal(t, 0, res.Committed)
		assert.Equal(t, 1, res.Unchanged)
		assert.Equal(t, 1, balance("s1"))
	})

	t.Run("clearing a present mark revokes the point", func(t *testing.T) {
		rec := fx.do(http.MethodPut, fx.path(), t1, edits(t,
			attendance.Edit{LessonID: fx.l1.ID, StudentID: "s1", State: attendance.Unknown},
		))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 0, balance("s1"))

		recs, err := fx.env.AttendanceSvc.StudentRecords(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	fx.run(t, []httpTest{
		{
			name: "edits are required", method: http.MethodPut, path: fx.path(), token: t1,
			body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"edits": "this field is required"}`),
		},
		{
			name: "unknown state", method: http.MethodPut, path: fx.path(), token: t1,
			body: []byte(`{"edits": [{"lesson_id": "` + fx.l1.ID + `", "student_id": "s1", "state": "late"}]}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "student outside the group", method: http.MethodPut, path: fx.path(), token: t1,
			body:     edits(t, attendance.Edit{LessonID: fx.l1.ID, StudentID: "s9", State: attendance.Present}),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"student_id": "s9: student is not in the group"}`),
		},
		{
			name: "lesson of another group is locked", method: http.MethodPut, path: fx.path(), token: t1,
			body:     edits(t, attendance.Edit{LessonID: "elsewhere", StudentID: "s1", State: attendance.Present}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: attendance.ErrLocked.Error()}),
		},
	})
}

func Test_attendanceApi_substitutedLesson(t *testing.T) {
	fx := setupAttendance(t)
	ctx := context.Background()
	t1 := getToken(t, fx.app, testutil.Teacher("t1"))
	t2 := getToken(t, fx.app, testutil.Teacher("t2"))

	sub, err := fx.env.Coordinator.ReportSubstituteNeeded(ctx, substitution.NewSubstitution{LessonID: fx.l2.ID}, testutil.Teacher("t1"))
	require.NoError(t, err)
	_, err = fx.env.Coordinator.Claim(ctx, sub.ID, testutil.Teacher("t2"))
	require.NoError(t, err)

	markL2 := edits(t, attendance.Edit{LessonID: fx.l2.ID, StudentID: "s1", State: attendance.Present})
	markL1 := edits(t, attendance.Edit{LessonID: fx.l1.ID, StudentID: "s1", State: attendance.Present})

	fx.run(t, []httpTest{
		{name: "regular teacher is locked out", method: http.MethodPut, path: fx.path(), token: t1, body: markL2, wantCode: http.StatusForbidden},
		{name: "regular teacher keeps other lessons", method: http.MethodPut, path: fx.path(), token: t1, body: markL1, wantCode: http.StatusOK},
		{name: "substitute writes the covered lesson", method: http.MethodPut, path: fx.path(), token: t2, body: markL2, wantCode: http.StatusOK},
		{name: "substitute cannot write other lessons", method: http.MethodPut, path: fx.path(), token: t2, body: markL1, wantCode: http.StatusForbidden},
	})

	t.Run("substitute only sees the covered lesson", func(t *testing.T) {
		rec := fx.do(http.MethodGet, fx.path(), t2)
		require.Equal(t, http.StatusOK, rec.Code)

		var sheet attendance.Sheet
		unmarchall(t, rec, &sheet)
		require.Len(t, sheet.Lessons, 1)
		assert.Equal(t, fx.l2.ID, sheet.Lessons[0].ID)
		assert.True(t, sheet.Lessons[0].Editable)
		assert.Equal(t, attendance.Present, sheet.Rows[0].States[0])
	})

	t.Run("regular teacher reads the covered lesson", func(t *testing.T) {
		rec := fx.do(http.MethodGet, fx.path(), t1)
		require.Equal(t, http.StatusOK, rec.Code)

		var sheet attendance.Sheet
		unmarchall(t, rec, &sheet)
		require.Len(t, sheet.Lessons, 2)
		assert.True(t, sheet.Lessons[0].Editable)
		assert.False(t, sheet.Lessons[1].Editable)
	})

	bal, err := fx.env.PointsSvc.Balance(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, bal.Total)
	assert.Len(t, bal.Transactions, 2)
	assert.Equal(t, points.ReasonAttendance, bal.Transactions[0].Reason)
}
