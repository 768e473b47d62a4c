package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/tests"
)

func TestService_CheckRoom(t *testing.T) {
	env := testutil.NewEnv(nil)
	ctx := context.Background()

	room := testutil.CreateRoom(t, env, "101")
	crs := testutil.CreateCourse(t, env, "Maths", "2024-03-01", "2024-06-30")
	grp := testutil.CreateGroup(t, env, "#5", crs.ID, "teacher", time.Tuesday, "10:00")
	lsn := testutil.CreateLesson(t, env, grp.ID, room.ID, "2024-03-05")

	w := schedule.Window{Start: schedule.MustParseClock("10:30"), End: schedule.MustParseClock("11:00")}
	res, err := env.ScheduleSvc.CheckRoom(ctx, room.ID, testutil.Date("2024-03-05"), w, "")
	require.NoError(t, err)
	assert.True(t, res.Occupied)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, lsn.ID, res.Conflicts[0].Lesson.ID)

	res, err = env.ScheduleSvc.CheckRoom(ctx, room.ID, testutil.Date("2024-03-05"), w, lsn.ID)
	require.NoError(t, err)
	assert.False(t, res.Occupied)

	res, err = env.ScheduleSvc.CheckRoom(ctx, "missing", testutil.Date("2024-03-05"), w, "")
	require.NoError(t, err)
	assert.False(t, res.Occupied)

	_, err = env.ScheduleSvc.CheckRoom(ctx, room.ID, testutil.Date("2024-03-05"), schedule.Window{Start: w.End, End: w.Start}, "")
	assert.True(t, core.IsValidation(err))

	res, err = env.ScheduleSvc.CheckGroupSlot(ctx, room.ID, testutil.Date("2024-03-05"), "missing", "")
	require.NoError(t, err)
	assert.False(t, res.Occupied)
}

func TestService_CreateLesson(t *testing.T) {
	env := testutil.NewEnv(nil)
	ctx := context.Background()

	room := testutil.CreateRoom(t, env, "101")
	other := testutil.CreateRoom(t, env, "102")
	crs := testutil.CreateCourse(t, env, "Maths", "2024-03-01", "2024-06-30")
	morning := testutil.CreateGroup(t, env, "#5", crs.ID, "t1", time.Tuesday, "10:00")
	noon := testutil.CreateGroup(t, env, "#6", crs.ID, "t2", time.Tuesday, "11:00")
	afternoon := testutil.CreateGroup(t, env, "#7", crs.ID, "t3", time.Tuesday, "11:30")
	existing := testutil.CreateLesson(t, env, morning.ID, room.ID, "2024-03-05")

	tests := []struct {
		name          string
		data          schedule.NewLesson
		wantConflict  bool
		wantConflicts []schedule.Lesson
		wantInvalid   bool
	}{
		{
			name:         "overlapping slot",
			data:         schedule.NewLesson{Date: "2024-03-05", Topic: "Algebra", GroupID: noon.ID, RoomID: room.ID},
			wantConflict: true, wantConflicts: []schedule.Lesson{existing},
		},
		{name: "touching slot", data: schedule.NewLesson{Date: "2024-03-05", Topic: "Algebra", GroupID: afternoon.ID, RoomID: room.ID}},
		{name: "other room", data: schedule.NewLesson{Date: "2024-03-05", Topic: "Algebra", GroupID: noon.ID, RoomID: other.ID}},
		{name: "unknown group", data: schedule.NewLesson{Date: "2024-03-05", Topic: "Algebra", GroupID: "nope", RoomID: room.ID}, wantInvalid: true},
		{name: "unknown room", data: schedule.NewLesson{Date: "2024-03-05", Topic: "Algebra", GroupID: noon.ID, RoomID: "nope"}, wantInvalid: true},
		{name: "bad date", data: schedule.NewLesson{Date: "05/03/2024", Topic: "Algebra", GroupID: noon.ID, RoomID: room.ID}, wantInvalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lsn, err := env.ScheduleSvc.CreateLesson(ctx, tt.data)
			switch {
			case tt.wantConflict:
				require.True(t, core.IsConflict(err), "CreateLesson() error = %v, want conflict", err)
				cErr := errors.Cause(err).(*core.ConflictError)
				assert.Equal(t, tt.wantConflicts, cErr.Detail)
			case tt.wantInvalid:
				assert.True(t, core.IsValidation(err), "CreateLesson() error = %v, want validation error", err)
			default:
				require.NoError(t, err)
				assert.NotEmpty(t, lsn.ID)
				assert.Equal(t, testutil.Date(tt.data.Date), lsn.Date)
			}
		})
	}
}

func TestService_UpdateLesson(t *testing.T) {
	env := testutil.NewEnv(nil)
	ctx := context.Background()

	room := testutil.CreateRoom(t, env, "101")
	crs := testutil.CreateCourse(t, env, "Maths", "2024-03-01", "2024-06-30")
	morning := testutil.CreateGroup(t, env, "#5", crs.ID, "t1", time.Tuesday, "10:00")
	noon := testutil.CreateGroup(t, env, "#6", crs.ID, "t2", time.Tuesday, "11:00")
	lsn := testutil.CreateLesson(t, env, morning.ID, room.ID, "2024-03-05")
	other := testutil.CreateLesson(t, env, noon.ID, room.ID, "2024-03-12")

	// unchanged slot never conflicts with itself
	updated, err := env.ScheduleSvc.UpdateLesson(ctx, lsn.ID, schedule.UpdateLesson{Date: "2024-03-05", Topic: "Geometry", RoomID: room.ID})
	require.NoError(t, err)
	assert.Equal(t, "Geometry", updated.Topic)

	// moving onto the other lesson's day clashes
	_, err = env.ScheduleSvc.UpdateLesson(ctx, lsn.ID, schedule.UpdateLesson{Date: "2024-03-12", Topic: "Geometry", RoomID: room.ID})
	require.True(t, core.IsConflict(err))
	assert.Equal(t, []schedule.Lesson{other}, errors.Cause(err).(*core.ConflictError).Detail)

	_, err = env.ScheduleSvc.UpdateLesson(ctx, "missing", schedule.UpdateLesson{Date: "2024-03-12", Topic: "Geometry", RoomID: room.ID})
	assert.Equal(t, schedule.ErrLessonNotFound, err)
}

func TestService_Generate(t *testing.T) {
	env := testutil.NewEnv(nil)
	ctx := context.Background()

	room := testutil.CreateRoom(t, env, "101")
	crs := testutil.CreateCourse(t, env, "Maths", "2024-03-01", "2024-03-31")
	grp := testutil.CreateGroup(t, env, "#5", crs.ID, "t1", time.Tuesday, "10:00")
	testutil.CreateLesson(t, env, grp.ID, room.ID, "2024-03-12")

	lessons, err := env.ScheduleSvc.Generate(ctx, grp.ID, schedule.GenerateLessons{RoomID: room.ID})
	require.NoError(t, err)

	dates := make([]string, 0, len(lessons))
	for _, lsn := range lessons {
		dates = append(dates, lsn.Date.Format(core.DateLayout))
		assert.Equal(t, "Maths", lsn.Topic)
	}
	assert.Equal(t, []string{"2024-03-05", "2024-03-19", "2024-03-26"}, dates)

	// running it again creates nothing
	lessons, err = env.ScheduleSvc.Generate(ctx, grp.ID, schedule.GenerateLessons{RoomID: room.ID})
	require.NoError(t, err)
	assert.Empty(t, lessons)

	// a clashing group is refused as a whole
	rival := testutil.CreateGroup(t, env, "#6", crs.ID, "t2", time.Tuesday, "11:00")
	_, err = env.ScheduleSvc.Generate(ctx, rival.ID, schedule.GenerateLessons{RoomID: room.ID})
	require.True(t, core.IsConflict(err))
	assert.Len(t, errors.Cause(err).(*core.ConflictError).Detail, 4)

	all, err := env.ScheduleSvc.ListGroupLessons(ctx, rival.ID)
	require.NoError(t, err)
	assert.Empty(t, all)
}
