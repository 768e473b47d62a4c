package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/attendance"
	"github.com/trezcool/ratiba/core/points"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/substitution"
	"github.com/trezcool/ratiba/core/user"
	logsvc "github.com/trezcool/ratiba/services/logger"
	"github.com/trezcool/ratiba/storage/database/inmem"
)

// Env wires every service on top of one in-memory database.
type Env struct {
	Conf   *core.Config
	Logger *logsvc.MemoryLogger

	ScheduleRepo     *inmemdb.ScheduleRepository
	PresenceRepo     *inmemdb.PresenceRepository
	SubstitutionRepo *inmemdb.SubstitutionRepository
	PointsRepo       *inmemdb.PointsRepository
	Roster           *inmemdb.RosterReader

	ScheduleSvc   *schedule.Service
	PointsSvc     *points.Service
	Coordinator   *substitution.Coordinator
	AttendanceSvc *attendance.Service
}

func TestConfig() *core.Config {
	return &core.Config{
		Env:        "TEST",
		TestMode:   true,
		AppName:    "Ratiba",
		SecretKey:  "test-secret",
		Server:     core.ServerConfig{JWTExpirationDelta: time.Hour},
		Scheduling: core.SchedulingConfig{LessonDuration: schedule.DefaultLessonDuration},
		Ledger:     core.LedgerConfig{CallTimeout: time.Second},
	}
}

func NewEnv(mailer core.EmailService) *Env {
	db := inmemdb.Open()
	env := &Env{
		Conf:             TestConfig(),
		Logger:           logsvc.NewMemoryLogger(),
		ScheduleRepo:     inmemdb.NewScheduleRepository(db),
		PresenceRepo:     inmemdb.NewPresenceRepository(db),
		SubstitutionRepo: inmemdb.NewSubstitutionRepository(db),
		PointsRepo:       inmemdb.NewPointsRepository(db),
		Roster:           inmemdb.NewRosterReader(db),
	}
	env.ScheduleSvc = schedule.NewService(env.ScheduleRepo, schedule.NewDetector(env.Conf.Scheduling.LessonDuration), env.Logger)
	env.PointsSvc = points.NewService(env.PointsRepo)
	env.Coordinator = substitution.NewCoordinator(env.SubstitutionRepo, env.ScheduleSvc, env.Roster, mailer, env.Logger)
	env.AttendanceSvc = attendance.NewService(env.ScheduleSvc, env.Roster, env.PresenceRepo, env.PointsSvc, env.Coordinator, env.Logger, env.Conf)
	return env
}

// NewValidator returns a validator with the app's custom tags and english translations.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate, translator
}

func Date(s string) time.Time {
	d, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func Teacher(id string) user.User {
	return user.User{ID: id, Username: id, Email: id + "@test.cd", Roles: []string{user.RoleTeacher}}
}

func Student(id string) user.User {
	return user.User{ID: id, Username: id, Email: id + "@test.cd", Roles: []string{user.RoleStudent}}
}

func Admin(id string) user.User {
	return user.User{ID: id, Username: id, Email: id + "@test.cd", Roles: []string{user.RoleAdmin}}
}

func CreateRoom(t *testing.T, env *Env, number string) schedule.Room {
	room, err := env.ScheduleRepo.CreateRoom(context.Background(), schedule.Room{Number: number, Location: "Main", Capacity: 30})
	if err != nil {
		t.Fatalf("CreateRoom() failed: %v", err)
	}
	return room
}

func CreateCourse(t *testing.T, env *Env, name, start, end string) schedule.Course {
	crs, err := env.ScheduleRepo.CreateCourse(context.Background(), schedule.Course{Name: name, StartDate: Date(start), EndDate: Date(end)})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateGroup(t *testing.T, env *Env, name, courseID, teacherID string, weekday time.Weekday, start string) schedule.Group {
	grp, err := env.ScheduleRepo.CreateGroup(context.Background(), schedule.Group{
		Name:      name,
		CourseID:  courseID,
		TeacherID: teacherID,
		Weekday:   weekday,
		StartTime: schedule.MustParseClock(start),
	})
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	return grp
}

func CreateLesson(t *testing.T, env *Env, groupID, roomID, date string) schedule.Lesson {
	now := time.Now().UTC()
	lessons, err := env.ScheduleRepo.CreateLessons(context.Background(), schedule.Lesson{
		Date:      Date(date),
		Topic:     "Topic " + date,
		GroupID:   groupID,
		RoomID:    roomID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return lessons[0]
}

// FreezeTime sets core.NowFunc to the given instant until the test ends.
func FreezeTime(t *testing.T, now time.Time) {
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
}
