package dig_container

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/attendance"
	"github.com/trezcool/ratiba/core/points"
	"github.com/trezcool/ratiba/core/roster"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/substitution"
	emailsvc "github.com/trezcool/ratiba/services/email"
	logsvc "github.com/trezcool/ratiba/services/logger"
	rostersvc "github.com/trezcool/ratiba/services/roster"
	rediscache "github.com/trezcool/ratiba/storage/cache"
	"github.com/trezcool/ratiba/storage/database"
	pgrepos "github.com/trezcool/ratiba/storage/database/postgres"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sql.DB, *sqlx.DB) {
	setUp := func() (*sql.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, database.NewSqlx(db)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newRosterReader reads the roster service through the redis cache, when one is configured.
func newRosterReader(conf *core.Config, logger core.Logger) roster.Reader {
	client := rostersvc.NewClient(conf)
	if conf.Redis.Addr == "" {
		return client
	}
	return rediscache.NewRosterCache(client, rediscache.NewClient(conf), conf.Redis.RosterTTL, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newDetector(conf *core.Config) *schedule.Detector {
	return schedule.NewDetector(conf.Scheduling.LessonDuration)
}

func newCoordinator(
	repo substitution.Repository,
	lessons *schedule.Service,
	rosterReader roster.Reader,
	mailer core.EmailService,
	logger core.Logger,
) *substitution.Coordinator {
	return substitution.NewCoordinator(repo, lessons, rosterReader, mailer, logger)
}

func newAttendanceService(
	conf *core.Config,
	logger core.Logger,
	lessons *schedule.Service,
	rosterReader roster.Reader,
	store attendance.RecordStore,
	pts *points.Service,
	coord *substitution.Coordinator,
) *attendance.Service {
	return attendance.NewService(lessons, rosterReader, store, pts, coord, logger, conf)
}

func newServerDeps(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	scheduleSvc *schedule.Service,
	attendanceSvc *attendance.Service,
	coord *substitution.Coordinator,
	pointsSvc *points.Service,
) echoapi.ServerDeps {
	return echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		ScheduleSvc:   scheduleSvc,
		AttendanceSvc: attendanceSvc,
		Coordinator:   coord,
		PointsSvc:     pointsSvc,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newRosterReader))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))

	// storage
	must(c.Provide(pgrepos.NewScheduleRepository, dig.As(new(schedule.Repository))))
	must(c.Provide(pgrepos.NewPresenceRepository, dig.As(new(attendance.RecordStore))))
	must(c.Provide(pgrepos.NewSubstitutionRepository, dig.As(new(substitution.Repository))))
	must(c.Provide(pgrepos.NewPointsRepository, dig.As(new(points.Repository))))

	// services
	must(c.Provide(newDetector))
	must(c.Provide(schedule.NewService))
	must(c.Provide(points.NewService))
	must(c.Provide(newCoordinator))
	must(c.Provide(newAttendanceService))

	must(c.Provide(newServerDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
