package main

import (
	"log"
	"os"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	logsvc "github.com/trezcool/ratiba/services/logger"
	"github.com/trezcool/ratiba/storage/database"
	pgrepos "github.com/trezcool/ratiba/storage/database/postgres"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(!conf.Debug)
	repo := pgrepos.NewScheduleRepository(database.NewSqlx(db))

	// start CLI
	cli := commandLine{
		db:        db,
		generator: schedule.NewService(repo, schedule.NewDetector(conf.Scheduling.LessonDuration), appLogger),
		out:       os.Stdout,
	}
	defer appLogger.Close()
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		_ = appLogger.Close()
		db.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
