package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	dig_container "github.com/trezcool/ratiba/apps/api/di/dig"
	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/roster"
	rediscache "github.com/trezcool/ratiba/storage/cache"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		dbLoggerParam dig_container.DBLoggerParam,
		db *sql.DB,
		reader roster.Reader,
		validate *validator.Validate,
		translator ut.Translator,
		server *echoapi.Server,
	) {
		core.InitValidators(validate, translator)
		announce(conf, apiLogger, reader)

		defer apiLogger.Info("ratiba api stopped")
		defer func() {
			if err := db.Close(); err != nil {
				dbLoggerParam.Logger.Fatal("closing database", err)
			}
		}()

		// /debug/pprof and /debug/vars are mounted on the default mux by their imports.
		publishVars(conf, reader)
		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		go server.Start()
		serve(conf, apiLogger, server)
	}))
}

func rosterBackend(reader roster.Reader) string {
	if _, ok := reader.(*rediscache.RosterCache); ok {
		return "roster service (redis cached)"
	}
	return "roster service"
}

// announce logs the settings the scheduling, attendance and substitution services run with.
func announce(conf *core.Config, logger core.Logger, reader roster.Reader) {
	logger.Info(fmt.Sprintf("ratiba api %q starting in %s", conf.Build, conf.Env))
	logger.Info(fmt.Sprintf("lessons last %v; conflicts are checked on that window", conf.Scheduling.LessonDuration))
	logger.Info(fmt.Sprintf("attendance store calls time out after %v", conf.Ledger.CallTimeout))
	logger.Info(fmt.Sprintf("rosters read from %s at %s", rosterBackend(reader), conf.Roster.BaseURL))
	if conf.Debug {
		logger.Info("substitution notices are printed to the console")
	}
}

func publishVars(conf *core.Config, reader roster.Reader) {
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("lesson_duration").Set(conf.Scheduling.LessonDuration.String())
	expvar.NewString("roster_backend").Set(rosterBackend(reader))
}

// serve blocks until the server fails or a shutdown signal arrives.
func serve(conf *core.Config, logger core.Logger, server *echoapi.Server) {
	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: shutting down", sig))

		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("graceful shutdown failed: %v", err), err)
			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("forced shutdown failed: %v", err), err)
			}
		}
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
