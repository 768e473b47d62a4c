package main

import (
	"bytes"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Env, *bytes.Buffer) {
	env := testutil.NewEnv(nil)
	var out bytes.Buffer
	return &commandLine{generator: env.ScheduleSvc, out: &out}, env, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string
}

func runCLITests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				assert.NoError(t, err)
			}
			if tt.wantOut != "" {
				assert.Contains(t, out.String(), tt.wantOut)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, out := setup(t)

	orig := migrateFunc
	t.Cleanup(func() { migrateFunc = orig })
	migrateFunc = func(command string, db *sql.DB, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, out, []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "rooms_floor", "sql"}},
	})
}

func Test_commandLine_genLessons(t *testing.T) {
	cli, env, out := setup(t)

	room := testutil.CreateRoom(t, env, "101")
	crs := testutil.CreateCourse(t, env, "Maths", "2026-09-07", "2026-09-28")
	m1 := testutil.CreateGroup(t, env, "M1", crs.ID, "t1", time.Monday, "10:00")
	m2 := testutil.CreateGroup(t, env, "M2", crs.ID, "t2", time.Monday, "11:00")

	runCLITests(t, cli, out, []cliTest{
		{name: "no args", args: []string{"genlessons"}, wantErr: errHelp},
		{name: "room missing", args: []string{"genlessons", "-group", m1.ID}, wantErr: errHelp},
		{name: "generate", args: []string{"genlessons", "-group", m1.ID, "-room", room.ID}, wantOut: "4 lessons created"},
		{name: "again creates nothing", args: []string{"genlessons", "-group", m1.ID, "-room", room.ID}, wantOut: "0 lessons created"},
		{name: "unknown group", args: []string{"genlessons", "-group", "nope", "-room", room.ID}, wantErrStr: "group not found"},
	})

	t.Run("clashes are listed", func(t *testing.T) {
		out.Reset()
		err := cli.run([]string{"admin", "genlessons", "-group", m2.ID, "-room", room.ID, "-topic", "Sets"})
		assert.True(t, core.IsConflict(err))
		assert.Contains(t, out.String(), "room taken on 2026-09-07")
	})
}
