package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trezcool/ratiba/core/schedule"
)

var errHelp = errors.New("help provided")

type lessonGenerator interface {
	Generate(ctx context.Context, groupID string, gl schedule.GenerateLessons) ([]schedule.Lesson, error)
}

type commandLine struct {
	db        *sql.DB
	generator lessonGenerator
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  genlessons -group GROUP_ID -room ROOM_ID [-topic TOPIC] - create a group's lessons for its whole course")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	genLessonsCmd := flag.NewFlagSet("genlessons", flag.ContinueOnError)
	genLessonsCmd.SetOutput(cli.out)
	genLessonsGroup := genLessonsCmd.String("group", "", "The group whose lessons are generated.")
	genLessonsRoom := genLessonsCmd.String("room", "", "The room the lessons are held in.")
	genLessonsTopic := genLessonsCmd.String("topic", "", "The lessons' topic. Defaults to the course name.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "genlessons":
		if err := genLessonsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *genLessonsGroup == "" || *genLessonsRoom == "" {
			genLessonsCmd.Usage()
			return errHelp
		}
		return cli.genLessons(*genLessonsGroup, *genLessonsRoom, *genLessonsTopic)
	default:
		cli.printUsage()
		return errHelp
	}
}
