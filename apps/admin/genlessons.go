package main

import (
	"context"
	"fmt"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
)

func (cli *commandLine) genLessons(groupID, roomID, topic string) error {
	lessons, err := cli.generator.Generate(context.Background(), groupID, schedule.GenerateLessons{RoomID: roomID, Topic: topic})
	if err != nil {
		if conflict, ok := err.(*core.ConflictError); ok {
			if clashes, ok := conflict.Detail.([]schedule.Lesson); ok {
				for _, lsn := range clashes {
					fmt.Fprintf(cli.out, "room taken on %s by lesson %s\n", lsn.Date.Format(core.DateLayout), lsn.ID)
				}
			}
		}
		return err
	}
	fmt.Fprintf(cli.out, "%d lessons created\n", len(lessons))
	return nil
}
