package main

import (
	"github.com/trezcool/ratiba/storage/database"
)

var migrateFunc = database.RunMigration // mockable

// migrate runs args[0] as a goose command over the embedded schedule, presence and substitution migrations.
func (cli *commandLine) migrate(args []string) error {
	return migrateFunc(args[0], cli.db, args[1:]...)
}
