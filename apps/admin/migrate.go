package main

import (
	"github.com/emisoft/buzon/storage/database"
)

// mockable
var (
	migrateFunc  = database.Migrate
	rollbackFunc = database.Rollback
)

func (cli *commandLine) migrate(args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	switch args[0] {
	case "up":
		return migrateFunc(cli.db)
	case "down":
		return rollbackFunc(cli.db)
	default:
		cli.printUsage()
		return errHelp
	}
}
