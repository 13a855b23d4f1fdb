// Command nurseryctl runs back-office maintenance tasks against the nursery
// database: salary generation, payroll and inventory reports, and
// bootstrapping the first superuser.
package main

import (
	"os"
	"time"

	"nursery-backend/internal/config"
	"nursery-backend/internal/database"

	"github.com/gofiber/fiber/v2/log"
)

func main() {
	cfg := config.Load()
	cfg.ApplyLogLevel()
	database.Init(cfg)

	cli := commandLine{
		db:  database.DB,
		out: os.Stdout,
		now: time.Now,
	}
	err := cli.run(os.Args)
	database.Close()
	if err != nil {
		if err != errHelp {
			log.Errorf("error: %s", err)
		}
		os.Exit(1)
	}
}
