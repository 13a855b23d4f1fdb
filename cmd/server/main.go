package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"nursery-backend/internal/config"
	"nursery-backend/internal/database"
	"nursery-backend/internal/payroll"
	"nursery-backend/internal/server"

	"github.com/gofiber/fiber/v2/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	cfg.ApplyLogLevel()
	database.Init(cfg)
	defer database.Close()

	app := server.New(cfg)

	sched, err := payroll.StartScheduler(cfg.PayrollCron, payroll.Generator{
		DB:        database.DB,
		ActorName: "scheduler",
	})
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		log.Infof("server listening on :%s", cfg.HTTPPort)
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Infow("shutting down", "signal", sig.String())

	if sched != nil {
		<-sched.Stop().Done()
	}
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Errorw("graceful shutdown failed", "err", err)
	}
}
