package main

import (
	"context"
	"time"

	"github.com/wirdly/wirdbot/config"
	"github.com/wirdly/wirdbot/models"
	"github.com/wirdly/wirdbot/routes"
	"github.com/wirdly/wirdbot/services"
	"github.com/wirdly/wirdbot/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	// Fail fast on a bad default zone; every timezone fallback relies on it.
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		utils.Sugar.Fatalf("invalid default timezone %q: %v", cfg.DefaultTimezone, err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Streak{},
		&models.CheckIn{},
		&models.ReminderLog{},
		&models.MessageTemplate{},
	)

	store := services.NewGormStore(db)
	checkins := services.NewCheckInService(store, cfg.DefaultTimezone, cfg.StoreRetryMax)
	messages := services.NewMessageService(store)
	sender := utils.NewTelegramClient(cfg)

	sweeper := services.NewSweeper(
		store, messages, sender,
		cfg.DefaultTimezone, cfg.DefaultReminderTime,
		time.Duration(cfg.SweepIntervalMin)*time.Minute,
		cfg.SweepWorkers,
	)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweeper.Run(sweepCtx)

	r := routes.SetupRouter(db, checkins, messages, store, sender)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, stopSweep); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
