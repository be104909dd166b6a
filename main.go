package main

import (
	"time"

	"github.com/peakfit/peakfit/config"
	"github.com/peakfit/peakfit/models"
	"github.com/peakfit/peakfit/routes"
	"github.com/peakfit/peakfit/services"
	"github.com/peakfit/peakfit/store"
	"github.com/peakfit/peakfit/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Gym{},
		&models.Presence{},
		&models.Attendance{},
		&models.Frequency{},
		&models.FrequencyHistory{},
		&models.Streak{},
		&models.TokenLedgerEntry{},
	)

	st := store.NewGormStore(db)
	tracker := services.NewPresenceTracker(time.Duration(cfg.PresenceStaleMinutes) * time.Minute)
	freq := services.NewFrequencyEngine(cfg.DefaultWeeklyGoal)
	facts := services.NewRedisFactPublisher(utils.GetRedis(), cfg.FactStreamKey, utils.Sugar)
	rewards := services.RewardPolicy{
		CheckInTokens:     cfg.CheckInRewardTokens,
		WeeklyGoalTokens:  cfg.WeeklyGoalRewardTokens,
		RecoveryItemPrice: cfg.RecoveryItemPrice,
	}
	svc := services.NewCheckInService(st, services.SystemClock(), tracker, freq, facts, rewards, cfg.AccuracyCeilingM)

	r := routes.SetupRouter(st, svc)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
