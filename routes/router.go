package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/peakfit/peakfit/config"
	"github.com/peakfit/peakfit/controllers"
	"github.com/peakfit/peakfit/middleware"
	"github.com/peakfit/peakfit/services"
	"github.com/peakfit/peakfit/store"
	"github.com/peakfit/peakfit/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(st store.Store, svc *services.CheckInService) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	gymController := controllers.NewGymController(st)
	checkinController := controllers.NewCheckInController(st, svc)
	rewardsController := controllers.NewRewardsController(st, svc)

	api := r.Group("/api/v1")

	// Public gym directory
	api.GET("/gyms", gymController.List)
	api.GET("/gyms/:id", gymController.Get)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	// Operator-side gym management
	protected.POST("/gyms", gymController.Create)
	protected.PUT("/gyms/:id", gymController.Update)

	// Attendance engine
	protected.POST("/checkins/auto", checkinController.AutoCheckIn)
	protected.POST("/checkins/confirm", checkinController.Confirm)
	protected.POST("/checkins/manual", checkinController.ManualCheckIn)
	protected.POST("/checkins/checkout", checkinController.CheckOut)
	protected.GET("/checkins/status", checkinController.Status)
	protected.GET("/checkins/history", checkinController.History)
	protected.GET("/checkins/weeks", checkinController.Weeks)

	// Token ledger and recovery item shop
	protected.GET("/rewards/balance", rewardsController.Balance)
	protected.GET("/rewards/ledger", rewardsController.History)
	protected.POST("/rewards/recovery-items", rewardsController.PurchaseRecoveryItem)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
