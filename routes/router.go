package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wirdly/wirdbot/config"
	"github.com/wirdly/wirdbot/controllers"
	"github.com/wirdly/wirdbot/middleware"
	"github.com/wirdly/wirdbot/services"
	"github.com/wirdly/wirdbot/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, checkins *services.CheckInService, messages *services.MessageService, store services.Store, sender controllers.Sender) *gin.Engine {
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
	r.Use(utils.GinLogger())
	r.Use(utils.GinRecovery())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
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

	webhookController := controllers.NewWebhookController(checkins, messages, store, sender, cfg)
	adminController := controllers.NewAdminController(db)

	// The bot token in the path keeps the webhook URL unguessable; the
	// secret header check lives in the controller.
	r.POST("/webhook/"+cfg.BotToken, webhookController.HandleUpdate)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/login", adminController.Login)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	admin.GET("/stats", adminController.Stats)
	admin.GET("/templates", adminController.ListTemplates)
	admin.POST("/templates", adminController.UpsertTemplate)

	return r
}
