package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wirdly/wirdbot/config"
	"github.com/wirdly/wirdbot/models"
	"github.com/wirdly/wirdbot/utils"
)

// AdminController exposes the operator API: login, aggregate stats, and
// message template management.
type AdminController struct {
	db *gorm.DB
}

// NewAdminController creates a new controller instance.
func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{db: db}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates the configured admin account and issues a JWT.
func (a *AdminController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "username and password required")
		return
	}

	cfg := config.Get()
	if cfg.AdminUsername == "" || cfg.AdminPasswordHash == "" {
		utils.Error(ctx, http.StatusForbidden, 40320, "admin access not configured")
		return
	}
	if req.Username != cfg.AdminUsername || !utils.CheckPassword(cfg.AdminPasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "invalid credentials")
		return
	}

	token, err := utils.GenerateToken(req.Username, 24*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{"token": token})
}

// Stats returns aggregate usage numbers.
func (a *AdminController) Stats(ctx *gin.Context) {
	var userCount int64
	if err := a.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count users")
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	var checkInsToday int64
	if err := a.db.Model(&models.CheckIn{}).Where("local_date = ?", today).Count(&checkInsToday).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to count check-ins")
		return
	}

	type topStreak struct {
		TelegramID int64  `json:"telegram_id"`
		Username   string `json:"username"`
		Current    int    `json:"current"`
	}
	var top []topStreak
	err := a.db.Model(&models.Streak{}).
		Select("users.telegram_id, users.username, streaks.current").
		Joins("JOIN users ON users.id = streaks.user_id").
		Where("streaks.current > 0").
		Order("streaks.current DESC").
		Limit(10).
		Scan(&top).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load top streaks")
		return
	}

	utils.Success(ctx, gin.H{
		"users":           userCount,
		"check_ins_today": checkInsToday,
		"top_streaks":     top,
	})
}

type templateRequest struct {
	Kind          string `json:"kind" binding:"required"`
	ThresholdDays int    `json:"threshold_days" binding:"required"`
	TextEN        string `json:"text_en"`
	TextAR        string `json:"text_ar"`
}

// UpsertTemplate creates or updates one streak message template. Text is
// sanitized to the Telegram HTML subset before it is stored, and the Redis
// cache entry is dropped so the new text takes effect immediately.
func (a *AdminController) UpsertTemplate(ctx *gin.Context) {
	var req templateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "kind and threshold_days required")
		return
	}
	if req.Kind != models.TemplateKindReward && req.Kind != models.TemplateKindWarning {
		utils.Error(ctx, http.StatusBadRequest, 40022, "kind must be reward or warning")
		return
	}

	tpl := models.MessageTemplate{
		Kind:          req.Kind,
		ThresholdDays: req.ThresholdDays,
		TextEN:        utils.Sanitize(req.TextEN),
		TextAR:        utils.Sanitize(req.TextAR),
	}

	err := a.db.Where("kind = ? AND threshold_days = ?", req.Kind, req.ThresholdDays).
		Assign(map[string]interface{}{"text_en": tpl.TextEN, "text_ar": tpl.TextAR}).
		FirstOrCreate(&tpl).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to save template")
		return
	}

	utils.InvalidateByPrefix("tpl:")
	utils.Success(ctx, tpl)
}

// ListTemplates returns all configured templates.
func (a *AdminController) ListTemplates(ctx *gin.Context) {
	var templates []models.MessageTemplate
	if err := a.db.Order("kind, threshold_days").Find(&templates).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to load templates")
		return
	}
	utils.Success(ctx, templates)
}
