package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wirdly/wirdbot/config"
	"github.com/wirdly/wirdbot/models"
	"github.com/wirdly/wirdbot/services"
	"github.com/wirdly/wirdbot/utils"
)

// Inbound Telegram update payload, reduced to the fields the bot consumes.
type tgUpdate struct {
	UpdateID int64      `json:"update_id"`
	Message  *tgMessage `json:"message"`
}

type tgMessage struct {
	MessageID int64   `json:"message_id"`
	From      *tgUser `json:"from"`
	Chat      tgChat  `json:"chat"`
	Date      int64   `json:"date"`
	Text      string  `json:"text"`
}

type tgUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

type tgChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Sender is the outbound side of the transport, satisfied by
// utils.TelegramClient and faked in tests.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMessageWithKeyboard(ctx context.Context, chatID int64, text string, buttons [][]string) error
}

// WebhookController receives Telegram webhook updates and routes them to the
// streak engine or command handlers.
type WebhookController struct {
	checkins *services.CheckInService
	messages *services.MessageService
	store    services.Store
	sender   Sender
	cfg      config.AppConfig
}

// NewWebhookController creates a new controller instance.
func NewWebhookController(checkins *services.CheckInService, messages *services.MessageService, store services.Store, sender Sender, cfg config.AppConfig) *WebhookController {
	return &WebhookController{
		checkins: checkins,
		messages: messages,
		store:    store,
		sender:   sender,
		cfg:      cfg,
	}
}

// HandleUpdate is the webhook endpoint. Telegram expects a 200 for every
// update; anything else triggers redelivery, so classification failures are
// answered with 200 and only malformed requests get an error status.
func (w *WebhookController) HandleUpdate(ctx *gin.Context) {
	if w.cfg.WebhookSecret != "" &&
		ctx.GetHeader("X-Telegram-Bot-Api-Secret-Token") != w.cfg.WebhookSecret {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "bad webhook secret")
		return
	}

	var update tgUpdate
	if err := ctx.ShouldBindJSON(&update); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "malformed update")
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		utils.Success(ctx, gin.H{"handled": false})
		return
	}

	trace := uuid.NewString()
	reqCtx := ctx.Request.Context()

	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/"):
		w.handleCommand(ctx, trace, msg, text)
		return
	case text == "English" || text == "العربية":
		w.handleLanguageSelection(ctx, msg, text)
		return
	}

	marker, ok := services.MatchCheckMark(text)
	if !ok {
		// Not a check-in; nothing for this engine to do.
		utils.Success(ctx, gin.H{"handled": false})
		return
	}

	ev := services.CheckInEvent{
		TelegramID: msg.From.ID,
		Username:   msg.From.Username,
		FirstName:  msg.From.FirstName,
		Marker:     marker,
		Timestamp:  time.Unix(msg.Date, 0).UTC(),
		TraceID:    trace,
	}

	res, err := w.checkins.Apply(reqCtx, ev)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrStaleCheckIn):
			// Reprocessed or out-of-order event; drop silently.
			utils.Sugar.Infow("stale check-in ignored", "trace_id", trace, "telegram_id", msg.From.ID)
			utils.Success(ctx, gin.H{"handled": false})
		case errors.Is(err, services.ErrStoreUnavailable):
			utils.Sugar.Errorw("check-in dropped after retries", "trace_id", trace, "telegram_id", msg.From.ID, "err", err)
			w.reply(ctx, msg.Chat.ID, "Something went wrong on our side. Please send your checkmark again in a moment. 🙏")
			utils.Success(ctx, gin.H{"handled": false})
		default:
			utils.Sugar.Errorw("check-in failed", "trace_id", trace, "telegram_id", msg.From.ID, "err", err)
			utils.Success(ctx, gin.H{"handled": false})
		}
		return
	}

	w.reply(ctx, msg.Chat.ID, w.messages.CheckInReply(reqCtx, res.User, res))
	utils.Success(ctx, gin.H{"handled": true, "outcome": string(res.Outcome)})
}

func (w *WebhookController) handleCommand(ctx *gin.Context, trace string, msg *tgMessage, text string) {
	fields := strings.Fields(text)
	cmd := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	args := fields[1:]

	user, err := w.store.GetOrCreateUser(ctx.Request.Context(), msg.From.ID, msg.From.Username, msg.From.FirstName)
	if err != nil {
		utils.Sugar.Errorw("command user lookup failed", "trace_id", trace, "cmd", cmd, "err", err)
		utils.Success(ctx, gin.H{"handled": false})
		return
	}

	switch cmd {
	case "start":
		w.cmdStart(ctx, msg)
	case "help":
		w.reply(ctx, msg.Chat.ID, helpText(user.Language))
	case "streak":
		w.cmdStreak(ctx, msg, user)
	case "settimezone":
		w.cmdSetTimezone(ctx, msg, user, args)
	case "setreminder":
		w.cmdSetReminder(ctx, msg, user, args)
	case "remind":
		w.cmdRemindToggle(ctx, msg, user, args)
	default:
		w.reply(ctx, msg.Chat.ID, helpText(user.Language))
	}
	utils.Success(ctx, gin.H{"handled": true, "command": cmd})
}

func (w *WebhookController) cmdStart(ctx *gin.Context, msg *tgMessage) {
	prompt := "🌟 Welcome to Quran Companion! Please select your preferred language:\n🌟 مرحبًا بك في رفيق القرآن! يرجى اختيار لغتك المفضلة:"
	if err := w.sender.SendMessageWithKeyboard(ctx.Request.Context(), msg.Chat.ID, prompt, [][]string{{"English", "العربية"}}); err != nil {
		utils.Sugar.Warnf("failed to send language prompt to %d: %v", msg.Chat.ID, err)
	}
}

func (w *WebhookController) handleLanguageSelection(ctx *gin.Context, msg *tgMessage, choice string) {
	user, err := w.store.GetOrCreateUser(ctx.Request.Context(), msg.From.ID, msg.From.Username, msg.From.FirstName)
	if err != nil {
		utils.Sugar.Errorf("language selection user lookup failed: %v", err)
		utils.Success(ctx, gin.H{"handled": false})
		return
	}

	if choice == "العربية" {
		user.Language = "ar"
	} else {
		user.Language = "en"
	}
	if err := w.store.UpdateUser(ctx.Request.Context(), user); err != nil {
		utils.Sugar.Errorf("failed to persist language for %d: %v", user.TelegramID, err)
	}

	w.reply(ctx, msg.Chat.ID, welcomeText(user.Language))
	utils.Success(ctx, gin.H{"handled": true})
}

func (w *WebhookController) cmdStreak(ctx *gin.Context, msg *tgMessage, user *models.User) {
	streak, err := w.store.GetStreak(ctx.Request.Context(), user.ID)
	if err != nil {
		utils.Sugar.Errorf("streak lookup failed for %d: %v", user.TelegramID, err)
		w.reply(ctx, msg.Chat.ID, "Could not load your streak right now, please try again.")
		return
	}
	state := services.StreakState{Current: streak.Current, Reverse: streak.Reverse}
	if streak.LastCheckDate != nil {
		state.LastDate = services.DateOf(streak.LastCheckDate.UTC())
	}

	title := "📊 <b>Your Quran Reading Streak</b>\n\n"
	if user.Language == "ar" {
		title = "📊 <b>سلسلة قراءة القرآن الخاصة بك</b>\n\n"
	}
	w.reply(ctx, msg.Chat.ID, title+w.messages.StreakStatus(ctx.Request.Context(), user, state))
}

func (w *WebhookController) cmdSetTimezone(ctx *gin.Context, msg *tgMessage, user *models.User, args []string) {
	if len(args) == 0 {
		if user.Language == "ar" {
			w.reply(ctx, msg.Chat.ID, "يرجى تحديد المنطقة الزمنية. مثال: /settimezone Asia/Riyadh")
		} else {
			w.reply(ctx, msg.Chat.ID, "Please specify your timezone. Example: /settimezone Europe/London")
		}
		return
	}

	tz := args[0]
	loc, err := time.LoadLocation(tz)
	if err != nil {
		if user.Language == "ar" {
			w.reply(ctx, msg.Chat.ID, fmt.Sprintf("❌ %s ليست منطقة زمنية صالحة.", tz))
		} else {
			w.reply(ctx, msg.Chat.ID, fmt.Sprintf("❌ %s is not a valid timezone. Please use an IANA zone name.", tz))
		}
		return
	}

	user.Timezone = tz
	if err := w.store.UpdateUser(ctx.Request.Context(), user); err != nil {
		utils.Sugar.Errorf("failed to persist timezone for %d: %v", user.TelegramID, err)
		w.reply(ctx, msg.Chat.ID, "Could not save your timezone right now, please try again.")
		return
	}

	localClock := time.Now().In(loc).Format("15:04")
	if user.Language == "ar" {
		w.reply(ctx, msg.Chat.ID, fmt.Sprintf("✅ تم ضبط المنطقة الزمنية إلى %s.\nالوقت المحلي: %s", tz, localClock))
	} else {
		w.reply(ctx, msg.Chat.ID, fmt.Sprintf("✅ Your timezone has been set to %s.\nLocal time: %s", tz, localClock))
	}
}

func (w *WebhookController) cmdSetReminder(ctx *gin.Context, msg *tgMessage, user *models.User, args []string) {
	if len(args) == 0 {
		if user.Language == "ar" {
			w.reply(ctx, msg.Chat.ID, "يرجى تحديد وقت التذكير. مثال: /setreminder 20:00")
		} else {
			w.reply(ctx, msg.Chat.ID, "Please specify a reminder time. Example: /setreminder 20:00")
		}
		return
	}

	if _, _, err := services.ParseClock(args[0]); err != nil {
		if user.Language == "ar" {
			w.reply(ctx, msg.Chat.ID, "❌ صيغة الوقت غير صالحة. استخدم HH:MM.")
		} else {
			w.reply(ctx, msg.Chat.ID, "❌ Invalid time format. Use HH:MM, e.g. 20:00.")
		}
		return
	}

	user.ReminderTime = args[0]
	user.RemindersEnabled = true
	if err := w.store.UpdateUser(ctx.Request.Context(), user); err != nil {
		utils.Sugar.Errorf("failed to persist reminder time for %d: %v", user.TelegramID, err)
		w.reply(ctx, msg.Chat.ID, "Could not save your reminder right now, please try again.")
		return
	}

	if user.Language == "ar" {
		w.reply(ctx, msg.Chat.ID, fmt.Sprintf("✅ سيتم تذكيرك يوميًا في %s بتوقيتك المحلي.", args[0]))
	} else {
		w.reply(ctx, msg.Chat.ID, fmt.Sprintf("✅ You'll be reminded daily at %s your local time.", args[0]))
	}
}

func (w *WebhookController) cmdRemindToggle(ctx *gin.Context, msg *tgMessage, user *models.User, args []string) {
	if len(args) == 0 || (args[0] != "on" && args[0] != "off") {
		w.reply(ctx, msg.Chat.ID, "Usage: /remind on | /remind off")
		return
	}

	user.RemindersEnabled = args[0] == "on"
	if err := w.store.UpdateUser(ctx.Request.Context(), user); err != nil {
		utils.Sugar.Errorf("failed to toggle reminders for %d: %v", user.TelegramID, err)
		w.reply(ctx, msg.Chat.ID, "Could not update your reminder settings, please try again.")
		return
	}

	if user.RemindersEnabled {
		w.reply(ctx, msg.Chat.ID, "🔔 Reminders are on.")
	} else {
		w.reply(ctx, msg.Chat.ID, "🔕 Reminders are off.")
	}
}

func (w *WebhookController) reply(ctx *gin.Context, chatID int64, text string) {
	if err := w.sender.SendMessage(ctx.Request.Context(), chatID, text); err != nil {
		utils.Sugar.Warnf("failed to reply to chat %d: %v", chatID, err)
	}
}

func welcomeText(lang string) string {
	if lang == "ar" {
		return strings.TrimSpace(`
<b>مرحبًا بك في رفيق القرآن!</b> 📖✨

هذا البوت يساعدك على المواظبة على قراءة وِردك اليومي من القرآن الكريم.

• <b>تتبع القراءة:</b> أرسل ✅ بعد القراءة للحفاظ على سلسلة المواظبة
• <b>التذكيرات:</b> اضبط تذكيرات يومية لمساعدتك على الاستمرار

أرسل /help لعرض جميع الأوامر.`)
	}
	return strings.TrimSpace(`
<b>Welcome to Quran Companion!</b> 📖✨

This bot helps you stay consistent with your daily Quran reading.

• <b>Track your reading:</b> send ✅ after reading to maintain your streak
• <b>Reminders:</b> set a daily reminder to help you stay consistent

Send /help to see all commands.`)
}

func helpText(lang string) string {
	if lang == "ar" {
		return strings.TrimSpace(`
<b>الأوامر:</b>
/start - بدء البوت واختيار اللغة
/help - عرض هذه المساعدة
/streak - عرض سلسلة القراءة الخاصة بك
/settimezone - تعيين المنطقة الزمنية (مثال: /settimezone Asia/Riyadh)
/setreminder - تعيين وقت التذكير اليومي (مثال: /setreminder 20:00)
/remind - تشغيل أو إيقاف التذكيرات (on/off)

أرسل ✅ بعد الانتهاء من قراءتك اليومية!`)
	}
	return strings.TrimSpace(`
<b>Commands:</b>
/start - start the bot and pick a language
/help - show this help
/streak - show your current reading streak
/settimezone - set your timezone (e.g. /settimezone Europe/London)
/setreminder - set your daily reminder time (e.g. /setreminder 20:00)
/remind - turn reminders on or off

Send ✅ once you finish your daily reading!`)
}
