package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wirdly/wirdbot/models"
	"github.com/wirdly/wirdbot/utils"
)

// MessageService renders user-facing reply texts in the user's language,
// preferring DB-configured templates and falling back to built-in wording.
type MessageService struct {
	store Store
}

// NewMessageService builds the renderer.
func NewMessageService(store Store) *MessageService {
	return &MessageService{store: store}
}

// rewardThreshold maps a streak length onto the configured reward tiers.
func rewardThreshold(days int) int {
	switch {
	case days >= 30:
		return 30
	case days >= 7:
		return 7
	default:
		return 1
	}
}

// warningThreshold maps missed days onto the configured warning tiers.
func warningThreshold(days int) int {
	switch {
	case days >= 30:
		return 30
	case days >= 7:
		return 7
	case days >= 5:
		return 5
	case days >= 3:
		return 3
	default:
		return 1
	}
}

// header returns the 🔥 / ⚠️ / 📚 status line for the given state.
func header(lang string, state StreakState) string {
	switch {
	case state.Current > 0:
		if lang == "ar" {
			return fmt.Sprintf("🔥 <b>لديك سلسلة قراءة مستمرة منذ %d أيام</b>\n\n", state.Current)
		}
		return fmt.Sprintf("🔥 <b>Your current streak: %d days</b>\n\n", state.Current)
	case state.Reverse > 0:
		if lang == "ar" {
			return fmt.Sprintf("⚠️ <b>أيام الانقطاع: %d أيام</b>\n\n", state.Reverse)
		}
		return fmt.Sprintf("⚠️ <b>Days of inactivity: %d days</b>\n\n", state.Reverse)
	default:
		if lang == "ar" {
			return "📚 <b>ابدأ سلسلة القراءة الخاصة بك اليوم!</b>\n\n"
		}
		return "📚 <b>Start your reading streak today!</b>\n\n"
	}
}

// templateText fetches the template body for kind/threshold in the user's
// language, consulting the Redis cache before the store. Empty string when
// nothing is configured.
func (m *MessageService) templateText(ctx context.Context, lang, kind string, threshold int) string {
	cacheKey := fmt.Sprintf("tpl:%s:%d", kind, threshold)

	var tpl *models.MessageTemplate
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		var cached models.MessageTemplate
		if err := json.Unmarshal(b, &cached); err == nil {
			tpl = &cached
		}
	}
	if tpl == nil {
		loaded, err := m.store.GetTemplate(ctx, kind, threshold)
		if err != nil || loaded == nil {
			return ""
		}
		tpl = loaded
		utils.CacheSetJSON(cacheKey, tpl, 0)
	}

	if lang == "ar" && tpl.TextAR != "" {
		return tpl.TextAR
	}
	return tpl.TextEN
}

// StreakStatus renders the /streak reply for the given state.
func (m *MessageService) StreakStatus(ctx context.Context, user *models.User, state StreakState) string {
	lang := user.Language
	h := header(lang, state)

	var body string
	switch {
	case state.Current > 0:
		body = m.templateText(ctx, lang, models.TemplateKindReward, rewardThreshold(state.Current))
		if body == "" {
			if lang == "ar" {
				body = fmt.Sprintf("رائع! لقد حافظت على سلسلة قراءة القرآن لمدة %d أيام! 🎉", state.Current)
			} else {
				body = fmt.Sprintf("Amazing! You've maintained your Quran reading streak for %d days! 🎉", state.Current)
			}
		}
	case state.Reverse > 0:
		body = m.templateText(ctx, lang, models.TemplateKindWarning, warningThreshold(state.Reverse))
		if body == "" {
			if lang == "ar" {
				body = fmt.Sprintf("لا تقلق! لقد مرت %d أيام منذ آخر تسجيل. يمكنك البدء مرة أخرى اليوم! 📖", state.Reverse)
			} else {
				body = fmt.Sprintf("Don't worry! It's been %d days since your last check-in. You can start again today! 📖", state.Reverse)
			}
		}
	default:
		if lang == "ar" {
			body = "هل أنت مستعد لبدء رحلة قراءة القرآن؟ أرسل علامة اختيار عندما تنتهي! 📚"
		} else {
			body = "Ready to start your Quran reading journey? Send a checkmark when you're done! 📚"
		}
	}

	return h + body
}

// CheckInReply renders the acknowledgement for an applied check-in.
func (m *MessageService) CheckInReply(ctx context.Context, user *models.User, res *CheckInResult) string {
	lang := user.Language
	switch res.Outcome {
	case OutcomeDuplicate:
		if lang == "ar" {
			return "لقد سجلت قراءتك لهذا اليوم بالفعل. أراك غدًا إن شاء الله! ✅"
		}
		return "You've already checked in today. See you tomorrow, insha'Allah! ✅"
	case OutcomeStarted:
		if lang == "ar" {
			return header(lang, res.State) + "بداية موفقة! عد غدًا للحفاظ على سلسلتك. 🌱"
		}
		return header(lang, res.State) + "Great start! Come back tomorrow to keep your streak going. 🌱"
	case OutcomeReset:
		if lang == "ar" {
			return header(lang, res.State) + fmt.Sprintf("عدت من جديد بعد %d أيام من الانقطاع. يوم واحد في كل مرة! 💪", res.State.Reverse)
		}
		return header(lang, res.State) + fmt.Sprintf("Back on track after %d missed day(s). One day at a time! 💪", res.State.Reverse)
	default: // OutcomeExtended
		return m.StreakStatus(ctx, user, res.State)
	}
}

// ReminderText renders the outbound reminder of the given kind.
func (m *MessageService) ReminderText(ctx context.Context, user *models.User, kind string, state StreakState) string {
	lang := user.Language
	switch kind {
	case models.ReminderKindMissedStreak:
		body := m.templateText(ctx, lang, models.TemplateKindWarning, warningThreshold(state.Reverse))
		if body == "" {
			if lang == "ar" {
				body = "انقطعت سلسلتك. استأنف رحلتك اليوم! 📖"
			} else {
				body = "Your streak was broken. Resume your journey today! 📖"
			}
		}
		return header(lang, state) + body
	default: // daily nudge
		if lang == "ar" {
			return header(lang, state) + "لم تسجل قراءتك اليوم بعد. أرسل ✅ بعد الانتهاء من وردك!"
		}
		return header(lang, state) + "You haven't checked in today yet. Send ✅ once you finish your reading!"
	}
}
