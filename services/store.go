package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wirdly/wirdbot/models"
)

// Store is the persistence gateway the engine talks to. Implementations must
// classify transient failures as ErrStoreUnavailable so callers can retry,
// and must keep ApplyCheckIn atomic.
type Store interface {
	// GetOrCreateUser looks a user up by Telegram id, creating it with the
	// given defaults on first interaction.
	GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName string) (*models.User, error)
	// UpdateUser persists mutated user settings (timezone, language, reminders).
	UpdateUser(ctx context.Context, user *models.User) error

	// GetStreak returns the user's streak row, creating a zero row if absent.
	GetStreak(ctx context.Context, userID uint) (*models.Streak, error)
	// ApplyCheckIn writes the advanced streak and appends the check-in record
	// in one transaction. The streak write is guarded by prevVersion; a lost
	// race (or an already-recorded local date) returns ErrVersionConflict so
	// the caller re-runs its read-modify-write.
	ApplyCheckIn(ctx context.Context, streak *models.Streak, prevVersion int64, checkIn *models.CheckIn) error

	// ListUsers pages through all users for the reminder sweep.
	ListUsers(ctx context.Context, offset, limit int) ([]models.User, error)

	// HasReminderSent reports whether a reminder of kind was already recorded
	// for (user, local date).
	HasReminderSent(ctx context.Context, userID uint, date LocalDate, kind string) (bool, error)
	// MarkReminderSent records the idempotency row. It returns false when
	// another sweep got there first.
	MarkReminderSent(ctx context.Context, userID uint, date LocalDate, kind string) (bool, error)

	// GetTemplate returns the message template for kind at the given
	// threshold, or nil when none is configured.
	GetTemplate(ctx context.Context, kind string, thresholdDays int) (*models.MessageTemplate, error)
}

// GormStore implements Store on top of MySQL via GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an initialized gorm DB.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// storeErr wraps driver failures as retryable. Not-found and duplicate-key
// conditions are semantic outcomes, never transport failures.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

func (s *GormStore) GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr("get user", err)
	}

	user = models.User{
		TelegramID:       telegramID,
		Username:         username,
		FirstName:        firstName,
		Language:         "en",
		RemindersEnabled: true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a create race with a concurrent update for the same user.
			if err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
				return nil, storeErr("get user after create race", err)
			}
			return &user, nil
		}
		return nil, storeErr("create user", err)
	}
	return &user, nil
}

func (s *GormStore) UpdateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return storeErr("update user", err)
	}
	return nil
}

func (s *GormStore) GetStreak(ctx context.Context, userID uint) (*models.Streak, error) {
	var streak models.Streak
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&streak).Error
	if err == nil {
		return &streak, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr("get streak", err)
	}

	streak = models.Streak{UserID: userID}
	if err := s.db.WithContext(ctx).Create(&streak).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&streak).Error; err != nil {
				return nil, storeErr("get streak after create race", err)
			}
			return &streak, nil
		}
		return nil, storeErr("create streak", err)
	}
	return &streak, nil
}

func (s *GormStore) ApplyCheckIn(ctx context.Context, streak *models.Streak, prevVersion int64, checkIn *models.CheckIn) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Streak{}).
			Where("id = ? AND version = ?", streak.ID, prevVersion).
			Updates(map[string]interface{}{
				"current":         streak.Current,
				"reverse":         streak.Reverse,
				"last_check_date": streak.LastCheckDate,
				"version":         prevVersion + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
		if err := tx.Create(checkIn).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Another writer already recorded this local date; roll the
				// streak write back and let the caller re-read.
				return ErrVersionConflict
			}
			return err
		}
		return nil
	})
	if err == nil {
		streak.Version = prevVersion + 1
		return nil
	}
	if errors.Is(err, ErrVersionConflict) {
		return ErrVersionConflict
	}
	return storeErr("apply check-in", err)
}

func (s *GormStore) ListUsers(ctx context.Context, offset, limit int) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Order("id ASC").Offset(offset).Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

func (s *GormStore) HasReminderSent(ctx context.Context, userID uint, date LocalDate, kind string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ReminderLog{}).
		Where("user_id = ? AND local_date = ? AND kind = ?", userID, date.Time(), kind).
		Count(&count).Error
	if err != nil {
		return false, storeErr("has reminder sent", err)
	}
	return count > 0, nil
}

func (s *GormStore) MarkReminderSent(ctx context.Context, userID uint, date LocalDate, kind string) (bool, error) {
	rec := models.ReminderLog{
		UserID:    userID,
		LocalDate: date.Time(),
		Kind:      kind,
		SentAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, storeErr("mark reminder sent", err)
	}
	return true, nil
}

func (s *GormStore) GetTemplate(ctx context.Context, kind string, thresholdDays int) (*models.MessageTemplate, error) {
	var tpl models.MessageTemplate
	err := s.db.WithContext(ctx).
		Where("kind = ? AND threshold_days = ?", kind, thresholdDays).
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeErr("get template", err)
	}
	return &tpl, nil
}
