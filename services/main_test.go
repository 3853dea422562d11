package services

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/wirdly/wirdbot/config"
	"github.com/wirdly/wirdbot/models"
	"github.com/wirdly/wirdbot/utils"
)

func TestMain(m *testing.M) {
	// Point Redis at a closed port so cache and dedup helpers fall back to
	// their in-memory paths quickly.
	config.SetForTest(config.AppConfig{
		BotToken:            "test-token",
		DefaultTimezone:     "America/Los_Angeles",
		DefaultReminderTime: "20:00",
		RedisHost:           "127.0.0.1",
		RedisPort:           6399,
	})
	utils.Sugar = zap.NewNop().Sugar()
	os.Exit(m.Run())
}

// fakeStore is an in-memory Store used across engine tests.
type fakeStore struct {
	mu sync.Mutex

	users     map[int64]*models.User
	streaks   map[uint]*models.Streak
	checkIns  []models.CheckIn
	reminders map[string]bool
	templates map[string]*models.MessageTemplate

	nextUserID uint

	// failures remaining per operation, to exercise retry paths
	failGetStreak int
	failApply     int
	// conflictOnce simulates one concurrent writer bumping the streak
	// version between read and write.
	conflictOnce bool
	sent         []sentReminder
}

type sentReminder struct {
	userID uint
	date   LocalDate
	kind   string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[int64]*models.User{},
		streaks:   map[uint]*models.Streak{},
		reminders: map[string]bool{},
		templates: map[string]*models.MessageTemplate{},
	}
}

func (f *fakeStore) GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[telegramID]; ok {
		return u, nil
	}
	f.nextUserID++
	u := &models.User{
		ID:               f.nextUserID,
		TelegramID:       telegramID,
		Username:         username,
		FirstName:        firstName,
		Language:         "en",
		RemindersEnabled: true,
	}
	f.users[telegramID] = u
	return u, nil
}

func (f *fakeStore) UpdateUser(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.TelegramID] = user
	return nil
}

func (f *fakeStore) GetStreak(ctx context.Context, userID uint) (*models.Streak, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGetStreak > 0 {
		f.failGetStreak--
		return nil, ErrStoreUnavailable
	}
	if s, ok := f.streaks[userID]; ok {
		cp := *s
		return &cp, nil
	}
	s := &models.Streak{ID: userID, UserID: userID}
	f.streaks[userID] = s
	cp := *s
	return &cp, nil
}

func (f *fakeStore) ApplyCheckIn(ctx context.Context, streak *models.Streak, prevVersion int64, checkIn *models.CheckIn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failApply > 0 {
		f.failApply--
		return ErrStoreUnavailable
	}
	if f.conflictOnce {
		f.conflictOnce = false
		if s, ok := f.streaks[streak.UserID]; ok {
			s.Version++
		}
		return ErrVersionConflict
	}
	current, ok := f.streaks[streak.UserID]
	if !ok || current.Version != prevVersion {
		return ErrVersionConflict
	}
	for _, ci := range f.checkIns {
		if ci.UserID == checkIn.UserID && ci.LocalDate.Equal(checkIn.LocalDate) {
			return ErrVersionConflict
		}
	}
	cp := *streak
	cp.Version = prevVersion + 1
	f.streaks[streak.UserID] = &cp
	f.checkIns = append(f.checkIns, *checkIn)
	streak.Version = cp.Version
	return nil
}

func (f *fakeStore) ListUsers(ctx context.Context, offset, limit int) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.User
	for _, u := range f.users {
		all = append(all, *u)
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func reminderKey(userID uint, date LocalDate, kind string) string {
	return fmt.Sprintf("%d/%s/%s", userID, date, kind)
}

func (f *fakeStore) HasReminderSent(ctx context.Context, userID uint, date LocalDate, kind string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reminders[reminderKey(userID, date, kind)], nil
}

func (f *fakeStore) MarkReminderSent(ctx context.Context, userID uint, date LocalDate, kind string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := reminderKey(userID, date, kind)
	if f.reminders[key] {
		return false, nil
	}
	f.reminders[key] = true
	f.sent = append(f.sent, sentReminder{userID: userID, date: date, kind: kind})
	return true, nil
}

func (f *fakeStore) GetTemplate(ctx context.Context, kind string, thresholdDays int) (*models.MessageTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.templates[fmt.Sprintf("%s/%d", kind, thresholdDays)], nil
}

// mustDate builds a LocalDate for test tables.
func mustDate(y int, m time.Month, d int) LocalDate {
	return LocalDate{Year: y, Month: m, Day: d}
}
