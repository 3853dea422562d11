package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wirdly/wirdbot/models"
)

type fakeNotifier struct {
	mu    sync.Mutex
	sends []struct {
		chatID int64
		text   string
	}
}

func (n *fakeNotifier) SendMessage(ctx context.Context, chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, struct {
		chatID int64
		text   string
	}{chatID, text})
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sends)
}

// addUser seeds the fake store with a user plus streak state, bypassing the
// engine. Telegram IDs double as distinct dedup key space across tests
// because the in-memory once-marker is process wide.
func addUser(store *fakeStore, u models.User, streak *models.Streak) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.users[u.TelegramID] = &u
	if streak != nil {
		streak.UserID = u.ID
		store.streaks[u.ID] = streak
	}
}

func TestSweepSendsDueRemindersOnce(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	sweeper := NewSweeper(store, NewMessageService(store), notifier, "UTC", "06:00", time.Hour, 2)

	last := time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC)
	addUser(store, models.User{
		ID: 501, TelegramID: 9501, Language: "en",
		Timezone: "UTC", ReminderTime: "06:00", RemindersEnabled: true,
	}, &models.Streak{Current: 0, Reverse: 0, LastCheckDate: &last})

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	sweeper.Sweep(context.Background(), now)
	require.Equal(t, 2, notifier.count(), "missed streak and nudge are both due")
	require.Len(t, store.sent, 2)
	kinds := map[string]bool{}
	for _, s := range store.sent {
		assert.Equal(t, uint(501), s.userID)
		assert.Equal(t, mustDate(2024, 5, 10), s.date)
		kinds[s.kind] = true
	}
	assert.True(t, kinds[models.ReminderKindMissedStreak])
	assert.True(t, kinds[models.ReminderKindDailyNudge])

	// Second pass on the same day delivers nothing new.
	sweeper.Sweep(context.Background(), now.Add(time.Hour))
	assert.Equal(t, 2, notifier.count())
	assert.Len(t, store.sent, 2)
}

// flakyNotifier fails a fixed number of sends before recovering.
type flakyNotifier struct {
	fakeNotifier
	failures int
}

func (n *flakyNotifier) SendMessage(ctx context.Context, chatID int64, text string) error {
	n.mu.Lock()
	if n.failures > 0 {
		n.failures--
		n.mu.Unlock()
		return errors.New("telegram unreachable")
	}
	n.mu.Unlock()
	return n.fakeNotifier.SendMessage(ctx, chatID, text)
}

func TestSweepRetriesAfterTransportFailure(t *testing.T) {
	store := newFakeStore()
	notifier := &flakyNotifier{failures: 1}
	sweeper := NewSweeper(store, NewMessageService(store), notifier, "UTC", "23:59", time.Hour, 2)

	last := time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC)
	addUser(store, models.User{
		ID: 506, TelegramID: 9506, Language: "en",
		Timezone: "UTC", RemindersEnabled: true,
	}, &models.Streak{LastCheckDate: &last})

	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

	// First pass hits the outage; nothing may be recorded as sent.
	sweeper.Sweep(context.Background(), now)
	assert.Zero(t, notifier.count())
	assert.Empty(t, store.sent)

	// Next pass finds the transport recovered and delivers the reminder.
	sweeper.Sweep(context.Background(), now.Add(time.Hour))
	require.Equal(t, 1, notifier.count())
	require.Len(t, store.sent, 1)
	assert.Equal(t, models.ReminderKindMissedStreak, store.sent[0].kind)
	assert.Equal(t, mustDate(2024, 5, 10), store.sent[0].date)

	// The recorded send now suppresses further passes.
	sweeper.Sweep(context.Background(), now.Add(2*time.Hour))
	assert.Equal(t, 1, notifier.count())
	assert.Len(t, store.sent, 1)
}

func TestSweepRespectsDurableDedup(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	sweeper := NewSweeper(store, NewMessageService(store), notifier, "UTC", "23:59", time.Hour, 2)

	last := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	addUser(store, models.User{
		ID: 502, TelegramID: 9502, Language: "en",
		Timezone: "UTC", RemindersEnabled: true,
	}, &models.Streak{LastCheckDate: &last})

	// Another process already recorded today's missed-streak reminder.
	_, err := store.MarkReminderSent(context.Background(), 502, mustDate(2024, 5, 10), models.ReminderKindMissedStreak)
	require.NoError(t, err)
	store.sent = nil

	sweeper.Sweep(context.Background(), time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC))
	assert.Zero(t, notifier.count(), "durable log suppresses the resend")
}

func TestSweepSkipsDisabledUsers(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	sweeper := NewSweeper(store, NewMessageService(store), notifier, "UTC", "06:00", time.Hour, 2)

	last := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	addUser(store, models.User{
		ID: 503, TelegramID: 9503, Language: "en",
		Timezone: "UTC", RemindersEnabled: false,
	}, &models.Streak{LastCheckDate: &last})

	sweeper.Sweep(context.Background(), time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))
	assert.Zero(t, notifier.count())
	assert.Empty(t, store.sent)
}

func TestSweepUsesUserTimezone(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	sweeper := NewSweeper(store, NewMessageService(store), notifier, "UTC", "20:00", time.Hour, 2)

	// 10:00 UTC on May 10 is 20:00 in Sydney (UTC+10) but only 03:00 in
	// Los Angeles, so with both users one day behind only Sydney is past
	// its nudge time.
	last := time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC)
	addUser(store, models.User{
		ID: 504, TelegramID: 9504, Language: "en",
		Timezone: "Australia/Sydney", RemindersEnabled: true,
	}, &models.Streak{Current: 1, LastCheckDate: &last})

	addUser(store, models.User{
		ID: 505, TelegramID: 9505, Language: "en",
		Timezone: "America/Los_Angeles", RemindersEnabled: true,
	}, &models.Streak{Current: 1, LastCheckDate: &last})

	sweeper.Sweep(context.Background(), time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC))

	require.Len(t, store.sent, 1)
	assert.Equal(t, uint(504), store.sent[0].userID)
	assert.Equal(t, models.ReminderKindDailyNudge, store.sent[0].kind)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	store := newFakeStore()
	sweeper := NewSweeper(store, NewMessageService(store), &fakeNotifier{}, "UTC", "06:00", 10*time.Millisecond, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
