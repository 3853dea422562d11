package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wirdly/wirdbot/models"
	"github.com/wirdly/wirdbot/utils"
)

// Notifier delivers outbound reminder messages. Implemented by the Telegram
// client; faked in tests.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

const sweepPageSize = 200

// Sweeper periodically walks all users and sends due reminders. Users are
// processed in parallel by a bounded worker pool; there is no cross-user
// ordering. Delivery is at-least-once over a de-duplicated
// (user, local date, kind) key: a Redis SETNX fast path plus the durable
// reminder_logs row.
type Sweeper struct {
	store        Store
	messages     *MessageService
	notifier     Notifier
	defaultTZ    string
	defaultClock string
	interval     time.Duration
	workers      int
}

// NewSweeper builds a sweeper with the given cadence and parallelism.
func NewSweeper(store Store, messages *MessageService, notifier Notifier, defaultTZ, defaultClock string, interval time.Duration, workers int) *Sweeper {
	if workers <= 0 {
		workers = 4
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		store:        store,
		messages:     messages,
		notifier:     notifier,
		defaultTZ:    defaultTZ,
		defaultClock: defaultClock,
		interval:     interval,
		workers:      workers,
	}
}

// Run sweeps on a ticker until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx, time.Now())
		}
	}
}

// Sweep runs one pass over all users. Failures are logged and scoped to the
// single user; the pass always completes.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) {
	jobs := make(chan models.User)
	var wg sync.WaitGroup

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for user := range jobs {
				if err := s.sweepUser(ctx, user, now); err != nil {
					if utils.Sugar != nil {
						utils.Sugar.Warnf("reminder sweep for user %d failed: %v", user.TelegramID, err)
					}
				}
			}
		}()
	}

	for offset := 0; ; offset += sweepPageSize {
		users, err := s.store.ListUsers(ctx, offset, sweepPageSize)
		if err != nil {
			if utils.Sugar != nil {
				utils.Sugar.Errorf("reminder sweep aborted listing users: %v", err)
			}
			break
		}
		for _, u := range users {
			select {
			case <-ctx.Done():
				close(jobs)
				wg.Wait()
				return
			case jobs <- u:
			}
		}
		if len(users) < sweepPageSize {
			break
		}
	}

	close(jobs)
	wg.Wait()
}

func (s *Sweeper) sweepUser(ctx context.Context, user models.User, now time.Time) error {
	if !user.RemindersEnabled {
		return nil
	}

	loc := s.userLocation(user.Timezone)
	nowLocal := now.In(loc)
	today := DateOf(nowLocal)

	streak, err := s.store.GetStreak(ctx, user.ID)
	if err != nil {
		return err
	}
	state := StreakState{Current: streak.Current, Reverse: streak.Reverse}
	if streak.LastCheckDate != nil {
		state.LastDate = DateOf(streak.LastCheckDate.UTC())
	}

	clock := user.ReminderTime
	if clock == "" {
		clock = s.defaultClock
	}

	for _, kind := range EvaluateReminders(nowLocal, today, state, clock) {
		if err := s.deliver(ctx, &user, state, today, kind); err != nil {
			return err
		}
	}
	return nil
}

// deliver sends one reminder, guarded by both de-duplication layers. The
// fast-path claim is released on any failure past it: delivery stays
// at-least-once, and only a recorded send may suppress a retry.
func (s *Sweeper) deliver(ctx context.Context, user *models.User, state StreakState, today LocalDate, kind string) error {
	key := fmt.Sprintf("rem:%d:%s:%s", user.ID, today.String(), kind)
	if !utils.MarkOnce(key, 48*time.Hour) {
		return nil
	}

	sent, err := s.store.HasReminderSent(ctx, user.ID, today, kind)
	if err != nil {
		utils.ReleaseOnce(key)
		return err
	}
	if sent {
		return nil
	}

	text := s.messages.ReminderText(ctx, user, kind, state)
	if err := s.notifier.SendMessage(ctx, user.TelegramID, text); err != nil {
		utils.ReleaseOnce(key)
		return fmt.Errorf("send %s reminder: %w", kind, err)
	}

	if _, err := s.store.MarkReminderSent(ctx, user.ID, today, kind); err != nil {
		// The message went out but the durable row did not land; release
		// the fast path so the next sweep reconciles through the store.
		utils.ReleaseOnce(key)
		return err
	}
	if utils.Sugar != nil {
		utils.Sugar.Infow("reminder sent",
			"telegram_id", user.TelegramID,
			"kind", kind,
			"date", today.String(),
		)
	}
	return nil
}

// userLocation loads the user's zone, falling back to the default, then UTC.
func (s *Sweeper) userLocation(tz string) *time.Location {
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation(s.defaultTZ); err == nil {
		return loc
	}
	return time.UTC
}
