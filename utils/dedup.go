package utils

import (
	"context"
	"sync"
	"time"
)

type onceEntry struct {
	expiresAt time.Time
}

var (
	onceStore   = map[string]onceEntry{}
	onceStoreMu sync.Mutex
)

// MarkOnce claims a single-use key with TTL and reports whether this caller
// won the claim. Backed by Redis SETNX so the claim holds across instances;
// falls back to an in-memory map (single-instance only) when Redis is down.
// The durable reminder_logs table remains the source of truth; this is the
// fast path that keeps repeated sweeps from hammering it.
func MarkOnce(key string, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ok, err := rc.SetNX(ctx, "once:"+key, "1", ttl).Result()
		if err == nil {
			return ok
		}
		// fall through to in-memory on Redis error
	}

	onceStoreMu.Lock()
	defer onceStoreMu.Unlock()

	now := time.Now()
	for k, e := range onceStore {
		if now.After(e.expiresAt) {
			delete(onceStore, k)
		}
	}
	if e, ok := onceStore[key]; ok && now.Before(e.expiresAt) {
		return false
	}
	onceStore[key] = onceEntry{expiresAt: now.Add(ttl)}
	return true
}

// ReleaseOnce hands a claimed key back so a later attempt can claim it
// again. Callers release when the action guarded by the claim failed after
// the claim was taken, otherwise the failure would be suppressed until the
// TTL runs out.
func ReleaseOnce(key string) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rc.Del(ctx, "once:"+key).Err()
	}

	onceStoreMu.Lock()
	delete(onceStore, key)
	onceStoreMu.Unlock()
}
