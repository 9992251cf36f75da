package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mkrylov/tablebook/config"
	"github.com/redis/go-redis/v9"
)

const admissionLockKey = "lock:admission"

// AdmissionLock serializes reservation writes across every process sharing
// the Redis instance. Acquire polls a SETNX lease until the wait deadline;
// the TTL releases the lease if a holder crashes mid-admission.
type AdmissionLock struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	token  string
}

func NewAdmissionLock(cfg config.RedisConfig, wait, ttl time.Duration) *AdmissionLock {
	return &AdmissionLock{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		ttl:    ttl,
		wait:   wait,
		retry:  100 * time.Millisecond,
		token:  uuid.NewString(),
	}
}

// Acquire returns true once the lock is held, false when the wait deadline
// passed without obtaining it.
func (l *AdmissionLock) Acquire(ctx context.Context) (bool, error) {
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, admissionLockKey, l.token, l.ttl).Result()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func (l *AdmissionLock) Release(ctx context.Context) error {
	return l.client.Del(ctx, admissionLockKey).Err()
}
