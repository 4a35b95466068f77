// Package joblock serialises import jobs per treasury account.
package joblock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/tinoosan/treasury/internal/errs"
)

// Locker hands out exclusive, non-blocking locks. Acquire fails with
// errs.KindImportInProgress when the key is already held.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// Key builds the lock key for imports into an account.
func Key(accountCode string) string { return "treasury:import:" + accountCode }

// Local locks within one process.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocal returns an in-process Locker.
func NewLocal() *Local { return &Local{held: make(map[string]struct{})} }

func (l *Local) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, errs.New(errs.KindImportInProgress, "an import for %s is already running", key)
	}
	l.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}

// Redis locks across processes with redislock. The TTL bounds how long a
// crashed importer can hold the key.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewRedis wraps a connected go-redis client.
func NewRedis(rdb redis.UniversalClient, ttl time.Duration, log *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Redis{client: redislock.New(rdb), ttl: ttl, log: log}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := r.client.Obtain(ctx, key, r.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, errs.New(errs.KindImportInProgress, "an import for %s is already running", key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return func() {
		// The request context may already be cancelled by the time we release.
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			r.log.Warn("release import lock", "key", key, "err", err)
		}
	}, nil
}

// Dial connects to Redis and verifies the connection with PING.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}
