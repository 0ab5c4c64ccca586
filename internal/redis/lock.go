package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("run lock not acquired")
	ErrLockRelease     = errors.New("run lock not released")
)

// Locker serialises reconciliation runs across operators and processes.
type Locker interface {
	WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker that uses one Redis key per lock name. The
// key expires after ttl unless the holder is still running, in which case it
// is extended every ttl/3.
func NewRedisLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisLocker{
		client: client,
		ttl:    ttl,
	}
}

// LockKey is the Redis key guarding the named lock.
func LockKey(name string) string {
	return fmt.Sprintf("lock:reconcile:%s", name)
}

// WithLock runs fn while holding the named lock. fn sees ctx unchanged; the
// lock itself never cuts a run short. A failed release is returned wrapped in
// ErrLockRelease, joined with fn's error.
func (l *redisLocker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	key := LockKey(name)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	bg := context.WithoutCancel(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.keepAlive(bg, key, token, stop)
	}()

	runErr := fn(ctx)

	close(stop)
	<-done

	if err := l.release(bg, key, token); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func (l *redisLocker) keepAlive(ctx context.Context, key, token string, stop <-chan struct{}) {
	interval := l.ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// a failed extension is retried on the next tick
			_, _ = extendScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Result()
		}
	}
}

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
  return 0
end
`)

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s: %w", ErrLockRelease, key, err)
	}
	return nil
}

// NoopLocker runs fn directly. Used when no Redis is configured.
type NoopLocker struct{}

func (NoopLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
