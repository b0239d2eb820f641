// Package locks provides the exclusive, session-scoped lock that guards
// finalization state. Acquisition never blocks: a held lock is reported as
// ErrContended immediately.
package locks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/bigocean-backend/internal/platform/clock"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
)

var (
	// ErrContended means another holder owns the lock right now.
	ErrContended = errors.New("session lock contended")
	// ErrLeaseLost means the lease expired or was taken over before release.
	ErrLeaseLost = errors.New("session lock lease lost")
)

const (
	DefaultTTL    = 2 * time.Minute
	releaseBudget = 5 * time.Second
)

// compareAndDelete removes the key only if it still holds our token.
var compareAndDelete = goredis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

type Lease struct {
	SessionID  uuid.UUID
	Token      string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

type SessionLocker interface {
	Acquire(ctx context.Context, sessionID uuid.UUID) (*Lease, error)
	Release(ctx context.Context, lease *Lease) error
}

type RedisClient interface {
	goredis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
}

type Config struct {
	KeyPrefix string
	TTL       time.Duration
}

type redisLocker struct {
	rdb    RedisClient
	prefix string
	ttl    time.Duration
	now    clock.Func
	log    *logger.Logger
}

func NewRedisLocker(rdb RedisClient, baseLog *logger.Logger, cfg Config, now clock.Func) SessionLocker {
	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = "bigocean"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisLocker{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		now:    clock.NowOr(now),
		log:    baseLog.With("service", "SessionLocker"),
	}
}

func (l *redisLocker) key(sessionID uuid.UUID) string {
	return fmt.Sprintf("%s:lock:session:%s", l.prefix, sessionID)
}

func (l *redisLocker) Acquire(ctx context.Context, sessionID uuid.UUID) (*Lease, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("missing session_id")
	}
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key(sessionID), token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return nil, ErrContended
	}
	now := l.now()
	return &Lease{
		SessionID:  sessionID,
		Token:      token,
		AcquiredAt: now,
		ExpiresAt:  now.Add(l.ttl),
	}, nil
}

func (l *redisLocker) Release(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	n, err := compareAndDelete.Run(ctx, l.rdb, []string{l.key(lease.SessionID)}, lease.Token).Int64()
	if err != nil {
		return fmt.Errorf("release session lock: %w", err)
	}
	if n == 0 {
		l.log.Warn("session lock already gone at release", "session_id", lease.SessionID)
		return ErrLeaseLost
	}
	return nil
}

// WithLock runs fn while holding the session lock and releases it on every
// exit path, including panics and cancellation of ctx. Release uses a
// context detached from ctx so a cancelled caller still frees the lock.
func WithLock(ctx context.Context, locker SessionLocker, sessionID uuid.UUID, fn func(ctx context.Context, lease *Lease) error) (err error) {
	lease, err := locker.Acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseBudget)
		defer cancel()
		if relErr := locker.Release(rctx, lease); relErr != nil && !errors.Is(relErr, ErrLeaseLost) && err == nil {
			err = relErr
		}
	}()
	return fn(ctx, lease)
}
