// Package costguard keeps per-user, per-UTC-day spend and assessment-start
// counters in Redis. Every mutation is a single atomic script call, so any
// number of processes can hit the same key without lost updates.
package costguard

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

const (
	DefaultKeyTTL            = 48 * time.Hour
	DefaultAssessmentsPerDay = 1
	DefaultKeyPrefix         = "bigocean"
)

// incrWithTTL adds ARGV[1] and sets the expiry only if the key has none yet.
var incrWithTTL = goredis.NewScript(`
local v = redis.call('INCRBY', KEYS[1], ARGV[1])
if redis.call('TTL', KEYS[1]) < 0 then
  redis.call('EXPIRE', KEYS[1], ARGV[2])
end
return v
`)

type Guard interface {
	IncrementDailyCost(ctx context.Context, userID uuid.UUID, cents int64) (int64, error)
	GetDailyCost(ctx context.Context, userID uuid.UUID) (int64, error)
	RecordAssessmentStart(ctx context.Context, userID uuid.UUID) error
	CanStartAssessment(ctx context.Context, userID uuid.UUID) (bool, error)
}

type Config struct {
	KeyPrefix         string
	KeyTTL            time.Duration
	AssessmentsPerDay int64
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.KeyPrefix) == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.KeyTTL <= 0 {
		c.KeyTTL = DefaultKeyTTL
	}
	if c.AssessmentsPerDay <= 0 {
		c.AssessmentsPerDay = DefaultAssessmentsPerDay
	}
	return c
}

// RedisClient is the subset of *goredis.Client the guard needs.
type RedisClient interface {
	goredis.Scripter
	Get(ctx context.Context, key string) *goredis.StringCmd
}

type redisGuard struct {
	rdb RedisClient
	cfg Config
	now clock.Func
	log *logger.Logger
}

func NewRedisGuard(rdb RedisClient, baseLog *logger.Logger, cfg Config, now clock.Func) Guard {
	return &redisGuard{
		rdb: rdb,
		cfg: cfg.withDefaults(),
		now: clock.NowOr(now),
		log: baseLog.With("service", "CostGuard"),
	}
}

func (g *redisGuard) costKey(userID uuid.UUID, day string) string {
	return fmt.Sprintf("%s:cost:%s:%s", g.cfg.KeyPrefix, userID, day)
}

func (g *redisGuard) startsKey(userID uuid.UUID, day string) string {
	return fmt.Sprintf("%s:assessments:%s:%s", g.cfg.KeyPrefix, userID, day)
}

func (g *redisGuard) incr(ctx context.Context, key string, by int64) (int64, error) {
	ttlSeconds := int64(g.cfg.KeyTTL / time.Second)
	return incrWithTTL.Run(ctx, g.rdb, []string{key}, by, ttlSeconds).Int64()
}

func (g *redisGuard) IncrementDailyCost(ctx context.Context, userID uuid.UUID, cents int64) (int64, error) {
	if userID == uuid.Nil {
		return 0, fmt.Errorf("missing user_id")
	}
	if cents < 0 {
		return 0, fmt.Errorf("cost increment must be non-negative, got %d", cents)
	}
	total, err := g.incr(ctx, g.costKey(userID, clock.UTCDay(g.now())), cents)
	if err != nil {
		return 0, fmt.Errorf("increment daily cost: %w", err)
	}
	return total, nil
}

func (g *redisGuard) GetDailyCost(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, fmt.Errorf("missing user_id")
	}
	return g.getInt(ctx, g.costKey(userID, clock.UTCDay(g.now())))
}

// RecordAssessmentStart increments first and checks after. The counter is a
// usage ledger and is never decremented, so among N racing callers exactly
// AssessmentsPerDay observe success.
func (g *redisGuard) RecordAssessmentStart(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("missing user_id")
	}
	now := g.now()
	count, err := g.incr(ctx, g.startsKey(userID, clock.UTCDay(now)), 1)
	if err != nil {
		return fmt.Errorf("record assessment start: %w", err)
	}
	if count > g.cfg.AssessmentsPerDay {
		g.log.Info("assessment start rejected", "user_id", userID, "count", count, "limit", g.cfg.AssessmentsPerDay)
		return &RateLimitExceededError{
			UserID:  userID,
			ResetAt: clock.NextUTCMidnight(now),
			Limit:   g.cfg.AssessmentsPerDay,
		}
	}
	return nil
}

// CanStartAssessment is advisory only; it races with concurrent writers.
func (g *redisGuard) CanStartAssessment(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, fmt.Errorf("missing user_id")
	}
	count, err := g.getInt(ctx, g.startsKey(userID, clock.UTCDay(g.now())))
	if err != nil {
		return false, err
	}
	return count < g.cfg.AssessmentsPerDay, nil
}

func (g *redisGuard) getInt(ctx context.Context, key string) (int64, error) {
	v, err := g.rdb.Get(ctx, key).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}
