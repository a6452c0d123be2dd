package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Class partitions senders' rate-limit counters. PM traffic and everything
// else carry independently configured limits.
type Class string

const (
	ClassPM     Class = "pm"
	ClassPublic Class = "public"
)

// Config is the limit for one class: at most Limit accepted sends within a
// trailing Window.
type Config struct {
	Limit  int
	Window time.Duration
}

// Limiter enforces a sliding-window message rate per (sender, class) on a
// redis sorted set of recent send timestamps.
type Limiter struct {
	rdb     *redis.Client
	logger  *zap.Logger
	configs map[Class]Config
}

func NewLimiter(rdb *redis.Client, logger *zap.Logger, pm, public Config) *Limiter {
	return &Limiter{
		rdb:    rdb,
		logger: logger,
		configs: map[Class]Config{
			ClassPM:     pm,
			ClassPublic: public,
		},
	}
}

// slidingWindow trims entries older than the window, reads the remaining
// count, records the current attempt under a unique member, and refreshes
// the key's expiry — all in one script.
//
// A pipeline would not be enough here: two concurrent senders could both
// read the same pre-insert count and both pass. Redis executes an EVAL
// script serially, so the read-modify-write is a single atomic step and the
// window admits at most `limit` sends no matter how many connections the
// sender uses. Scores and the window are in microseconds; the expiry
// argument is in whole seconds.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
redis.call('ZADD', key, now, ARGV[4])
redis.call('EXPIRE', key, ttl)
return count
`)

// Allow checks and records one send attempt for the sender in the given
// class. The attempt is recorded even when rejected, and it stays recorded
// even if the caller's message transaction later fails; failed-but-counted
// sends still count against the limit.
//
// Returns false when the count of entries already in the window is at or
// above the class limit, i.e. the (limit+1)-th attempt within a window is
// the one that trips the limiter.
func (l *Limiter) Allow(ctx context.Context, senderID uint, class Class) (bool, error) {
	cfg, ok := l.configs[class]
	if !ok {
		return false, fmt.Errorf("ratelimit: unknown class %q", class)
	}

	key := keyFor(senderID, class)
	now := time.Now().UnixMicro()
	window := cfg.Window.Microseconds()
	ttl := int64(math.Ceil(cfg.Window.Seconds()))

	count, err := slidingWindow.Run(ctx, l.rdb, []string{key}, now, window, ttl, uuid.NewString()).Int64()
	if err != nil {
		return false, fmt.Errorf("ratelimit: sliding window check failed: %w", err)
	}

	allowed := count < int64(cfg.Limit)
	if !allowed {
		l.logger.Warn("message rate limit exceeded",
			zap.Uint("sender_id", senderID),
			zap.String("class", string(class)),
			zap.Int64("count", count),
			zap.Int("limit", cfg.Limit),
			zap.Duration("window", cfg.Window),
		)
	}
	return allowed, nil
}

// Reset clears the recorded attempts for one sender and class.
func (l *Limiter) Reset(ctx context.Context, senderID uint, class Class) error {
	if err := l.rdb.Del(ctx, keyFor(senderID, class)).Err(); err != nil {
		return fmt.Errorf("ratelimit: reset failed: %w", err)
	}
	return nil
}

func keyFor(senderID uint, class Class) string {
	return fmt.Sprintf("chat:ratelimit:%s:%d", class, senderID)
}
