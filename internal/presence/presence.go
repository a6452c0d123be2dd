package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ActivityTimeout is the trailing window a user counts as active in a public
// channel after their last accepted message.
const ActivityTimeout = 5 * time.Minute

// Store tracks recent per-channel activity in a redis sorted set keyed by
// channel, score = last-activity unix time. Public channels derive their
// active user list from here instead of membership rows.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Touch records activity for a user in a channel and prunes entries that
// fell out of the window.
func (s *Store) Touch(ctx context.Context, channelID, userID uint) error {
	now := time.Now()
	key := keyFor(channelID)

	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.Unix()),
		Member: strconv.FormatUint(uint64(userID), 10),
	})
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(now.Add(-ActivityTimeout).Unix(), 10))
	pipe.Expire(ctx, key, ActivityTimeout)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence: touch failed: %w", err)
	}
	return nil
}

// ActiveUserIDs returns the users active in the channel within the window.
func (s *Store) ActiveUserIDs(ctx context.Context, channelID uint, window time.Duration) ([]uint, error) {
	cutoff := time.Now().Add(-window).Unix()
	members, err := s.rdb.ZRangeByScore(ctx, keyFor(channelID), &redis.ZRangeBy{
		Min: strconv.FormatInt(cutoff, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("presence: range read failed: %w", err)
	}

	ids := make([]uint, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func keyFor(channelID uint) string {
	return fmt.Sprintf("chat:activity:%d", channelID)
}
