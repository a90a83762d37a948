package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/easeaico/style-echo/internal/types"
)

const redisKeyPrefix = "styleecho:history:"

// RedisStore keeps windows in Redis lists so several processes can share
// session history. Each append runs RPUSH, LTRIM and PEXPIRE in one
// MULTI/EXEC block, so concurrent appends for one session stay ordered.
type RedisStore struct {
	client  redis.UniversalClient
	limit   int
	ttl     time.Duration
	onEvict EvictFunc
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// NewRedisStore returns a Redis-backed Store.
func NewRedisStore(client redis.UniversalClient, limit int, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		limit:  normalizeLimit(limit),
		ttl:    ttl,
	}
}

// OnEvict registers a hook for FIFO evictions.
func (s *RedisStore) OnEvict(fn EvictFunc) {
	s.onEvict = fn
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, turns ...types.Turn) error {
	if err := checkKey("append", sessionID); err != nil {
		return err
	}
	if err := validateTurns(turns); err != nil {
		return err
	}
	if len(turns) == 0 {
		return nil
	}

	now := time.Now()
	values := make([]any, 0, len(turns))
	for _, turn := range turns {
		if turn.CreatedAt.IsZero() {
			turn.CreatedAt = now
		}
		data, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to marshal turn: %w", err)
		}
		values = append(values, data)
	}

	key := redisKey(sessionID)
	var push *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		push = pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, int64(-s.limit), -1)
		if s.ttl > 0 {
			pipe.PExpire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	if dropped := int(push.Val()) - s.limit; dropped > 0 && s.onEvict != nil {
		s.onEvict(sessionID, dropped)
	}
	return nil
}

func (s *RedisStore) Snapshot(ctx context.Context, sessionID string) ([]types.Turn, error) {
	if err := checkKey("snapshot", sessionID); err != nil {
		return nil, err
	}
	raw, err := s.client.LRange(ctx, redisKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	turns := make([]types.Turn, 0, len(raw))
	for _, item := range raw {
		var turn types.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := checkKey("clear", sessionID); err != nil {
		return err
	}
	if err := s.client.Del(ctx, redisKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func redisKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}
