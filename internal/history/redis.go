// internal/history/redis.go
package history

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"research-assistant/internal/common/errors"
)

// RedisStore keeps each session as a capped, expiring Redis list of JSON messages.
type RedisStore struct {
	client redis.Cmdable
	opts   Options
}

func NewRedisStore(client redis.Cmdable, opts Options) *RedisStore {
	return &RedisStore{client: client, opts: opts.withDefaults()}
}

func (s *RedisStore) Append(ctx context.Context, panel, sessionID string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return errors.NewHistoryStoreFailedError("append", err)
		}
		values = append(values, data)
	}

	key := Key(panel, sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, int64(-s.opts.MaxMessages), -1)
		pipe.Expire(ctx, key, s.opts.TTL)
		return nil
	})
	if err != nil {
		return errors.NewHistoryStoreFailedError("append", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, panel, sessionID string, limit int) ([]Message, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	raw, err := s.client.LRange(ctx, Key(panel, sessionID), start, -1).Result()
	if err != nil {
		return nil, errors.NewHistoryStoreFailedError("list", err)
	}

	msgs := make([]Message, 0, len(raw))
	for _, item := range raw {
		var m Message
		// Entries that no longer decode are skipped rather than hiding the whole session.
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *RedisStore) Clear(ctx context.Context, panel, sessionID string) error {
	if err := s.client.Del(ctx, Key(panel, sessionID)).Err(); err != nil {
		return errors.NewHistoryStoreFailedError("clear", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.NewHistoryStoreFailedError("ping", err)
	}
	return nil
}
