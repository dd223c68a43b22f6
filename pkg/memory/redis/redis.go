package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/barekit/folio/pkg/llm"
	"github.com/barekit/folio/pkg/memory/consts"
	"github.com/redis/go-redis/v9"
)

// RedisMemory implements Memory using Redis.
type RedisMemory struct {
	client *redis.Client
}

// New creates a new RedisMemory.
func New(client *redis.Client) *RedisMemory {
	return &RedisMemory{client: client}
}

func messagesKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func metaKey(sessionID string) string {
	return fmt.Sprintf("session:%s:meta", sessionID)
}

// Save saves a message to Redis.
// Messages are stored as a JSON list under "session:{sessionID}" and the
// count in the "session:{sessionID}:meta" hash, both in one MULTI/EXEC.
func (m *RedisMemory) Save(ctx context.Context, sessionID string, msg llm.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, messagesKey(sessionID), b)
		pipe.HIncrBy(ctx, metaKey(sessionID), consts.ColMessageCount, 1)
		return nil
	})
	return err
}

// Load loads messages from Redis.
func (m *RedisMemory) Load(ctx context.Context, sessionID string) ([]llm.Message, error) {
	result, err := m.client.LRange(ctx, messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]llm.Message, len(result))
	for i, item := range result {
		var msg llm.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message at index %d: %w", i, err)
		}
		messages[i] = msg
	}

	return messages, nil
}

// Count returns the session's message count.
func (m *RedisMemory) Count(ctx context.Context, sessionID string) (int64, error) {
	n, err := m.client.HGet(ctx, metaKey(sessionID), consts.ColMessageCount).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Close closes the client.
func (m *RedisMemory) Close(ctx context.Context) error {
	return m.client.Close()
}
