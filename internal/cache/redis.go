// Package cache keeps quiz session state in Redis so several exambank
// instances can serve the same learners. Submission is claimed with SETNX,
// so each session is scored and stored once whichever instance handles it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/pavelanni/exambank/internal/quiz"
)

// DefaultTTL bounds how long an untouched session survives in Redis.
const DefaultTTL = 6 * time.Hour

// RedisStates implements quiz.StateStore on Redis. Idle sessions expire
// through key TTLs, refreshed on every save.
type RedisStates struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStates connects to addr and checks the connection.
func NewRedisStates(ctx context.Context, addr string, ttl time.Duration) (*RedisStates, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStates{client: client, ttl: ttl}, nil
}

// Close releases the connection pool.
func (c *RedisStates) Close() error {
	return c.client.Close()
}

func sessionKey(id string) string {
	return "quiz:session:" + id
}

func submitKey(id string) string {
	return "quiz:submit:" + id
}

func learnerKey(learnerID int64) string {
	return fmt.Sprintf("quiz:learner:%d", learnerID)
}

// SaveSessionState stores the session and marks it as the learner's current
// one. After a submit claim only the submitted state is written; the claim
// key is watched so a concurrent claim aborts a stale write.
func (c *RedisStates) SaveSessionState(ctx context.Context, st quiz.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", st.ID, err)
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		if st.Phase != quiz.PhaseSubmitted {
			claimed, err := tx.Exists(ctx, submitKey(st.ID)).Result()
			if err != nil {
				return err
			}
			if claimed > 0 {
				return nil
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, sessionKey(st.ID), data, c.ttl)
			pipe.Set(ctx, learnerKey(st.LearnerID), st.ID, c.ttl)
			return nil
		})
		return err
	}, submitKey(st.ID))
	if errors.Is(err, redis.TxFailedErr) {
		// Claimed while writing; the in-progress state is stale.
		return nil
	}
	return err
}

// ClaimSubmit sets the submit marker if no other instance holds it.
func (c *RedisStates) ClaimSubmit(ctx context.Context, id string) (bool, error) {
	return c.client.SetNX(ctx, submitKey(id), 1, c.ttl).Result()
}

// ReleaseSubmit removes the submit marker.
func (c *RedisStates) ReleaseSubmit(ctx context.Context, id string) error {
	return c.client.Del(ctx, submitKey(id)).Err()
}

// LoadSessionState returns a saved session, or nil if it expired or never existed.
func (c *RedisStates) LoadSessionState(ctx context.Context, id string) (*quiz.State, error) {
	data, err := c.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st quiz.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &st, nil
}

// DeleteSessionState removes the session and, if it was current, the
// learner's pointer to it.
func (c *RedisStates) DeleteSessionState(ctx context.Context, id string) error {
	st, err := c.LoadSessionState(ctx, id)
	if err != nil {
		return err
	}
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, sessionKey(id), submitKey(id))
	if st != nil {
		current, err := c.client.Get(ctx, learnerKey(st.LearnerID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current == id {
			pipe.Del(ctx, learnerKey(st.LearnerID))
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

// ActiveSessionID returns the learner's current session id or "".
func (c *RedisStates) ActiveSessionID(ctx context.Context, learnerID int64) (string, error) {
	id, err := c.client.Get(ctx, learnerKey(learnerID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return id, err
}

// PurgeSessionStates is a no-op: Redis expires idle sessions itself.
func (c *RedisStates) PurgeSessionStates(context.Context, time.Time) (int, error) {
	return 0, nil
}
