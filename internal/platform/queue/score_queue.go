package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Dequeue when the wait timed out with nothing queued.
var ErrEmpty = errors.New("queue is empty")

// ScoreQueue is a Redis list of user ids whose score needs recomputing.
type ScoreQueue struct {
	rdb  *redis.Client
	name string
}

func NewScoreQueue(rdb *redis.Client, name string) *ScoreQueue {
	return &ScoreQueue{rdb: rdb, name: name}
}

func (q *ScoreQueue) Name() string { return q.name }

func (q *ScoreQueue) Enqueue(ctx context.Context, userID string) error {
	if err := q.rdb.LPush(ctx, q.name, userID).Err(); err != nil {
		return fmt.Errorf("push to %s: %w", q.name, err)
	}
	return nil
}

// Dequeue blocks up to timeout for the oldest entry.
func (q *ScoreQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrEmpty
		}
		return "", err
	}
	// BRPop returns [queueName, value]
	if len(res) < 2 || res[1] == "" {
		return "", ErrEmpty
	}
	return res[1], nil
}
