package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/Zeygath/th-2024/internal/common"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

func SubmissionLockKey(userID string, riddleID int64) string {
	return fmt.Sprintf("submission_lock:%s:%d", userID, riddleID)
}

type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

// TryLock takes key with SET NX and a TTL. A held lock yields common.ErrConflict.
func (l *RedisLocker) TryLock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("another request holds %s: %w", key, common.ErrConflict)
	}

	unlock := func() {
		// The request context may already be done; release on a short detached one.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		deleted, err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Int64()
		if err != nil {
			logrus.WithError(err).WithField("key", key).Error("Failed to release lock")
			return
		}
		if deleted == 0 {
			logrus.WithField("key", key).Warn("Lock expired or was taken over before release")
		}
	}
	return unlock, nil
}
