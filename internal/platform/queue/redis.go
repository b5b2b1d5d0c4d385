package queue

import (
	"context"

	"github.com/Zeygath/th-2024/internal/platform/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var RDB *redis.Client

func ConnectRedis() {
	RDB = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	ctx := context.Background()
	_, err := RDB.Ping(ctx).Result()
	if err != nil {
		logrus.WithError(err).Fatal("Could not connect to Redis")
	}
	logrus.Info("Successfully connected to Redis!")
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
		logrus.Info("Redis connection closed.")
	}
}
