package payment

import (
	"context"
	"fmt"
	"ms-marketplace/internal/logger"
	"time"

	"github.com/go-redis/redis/v8"
)

// InitializeRedis connects to Redis for the balance ledger and tests the connection.
func InitializeRedis(redisAddr string, log *logger.Logger) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: "", // no password
		DB:       0,  // use default DB
		PoolSize: 10, // connection pool size
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		log.Error("REDIS", fmt.Sprintf("Failed to connect to Redis at %s: %v", redisAddr, err))
		_ = redisClient.Close()
		return nil, err
	}

	log.Info("REDIS", fmt.Sprintf("Connected to Redis at %s for the balance ledger", redisAddr))
	return redisClient, nil
}
