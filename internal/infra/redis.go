package infra

import (
	"log"
	"os"

	"github.com/redis/go-redis/v9"
)

// InitRedis returns nil when REDIS_ADDR is unset; callers treat a nil client
// as "caching disabled".
func InitRedis() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Println("REDIS_ADDR not set, plan cache disabled")
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
}
