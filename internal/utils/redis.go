// 包 utils：Redis 连接工具，统一环境变量读取与可选 DB 选择
package utils

import (
	"geojson2xml/internal/logger"
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisOptionsFromEnv：REDIS_HOST/REDIS_PORT/REDIS_PASS/REDIS_DB
// 约束：REDIS_DB 解析失败或为负时回退到 0
func RedisOptionsFromEnv() *redis.Options {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			db = n
		}
	}
	return &redis.Options{Addr: host + ":" + port, Password: os.Getenv("REDIS_PASS"), DB: db}
}

func OpenRedisFromEnv() *redis.Client {
	opts := RedisOptionsFromEnv()
	logger.L().Debug("redis_env", "addr", opts.Addr, "db", opts.DB)
	return redis.NewClient(opts)
}
