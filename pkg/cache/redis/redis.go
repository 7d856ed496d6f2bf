package redisx

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Cache{rdb: rdb, logger: logger.With("component", "redis")}
}

func (c *Cache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		c.logger.Warn("ping failed", "error", err.Error())
		return err
	}
	return nil
}

func (c *Cache) Close() {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Close(); err != nil {
		c.logger.Error("close failed", "error", err.Error())
		return
	}
	c.logger.Info("closed")
}

func (c *Cache) SetEx(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("redis: SetEx requires a positive ttl")
	}
	if err := c.rdb.Set(ctx, key, val, ttl).Err(); err != nil {
		c.logger.Error("SET failed", "key", key, "error", err.Error())
		return err
	}
	c.logger.Debug("SET ok", "key", key, "ttl", ttl.String())
	return nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		c.logger.Error("EXISTS failed", "key", key, "error", err.Error())
		return false, err
	}
	return n > 0, nil
}
