package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pisqre/backend/config"
)

const (
	keyRevokedToken = "pisqre:jwt:revoked:"
	dialTimeout     = 5 * time.Second
)

// Client 吊销 Token 与接口限流共用的 Redis 连接
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 连接 Redis，Ping 失败时关闭连接并返回错误
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	c := &Client{rdb: rdb, logger: logger.Named("redis")}
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败 (%s): %w", cfg.Addr, err)
	}

	c.logger.Info("Redis 已连接", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return c, nil
}

// Ping 健康检查
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// BlacklistToken 吊销 jti，ttl 取 Token 剩余有效期，已过期的不写入
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, keyRevokedToken+jti, time.Now().Unix(), ttl).Err()
}

func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, keyRevokedToken+jti).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CheckRateLimit 滑动窗口计数：有序集合以纳秒时间戳为分值，
// 窗口内已有请求数小于 limit 时放行
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixNano()
	cutoff := strconv.FormatInt(now-window.Nanoseconds(), 10)

	var seen *goredis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
		seen = pipe.ZCard(ctx, key)
		pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now), Member: uuid.NewString()})
		pipe.PExpire(ctx, key, window)
		return nil
	})
	if err != nil {
		return false, err
	}
	return seen.Val() < int64(limit), nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
