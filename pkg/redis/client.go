package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client Redis客户端包装器，歌词存储用到的子集
type Client struct {
	rdb *redis.Client
}

// NewClient 创建新的Redis客户端并测试连接
func NewClient(addr string, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	client := &Client{rdb: rdb}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		return nil, err
	}

	return client, nil
}

// Ping 测试连接
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Set 设置键值对（永久有效）
func (c *Client) Set(ctx context.Context, key string, value string) error {
	return c.rdb.Set(ctx, key, value, 0).Err()
}

// Get 获取值，键不存在时返回空串而不是错误
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	result := c.rdb.Get(ctx, key)
	if result.Err() == redis.Nil {
		return "", nil
	}
	return result.Result()
}

// Del 删除键
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	return c.rdb.Del(ctx, keys...).Result()
}

// ScanKeys 遍历匹配 pattern 的所有键
func (c *Client) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Close 关闭客户端连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
