package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "notesapp:cache:notes:"

// NotesCache 缓存每个用户的笔记列表响应。
//
// 缓存失效只影响性能，读取失败时调用方应回落到数据库。
type NotesCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewNotesCache 创建笔记列表缓存。
func NewNotesCache(rdb *redis.Client, ttl time.Duration) *NotesCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &NotesCache{
		rdb: rdb,
		ttl: ttl,
	}
}

// Get 读取用户的缓存负载。未命中时返回 (nil, false, nil)。
func (c *NotesCache) Get(ctx context.Context, userID uint) ([]byte, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, nil
	}
	payload, err := c.rdb.Get(ctx, noteKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return payload, true, nil
}

// Set 写入用户的缓存负载，带 TTL。
func (c *NotesCache) Set(ctx context.Context, userID uint, payload []byte) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	if err := c.rdb.Set(ctx, noteKey(userID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate 删除用户的缓存条目，在笔记创建/修改/删除后调用。
func (c *NotesCache) Invalidate(ctx context.Context, userID uint) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, noteKey(userID)).Err(); err != nil {
		return fmt.Errorf("cache del: %w", err)
	}
	return nil
}

func noteKey(userID uint) string {
	return fmt.Sprintf("%s%d", keyPrefix, userID)
}
