package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"course_core_backend/internal/model"

	"github.com/go-redis/redis/v8"
)

// ProgressCache 在 Redis 中缓存课程进度汇总；client 为 nil 时所有调用都是空操作
type ProgressCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewProgressCache(rdb *redis.Client, ttl time.Duration) *ProgressCache {
	return &ProgressCache{Redis: rdb, TTL: ttl}
}

func progressKey(userID, courseID uint) string {
	return fmt.Sprintf("progress:course:%d:user:%d", courseID, userID)
}

// Get 读取缓存，未命中返回 (nil, false, nil)
func (c *ProgressCache) Get(ctx context.Context, userID, courseID uint) (*model.CourseProgressSummary, bool, error) {
	if c == nil || c.Redis == nil {
		return nil, false, nil
	}
	raw, err := c.Redis.Get(ctx, progressKey(userID, courseID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var summary model.CourseProgressSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		// 脏数据直接丢弃
		c.Redis.Del(ctx, progressKey(userID, courseID))
		return nil, false, nil
	}
	return &summary, true, nil
}

func (c *ProgressCache) Set(ctx context.Context, userID uint, summary *model.CourseProgressSummary) error {
	if c == nil || c.Redis == nil || summary == nil {
		return nil
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, progressKey(userID, summary.CourseID), raw, c.TTL).Err()
}

func (c *ProgressCache) Invalidate(ctx context.Context, userID, courseID uint) error {
	if c == nil || c.Redis == nil {
		return nil
	}
	return c.Redis.Del(ctx, progressKey(userID, courseID)).Err()
}
