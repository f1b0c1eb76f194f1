package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SlidingWindowRateLimiter provides sliding window rate limiting using Redis sorted sets
type SlidingWindowRateLimiter struct {
	RedisClient *redis.Client
}

// CheckSlidingWindow records one event under key if fewer than limit events
// fall inside the window. Returns allowed, retryAfter (seconds) and error.
func (sw *SlidingWindowRateLimiter) CheckSlidingWindow(ctx context.Context, key string, limit int, windowSeconds int) (bool, int, error) {
	now := time.Now().Unix()
	windowStart := now - int64(windowSeconds)

	pipe := sw.RedisClient.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))
	countCmd := pipe.ZCount(ctx, key, fmt.Sprintf("%d", windowStart), "+inf")
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)
	pipe.Expire(ctx, key, time.Duration(windowSeconds+60)*time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	if countCmd.Val() >= int64(limit) {
		retryAfter := windowSeconds
		if oldest := oldestCmd.Val(); len(oldest) > 0 {
			retryAfter = int(int64(oldest[0].Score) + int64(windowSeconds) - now)
			if retryAfter < 1 {
				retryAfter = 1
			}
		}
		return false, retryAfter, nil
	}

	err := sw.RedisClient.ZAdd(ctx, key, redis.Z{
		Score:  float64(now),
		Member: fmt.Sprintf("%d:%d", now, time.Now().UnixNano()),
	}).Err()
	if err != nil {
		return false, 0, err
	}
	return true, 0, nil
}

// InboundLimiter decides whether a user's next inbound message is processed
type InboundLimiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
}

// MessageRateLimiter limits inbound WebSocket messages per user
type MessageRateLimiter struct {
	SlidingWindowRateLimiter
	limit         int
	windowSeconds int
}

// NewMessageRateLimiter allows limit messages per user in any window of windowSeconds
func NewMessageRateLimiter(client *redis.Client, limit, windowSeconds int) *MessageRateLimiter {
	return &MessageRateLimiter{
		SlidingWindowRateLimiter: SlidingWindowRateLimiter{RedisClient: client},
		limit:                    limit,
		windowSeconds:            windowSeconds,
	}
}

// Allow records a message for userID and reports whether it is within the limit
func (l *MessageRateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	allowed, _, err := l.CheckSlidingWindow(ctx, "ratelimit:ws:"+userID, l.limit, l.windowSeconds)
	return allowed, err
}
