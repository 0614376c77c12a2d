package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// RateLimiter counts hits per aligned window. Each window gets its own key,
// so a lost EXPIRE can never pin a counter past the window it belongs to.
type RateLimiter struct {
	client RedisClient
	now    func() time.Time
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow reports whether one more hit fits under limit within window.
// A non-positive limit disables limiting.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return true, nil
	}
	bucket := windowKey(key, r.now(), window)

	count, err := r.client.Incr(ctx, bucket)
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		// one extra window of slack so a slow clock does not drop the key early
		if err := r.client.Expire(ctx, bucket, 2*window); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return count <= int64(limit), nil
}

func windowKey(key string, at time.Time, window time.Duration) string {
	start := at.Truncate(window).Unix()
	return key + ":" + strconv.FormatInt(start, 10)
}

// UserActionKey namespaces a limiter key by user and action.
func UserActionKey(userID, action string) string {
	return fmt.Sprintf("rate_limit:%s:%s", userID, action)
}
