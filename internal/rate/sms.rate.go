package rate

import (
	"context"
	"fmt"
	"time"

	"twofa-service/pkg/xerrors"
)

// Cache is the slice of the cache layer the limiter uses.
type Cache interface {
	Set(ctx context.Context, namespace, key string, value interface{}, ttl time.Duration) error
	GetTTL(ctx context.Context, namespace, key string) (time.Duration, error)
	IncrWithExpire(ctx context.Context, namespace, key string, window time.Duration) (int64, error)
}

// Limiter throttles SMS code issuance per user: a short cooldown between
// consecutive requests and a hard cap per window. Verification attempts are
// not throttled; that absence is a documented limitation.
type Limiter struct {
	cache       Cache
	window      time.Duration
	maxInWindow int
	cooldown    time.Duration
}

func NewLimiter(cache Cache, window time.Duration, max int, cooldown time.Duration) *Limiter {
	return &Limiter{cache: cache, window: window, maxInWindow: max, cooldown: cooldown}
}

func (l *Limiter) CanRequest(ctx context.Context, userID int64, purpose string) error {
	blockKey := fmt.Sprintf("block:%d:%s", userID, purpose)
	lastKey := fmt.Sprintf("last:%d:%s", userID, purpose)
	countKey := fmt.Sprintf("count:%d:%s", userID, purpose)

	if ttl, _ := l.cache.GetTTL(ctx, "sms_rate", blockKey); ttl > 0 {
		return xerrors.ErrTooManyCodeRequests
	}

	if ttl, _ := l.cache.GetTTL(ctx, "sms_rate", lastKey); ttl > 0 {
		return xerrors.ErrCodeRequestCooldown
	}

	cnt, err := l.cache.IncrWithExpire(ctx, "sms_rate", countKey, l.window)
	if err != nil {
		return err
	}

	if int(cnt) > l.maxInWindow {
		_ = l.cache.Set(ctx, "sms_rate", blockKey, "1", l.window*3)
		return xerrors.ErrTooManyCodeRequests
	}

	_ = l.cache.Set(ctx, "sms_rate", lastKey, "1", l.cooldown)

	return nil
}
