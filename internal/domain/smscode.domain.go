package domain

import "time"

// SmsCode is one issued SMS verification code. At most one unused, unexpired
// row per user is meaningful at a time; issuing a new code marks all earlier
// unused rows as used.
type SmsCode struct {
	ID        int64
	UserID    int64
	Code      string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

func (c *SmsCode) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
