package smscode

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"twofa-service/internal/domain"
	"twofa-service/internal/service/smssender"
	"twofa-service/pkg/xerrors"
)

// Code issuance purposes, used for rate limiting and message wording.
const (
	PurposeLogin     = "login"
	PurposeEnableSMS = "enable_sms"
)

const defaultCodeTTL = 10 * time.Minute

// CodeStore is the slice of the credential store that owns SMS code rows.
type CodeStore interface {
	IssueCode(ctx context.Context, userID int64, code string, expiresAt time.Time) (*domain.SmsCode, error)
	FindActive(ctx context.Context, userID int64, code string) (*domain.SmsCode, error)
	MarkUsed(ctx context.Context, id int64) error
	DeleteForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) (*domain.User, error)
}

type RateLimiter interface {
	CanRequest(ctx context.Context, userID int64, purpose string) error
}

type Service struct {
	repo    CodeStore
	users   UserStore
	sender  smssender.Sender
	limiter RateLimiter // optional
	ttl     time.Duration
}

func NewService(repo CodeStore, users UserStore, sender smssender.Sender, limiter RateLimiter) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		sender:  sender,
		limiter: limiter,
		ttl:     defaultCodeTTL,
	}
}

// SendCode issues a fresh 6-digit code and delivers it. Issuing invalidates
// every earlier unused code for the user. If delivery fails the code row is
// already persisted, so the caller may treat the failure as non-fatal and
// the user can request a resend.
func (s *Service) SendCode(ctx context.Context, userID int64, purpose string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.PhoneNumber == nil || *user.PhoneNumber == "" {
		return xerrors.ErrNoPhoneNumber
	}

	if s.limiter != nil {
		if err := s.limiter.CanRequest(ctx, userID, purpose); err != nil {
			return err
		}
	}

	code, err := randomCode(codeDigits)
	if err != nil {
		return err
	}

	if _, err := s.repo.IssueCode(ctx, userID, code, time.Now().Add(s.ttl)); err != nil {
		return err
	}

	msg := s.formatCodeMessage(purpose, code)
	if err := s.sender.Send(ctx, *user.PhoneNumber, msg); err != nil {
		log.Printf("[WARN] failed to send SMS code | UserID=%d | Purpose=%s | err=%v", userID, purpose, err)
		return fmt.Errorf("%w: %v", xerrors.ErrSendFailure, err)
	}

	return nil
}

// VerifyCode matches an unused, unexpired code and consumes it immediately.
// Wrong, expired, and already-used codes are all just "false"; the caller
// cannot tell them apart.
func (s *Service) VerifyCode(ctx context.Context, userID int64, code string) (bool, error) {
	rec, err := s.repo.FindActive(ctx, userID, code)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := s.repo.MarkUsed(ctx, rec.ID); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			// Consumed by a concurrent verification.
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// Enable turns on SMS 2FA after the user proves possession of the phone.
func (s *Service) Enable(ctx context.Context, userID int64, code string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.PhoneNumber == nil || *user.PhoneNumber == "" {
		return xerrors.ErrNoPhoneNumber
	}

	ok, err := s.VerifyCode(ctx, userID, code)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.ErrInvalidCode
	}

	enabled := true
	_, err = s.users.UpdateUser(ctx, userID, domain.UserUpdate{SmsEnabled: &enabled})
	return err
}

// Disable clears the flag and deletes any remaining code rows for the user.
func (s *Service) Disable(ctx context.Context, userID int64) error {
	disabled := false
	if _, err := s.users.UpdateUser(ctx, userID, domain.UserUpdate{SmsEnabled: &disabled}); err != nil {
		return err
	}
	return s.repo.DeleteForUser(ctx, userID)
}

// CleanupExpired deletes expired rows regardless of used state. Scheduled by
// the server, never triggered by a user action.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx)
}
