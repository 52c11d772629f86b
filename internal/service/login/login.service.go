// Package login coordinates the authentication state machine: password
// check, optional second factor, and the session state in between.
//
// States: anonymous -> password verified -> pending second factor -> fully
// authenticated. A session is fully authenticated only when no second factor
// is required or the second factor has been verified.
package login

import (
	"context"
	"log"

	"twofa-service/internal/domain"
	"twofa-service/internal/service/smscode"
	"twofa-service/internal/session"
	"twofa-service/pkg/xerrors"
)

type PasswordAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
}

type TotpVerifier interface {
	VerifyCode(ctx context.Context, userID int64, code string) (bool, error)
}

type SmsVerifier interface {
	VerifyCode(ctx context.Context, userID int64, code string) (bool, error)
	SendCode(ctx context.Context, userID int64, purpose string) error
}

type UserStore interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

type Coordinator struct {
	auth     PasswordAuthenticator
	totp     TotpVerifier
	sms      SmsVerifier
	users    UserStore
	sessions session.Store
}

func NewCoordinator(auth PasswordAuthenticator, totp TotpVerifier, sms SmsVerifier, users UserStore, sessions session.Store) *Coordinator {
	return &Coordinator{
		auth:     auth,
		totp:     totp,
		sms:      sms,
		users:    users,
		sessions: sessions,
	}
}

// Methods reports which second factors the pending user can complete.
type Methods struct {
	TOTP bool `json:"totp"`
	SMS  bool `json:"sms"`
}

type Result struct {
	User        *domain.UserProfile `json:"user,omitempty"`
	Requires2FA bool                `json:"requires_2fa"`
	Methods     *Methods            `json:"methods,omitempty"`
}

// Login verifies the password and either establishes a fully authenticated
// session or parks the user in the pending-second-factor state. When SMS 2FA
// is enabled a code is dispatched automatically; a dispatch failure is logged
// and the pending state is still returned so the user can request a resend.
func (c *Coordinator) Login(ctx context.Context, sess *domain.Session, username, password string) (*Result, error) {
	user, err := c.auth.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if !user.TwoFARequired() {
		sess.AuthenticatedUserID = user.ID
		sess.PendingUserID = 0
		sess.Requires2FA = false
		sess.TwoFactorVerified = true
		if err := c.sessions.Save(ctx, sess); err != nil {
			return nil, err
		}
		return &Result{User: user.Profile()}, nil
	}

	sess.AuthenticatedUserID = 0
	sess.PendingUserID = user.ID
	sess.Requires2FA = true
	sess.TwoFactorVerified = false
	if err := c.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	if user.SmsEnabled {
		if err := c.sms.SendCode(ctx, user.ID, smscode.PurposeLogin); err != nil {
			log.Printf("[WARN] automatic SMS code dispatch failed | UserID=%d | err=%v", user.ID, err)
		}
	}

	return &Result{
		Requires2FA: true,
		Methods:     &Methods{TOTP: user.TotpEnabled, SMS: user.SmsEnabled},
	}, nil
}

// VerifySecondFactor completes a pending login. Without a pending user the
// call fails with ErrNoPendingVerification regardless of code validity. On
// success the pending markers are cleared together and the authenticated
// principal is set.
func (c *Coordinator) VerifySecondFactor(ctx context.Context, sess *domain.Session, method, code string) (*Result, error) {
	if !sess.PendingSecondFactor() {
		return nil, xerrors.ErrNoPendingVerification
	}
	userID := sess.PendingUserID

	var (
		ok  bool
		err error
	)
	switch method {
	case domain.MethodTOTP:
		ok, err = c.totp.VerifyCode(ctx, userID, code)
	case domain.MethodSMS:
		ok, err = c.sms.VerifyCode(ctx, userID, code)
	default:
		return nil, xerrors.ErrUnsupported2FAMethod
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		// Session stays in the pending state.
		return nil, xerrors.ErrInvalidCode
	}

	user, err := c.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess.AuthenticatedUserID = user.ID
	sess.PendingUserID = 0
	sess.Requires2FA = false
	sess.TwoFactorVerified = true
	if err := c.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	return &Result{User: user.Profile()}, nil
}

// ResendCode re-dispatches an SMS code for a pending login, or for the
// authenticated user during SMS 2FA setup.
func (c *Coordinator) ResendCode(ctx context.Context, sess *domain.Session) error {
	switch {
	case sess.PendingSecondFactor():
		return c.sms.SendCode(ctx, sess.PendingUserID, smscode.PurposeLogin)
	case sess.Authenticated():
		return c.sms.SendCode(ctx, sess.AuthenticatedUserID, smscode.PurposeEnableSMS)
	default:
		return xerrors.ErrNoPendingVerification
	}
}

// Logout drops the session entirely: authentication and pending markers go
// together.
func (c *Coordinator) Logout(ctx context.Context, sess *domain.Session) error {
	return c.sessions.Delete(ctx, sess.Token)
}

// CurrentUser resolves the fully authenticated principal, if any.
func (c *Coordinator) CurrentUser(ctx context.Context, sess *domain.Session) (*domain.UserProfile, error) {
	if !sess.Authenticated() {
		return nil, xerrors.ErrUnauthorized
	}
	user, err := c.users.FindByID(ctx, sess.AuthenticatedUserID)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}
