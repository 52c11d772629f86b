package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ParsePGError returns the underlying Postgres error, if any.
func ParsePGError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	if pgErr, ok := ParsePGError(err); ok {
		return pgErr.Code == "23505"
	}
	return false
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
)

// Registration / Login
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")

	ErrEmailRequired    = errors.New("email required")
	ErrUsernameRequired = errors.New("username required")
	ErrPasswordRequired = errors.New("password required")

	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrInvalidPhoneFormat = errors.New("invalid phone number format, expected E.164")
)

// 2FA
var (
	ErrNoPendingVerification = errors.New("no pending 2FA verification")
	ErrInvalidCode           = errors.New("invalid verification code")
	ErrNoPhoneNumber         = errors.New("user has no phone number configured")
	ErrTotpNotConfigured     = errors.New("totp not set up for this user")
	ErrUnsupported2FAMethod  = errors.New("unsupported 2FA method")
	ErrSendFailure           = errors.New("failed to send verification code")
)

// Rate limiting on code issuance
var (
	ErrTooManyCodeRequests = errors.New("too many code requests")
	ErrCodeRequestCooldown = errors.New("please wait before requesting another code")
)

// Session
var (
	ErrSessionNotFound = errors.New("session not found")
)
