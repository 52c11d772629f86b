package domain

// Session is the per-login authentication state shared with the HTTP layer.
//
// Invariant: AuthenticatedUserID is set only when Requires2FA is false or
// TwoFactorVerified is true. PendingUserID and Requires2FA are cleared
// together when the second factor is verified.
type Session struct {
	Token               string `json:"-"`
	AuthenticatedUserID int64  `json:"authenticated_user_id,omitempty"`
	PendingUserID       int64  `json:"pending_user_id,omitempty"`
	Requires2FA         bool   `json:"requires_2fa"`
	TwoFactorVerified   bool   `json:"two_factor_verified"`
}

// Authenticated reports whether the session carries a fully authenticated
// principal, including a completed second factor when one is required.
func (s *Session) Authenticated() bool {
	if s.AuthenticatedUserID == 0 {
		return false
	}
	return !s.Requires2FA || s.TwoFactorVerified
}

// PendingSecondFactor reports whether a password check succeeded but the
// second factor is still outstanding.
func (s *Session) PendingSecondFactor() bool {
	return s.PendingUserID != 0 && s.Requires2FA
}
