package domain

import "time"

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	PhoneNumber  *string
	Bio          *string
	TotpEnabled  bool
	SmsEnabled   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserProfile is the API-safe projection of a user (no password hash).
type UserProfile struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	PhoneNumber *string   `json:"phone_number"`
	Bio         *string   `json:"bio"`
	TotpEnabled bool      `json:"totp_enabled"`
	SmsEnabled  bool      `json:"sms_enabled"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *User) Profile() *UserProfile {
	return &UserProfile{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Bio:         u.Bio,
		TotpEnabled: u.TotpEnabled,
		SmsEnabled:  u.SmsEnabled,
		CreatedAt:   u.CreatedAt,
	}
}

// TwoFARequired reports whether any second factor is enabled for the user.
func (u *User) TwoFARequired() bool {
	return u.TotpEnabled || u.SmsEnabled
}

// UserUpdate carries a partial profile update. Nil fields are left untouched.
type UserUpdate struct {
	PhoneNumber *string
	Bio         *string
	TotpEnabled *bool
	SmsEnabled  *bool
}
