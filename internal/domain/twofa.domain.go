package domain

import "time"

// Method names accepted by the verify endpoints.
const (
	MethodTOTP = "totp"
	MethodSMS  = "sms"
)

// TotpSecret is the stored TOTP configuration for a user. The secret is not
// active until the user confirms it with a valid code; the users.totp_enabled
// flag tracks confirmation.
type TotpSecret struct {
	ID        int64
	UserID    int64
	Secret    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TotpBackupCode struct {
	ID        int64
	SecretID  int64
	CodeHash  string
	IsUsed    bool
	CreatedAt time.Time
	UsedAt    *time.Time
}

// TotpSetup is returned from setup exactly once; plaintext backup codes are
// never retrievable again.
type TotpSetup struct {
	Secret          string   `json:"secret"`
	ProvisioningURI string   `json:"provisioning_uri"`
	QRImage         string   `json:"qr_image"`
	BackupCodes     []string `json:"backup_codes"`
}
