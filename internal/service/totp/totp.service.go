package totp

import (
	"context"
	"errors"

	"twofa-service/internal/domain"
	"twofa-service/pkg/xerrors"

	"github.com/pquerna/otp"
	totplib "github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

const backupCodeCount = 6

// SecretStore is the slice of the credential store that owns TOTP secrets
// and backup codes.
type SecretStore interface {
	UpsertSecret(ctx context.Context, userID int64, secret string, codeHashes []string) (*domain.TotpSecret, error)
	GetSecret(ctx context.Context, userID int64) (*domain.TotpSecret, error)
	GetUnusedBackupCodes(ctx context.Context, secretID int64) ([]domain.TotpBackupCode, error)
	MarkBackupCodeUsed(ctx context.Context, id int64) error
	ReplaceBackupCodes(ctx context.Context, secretID int64, codeHashes []string) error
	EnableTotp(ctx context.Context, userID int64) error
	DeleteSecret(ctx context.Context, userID int64) error
}

type UserStore interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

type Service struct {
	repo   SecretStore
	users  UserStore
	issuer string
}

func NewService(repo SecretStore, users UserStore, issuer string) *Service {
	return &Service{repo: repo, users: users, issuer: issuer}
}

// Setup generates a fresh secret, QR code, and backup codes. The secret is
// stored immediately but stays inactive until VerifyAndEnable confirms it;
// calling Setup again replaces the unconfirmed secret. Plaintext backup
// codes are returned exactly once.
func (s *Service) Setup(ctx context.Context, userID int64, accountLabel string) (*domain.TotpSetup, error) {
	key, err := totplib.Generate(totplib.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountLabel,
		Period:      30,
		SecretSize:  20, // 160-bit secret, base32-encoded
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	qrImage, err := qrDataURL(key)
	if err != nil {
		return nil, err
	}

	plainCodes, codeHashes, err := generateBackupCodes(backupCodeCount)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.UpsertSecret(ctx, userID, key.Secret(), codeHashes); err != nil {
		return nil, err
	}

	return &domain.TotpSetup{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		QRImage:         qrImage,
		BackupCodes:     plainCodes,
	}, nil
}

// VerifyAndEnable confirms the stored secret with a current code and flips
// totp_enabled. A failed check leaves the flag untouched.
func (s *Service) VerifyAndEnable(ctx context.Context, userID int64, code string) error {
	secret, err := s.repo.GetSecret(ctx, userID)
	if err != nil {
		return err
	}

	// 30-second step, ±1 step tolerance for clock skew.
	if !totplib.Validate(code, secret.Secret) {
		return xerrors.ErrInvalidCode
	}

	return s.repo.EnableTotp(ctx, userID)
}

// VerifyCode checks a login-time code: the time-step code first, then the
// unused backup codes. A matched backup code is consumed so it can never be
// replayed. Returns false when TOTP is not enabled for the user.
func (s *Service) VerifyCode(ctx context.Context, userID int64, code string) (bool, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, xerrors.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	if !user.TotpEnabled {
		return false, nil
	}

	secret, err := s.repo.GetSecret(ctx, userID)
	if err != nil {
		if errors.Is(err, xerrors.ErrTotpNotConfigured) {
			return false, nil
		}
		return false, err
	}

	if totplib.Validate(code, secret.Secret) {
		return true, nil
	}

	return s.verifyBackupCode(ctx, secret.ID, code)
}

func (s *Service) verifyBackupCode(ctx context.Context, secretID int64, code string) (bool, error) {
	codes, err := s.repo.GetUnusedBackupCodes(ctx, secretID)
	if err != nil {
		return false, err
	}

	for _, c := range codes {
		if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) == nil {
			if err := s.repo.MarkBackupCodeUsed(ctx, c.ID); err != nil {
				if errors.Is(err, xerrors.ErrNotFound) {
					// Lost the race against a concurrent verification.
					return false, nil
				}
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// Disable removes the secret, its backup codes, and the user flag together.
func (s *Service) Disable(ctx context.Context, userID int64) error {
	return s.repo.DeleteSecret(ctx, userID)
}

// RegenerateBackupCodes replaces all backup codes for a user with confirmed
// TOTP and returns the new plaintext codes once.
func (s *Service) RegenerateBackupCodes(ctx context.Context, userID int64) ([]string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.TotpEnabled {
		return nil, xerrors.ErrTotpNotConfigured
	}

	secret, err := s.repo.GetSecret(ctx, userID)
	if err != nil {
		return nil, err
	}

	plainCodes, codeHashes, err := generateBackupCodes(backupCodeCount)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceBackupCodes(ctx, secret.ID, codeHashes); err != nil {
		return nil, err
	}
	return plainCodes, nil
}
