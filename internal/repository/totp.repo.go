package repository

import (
	"context"
	"errors"

	"twofa-service/internal/domain"
	"twofa-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TotpRepository struct {
	db *pgxpool.Pool
}

func NewTotpRepository(db *pgxpool.Pool) *TotpRepository {
	return &TotpRepository{db: db}
}

// UpsertSecret stores a fresh secret and replaces all backup codes in one
// transaction. A repeated setup call overwrites the prior unconfirmed secret.
func (r *TotpRepository) UpsertSecret(ctx context.Context, userID int64, secret string, codeHashes []string) (*domain.TotpSecret, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var rec domain.TotpSecret
	err = tx.QueryRow(ctx, `
		INSERT INTO totp_secrets (user_id, secret)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET secret = EXCLUDED.secret, updated_at = NOW()
		RETURNING id, user_id, secret, created_at, updated_at
	`, userID, secret).Scan(&rec.ID, &rec.UserID, &rec.Secret, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `DELETE FROM totp_backup_codes WHERE secret_id = $1`, rec.ID)
	if err != nil {
		return nil, err
	}

	for _, h := range codeHashes {
		_, err = tx.Exec(ctx, `
			INSERT INTO totp_backup_codes (secret_id, code_hash)
			VALUES ($1, $2)
		`, rec.ID, h)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *TotpRepository) GetSecret(ctx context.Context, userID int64) (*domain.TotpSecret, error) {
	var rec domain.TotpSecret
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, secret, created_at, updated_at
		FROM totp_secrets
		WHERE user_id = $1
		LIMIT 1
	`, userID).Scan(&rec.ID, &rec.UserID, &rec.Secret, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrTotpNotConfigured
		}
		return nil, err
	}
	return &rec, nil
}

func (r *TotpRepository) GetUnusedBackupCodes(ctx context.Context, secretID int64) ([]domain.TotpBackupCode, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, secret_id, code_hash, is_used, created_at, used_at
		FROM totp_backup_codes
		WHERE secret_id = $1 AND is_used = FALSE
	`, secretID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []domain.TotpBackupCode
	for rows.Next() {
		var c domain.TotpBackupCode
		if err := rows.Scan(&c.ID, &c.SecretID, &c.CodeHash, &c.IsUsed, &c.CreatedAt, &c.UsedAt); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// MarkBackupCodeUsed consumes a backup code. Zero rows affected means the
// code was already spent by a concurrent verification.
func (r *TotpRepository) MarkBackupCodeUsed(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE totp_backup_codes
		SET is_used = TRUE, used_at = NOW()
		WHERE id = $1 AND is_used = FALSE
	`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *TotpRepository) ReplaceBackupCodes(ctx context.Context, secretID int64, codeHashes []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM totp_backup_codes WHERE secret_id = $1`, secretID)
	if err != nil {
		return err
	}

	for _, h := range codeHashes {
		_, err = tx.Exec(ctx, `
			INSERT INTO totp_backup_codes (secret_id, code_hash)
			VALUES ($1, $2)
		`, secretID, h)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// EnableTotp flips the user flag after a successful confirmation code check.
func (r *TotpRepository) EnableTotp(ctx context.Context, userID int64) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE users SET totp_enabled = TRUE, updated_at = NOW() WHERE id = $1
	`, userID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrUserNotFound
	}
	return nil
}

// DeleteSecret removes the secret, its backup codes, and clears the user
// flag in a single transaction. The flag and the secret never diverge.
func (r *TotpRepository) DeleteSecret(ctx context.Context, userID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM totp_backup_codes
		WHERE secret_id IN (SELECT id FROM totp_secrets WHERE user_id = $1)
	`, userID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `DELETE FROM totp_secrets WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET totp_enabled = FALSE, updated_at = NOW() WHERE id = $1
	`, userID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}
