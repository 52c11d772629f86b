package repository

import (
	"context"
	"errors"
	"time"

	"twofa-service/internal/domain"
	"twofa-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SmsCodeRepository struct {
	db *pgxpool.Pool
}

func NewSmsCodeRepository(db *pgxpool.Pool) *SmsCodeRepository {
	return &SmsCodeRepository{db: db}
}

const smsCodeColumns = `id, user_id, code, expires_at, used, created_at`

// IssueCode marks every unused code for the user as used and inserts the new
// one in the same transaction, so a stale code can never stay valid alongside
// a fresh one.
func (r *SmsCodeRepository) IssueCode(ctx context.Context, userID int64, code string, expiresAt time.Time) (*domain.SmsCode, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE sms_codes SET used = TRUE WHERE user_id = $1 AND used = FALSE
	`, userID)
	if err != nil {
		return nil, err
	}

	var rec domain.SmsCode
	err = tx.QueryRow(ctx, `
		INSERT INTO sms_codes (user_id, code, expires_at)
		VALUES ($1, $2, $3)
		RETURNING `+smsCodeColumns+`
	`, userID, code, expiresAt).Scan(&rec.ID, &rec.UserID, &rec.Code, &rec.ExpiresAt, &rec.Used, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *SmsCodeRepository) FindActive(ctx context.Context, userID int64, code string) (*domain.SmsCode, error) {
	var rec domain.SmsCode
	err := r.db.QueryRow(ctx, `
		SELECT `+smsCodeColumns+`
		FROM sms_codes
		WHERE user_id = $1 AND code = $2 AND used = FALSE AND expires_at > NOW()
		LIMIT 1
	`, userID, code).Scan(&rec.ID, &rec.UserID, &rec.Code, &rec.ExpiresAt, &rec.Used, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// MarkUsed consumes a code. Zero rows affected means it was already consumed.
func (r *SmsCodeRepository) MarkUsed(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE sms_codes SET used = TRUE WHERE id = $1 AND used = FALSE
	`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *SmsCodeRepository) DeleteForUser(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sms_codes WHERE user_id = $1`, userID)
	return err
}

// DeleteExpired removes rows past their expiry regardless of used state.
// Driven by the maintenance sweep, never by a user request.
func (r *SmsCodeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM sms_codes WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}
