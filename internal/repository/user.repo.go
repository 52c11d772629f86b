package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"twofa-service/internal/domain"
	"twofa-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, phone_number, bio, totp_enabled, sms_enabled, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.PhoneNumber,
		&u.Bio,
		&u.TotpEnabled,
		&u.SmsEnabled,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1
		LIMIT 1
	`, username))
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
		LIMIT 1
	`, id))
}

// CreateUser inserts a new user. Email and username uniqueness is enforced by
// the database constraints, so the check-and-insert cannot race; a violation
// is mapped to the field-specific duplicate error.
func (r *UserRepository) CreateUser(ctx context.Context, username, email, passwordHash string, phoneNumber *string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, phone_number)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns+`
	`, username, email, passwordHash, phoneNumber))
	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return nil, mapUniqueViolation(err)
		}
		return nil, err
	}
	return user, nil
}

func mapUniqueViolation(err error) error {
	pgErr, _ := xerrors.ParsePGError(err)
	switch {
	case strings.Contains(pgErr.ConstraintName, "email"):
		return xerrors.ErrDuplicateEmail
	case strings.Contains(pgErr.ConstraintName, "username"):
		return xerrors.ErrDuplicateUsername
	default:
		return err
	}
}

// UpdateUser applies a partial update; nil fields are left untouched.
func (r *UserRepository) UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) (*domain.User, error) {
	sets := []string{}
	args := []interface{}{id}

	add := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.PhoneNumber != nil {
		add("phone_number", *upd.PhoneNumber)
	}
	if upd.Bio != nil {
		add("bio", *upd.Bio)
	}
	if upd.TotpEnabled != nil {
		add("totp_enabled", *upd.TotpEnabled)
	}
	if upd.SmsEnabled != nil {
		add("sms_enabled", *upd.SmsEnabled)
	}

	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}

	q := `
		UPDATE users
		SET ` + strings.Join(sets, ", ") + `, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUser(r.db.QueryRow(ctx, q, args...))
}
