package auth

import (
	"context"
	"errors"

	"twofa-service/internal/domain"
	"twofa-service/pkg/utils"
	"twofa-service/pkg/xerrors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt work factor, fixed at setup.
const passwordCost = 10

// UserStore is the slice of the credential store the authenticator needs.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	CreateUser(ctx context.Context, username, email, passwordHash string, phoneNumber *string) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) (*domain.User, error)
}

type Service struct {
	users UserStore
}

func NewService(users UserStore) *Service {
	return &Service{users: users}
}

// dummyHash keeps the bcrypt cost on the unknown-username path so lookups
// and mismatches are not distinguishable by timing.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Authenticate verifies a username/password pair. Unknown usernames and
// wrong passwords both come back as ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, xerrors.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, xerrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, xerrors.ErrInvalidCredentials
	}

	return user, nil
}

// Register creates a new user. Email/username uniqueness is enforced by the
// store in one statement, so concurrent registrations cannot both succeed.
// The plaintext password is hashed before it leaves this function and is
// never logged.
func (s *Service) Register(ctx context.Context, email, username, password string, phoneNumber *string) (*domain.UserProfile, error) {
	switch {
	case email == "":
		return nil, xerrors.ErrEmailRequired
	case username == "":
		return nil, xerrors.ErrUsernameRequired
	case password == "":
		return nil, xerrors.ErrPasswordRequired
	}

	if !utils.ValidateEmail(email) {
		return nil, xerrors.ErrInvalidEmailFormat
	}
	if !utils.ValidatePassword(password) {
		return nil, xerrors.ErrInvalidRequest
	}
	if phoneNumber != nil && *phoneNumber != "" && !utils.ValidatePhone(*phoneNumber) {
		return nil, xerrors.ErrInvalidPhoneFormat
	}
	if phoneNumber != nil && *phoneNumber == "" {
		phoneNumber = nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, username, email, string(hashed), phoneNumber)
	if err != nil {
		return nil, err
	}

	return user.Profile(), nil
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

// UpdateProfile applies phone number and bio changes. The phone number is
// format-checked before it reaches the store.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, phoneNumber, bio *string) (*domain.UserProfile, error) {
	if phoneNumber != nil && !utils.ValidatePhone(*phoneNumber) {
		return nil, xerrors.ErrInvalidPhoneFormat
	}

	user, err := s.users.UpdateUser(ctx, userID, domain.UserUpdate{
		PhoneNumber: phoneNumber,
		Bio:         bio,
	})
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}
