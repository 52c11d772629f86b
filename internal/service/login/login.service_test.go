package login

import (
	"context"
	"errors"
	"testing"
	"time"

	"twofa-service/internal/domain"
	"twofa-service/internal/service/auth"
	"twofa-service/internal/service/smscode"
	"twofa-service/internal/service/totp"
	"twofa-service/internal/session"
	"twofa-service/pkg/xerrors"

	totplib "github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory credential store covering the slices the
// password authenticator and the TOTP manager need.
type fakeBackend struct {
	users       map[int64]*domain.User
	secret      *domain.TotpSecret
	backupCodes []domain.TotpBackupCode
	nextID      int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{users: make(map[int64]*domain.User)}
}

func (f *fakeBackend) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, xerrors.ErrUserNotFound
}

func (f *fakeBackend) FindByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, xerrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeBackend) CreateUser(_ context.Context, username, email, passwordHash string, phoneNumber *string) (*domain.User, error) {
	f.nextID++
	u := &domain.User{
		ID:           f.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		PhoneNumber:  phoneNumber,
	}
	f.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeBackend) UpdateUser(_ context.Context, id int64, upd domain.UserUpdate) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, xerrors.ErrUserNotFound
	}
	if upd.PhoneNumber != nil {
		u.PhoneNumber = upd.PhoneNumber
	}
	if upd.Bio != nil {
		u.Bio = upd.Bio
	}
	if upd.TotpEnabled != nil {
		u.TotpEnabled = *upd.TotpEnabled
	}
	if upd.SmsEnabled != nil {
		u.SmsEnabled = *upd.SmsEnabled
	}
	cp := *u
	return &cp, nil
}

func (f *fakeBackend) UpsertSecret(_ context.Context, userID int64, secret string, codeHashes []string) (*domain.TotpSecret, error) {
	f.nextID++
	f.secret = &domain.TotpSecret{ID: f.nextID, UserID: userID, Secret: secret}
	f.backupCodes = nil
	for _, h := range codeHashes {
		f.nextID++
		f.backupCodes = append(f.backupCodes, domain.TotpBackupCode{ID: f.nextID, SecretID: f.secret.ID, CodeHash: h})
	}
	cp := *f.secret
	return &cp, nil
}

func (f *fakeBackend) GetSecret(_ context.Context, userID int64) (*domain.TotpSecret, error) {
	if f.secret == nil || f.secret.UserID != userID {
		return nil, xerrors.ErrTotpNotConfigured
	}
	cp := *f.secret
	return &cp, nil
}

func (f *fakeBackend) GetUnusedBackupCodes(_ context.Context, secretID int64) ([]domain.TotpBackupCode, error) {
	var out []domain.TotpBackupCode
	for _, c := range f.backupCodes {
		if c.SecretID == secretID && !c.IsUsed {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeBackend) MarkBackupCodeUsed(_ context.Context, id int64) error {
	for i := range f.backupCodes {
		if f.backupCodes[i].ID == id && !f.backupCodes[i].IsUsed {
			f.backupCodes[i].IsUsed = true
			return nil
		}
	}
	return xerrors.ErrNotFound
}

func (f *fakeBackend) ReplaceBackupCodes(_ context.Context, secretID int64, codeHashes []string) error {
	f.backupCodes = nil
	for _, h := range codeHashes {
		f.nextID++
		f.backupCodes = append(f.backupCodes, domain.TotpBackupCode{ID: f.nextID, SecretID: secretID, CodeHash: h})
	}
	return nil
}

func (f *fakeBackend) EnableTotp(_ context.Context, userID int64) error {
	u, ok := f.users[userID]
	if !ok {
		return xerrors.ErrUserNotFound
	}
	u.TotpEnabled = true
	return nil
}

func (f *fakeBackend) DeleteSecret(_ context.Context, userID int64) error {
	f.secret = nil
	f.backupCodes = nil
	if u, ok := f.users[userID]; ok {
		u.TotpEnabled = false
	}
	return nil
}

// fakeSms verifies against a fixed code and records dispatches.
type fakeSms struct {
	code    string
	sent    []string // purposes, in order
	sendErr error
}

func (f *fakeSms) VerifyCode(_ context.Context, _ int64, code string) (bool, error) {
	return f.code != "" && code == f.code, nil
}

func (f *fakeSms) SendCode(_ context.Context, _ int64, purpose string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, purpose)
	return nil
}

type fixture struct {
	backend  *fakeBackend
	authSvc  *auth.Service
	totpSvc  *totp.Service
	sms      *fakeSms
	sessions session.Store
	coord    *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := newFakeBackend()
	authSvc := auth.NewService(backend)
	totpSvc := totp.NewService(backend, backend, "twofa-service")
	sms := &fakeSms{}
	sessions := session.NewMemoryStore()
	return &fixture{
		backend:  backend,
		authSvc:  authSvc,
		totpSvc:  totpSvc,
		sms:      sms,
		sessions: sessions,
		coord:    NewCoordinator(authSvc, totpSvc, sms, backend, sessions),
	}
}

func (f *fixture) register(t *testing.T, username, password string) *domain.User {
	t.Helper()
	profile, err := f.authSvc.Register(context.Background(), username+"@example.com", username, password, nil)
	require.NoError(t, err)
	return f.backend.users[profile.ID]
}

func (f *fixture) newSession(t *testing.T) *domain.Session {
	t.Helper()
	sess, err := f.sessions.Create(context.Background())
	require.NoError(t, err)
	return sess
}

// enableTotpFor runs the real setup-and-confirm flow for the user.
func (f *fixture) enableTotpFor(t *testing.T, userID int64) *domain.TotpSetup {
	t.Helper()
	setup, err := f.totpSvc.Setup(context.Background(), userID, "test")
	require.NoError(t, err)
	code, err := totplib.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.totpSvc.VerifyAndEnable(context.Background(), userID, code))
	return setup
}

func TestLogin_No2FA(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "alice", "pw123456")
	sess := f.newSession(t)
	ctx := context.Background()

	res, err := f.coord.Login(ctx, sess, "alice", "pw123456")
	require.NoError(t, err)
	require.False(t, res.Requires2FA)
	require.NotNil(t, res.User)
	require.Equal(t, user.ID, res.User.ID)

	require.True(t, sess.Authenticated())
	require.False(t, sess.PendingSecondFactor())

	// The state survived the round trip through the store.
	stored, err := f.sessions.Get(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, stored.AuthenticatedUserID)
	require.True(t, stored.Authenticated())
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "pw123456")
	sess := f.newSession(t)

	_, err := f.coord.Login(context.Background(), sess, "alice", "wrongpass")
	require.ErrorIs(t, err, xerrors.ErrInvalidCredentials)
	require.False(t, sess.Authenticated())
	require.False(t, sess.PendingSecondFactor())
}

func TestLogin_TotpPending(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "alice", "pw123456")
	f.enableTotpFor(t, user.ID)
	sess := f.newSession(t)

	res, err := f.coord.Login(context.Background(), sess, "alice", "pw123456")
	require.NoError(t, err)
	require.True(t, res.Requires2FA)
	require.Nil(t, res.User)
	require.True(t, res.Methods.TOTP)
	require.False(t, res.Methods.SMS)

	require.False(t, sess.Authenticated())
	require.True(t, sess.PendingSecondFactor())
	require.Equal(t, user.ID, sess.PendingUserID)
	require.Zero(t, sess.AuthenticatedUserID)
}

func TestLogin_SmsAutoDispatch(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "alice", "pw123456")
	user.SmsEnabled = true
	sess := f.newSession(t)

	res, err := f.coord.Login(context.Background(), sess, "alice", "pw123456")
	require.NoError(t, err)
	require.True(t, res.Requires2FA)
	require.True(t, res.Methods.SMS)
	require.Equal(t, []string{smscode.PurposeLogin}, f.sms.sent)
}

func TestLogin_SmsDispatchFailureIsNonFatal(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "alice", "pw123456")
	user.SmsEnabled = true
	f.sms.sendErr = errors.New("carrier down")
	sess := f.newSession(t)

	res, err := f.coord.Login(context.Background(), sess, "alice", "pw123456")
	require.NoError(t, err)
	require.True(t, res.Requires2FA)
	require.True(t, sess.PendingSecondFactor())
}

func TestVerifySecondFactor_Totp(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "alice", "pw123456")
	setup := f.enableTotpFor(t, user.ID)
	sess := f.newSession(t)
	ctx := context.Background()

	_, err := f.coord.Login(ctx, sess, "alice", "pw123456")
	require.NoError(t, err)

	// A bad code keeps the session pending.
	_, err = f.coord.VerifySecondFactor(ctx, sess, domain.MethodTOTP, "000000")
	require.ErrorIs(t, err, xerrors.ErrInvalidCode)
	require.True(t, sess.PendingSecondFactor())
	require.False(t, sess.Authenticated())

	code, err := totplib.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	res, err := f.coord.VerifySecondFactor(ctx, sess, domain.MethodTOTP, code)
	require.NoError(t, err)
	require.Equal(t, user.ID, res.User.ID)

	require.True(t, sess.Authenticated())
	require.False(t, sess.PendingSecondFactor())
	require.Zero(t, sess.PendingUserID)

	stored, err := f.sessions.Get(ctx, sess.Token)
	require.NoError(t, err)
	require.True(t, stored.Authenticated())
}

func TestVerifySecondFactor_BackupCode(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "alice", "pw123456")
	setup := f.enableTotpFor(t, user.ID)
	ctx := context.Background()

	sess := f.newSession(t)
	_, err := f.coord.Login(ctx, sess, "alice", "pw123456")
	require.NoError(t, err)

	_, err = f.coord.VerifySecondFactor(ctx, sess, domain.MethodTOTP, setup.BackupCodes[0])
	require.NoError(t, err)
	require.True(t, sess.Authenticated())

	// The same backup code cannot complete a second login.
	sess2 := f.newSession(t)
	_, err = f.coord.Login(ctx, sess2, "alice", "pw123456")
	require.NoError(t, err)
	_, err = f.coord.VerifySecondFactor(ctx, sess2, domain.MethodTOTP, setup.BackupCodes[0])
	require.ErrorIs(t, err, xerrors.ErrInvalidCode)
}

func TestVerifySecondFactor_Sms(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "alice", "pw123456")
	user.SmsEnabled = true
	f.sms.code = "424242"
	sess := f.newSession(t)
	ctx := context.Background()

	_, err := f.coord.Login(ctx, sess, "alice", "pw123456")
	require.NoError(t, err)

	res, err := f.coord.VerifySecondFactor(ctx, sess, domain.MethodSMS, "424242")
	require.NoError(t, err)
	require.Equal(t, user.ID, res.User.ID)
	require.True(t, sess.Authenticated())
}

func TestVerifySecondFactor_NoPendingLogin(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)

	_, err := f.coord.VerifySecondFactor(context.Background(), sess, domain.MethodTOTP, "123456")
	require.ErrorIs(t, err, xerrors.ErrNoPendingVerification)
}

func TestVerifySecondFactor_UnsupportedMethod(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "alice", "pw123456")
	f.enableTotpFor(t, user.ID)
	sess := f.newSession(t)
	ctx := context.Background()

	_, err := f.coord.Login(ctx, sess, "alice", "pw123456")
	require.NoError(t, err)

	_, err = f.coord.VerifySecondFactor(ctx, sess, "email", "123456")
	require.ErrorIs(t, err, xerrors.ErrUnsupported2FAMethod)
	require.True(t, sess.PendingSecondFactor())
}

func TestResendCode(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "alice", "pw123456")
	user.SmsEnabled = true
	sess := f.newSession(t)
	ctx := context.Background()

	// Anonymous session has nothing to resend.
	require.ErrorIs(t, f.coord.ResendCode(ctx, sess), xerrors.ErrNoPendingVerification)

	_, err := f.coord.Login(ctx, sess, "alice", "pw123456")
	require.NoError(t, err)
	require.NoError(t, f.coord.ResendCode(ctx, sess))
	require.Equal(t, []string{smscode.PurposeLogin, smscode.PurposeLogin}, f.sms.sent)

	// Authenticated sessions resend for SMS setup instead.
	f.sms.code = "424242"
	_, err = f.coord.VerifySecondFactor(ctx, sess, domain.MethodSMS, "424242")
	require.NoError(t, err)
	require.NoError(t, f.coord.ResendCode(ctx, sess))
	require.Equal(t, smscode.PurposeEnableSMS, f.sms.sent[len(f.sms.sent)-1])
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "pw123456")
	sess := f.newSession(t)
	ctx := context.Background()

	_, err := f.coord.Login(ctx, sess, "alice", "pw123456")
	require.NoError(t, err)

	require.NoError(t, f.coord.Logout(ctx, sess))
	_, err = f.sessions.Get(ctx, sess.Token)
	require.ErrorIs(t, err, xerrors.ErrSessionNotFound)
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "alice", "pw123456")
	f.enableTotpFor(t, user.ID)
	sess := f.newSession(t)
	ctx := context.Background()

	_, err := f.coord.CurrentUser(ctx, sess)
	require.ErrorIs(t, err, xerrors.ErrUnauthorized)

	_, err = f.coord.Login(ctx, sess, "alice", "pw123456")
	require.NoError(t, err)

	// Pending sessions do not resolve to a principal.
	_, err = f.coord.CurrentUser(ctx, sess)
	require.ErrorIs(t, err, xerrors.ErrUnauthorized)
}
