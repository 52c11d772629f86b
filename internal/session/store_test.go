package session

import (
	"context"
	"testing"

	"twofa-service/pkg/xerrors"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := store.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	require.False(t, sess.Authenticated())
	require.False(t, sess.PendingSecondFactor())

	sess.PendingUserID = 42
	sess.Requires2FA = true
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, int64(42), got.PendingUserID)
	require.True(t, got.PendingSecondFactor())

	// Saved copies are snapshots, not shared pointers.
	got.PendingUserID = 99
	again, err := store.Get(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, int64(42), again.PendingUserID)

	require.NoError(t, store.Delete(ctx, sess.Token))
	_, err = store.Get(ctx, sess.Token)
	require.ErrorIs(t, err, xerrors.ErrSessionNotFound)
}

func TestMemoryStore_UnknownToken(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "no-such-token")
	require.ErrorIs(t, err, xerrors.ErrSessionNotFound)

	// Deleting a missing session is not an error.
	require.NoError(t, store.Delete(context.Background(), "no-such-token"))
}

func TestCreate_TokensAreUnique(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		sess, err := store.Create(ctx)
		require.NoError(t, err)
		require.False(t, seen[sess.Token])
		seen[sess.Token] = true
	}
}
