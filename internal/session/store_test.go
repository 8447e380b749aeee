package session

import (
	"testing"

	"bazario-admin/internal/domain"
	"bazario-admin/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *domain.User {
	return &domain.User{ID: "user-1", Email: "admin@example.com", Role: "admin"}
}

func TestStore_SignInAndRestore(t *testing.T) {
	backing := storage.NewMemoryStore()

	store, err := NewStore(backing)
	require.NoError(t, err)
	assert.False(t, store.IsLogged())

	tokens := domain.Tokens{AccessToken: "access-1", RefreshToken: "refresh-1"}
	require.NoError(t, store.SignIn(testUser(), tokens))

	assert.True(t, store.IsLogged())
	assert.Equal(t, "access-1", store.AccessToken())

	// A second store over the same backing restores the session
	restored, err := NewStore(backing)
	require.NoError(t, err)
	assert.True(t, restored.IsLogged())
	assert.Equal(t, "refresh-1", restored.RefreshToken())
	assert.Equal(t, "user-1", restored.Current().User.ID)
}

func TestStore_SetTokensKeepsUser(t *testing.T) {
	store, err := NewStore(storage.NewMemoryStore())
	require.NoError(t, err)

	require.NoError(t, store.SignIn(testUser(), domain.Tokens{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, store.SetTokens(domain.Tokens{AccessToken: "a2", RefreshToken: "r2"}))

	current := store.Current()
	assert.Equal(t, "a2", current.Tokens.AccessToken)
	assert.Equal(t, "user-1", current.User.ID)
	assert.True(t, current.IsLogged)
}

func TestStore_ClearRemovesPersistedSession(t *testing.T) {
	backing := storage.NewMemoryStore()
	store, err := NewStore(backing)
	require.NoError(t, err)

	require.NoError(t, store.SignIn(testUser(), domain.Tokens{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, store.Clear())

	assert.False(t, store.IsLogged())
	_, err = backing.Get(storage.KeyAuth)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestStore_WatchersSeeEveryMutation(t *testing.T) {
	store, err := NewStore(storage.NewMemoryStore())
	require.NoError(t, err)

	var seen []bool
	unwatch := store.Watch(func(s *domain.Session) {
		seen = append(seen, s.IsLogged)
	})

	require.NoError(t, store.SignIn(testUser(), domain.Tokens{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, store.Clear())

	assert.Equal(t, []bool{true, false}, seen)

	unwatch()
	require.NoError(t, store.SignIn(testUser(), domain.Tokens{AccessToken: "a", RefreshToken: "r"}))
	assert.Len(t, seen, 2)
}

func TestStore_CorruptPersistedSessionDiscarded(t *testing.T) {
	backing := storage.NewMemoryStore()
	require.NoError(t, backing.Set(storage.KeyAuth, []byte("{not json")))

	store, err := NewStore(backing)
	require.NoError(t, err)
	assert.False(t, store.IsLogged())
}

func TestStore_UserIDSafeWithoutSession(t *testing.T) {
	store, err := NewStore(storage.NewMemoryStore())
	require.NoError(t, err)

	// A daemon running without credentials wires components off a
	// sessionless store; reading the user id must not dereference a nil
	// user.
	assert.Equal(t, "", store.UserID())

	require.NoError(t, store.SignIn(testUser(), domain.Tokens{AccessToken: "a", RefreshToken: "r"}))
	assert.Equal(t, "user-1", store.UserID())

	require.NoError(t, store.Clear())
	assert.Equal(t, "", store.UserID())
}
