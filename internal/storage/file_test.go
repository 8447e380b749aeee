package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(dir, "test-secret")
	require.NoError(t, err)

	require.NoError(t, store.Set(KeyAuth, []byte(`{"isLogged":true}`)))

	value, err := store.Get(KeyAuth)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"isLogged":true}`), value)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(dir, "test-secret")
	require.NoError(t, err)
	require.NoError(t, store.Set(LastSeenKey("user-1"), []byte("2026-08-01T10:00:00Z")))

	reopened, err := NewFileStore(dir, "test-secret")
	require.NoError(t, err)

	value, err := reopened.Get(LastSeenKey("user-1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2026-08-01T10:00:00Z"), value)
}

func TestFileStore_WrongSecretFails(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(dir, "right-secret")
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyAuth, []byte("tokens")))

	_, err = NewFileStore(dir, "wrong-secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decrypt")
}

func TestFileStore_MissingKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "secret")
	require.NoError(t, err)

	_, err = store.Get("absent")
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestFileStore_Delete(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "secret")
	require.NoError(t, err)

	require.NoError(t, store.Set(KeyAuth, []byte("x")))
	require.NoError(t, store.Delete(KeyAuth))

	_, err = store.Get(KeyAuth)
	assert.True(t, errors.Is(err, ErrKeyNotFound))

	// Deleting an absent key is not an error
	assert.NoError(t, store.Delete(KeyAuth))
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	store := NewMemoryStore()

	original := []byte("abc")
	require.NoError(t, store.Set("k", original))
	original[0] = 'z'

	value, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), value)
}
