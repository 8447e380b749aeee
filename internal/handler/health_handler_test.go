package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bazario-admin/internal/domain"
	"bazario-admin/internal/session"
	"bazario-admin/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRelay struct {
	closed bool
}

func (s *stubRelay) IsClosed() bool { return s.closed }

func newLoggedSession(t *testing.T) *session.Store {
	t.Helper()
	sess, err := session.NewStore(storage.NewMemoryStore())
	require.NoError(t, err)
	require.NoError(t, sess.SignIn(
		&domain.User{ID: "adm-1", Email: "admin@example.com", Role: "admin"},
		domain.Tokens{AccessToken: "at", RefreshToken: "rt"},
	))
	return sess
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestReady(t *testing.T) {
	t.Run("ready_with_optional_deps_disabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Ready(nil, nil, newLoggedSession(t))(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ready", body["status"])
	})

	t.Run("not_ready_without_session", func(t *testing.T) {
		sess, err := session.NewStore(storage.NewMemoryStore())
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		Ready(nil, nil, sess)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("not_ready_when_relay_closed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Ready(nil, &stubRelay{closed: true}, newLoggedSession(t))(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "not_ready", body["status"])
	})
}
