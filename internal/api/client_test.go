package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bazario-admin/internal/domain"
	"bazario-admin/internal/session"
	"bazario-admin/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (r *recordAlerter) Alert(level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, level+": "+message)
}

func (r *recordAlerter) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.alerts...)
}

func newTestSession(t *testing.T, access, refresh string) *session.Store {
	t.Helper()
	sess, err := session.NewStore(storage.NewMemoryStore())
	require.NoError(t, err)
	if access != "" {
		user := &domain.User{ID: "user-1", Email: "admin@example.com"}
		require.NoError(t, sess.SignIn(user, domain.Tokens{AccessToken: access, RefreshToken: refresh}))
	}
	return sess
}

func newTestClient(baseURL string, sess *session.Store, alerts Alerter) *Client {
	return NewClient(Options{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		RequestTimeout: 5 * time.Second,
		Alerter:        alerts,
	}, sess)
}

func TestClient_PublicEndpointBypass(t *testing.T) {
	var authHeaders sync.Map
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeaders.Store(r.Method+" "+r.URL.Path, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	// Stale session exists; public endpoints must still go out bare.
	sess := newTestSession(t, "stale-token", "stale-refresh")
	client := newTestClient(server.URL, sess, nil)

	require.NoError(t, client.Post(context.Background(), "/auth/signin", map[string]string{}, nil))
	require.NoError(t, client.Get(context.Background(), "/tender", nil))
	require.NoError(t, client.Post(context.Background(), "/tender", map[string]string{}, nil))

	header, _ := authHeaders.Load("POST /auth/signin")
	assert.Empty(t, header)

	header, _ = authHeaders.Load("GET /tender")
	assert.Empty(t, header)

	header, _ = authHeaders.Load("POST /tender")
	assert.Equal(t, "Bearer stale-token", header)
}

func TestClient_AttachesAPIKeyAndLanguage(t *testing.T) {
	var apiKey, lang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("x-access-key")
		lang = r.Header.Get("Accept-Language")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	sess, err := session.NewStore(storage.NewMemoryStore())
	require.NoError(t, err)
	user := &domain.User{ID: "user-1", Language: "ar"}
	require.NoError(t, sess.SignIn(user, domain.Tokens{AccessToken: "a", RefreshToken: "r"}))

	client := newTestClient(server.URL, sess, nil)
	require.NoError(t, client.Get(context.Background(), "/notifications", nil))

	assert.Equal(t, "test-key", apiKey)
	assert.Equal(t, "ar", lang)
}

func TestClient_SingleFlightRefresh(t *testing.T) {
	var refreshCalls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			refreshCalls.Add(1)
			// Hold the flight open so every concurrent 401 joins it
			time.Sleep(150 * time.Millisecond)
			w.Write([]byte(`{"tokens":{"accessToken":"fresh-token","refreshToken":"fresh-refresh"}}`))
		default:
			if r.Header.Get("Authorization") != "Bearer fresh-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	sess := newTestSession(t, "expired-token", "valid-refresh")
	client := newTestClient(server.URL, sess, &recordAlerter{})

	const concurrent = 8
	var wg sync.WaitGroup
	errs := make([]error, concurrent)
	start := make(chan struct{})

	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = client.Get(context.Background(), "/notifications", nil)
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "request %d", i)
	}
	assert.Equal(t, int32(1), refreshCalls.Load(), "refresh endpoint must be called exactly once")
	assert.Equal(t, "fresh-token", sess.AccessToken())
	assert.Equal(t, "fresh-refresh", sess.RefreshToken())
}

func TestClient_RefreshFailureClearsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	alerts := &recordAlerter{}
	sess := newTestSession(t, "expired", "also-expired")

	var expired atomic.Bool
	client := NewClient(Options{
		BaseURL:          server.URL,
		RequestTimeout:   5 * time.Second,
		Alerter:          alerts,
		OnSessionExpired: func() { expired.Store(true) },
	}, sess)

	err := client.Get(context.Background(), "/notifications", nil)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.False(t, sess.IsLogged())
	assert.True(t, expired.Load())

	found := false
	for _, a := range alerts.all() {
		if strings.Contains(a, "session has expired") {
			found = true
		}
	}
	assert.True(t, found, "expected a session-expired alert, got %v", alerts.all())
}

func TestClient_RefreshFailureInAuthFlowKeepsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	alerts := &recordAlerter{}
	sess := newTestSession(t, "expired", "also-expired")
	client := newTestClient(server.URL, sess, alerts)

	err := client.Get(WithAuthFlow(context.Background()), "/notifications", nil)
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.True(t, sess.IsLogged(), "auth-flow failures must not clear the session")
	assert.Empty(t, alerts.all())
}

func TestClient_BusinessErrorSurfacesServerMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"Start price must be positive"}`))
	}))
	defer server.Close()

	alerts := &recordAlerter{}
	client := newTestClient(server.URL, newTestSession(t, "a", "r"), alerts)

	err := client.Post(context.Background(), "/tender", map[string]string{}, nil)
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "Start price must be positive", apiErr.Message)
	assert.Equal(t, []string{"error: Start price must be positive"}, alerts.all())
}

func TestClient_ServerErrorSurfacesGenericAlert(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	alerts := &recordAlerter{}
	client := newTestClient(server.URL, newTestSession(t, "a", "r"), alerts)

	err := client.Get(context.Background(), "/notifications", nil)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	require.Len(t, alerts.all(), 1)
	assert.Contains(t, alerts.all()[0], "Something went wrong")
}

func TestClient_TermsNotFoundIsSilent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	alerts := &recordAlerter{}
	client := newTestClient(server.URL, newTestSession(t, "", ""), alerts)

	terms, err := client.Terms.Latest(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, terms)
	assert.Empty(t, alerts.all(), "terms 404 is an expected empty state, not an alert")
}

func TestClient_NotFoundElsewhereAlerts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Tender not found"}`))
	}))
	defer server.Close()

	alerts := &recordAlerter{}
	client := newTestClient(server.URL, newTestSession(t, "a", "r"), alerts)

	_, err := client.Tenders.Get(context.Background(), "t-404")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, []string{"error: Tender not found"}, alerts.all())
}

func TestClient_TimeoutIsLogOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	alerts := &recordAlerter{}
	sess := newTestSession(t, "a", "r")
	client := NewClient(Options{
		BaseURL:        server.URL,
		RequestTimeout: 50 * time.Millisecond,
		Alerter:        alerts,
	}, sess)

	err := client.Get(context.Background(), "/notifications", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Empty(t, alerts.all(), "timeouts are console-only")
}

func TestClient_NetworkErrorSuppressedOnPublicRoutes(t *testing.T) {
	alerts := &recordAlerter{}
	// Point at a closed port
	client := newTestClient("http://127.0.0.1:1", newTestSession(t, "", ""), alerts)

	err := client.Post(context.Background(), "/auth/signin", map[string]string{}, nil)
	require.Error(t, err)
	assert.Empty(t, alerts.all())

	err = client.Get(context.Background(), "/notifications", nil)
	require.Error(t, err)
	require.Len(t, alerts.all(), 1)
	assert.Contains(t, alerts.all()[0], "Network error")
}
