package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studia/internal/apperr"
	"studia/internal/backend"
	"studia/internal/storage"
)

const anonKey = "anon-key"

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *backend.SessionStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	kv, err := storage.Open(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	sessions := backend.NewSessionStore(kv)
	c, err := New(Options{
		URL:      srv.URL,
		AnonKey:  anonKey,
		Timeout:  5 * time.Second,
		Sessions: sessions,
	})
	require.NoError(t, err)
	return c, sessions
}

func signToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{AnonKey: anonKey, Sessions: &backend.SessionStore{}})
	assert.Error(t, err)
	_, err = New(Options{URL: "http://localhost", Sessions: &backend.SessionStore{}})
	assert.Error(t, err)
	_, err = New(Options{URL: "http://localhost", AnonKey: anonKey})
	assert.Error(t, err)
}

func TestSignInStoresSession(t *testing.T) {
	token := signToken(t, "u1", time.Now().Add(time.Hour))
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, anonKey, r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@example.com", body["email"])

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  token,
			"refresh_token": "refresh-1",
			"expires_in":    3600,
			"user":          map[string]any{"id": "u1", "email": "ana@example.com"},
		})
	})

	var events []backend.SessionEvent
	c.OnSessionChange(func(e backend.SessionEvent, _ *backend.Session) { events = append(events, e) })

	sess, err := c.SignIn(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.User.ID)
	assert.Equal(t, []backend.SessionEvent{backend.EventSignedIn}, events)

	got, err := c.Session(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, token, got.AccessToken)
}

func TestSignInBadCredentialsIsAuthError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid login credentials",
		})
	})

	_, err := c.SignIn(context.Background(), "ana@example.com", "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAuth)
	assert.Equal(t, "Invalid login credentials", apperr.Message(err))
}

func TestSessionRefreshesExpiredToken(t *testing.T) {
	fresh := signToken(t, "u1", time.Now().Add(time.Hour))
	c, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  fresh,
			"refresh_token": "refresh-2",
			"user":          map[string]any{"id": "u1"},
		})
	})
	require.NoError(t, sessions.Save(&backend.Session{
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
		User:         backend.User{ID: "u1"},
	}))

	sess, err := c.Session(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, fresh, sess.AccessToken)
	assert.Equal(t, "refresh-2", sess.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)
}

func TestRejectedRefreshSignsOut(t *testing.T) {
	c, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error_description": "Invalid Refresh Token"})
	})
	require.NoError(t, sessions.Save(&backend.Session{
		AccessToken:  "stale",
		RefreshToken: "revoked",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}))

	var events []backend.SessionEvent
	c.OnSessionChange(func(e backend.SessionEvent, _ *backend.Session) { events = append(events, e) })

	sess, err := c.Session(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Equal(t, []backend.SessionEvent{backend.EventSignedOut}, events)
}

func TestSelectBuildsFilters(t *testing.T) {
	token := signToken(t, "u1", time.Now().Add(time.Hour))
	c, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/activities", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "eq.u1", q.Get("user_id"))
		assert.Equal(t, "eq.false", q.Get("done"))
		assert.Equal(t, "due_date.asc", q.Get("order"))
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))

		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": "a1", "title": "Lista", "due_date": "2025-03-01"},
			{"id": "a2", "title": "Prova", "due_date": "2025-03-10"},
		})
	})
	require.NoError(t, sessions.Save(&backend.Session{AccessToken: token, ExpiresAt: time.Now().Add(time.Hour)}))

	var rows []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	err := c.Select(context.Background(), backend.TableActivities, backend.Query{
		Filters: []backend.Filter{backend.Eq("user_id", "u1"), backend.Eq("done", false)},
		Order:   &backend.Order{Column: "due_date", Ascending: true},
	}, &rows)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Lista", rows[0].Title)
}

func TestSelectOneEmpty(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, []any{})
	})
	var dest map[string]any
	found, err := c.SelectOne(context.Background(), backend.TableUsers, backend.Query{
		Filters: []backend.Filter{backend.Eq("id", "u1")},
	}, &dest)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInsertReturnsRepresentation(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body["id"] = "a1"
		writeJSON(w, http.StatusCreated, []map[string]any{body})
	})

	var got struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	err := c.Insert(context.Background(), backend.TableActivities, map[string]any{"title": "Prova"}, &got)
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, "Prova", got.Title)
}

func TestUpdateAndDeleteSendFilters(t *testing.T) {
	var methods []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		q := r.URL.Query()
		assert.Equal(t, "eq.a1", q.Get("id"))
		assert.Equal(t, "eq.u1", q.Get("user_id"))
		assert.Empty(t, q.Get("select"))
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()
	q := backend.ByID("a1", backend.Eq("user_id", "u1"))

	require.NoError(t, c.Update(ctx, backend.TableActivities, q, map[string]any{"done": true}))
	require.NoError(t, c.Delete(ctx, backend.TableActivities, q))
	assert.Equal(t, []string{http.MethodPatch, http.MethodDelete}, methods)

	assert.ErrorIs(t, c.Delete(ctx, backend.TableActivities, backend.Query{}), apperr.ErrBackend)
	assert.Len(t, methods, 2)
}

func TestUpsertMergesDuplicates(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/users", r.URL.Path)
		assert.Equal(t, "id", r.URL.Query().Get("on_conflict"))
		assert.Contains(t, r.Header.Get("Prefer"), "resolution=merge-duplicates")
		w.WriteHeader(http.StatusCreated)
	})
	err := c.Upsert(context.Background(), backend.TableUsers, map[string]any{"id": "u1", "name": "Ana"}, "id")
	require.NoError(t, err)
}

func TestUploadSendsRawBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/object/avatars/u1/1700000000000.png", r.URL.Path)
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		assert.Equal(t, "true", r.Header.Get("x-upsert"))
		data, _ := io.ReadAll(r.Body)
		assert.Equal(t, "png-bytes", string(data))
		writeJSON(w, http.StatusOK, map[string]string{"Key": "avatars/u1/1700000000000.png"})
	})

	err := c.Upload(context.Background(), backend.BucketAvatars, "u1/1700000000000.png", []byte("png-bytes"),
		backend.UploadOptions{ContentType: "image/png", Upsert: true})
	require.NoError(t, err)
	assert.Equal(t, c.baseURL+"/storage/v1/object/public/avatars/u1/1700000000000.png",
		c.PublicURL(backend.BucketAvatars, "u1/1700000000000.png"))
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		status int
		kind   error
	}{
		{http.StatusUnauthorized, apperr.ErrAuth},
		{http.StatusForbidden, apperr.ErrPermission},
		{http.StatusUnprocessableEntity, apperr.ErrValidation},
		{http.StatusInternalServerError, apperr.ErrBackend},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, map[string]string{"message": "nope"})
			})
			err := c.Delete(context.Background(), backend.TableActivities, backend.ByID("a1"))
			assert.ErrorIs(t, err, tc.kind)
			assert.Equal(t, "nope", apperr.Message(err))
		})
	}
}

func TestUnreachableServerIsBackendError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	kv, err := storage.Open(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer kv.Close()

	c, err := New(Options{URL: url, AnonKey: anonKey, Sessions: backend.NewSessionStore(kv)})
	require.NoError(t, err)
	err = c.ResetPassword(context.Background(), "ana@example.com")
	assert.ErrorIs(t, err, apperr.ErrBackend)
}

func TestSignOutClearsSessionEvenWhenServerFails(t *testing.T) {
	c, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	require.NoError(t, sessions.Save(&backend.Session{AccessToken: "t", ExpiresAt: time.Now().Add(time.Hour)}))

	require.NoError(t, c.SignOut(context.Background()))
	sess, err := sessions.Load()
	require.NoError(t, err)
	assert.Nil(t, sess)
}
