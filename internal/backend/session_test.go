package backend

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studia/internal/apperr"
)

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]string{}
	}
	m.data[key] = value
	return nil
}

func (m *memKV) MultiRemove(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestSessionStoreRoundTrip(t *testing.T) {
	kv := &memKV{}
	store := NewSessionStore(kv)

	sess, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, sess)

	want := &Session{
		AccessToken: "token",
		ExpiresAt:   time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		User:        User{ID: "u1", Email: "ana@example.com"},
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.User.ID)
	assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, store.Clear())
	got, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStoreCorruptEntryReadsAsSignedOut(t *testing.T) {
	kv := &memKV{data: map[string]string{sessionKey: "{not json"}}

	sess, err := NewSessionStore(kv).Load()
	require.NoError(t, err)
	assert.Nil(t, sess)
	_, ok, _ := kv.Get(sessionKey)
	assert.False(t, ok)
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	var nilSession *Session
	assert.True(t, nilSession.Expired(now))
	assert.False(t, (&Session{}).Expired(now))
	assert.True(t, (&Session{ExpiresAt: now.Add(-time.Second)}).Expired(now))
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Hour)}).Expired(now))
}

func TestNotifier(t *testing.T) {
	var n Notifier
	var events []SessionEvent

	unsubscribe := n.Subscribe(func(e SessionEvent, _ *Session) {
		events = append(events, e)
	})
	n.Notify(EventSignedIn, &Session{})
	unsubscribe()
	n.Notify(EventSignedOut, nil)

	assert.Equal(t, []SessionEvent{EventSignedIn}, events)
}

type stubAuth struct {
	AuthClient
	sess *Session
}

func (s stubAuth) Session(context.Context) (*Session, error) { return s.sess, nil }

func TestCurrentUser(t *testing.T) {
	_, err := CurrentUser(context.Background(), stubAuth{})
	assert.ErrorIs(t, err, apperr.ErrAuth)

	u, err := CurrentUser(context.Background(), stubAuth{sess: &Session{User: User{ID: "u1"}}})
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}
