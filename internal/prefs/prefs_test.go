package prefs

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studia/internal/storage"
)

func openStore(t *testing.T) (*Store, *storage.Store) {
	t.Helper()
	kv, err := storage.Open(filepath.Join(t.TempDir(), "studia.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return New(kv, nil), kv
}

func TestDefaults(t *testing.T) {
	s, _ := openStore(t)

	assert.Equal(t, Snapshot{
		ThemeMode:     "light",
		TextScale:     1.0,
		NotifPush:     true,
		ProfilePublic: true,
	}, s.Snapshot())
}

func TestCoercionFallsBackToDefault(t *testing.T) {
	s, kv := openStore(t)
	require.NoError(t, kv.Set(KeyNotifPush, "maybe"))
	require.NoError(t, kv.Set(KeyTextScale, "big"))
	require.NoError(t, kv.Set(KeyThemeMode, "sepia"))

	assert.True(t, s.Bool(KeyNotifPush))
	assert.Equal(t, DefaultTextScale, s.TextScale())
	assert.Equal(t, "light", s.ThemeMode())
}

func TestSetAndGet(t *testing.T) {
	s, kv := openStore(t)

	require.NoError(t, s.SetBool(KeyNotifEmail, true))
	require.NoError(t, s.SetBool(KeyNotifPush, false))
	require.NoError(t, s.SetThemeMode("dark"))

	assert.True(t, s.Bool(KeyNotifEmail))
	assert.False(t, s.Bool(KeyNotifPush))
	assert.Equal(t, "dark", s.ThemeMode())

	raw, _, err := kv.Get(KeyNotifEmail)
	require.NoError(t, err)
	assert.Equal(t, "1", raw)
}

func TestTextScaleIsClamped(t *testing.T) {
	s, _ := openStore(t)

	require.NoError(t, s.SetTextScale(3))
	assert.Equal(t, MaxTextScale, s.TextScale())
	require.NoError(t, s.SetTextScale(0.1))
	assert.Equal(t, MinTextScale, s.TextScale())
}

func TestLargeTextMovesScale(t *testing.T) {
	s, _ := openStore(t)

	require.NoError(t, s.SetLargeText(true))
	assert.True(t, s.Bool(KeyLargeText))
	assert.Equal(t, LargeTextScale, s.TextScale())

	require.NoError(t, s.SetLargeText(false))
	assert.Equal(t, DefaultTextScale, s.TextScale())
}

func TestClearKeepsSession(t *testing.T) {
	s, kv := openStore(t)
	require.NoError(t, kv.Set("auth_session", "{}"))
	require.NoError(t, s.SetThemeMode("dark"))
	require.NoError(t, s.SetBool(KeyShowLastSeen, true))

	require.NoError(t, s.Clear())

	assert.Equal(t, "light", s.ThemeMode())
	assert.False(t, s.Bool(KeyShowLastSeen))
	_, ok, err := kv.Get("auth_session")
	require.NoError(t, err)
	assert.True(t, ok)
}

type failingKV struct{}

func (failingKV) Get(string) (string, bool, error) { return "", false, errors.New("disk gone") }
func (failingKV) Set(string, string) error         { return errors.New("disk gone") }
func (failingKV) MultiRemove(...string) error      { return errors.New("disk gone") }

func TestWriteFailuresAreReturned(t *testing.T) {
	s := New(failingKV{}, nil)

	assert.Error(t, s.SetThemeMode("dark"))
	assert.Error(t, s.SetLargeText(true))
	assert.Error(t, s.Clear())
	assert.Equal(t, "light", s.ThemeMode())
}
