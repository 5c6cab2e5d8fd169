package account

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studia/internal/apperr"
	"studia/internal/backend"
	"studia/internal/backend/local"
	"studia/internal/storage"
)

func newBackend(t *testing.T) *local.Backend {
	t.Helper()
	dir := t.TempDir()
	kv, err := storage.Open(filepath.Join(dir, "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	b, err := local.Open(local.Options{
		DBPath:    filepath.Join(dir, "backend.db"),
		JWTSecret: "test-secret",
		Sessions:  backend.NewSessionStore(kv),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func signIn(t *testing.T, b *local.Backend) backend.User {
	t.Helper()
	ctx := context.Background()
	_, err := b.SignUp(ctx, "ana@example.com", "secret1", nil)
	require.NoError(t, err)
	sess, err := b.SignIn(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	return sess.User
}

func TestExportWithoutProfile(t *testing.T) {
	b := newBackend(t)
	user := signIn(t, b)

	path, err := NewExporter(b, nil).Write(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ExportFileName, filepath.Base(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"auth":{"id":"`+user.ID+`","email":"ana@example.com"},"profile":null}`, string(raw))
	assert.Contains(t, string(raw), "\n  \"auth\"")
}

func TestExportWithProfile(t *testing.T) {
	b := newBackend(t)
	user := signIn(t, b)
	ctx := context.Background()
	require.NoError(t, b.Upsert(ctx, backend.TableUsers, map[string]any{
		"id": user.ID, "name": "Ana", "nickname": "aninha", "avatar_url": "",
	}, "id"))

	exp, err := NewExporter(b, nil).Build(ctx)
	require.NoError(t, err)
	require.NotNil(t, exp.Profile)
	assert.Equal(t, "aninha", exp.Profile.Nickname)

	raw, err := json.Marshal(exp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"avatar_url":""`)
}

func TestExportRequiresSession(t *testing.T) {
	b := newBackend(t)
	_, err := NewExporter(b, nil).Write(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestSharePayload(t *testing.T) {
	p := SharePayload("/tmp/studia-export.json")
	assert.Equal(t, ExportFileName, p.Title)
	assert.Equal(t, "/tmp/studia-export.json", p.URL)
}
