package task

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studia/internal/apperr"
	"studia/internal/backend"
	"studia/internal/backend/local"
	"studia/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *local.Backend) {
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

	return NewStore(b, nil), b
}

func signIn(t *testing.T, b *local.Backend, email string) {
	t.Helper()
	ctx := context.Background()
	_, err := b.SignUp(ctx, email, "secret1", nil)
	require.NoError(t, err)
	_, err = b.SignIn(ctx, email, "secret1")
	require.NoError(t, err)
}

func TestCreateDerivesColorFromSubject(t *testing.T) {
	s, b := newTestStore(t)
	signIn(t, b, "ana@example.com")
	ctx := context.Background()

	tests := []struct {
		subject string
		want    string
	}{
		{"Matemática", "#FAD02C"},
		{"Física", "#FF7675"},
		{"Filosofia", "#F2F2F2"},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			created, err := s.Create(ctx, Fields{Title: "Prova", Subject: tt.subject, DueDate: "2025-03-10"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, created.Color)
			assert.NotEmpty(t, created.ID)
			assert.False(t, created.Done)
		})
	}
}

func TestCreateKeepsExplicitColor(t *testing.T) {
	s, b := newTestStore(t)
	signIn(t, b, "ana@example.com")

	created, err := s.Create(context.Background(), Fields{Title: "Lab", Subject: "Química", Color: "#123ABC"})
	require.NoError(t, err)
	assert.Equal(t, "#123ABC", created.Color)
}

func TestCreateValidation(t *testing.T) {
	s, b := newTestStore(t)
	signIn(t, b, "ana@example.com")
	ctx := context.Background()

	_, err := s.Create(ctx, Fields{Title: "   "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.Create(ctx, Fields{Title: "Prova", DueDate: "next friday"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.Create(ctx, Fields{Title: "Prova", Color: "orange"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateCanonicalisesLegacyDate(t *testing.T) {
	s, b := newTestStore(t)
	signIn(t, b, "ana@example.com")

	created, err := s.Create(context.Background(), Fields{Title: "Prova", DueDate: "05/03/2025"})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-05", created.DueDate)
}

func TestRequiresSession(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.ListPending(ctx)
	assert.ErrorIs(t, err, apperr.ErrAuth)
	_, err = s.Create(ctx, Fields{Title: "Prova"})
	assert.ErrorIs(t, err, apperr.ErrAuth)
	assert.ErrorIs(t, s.Delete(ctx, "x"), apperr.ErrAuth)
}

func TestListPendingOrderAndScope(t *testing.T) {
	s, b := newTestStore(t)
	ctx := context.Background()

	signIn(t, b, "other@example.com")
	_, err := s.Create(ctx, Fields{Title: "Not mine", DueDate: "2025-01-01"})
	require.NoError(t, err)

	signIn(t, b, "ana@example.com")
	for _, f := range []Fields{
		{Title: "C", DueDate: "2025-05-01"},
		{Title: "A", DueDate: "2025-03-01"},
		{Title: "B", DueDate: "2025-04-01"},
	} {
		_, err := s.Create(ctx, f)
		require.NoError(t, err)
	}

	tasks, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{tasks[0].Title, tasks[1].Title, tasks[2].Title})
}

func TestWritesAreLimitedToOwner(t *testing.T) {
	s, b := newTestStore(t)
	ctx := context.Background()

	signIn(t, b, "ana@example.com")
	first, err := s.Create(ctx, Fields{Title: "Prova", DueDate: "2025-03-10"})
	require.NoError(t, err)
	second, err := s.Create(ctx, Fields{Title: "Lista", DueDate: "2025-03-11"})
	require.NoError(t, err)

	signIn(t, b, "bob@example.com")
	title := "Hijacked"
	require.NoError(t, s.MarkDone(ctx, first.ID))
	require.NoError(t, s.Update(ctx, first.ID, Patch{Title: &title}))
	require.NoError(t, s.Delete(ctx, second.ID))

	_, err = b.SignIn(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, []string{"Prova", "Lista"}, []string{pending[0].Title, pending[1].Title})
}

func TestMarkDoneRemovesFromPending(t *testing.T) {
	s, b := newTestStore(t)
	signIn(t, b, "ana@example.com")
	ctx := context.Background()

	created, err := s.Create(ctx, Fields{Title: "Prova", DueDate: "2025-03-10"})
	require.NoError(t, err)
	require.NoError(t, s.MarkDone(ctx, created.ID))

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Done)

	title := "Prova revisada"
	require.NoError(t, s.Update(ctx, created.ID, Patch{Title: &title}))
	all, err = s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Done)
	assert.Equal(t, "Prova revisada", all[0].Title)
}

func TestDeleteTwiceIsNoop(t *testing.T) {
	s, b := newTestStore(t)
	signIn(t, b, "ana@example.com")
	ctx := context.Background()

	created, err := s.Create(ctx, Fields{Title: "Prova"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, created.ID))
	require.NoError(t, s.Delete(ctx, created.ID))

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdatePatch(t *testing.T) {
	s, b := newTestStore(t)
	signIn(t, b, "ana@example.com")
	ctx := context.Background()

	created, err := s.Create(ctx, Fields{Title: "Prova", Subject: "Física", Room: "12"})
	require.NoError(t, err)

	title, due := "Prova final", "10/06/2025"
	require.NoError(t, s.Update(ctx, created.ID, Patch{Title: &title, DueDate: &due}))

	empty := " "
	assert.ErrorIs(t, s.Update(ctx, created.ID, Patch{Title: &empty}), apperr.ErrValidation)

	tasks, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Prova final", tasks[0].Title)
	assert.Equal(t, "2025-06-10", tasks[0].DueDate)
	assert.Equal(t, "12", tasks[0].Room)
}

func TestMigrateDueDates(t *testing.T) {
	s, b := newTestStore(t)
	signIn(t, b, "ana@example.com")
	ctx := context.Background()

	sess, err := b.Session(ctx)
	require.NoError(t, err)
	for _, due := range []string{"05/03/2025", "2025-04-01", "março 5"} {
		require.NoError(t, b.Insert(ctx, backend.TableActivities, map[string]any{
			"user_id": sess.User.ID, "title": due, "due_date": due,
		}, nil))
	}

	n, err := s.MigrateDueDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	got := map[string]string{}
	for _, tk := range all {
		got[tk.Title] = tk.DueDate
	}
	assert.Equal(t, "2025-03-05", got["05/03/2025"])
	assert.Equal(t, "2025-04-01", got["2025-04-01"])
	assert.Equal(t, "março 5", got["março 5"])

	n, err = s.MigrateDueDates(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCanonicalDueDate(t *testing.T) {
	assert.Equal(t, "2025-03-05", CanonicalDueDate("05/03/2025"))
	assert.Equal(t, "2025-03-05", CanonicalDueDate("2025-03-05"))
	assert.Equal(t, "5/3/2025", CanonicalDueDate("5/3/2025"))
	assert.Equal(t, "", CanonicalDueDate(""))
}

func TestColorForSubject(t *testing.T) {
	for _, subject := range Subjects {
		assert.NotEqual(t, DefaultColor, ColorForSubject(subject), subject)
	}
	assert.Equal(t, DefaultColor, ColorForSubject(""))
	assert.Equal(t, DefaultColor, Task{}.DisplayColor())
	assert.Equal(t, "#FAD02C", Task{Color: "#FAD02C"}.DisplayColor())
}

func TestDueLabel(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.Local)

	assert.Equal(t, "today", DueLabel("2025-06-10", now))
	assert.Equal(t, "tomorrow", DueLabel("11/06/2025", now))
	assert.Equal(t, "yesterday", DueLabel("2025-06-09", now))
	assert.Equal(t, "3 days from now", DueLabel("2025-06-13", now))
	assert.Equal(t, "1 week ago", DueLabel("2025-06-03", now))
	assert.Equal(t, "someday", DueLabel("someday", now))
}

func TestDueLabelAcrossDaylightSaving(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	prev := time.Local
	time.Local = berlin
	t.Cleanup(func() { time.Local = prev })

	now := time.Date(2025, 3, 29, 12, 0, 0, 0, berlin)
	assert.Equal(t, "tomorrow", DueLabel("2025-03-30", now))
	assert.Equal(t, "2 days from now", DueLabel("2025-03-31", now))

	autumn := time.Date(2025, 10, 25, 12, 0, 0, 0, berlin)
	assert.Equal(t, "2 days from now", DueLabel("2025-10-27", autumn))
	assert.Equal(t, "yesterday", DueLabel("2025-10-24", autumn))
}
