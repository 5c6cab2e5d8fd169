package task

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"studia/internal/apperr"
	"studia/internal/backend"
	"studia/internal/logging"
)

// Fields are the values of a new task.
type Fields struct {
	Title   string `json:"title" label:"Title" validate:"required,max=200"`
	Subject string `json:"subject" validate:"max=80"`
	DueDate string `json:"due_date" validate:"omitempty,duedate"`
	Teacher string `json:"teacher" validate:"max=120"`
	Room    string `json:"room" validate:"max=60"`
	Color   string `json:"color" validate:"omitempty,hexcolor"`
}

// Patch is a partial update; nil fields are not sent. Completion goes
// through MarkDone only.
type Patch struct {
	Title   *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Subject *string `json:"subject,omitempty" validate:"omitempty,max=80"`
	DueDate *string `json:"due_date,omitempty" validate:"omitempty,duedate"`
	Teacher *string `json:"teacher,omitempty" validate:"omitempty,max=120"`
	Room    *string `json:"room,omitempty" validate:"omitempty,max=60"`
	Color   *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// Filter narrows List; a nil Done returns every task.
type Filter struct {
	Done *bool
}

type Store struct {
	auth     backend.AuthClient
	tables   backend.TableClient
	validate *validator.Validate
	log      *logging.Logger
}

func NewStore(client backend.Client, log *logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{
		auth:     client.Auth(),
		tables:   client.Tables(),
		validate: newValidator(),
		log:      log.WithComponent("tasks"),
	}
}

func newValidator() *validator.Validate {
	v := apperr.NewValidator()
	_ = v.RegisterValidation("duedate", func(fl validator.FieldLevel) bool {
		_, ok := ParseDueDate(fl.Field().String())
		return ok
	})
	return v
}

func (s *Store) ListPending(ctx context.Context) ([]Task, error) {
	done := false
	return s.List(ctx, Filter{Done: &done})
}

// List returns the user's tasks ordered by due date ascending.
func (s *Store) List(ctx context.Context, f Filter) ([]Task, error) {
	user, err := backend.CurrentUser(ctx, s.auth)
	if err != nil {
		return nil, err
	}
	q := backend.Query{
		Filters: []backend.Filter{backend.Eq("user_id", user.ID)},
		Order:   &backend.Order{Column: "due_date", Ascending: true},
	}
	if f.Done != nil {
		q.Filters = append(q.Filters, backend.Eq("done", *f.Done))
	}

	var tasks []Task
	if err := s.tables.Select(ctx, backend.TableActivities, q, &tasks); err != nil {
		return nil, apperr.Backend("list tasks", err)
	}
	return tasks, nil
}

func (s *Store) Create(ctx context.Context, f Fields) (Task, error) {
	f = f.trimmed()
	if err := s.validate.Struct(f); err != nil {
		return Task{}, apperr.Invalid("create task", err)
	}
	user, err := backend.CurrentUser(ctx, s.auth)
	if err != nil {
		return Task{}, err
	}

	color := f.Color
	if color == "" {
		color = ColorForSubject(f.Subject)
	}
	row := map[string]any{
		"user_id":  user.ID,
		"title":    f.Title,
		"subject":  f.Subject,
		"due_date": CanonicalDueDate(f.DueDate),
		"teacher":  f.Teacher,
		"room":     f.Room,
		"color":    color,
		"done":     false,
	}

	var created Task
	if err := s.tables.Insert(ctx, backend.TableActivities, row, &created); err != nil {
		return Task{}, apperr.Backend("create task", err)
	}
	s.log.Infow("task created", "task_id", created.ID, "user_id", user.ID)
	return created, nil
}

func (s *Store) Update(ctx context.Context, id string, p Patch) error {
	if err := s.validate.Struct(p); err != nil {
		return apperr.Invalid("update task", err)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return apperr.Validation("update task", "Title is required.")
	}
	return s.write(ctx, "update task", id, p.fields())
}

// MarkDone completes a task; there is no way back to pending.
func (s *Store) MarkDone(ctx context.Context, id string) error {
	return s.write(ctx, "complete task", id, map[string]any{"done": true})
}

// write updates one of the signed-in user's rows. Rows owned by someone
// else match nothing and are left alone.
func (s *Store) write(ctx context.Context, op, id string, fields map[string]any) error {
	user, err := backend.CurrentUser(ctx, s.auth)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.tables.Update(ctx, backend.TableActivities, owned(id, user), fields); err != nil {
		return apperr.Backend(op, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	user, err := backend.CurrentUser(ctx, s.auth)
	if err != nil {
		return err
	}
	if err := s.tables.Delete(ctx, backend.TableActivities, owned(id, user)); err != nil {
		return apperr.Backend("delete task", err)
	}
	s.log.Infow("task deleted", "task_id", id, "user_id", user.ID)
	return nil
}

func owned(id string, user backend.User) backend.Query {
	return backend.ByID(id, backend.Eq("user_id", user.ID))
}

// MigrateDueDates rewrites the user's DD/MM/YYYY due dates as YYYY-MM-DD and
// reports how many rows changed.
func (s *Store) MigrateDueDates(ctx context.Context) (int, error) {
	tasks, err := s.List(ctx, Filter{})
	if err != nil {
		return 0, err
	}
	migrated := 0
	for _, t := range tasks {
		canonical := CanonicalDueDate(t.DueDate)
		if canonical == t.DueDate {
			continue
		}
		if err := s.write(ctx, "migrate due dates", t.ID, map[string]any{"due_date": canonical}); err != nil {
			return migrated, err
		}
		migrated++
	}
	s.log.Infow("due dates migrated", "count", migrated)
	return migrated, nil
}

func (f Fields) trimmed() Fields {
	f.Title = strings.TrimSpace(f.Title)
	f.Subject = strings.TrimSpace(f.Subject)
	f.DueDate = strings.TrimSpace(f.DueDate)
	f.Teacher = strings.TrimSpace(f.Teacher)
	f.Room = strings.TrimSpace(f.Room)
	f.Color = strings.TrimSpace(f.Color)
	return f
}

func (p Patch) fields() map[string]any {
	m := map[string]any{}
	set := func(key string, v *string) {
		if v != nil {
			m[key] = strings.TrimSpace(*v)
		}
	}
	set("title", p.Title)
	set("subject", p.Subject)
	set("teacher", p.Teacher)
	set("room", p.Room)
	set("color", p.Color)
	if p.DueDate != nil {
		m["due_date"] = CanonicalDueDate(*p.DueDate)
	}
	return m
}
