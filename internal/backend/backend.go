// Package backend describes the hosted auth + database + file storage
// service the client talks to. Implementations live in the remote and local
// subpackages; callers depend only on these interfaces.
package backend

import (
	"context"
	"time"

	"studia/internal/apperr"
)

const (
	TableActivities = "activities"
	TableUsers      = "users"

	BucketAvatars = "avatars"
)

type User struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

func (s *Session) Expired(now time.Time) bool {
	return s == nil || (!s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt))
}

type SessionEvent string

const (
	EventSignedIn    SessionEvent = "SIGNED_IN"
	EventSignedOut   SessionEvent = "SIGNED_OUT"
	EventUserUpdated SessionEvent = "USER_UPDATED"
)

// UserUpdate changes auth fields; nil fields are left alone.
type UserUpdate struct {
	Email    *string
	Password *string
}

type AuthClient interface {
	SignUp(ctx context.Context, email, password string, data map[string]any) (User, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	// Session returns the current session, or nil when signed out.
	Session(ctx context.Context) (*Session, error)
	OnSessionChange(fn func(SessionEvent, *Session)) (unsubscribe func())
	UpdateUser(ctx context.Context, update UserUpdate) (User, error)
	ResetPassword(ctx context.Context, email string) error
}

type Filter struct {
	Column string
	Value  any
}

type Order struct {
	Column    string
	Ascending bool
}

type Query struct {
	Filters []Filter
	Order   *Order
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

// ByID matches one row by primary key, narrowed by any extra filters.
func ByID(id string, extra ...Filter) Query {
	return Query{Filters: append([]Filter{Eq("id", id)}, extra...)}
}

// TableClient is row access on a named table. dest arguments are pointers:
// a slice for Select, a struct for Insert and SelectOne. Update and Delete
// refuse a query without filters.
type TableClient interface {
	Select(ctx context.Context, table string, q Query, dest any) error
	// SelectOne fills dest with the first matching row; found is false when none matched.
	SelectOne(ctx context.Context, table string, q Query, dest any) (found bool, err error)
	Insert(ctx context.Context, table string, row map[string]any, dest any) error
	Update(ctx context.Context, table string, q Query, fields map[string]any) error
	Upsert(ctx context.Context, table string, row map[string]any, conflictKey string) error
	Delete(ctx context.Context, table string, q Query) error
}

type UploadOptions struct {
	ContentType string
	Upsert      bool
}

type StorageClient interface {
	Upload(ctx context.Context, bucket, path string, data []byte, opts UploadOptions) error
	PublicURL(bucket, path string) string
}

// Client bundles the three services of one backend.
type Client interface {
	Auth() AuthClient
	Tables() TableClient
	Storage() StorageClient
	Close() error
}

// ErrUnfiltered is returned by Update and Delete when the query would match
// every row of the table.
var ErrUnfiltered = apperr.New(apperr.ErrBackend, "write", "Refusing to change every row of the table.")

// CurrentUser returns the signed-in user or an auth error.
func CurrentUser(ctx context.Context, auth AuthClient) (User, error) {
	sess, err := auth.Session(ctx)
	if err != nil {
		return User{}, apperr.Backend("get session", err)
	}
	if sess == nil || sess.User.ID == "" {
		return User{}, apperr.Auth("get session", "You are not signed in.")
	}
	return sess.User, nil
}
