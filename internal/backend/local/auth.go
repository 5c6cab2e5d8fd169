package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"studia/internal/apperr"
	"studia/internal/backend"
)

const minPasswordLen = 6

var errInvalidCredentials = apperr.Auth("sign in", "Invalid login credentials")

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (b *Backend) SignUp(ctx context.Context, email, password string, data map[string]any) (backend.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return backend.User{}, apperr.Validation("sign up", "Email and password are required.")
	}
	if len(password) < minPasswordLen {
		return backend.User{}, apperr.Validation("sign up", fmt.Sprintf("Password should be at least %d characters.", minPasswordLen))
	}

	var existing authUser
	err := b.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return backend.User{}, apperr.Auth("sign up", "User already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return backend.User{}, apperr.Backend("sign up", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return backend.User{}, apperr.Wrap(apperr.ErrUnknown, "sign up", err)
	}
	meta, err := json.Marshal(data)
	if err != nil {
		return backend.User{}, apperr.Validation("sign up", "Invalid profile data.")
	}

	u := authUser{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Metadata:     string(meta),
	}
	if err := b.db.WithContext(ctx).Create(&u).Error; err != nil {
		return backend.User{}, apperr.Backend("sign up", err)
	}
	b.log.Infow("user registered", "user_id", u.ID)
	return toUser(u), nil
}

func (b *Backend) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	var u authUser
	err := b.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Backend("sign in", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, errInvalidCredentials
	}

	sess, err := b.issueSession(u)
	if err != nil {
		return nil, err
	}
	b.notifier.Notify(backend.EventSignedIn, sess)
	return sess, nil
}

func (b *Backend) SignOut(ctx context.Context) error {
	if err := b.sessions.Clear(); err != nil {
		return apperr.Backend("sign out", err)
	}
	b.notifier.Notify(backend.EventSignedOut, nil)
	return nil
}

// Session verifies the stored token. An expired token for a user that still
// exists is renewed, mirroring a refresh-token grant.
func (b *Backend) Session(ctx context.Context) (*backend.Session, error) {
	sess, err := b.sessions.Load()
	if err != nil || sess == nil {
		return nil, err
	}

	userID, err := b.verifyToken(sess.AccessToken)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		var u authUser
		if err := b.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
			return nil, b.sessions.Clear()
		}
		return b.issueSession(u)
	default:
		b.log.Warnw("discarding invalid session", "error", err)
		return nil, b.sessions.Clear()
	}
}

func (b *Backend) OnSessionChange(fn func(backend.SessionEvent, *backend.Session)) func() {
	return b.notifier.Subscribe(fn)
}

func (b *Backend) UpdateUser(ctx context.Context, update backend.UserUpdate) (backend.User, error) {
	sess, err := b.Session(ctx)
	if err != nil {
		return backend.User{}, err
	}
	if sess == nil {
		return backend.User{}, apperr.Auth("update user", "You are not signed in.")
	}

	var u authUser
	if err := b.db.WithContext(ctx).Where("id = ?", sess.User.ID).First(&u).Error; err != nil {
		return backend.User{}, apperr.Auth("update user", "User not found.")
	}

	changes := map[string]any{}
	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		if email == "" {
			return backend.User{}, apperr.Validation("update user", "Email cannot be empty.")
		}
		var count int64
		if err := b.db.WithContext(ctx).Model(&authUser{}).Where("email = ? AND id <> ?", email, u.ID).Count(&count).Error; err != nil {
			return backend.User{}, apperr.Backend("update user", err)
		}
		if count > 0 {
			return backend.User{}, apperr.Validation("update user", "A user with this email address has already been registered.")
		}
		changes["email"] = email
		u.Email = email
	}
	if update.Password != nil {
		if len(*update.Password) < minPasswordLen {
			return backend.User{}, apperr.Validation("update user", fmt.Sprintf("Password should be at least %d characters.", minPasswordLen))
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*update.Password), bcrypt.DefaultCost)
		if err != nil {
			return backend.User{}, apperr.Wrap(apperr.ErrUnknown, "update user", err)
		}
		changes["password_hash"] = string(hash)
	}
	if len(changes) == 0 {
		return toUser(u), nil
	}
	changes["updated_at"] = b.now()

	if err := b.db.WithContext(ctx).Model(&authUser{}).Where("id = ?", u.ID).Updates(changes).Error; err != nil {
		return backend.User{}, apperr.Backend("update user", err)
	}

	sess.User = toUser(u)
	if err := b.sessions.Save(sess); err != nil {
		b.log.Warnw("failed to persist updated session", "error", err)
	}
	b.notifier.Notify(backend.EventUserUpdated, sess)
	return sess.User, nil
}

// ResetPassword has no mail transport here; it only validates and logs, and
// never reveals whether the address is registered.
func (b *Backend) ResetPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperr.Validation("reset password", "Enter your email to receive the reset link.")
	}
	b.log.Infow("password reset requested", "email", email)
	return nil
}

func (b *Backend) issueSession(u authUser) (*backend.Session, error) {
	now := b.now()
	expiresAt := now.Add(b.tokenTTL)
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"role":  "authenticated",
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUnknown, "issue session", err)
	}

	sess := &backend.Session{
		AccessToken:  token,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    expiresAt,
		User:         toUser(u),
	}
	if err := b.sessions.Save(sess); err != nil {
		return nil, apperr.Backend("save session", err)
	}
	return sess, nil
}

// verifyToken returns the subject even when the only problem is expiry.
func (b *Backend) verifyToken(raw string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return b.secret, nil
	}, jwt.WithTimeFunc(b.now))
	sub, _ := claims["sub"].(string)
	if err != nil {
		return sub, err
	}
	if sub == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return sub, nil
}

func toUser(u authUser) backend.User {
	user := backend.User{ID: u.ID, Email: u.Email}
	if u.Metadata != "" && u.Metadata != "null" {
		_ = json.Unmarshal([]byte(u.Metadata), &user.Metadata)
	}
	return user
}
