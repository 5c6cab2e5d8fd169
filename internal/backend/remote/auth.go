package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"studia/internal/apperr"
	"studia/internal/backend"
)

// refreshMargin renews tokens slightly before they lapse.
const refreshMargin = 30 * time.Second

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         backend.User `json:"user"`
}

// signUpResponse is either a bare user (confirmation pending) or a session.
type signUpResponse struct {
	tokenResponse
	backend.User
}

func (c *Client) SignUp(ctx context.Context, email, password string, data map[string]any) (backend.User, error) {
	if email == "" || password == "" {
		return backend.User{}, apperr.Validation("sign up", "Email and password are required.")
	}
	body := map[string]any{"email": email, "password": password}
	if len(data) > 0 {
		body["data"] = data
	}

	var resp signUpResponse
	err := c.do(ctx, request{op: "sign up", method: http.MethodPost, path: "/auth/v1/signup", body: body}, &resp)
	if err != nil {
		return backend.User{}, err
	}

	if resp.AccessToken != "" {
		sess, err := c.sessionFrom(resp.tokenResponse)
		if err != nil {
			return backend.User{}, err
		}
		c.notifier.Notify(backend.EventSignedIn, sess)
		return sess.User, nil
	}
	if resp.tokenResponse.User.ID != "" {
		return resp.tokenResponse.User, nil
	}
	return resp.User, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	var resp tokenResponse
	err := c.do(ctx, request{
		op:     "sign in",
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
	}, &resp)
	if err != nil {
		return nil, asAuth(err)
	}

	sess, err := c.sessionFrom(resp)
	if err != nil {
		return nil, err
	}
	c.notifier.Notify(backend.EventSignedIn, sess)
	return sess, nil
}

// SignOut always drops the local session; the server call is best effort.
func (c *Client) SignOut(ctx context.Context) error {
	sess, _ := c.sessions.Load()
	if sess != nil {
		err := c.do(ctx, request{
			op:     "sign out",
			method: http.MethodPost,
			path:   "/auth/v1/logout",
			token:  sess.AccessToken,
		}, nil)
		if err != nil {
			c.log.Warnw("server sign out failed", "error", err)
		}
	}
	if err := c.sessions.Clear(); err != nil {
		return apperr.Backend("sign out", err)
	}
	c.notifier.Notify(backend.EventSignedOut, nil)
	return nil
}

func (c *Client) Session(ctx context.Context) (*backend.Session, error) {
	sess, err := c.sessions.Load()
	if err != nil || sess == nil {
		return nil, err
	}
	if !sess.Expired(c.now().Add(refreshMargin)) {
		return sess, nil
	}
	if sess.RefreshToken == "" {
		return nil, c.dropSession()
	}

	var resp tokenResponse
	err = c.do(ctx, request{
		op:     "refresh session",
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": sess.RefreshToken},
	}, &resp)
	if err != nil {
		if errors.Is(err, apperr.ErrAuth) || errors.Is(err, apperr.ErrValidation) {
			c.log.Infow("refresh token rejected", "error", err)
			return nil, c.dropSession()
		}
		return nil, err
	}
	return c.sessionFrom(resp)
}

func (c *Client) dropSession() error {
	if err := c.sessions.Clear(); err != nil {
		return err
	}
	c.notifier.Notify(backend.EventSignedOut, nil)
	return nil
}

func (c *Client) OnSessionChange(fn func(backend.SessionEvent, *backend.Session)) func() {
	return c.notifier.Subscribe(fn)
}

func (c *Client) UpdateUser(ctx context.Context, update backend.UserUpdate) (backend.User, error) {
	sess, err := c.Session(ctx)
	if err != nil {
		return backend.User{}, err
	}
	if sess == nil {
		return backend.User{}, apperr.Auth("update user", "You are not signed in.")
	}

	body := map[string]string{}
	if update.Email != nil {
		body["email"] = *update.Email
	}
	if update.Password != nil {
		body["password"] = *update.Password
	}
	if len(body) == 0 {
		return sess.User, nil
	}

	var user backend.User
	err = c.do(ctx, request{
		op:     "update user",
		method: http.MethodPut,
		path:   "/auth/v1/user",
		body:   body,
		token:  sess.AccessToken,
	}, &user)
	if err != nil {
		return backend.User{}, err
	}

	sess.User = user
	if err := c.sessions.Save(sess); err != nil {
		c.log.Warnw("failed to persist updated session", "error", err)
	}
	c.notifier.Notify(backend.EventUserUpdated, sess)
	return user, nil
}

func (c *Client) ResetPassword(ctx context.Context, email string) error {
	if email == "" {
		return apperr.Validation("reset password", "Enter your email to receive the reset link.")
	}
	return c.do(ctx, request{
		op:     "reset password",
		method: http.MethodPost,
		path:   "/auth/v1/recover",
		body:   map[string]string{"email": email},
	}, nil)
}

func (c *Client) sessionFrom(resp tokenResponse) (*backend.Session, error) {
	if resp.AccessToken == "" {
		return nil, apperr.New(apperr.ErrBackend, "session", "The server returned no access token.")
	}
	sess := &backend.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    c.expiry(resp),
		User:         resp.User,
	}
	if sess.User.ID == "" {
		sess.User.ID = tokenSubject(resp.AccessToken)
	}
	if err := c.sessions.Save(sess); err != nil {
		return nil, apperr.Backend("save session", err)
	}
	return sess, nil
}

func (c *Client) expiry(resp tokenResponse) time.Time {
	switch {
	case resp.ExpiresAt > 0:
		return time.Unix(resp.ExpiresAt, 0)
	case resp.ExpiresIn > 0:
		return c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(resp.AccessToken, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return time.Time{}
}

// tokenSubject reads "sub" without verifying; the server owns the key.
func tokenSubject(token string) string {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return ""
	}
	return claims.Subject
}

// bearer is the user's token when signed in, else the anon key.
func (c *Client) bearer(ctx context.Context) (string, error) {
	sess, err := c.Session(ctx)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", nil
	}
	return sess.AccessToken, nil
}
