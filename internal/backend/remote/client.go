// Package remote talks to a hosted Supabase-style backend over its REST
// endpoints: GoTrue auth, PostgREST tables and object storage.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"studia/internal/apperr"
	"studia/internal/backend"
	"studia/internal/logging"
)

type Options struct {
	URL               string
	AnonKey           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Sessions          *backend.SessionStore
	Logger            *logging.Logger
	HTTPClient        *http.Client
}

// Client implements backend.AuthClient, backend.TableClient and
// backend.StorageClient against one project URL.
type Client struct {
	baseURL  string
	anonKey  string
	http     *http.Client
	limiter  *rate.Limiter
	sessions *backend.SessionStore
	notifier backend.Notifier
	log      *logging.Logger
	now      func() time.Time
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.URL), "/")
	if base == "" {
		return nil, errors.New("remote backend: url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("remote backend: invalid url: %w", err)
	}
	if opts.AnonKey == "" {
		return nil, errors.New("remote backend: anon key is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("remote backend: session store is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL:  base,
		anonKey:  opts.AnonKey,
		http:     httpClient,
		limiter:  rate.NewLimiter(limit, burst),
		sessions: opts.Sessions,
		log:      opts.Logger.WithComponent("remote-backend"),
		now:      time.Now,
	}, nil
}

func (c *Client) Auth() backend.AuthClient { return c }
func (c *Client) Tables() backend.TableClient { return c }
func (c *Client) Storage() backend.StorageClient { return c }

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// request describes one call; body is JSON-encoded unless it is []byte.
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        any
	contentType string
	headers     map[string]string
	token       string
}

// apiError is the error body shape shared by the auth, rest and storage APIs.
type apiError struct {
	Status           int    `json:"-"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.text())
}

func (e *apiError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.ErrorCode} {
		if s != "" {
			return s
		}
	}
	return http.StatusText(e.Status)
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperr.Backend(r.op, err)
	}

	var body io.Reader
	contentType := r.contentType
	switch b := r.body.(type) {
	case nil:
	case []byte:
		body = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return apperr.Wrap(apperr.ErrValidation, r.op, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return apperr.Wrap(apperr.ErrUnknown, r.op, err)
	}

	token := r.token
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warnw("request failed", "op", r.op, "method", r.method, "path", r.path, "error", err)
		return apperr.Backend(r.op, err)
	}
	defer resp.Body.Close()

	c.log.Debugw("request",
		"op", r.op,
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"latency", c.now().Sub(start),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &apiError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if len(raw) > 0 && json.Unmarshal(raw, apiErr) != nil {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return classify(r.op, apiErr)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Backend(r.op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// classify maps an HTTP failure to an error kind.
func classify(op string, e *apiError) error {
	kind := apperr.ErrBackend
	switch e.Status {
	case http.StatusUnauthorized:
		kind = apperr.ErrAuth
	case http.StatusForbidden:
		kind = apperr.ErrPermission
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		kind = apperr.ErrValidation
	}
	return &apperr.Error{Kind: kind, Op: op, Message: e.text(), Err: e}
}

// asAuth re-labels a client-side rejection as an auth failure.
func asAuth(err error) error {
	var e *apperr.Error
	if errors.As(err, &e) && errors.Is(err, apperr.ErrValidation) {
		return &apperr.Error{Kind: apperr.ErrAuth, Op: e.Op, Message: e.Message, Err: e.Err}
	}
	return err
}
