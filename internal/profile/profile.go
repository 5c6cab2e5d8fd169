// Package profile loads and saves the user's profile row and auth fields.
//
// Save validates the whole form before writing anything, then runs each
// write step independently: a failed step is recorded in the Result and the
// remaining steps still run.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"studia/internal/apperr"
	"studia/internal/backend"
	"studia/internal/logging"
)

const MinPasswordLen = 6

var avatarExts = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true, "heic": true,
}

type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
}

// Loaded is the editor's starting state. Found is false when the user has
// an account but no profile row yet.
type Loaded struct {
	Profile Profile
	Found   bool
	Email   string
}

// Form is what the user submits. AvatarURL carries the current picture;
// AvatarPath, when set, is a local image to upload in its place.
type Form struct {
	Name            string `label:"Name" validate:"max=120"`
	Nickname        string `label:"Nickname" validate:"max=60"`
	Email           string `label:"Email" validate:"omitempty,email"`
	NewPassword     string `label:"Password" validate:"omitempty,min=6"`
	ConfirmPassword string `label:"Password confirmation" validate:"eqfield=NewPassword"`
	AvatarURL       string
	AvatarPath      string `label:"Avatar" validate:"omitempty,avatar"`
}

// FormFrom prefills a form with the loaded values.
func FormFrom(l Loaded) Form {
	return Form{
		Name:      l.Profile.Name,
		Nickname:  l.Profile.Nickname,
		Email:     l.Email,
		AvatarURL: l.Profile.AvatarURL,
	}
}

// Result reports each write step on its own. Skipped steps have nil errors.
type Result struct {
	AvatarURL       string
	AvatarErr       error
	ProfileErr      error
	EmailChanged    bool
	EmailErr        error
	PasswordChanged bool
	PasswordErr     error
}

func (r Result) Err() error {
	return errors.Join(r.AvatarErr, r.ProfileErr, r.EmailErr, r.PasswordErr)
}

// Failures lists a human line per failed step, in step order.
func (r Result) Failures() []string {
	var out []string
	add := func(step string, err error) {
		if err != nil {
			out = append(out, fmt.Sprintf("%s: %s", step, apperr.Message(err)))
		}
	}
	add("Avatar", r.AvatarErr)
	add("Profile", r.ProfileErr)
	add("Email", r.EmailErr)
	add("Password", r.PasswordErr)
	return out
}

type Editor struct {
	auth     backend.AuthClient
	tables   backend.TableClient
	files    backend.StorageClient
	validate *validator.Validate
	log      *logging.Logger
	now      func() time.Time
	readFile func(string) ([]byte, error)
}

func NewEditor(client backend.Client, log *logging.Logger) *Editor {
	if log == nil {
		log = logging.Nop()
	}
	v := apperr.NewValidator()
	_ = v.RegisterValidation("avatar", func(fl validator.FieldLevel) bool {
		return avatarExts[extOf(fl.Field().String())]
	})
	return &Editor{
		auth:     client.Auth(),
		tables:   client.Tables(),
		files:    client.Storage(),
		validate: v,
		log:      log.WithComponent("profile"),
		now:      time.Now,
		readFile: os.ReadFile,
	}
}

func (e *Editor) Load(ctx context.Context) (Loaded, error) {
	user, err := backend.CurrentUser(ctx, e.auth)
	if err != nil {
		return Loaded{}, err
	}
	out := Loaded{Email: user.Email, Profile: Profile{ID: user.ID}}

	var p Profile
	found, err := e.tables.SelectOne(ctx, backend.TableUsers, backend.Query{
		Filters: []backend.Filter{backend.Eq("id", user.ID)},
	}, &p)
	if err != nil {
		return out, apperr.Backend("load profile", err)
	}
	if found {
		out.Profile = p
		out.Found = true
	}
	return out, nil
}

// Validate checks the form without touching the backend.
func (e *Editor) Validate(f Form) error {
	if err := e.validate.Struct(f.trimmed()); err != nil {
		return apperr.Invalid("save profile", err)
	}
	return nil
}

// Save returns an error only when nothing was attempted: invalid input or no
// session. Otherwise the per-step outcome is in the Result.
func (e *Editor) Save(ctx context.Context, f Form) (Result, error) {
	f = f.trimmed()
	if err := e.Validate(f); err != nil {
		return Result{}, err
	}
	user, err := backend.CurrentUser(ctx, e.auth)
	if err != nil {
		return Result{}, err
	}
	log := e.log.WithUserID(user.ID)

	res := Result{AvatarURL: f.AvatarURL}

	if f.AvatarPath != "" {
		url, err := e.uploadAvatar(ctx, user.ID, f.AvatarPath)
		if err != nil {
			log.Warnw("avatar upload failed", "error", err)
			res.AvatarErr = err
		} else {
			res.AvatarURL = url
		}
	}

	err = e.tables.Upsert(ctx, backend.TableUsers, map[string]any{
		"id":         user.ID,
		"name":       f.Name,
		"nickname":   f.Nickname,
		"avatar_url": res.AvatarURL,
	}, "id")
	if err != nil {
		log.Warnw("profile upsert failed", "error", err)
		res.ProfileErr = apperr.Backend("save profile", err)
	}

	if f.Email != "" && !strings.EqualFold(f.Email, user.Email) {
		email := f.Email
		if _, err := e.auth.UpdateUser(ctx, backend.UserUpdate{Email: &email}); err != nil {
			log.Warnw("email update failed", "error", err)
			res.EmailErr = apperr.Backend("update email", err)
		} else {
			res.EmailChanged = true
		}
	}

	if f.NewPassword != "" {
		password := f.NewPassword
		if _, err := e.auth.UpdateUser(ctx, backend.UserUpdate{Password: &password}); err != nil {
			log.Warnw("password update failed", "error", err)
			res.PasswordErr = apperr.Backend("update password", err)
		} else {
			res.PasswordChanged = true
		}
	}

	log.Infow("profile saved",
		"avatar", f.AvatarPath != "" && res.AvatarErr == nil,
		"email_changed", res.EmailChanged,
		"password_changed", res.PasswordChanged,
		"failures", len(res.Failures()),
	)
	return res, nil
}

func (e *Editor) uploadAvatar(ctx context.Context, userID, path string) (string, error) {
	data, err := ReadAvatar(e.readFile, path)
	if err != nil {
		return "", err
	}
	ext := extOf(path)
	object := fmt.Sprintf("%s/%d.%s", userID, e.now().UnixMilli(), ext)
	err = e.files.Upload(ctx, backend.BucketAvatars, object, data, backend.UploadOptions{
		ContentType: "image/" + ext,
		Upsert:      true,
	})
	if err != nil {
		return "", apperr.Backend("upload avatar", err)
	}
	return e.files.PublicURL(backend.BucketAvatars, object), nil
}

// ReadAvatar reads an image, mapping access problems to PermissionError.
func ReadAvatar(read func(string) ([]byte, error), path string) ([]byte, error) {
	data, err := read(path)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, fs.ErrPermission):
		return nil, &apperr.Error{Kind: apperr.ErrPermission, Op: "read avatar", Message: "Studia is not allowed to read that image.", Err: err}
	case errors.Is(err, fs.ErrNotExist):
		return nil, &apperr.Error{Kind: apperr.ErrValidation, Op: "read avatar", Message: "The selected image no longer exists.", Err: err}
	default:
		return nil, apperr.Wrap(apperr.ErrUnknown, "read avatar", err)
	}
}

func extOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

func (f Form) trimmed() Form {
	f.Name = strings.TrimSpace(f.Name)
	f.Nickname = strings.TrimSpace(f.Nickname)
	f.Email = strings.TrimSpace(f.Email)
	f.AvatarPath = strings.TrimSpace(f.AvatarPath)
	return f
}
