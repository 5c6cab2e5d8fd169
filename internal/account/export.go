// Package account exports the signed-in user's data as JSON.
package account

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"studia/internal/apperr"
	"studia/internal/backend"
	"studia/internal/logging"
	"studia/internal/profile"
	"studia/internal/share"
)

const ExportFileName = "studia-export.json"

type AuthInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Export is the file format. Profile is null when no profile row exists.
type Export struct {
	Auth    AuthInfo         `json:"auth"`
	Profile *profile.Profile `json:"profile"`
}

type Exporter struct {
	auth   backend.AuthClient
	tables backend.TableClient
	log    *logging.Logger
}

func NewExporter(client backend.Client, log *logging.Logger) *Exporter {
	if log == nil {
		log = logging.Nop()
	}
	return &Exporter{auth: client.Auth(), tables: client.Tables(), log: log.WithComponent("export")}
}

func (e *Exporter) Build(ctx context.Context) (Export, error) {
	user, err := backend.CurrentUser(ctx, e.auth)
	if err != nil {
		return Export{}, err
	}
	out := Export{Auth: AuthInfo{ID: user.ID, Email: user.Email}}

	var p profile.Profile
	found, err := e.tables.SelectOne(ctx, backend.TableUsers, backend.Query{
		Filters: []backend.Filter{backend.Eq("id", user.ID)},
	}, &p)
	if err != nil {
		return Export{}, apperr.Backend("export data", err)
	}
	if found {
		out.Profile = &p
	}
	return out, nil
}

// Write stores the export in dir and returns the file path.
func (e *Exporter) Write(ctx context.Context, dir string) (string, error) {
	data, err := e.Build(ctx)
	if err != nil {
		return "", err
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUnknown, "export data", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fileErr(err)
	}
	path := filepath.Join(dir, ExportFileName)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return "", fileErr(err)
	}
	e.log.Infow("data exported", "user_id", data.Auth.ID, "path", path)
	return path, nil
}

func fileErr(err error) error {
	if os.IsPermission(err) {
		return apperr.Wrap(apperr.ErrPermission, "export data", err)
	}
	return apperr.Wrap(apperr.ErrUnknown, "export data", fmt.Errorf("write export: %w", err))
}

// CacheDir is where exports go by default.
func CacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "studia")
	}
	return filepath.Join(os.TempDir(), "studia")
}

func SharePayload(path string) share.Payload {
	return share.Payload{URL: path, Message: "Studia export", Title: ExportFileName}
}
