// Package app wires configuration, storage, the backend and the services the
// UI and CLI share.
package app

import (
	"context"
	"errors"
	"fmt"

	"studia/internal/account"
	"studia/internal/backend"
	"studia/internal/backend/local"
	"studia/internal/backend/remote"
	"studia/internal/config"
	"studia/internal/logging"
	"studia/internal/prefs"
	"studia/internal/profile"
	"studia/internal/share"
	"studia/internal/storage"
	"studia/internal/task"
	"studia/internal/theme"
)

type App struct {
	Config   config.Config
	Log      *logging.Logger
	KV       *storage.Store
	Backend  backend.Client
	Prefs    *prefs.Store
	Theme    *theme.Theme
	Tasks    *task.Store
	Profiles *profile.Editor
	Exporter *account.Exporter
	Sharer   share.Sharer
}

// New opens everything cfg describes. log may be nil.
func New(cfg config.Config, log *logging.Logger) (*App, error) {
	if log == nil {
		log = logging.Nop()
	}

	kv, err := storage.Open(cfg.KVPath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	client, err := newBackend(cfg, backend.NewSessionStore(kv), log)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	p := prefs.New(kv, log)
	a := &App{
		Config:   cfg,
		Log:      log,
		KV:       kv,
		Backend:  client,
		Prefs:    p,
		Theme:    theme.Load(p),
		Tasks:    task.NewStore(client, log),
		Profiles: profile.NewEditor(client, log),
		Exporter: account.NewExporter(client, log),
		Sharer:   share.NewClipboard(log),
	}
	log.Infow("app started", "backend", cfg.Backend.Kind, "data_dir", cfg.DataDir, "kv_path", kv.Path())
	return a, nil
}

func newBackend(cfg config.Config, sessions *backend.SessionStore, log *logging.Logger) (backend.Client, error) {
	switch cfg.Backend.Kind {
	case config.BackendRemote:
		c, err := remote.New(remote.Options{
			URL:               cfg.Backend.URL,
			AnonKey:           cfg.Backend.AnonKey,
			Timeout:           cfg.Backend.Timeout,
			RequestsPerSecond: cfg.Backend.RequestsPerSecond,
			Burst:             cfg.Backend.Burst,
			Sessions:          sessions,
			Logger:            log,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendLocal:
		b, err := local.Open(local.Options{
			DBPath:    cfg.Local.DBPath,
			FilesDir:  cfg.Local.FilesDir,
			JWTSecret: cfg.Local.JWTSecret,
			Sessions:  sessions,
			Logger:    log,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend.Kind)
	}
}

// Context bounds one backend call by the configured timeout.
func (a *App) Context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.Config.Backend.Timeout)
}

func (a *App) Close() error {
	return errors.Join(a.Backend.Close(), a.KV.Close())
}
