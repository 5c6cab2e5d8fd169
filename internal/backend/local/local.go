// Package local is an embedded backend for offline use and tests. It keeps
// the same contract as the hosted service: tables in sqlite through gorm,
// bcrypt password hashes, HS256 session tokens and files on disk.
package local

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"studia/internal/backend"
	"studia/internal/logging"
)

const (
	defaultTokenTTL = 24 * time.Hour

	// sqlDriver is the pure-Go engine registered by modernc.org/sqlite, the
	// same one the device key-value store uses.
	sqlDriver = "sqlite"
)

type authUser struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Metadata     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (authUser) TableName() string { return "auth_users" }

type activityRow struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	Title     string `gorm:"not null"`
	DueDate   string `gorm:"index"`
	Teacher   string
	Room      string
	Subject   string
	Color     string
	Done      bool `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (activityRow) TableName() string { return backend.TableActivities }

type profileRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	Nickname  string `gorm:"index"`
	AvatarURL string
	UpdatedAt time.Time
}

func (profileRow) TableName() string { return backend.TableUsers }

type Options struct {
	DBPath    string
	FilesDir  string
	JWTSecret string
	TokenTTL  time.Duration
	Sessions  *backend.SessionStore
	Logger    *logging.Logger
}

// Backend implements backend.AuthClient, backend.TableClient and
// backend.StorageClient on one gorm handle.
type Backend struct {
	db       *gorm.DB
	sessions *backend.SessionStore
	notifier backend.Notifier
	secret   []byte
	tokenTTL time.Duration
	filesDir string
	log      *logging.Logger
	now      func() time.Time
}

func Open(opts Options) (*Backend, error) {
	if opts.Sessions == nil {
		return nil, errors.New("local backend: session store is required")
	}
	if opts.JWTSecret == "" {
		return nil, errors.New("local backend: jwt secret is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	log := opts.Logger.WithComponent("local-backend")

	db, err := newDB(opts.DBPath, log)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:       db,
		sessions: opts.Sessions,
		secret:   []byte(opts.JWTSecret),
		tokenTTL: opts.TokenTTL,
		filesDir: opts.FilesDir,
		log:      log,
		now:      time.Now,
	}, nil
}

func newDB(dsn string, log *logging.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("local backend: db path is empty")
	}
	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		gormWriter{log: log},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dialector := sqlite.New(sqlite.Config{DriverName: sqlDriver, DSN: dsn})
	db, err := gorm.Open(dialector, &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps ":memory:" databases shared and writes serialised.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&authUser{}, &activityRow{}, &profileRow{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return db, nil
}

func (b *Backend) Auth() backend.AuthClient { return b }
func (b *Backend) Tables() backend.TableClient { return b }
func (b *Backend) Storage() backend.StorageClient { return b }

func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormWriter struct {
	log *logging.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warnf(format, args...)
}

// ensureDirForSQLite creates the parent dir of a file DSN.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
