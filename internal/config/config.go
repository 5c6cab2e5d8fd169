package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultKVName         = "studia.db"
	DefaultLocalDBName    = "backend.db"
	DefaultLogName        = "studia.log"

	BackendLocal  = "local"
	BackendRemote = "remote"
)

type Keymap struct {
	Quit      string `toml:"quit"`
	Add       string `toml:"add"`
	Up        string `toml:"up"`
	Down      string `toml:"down"`
	Complete  string `toml:"complete"`
	Delete    string `toml:"delete"`
	Menu      string `toml:"menu"`
	Confirm   string `toml:"confirm"`
	Cancel    string `toml:"cancel"`
	Edit      string `toml:"edit"`
	Tasks     string `toml:"tasks"`
	Calendar  string `toml:"calendar"`
	Settings  string `toml:"settings"`
	PrevMonth string `toml:"prev_month"`
	NextMonth string `toml:"next_month"`
}

type BackendConfig struct {
	Kind              string        `toml:"kind"`
	URL               string        `toml:"url"`
	AnonKey           string        `toml:"anon_key"`
	Timeout           time.Duration `toml:"timeout"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	Burst             int           `toml:"burst"`
}

type LocalConfig struct {
	DBPath    string `toml:"db_path"`
	FilesDir  string `toml:"files_dir"`
	JWTSecret string `toml:"jwt_secret"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type Config struct {
	DataDir string        `toml:"data_dir"`
	KVPath  string        `toml:"kv_path"`
	Backend BackendConfig `toml:"backend"`
	Local   LocalConfig   `toml:"local"`
	Log     LogConfig     `toml:"log"`
	Keys    Keymap        `toml:"keys"`
}

// ResolveConfigPath honours STUDIA_CONFIG, then the user config dir.
func ResolveConfigPath() string {
	if p := strings.TrimSpace(os.Getenv("STUDIA_CONFIG")); p != "" {
		return p
	}
	return filepath.Join(defaultDataDir(), DefaultConfigFileName)
}

// LoadOrCreate reads the TOML file at path, writing defaults on first launch.
// A .env file next to the working directory and STUDIA_* variables override it.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	_ = godotenv.Load()
	applyEnv(&cfg)
	cfg.fillPaths()
	return cfg, cfg.validate()
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("STUDIA_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("STUDIA_BACKEND"); v != "" {
		cfg.Backend.Kind = strings.ToLower(v)
	}
	if v := os.Getenv("STUDIA_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("STUDIA_ANON_KEY"); v != "" {
		cfg.Backend.AnonKey = v
	}
	if v := os.Getenv("STUDIA_JWT_SECRET"); v != "" {
		cfg.Local.JWTSecret = v
	}
	if v := os.Getenv("STUDIA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("STUDIA_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = d
		}
	}
	if v := os.Getenv("STUDIA_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backend.RequestsPerSecond = f
		}
	}
}

// fillPaths resolves empty or relative paths against DataDir.
func (c *Config) fillPaths() {
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	c.KVPath = inDataDir(c.DataDir, c.KVPath, DefaultKVName)
	c.Local.DBPath = inDataDir(c.DataDir, c.Local.DBPath, DefaultLocalDBName)
	c.Local.FilesDir = inDataDir(c.DataDir, c.Local.FilesDir, "files")
	c.Log.File = inDataDir(c.DataDir, c.Log.File, DefaultLogName)
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = 15 * time.Second
	}
}

func (c Config) validate() error {
	switch c.Backend.Kind {
	case BackendLocal:
		if c.Local.JWTSecret == "" {
			return errors.New("local.jwt_secret is required for the local backend")
		}
	case BackendRemote:
		if c.Backend.URL == "" || c.Backend.AnonKey == "" {
			return errors.New("backend.url and backend.anon_key are required for the remote backend")
		}
	default:
		return errors.New("backend.kind must be \"local\" or \"remote\"")
	}
	return nil
}

func inDataDir(dataDir, value, fallback string) string {
	if value == "" {
		value = fallback
	}
	if filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(dataDir, value)
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".studia"
	}
	return filepath.Join(dir, "studia")
}

func defaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			Kind:              BackendLocal,
			Timeout:           15 * time.Second,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Local: LocalConfig{
			JWTSecret: "studia-local-dev-secret",
		},
		Log: LogConfig{
			Level: "info",
		},
		Keys: DefaultKeymap(),
	}
}

func DefaultKeymap() Keymap {
	return Keymap{
		Quit:      "q",
		Add:       "a",
		Up:        "k",
		Down:      "j",
		Complete:  " ",
		Delete:    "d",
		Menu:      "enter",
		Confirm:   "enter",
		Cancel:    "esc",
		Edit:      "e",
		Tasks:     "1",
		Calendar:  "2",
		Settings:  "3",
		PrevMonth: "h",
		NextMonth: "l",
	}
}
