// Package prefs stores device-local settings in the key-value store.
//
// Values are strings on disk and coerced on read: an absent or unparsable
// value yields the key's default. Writes return their error so callers can
// ignore it, and every failed write is logged.
package prefs

import (
	"math"
	"strconv"

	"studia/internal/logging"
)

const (
	KeyThemeMode     = "theme_mode"
	KeyTextScale     = "a11y_textScale"
	KeyReduceMotion  = "a11y_reduceMotion"
	KeyLargeText     = "a11y_largeText"
	KeyNotifPush     = "notif_push"
	KeyNotifEmail    = "notif_email"
	KeyProfilePublic = "privacy_profilePublic"
	KeyShowLastSeen  = "privacy_showLastSeen"
)

const (
	MinTextScale     = 0.8
	MaxTextScale     = 1.6
	DefaultTextScale = 1.0
	LargeTextScale   = 1.2
)

// AllKeys is every preference key; Clear removes exactly these.
var AllKeys = []string{
	KeyThemeMode,
	KeyTextScale,
	KeyReduceMotion,
	KeyLargeText,
	KeyNotifPush,
	KeyNotifEmail,
	KeyProfilePublic,
	KeyShowLastSeen,
}

var boolDefaults = map[string]bool{
	KeyReduceMotion:  false,
	KeyLargeText:     false,
	KeyNotifPush:     true,
	KeyNotifEmail:    false,
	KeyProfilePublic: true,
	KeyShowLastSeen:  false,
}

type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	MultiRemove(keys ...string) error
}

type Store struct {
	kv  KV
	log *logging.Logger
}

func New(kv KV, log *logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{kv: kv, log: log.WithComponent("prefs")}
}

func (s *Store) raw(key string) (string, bool) {
	v, ok, err := s.kv.Get(key)
	if err != nil {
		s.log.Warnw("preference read failed", "key", key, "error", err)
		return "", false
	}
	return v, ok
}

func (s *Store) set(key, value string) error {
	if err := s.kv.Set(key, value); err != nil {
		s.log.Warnw("preference write failed", "key", key, "error", err)
		return err
	}
	return nil
}

// ThemeMode is "light" or "dark".
func (s *Store) ThemeMode() string {
	v, _ := s.raw(KeyThemeMode)
	if v == "dark" {
		return "dark"
	}
	return "light"
}

func (s *Store) SetThemeMode(mode string) error {
	if mode != "dark" {
		mode = "light"
	}
	return s.set(KeyThemeMode, mode)
}

// Bool reads a flag; unknown keys default to false.
func (s *Store) Bool(key string) bool {
	def := boolDefaults[key]
	v, ok := s.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (s *Store) SetBool(key string, value bool) error {
	v := "0"
	if value {
		v = "1"
	}
	return s.set(key, v)
}

func (s *Store) TextScale() float64 {
	v, ok := s.raw(KeyTextScale)
	if !ok {
		return DefaultTextScale
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return DefaultTextScale
	}
	return ClampTextScale(f)
}

func (s *Store) SetTextScale(scale float64) error {
	return s.set(KeyTextScale, strconv.FormatFloat(ClampTextScale(scale), 'f', -1, 64))
}

// SetLargeText also moves the text scale: 1.2 when on, 1.0 when off.
func (s *Store) SetLargeText(on bool) error {
	if err := s.SetBool(KeyLargeText, on); err != nil {
		return err
	}
	scale := DefaultTextScale
	if on {
		scale = LargeTextScale
	}
	return s.SetTextScale(scale)
}

// Clear removes every preference; the auth session is not a preference and
// survives.
func (s *Store) Clear() error {
	if err := s.kv.MultiRemove(AllKeys...); err != nil {
		s.log.Warnw("clearing preferences failed", "error", err)
		return err
	}
	s.log.Infow("preferences cleared")
	return nil
}

func ClampTextScale(f float64) float64 {
	return math.Min(MaxTextScale, math.Max(MinTextScale, f))
}

// Snapshot is every preference with defaults applied.
type Snapshot struct {
	ThemeMode     string  `json:"theme_mode"`
	TextScale     float64 `json:"text_scale"`
	ReduceMotion  bool    `json:"reduce_motion"`
	LargeText     bool    `json:"large_text"`
	NotifPush     bool    `json:"notif_push"`
	NotifEmail    bool    `json:"notif_email"`
	ProfilePublic bool    `json:"profile_public"`
	ShowLastSeen  bool    `json:"show_last_seen"`
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		ThemeMode:     s.ThemeMode(),
		TextScale:     s.TextScale(),
		ReduceMotion:  s.Bool(KeyReduceMotion),
		LargeText:     s.Bool(KeyLargeText),
		NotifPush:     s.Bool(KeyNotifPush),
		NotifEmail:    s.Bool(KeyNotifEmail),
		ProfilePublic: s.Bool(KeyProfilePublic),
		ShowLastSeen:  s.Bool(KeyShowLastSeen),
	}
}
