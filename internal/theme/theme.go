// Package theme maps the light/dark mode to a palette and holds the
// process-wide appearance settings.
package theme

import (
	"sync"

	"github.com/charmbracelet/lipgloss"

	"studia/internal/prefs"
)

type Mode string

const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

func ParseMode(s string) Mode {
	if Mode(s) == Dark {
		return Dark
	}
	return Light
}

type Palette struct {
	Background    string
	TextPrimary   string
	TextSecondary string
	Accent        string
	Card          string
	Border        string
}

var (
	lightPalette = Palette{
		Background:    "#FFFFFF",
		TextPrimary:   "#333333",
		TextSecondary: "#555555",
		Accent:        "#FA774C",
		Card:          "#F8F8F8",
		Border:        "#F0F0F0",
	}
	darkPalette = Palette{
		Background:    "#0F0F0F",
		TextPrimary:   "#EFEFEF",
		TextSecondary: "#BBBBBB",
		Accent:        "#FA774C",
		Card:          "#1A1A1A",
		Border:        "#262626",
	}
)

// Resolve is pure: the same mode always yields the same palette.
func Resolve(mode Mode) Palette {
	if mode == Dark {
		return darkPalette
	}
	return lightPalette
}

// Theme is loaded once at startup and shared by every screen. Mutators
// apply the change in memory first, then persist it and return the write
// error.
type Theme struct {
	mu           sync.RWMutex
	prefs        *prefs.Store
	mode         Mode
	textScale    float64
	reduceMotion bool
}

func Load(p *prefs.Store) *Theme {
	return &Theme{
		prefs:        p,
		mode:         ParseMode(p.ThemeMode()),
		textScale:    p.TextScale(),
		reduceMotion: p.Bool(prefs.KeyReduceMotion),
	}
}

// Reload re-reads the stored preferences, e.g. after they were cleared.
func (t *Theme) Reload() {
	mode := ParseMode(t.prefs.ThemeMode())
	scale := t.prefs.TextScale()
	reduce := t.prefs.Bool(prefs.KeyReduceMotion)

	t.mu.Lock()
	t.mode, t.textScale, t.reduceMotion = mode, scale, reduce
	t.mu.Unlock()
}

func (t *Theme) Mode() Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

func (t *Theme) Palette() Palette {
	return Resolve(t.Mode())
}

func (t *Theme) TextScale() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.textScale
}

func (t *Theme) ReduceMotion() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.reduceMotion
}

func (t *Theme) SetMode(mode Mode) error {
	t.mu.Lock()
	t.mode = mode
	t.mu.Unlock()
	return t.prefs.SetThemeMode(string(mode))
}

func (t *Theme) Toggle() error {
	next := Dark
	if t.Mode() == Dark {
		next = Light
	}
	return t.SetMode(next)
}

func (t *Theme) SetTextScale(scale float64) error {
	scale = prefs.ClampTextScale(scale)
	t.mu.Lock()
	t.textScale = scale
	t.mu.Unlock()
	return t.prefs.SetTextScale(scale)
}

// SetLargeText flips the large-text flag and the scale that goes with it.
func (t *Theme) SetLargeText(on bool) error {
	scale := prefs.DefaultTextScale
	if on {
		scale = prefs.LargeTextScale
	}
	t.mu.Lock()
	t.textScale = scale
	t.mu.Unlock()
	return t.prefs.SetLargeText(on)
}

func (t *Theme) SetReduceMotion(on bool) error {
	t.mu.Lock()
	t.reduceMotion = on
	t.mu.Unlock()
	return t.prefs.SetBool(prefs.KeyReduceMotion, on)
}

// Styles are the lipgloss styles derived from the current palette.
type Styles struct {
	App      lipgloss.Style
	Title    lipgloss.Style
	Text     lipgloss.Style
	Muted    lipgloss.Style
	Accent   lipgloss.Style
	Card     lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Alert    lipgloss.Style
	Tab      lipgloss.Style
	TabOn    lipgloss.Style
}

func (t *Theme) Styles() Styles {
	return NewStyles(t.Palette(), t.TextScale())
}

// NewStyles builds styles for a palette. Terminals cannot resize glyphs, so
// scales above 1 render body text bold with extra padding instead.
func NewStyles(p Palette, textScale float64) Styles {
	large := textScale > prefs.DefaultTextScale
	pad := 0
	if large {
		pad = 1
	}

	text := lipgloss.NewStyle().Foreground(lipgloss.Color(p.TextPrimary)).Bold(large)
	return Styles{
		App:      lipgloss.NewStyle().Background(lipgloss.Color(p.Background)).Padding(pad, 1),
		Title:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.TextPrimary)).Bold(true).MarginBottom(1),
		Text:     text,
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.TextSecondary)),
		Accent:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)).Bold(true),
		Card:     lipgloss.NewStyle().Background(lipgloss.Color(p.Card)).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(p.Border)).Padding(0, 1),
		Selected: text.Foreground(lipgloss.Color(p.Accent)).Bold(true),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF7675")),
		Alert:    lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color(p.Accent)).Padding(1, 2),
		Tab:      lipgloss.NewStyle().Foreground(lipgloss.Color(p.TextSecondary)).Padding(0, 1),
		TabOn:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)).Bold(true).Underline(true).Padding(0, 1),
	}
}

// Swatch is a block filled with a task color.
func Swatch(color string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
}
