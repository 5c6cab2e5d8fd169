package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"studia/internal/account"
	"studia/internal/prefs"
	"studia/internal/profile"
	"studia/internal/share"
	"studia/internal/theme"
)

const SupportEmail = "suporte@studia.app"

type settingKind int

const (
	settingAction settingKind = iota
	settingToggle
	settingTheme
	settingScale
)

type settingItem struct {
	section string
	label   string
	kind    settingKind
	key     string
}

const (
	itemProfile   = "profile"
	itemExport    = "export"
	itemClear     = "clear"
	itemInvite    = "invite"
	itemHelp      = "help"
	itemTerms     = "terms"
	itemPrivacy   = "privacy"
	itemLogout    = "logout"
	textScaleStep = 0.1
)

var settingItems = []settingItem{
	{section: "Account", label: "Edit profile", key: itemProfile},
	{section: "Account", label: "Export my data", key: itemExport},
	{section: "Appearance", label: "Dark mode", kind: settingTheme},
	{section: "Privacy", label: "Public profile", kind: settingToggle, key: prefs.KeyProfilePublic},
	{section: "Privacy", label: "Show last seen", kind: settingToggle, key: prefs.KeyShowLastSeen},
	{section: "Notifications", label: "Push notifications", kind: settingToggle, key: prefs.KeyNotifPush},
	{section: "Notifications", label: "Email notifications", kind: settingToggle, key: prefs.KeyNotifEmail},
	{section: "Accessibility", label: "Large text", kind: settingToggle, key: prefs.KeyLargeText},
	{section: "Accessibility", label: "Reduce motion", kind: settingToggle, key: prefs.KeyReduceMotion},
	{section: "Accessibility", label: "Text scale", kind: settingScale, key: prefs.KeyTextScale},
	{section: "Storage", label: "Clear preferences cache", key: itemClear},
	{section: "Help", label: "Invite friends", key: itemInvite},
	{section: "Help", label: "Contact support", key: itemHelp},
	{section: "Help", label: "Terms of use", key: itemTerms},
	{section: "Help", label: "Privacy policy", key: itemPrivacy},
	{section: "", label: "Log out", key: itemLogout},
}

func helpText(key string) (title, body string) {
	switch key {
	case itemTerms:
		return "Terms of use", "Studia is provided as is to help you organize your studies. " +
			"You are responsible for the content you add and for keeping your password safe."
	case itemPrivacy:
		return "Privacy policy", "We store your account, profile and tasks only to run the app. " +
			"Preferences stay on this device. You can export your data at any time."
	default:
		return "Support", "Write to " + SupportEmail + " and we will get back to you."
	}
}

type settingsView struct {
	cursor   int
	size     int64
	sizeErr  error
	identity *profile.Loaded
}

type identityMsg struct {
	loaded profile.Loaded
	err    error
}

// loadIdentity fetches the name and email shown above the settings list.
func (m Model) loadIdentity() tea.Cmd {
	editor := m.svc.Profiles
	if editor == nil {
		return nil
	}
	return m.svc.call(func(ctx context.Context) tea.Msg {
		l, err := editor.Load(ctx)
		return identityMsg{loaded: l, err: err}
	})
}

func (m Model) applyIdentity(msg identityMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.svc.Log.Warnw("loading settings header failed", "error", msg.err)
		return m, nil
	}
	m.settings.identity = &msg.loaded
	return m, nil
}

type settingsResultMsg struct {
	op   string
	info string
	size int64
	err  error
}

func (m Model) measureStorage() tea.Cmd {
	kv := m.svc.Storage
	if kv == nil {
		return nil
	}
	return func() tea.Msg {
		size, err := kv.Size()
		return settingsResultMsg{op: "size", size: size, err: err}
	}
}

func (m Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item := settingItems[clampCursor(m.settings.cursor, len(settingItems))]
	switch msg.String() {
	case m.keys.Down, "down":
		m.settings.cursor = clampCursor(m.settings.cursor+1, len(settingItems))
	case m.keys.Up, "up":
		m.settings.cursor = clampCursor(m.settings.cursor-1, len(settingItems))
	case "left", "-":
		if item.kind == settingScale {
			_ = m.svc.Theme.SetTextScale(m.svc.Theme.TextScale() - textScaleStep)
		}
	case "right", "+", "=":
		if item.kind == settingScale {
			_ = m.svc.Theme.SetTextScale(m.svc.Theme.TextScale() + textScaleStep)
		}
	case m.keys.Confirm, m.keys.Complete:
		return m.activateSetting(item)
	}
	return m, nil
}

func (m Model) activateSetting(item settingItem) (tea.Model, tea.Cmd) {
	switch item.kind {
	case settingTheme:
		_ = m.svc.Theme.Toggle()
		return m, nil
	case settingScale:
		_ = m.svc.Theme.SetTextScale(prefs.DefaultTextScale)
		return m, nil
	case settingToggle:
		on := !m.svc.Prefs.Bool(item.key)
		switch item.key {
		case prefs.KeyLargeText:
			_ = m.svc.Theme.SetLargeText(on)
		case prefs.KeyReduceMotion:
			_ = m.svc.Theme.SetReduceMotion(on)
		default:
			_ = m.svc.Prefs.SetBool(item.key, on)
		}
		return m, nil
	}

	switch item.key {
	case itemProfile:
		return m.openProfile()
	case itemExport:
		return m.exportData()
	case itemClear:
		if err := m.svc.Prefs.Clear(); err != nil {
			return m.showInfo("Error", "Could not clear the cache."), nil
		}
		m.svc.Theme.Reload()
		m = m.showInfo("Done", "Preferences cache cleared.")
		return m, m.measureStorage()
	case itemInvite:
		m.share(share.Invite())
		m.status = "Invite copied to clipboard"
		return m, nil
	case itemHelp, itemTerms, itemPrivacy:
		return m.showInfo(helpText(item.key)), nil
	case itemLogout:
		auth := m.svc.Auth
		return m, m.svc.call(func(ctx context.Context) tea.Msg {
			return settingsResultMsg{op: "logout", err: auth.SignOut(ctx)}
		})
	}
	return m, nil
}

// share is fire-and-forget; the sharer logs its own failures.
func (m Model) share(p share.Payload) {
	if m.svc.Sharer == nil {
		return
	}
	_ = m.svc.Sharer.Share(p)
}

func (m Model) exportData() (tea.Model, tea.Cmd) {
	exporter, dir := m.svc.Exporter, m.svc.ExportDir
	m.status = "Exporting..."
	return m, m.svc.call(func(ctx context.Context) tea.Msg {
		path, err := exporter.Write(ctx, dir)
		return settingsResultMsg{op: "export", info: path, err: err}
	})
}

func (m Model) applySettingsResult(msg settingsResultMsg) (tea.Model, tea.Cmd) {
	switch msg.op {
	case "size":
		m.settings.size, m.settings.sizeErr = msg.size, msg.err
		return m, nil
	case "export":
		m.status = ""
		if msg.err != nil {
			m.svc.Log.Warnw("export failed", "error", msg.err)
			return m.showInfo("Error", "Could not export your data."), nil
		}
		m.share(account.SharePayload(msg.info))
		return m.showInfo("Export ready", fmt.Sprintf("Saved to %s and copied to the clipboard.", msg.info)), nil
	case "logout":
		if msg.err != nil {
			return m.showError(msg.err), nil
		}
		return m.signedOut(), nil
	}
	return m, nil
}

func (m Model) viewSettings(styles theme.Styles) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Settings"))
	b.WriteString("\n")
	if header := m.identityHeader(); header != "" {
		b.WriteString(styles.Text.Render(header))
		b.WriteString("\n")
	}

	section := ""
	for i, item := range settingItems {
		if item.section != section {
			section = item.section
			b.WriteString("\n")
			if section != "" {
				b.WriteString(styles.Accent.Render(section) + "\n")
			}
		}
		line := item.label + m.settingValue(item)
		if i == m.settings.cursor {
			b.WriteString(styles.Selected.Render("> "+line) + "\n")
		} else {
			b.WriteString(styles.Text.Render("  "+line) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.Muted.Render("Local data: " + m.storageLabel()))
	b.WriteString("\n")
	b.WriteString(styles.Muted.Render(fmt.Sprintf("%s/%s move • enter select • ←/→ text scale • %s quit",
		m.keys.Up, m.keys.Down, m.keys.Quit)))
	return b.String()
}

func (m Model) settingValue(item settingItem) string {
	switch item.kind {
	case settingTheme:
		return checkbox(m.svc.Theme.Mode() == theme.Dark)
	case settingToggle:
		return checkbox(m.svc.Prefs.Bool(item.key))
	case settingScale:
		return fmt.Sprintf(": %.1fx", m.svc.Theme.TextScale())
	}
	return ""
}

func (m Model) identityHeader() string {
	id := m.settings.identity
	if id == nil {
		return ""
	}
	name := id.Profile.Name
	if name == "" {
		name = "Student"
	}
	if id.Profile.Nickname != "" {
		name += " (" + id.Profile.Nickname + ")"
	}
	parts := []string{name}
	if id.Email != "" {
		parts = append(parts, id.Email)
	}
	if id.Profile.AvatarURL != "" {
		parts = append(parts, "picture set")
	}
	return strings.Join(parts, " • ")
}

func (m Model) storageLabel() string {
	if m.settings.sizeErr != nil {
		return "unavailable"
	}
	return humanize.Bytes(uint64(m.settings.size))
}

func checkbox(on bool) string {
	if on {
		return "  [x]"
	}
	return "  [ ]"
}
