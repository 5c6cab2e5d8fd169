package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"studia/internal/profile"
	"studia/internal/theme"
)

const (
	profName = iota
	profNickname
	profEmail
	profPassword
	profConfirm
	profAvatar
	profCount
)

var profileLabels = [profCount]string{
	"Name",
	"Nickname",
	"Email",
	"New password",
	"Confirm password",
	"Avatar image path",
}

type profileForm struct {
	inputs    [profCount]textinput.Model
	index     int
	avatarURL string
	loading   bool
	saving    bool
}

func newProfileForm() *profileForm {
	f := &profileForm{loading: true}
	for i, label := range profileLabels {
		ti := textinput.New()
		ti.Placeholder = label
		ti.CharLimit = 256
		ti.Width = 40
		if i == profPassword || i == profConfirm {
			ti.EchoMode = textinput.EchoPassword
		}
		f.inputs[i] = ti
	}
	f.inputs[0].Focus()
	return f
}

func (f *profileForm) fill(l profile.Loaded) {
	form := profile.FormFrom(l)
	f.inputs[profName].SetValue(form.Name)
	f.inputs[profNickname].SetValue(form.Nickname)
	f.inputs[profEmail].SetValue(form.Email)
	f.avatarURL = form.AvatarURL
	f.loading = false
}

func (f *profileForm) form() profile.Form {
	return profile.Form{
		Name:            f.inputs[profName].Value(),
		Nickname:        f.inputs[profNickname].Value(),
		Email:           f.inputs[profEmail].Value(),
		NewPassword:     f.inputs[profPassword].Value(),
		ConfirmPassword: f.inputs[profConfirm].Value(),
		AvatarURL:       f.avatarURL,
		AvatarPath:      strings.TrimSpace(f.inputs[profAvatar].Value()),
	}
}

func (f *profileForm) moveTo(idx int) {
	f.inputs[f.index].Blur()
	f.index = wrapIndex(idx, profCount)
	f.inputs[f.index].Focus()
}

type profileLoadedMsg struct {
	loaded profile.Loaded
	err    error
}

type profileSavedMsg struct {
	result profile.Result
	err    error
}

func (m Model) openProfile() (tea.Model, tea.Cmd) {
	editor := m.svc.Profiles
	m.profile = newProfileForm()
	m.screen = screenProfile
	m.status = ""
	return m, m.svc.call(func(ctx context.Context) tea.Msg {
		l, err := editor.Load(ctx)
		return profileLoadedMsg{loaded: l, err: err}
	})
}

func (m Model) closeProfile() (Model, tea.Cmd) {
	m.profile = nil
	return m.focus(screenSettings)
}

func (m Model) updateProfile(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.profile
	if f == nil {
		return m.focus(screenSettings)
	}
	if msg.String() == m.keys.Cancel {
		return m.closeProfile()
	}
	if f.loading || f.saving {
		return m, nil
	}

	switch msg.String() {
	case "tab", "down":
		f.moveTo(f.index + 1)
		return m, nil
	case "shift+tab", "up":
		f.moveTo(f.index - 1)
		return m, nil
	case "ctrl+s":
		return m.saveProfile()
	case m.keys.Confirm:
		if f.index < profCount-1 {
			f.moveTo(f.index + 1)
			return m, nil
		}
		return m.saveProfile()
	}

	var cmd tea.Cmd
	f.inputs[f.index], cmd = f.inputs[f.index].Update(msg)
	return m, cmd
}

func (m Model) saveProfile() (tea.Model, tea.Cmd) {
	editor := m.svc.Profiles
	form := m.profile.form()
	if err := editor.Validate(form); err != nil {
		return m.showError(err), nil
	}
	m.profile.saving = true
	m.status = "Saving profile..."
	return m, m.svc.call(func(ctx context.Context) tea.Msg {
		res, err := editor.Save(ctx, form)
		return profileSavedMsg{result: res, err: err}
	})
}

func (m Model) applyProfileResult(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.profile == nil {
		return m, nil
	}
	switch msg := msg.(type) {
	case profileLoadedMsg:
		if msg.err != nil {
			m.profile.loading = false
			return m.showError(msg.err), nil
		}
		m.profile.fill(msg.loaded)
		return m, textinput.Blink
	case profileSavedMsg:
		m.profile.saving = false
		m.status = ""
		if msg.err != nil {
			return m.showError(msg.err), nil
		}
		if failures := msg.result.Failures(); len(failures) > 0 {
			if msg.result.AvatarURL != "" {
				m.profile.avatarURL = msg.result.AvatarURL
			}
			return m.showInfo("Some changes were not saved", strings.Join(failures, "\n")), nil
		}
		next, cmd := m.closeProfile()
		return next.showInfo("Profile updated", profileSummary(msg.result)), cmd
	}
	return m, nil
}

func profileSummary(r profile.Result) string {
	parts := []string{"Your profile was saved."}
	if r.EmailChanged {
		parts = append(parts, "Check your inbox to confirm the new email.")
	}
	if r.PasswordChanged {
		parts = append(parts, "Your password was changed.")
	}
	return strings.Join(parts, " ")
}

func (m Model) viewProfile(styles theme.Styles) string {
	f := m.profile
	if f == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(styles.Title.Render("Edit profile"))
	b.WriteString("\n")
	if f.loading {
		b.WriteString(styles.Muted.Render("Loading profile..."))
		return b.String()
	}

	avatar := "no picture"
	if f.avatarURL != "" {
		avatar = f.avatarURL
	}
	b.WriteString(styles.Muted.Render("Avatar: "+avatar) + "\n\n")

	for i, label := range profileLabels {
		prefix := "  "
		if i == f.index {
			prefix = "> "
		}
		b.WriteString(prefix + styles.Muted.Render(label) + "\n")
		b.WriteString("  " + f.inputs[i].View() + "\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.Muted.Render(fmt.Sprintf("tab move • enter next/save • ctrl+s save • %s back", m.keys.Cancel)))
	return b.String()
}
