package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"studia/internal/apperr"
	"studia/internal/backend"
	"studia/internal/theme"
)

type authMode int

const (
	authWelcome authMode = iota
	authLogin
	authRegister
)

const (
	opSignIn = "sign in"
	opSignUp = "sign up"
	opReset  = "reset password"
)

var formValidator = apperr.NewValidator()

type loginInput struct {
	Email    string `label:"Email" validate:"required,email"`
	Password string `label:"Password" validate:"required"`
}

type registerInput struct {
	Name     string `label:"Name" validate:"max=120"`
	Email    string `label:"Email" validate:"required,email"`
	Password string `label:"Password" validate:"required,min=6"`
}

type resetInput struct {
	Email string `label:"Email" validate:"required,email"`
}

type authForm struct {
	mode   authMode
	labels []string
	inputs []textinput.Model
	index  int
	busy   bool
}

func newAuthForm(mode authMode) authForm {
	f := authForm{mode: mode}
	switch mode {
	case authLogin:
		f.labels = []string{"Email", "Password"}
	case authRegister:
		f.labels = []string{"Name", "Email", "Password"}
	}
	for _, label := range f.labels {
		ti := textinput.New()
		ti.Placeholder = label
		ti.CharLimit = 256
		ti.Width = 40
		if label == "Password" {
			ti.EchoMode = textinput.EchoPassword
		}
		f.inputs = append(f.inputs, ti)
	}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

func (f authForm) value(label string) string {
	for i, l := range f.labels {
		if l == label {
			return strings.TrimSpace(f.inputs[i].Value())
		}
	}
	return ""
}

func (f *authForm) moveTo(idx int) {
	f.inputs[f.index].Blur()
	f.index = wrapIndex(idx, len(f.inputs))
	f.inputs[f.index].Focus()
}

type authResultMsg struct {
	op      string
	session *backend.Session
	err     error
}

func (m Model) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if m.auth.mode == authWelcome {
		switch key {
		case "l", m.keys.Confirm:
			m.auth = newAuthForm(authLogin)
			m.screen = screenLogin
		case "r":
			m.auth = newAuthForm(authRegister)
			m.screen = screenRegister
		case m.keys.Quit:
			return m, tea.Quit
		}
		return m, nil
	}
	if m.auth.busy {
		return m, nil
	}

	switch key {
	case m.keys.Cancel:
		m.auth = newAuthForm(authWelcome)
		m.screen = screenWelcome
		m.status = ""
		return m, nil
	case "tab", "down":
		m.auth.moveTo(m.auth.index + 1)
		return m, nil
	case "shift+tab", "up":
		m.auth.moveTo(m.auth.index - 1)
		return m, nil
	case "ctrl+r":
		if m.auth.mode == authLogin {
			return m.submitReset()
		}
		return m, nil
	case m.keys.Confirm:
		if m.auth.index < len(m.auth.inputs)-1 {
			m.auth.moveTo(m.auth.index + 1)
			return m, nil
		}
		return m.submitAuth()
	}

	var cmd tea.Cmd
	m.auth.inputs[m.auth.index], cmd = m.auth.inputs[m.auth.index].Update(msg)
	return m, cmd
}

func (m Model) submitAuth() (tea.Model, tea.Cmd) {
	auth := m.svc.Auth
	switch m.auth.mode {
	case authLogin:
		in := loginInput{Email: m.auth.value("Email"), Password: m.auth.inputs[1].Value()}
		if err := formValidator.Struct(in); err != nil {
			return m.showError(apperr.Invalid(opSignIn, err)), nil
		}
		m.auth.busy = true
		m.status = "Signing in..."
		return m, m.svc.call(func(ctx context.Context) tea.Msg {
			s, err := auth.SignIn(ctx, in.Email, in.Password)
			return authResultMsg{op: opSignIn, session: s, err: err}
		})
	case authRegister:
		in := registerInput{Name: m.auth.value("Name"), Email: m.auth.value("Email"), Password: m.auth.inputs[2].Value()}
		if err := formValidator.Struct(in); err != nil {
			return m.showError(apperr.Invalid(opSignUp, err)), nil
		}
		var data map[string]any
		if in.Name != "" {
			data = map[string]any{"name": in.Name}
		}
		m.auth.busy = true
		m.status = "Creating account..."
		return m, m.svc.call(func(ctx context.Context) tea.Msg {
			_, err := auth.SignUp(ctx, in.Email, in.Password, data)
			return authResultMsg{op: opSignUp, err: err}
		})
	}
	return m, nil
}

func (m Model) submitReset() (tea.Model, tea.Cmd) {
	in := resetInput{Email: m.auth.value("Email")}
	if err := formValidator.Struct(in); err != nil {
		return m.showInfo("Enter your email", "Type the email to send the reset link to."), nil
	}
	auth := m.svc.Auth
	m.auth.busy = true
	m.status = "Sending reset link..."
	return m, m.svc.call(func(ctx context.Context) tea.Msg {
		return authResultMsg{op: opReset, err: auth.ResetPassword(ctx, in.Email)}
	})
}

func (m Model) applyAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	m.auth.busy = false
	m.status = ""
	if msg.err != nil {
		return m.showError(msg.err), nil
	}
	switch msg.op {
	case opSignIn:
		if msg.session != nil {
			return m.signedIn(msg.session)
		}
	case opSignUp:
		// Auto-confirmed accounts arrive signed in; the session event already navigated.
		if m.session != nil {
			return m, nil
		}
		m.auth = newAuthForm(authLogin)
		m.screen = screenLogin
		return m.showInfo("Account created", "Please confirm your email, then sign in."), nil
	case opReset:
		return m.showInfo("Check your inbox", "A password reset link was sent."), nil
	}
	return m, nil
}

func (m Model) viewAuth(styles theme.Styles) string {
	var b strings.Builder
	switch m.auth.mode {
	case authWelcome:
		b.WriteString(styles.Title.Render("Studia"))
		b.WriteString("\n")
		b.WriteString(styles.Text.Render("Organize your classes, homework and exams."))
		b.WriteString("\n\n")
		b.WriteString(styles.Accent.Render("l") + " sign in   " + styles.Accent.Render("r") + " create account   " +
			styles.Muted.Render(m.keys.Quit+" quit"))
		return b.String()
	case authLogin:
		b.WriteString(styles.Title.Render("Sign in"))
	case authRegister:
		b.WriteString(styles.Title.Render("Create account"))
	}
	b.WriteString("\n")
	for i, label := range m.auth.labels {
		prefix := "  "
		if i == m.auth.index {
			prefix = "> "
		}
		b.WriteString(prefix + styles.Muted.Render(label) + "\n")
		b.WriteString("  " + m.auth.inputs[i].View() + "\n")
	}
	b.WriteString("\n")
	help := "tab move • enter next/submit • esc back"
	if m.auth.mode == authLogin {
		help += " • ctrl+r forgot password"
	}
	b.WriteString(styles.Muted.Render(help))
	return b.String()
}
