package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"studia/internal/account"
	"studia/internal/app"
	"studia/internal/apperr"
	"studia/internal/backend"
	"studia/internal/config"
	"studia/internal/logging"
	"studia/internal/prefs"
	"studia/internal/profile"
	"studia/internal/share"
	"studia/internal/task"
	"studia/internal/theme"
)

type TaskStore interface {
	ListPending(ctx context.Context) ([]task.Task, error)
	Create(ctx context.Context, f task.Fields) (task.Task, error)
	Update(ctx context.Context, id string, p task.Patch) error
	MarkDone(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type ProfileEditor interface {
	Load(ctx context.Context) (profile.Loaded, error)
	Validate(f profile.Form) error
	Save(ctx context.Context, f profile.Form) (profile.Result, error)
}

type Exporter interface {
	Write(ctx context.Context, dir string) (string, error)
}

type Sizer interface {
	Size() (int64, error)
}

// Services is everything the screens call into.
type Services struct {
	Auth      backend.AuthClient
	Tasks     TaskStore
	Profiles  ProfileEditor
	Exporter  Exporter
	Sharer    share.Sharer
	Prefs     *prefs.Store
	Theme     *theme.Theme
	Storage   Sizer
	Keys      config.Keymap
	Timeout   time.Duration
	ExportDir string
	Log       *logging.Logger
	Now       func() time.Time
}

func FromApp(a *app.App) Services {
	return Services{
		Auth:      a.Backend.Auth(),
		Tasks:     a.Tasks,
		Profiles:  a.Profiles,
		Exporter:  a.Exporter,
		Sharer:    a.Sharer,
		Prefs:     a.Prefs,
		Theme:     a.Theme,
		Storage:   a.KV,
		Keys:      a.Config.Keys,
		Timeout:   a.Config.Backend.Timeout,
		ExportDir: account.CacheDir(),
		Log:       a.Log,
		Now:       time.Now,
	}
}

// call runs fn off the event loop with a bounded context.
func (s Services) call(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	timeout := s.Timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return fn(ctx)
	}
}

type screen int

const (
	screenLoading screen = iota
	screenWelcome
	screenLogin
	screenRegister
	screenTasks
	screenTaskForm
	screenCalendar
	screenSettings
	screenProfile
)

type alertBox struct {
	title string
	body  string
}

type sessionMsg struct {
	event   backend.SessionEvent
	session *backend.Session
}

type sessionLoadedMsg struct {
	session *backend.Session
	err     error
}

type Model struct {
	svc     Services
	keys    config.Keymap
	screen  screen
	session *backend.Session
	status  string
	alert   *alertBox
	width   int

	auth     authForm
	list     taskList
	form     *taskForm
	cal      calendarView
	settings settingsView
	profile  *profileForm
}

func New(svc Services) Model {
	if svc.Log == nil {
		svc.Log = logging.Nop()
	}
	if svc.Now == nil {
		svc.Now = time.Now
	}
	return Model{
		svc:    svc,
		keys:   svc.Keys,
		screen: screenLoading,
		auth:   newAuthForm(authWelcome),
		cal:    newCalendarView(svc.Now()),
	}
}

// Run starts the TUI and routes session changes into it until it exits.
func Run(svc Services) error {
	program := tea.NewProgram(New(svc), tea.WithAltScreen())
	unsubscribe := svc.Auth.OnSessionChange(func(e backend.SessionEvent, s *backend.Session) {
		program.Send(sessionMsg{event: e, session: s})
	})
	defer unsubscribe()

	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	auth := m.svc.Auth
	return m.svc.call(func(ctx context.Context) tea.Msg {
		s, err := auth.Session(ctx)
		return sessionLoadedMsg{session: s, err: err}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.alert != nil {
			m.alert = nil
			return m, nil
		}
		return m.handleKey(msg)
	case sessionLoadedMsg:
		if msg.err != nil {
			m.svc.Log.Warnw("session restore failed", "error", msg.err)
		}
		if msg.session != nil {
			return m.signedIn(msg.session)
		}
		return m.signedOut(), nil
	case sessionMsg:
		switch msg.event {
		case backend.EventSignedOut:
			return m.signedOut(), nil
		case backend.EventSignedIn:
			if m.session == nil {
				return m.signedIn(msg.session)
			}
		}
		if msg.session != nil {
			m.session = msg.session
		}
		return m, nil
	}
	return m.route(msg)
}

// route hands result messages to the screen that issued them.
func (m Model) route(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case authResultMsg:
		return m.applyAuthResult(msg)
	case tasksMsg, taskChangedMsg:
		return m.applyTaskResult(msg)
	case taskSavedMsg:
		return m.applyTaskSaved(msg)
	case profileLoadedMsg, profileSavedMsg:
		return m.applyProfileResult(msg)
	case settingsResultMsg:
		return m.applySettingsResult(msg)
	case identityMsg:
		return m.applyIdentity(msg)
	}
	return m, nil
}

func (m Model) signedIn(s *backend.Session) (Model, tea.Cmd) {
	m.session = s
	m.auth = newAuthForm(authWelcome)
	if m.screen < screenTasks {
		return m.focus(screenTasks)
	}
	return m, nil
}

func (m Model) signedOut() Model {
	m.session = nil
	m.list = taskList{}
	m.form = nil
	m.profile = nil
	m.settings.identity = nil
	m.auth = newAuthForm(authWelcome)
	m.screen = screenWelcome
	m.status = ""
	return m
}

// focus switches screens; tabs that show tasks refetch on every visit.
func (m Model) focus(s screen) (Model, tea.Cmd) {
	m.screen = s
	m.status = ""
	switch s {
	case screenTasks, screenCalendar:
		m.list.loading = true
		return m, m.fetchTasks()
	case screenSettings:
		return m, tea.Batch(m.measureStorage(), m.loadIdentity())
	}
	return m, nil
}

func (m Model) showError(err error) Model {
	m.svc.Log.Debugw("showing error", "error", err)
	m.alert = &alertBox{title: apperr.Title(err), body: apperr.Message(err)}
	return m
}

func (m Model) showInfo(title, body string) Model {
	m.alert = &alertBox{title: title, body: body}
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenLoading:
		return m, nil
	case screenWelcome, screenLogin, screenRegister:
		return m.updateAuth(msg)
	case screenTaskForm:
		return m.updateTaskForm(msg)
	case screenProfile:
		return m.updateProfile(msg)
	}

	if m.tabKeysActive() {
		switch msg.String() {
		case m.keys.Quit:
			return m, tea.Quit
		case m.keys.Tasks:
			return m.focus(screenTasks)
		case m.keys.Calendar:
			return m.focus(screenCalendar)
		case m.keys.Settings:
			return m.focus(screenSettings)
		}
	}

	switch m.screen {
	case screenTasks:
		return m.updateTasks(msg)
	case screenCalendar:
		return m.updateCalendar(msg)
	case screenSettings:
		return m.updateSettings(msg)
	}
	return m, nil
}

// tabKeysActive is false while a row menu or a confirmation owns the keys.
func (m Model) tabKeysActive() bool {
	return !(m.screen == screenTasks && (m.list.menuOpen() || m.list.pendingDel != nil))
}

func (m Model) View() string {
	styles := m.svc.Theme.Styles()
	var body string
	switch m.screen {
	case screenLoading:
		body = styles.Muted.Render("Loading...")
	case screenWelcome, screenLogin, screenRegister:
		body = m.viewAuth(styles)
	case screenTasks:
		body = m.viewTasks(styles)
	case screenTaskForm:
		body = m.viewTaskForm(styles)
	case screenCalendar:
		body = m.viewCalendar(styles)
	case screenSettings:
		body = m.viewSettings(styles)
	case screenProfile:
		body = m.viewProfile(styles)
	}

	var b strings.Builder
	if m.screen >= screenTasks {
		b.WriteString(m.viewTabs(styles))
		b.WriteString("\n\n")
	}
	b.WriteString(body)
	if m.status != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.Muted.Render(m.status))
	}
	if m.alert != nil {
		b.WriteString("\n\n")
		b.WriteString(styles.Alert.Render(fmt.Sprintf("%s\n\n%s\n\n%s",
			styles.Title.Render(m.alert.title), m.alert.body, styles.Muted.Render("press any key"))))
	}
	return styles.App.Render(b.String())
}

func (m Model) viewTabs(styles theme.Styles) string {
	tabs := []struct {
		key   string
		label string
		on    bool
	}{
		{m.keys.Tasks, "Tasks", m.screen == screenTasks || m.screen == screenTaskForm},
		{m.keys.Calendar, "Calendar", m.screen == screenCalendar},
		{m.keys.Settings, "Settings", m.screen == screenSettings || m.screen == screenProfile},
	}
	parts := make([]string, 0, len(tabs))
	for _, t := range tabs {
		label := fmt.Sprintf("%s %s", t.key, t.label)
		if t.on {
			parts = append(parts, styles.TabOn.Render(label))
		} else {
			parts = append(parts, styles.Tab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func emptyPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(empty)"
	}
	return v
}
