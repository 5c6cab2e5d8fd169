package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"studia/internal/task"
	"studia/internal/theme"
)

type menuAction int

const (
	actionDone menuAction = iota
	actionEdit
	actionDelete
	actionClose
)

var menuLabels = [...]string{"Mark as done", "Edit", "Delete", "Close"}

// taskList is the pending list state. menuFor is the id of the row whose
// action menu is open, empty when none is.
type taskList struct {
	tasks      []task.Task
	cursor     int
	menuFor    string
	menuIndex  int
	pendingDel *task.Task
	loading    bool
}

func (l *taskList) setTasks(tasks []task.Task) {
	l.tasks = tasks
	l.loading = false
	l.cursor = clampCursor(l.cursor, len(tasks))
	if l.menuFor != "" && l.indexOf(l.menuFor) < 0 {
		l.closeMenu()
	}
}

func (l taskList) indexOf(id string) int {
	for i, t := range l.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (l taskList) selected() (task.Task, bool) {
	if len(l.tasks) == 0 {
		return task.Task{}, false
	}
	return l.tasks[clampCursor(l.cursor, len(l.tasks))], true
}

func (l *taskList) move(delta int) {
	l.cursor = clampCursor(l.cursor+delta, len(l.tasks))
}

func (l taskList) menuOpen() bool { return l.menuFor != "" }

// toggleMenu opens the menu on the selected row, or closes it when that row
// already has it open. Only one row has a menu at a time.
func (l *taskList) toggleMenu() {
	t, ok := l.selected()
	if !ok {
		return
	}
	if l.menuFor == t.ID {
		l.closeMenu()
		return
	}
	l.menuFor = t.ID
	l.menuIndex = 0
}

func (l *taskList) closeMenu() {
	l.menuFor = ""
	l.menuIndex = 0
}

func (l *taskList) askDelete(t task.Task) {
	l.closeMenu()
	l.pendingDel = &t
}

type tasksMsg struct {
	tasks []task.Task
	err   error
}

type taskChangedMsg struct {
	op  string
	id  string
	err error
}

func (m Model) fetchTasks() tea.Cmd {
	store := m.svc.Tasks
	return m.svc.call(func(ctx context.Context) tea.Msg {
		tasks, err := store.ListPending(ctx)
		return tasksMsg{tasks: tasks, err: err}
	})
}

func (m Model) markDone(t task.Task) tea.Cmd {
	store := m.svc.Tasks
	return m.svc.call(func(ctx context.Context) tea.Msg {
		return taskChangedMsg{op: "Completed", id: t.ID, err: store.MarkDone(ctx, t.ID)}
	})
}

func (m Model) deleteTask(t task.Task) tea.Cmd {
	store := m.svc.Tasks
	return m.svc.call(func(ctx context.Context) tea.Msg {
		return taskChangedMsg{op: "Deleted", id: t.ID, err: store.Delete(ctx, t.ID)}
	})
}

func (m Model) applyTaskResult(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tasksMsg:
		if msg.err != nil {
			m.list.loading = false
			return m.showError(msg.err), nil
		}
		m.list.setTasks(msg.tasks)
		m.cal.tasks = msg.tasks
		return m, nil
	case taskChangedMsg:
		if msg.err != nil {
			return m.showError(msg.err), nil
		}
		m.status = msg.op + " task"
		return m, m.fetchTasks()
	}
	return m, nil
}

func (m Model) updateTasks(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if m.list.pendingDel != nil {
		return m.updateDeleteConfirm(key)
	}
	if m.list.menuOpen() {
		return m.updateMenu(key)
	}

	switch key {
	case m.keys.Down, "down":
		m.list.move(1)
	case m.keys.Up, "up":
		m.list.move(-1)
	case m.keys.Add:
		return m.openTaskForm(nil)
	case m.keys.Menu:
		m.list.toggleMenu()
	case m.keys.Complete:
		if t, ok := m.list.selected(); ok {
			return m, m.markDone(t)
		}
	case m.keys.Delete:
		if t, ok := m.list.selected(); ok {
			m.list.askDelete(t)
			m.status = fmt.Sprintf("Delete %q? y/n", t.Title)
		}
	case m.keys.Edit:
		if t, ok := m.list.selected(); ok {
			return m.openTaskForm(&t)
		}
	}
	return m, nil
}

func (m Model) updateMenu(key string) (tea.Model, tea.Cmd) {
	switch key {
	case m.keys.Cancel:
		m.list.closeMenu()
	case m.keys.Down, "down", "tab":
		m.list.menuIndex = wrapIndex(m.list.menuIndex+1, len(menuLabels))
	case m.keys.Up, "up", "shift+tab":
		m.list.menuIndex = wrapIndex(m.list.menuIndex-1, len(menuLabels))
	case m.keys.Menu:
		return m.runMenuAction(menuAction(m.list.menuIndex))
	}
	return m, nil
}

func (m Model) runMenuAction(a menuAction) (tea.Model, tea.Cmd) {
	idx := m.list.indexOf(m.list.menuFor)
	m.list.closeMenu()
	if idx < 0 {
		return m, nil
	}
	t := m.list.tasks[idx]
	switch a {
	case actionDone:
		return m, m.markDone(t)
	case actionEdit:
		return m.openTaskForm(&t)
	case actionDelete:
		m.list.askDelete(t)
		m.status = fmt.Sprintf("Delete %q? y/n", t.Title)
	}
	return m, nil
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.keys.Cancel:
		m.list.pendingDel = nil
		m.status = "Delete cancelled"
		return m, nil
	case "y", "Y":
		t := *m.list.pendingDel
		m.list.pendingDel = nil
		m.status = ""
		return m, m.deleteTask(t)
	}
	return m, nil
}

func (m Model) viewTasks(styles theme.Styles) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Pending tasks"))
	b.WriteString("\n")

	switch {
	case m.list.loading && len(m.list.tasks) == 0:
		b.WriteString(styles.Muted.Render("Loading..."))
	case len(m.list.tasks) == 0:
		b.WriteString(styles.Muted.Render(fmt.Sprintf("No pending tasks. Press '%s' to add one.", m.keys.Add)))
	default:
		now := m.svc.Now()
		for i, t := range m.list.tasks {
			b.WriteString(m.renderTaskRow(styles, t, i == m.list.cursor, now))
			b.WriteString("\n")
			if t.ID == m.list.menuFor {
				b.WriteString(m.renderMenu(styles))
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.Muted.Render(renderTaskHelp(m)))
	return b.String()
}

func (m Model) renderTaskRow(styles theme.Styles, t task.Task, selected bool, now time.Time) string {
	cursor := "  "
	title := styles.Text.Render(t.Title)
	if selected {
		cursor = "> "
		title = styles.Selected.Render(t.Title)
	}
	line := fmt.Sprintf("%s%s %s", cursor, theme.Swatch(t.DisplayColor()), title)
	if t.DueDate != "" {
		line += "  " + styles.Accent.Render(task.DueLabel(t.DueDate, now))
	}

	var details []string
	if t.Subject != "" {
		details = append(details, t.Subject)
	}
	if t.DueDate != "" {
		details = append(details, "due "+t.DueDate)
	}
	if t.Teacher != "" {
		details = append(details, "teacher "+t.Teacher)
	}
	if t.Room != "" {
		details = append(details, "room "+t.Room)
	}
	if len(details) > 0 {
		line += "\n    " + styles.Muted.Render(strings.Join(details, " • "))
	}
	return line
}

func (m Model) renderMenu(styles theme.Styles) string {
	var b strings.Builder
	for i, label := range menuLabels {
		if i == m.list.menuIndex {
			b.WriteString("      " + styles.Selected.Render("› "+label) + "\n")
		} else {
			b.WriteString("        " + styles.Text.Render(label) + "\n")
		}
	}
	return b.String()
}

func renderTaskHelp(m Model) string {
	k := m.keys
	if m.list.menuOpen() {
		return fmt.Sprintf("%s/%s choose • %s run • %s close", k.Up, k.Down, k.Menu, k.Cancel)
	}
	return fmt.Sprintf("%s/%s move • %s add • %s menu • %s done • %s delete • %s edit • %s quit",
		k.Up, k.Down, k.Add, k.Menu, keyName(k.Complete), k.Delete, k.Edit, k.Quit)
}

func keyName(k string) string {
	if k == " " {
		return "space"
	}
	return k
}
