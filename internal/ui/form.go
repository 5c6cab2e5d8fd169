package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"studia/internal/task"
	"studia/internal/theme"
)

const (
	fieldTitle = iota
	fieldSubject
	fieldDue
	fieldTeacher
	fieldRoom
	fieldColor
	fieldCount
)

var formLabels = [fieldCount]string{
	"Title",
	"Subject",
	"Due date (YYYY-MM-DD)",
	"Teacher",
	"Room",
	"Color (#RRGGBB, blank for subject color)",
}

// taskForm edits one task a field at a time. id is empty when adding.
type taskForm struct {
	id     string
	values [fieldCount]string
	index  int
	input  textinput.Model
	saving bool
}

func newTaskForm(t *task.Task) *taskForm {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 40

	f := &taskForm{input: ti}
	if t != nil {
		f.id = t.ID
		f.values = [fieldCount]string{t.Title, t.Subject, t.DueDate, t.Teacher, t.Room, t.Color}
	}
	f.load()
	f.input.Focus()
	return f
}

func (f *taskForm) editing() bool { return f.id != "" }

func (f *taskForm) load() {
	f.input.SetValue(f.values[f.index])
	f.input.Placeholder = formLabels[f.index]
	f.input.CursorEnd()
}

func (f *taskForm) store() {
	f.values[f.index] = f.input.Value()
}

func (f *taskForm) moveTo(idx int) {
	f.store()
	f.index = wrapIndex(idx, fieldCount)
	f.load()
}

// cycleSubject steps through the known subjects on the subject field.
func (f *taskForm) cycleSubject(delta int) {
	cur := strings.TrimSpace(f.input.Value())
	next := 0
	for i, s := range task.Subjects {
		if strings.EqualFold(s, cur) {
			next = wrapIndex(i+delta, len(task.Subjects))
			break
		}
	}
	f.input.SetValue(task.Subjects[next])
	f.input.CursorEnd()
	f.store()
}

func (f *taskForm) fields() task.Fields {
	v := func(i int) string { return strings.TrimSpace(f.values[i]) }
	return task.Fields{
		Title:   v(fieldTitle),
		Subject: v(fieldSubject),
		DueDate: v(fieldDue),
		Teacher: v(fieldTeacher),
		Room:    v(fieldRoom),
		Color:   v(fieldColor),
	}
}

func (f *taskForm) patch() task.Patch {
	in := f.fields()
	if in.Color == "" {
		in.Color = task.ColorForSubject(in.Subject)
	}
	due := task.CanonicalDueDate(in.DueDate)
	return task.Patch{
		Title:   &in.Title,
		Subject: &in.Subject,
		DueDate: &due,
		Teacher: &in.Teacher,
		Room:    &in.Room,
		Color:   &in.Color,
	}
}

type taskSavedMsg struct {
	created bool
	title   string
	err     error
}

func (m Model) openTaskForm(t *task.Task) (tea.Model, tea.Cmd) {
	m.list.closeMenu()
	m.form = newTaskForm(t)
	m.screen = screenTaskForm
	m.status = m.formPrompt()
	return m, textinput.Blink
}

func (m Model) updateTaskForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form == nil {
		return m.focus(screenTasks)
	}
	if m.form.saving {
		return m, nil
	}
	switch msg.String() {
	case m.keys.Cancel:
		m.form = nil
		var cmd tea.Cmd
		m, cmd = m.focus(screenTasks)
		m.status = "Edit cancelled"
		return m, cmd
	case "tab", "down":
		m.form.moveTo(m.form.index + 1)
		m.status = m.formPrompt()
		return m, nil
	case "shift+tab", "up":
		m.form.moveTo(m.form.index - 1)
		m.status = m.formPrompt()
		return m, nil
	case "ctrl+n":
		if m.form.index == fieldSubject {
			m.form.cycleSubject(1)
		}
		return m, nil
	case "ctrl+p":
		if m.form.index == fieldSubject {
			m.form.cycleSubject(-1)
		}
		return m, nil
	case "ctrl+s":
		m.form.store()
		return m.saveTaskForm()
	case m.keys.Confirm:
		m.form.store()
		if m.form.index >= fieldCount-1 {
			return m.saveTaskForm()
		}
		m.form.moveTo(m.form.index + 1)
		m.status = m.formPrompt()
		return m, nil
	}

	var cmd tea.Cmd
	m.form.input, cmd = m.form.input.Update(msg)
	return m, cmd
}

func (m Model) saveTaskForm() (tea.Model, tea.Cmd) {
	f := m.form
	store := m.svc.Tasks
	f.saving = true
	m.status = "Saving..."
	if f.editing() {
		id, p := f.id, f.patch()
		title := *p.Title
		return m, m.svc.call(func(ctx context.Context) tea.Msg {
			return taskSavedMsg{title: title, err: store.Update(ctx, id, p)}
		})
	}
	in := f.fields()
	return m, m.svc.call(func(ctx context.Context) tea.Msg {
		created, err := store.Create(ctx, in)
		return taskSavedMsg{created: true, title: created.Title, err: err}
	})
}

func (m Model) applyTaskSaved(msg taskSavedMsg) (tea.Model, tea.Cmd) {
	if m.form != nil {
		m.form.saving = false
	}
	if msg.err != nil {
		m.status = m.formPrompt()
		return m.showError(msg.err), nil
	}
	m.form = nil
	var cmd tea.Cmd
	m, cmd = m.focus(screenTasks)
	if msg.created {
		m.status = fmt.Sprintf("Added %q", msg.title)
	} else {
		m.status = fmt.Sprintf("Saved %q", msg.title)
	}
	return m, cmd
}

func (m Model) formPrompt() string {
	if m.form == nil {
		return ""
	}
	return fmt.Sprintf("Editing %s (field %d of %d). Enter to advance, ctrl+s to save, esc to cancel.",
		strings.ToLower(strings.SplitN(formLabels[m.form.index], " (", 2)[0]), m.form.index+1, fieldCount)
}

func (m Model) viewTaskForm(styles theme.Styles) string {
	f := m.form
	if f == nil {
		return ""
	}
	var b strings.Builder
	if f.editing() {
		b.WriteString(styles.Title.Render("Edit task"))
	} else {
		b.WriteString(styles.Title.Render("New task"))
	}
	b.WriteString("\n")

	for i, label := range formLabels {
		name := strings.SplitN(label, " (", 2)[0]
		val := f.values[i]
		if i == f.index {
			val = f.input.Value()
		}
		line := fmt.Sprintf("%-9s : %s", name, emptyPlaceholder(val))
		if i == fieldColor {
			color := strings.TrimSpace(val)
			if color == "" {
				color = task.ColorForSubject(strings.TrimSpace(f.values[fieldSubject]))
			}
			line += " " + theme.Swatch(color)
		}
		if i == f.index {
			b.WriteString(styles.Selected.Render("> "+line) + "\n")
		} else {
			b.WriteString(styles.Text.Render("  "+line) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.Muted.Render(formLabels[f.index]))
	b.WriteString("\n")
	b.WriteString(f.input.View())
	if f.index == fieldSubject {
		b.WriteString("\n")
		b.WriteString(styles.Muted.Render("ctrl+n/ctrl+p: " + strings.Join(task.Subjects, ", ")))
	}
	return b.String()
}
