package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"studia/internal/calendar"
	"studia/internal/task"
	"studia/internal/theme"
)

// calendarView shows one month; day is the selected day of that month.
type calendarView struct {
	month calendar.Month
	day   int
	tasks []task.Task
}

func newCalendarView(now time.Time) calendarView {
	return calendarView{month: calendar.MonthOf(now), day: now.Day()}
}

func (c *calendarView) shiftMonth(delta int) {
	if delta > 0 {
		c.month = c.month.Next()
	} else {
		c.month = c.month.Prev()
	}
	c.day = clampDay(c.day, calendar.DaysIn(c.month.Year, c.month.MonthIndex))
}

func (c *calendarView) moveDay(delta int) {
	c.day = clampDay(c.day+delta, calendar.DaysIn(c.month.Year, c.month.MonthIndex))
}

func clampDay(day, n int) int {
	return clampCursor(day-1, n) + 1
}

func (m Model) updateCalendar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case m.keys.PrevMonth, "pgup":
		m.cal.shiftMonth(-1)
	case m.keys.NextMonth, "pgdown":
		m.cal.shiftMonth(1)
	case "left":
		m.cal.moveDay(-1)
	case "right":
		m.cal.moveDay(1)
	case m.keys.Up, "up":
		m.cal.moveDay(-7)
	case m.keys.Down, "down":
		m.cal.moveDay(7)
	case "t":
		m.cal = calendarView{month: calendar.MonthOf(m.svc.Now()), day: m.svc.Now().Day(), tasks: m.cal.tasks}
	}
	return m, nil
}

func (m Model) viewCalendar(styles theme.Styles) string {
	now := m.svc.Now()
	days := calendar.Build(m.cal.month, m.cal.tasks, now)

	var b strings.Builder
	b.WriteString(styles.Title.Render(m.cal.month.Title()))
	b.WriteString("\n")

	header := make([]string, 0, len(calendar.WeekdayHeaders))
	for _, h := range calendar.WeekdayHeaders {
		header = append(header, styles.Muted.Render(fmt.Sprintf("%-6s", h)))
	}
	b.WriteString(strings.Join(header, ""))
	b.WriteString("\n")

	for row := 0; row*7 < len(days); row++ {
		end := min(row*7+7, len(days))
		cells := make([]string, 0, 7)
		for _, d := range days[row*7 : end] {
			cells = append(cells, m.renderDay(styles, d))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderDayTasks(styles, now))
	b.WriteString("\n\n")
	b.WriteString(styles.Muted.Render(fmt.Sprintf("%s/%s month • arrows day • t today • %s tasks • %s settings",
		m.keys.PrevMonth, m.keys.NextMonth, m.keys.Tasks, m.keys.Settings)))
	return b.String()
}

func (m Model) renderDay(styles theme.Styles, d calendar.Day) string {
	cell := lipgloss.NewStyle().Width(6)
	if d.Empty() {
		return cell.Render("")
	}

	label := fmt.Sprintf("%2d", d.Day)
	switch {
	case d.Day == m.cal.day:
		label = styles.Selected.Render("[" + label + "]")
	case d.Today:
		label = styles.Accent.Render(" " + label + " ")
	case d.Past:
		label = styles.Muted.Render(" " + label + " ")
	default:
		label = styles.Text.Render(" " + label + " ")
	}

	var dots strings.Builder
	for _, c := range d.Colors {
		dots.WriteString(theme.Swatch(c))
	}
	return cell.Render(label + "\n " + dots.String())
}

func (m Model) renderDayTasks(styles theme.Styles, now time.Time) string {
	date := m.cal.month.Date(m.cal.day, now.Location())
	tasks := calendar.TasksForDate(m.cal.month.Year, m.cal.month.MonthIndex, m.cal.day, m.cal.tasks)

	var b strings.Builder
	b.WriteString(styles.Text.Render(date.Format("Monday, January 2")))
	b.WriteString("\n")
	if len(tasks) == 0 {
		b.WriteString(styles.Muted.Render("Nothing due."))
		return b.String()
	}
	for _, t := range tasks {
		line := fmt.Sprintf("%s %s", theme.Swatch(t.DisplayColor()), t.Title)
		if t.Subject != "" {
			line += styles.Muted.Render(" • " + t.Subject)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
