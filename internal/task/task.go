// Package task is the client for the activities table: the user's academic
// to-do items.
package task

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	DateLayout       = "2006-01-02"
	LegacyDateLayout = "02/01/2006"
)

type Task struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	DueDate   string    `json:"due_date"`
	Teacher   string    `json:"teacher"`
	Room      string    `json:"room"`
	Subject   string    `json:"subject"`
	Color     string    `json:"color"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayColor is the color used to draw the task.
func (t Task) DisplayColor() string {
	if t.Color == "" {
		return DefaultColor
	}
	return t.Color
}

const DefaultColor = "#F2F2F2"

// Subjects lists the subjects with a fixed color, in form order.
var Subjects = []string{
	"Matemática",
	"Física",
	"Química",
	"Biologia",
	"História",
	"Geografia",
	"Português",
	"Inglês",
}

var subjectColors = map[string]string{
	"Matemática": "#FAD02C",
	"Física":     "#FF7675",
	"Química":    "#74B9FF",
	"Biologia":   "#55EFC4",
	"História":   "#FDCB6E",
	"Geografia":  "#A29BFE",
	"Português":  "#FAB1A0",
	"Inglês":     "#81ECEC",
}

// ColorForSubject looks the subject up exactly; unknown subjects get DefaultColor.
func ColorForSubject(subject string) string {
	if c, ok := subjectColors[strings.TrimSpace(subject)]; ok {
		return c
	}
	return DefaultColor
}

// CanonicalDueDate rewrites a DD/MM/YYYY date as YYYY-MM-DD. Anything else is
// returned as given.
func CanonicalDueDate(due string) string {
	due = strings.TrimSpace(due)
	if t, err := time.Parse(LegacyDateLayout, due); err == nil {
		return t.Format(DateLayout)
	}
	return due
}

// ParseDueDate accepts both stored formats.
func ParseDueDate(due string) (time.Time, bool) {
	for _, layout := range []string{DateLayout, LegacyDateLayout} {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(due), time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DueLabel is a short relative description such as "today" or "3 days from now".
func DueLabel(due string, now time.Time) string {
	t, ok := ParseDueDate(due)
	if !ok {
		return due
	}
	today := civilDay(now)
	dueDay := civilDay(t)
	switch days := int(dueDay.Sub(today).Hours() / 24); days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	case -1:
		return "yesterday"
	}
	return humanize.RelTime(dueDay, today, "ago", "from now")
}

// civilDay maps t's calendar date to UTC midnight so day counts ignore
// daylight-saving shifts.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
