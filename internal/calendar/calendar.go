// Package calendar lays out a month as a Sunday-first 7-column grid and
// matches tasks to its days.
package calendar

import (
	"fmt"
	"time"

	"studia/internal/task"
)

// MaxIndicatorColors caps how many task colors a day shows.
const MaxIndicatorColors = 3

var MonthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var WeekdayHeaders = [7]string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}

// Cell is one grid slot. Day is 0 for a leading blank.
type Cell struct {
	Day int
}

func (c Cell) Empty() bool { return c.Day == 0 }

// Month is a reference month; MonthIndex is zero-based like the grid input.
type Month struct {
	Year       int
	MonthIndex int
}

func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), MonthIndex: int(t.Month()) - 1}
}

func (m Month) first() time.Time {
	return time.Date(m.Year, time.Month(m.MonthIndex+1), 1, 0, 0, 0, 0, time.UTC)
}

func (m Month) Next() Month { return MonthOf(m.first().AddDate(0, 1, 0)) }
func (m Month) Prev() Month { return MonthOf(m.first().AddDate(0, -1, 0)) }

func (m Month) Title() string {
	return fmt.Sprintf("%s %d", MonthNames[m.first().Month()-1], m.first().Year())
}

// Date is the given day of the month at midnight in loc.
func (m Month) Date(day int, loc *time.Location) time.Time {
	return time.Date(m.Year, time.Month(m.MonthIndex+1), day, 0, 0, 0, 0, loc)
}

func DaysIn(year, monthIndex int) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, time.Month(monthIndex+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

// LeadingBlanks is the weekday of the 1st, Sunday = 0.
func LeadingBlanks(year, monthIndex int) int {
	return int(time.Date(year, time.Month(monthIndex+1), 1, 0, 0, 0, 0, time.UTC).Weekday())
}

// BuildGrid returns leading blanks followed by days 1..n.
func BuildGrid(year, monthIndex int) []Cell {
	blanks := LeadingBlanks(year, monthIndex)
	days := DaysIn(year, monthIndex)
	cells := make([]Cell, blanks, blanks+days)
	for d := 1; d <= days; d++ {
		cells = append(cells, Cell{Day: d})
	}
	return cells
}

// DateKeys are the two stored spellings of a day: YYYY-MM-DD and DD/MM/YYYY.
func DateKeys(year, monthIndex, day int) (iso, legacy string) {
	month := monthIndex + 1
	iso = fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	legacy = fmt.Sprintf("%02d/%02d/%04d", day, month, year)
	return iso, legacy
}

// TasksForDate keeps the order of tasks. Only exact string matches count.
func TasksForDate(year, monthIndex, day int, tasks []task.Task) []task.Task {
	iso, legacy := DateKeys(year, monthIndex, day)
	var out []task.Task
	for _, t := range tasks {
		if t.DueDate == iso || t.DueDate == legacy {
			out = append(out, t)
		}
	}
	return out
}

// Indicator is the colors drawn under a day: none, one, or the first three.
func Indicator(tasks []task.Task) []string {
	n := len(tasks)
	if n > MaxIndicatorColors {
		n = MaxIndicatorColors
	}
	colors := make([]string, 0, n)
	for _, t := range tasks[:n] {
		colors = append(colors, t.DisplayColor())
	}
	return colors
}

// IsPast reports whether the day is strictly before today, ignoring time of day.
func IsPast(day, now time.Time) bool {
	y, m, d := day.Date()
	dayMidnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	y, m, d = now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return dayMidnight.Before(today)
}

// Day is a rendered grid cell.
type Day struct {
	Cell
	Tasks  []task.Task
	Colors []string
	Past   bool
	Today  bool
}

// Build lays out m with tasks attached, relative to now.
func Build(m Month, tasks []task.Task, now time.Time) []Day {
	cells := BuildGrid(m.Year, m.MonthIndex)
	days := make([]Day, len(cells))
	for i, c := range cells {
		days[i].Cell = c
		if c.Empty() {
			continue
		}
		date := m.Date(c.Day, now.Location())
		matched := TasksForDate(m.Year, m.MonthIndex, c.Day, tasks)
		days[i].Tasks = matched
		days[i].Colors = Indicator(matched)
		days[i].Past = IsPast(date, now)
		days[i].Today = !days[i].Past && !IsPast(now, date)
	}
	return days
}
