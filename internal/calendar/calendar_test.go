package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studia/internal/task"
)

func TestBuildGridLength(t *testing.T) {
	for year := 1999; year <= 2030; year++ {
		for month := 0; month < 12; month++ {
			first := time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
			blanks := int(first.Weekday())
			days := first.AddDate(0, 1, -1).Day()

			grid := BuildGrid(year, month)
			require.Len(t, grid, blanks+days, "%d-%02d", year, month+1)
			for i := 0; i < blanks; i++ {
				assert.True(t, grid[i].Empty())
			}
			for i := blanks; i < len(grid); i++ {
				assert.Equal(t, i-blanks+1, grid[i].Day)
			}
		}
	}
}

func TestBuildGridKnownMonths(t *testing.T) {
	// March 2025 starts on a Saturday.
	grid := BuildGrid(2025, 2)
	assert.Len(t, grid, 6+31)
	assert.Equal(t, 1, grid[6].Day)

	// February 2024 is a leap month starting on a Thursday.
	grid = BuildGrid(2024, 1)
	assert.Len(t, grid, 4+29)
	assert.Equal(t, 29, grid[len(grid)-1].Day)
}

func TestDateKeys(t *testing.T) {
	iso, legacy := DateKeys(2025, 2, 5)
	assert.Equal(t, "2025-03-05", iso)
	assert.Equal(t, "05/03/2025", legacy)
}

func TestTasksForDate(t *testing.T) {
	tasks := []task.Task{
		{ID: "1", DueDate: "2025-03-05"},
		{ID: "2", DueDate: "05/03/2025"},
		{ID: "3", DueDate: "2025-3-5"},
		{ID: "4", DueDate: "5/3/2025"},
		{ID: "5", DueDate: "2025-03-05T00:00:00Z"},
		{ID: "6", DueDate: "2025-03-06"},
	}

	got := TasksForDate(2025, 2, 5, tasks)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)

	assert.Empty(t, TasksForDate(2025, 2, 7, tasks))
}

func TestIndicator(t *testing.T) {
	assert.Empty(t, Indicator(nil))
	assert.Equal(t, []string{"#FAD02C"}, Indicator([]task.Task{{Color: "#FAD02C"}}))
	assert.Equal(t, []string{task.DefaultColor}, Indicator([]task.Task{{}}))

	many := []task.Task{
		{Color: "#000001"}, {Color: "#000002"}, {Color: "#000003"}, {Color: "#000004"}, {Color: "#000005"},
	}
	assert.Equal(t, []string{"#000001", "#000002", "#000003"}, Indicator(many))
	assert.Equal(t, []string{"#000001", "#000002"}, Indicator(many[:2]))
}

func TestMonthNavigationRollsYear(t *testing.T) {
	dec := Month{Year: 2024, MonthIndex: 11}
	assert.Equal(t, Month{Year: 2025, MonthIndex: 0}, dec.Next())
	assert.Equal(t, dec, dec.Next().Prev())
	assert.Equal(t, Month{Year: 2024, MonthIndex: 10}, dec.Prev())
	assert.Equal(t, "December 2024", dec.Title())
}

func TestIsPast(t *testing.T) {
	now := time.Date(2025, 3, 10, 18, 30, 0, 0, time.Local)

	assert.True(t, IsPast(time.Date(2025, 3, 9, 23, 59, 0, 0, time.Local), now))
	assert.False(t, IsPast(time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local), now))
	assert.False(t, IsPast(time.Date(2025, 3, 11, 0, 0, 0, 0, time.Local), now))
}

func TestBuild(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)
	tasks := []task.Task{
		{Title: "Prova", DueDate: "2025-03-10", Color: "#FAD02C"},
		{Title: "Lista", DueDate: "12/03/2025", Color: "#FF7675"},
	}

	days := Build(MonthOf(now), tasks, now)
	require.Len(t, days, 6+31)

	ninth, tenth, twelfth := days[6+8], days[6+9], days[6+11]
	assert.True(t, ninth.Past)
	assert.Empty(t, ninth.Colors)
	assert.True(t, tenth.Today)
	assert.Equal(t, []string{"#FAD02C"}, tenth.Colors)
	assert.False(t, twelfth.Past)
	assert.False(t, twelfth.Today)
	assert.Equal(t, "Lista", twelfth.Tasks[0].Title)
}
