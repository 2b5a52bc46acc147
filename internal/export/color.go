package export

import (
	"time"

	"github.com/nhle/work-schedule/internal/model"
)

// Palette is the fixed event color rotation, indexed by ISO week mod 24.
var Palette = [24]string{
	"#F44336", "#EF6C00", "#43A047", "#2196F3", "#673AB7",
	"#E91E63", "#009688", "#3F51B5", "#9C27B0", "#785548",
	"#BF1959", "#827717", "#486B7A", "#8A2731", "#78909C",
	"#FAB3AE", "#F8C499", "#B3D9B5", "#A6D5FA", "#D7A8DF",
	"#CDC8A2", "#6A5E72", "#888888", "#010101",
}

// ISOWeek returns the ISO-8601 week number of the calendar day d: the
// day is moved to the Thursday of its week and weeks are counted from
// January 1 of that Thursday's year.
func ISOWeek(d time.Time) int {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)

	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	thursday := day.AddDate(0, 0, 4-weekday)

	yearStart := time.Date(thursday.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	days := int(thursday.Sub(yearStart).Hours() / 24)
	return (days + 1 + 6) / 7
}

// WeekColor returns the palette color of the ISO week containing date.
func WeekColor(date string) (string, error) {
	t, err := model.ParseDate(date)
	if err != nil {
		return "", err
	}
	return Palette[ISOWeek(t)%len(Palette)], nil
}
