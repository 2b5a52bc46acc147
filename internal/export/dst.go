package export

import (
	"time"

	"github.com/nhle/work-schedule/internal/model"
)

// Timezone is the label sent with every event.
const Timezone = "America/New_York"

const (
	offsetEDT = "-04:00"
	offsetEST = "-05:00"
)

// firstWeekday returns the weekday of the first day of month.
func firstWeekday(year int, month time.Month) int {
	return int(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday())
}

// IsEasternDaylight applies the US rule by hand: daylight time from the
// second Sunday of March up to, not including, the first Sunday of
// November. Hour-of-day transitions are ignored.
func IsEasternDaylight(year int, month time.Month, day int) bool {
	switch {
	case month > time.March && month < time.November:
		return true
	case month == time.March:
		first := firstWeekday(year, time.March)
		secondSunday := 15 - first
		if first == 0 {
			secondSunday = 8
		}
		return day >= secondSunday
	case month == time.November:
		first := firstWeekday(year, time.November)
		firstSunday := 8 - first
		if first == 0 {
			firstSunday = 1
		}
		return day < firstSunday
	default:
		return false
	}
}

// EasternOffset returns "-04:00" or "-05:00" for date.
func EasternOffset(date string) (string, error) {
	t, err := model.ParseDate(date)
	if err != nil {
		return "", err
	}
	if IsEasternDaylight(t.Year(), t.Month(), t.Day()) {
		return offsetEDT, nil
	}
	return offsetEST, nil
}

// ShiftTimes returns the 08:00 to 16:00 Eastern working window of date.
func ShiftTimes(date string) (start, end string, err error) {
	offset, err := EasternOffset(date)
	if err != nil {
		return "", "", err
	}
	return date + "T08:00:00" + offset, date + "T16:00:00" + offset, nil
}
