package export

import (
	"strings"
	"unicode/utf8"
)

// MaxTitleLen is the longest title the calendar accepts.
const MaxTitleLen = 64

// ShortPM abbreviates "John Smith" to "John S". Single names are kept.
func ShortPM(name string) string {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		last := parts[len(parts)-1]
		r, _ := utf8.DecodeRuneInString(last)
		return parts[0] + " " + string(r)
	}
}

// Street returns the job text before its first comma.
func Street(job string) string {
	street, _, _ := strings.Cut(job, ",")
	return strings.TrimSpace(street)
}

func firstName(worker string) string {
	parts := strings.Fields(worker)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// Title builds "<PM short> - <street> (<first names>)", cut to
// MaxTitleLen characters with a trailing "..." when longer.
func Title(pmName, job string, workers []string) string {
	names := make([]string, 0, len(workers))
	for _, w := range workers {
		names = append(names, firstName(w))
	}
	title := ShortPM(pmName) + " - " + Street(job) + " (" + strings.Join(names, ", ") + ")"

	runes := []rune(title)
	if len(runes) > MaxTitleLen {
		return string(runes[:MaxTitleLen-3]) + "..."
	}
	return title
}

// Notes carries the full PM name, job and worker names.
func Notes(pmName, job string, workers []string) string {
	return pmName + " - " + job + " (" + strings.Join(workers, ", ") + ")"
}
