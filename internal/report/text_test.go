package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/tests/testutil"
)

func TestDateLabel(t *testing.T) {
	assert.Equal(t, "Tuesday, April 1, 2025", DateLabel("2025-04-01"))
	assert.Equal(t, "No Date", DateLabel(""))
	assert.Equal(t, "sometime", DateLabel("sometime"))
}

func TestText(t *testing.T) {
	days := []model.DailySchedule{
		{ID: "day-x", ProjectManagers: []model.ProjectManager{}},
		{
			ID:   "day-1",
			Date: "2025-04-01",
			ProjectManagers: []model.ProjectManager{
				{
					ID:   "pm-1",
					Name: "JOHN SMITH",
					Assignments: []model.WorkerAssignment{
						{ID: "a1", Workers: []string{"Alice Brown", "Bob Green"}, Job: "3060 3rd Ave, Bronx, NY"},
						{ID: "a2", Workers: []string{}, Job: "Office Work"},
					},
				},
				{ID: "pm-2", Assignments: []model.WorkerAssignment{}},
				{
					ID: "pm-3",
					Assignments: []model.WorkerAssignment{
						{ID: "a3", Workers: []string{"Carl White"}},
					},
				},
			},
		},
	}

	want := strings.Join([]string{
		"Tuesday, April 1, 2025",
		strings.Repeat("=", 22),
		"",
		"JOHN SMITH",
		"----------",
		"  Alice Brown, Bob Green  —  3060 3rd Ave, Bronx, NY",
		"  (no workers)  —  Office Work",
		"",
		"(No PM)",
		"-------",
		"  Carl White  —  (no job)",
	}, "\r\n") + "\r\n\r\n\r\n" + "No Date\r\n======="

	assert.Equal(t, want, Text(days))
}

func TestText_Empty(t *testing.T) {
	assert.Equal(t, "", Text(nil))
}

func TestText_OrdersByDate(t *testing.T) {
	days := testutil.SampleSchedules()
	days[0], days[1] = days[1], days[0]

	out := Text(days)
	assert.Less(t,
		strings.Index(out, "Tuesday, April 1, 2025"),
		strings.Index(out, "Wednesday, April 2, 2025"))
	assert.Contains(t, out, "MARY JONES\r\n----------")
}

func TestFilenames(t *testing.T) {
	days := testutil.SampleSchedules()
	assert.Equal(t, "schedule-2025-04-01-to-2025-04-02.txt", TextFilename(days))
	assert.Equal(t, "schedule-2025-04-01-to-2025-04-02.ics", ICSFilename(days))
	assert.Equal(t, "schedule-2025-04-01-to-2025-04-02.xlsx", XLSXFilename(days))

	withUndated := append(days, model.DailySchedule{ID: "day-u"})
	assert.Equal(t, "schedule-2025-04-01-to-undated.txt", TextFilename(withUndated))
	assert.Equal(t, "schedule-undated-to-undated.txt", TextFilename(nil))
}
