package qbtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// EventQuery filters ListScheduleEvents. Empty CalendarIDs means every
// calendar of the account; empty Start means thirty days ago.
type EventQuery struct {
	Start       string
	End         string
	CalendarIDs string
}

// EventList is a page of schedule events with their supplemental data.
// Events are returned as the service sent them.
type EventList struct {
	Events    []map[string]any `json:"events"`
	Total     int              `json:"total"`
	Users     []NamedRef       `json:"users"`
	Jobcodes  []NamedRef       `json:"jobcodes"`
	Calendars []NamedRef       `json:"calendars"`
}

type supplementalUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func defaultStart(now time.Time) string {
	d := now.AddDate(0, 0, -30)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location()).Format(time.RFC3339)
}

// ListScheduleEvents returns up to 200 events, including inactive ones,
// with repeating team events expanded to instances.
func (c *Client) ListScheduleEvents(ctx context.Context, query EventQuery) (*EventList, error) {
	calendarIDs := query.CalendarIDs
	if calendarIDs == "" {
		cals, err := c.ScheduleCalendars(ctx)
		if err != nil {
			return nil, err
		}
		if len(cals) == 0 {
			return nil, ErrNoCalendars
		}
		ids := make([]string, 0, len(cals))
		for _, cal := range cals {
			ids = append(ids, strconv.FormatInt(cal.ID, 10))
		}
		calendarIDs = strings.Join(ids, ",")
	}

	start := query.Start
	if start == "" {
		start = defaultStart(time.Now())
	}

	q := url.Values{}
	q.Set("start", start)
	if query.End != "" {
		q.Set("end", query.End)
	}
	q.Set("schedule_calendar_ids", calendarIDs)
	q.Set("limit", "200")
	q.Set("active", "both")
	q.Set("team_events", "instance")

	env, err := c.get(ctx, "fetching schedule events", "/schedule_events", q)
	if err != nil {
		return nil, err
	}

	events, err := decodeSection[map[string]any](env.Results, "schedule_events")
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		if ev["customfields"] == nil {
			ev["customfields"] = map[string]any{}
		}
	}

	list := &EventList{Events: events, Total: len(events)}

	users, err := decodeSection[supplementalUser](env.SupplementalData, "users")
	if err != nil {
		return nil, err
	}
	list.Users = make([]NamedRef, 0, len(users))
	for _, u := range users {
		list.Users = append(list.Users, NamedRef{ID: u.ID, Name: u.FirstName + " " + u.LastName})
	}
	if list.Jobcodes, err = decodeSection[NamedRef](env.SupplementalData, "jobcodes"); err != nil {
		return nil, err
	}
	if list.Calendars, err = decodeSection[NamedRef](env.SupplementalData, "schedule_calendars"); err != nil {
		return nil, err
	}
	return list, nil
}

// TimesheetQuery filters ListTimesheets. Empty StartDate means thirty
// days ago; zero Limit means 10.
type TimesheetQuery struct {
	StartDate string
	EndDate   string
	Limit     int
}

// Timesheet is a recorded timesheet.
type Timesheet struct {
	ID           int64          `json:"id"`
	UserID       int64          `json:"user_id"`
	JobcodeID    int64          `json:"jobcode_id"`
	Type         string         `json:"type"`
	Start        string         `json:"start"`
	End          string         `json:"end"`
	Date         string         `json:"date"`
	Duration     int64          `json:"duration"`
	Notes        string         `json:"notes"`
	CustomFields map[string]any `json:"customfields"`
}

// TimesheetList is a page of timesheets with supplemental data.
type TimesheetList struct {
	Timesheets []Timesheet `json:"timesheets"`
	Total      int         `json:"total"`
	Users      []NamedRef  `json:"users"`
	Jobcodes   []NamedRef  `json:"jobcodes"`
}

// ListTimesheets returns recent timesheets, for checking what the
// legacy timesheet path produced.
func (c *Client) ListTimesheets(ctx context.Context, query TimesheetQuery) (*TimesheetList, error) {
	start := query.StartDate
	if start == "" {
		start = time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}

	q := url.Values{}
	q.Set("start_date", start)
	if query.EndDate != "" {
		q.Set("end_date", query.EndDate)
	}
	q.Set("limit", strconv.Itoa(limit))

	env, err := c.get(ctx, "fetching timesheets", "/timesheets", q)
	if err != nil {
		return nil, err
	}

	sheets, err := decodeSection[Timesheet](env.Results, "timesheets")
	if err != nil {
		return nil, err
	}
	for i := range sheets {
		if sheets[i].CustomFields == nil {
			sheets[i].CustomFields = map[string]any{}
		}
	}

	list := &TimesheetList{Timesheets: sheets, Total: len(sheets)}
	users, err := decodeSection[supplementalUser](env.SupplementalData, "users")
	if err != nil {
		return nil, err
	}
	list.Users = make([]NamedRef, 0, len(users))
	for _, u := range users {
		list.Users = append(list.Users, NamedRef{ID: u.ID, Name: u.FirstName + " " + u.LastName})
	}
	if list.Jobcodes, err = decodeSection[NamedRef](env.SupplementalData, "jobcodes"); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateScheduleEvents posts entries into the account's first schedule
// calendar in batches of BatchSize. A rejected batch is recorded and the
// remaining batches are still sent.
func (c *Client) CreateScheduleEvents(ctx context.Context, entries []ScheduleEventEntry) (*CreateResult, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no schedule event entries provided", ErrNoEntries)
	}

	cals, err := c.ScheduleCalendars(ctx)
	if err != nil {
		return nil, err
	}
	if len(cals) == 0 {
		return nil, ErrNoCalendars
	}
	calendarID := cals[0].ID

	payload := make([]scheduleEventPayload, len(entries))
	for i, e := range entries {
		draft := false
		if e.Draft != nil {
			draft = *e.Draft
		}
		payload[i] = scheduleEventPayload{
			ScheduleCalendarID: calendarID,
			ScheduleEventEntry: e,
			Draft:              draft,
		}
	}

	c.logger.Info("creating schedule events",
		zap.Int64("calendar_id", calendarID),
		zap.Int("entries", len(payload)),
	)

	return createBatched(ctx, c, "creating schedule events", "/schedule_events", "schedule_events", payload,
		func(st itemStatus) CreatedItem {
			return CreatedItem{ID: st.ID, Title: st.Title, AssignedUserIDs: st.AssignedUserIDs, Status: "ok"}
		})
}

// createBatched posts items in chunks under {"data": [...]} and folds the
// per-item statuses into one result.
func createBatched[T any](
	ctx context.Context,
	c *Client,
	op, path, kind string,
	items []T,
	created func(itemStatus) CreatedItem,
) (*CreateResult, error) {
	result := &CreateResult{Results: []CreatedItem{}}

	for i := 0; i < len(items); i += BatchSize {
		end := min(i+BatchSize, len(items))
		batchNo := i/BatchSize + 1

		env, err := c.do(ctx, op, http.MethodPost, path, nil, map[string]any{"data": items[i:end]})
		if err != nil {
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				return nil, err
			}
			result.Errors = append(result.Errors, ItemError{
				Batch:  batchNo,
				Status: apiErr.Status,
				Body:   rawBody(apiErr.Body),
			})
			continue
		}

		statuses, err := decodeKeyed[itemStatus](env.Results, kind)
		if err != nil {
			return nil, fmt.Errorf("%s: batch %d: %w", op, batchNo, err)
		}
		for _, key := range sortedKeys(statuses) {
			st := statuses[key]
			if st.StatusCode == http.StatusOK || st.StatusCode == http.StatusCreated {
				result.Results = append(result.Results, created(st))
				continue
			}
			result.Errors = append(result.Errors, ItemError{
				Key:     key,
				Status:  st.StatusCode,
				Message: st.StatusMessage,
				Extra:   st.StatusExtra,
			})
		}
	}

	result.Created = len(result.Results)
	result.Failed = len(result.Errors)

	c.logger.Info("batched create finished",
		zap.String("op", op),
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// rawBody keeps a JSON error body as-is and quotes anything else.
func rawBody(body string) json.RawMessage {
	trimmed := strings.TrimSpace(body)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(body)
	return quoted
}
