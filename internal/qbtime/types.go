package qbtime

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// envelope is the common shape of every list/create response.
type envelope struct {
	Results          map[string]json.RawMessage `json:"results"`
	More             bool                       `json:"more"`
	SupplementalData map[string]json.RawMessage `json:"supplemental_data"`
}

// User is a service account member.
type User struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name"`
	CompanyName string `json:"company_name"`
	Active      bool   `json:"active"`
}

// Group is a named collection of users.
type Group struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Jobcode is a billable job.
type Jobcode struct {
	ID       int64  `json:"id"`
	ParentID int64  `json:"parent_id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Active   bool   `json:"active"`
}

// CustomField is an extra attribute on timesheets or jobcodes.
type CustomField struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Required     bool   `json:"required"`
	Type         string `json:"type"`
	UIPreference string `json:"ui_preference"`
	AppliesTo    string `json:"applies_to"`
	Active       bool   `json:"active"`
}

// CustomFieldItem is one option of a managed-list custom field.
type CustomFieldItem struct {
	ID            int64  `json:"id"`
	CustomFieldID int64  `json:"customfield_id"`
	Name          string `json:"name"`
	ShortCode     string `json:"short_code"`
	Active        bool   `json:"active"`
	LastModified  string `json:"last_modified"`
}

// ScheduleCalendar holds schedule events.
type ScheduleCalendar struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ScheduleEventEntry is one calendar event to create.
type ScheduleEventEntry struct {
	AssignedUserIDs []string          `json:"assigned_user_ids"`
	JobcodeID       int64             `json:"jobcode_id"`
	Start           string            `json:"start"`
	End             string            `json:"end"`
	AllDay          bool              `json:"all_day"`
	Timezone        string            `json:"timezone,omitempty"`
	Title           string            `json:"title"`
	Notes           string            `json:"notes,omitempty"`
	Location        string            `json:"location,omitempty"`
	Color           string            `json:"color,omitempty"`
	Draft           *bool             `json:"draft,omitempty"`
	CustomFields    map[string]string `json:"customfields,omitempty"`
}

// scheduleEventPayload is an entry bound to a calendar. The outer Draft
// shadows the entry's optional one.
type scheduleEventPayload struct {
	ScheduleCalendarID int64 `json:"schedule_calendar_id"`
	ScheduleEventEntry
	Draft bool `json:"draft"`
}

// TimesheetEntry is one timesheet to create.
type TimesheetEntry struct {
	UserID       int64             `json:"user_id"`
	JobcodeID    int64             `json:"jobcode_id"`
	Type         string            `json:"type"`
	Start        string            `json:"start,omitempty"`
	End          string            `json:"end,omitempty"`
	Duration     int64             `json:"duration,omitempty"`
	Date         string            `json:"date,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	CustomFields map[string]string `json:"customfields,omitempty"`
}

// itemStatus is the per-item outcome embedded in a create response.
type itemStatus struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	Title           string          `json:"title"`
	AssignedUserIDs json.RawMessage `json:"assigned_user_ids"`
	StatusCode      int             `json:"_status_code"`
	StatusMessage   string          `json:"_status_message"`
	StatusExtra     json.RawMessage `json:"_status_extra"`
}

// CreatedItem reports one accepted entry.
type CreatedItem struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title,omitempty"`
	AssignedUserIDs json.RawMessage `json:"assigned_user_ids,omitempty"`
	UserID          int64           `json:"user_id,omitempty"`
	Status          string          `json:"status"`
}

// ItemError reports a rejected entry (Key set) or a rejected batch
// (Batch set, 1-based).
type ItemError struct {
	Batch   int             `json:"batch,omitempty"`
	Key     string          `json:"key,omitempty"`
	Status  int             `json:"status"`
	Message string          `json:"message,omitempty"`
	Extra   json.RawMessage `json:"extra,omitempty"`
	Body    json.RawMessage `json:"error,omitempty"`
}

// CreateResult aggregates a batched create.
type CreateResult struct {
	Created int           `json:"created"`
	Failed  int           `json:"failed"`
	Results []CreatedItem `json:"results"`
	Errors  []ItemError   `json:"errors,omitempty"`
}

// NamedRef is an id/name pair taken from supplemental data.
type NamedRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// sortedKeys orders result keys numerically when they are ids, so that
// "first" is stable across calls.
func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.ParseInt(keys[i], 10, 64)
		b, errB := strconv.ParseInt(keys[j], 10, 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// decodeSection decodes section[kind], an object keyed by id, into a
// slice ordered by key. A missing kind yields an empty slice.
func decodeSection[T any](section map[string]json.RawMessage, kind string) ([]T, error) {
	keyed, err := decodeKeyed[T](section, kind)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(keyed))
	for _, k := range sortedKeys(keyed) {
		out = append(out, keyed[k])
	}
	return out, nil
}

func decodeKeyed[T any](section map[string]json.RawMessage, kind string) (map[string]T, error) {
	raw, ok := section[kind]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return map[string]T{}, nil
	}
	keyed := map[string]T{}
	// Empty collections are sometimes encoded as [] instead of {}.
	if string(raw) == "[]" {
		return keyed, nil
	}
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", kind, err)
	}
	return keyed, nil
}
