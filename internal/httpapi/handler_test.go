package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/work-schedule/internal/credential"
	"github.com/nhle/work-schedule/internal/directory"
	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/qbtime"
	"github.com/nhle/work-schedule/tests/testutil"
)

type fakeDirectory struct {
	tokens  []string
	pmErr   error
	connect *directory.ConnectedUser
}

func (d *fakeDirectory) seen(ctx context.Context) {
	tok, _ := credential.FromContext(ctx)
	d.tokens = append(d.tokens, tok)
}

func (d *fakeDirectory) FetchProjectManagers(ctx context.Context) ([]model.ProjectManagerRef, error) {
	d.seen(ctx)
	if d.pmErr != nil {
		return nil, d.pmErr
	}
	return []model.ProjectManagerRef{{ID: "1", Name: "JOHN SMITH"}}, nil
}

func (d *fakeDirectory) FetchTechnicians(ctx context.Context) ([]model.TechnicianRef, error) {
	d.seen(ctx)
	return []model.TechnicianRef{{ID: "103", Name: "Carl White"}}, nil
}

func (d *fakeDirectory) FetchJobs(ctx context.Context) ([]model.JobRef, error) {
	d.seen(ctx)
	return []model.JobRef{{ID: "501", Name: "86-06 Queens Blvd"}}, nil
}

func (d *fakeDirectory) FetchCustomFields(ctx context.Context) ([]model.CustomField, error) {
	d.seen(ctx)
	return []model.CustomField{}, nil
}

func (d *fakeDirectory) FetchCustomFieldItems(ctx context.Context, fieldID string) ([]model.CustomFieldItem, error) {
	d.seen(ctx)
	return []model.CustomFieldItem{{ID: "1", CustomFieldID: fieldID, Name: "(none)", Active: true}}, nil
}

func (d *fakeDirectory) Connect(ctx context.Context, token string) (*directory.ConnectedUser, error) {
	if token == "" {
		return nil, credential.ErrNotConnected
	}
	d.tokens = append(d.tokens, token)
	return d.connect, nil
}

type fakeReferences struct {
	dir       model.Directory
	refreshes int
}

func (f *fakeReferences) Snapshot() model.Directory { return f.dir }

func (f *fakeReferences) Refresh(context.Context) (model.Directory, error) {
	f.refreshes++
	f.dir = model.Directory{
		Technicians: []model.TechnicianRef{{ID: "103", Name: "Carl White"}},
		Jobs:        []model.JobRef{{ID: "501", Name: "86-06 Queens Blvd"}},
	}
	return f.dir, nil
}

type fakeQBTime struct {
	eventsErr error
	entries   []qbtime.ScheduleEventEntry
	created   *qbtime.CreateResult
}

func (q *fakeQBTime) ListScheduleEvents(context.Context, qbtime.EventQuery) (*qbtime.EventList, error) {
	if q.eventsErr != nil {
		return nil, q.eventsErr
	}
	return &qbtime.EventList{Events: []map[string]any{{"id": 1.0}}, Total: 1}, nil
}

func (q *fakeQBTime) ListTimesheets(context.Context, qbtime.TimesheetQuery) (*qbtime.TimesheetList, error) {
	return &qbtime.TimesheetList{Timesheets: []qbtime.Timesheet{}}, nil
}

func (q *fakeQBTime) CreateScheduleEvents(_ context.Context, entries []qbtime.ScheduleEventEntry) (*qbtime.CreateResult, error) {
	q.entries = append(q.entries, entries...)
	if q.created != nil {
		return q.created, nil
	}
	return &qbtime.CreateResult{Created: len(entries), Results: []qbtime.CreatedItem{}}, nil
}

func (q *fakeQBTime) CreateTimesheets(_ context.Context, entries []qbtime.TimesheetEntry) (*qbtime.CreateResult, error) {
	return &qbtime.CreateResult{Created: len(entries), Results: []qbtime.CreatedItem{}}, nil
}

type testEnv struct {
	server *httptest.Server
	dir    *fakeDirectory
	refs   *fakeReferences
	qb     *fakeQBTime
}

func newTestEnv(t *testing.T, creds credential.Source) *testEnv {
	t.Helper()
	return newTestEnvWith(t, creds, nil)
}

// newTestEnvWith lets a test adjust Deps before the handler is built.
func newTestEnvWith(t *testing.T, creds credential.Source, adjust func(*Deps)) *testEnv {
	t.Helper()

	st, _ := testutil.NewTestStore(t)
	env := &testEnv{dir: &fakeDirectory{}, refs: &fakeReferences{}, qb: &fakeQBTime{}}
	deps := Deps{
		Store:       st,
		Credentials: creds,
		Directory:   env.dir,
		References:  env.refs,
		QBTime:      env.qb,
		Now:         func() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) },
	}
	if adjust != nil {
		adjust(&deps)
	}
	h := NewHandler(deps)
	router := NewRouter(nil)
	router.Register(h)

	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header ...string) (*http.Response, map[string]any) {
	t.Helper()

	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, rd)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestSchedules_PutThenGet(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodPut, "/api/schedules", testutil.SampleSchedules())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])

	resp, err := http.Get(env.server.URL + "/api/schedules")
	require.NoError(t, err)
	defer resp.Body.Close()

	var days []model.DailySchedule
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&days))
	assert.Equal(t, testutil.SampleSchedules(), days)
}

func TestSchedules_EmptyStoreIsEmptyArray(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.server.URL + "/api/schedules")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.JSONEq(t, `[]`, string(raw))
}

func TestSchedules_PutMalformed(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.do(t, http.MethodPut, "/api/schedules", `{"not":"an array"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "invalid schedules payload")
}

func TestSchedules_PutRejectsBadDate(t *testing.T) {
	env := newTestEnv(t, nil)

	days := testutil.SampleSchedules()
	days[1].Date = "04/02/2025"
	resp, body := env.do(t, http.MethodPut, "/api/schedules", days)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], `invalid date "04/02/2025" for schedule day-2`)

	resp, err := http.Get(env.server.URL + "/api/schedules")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stored []model.DailySchedule
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	assert.Empty(t, stored)
}

func TestSchedules_PutUndatedDayAccepted(t *testing.T) {
	env := newTestEnv(t, nil)

	days := testutil.SampleSchedules()
	days[1].Date, days[1].DayName = "", ""
	resp, _ := env.do(t, http.MethodPut, "/api/schedules", days)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSchedules_PutBodyTooLarge(t *testing.T) {
	env := newTestEnvWith(t, nil, func(d *Deps) { d.MaxBodyBytes = 64 })

	resp, body := env.do(t, http.MethodPut, "/api/schedules", testutil.SampleSchedules())
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "request body exceeds 64 bytes", body["error"])
}

func TestTokenStatus(t *testing.T) {
	resp, body := newTestEnv(t, credential.Static("")).do(t, http.MethodGet, "/api/qbtime/token", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["configured"])

	_, body = newTestEnv(t, credential.Static("server-secret")).do(t, http.MethodGet, "/api/qbtime/token", nil)
	assert.Equal(t, true, body["configured"])
	assert.NotContains(t, body, "token")
}

func TestConnect(t *testing.T) {
	env := newTestEnv(t, credential.Static(""))
	env.dir.connect = &directory.ConnectedUser{ID: 7, Name: "Jane Doe", Company: "Acme"}

	resp, body := env.do(t, http.MethodPost, "/api/qbtime/connect", map[string]string{"token": "tok-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["connected"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "Jane Doe", user["name"])
	assert.Equal(t, "Acme", user["company"])

	resp, body = env.do(t, http.MethodPost, "/api/qbtime/connect", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "API token is required", body["error"])
}

func TestConnect_FallsBackToServerToken(t *testing.T) {
	env := newTestEnv(t, credential.Static("server-secret"))

	resp, body := env.do(t, http.MethodPost, "/api/qbtime/connect", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["user"])
	assert.Equal(t, []string{"server-secret"}, env.dir.tokens)
}

func TestProjectManagers_TokenPrecedence(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodPost, "/api/qbtime/pms", map[string]string{"token": "from-body"}, "Authorization", "Bearer from-header")
	env.do(t, http.MethodPost, "/api/qbtime/pms", nil, "Authorization", "Bearer from-header")
	resp, body := env.do(t, http.MethodPost, "/api/qbtime/pms", nil)

	assert.Equal(t, []string{"from-body", "from-header", ""}, env.dir.tokens)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["pms"], 1)
}

func TestProjectManagers_GroupNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	env.dir.pmErr = &directory.GroupNotFoundError{Group: "PROJECT MANAGERS", Available: []string{"Office", "Field Crew"}}

	resp, body := env.do(t, http.MethodPost, "/api/qbtime/pms", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, `Group "PROJECT MANAGERS" not found`, body["error"])
	assert.Equal(t, []any{"Office", "Field Crew"}, body["availableGroups"])
}

func TestProjectManagers_UpstreamStatusPropagates(t *testing.T) {
	env := newTestEnv(t, nil)
	env.dir.pmErr = &qbtime.APIError{Op: "fetching groups", Status: 401, Body: "Unauthorized"}

	resp, body := env.do(t, http.MethodPost, "/api/qbtime/pms", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "fetching groups: 401 Unauthorized", body["error"])
}

func TestCustomFieldItems(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodPost, "/api/qbtime/customfielditems", map[string]any{"customfield_id": 42})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])
	item := body["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "42", item["customfield_id"])

	resp, body = env.do(t, http.MethodPost, "/api/qbtime/customfielditems", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "customfield_id is required", body["error"])
}

func TestScheduleEvents_NoCalendars(t *testing.T) {
	env := newTestEnv(t, nil)
	env.qb.eventsErr = qbtime.ErrNoCalendars

	resp, body := env.do(t, http.MethodPost, "/api/qbtime/schedule-events", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "No schedule calendars found", body["error"])
	assert.Equal(t, []any{}, body["events"])
	assert.Equal(t, float64(0), body["total"])
}

func TestCreateScheduleEvents_RequiresEntries(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodPost, "/api/qbtime/create-schedule-events", map[string]any{"entries": []any{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No schedule event entries provided", body["error"])

	resp, body = env.do(t, http.MethodPost, "/api/qbtime/timesheets", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No timesheet entries provided", body["error"])
}

func TestSendSchedule(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPut, "/api/schedules", testutil.SampleSchedules())

	resp, body := env.do(t, http.MethodPost, "/api/schedules/day-2/send", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["created"])
	assert.Equal(t, 1, env.refs.refreshes)

	require.Len(t, env.qb.entries, 1)
	assert.Equal(t, []string{"103"}, env.qb.entries[0].AssignedUserIDs)
	assert.Equal(t, int64(501), env.qb.entries[0].JobcodeID)

	resp, err := http.Get(env.server.URL + "/api/schedules")
	require.NoError(t, err)
	defer resp.Body.Close()
	var days []model.DailySchedule
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&days))
	assert.True(t, days[1].SentToQB)
}

func TestSendSchedule_AlreadySent(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPut, "/api/schedules", testutil.SampleSchedules())

	resp, body := env.do(t, http.MethodPost, "/api/schedules/day-1/send", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, true, body["alreadySent"])
	assert.Empty(t, env.qb.entries)

	resp, body = env.do(t, http.MethodPost, "/api/schedules/day-1/send?force=true", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, `job "3060 3rd Ave, Bronx, NY" not found in QB Time`, body["error"])
}

func TestSendSchedule_UnknownDay(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, _ := env.do(t, http.MethodPost, "/api/schedules/nope/send", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportText(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPut, "/api/schedules", testutil.SampleSchedules())

	resp, _ := env.do(t, http.MethodGet, "/api/export/text?from=2025-04-02", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="schedule-2025-04-02-to-2025-04-02.txt"`, resp.Header.Get("Content-Disposition"))

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "Wednesday, April 2, 2025\r\n"))
	assert.NotContains(t, buf.String(), "Tuesday")
}

func TestExport_NothingMatches(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPut, "/api/schedules", testutil.SampleSchedules())

	resp, body := env.do(t, http.MethodGet, "/api/export/ics?from=2030-01-01", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "Nothing to export")
}

func TestExportICSAndXLSX(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPut, "/api/schedules", testutil.SampleSchedules())

	resp, _ := env.do(t, http.MethodGet, "/api/export/ics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/calendar; charset=utf-8", resp.Header.Get("Content-Type"))

	resp, _ = env.do(t, http.MethodGet, "/api/export/xlsx", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")
}

func TestDirectoryRefresh(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodPost, "/api/directory/refresh", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["jobs"], 1)

	_, body = env.do(t, http.MethodGet, "/api/directory", nil)
	assert.Len(t, body["technicians"], 1)
}
