package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/work-schedule/internal/model"
)

type memKV struct {
	data   map[string]string
	getErr error
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", ErrMiss
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

var fixedNow = time.Date(2025, 4, 1, 13, 45, 30, 123_000_000, time.UTC)

func newTestCache(kv KV) *ScheduleCache {
	c := NewScheduleCache(kv, nil)
	c.now = func() time.Time { return fixedNow }
	return c
}

func sample() []model.DailySchedule {
	return []model.DailySchedule{{
		ID:      "day-1",
		Date:    "2025-04-01",
		DayName: "Tuesday",
		ProjectManagers: []model.ProjectManager{{
			ID:   "pm-1",
			Name: "JOHN SMITH",
			Assignments: []model.WorkerAssignment{
				{ID: "job-1", Workers: []string{"Alice Brown"}, Job: "3060 3rd Ave", PMID: "pm-1"},
			},
		}},
	}}
}

func TestScheduleCache_SaveLoad(t *testing.T) {
	kv := newMemKV()
	c := newTestCache(kv)
	ctx := context.Background()

	assert.Equal(t, []model.DailySchedule{}, c.Load(ctx))

	require.NoError(t, c.Save(ctx, sample()))
	assert.Equal(t, sample(), c.Load(ctx))

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(kv.data[Key]), &env))
	assert.Equal(t, Version, env.Version)
	assert.Equal(t, "2025-04-01T13:45:30.123Z", env.LastUpdated)
}

func TestScheduleCache_LoadMalformed(t *testing.T) {
	ctx := context.Background()
	for name, raw := range map[string]string{
		"not json":       "{oops",
		"no schedules":   `{"version":"1.0.0"}`,
		"schedules null": `{"schedules":null}`,
		"wrong shape":    `{"schedules":{"id":"x"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			kv := newMemKV()
			kv.data[Key] = raw
			assert.Equal(t, []model.DailySchedule{}, newTestCache(kv).Load(ctx))
		})
	}

	kv := newMemKV()
	kv.getErr = errors.New("disk gone")
	assert.Equal(t, []model.DailySchedule{}, newTestCache(kv).Load(ctx))
}

func TestScheduleCache_Clear(t *testing.T) {
	kv := newMemKV()
	c := newTestCache(kv)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, sample()))
	require.NoError(t, c.Clear(ctx))
	assert.Empty(t, c.Load(ctx))
}

func TestScheduleCache_Info(t *testing.T) {
	kv := newMemKV()
	c := newTestCache(kv)
	ctx := context.Background()

	assert.Equal(t, Info{Used: 0, Available: EstimatedLimit, Percentage: 0}, c.Info(ctx))

	require.NoError(t, c.Save(ctx, sample()))
	info := c.Info(ctx)
	assert.Equal(t, len(kv.data[Key]), info.Used)
	assert.Equal(t, EstimatedLimit-info.Used, info.Available)
	assert.InDelta(t, float64(info.Used)/EstimatedLimit*100, info.Percentage, 1e-9)
}

func TestExportImport(t *testing.T) {
	c := newTestCache(newMemKV())

	var buf bytes.Buffer
	require.NoError(t, c.Export(&buf, sample()))
	assert.Contains(t, buf.String(), "\n  \"schedules\": [")

	got, err := Import(&buf)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)

	assert.Equal(t, "work-schedules-2025-04-01.json", ExportFilename(fixedNow))
}

func TestImport_Validation(t *testing.T) {
	cases := map[string]string{
		"not json":          "nope",
		"missing schedules": `{"version":"1.0.0"}`,
		"schedules object":  `{"schedules":{}}`,
		"missing id":        `{"schedules":[{"date":"2025-04-01","dayName":"Tuesday","projectManagers":[]}]}`,
		"empty date":        `{"schedules":[{"id":"d","date":"","dayName":"Tuesday","projectManagers":[]}]}`,
		"missing dayName":   `{"schedules":[{"id":"d","date":"2025-04-01","projectManagers":[]}]}`,
		"missing pms":       `{"schedules":[{"id":"d","date":"2025-04-01","dayName":"Tuesday"}]}`,
		"null pms":          `{"schedules":[{"id":"d","date":"2025-04-01","dayName":"Tuesday","projectManagers":null}]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Import(strings.NewReader(payload))
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}

	got, err := Import(strings.NewReader(`{"schedules":[{"id":"d","date":"2025-04-01","dayName":"Tuesday","projectManagers":[]}]}`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "d", got[0].ID)
}

func TestBackupRestore(t *testing.T) {
	c := newTestCache(newMemKV())

	backup, err := c.Backup(sample())
	require.NoError(t, err)
	assert.NotContains(t, backup, "\n")

	got, err := Restore(backup)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)

	_, err = Restore(`{"version":"1.0.0"}`)
	assert.ErrorIs(t, err, ErrInvalidFormat)
	_, err = Restore("garbage")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
