package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/work-schedule/internal/model"
)

const (
	// Key is the fixed key the schedule envelope is stored under.
	Key = "work-schedules-v1"

	// Version is written into every envelope.
	Version = "1.0.0"

	// EstimatedLimit is the storage budget reported by Info.
	EstimatedLimit = 5 * 1024 * 1024
)

// ErrInvalidFormat is returned by Import and Restore for payloads that do
// not look like a schedule envelope.
var ErrInvalidFormat = errors.New("invalid schedule data")

// Envelope is the persisted form of the schedule collection.
type Envelope struct {
	Schedules   []model.DailySchedule `json:"schedules"`
	LastUpdated string                `json:"lastUpdated"`
	Version     string                `json:"version"`
}

// Info reports how much of the storage budget the envelope uses.
type Info struct {
	Used       int     `json:"used"`
	Available  int     `json:"available"`
	Percentage float64 `json:"percentage"`
}

// ScheduleCache persists the whole schedule collection as one JSON
// envelope. It is the offline fallback when the remote store is
// unreachable.
type ScheduleCache struct {
	kv     KV
	logger *zap.Logger
	now    func() time.Time
}

// NewScheduleCache wraps kv.
func NewScheduleCache(kv KV, logger *zap.Logger) *ScheduleCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleCache{kv: kv, logger: logger, now: time.Now}
}

func (c *ScheduleCache) envelope(schedules []model.DailySchedule) Envelope {
	if schedules == nil {
		schedules = []model.DailySchedule{}
	}
	return Envelope{
		Schedules:   schedules,
		LastUpdated: c.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Version:     Version,
	}
}

// Load returns the cached collection. A missing, unreadable or malformed
// envelope yields an empty collection and is only logged.
func (c *ScheduleCache) Load(ctx context.Context) []model.DailySchedule {
	raw, err := c.kv.Get(ctx, Key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Error("reading schedule cache", zap.Error(err))
		}
		return []model.DailySchedule{}
	}

	var env struct {
		Schedules *[]model.DailySchedule `json:"schedules"`
	}
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		c.logger.Warn("schedule cache is not valid JSON, starting fresh", zap.Error(err))
		return []model.DailySchedule{}
	}
	if env.Schedules == nil {
		c.logger.Warn("schedule cache has no schedules array, starting fresh")
		return []model.DailySchedule{}
	}
	return *env.Schedules
}

// Save writes the collection synchronously.
func (c *ScheduleCache) Save(ctx context.Context, schedules []model.DailySchedule) error {
	data, err := json.Marshal(c.envelope(schedules))
	if err != nil {
		return fmt.Errorf("encoding schedule cache: %w", err)
	}
	if err := c.kv.Set(ctx, Key, string(data)); err != nil {
		return fmt.Errorf("writing schedule cache: %w", err)
	}
	return nil
}

// Clear removes the stored envelope.
func (c *ScheduleCache) Clear(ctx context.Context) error {
	if err := c.kv.Delete(ctx, Key); err != nil {
		return fmt.Errorf("clearing schedule cache: %w", err)
	}
	return nil
}

// Info measures the stored envelope against EstimatedLimit.
func (c *ScheduleCache) Info(ctx context.Context) Info {
	raw, err := c.kv.Get(ctx, Key)
	if err != nil && !errors.Is(err, ErrMiss) {
		c.logger.Error("reading schedule cache", zap.Error(err))
		return Info{}
	}
	used := len(raw)
	return Info{
		Used:       used,
		Available:  EstimatedLimit - used,
		Percentage: float64(used) / EstimatedLimit * 100,
	}
}

// ExportFilename names an export file after the current UTC date.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("work-schedules-%s.json", now.UTC().Format(model.DateLayout))
}

// Export writes an indented envelope to w.
func (c *ScheduleCache) Export(w io.Writer, schedules []model.DailySchedule) error {
	data, err := json.MarshalIndent(c.envelope(schedules), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// Import reads an exported envelope. Every schedule must carry an id, a
// date, a day name and a project manager list.
func Import(r io.Reader) ([]model.DailySchedule, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading import: %w", err)
	}

	var outer struct {
		Schedules json.RawMessage `json:"schedules"`
	}
	if err := json.Unmarshal(data, &outer); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON file", ErrInvalidFormat)
	}

	var raw []map[string]json.RawMessage
	if len(outer.Schedules) == 0 || bytes.Equal(outer.Schedules, []byte("null")) ||
		json.Unmarshal(outer.Schedules, &raw) != nil {
		return nil, fmt.Errorf("%w: missing schedules array", ErrInvalidFormat)
	}

	for i, sched := range raw {
		for _, field := range []string{"id", "date", "dayName"} {
			var s string
			if json.Unmarshal(sched[field], &s) != nil || s == "" {
				return nil, fmt.Errorf("%w: schedule %d has no %s", ErrInvalidFormat, i, field)
			}
		}
		var pms []json.RawMessage
		if json.Unmarshal(sched["projectManagers"], &pms) != nil || pms == nil {
			return nil, fmt.Errorf("%w: schedule %d has no projectManagers", ErrInvalidFormat, i)
		}
	}

	schedules := []model.DailySchedule{}
	if err := json.Unmarshal(outer.Schedules, &schedules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return schedules, nil
}

// Backup returns the compact envelope as a string.
func (c *ScheduleCache) Backup(schedules []model.DailySchedule) (string, error) {
	data, err := json.Marshal(c.envelope(schedules))
	if err != nil {
		return "", fmt.Errorf("encoding backup: %w", err)
	}
	return string(data), nil
}

// Restore parses a string produced by Backup.
func Restore(backup string) ([]model.DailySchedule, error) {
	var env struct {
		Schedules *[]model.DailySchedule `json:"schedules"`
	}
	if err := json.Unmarshal([]byte(backup), &env); err != nil || env.Schedules == nil {
		return nil, fmt.Errorf("%w: invalid backup data", ErrInvalidFormat)
	}
	return *env.Schedules, nil
}
