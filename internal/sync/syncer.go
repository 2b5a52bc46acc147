// Package sync keeps the working schedule collection and mirrors every
// change to the local cache and, debounced, to the remote store.
package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/work-schedule/internal/export"
	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/schedule"
)

// DBStatus is the health of the remote store as last observed.
type DBStatus string

const (
	StatusLoading DBStatus = "loading"
	StatusOK      DBStatus = "ok"
	StatusError   DBStatus = "error"
)

// DefaultDebounce is the quiet period before a remote save.
const DefaultDebounce = 500 * time.Millisecond

// saveTimeout bounds a remote save started by the debounce timer.
const saveTimeout = 30 * time.Second

var (
	// ErrDayNotFound is returned for an unknown schedule id.
	ErrDayNotFound = errors.New("schedule not found")

	// ErrAlreadySent is returned when re-sending a sent day was not
	// confirmed.
	ErrAlreadySent = errors.New("schedule already sent to QB Time")
)

// RemoteStore is the authoritative copy of the collection.
type RemoteStore interface {
	Load(ctx context.Context) ([]model.DailySchedule, error)
	SaveAll(ctx context.Context, schedules []model.DailySchedule) error
}

// LocalCache is the fast fallback copy of the collection.
type LocalCache interface {
	Load(ctx context.Context) []model.DailySchedule
	Save(ctx context.Context, schedules []model.DailySchedule) error
}

// DayExporter pushes one day to the external calendar.
type DayExporter interface {
	ExportDay(ctx context.Context, day model.DailySchedule, dir model.Directory) (export.Result, error)
}

// Mutation derives a new collection from the current one. It must not
// modify its argument.
type Mutation func([]model.DailySchedule) []model.DailySchedule

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc = schedule.ConfirmFunc

// Status holds the sync state of the collection.
type Status struct {
	DB        DBStatus
	Err       error
	LastSaved time.Time
	Pending   bool
}

// Syncer owns the in-memory collection. Every change is written to the
// cache at once and to the remote store after Debounce of quiet. Saves
// replace the whole remote collection; the last writer wins.
type Syncer struct {
	remote   RemoteStore
	cache    LocalCache
	exporter DayExporter
	logger   *zap.Logger
	debounce time.Duration

	mu      gosync.Mutex
	days    []model.DailySchedule
	status  Status
	timer   *time.Timer
	pending bool

	// cacheMu and saveMu order cache and remote writes so an older
	// snapshot never lands after a newer one. cacheMu is taken while mu
	// is held.
	cacheMu gosync.Mutex
	saveMu  gosync.Mutex
}

// New creates a Syncer. A non-positive debounce uses DefaultDebounce.
func New(remote RemoteStore, cache LocalCache, exporter DayExporter, debounce time.Duration, logger *zap.Logger) *Syncer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		remote:   remote,
		cache:    cache,
		exporter: exporter,
		logger:   logger,
		debounce: debounce,
		days:     []model.DailySchedule{},
		status:   Status{DB: StatusLoading},
	}
}

// Load fetches the collection from the remote store, falling back to the
// cache when the remote is unavailable. The fallback is not an error for
// the caller; it shows up as StatusError.
func (s *Syncer) Load(ctx context.Context) []model.DailySchedule {
	s.setStatus(StatusLoading, nil)

	days, err := s.remote.Load(ctx)
	if err != nil {
		s.logger.Warn("remote store unavailable, using local cache", zap.Error(err))
		days = s.cache.Load(ctx)
		s.setStatus(StatusError, err)
	} else {
		s.setStatus(StatusOK, nil)
	}
	if days == nil {
		days = []model.DailySchedule{}
	}

	s.mu.Lock()
	s.days = days
	s.mu.Unlock()

	return slices.Clone(days)
}

// Days returns the current collection.
func (s *Syncer) Days() []model.DailySchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.days)
}

// Status returns the current sync status.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Pending = s.pending
	return st
}

// Apply runs m against the collection, saves the result to the cache and
// schedules a remote save. The returned error reports only the cache
// write; the change is applied either way.
func (s *Syncer) Apply(ctx context.Context, m Mutation) ([]model.DailySchedule, error) {
	s.mu.Lock()
	s.days = m(s.days)
	if s.days == nil {
		s.days = []model.DailySchedule{}
	}
	days := s.days
	s.pending = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.flushDebounced)
	s.cacheMu.Lock()
	s.mu.Unlock()

	err := s.cache.Save(ctx, days)
	s.cacheMu.Unlock()
	if err != nil {
		s.logger.Warn("saving local cache failed", zap.Error(err))
		return slices.Clone(days), fmt.Errorf("saving local cache: %w", err)
	}
	return slices.Clone(days), nil
}

// Replace swaps in a whole new collection, as after an import.
func (s *Syncer) Replace(ctx context.Context, days []model.DailySchedule) ([]model.DailySchedule, error) {
	return s.Apply(ctx, func([]model.DailySchedule) []model.DailySchedule {
		return slices.Clone(days)
	})
}

func (s *Syncer) flushDebounced() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	_ = s.Flush(ctx)
}

// Flush writes a pending change to the remote store now. It is a no-op
// when nothing is pending. A failed write stays pending for the next
// Flush or Close but is not retried on its own.
func (s *Syncer) Flush(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.pending {
		s.mu.Unlock()
		return nil
	}
	days := s.days
	s.pending = false
	s.mu.Unlock()

	err := s.remote.SaveAll(ctx, days)
	if err != nil {
		s.logger.Error("saving schedules to remote store failed",
			zap.Int("schedules", len(days)),
			zap.Error(err),
		)
		s.mu.Lock()
		s.pending = true
		s.status.DB = StatusError
		s.status.Err = err
		s.mu.Unlock()
		return fmt.Errorf("saving schedules: %w", err)
	}

	s.mu.Lock()
	s.status = Status{DB: StatusOK, LastSaved: time.Now()}
	s.mu.Unlock()
	return nil
}

// Close flushes any pending change.
func (s *Syncer) Close(ctx context.Context) error {
	return s.Flush(ctx)
}

func (s *Syncer) setStatus(db DBStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.DB = db
	s.status.Err = err
}

// SendDay exports one day. Re-sending a day already marked sent needs
// confirm to agree. The day is marked sent when at least one event was
// created, including partial success.
func (s *Syncer) SendDay(ctx context.Context, dayID string, dir model.Directory, confirm ConfirmFunc) (export.Result, error) {
	day, ok := schedule.Find(s.Days(), dayID)
	if !ok {
		return export.Result{}, ErrDayNotFound
	}

	if day.SentToQB {
		msg := fmt.Sprintf("This day (%s) has already been sent to QuickBooks Time.\n\nDo you want to send it again?", day.Label())
		if confirm == nil || !confirm(msg) {
			return export.Result{}, ErrAlreadySent
		}
	}

	res, err := s.exporter.ExportDay(ctx, day, dir)
	if err != nil {
		return export.Result{}, err
	}

	if res.Success {
		if _, err := s.Apply(ctx, func(days []model.DailySchedule) []model.DailySchedule {
			return schedule.MarkSent(days, dayID)
		}); err != nil {
			s.logger.Warn("marking schedule sent", zap.String("schedule_id", dayID), zap.Error(err))
		}
	}
	return res, nil
}

// Prune keeps the keep newest days once confirm agrees, returning how
// many were removed.
func (s *Syncer) Prune(ctx context.Context, keep int, confirm ConfirmFunc) (int, error) {
	days := s.Days()
	doomed := schedule.PruneCandidates(days, keep)
	if len(doomed) == 0 {
		return 0, nil
	}

	noun := "entries"
	if len(doomed) == 1 {
		noun = "entry"
	}
	msg := fmt.Sprintf("There are %d schedule entries. %d old %s will be deleted to keep only the %d newest.\n\nProceed?",
		len(days), len(doomed), noun, keep)
	if confirm == nil || !confirm(msg) {
		return 0, nil
	}

	removed := 0
	_, err := s.Apply(ctx, func(days []model.DailySchedule) []model.DailySchedule {
		kept, n := schedule.PruneOldest(days, keep)
		removed = n
		return kept
	})
	return removed, err
}
