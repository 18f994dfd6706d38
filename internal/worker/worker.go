// Package worker refreshes the birthday snapshot on a cron schedule and fans
// it out to the presentation layers.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tartampluch/birthday-board/internal/config"
	"github.com/tartampluch/birthday-board/internal/engine"
	"github.com/tartampluch/birthday-board/internal/locale"
	"github.com/tartampluch/birthday-board/internal/metrics"
)

// Refresher produces snapshots. *engine.Board implements it.
type Refresher interface {
	Refresh(ctx context.Context, cfg engine.SourceConfig) (*engine.Snapshot, error)
}

// SourceFunc returns the source configuration for the next refresh, so that
// settings and secrets are read fresh every time.
type SourceFunc func() engine.SourceConfig

// SettingsSource reads the source section of st on every call, with the
// password looked up in the keyring.
func SettingsSource(st *config.Store) SourceFunc {
	return func() engine.SourceConfig {
		src := st.Get().Source
		return engine.SourceFromSettings(src, config.LookupPassword(src.User))
	}
}

// LocalizedSource behaves like SettingsSource and also switches tr to the
// configured language before each refresh, so that a language saved from the
// tray reaches the feed and the web board. tr must only be used by the
// worker's refreshes and listeners, which run one at a time.
func LocalizedSource(st *config.Store, tr *locale.Translator) SourceFunc {
	source := SettingsSource(st)
	return func() engine.SourceConfig {
		if lang := st.Get().Language; lang != tr.Lang() {
			tr.SetLanguage(lang)
		}
		return source()
	}
}

// Listener is notified after every refresh. On failure snap is the snapshot
// still in service (nil if none succeeded yet) and err is non-nil.
type Listener func(snap *engine.Snapshot, err error)

// Worker owns the refresh schedule.
type Worker struct {
	board    Refresher
	source   SourceFunc
	metrics  *metrics.Metrics
	schedule cron.Schedule
	spec     string

	mu        sync.Mutex // serializes refreshes
	last      atomic.Pointer[engine.Snapshot]
	listeners []Listener
	trigger   chan struct{}
}

// New validates spec (standard five-field cron syntax or a descriptor such
// as "@hourly") and returns an idle worker. m may be nil.
func New(board Refresher, source SourceFunc, spec string, m *metrics.Metrics) (*Worker, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("%s: %q: %w", config.ErrCronSpec, spec, err)
	}
	return &Worker{
		board:    board,
		source:   source,
		metrics:  m,
		schedule: schedule,
		spec:     spec,
		trigger:  make(chan struct{}, config.ChannelBufferSize),
	}, nil
}

// Subscribe registers l. It must be called before Run.
func (w *Worker) Subscribe(l Listener) {
	w.listeners = append(w.listeners, l)
}

// Last returns the most recent successful snapshot, or nil.
func (w *Worker) Last() *engine.Snapshot {
	return w.last.Load()
}

// Next returns the first scheduled run after t, evaluated in the reference zone.
func (w *Worker) Next(t time.Time) time.Time {
	return w.schedule.Next(engine.InReferenceZone(t))
}

// Trigger requests an immediate refresh from the running worker. Requests
// arriving while one is already pending are coalesced.
func (w *Worker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run performs an initial refresh, then refreshes on schedule and on Trigger
// until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	log := slog.With(config.LogKeyComponent, config.CompWorker)

	c := cron.New(
		cron.WithLocation(engine.ReferenceZone),
		cron.WithLogger(cronLogger{log: log}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: log})),
	)
	c.Schedule(w.schedule, cron.FuncJob(func() {
		_, _ = w.RefreshNow(ctx, false)
	}))

	_, _ = w.RefreshNow(ctx, false)

	c.Start()
	log.Info(config.MsgWorkerStart,
		config.LogKeySchedule, w.spec,
		config.LogKeyNow, engine.NowInReferenceZone(engine.RealClock{}),
	)

	defer func() {
		<-c.Stop().Done()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info(config.MsgWorkerStop)
			return nil
		case <-w.trigger:
			_, _ = w.RefreshNow(ctx, true)
		}
	}
}

// RefreshNow runs one refresh synchronously and notifies listeners. A failed
// refresh leaves the previous snapshot in place.
func (w *Worker) RefreshNow(ctx context.Context, manual bool) (*engine.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	log := slog.With(config.LogKeyComponent, config.CompWorker)
	log.Info(config.MsgRefreshReq, config.LogKeyManual, manual)

	start := time.Now()
	snap, err := w.board.Refresh(ctx, w.source())
	if err != nil {
		log.Error(config.ErrRefreshFailed, config.LogKeyError, err)
		if w.metrics != nil {
			w.metrics.ObserveFailure(start)
		}
		w.notify(w.last.Load(), err)
		return nil, err
	}

	w.last.Store(snap)
	if w.metrics != nil {
		w.metrics.ObserveSuccess(start, len(snap.Records), len(snap.Skipped), len(snap.Result.Today))
	}
	log.Info(config.MsgRefreshDone,
		config.LogKeyToday, len(snap.Result.Today),
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
	w.notify(snap, nil)
	return snap, nil
}

func (w *Worker) notify(snap *engine.Snapshot, err error) {
	for _, l := range w.listeners {
		l(snap, err)
	}
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, config.LogKeyError, err)...)
}
