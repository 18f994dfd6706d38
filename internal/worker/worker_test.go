package worker_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/birthday-board/internal/config"
	"github.com/tartampluch/birthday-board/internal/engine"
	"github.com/tartampluch/birthday-board/internal/locale"
	"github.com/tartampluch/birthday-board/internal/metrics"
	"github.com/tartampluch/birthday-board/internal/worker"
	"github.com/zalando/go-keyring"
)

// MockRefresher simulates the board pipeline using `testify/mock`.
type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) Refresh(ctx context.Context, cfg engine.SourceConfig) (*engine.Snapshot, error) {
	args := m.Called(ctx, cfg)
	if s := args.Get(0); s != nil {
		return s.(*engine.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

var localSource = engine.SourceConfig{Mode: config.SourceModeLocal, LocalPath: "birthday.txt"}

func staticSource() engine.SourceConfig { return localSource }

func snapshotWithToday(n int) *engine.Snapshot {
	snap := &engine.Snapshot{}
	for i := 0; i < n; i++ {
		occ := engine.Occurrence{IsToday: true}
		snap.Result.Today = append(snap.Result.Today, occ)
		snap.Result.Ordered = append(snap.Result.Ordered, occ)
		snap.Records = append(snap.Records, engine.BirthdayRecord{})
	}
	return snap
}

// recorder collects listener calls.
type recorder struct {
	mu    sync.Mutex
	snaps []*engine.Snapshot
	errs  []error
}

func (r *recorder) listen(snap *engine.Snapshot, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
	r.errs = append(r.errs, err)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func TestNew_InvalidSpec(t *testing.T) {
	w, err := worker.New(new(MockRefresher), staticSource, "not a cron spec", nil)
	assert.Nil(t, w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrCronSpec)
}

func TestNext_RunsInReferenceZone(t *testing.T) {
	w, err := worker.New(new(MockRefresher), staticSource, config.DefaultRefreshCron, nil)
	require.NoError(t, err)

	// 2024-05-19 16:00 UTC is 2024-05-20 01:00 in UTC+9; next midnight there
	// is 2024-05-21 00:00 UTC+9, i.e. 2024-05-20 15:00 UTC.
	got := w.Next(time.Date(2024, 5, 19, 16, 0, 0, 0, time.UTC))

	assert.True(t, got.Equal(time.Date(2024, 5, 20, 15, 0, 0, 0, time.UTC)), "got %s", got)
	assert.Equal(t, engine.ReferenceZone, got.Location())
}

func TestRefreshNow_SuccessThenFailureKeepsSnapshot(t *testing.T) {
	first := snapshotWithToday(2)
	refresher := new(MockRefresher)
	refresher.On("Refresh", mock.Anything, localSource).Return(first, nil).Once()
	refresher.On("Refresh", mock.Anything, localSource).Return(nil, errors.New("source gone")).Once()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	w, err := worker.New(refresher, staticSource, config.DefaultRefreshCron, m)
	require.NoError(t, err)

	rec := &recorder{}
	w.Subscribe(rec.listen)

	snap, err := w.RefreshNow(context.Background(), true)
	require.NoError(t, err)
	assert.Same(t, first, snap)
	assert.Same(t, first, w.Last())

	snap, err = w.RefreshNow(context.Background(), false)
	assert.Nil(t, snap)
	require.EqualError(t, err, "source gone")
	assert.Same(t, first, w.Last(), "failed refresh must keep the previous snapshot")

	require.Equal(t, 2, rec.count())
	assert.Same(t, first, rec.snaps[0])
	assert.NoError(t, rec.errs[0])
	assert.Same(t, first, rec.snaps[1])
	assert.Error(t, rec.errs[1])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes.WithLabelValues(config.MetricResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes.WithLabelValues(config.MetricResultError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BirthdaysToday))
	refresher.AssertExpectations(t)
}

func TestRun_InitialRefreshTriggerAndStop(t *testing.T) {
	refresher := new(MockRefresher)
	refresher.On("Refresh", mock.Anything, localSource).Return(snapshotWithToday(0), nil)

	// Yearly: the cron tick never fires during the test.
	w, err := worker.New(refresher, staticSource, "@yearly", nil)
	require.NoError(t, err)

	rec := &recorder{}
	w.Subscribe(rec.listen)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond,
		"initial refresh must run at start")

	w.Trigger()
	require.Eventually(t, func() bool { return rec.count() == 2 }, 2*time.Second, 10*time.Millisecond,
		"trigger must cause a refresh")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.NotNil(t, w.Last())
}

func TestSettingsSource_ReadsStoreAndKeyring(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, config.StorePassword("alice", "pw"))

	st := config.NewStore(filepath.Join(t.TempDir(), config.ConfigFileName), nil)
	source := worker.SettingsSource(st)

	assert.Equal(t, config.SourceModeLocal, source().Mode)
	assert.Empty(t, source().WebPass)

	s := st.Get()
	s.Source.Mode = config.SourceModeWeb
	s.Source.URL = "https://example.com/birthday.txt"
	s.Source.User = "alice"
	require.NoError(t, st.Save(s))

	cfg := source()
	assert.Equal(t, config.SourceModeWeb, cfg.Mode)
	assert.Equal(t, "https://example.com/birthday.txt", cfg.WebURL)
	assert.Equal(t, "alice", cfg.WebUser)
	assert.Equal(t, "pw", cfg.WebPass)
}

func TestLocalizedSource_FollowsSavedLanguage(t *testing.T) {
	keyring.MockInit()

	st := config.NewStore(filepath.Join(t.TempDir(), config.ConfigFileName), nil)
	tr := locale.New("en")
	source := worker.LocalizedSource(st, tr)

	source()
	assert.Equal(t, "en", tr.Lang())

	s := st.Get()
	s.Language = "ja"
	require.NoError(t, st.Save(s))

	cfg := source()
	assert.Equal(t, "ja", tr.Lang())
	assert.Equal(t, config.SourceModeLocal, cfg.Mode)
}
