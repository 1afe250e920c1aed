package app

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"service-dispatch-go/internal/logx"
	testlog "service-dispatch-go/internal/testutil"
)

func hasMsg(entries []testlog.Entry, msg string) bool {
	for _, e := range entries {
		if e.Msg == msg {
			return true
		}
	}
	return false
}

func newLoggerContainer(t *testing.T) (*dig.Container, *testlog.Recorder) {
	t.Helper()
	rec := testlog.New()
	container := dig.New()
	require.NoError(t, container.Provide(func() logx.Logger { return rec.Logger() }))
	return container, rec
}

func TestRunner_MustRun_ShutdownRequested(t *testing.T) {
	t.Parallel()

	container, rec := newLoggerContainer(t)
	r := &Runner{runFn: func(*dig.Container) error { return context.Canceled }}

	assert.NotPanics(t, func() { r.MustRun(container) })
	assert.True(t, hasMsg(rec.Entries(), "shutdown requested, exiting"))
}

func TestRunner_MustRun_StartupTimeout(t *testing.T) {
	t.Parallel()

	container, rec := newLoggerContainer(t)
	r := &Runner{runFn: func(*dig.Container) error { return context.DeadlineExceeded }}

	assert.NotPanics(t, func() { r.MustRun(container) })
	assert.True(t, hasMsg(rec.Entries(), "startup aborted: startup timeout exceeded"))
}

func TestRunner_MustRun_PanicsOnUnexpectedError(t *testing.T) {
	t.Parallel()

	container, rec := newLoggerContainer(t)
	boom := errors.New("boom")
	r := &Runner{runFn: func(*dig.Container) error { return boom }}

	assert.PanicsWithValue(t, boom, func() { r.MustRun(container) })
	assert.True(t, hasMsg(rec.Entries(), "service stopped"))
}

func TestRunner_MustRun_CleanExit(t *testing.T) {
	t.Parallel()

	container, rec := newLoggerContainer(t)
	r := &Runner{runFn: func(*dig.Container) error { return nil }}

	assert.NotPanics(t, func() { r.MustRun(container) })
	assert.Empty(t, rec.Entries())
}

type stubRebroadcaster struct {
	calls atomic.Int64
	err   error
}

func (s *stubRebroadcaster) RebroadcastRequested(context.Context) (int, error) {
	s.calls.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	return 1, nil
}

func TestStartRebroadcastLoop_DisabledByDefault(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	svc := &stubRebroadcaster{}

	startRebroadcastLoop(context.Background(), rec.Logger(), svc, 0)

	assert.Empty(t, rec.Entries())
	assert.Zero(t, svc.calls.Load())
}

func TestStartRebroadcastLoop_Ticks(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := testlog.New()
	svc := &stubRebroadcaster{}

	startRebroadcastLoop(ctx, rec.Logger(), svc, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return svc.calls.Load() > 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return hasMsg(rec.Entries(), "rebroadcast waiting deliveries") }, 2*time.Second, 5*time.Millisecond)
}

func TestStartRebroadcastLoop_LogsFailures(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := testlog.New()
	svc := &stubRebroadcaster{err: errors.New("db down")}

	startRebroadcastLoop(ctx, rec.Logger(), svc, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return hasMsg(rec.Entries(), "rebroadcast failed") }, 2*time.Second, 5*time.Millisecond)
}

func TestGracefulShutdown_SkipsNilServers(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		gracefulShutdown(testlog.New().Logger(), nil, &http.Server{})
	})
}

func TestStartServer_ReportsListenFailure(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	errCh := make(chan error, 1)
	startServer(rec.Logger(), &http.Server{Addr: "invalid::addr::0"}, "http", errCh)

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected listen error")
	}
	assert.True(t, hasMsg(rec.Entries(), "server failed"))
}
