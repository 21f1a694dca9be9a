package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloser struct {
	closed int
	err    error
	calls  int
}

func (f *fakeCloser) CloseStale(ctx context.Context) (int, error) {
	f.calls++
	return f.closed, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweepClosesStaleSessions(t *testing.T) {
	closer := &fakeCloser{closed: 3}
	s := NewSweeper(closer, testLogger())

	s.sweep()

	assert.Equal(t, 1, closer.calls)
}

func TestSweepSurvivesStoreError(t *testing.T) {
	closer := &fakeCloser{err: errors.New("connection refused")}
	s := NewSweeper(closer, testLogger())

	s.sweep()
	s.sweep()

	// The cron entry keeps firing after a failed run.
	assert.Equal(t, 2, closer.calls)
}

func TestStartStop(t *testing.T) {
	s := NewSweeper(&fakeCloser{}, testLogger())

	require.NoError(t, s.Start())
	s.Stop()
}
