package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKeepaliveWorker(t *testing.T) {
	pg, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer pg.Close()

	mock.ExpectPing().WillReturnError(errors.New("server has gone away"))
	mock.ExpectPing()

	w := NewKeepaliveWorker(pg, 10*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepalive worker did not stop")
	}
}

type countingResyncer struct {
	calls atomic.Int32
	err   error
}

func (r *countingResyncer) Resync(context.Context) error {
	r.calls.Add(1)
	return r.err
}

func TestScheduleSyncWorker(t *testing.T) {
	resyncer := &countingResyncer{err: errors.New("notifier unreachable")}
	w := NewScheduleSyncWorker(resyncer, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return resyncer.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	stopped := resyncer.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, resyncer.calls.Load())
}

func TestWorkerDefaults(t *testing.T) {
	assert.Equal(t, defaultKeepaliveInterval, NewKeepaliveWorker(nil, 0, zap.NewNop()).Interval)
	assert.Equal(t, defaultResyncInterval, NewScheduleSyncWorker(nil, -1, zap.NewNop()).Interval)
}
