package workers

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

const (
	defaultKeepaliveInterval = 60 * time.Second
	defaultResyncInterval    = 5 * time.Minute
)

// KeepaliveWorker pings the store on an interval so idle pooled connections
// are noticed and replaced before a request needs them.
type KeepaliveWorker struct {
	PG       *sql.DB
	Interval time.Duration
	Logger   *zap.Logger
}

func NewKeepaliveWorker(pg *sql.DB, interval time.Duration, logger *zap.Logger) *KeepaliveWorker {
	if interval <= 0 {
		interval = defaultKeepaliveInterval
	}
	return &KeepaliveWorker{PG: pg, Interval: interval, Logger: logger}
}

// Start blocks until ctx is done.
func (w *KeepaliveWorker) Start(ctx context.Context) {
	w.Logger.Info("keepalive worker started", zap.Duration("interval", w.Interval))

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("keepalive worker stopped")
			return
		case <-ticker.C:
			w.ping(ctx)
		}
	}
}

func (w *KeepaliveWorker) ping(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.Interval/2)
	defer cancel()

	if err := w.PG.PingContext(ctx); err != nil {
		w.Logger.Error("store keepalive failed", zap.Error(err))
		return
	}
	w.Logger.Debug("store keepalive ok")
}

// ScheduleResyncer re-mirrors the stored schedule to the telephony platform.
type ScheduleResyncer interface {
	Resync(ctx context.Context) error
}

// ScheduleSyncWorker periodically pushes the stored business hours to the
// telephony platform so a cache that missed a write converges.
type ScheduleSyncWorker struct {
	Schedule ScheduleResyncer
	Interval time.Duration
	Logger   *zap.Logger
}

func NewScheduleSyncWorker(schedule ScheduleResyncer, interval time.Duration, logger *zap.Logger) *ScheduleSyncWorker {
	if interval <= 0 {
		interval = defaultResyncInterval
	}
	return &ScheduleSyncWorker{Schedule: schedule, Interval: interval, Logger: logger}
}

// Start runs one resync immediately, then on every tick until ctx is done.
func (w *ScheduleSyncWorker) Start(ctx context.Context) {
	w.Logger.Info("schedule sync worker started", zap.Duration("interval", w.Interval))

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.resync(ctx)
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("schedule sync worker stopped")
			return
		case <-ticker.C:
			w.resync(ctx)
		}
	}
}

func (w *ScheduleSyncWorker) resync(ctx context.Context) {
	if err := w.Schedule.Resync(ctx); err != nil {
		w.Logger.Warn("schedule resync failed", zap.Error(err))
	}
}
