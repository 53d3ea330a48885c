package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"eventhorizon/internal/domain"
	"eventhorizon/internal/observability/metrics"
)

// Scheduler drives the reminder scan on a fixed interval and exposes an
// on-demand trigger. At most one scan runs at a time: a tick or trigger that
// finds a scan in flight is skipped, never queued.
type Scheduler struct {
	service  domain.ReminderService
	interval time.Duration
	logger   *slog.Logger
	running  atomic.Bool
}

// New creates a Scheduler that invokes service every interval.
func New(service domain.ReminderService, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the recurring loop until ctx is canceled. An in-flight scan is
// abandoned on shutdown; flag updates already committed stay committed, and
// any sent-but-unflagged pair is re-notified after restart (accepted
// at-least-once behavior, no durable scan marker is kept).
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("reminder scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopping")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// RunNow triggers one scan asynchronously and returns immediately. If a scan
// is already running it returns domain.ErrScanInProgress instead of queuing.
// The scan is detached from ctx's cancellation: a caller going away (e.g. an
// HTTP client disconnecting) must not kill a half-committed scan.
func (s *Scheduler) RunNow(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		metrics.ScansSkippedTotal.Inc()
		return domain.ErrScanInProgress
	}
	scanCtx := context.WithoutCancel(ctx)
	go func() {
		defer s.running.Store(false)
		s.scan(scanCtx)
	}()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.ScansSkippedTotal.Inc()
		s.logger.Warn("previous reminder scan still running, skipping tick")
		return
	}
	defer s.running.Store(false)
	s.scan(ctx)
}

// scan runs one scan and contains its failures: a store error aborts that scan
// only and is logged here, never propagated to the host process.
func (s *Scheduler) scan(ctx context.Context) {
	start := time.Now()
	res, err := s.service.RunScan(ctx, start)
	metrics.ScanDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ScansTotal.WithLabelValues("error").Inc()
		s.logger.Error("reminder scan aborted", "err", err,
			"events", res.Events, "notified", res.Notified, "failed", res.Failed)
		return
	}
	metrics.ScansTotal.WithLabelValues("ok").Inc()
	if res.Events > 0 || res.Notified > 0 || res.Failed > 0 {
		s.logger.Info("reminder scan finished",
			"events", res.Events, "notified", res.Notified, "failed", res.Failed,
			"duration_ms", time.Since(start).Milliseconds())
	}
}
