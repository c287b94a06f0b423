package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"basegraph.app/trigger/common/logger"
	"basegraph.app/trigger/internal/queue"
)

// StaleClaimer takes over messages a dead worker read but never acknowledged.
type StaleClaimer interface {
	ClaimStale(ctx context.Context, minIdle time.Duration, count int64) ([]queue.StaleMessage, error)
}

type ReclaimerConfig struct {
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64

	// MaxDeliveries sends a claimed message to the DLQ instead of processing it
	// once the stream has handed it out this often.
	MaxDeliveries int64
}

// Reclaimer periodically claims stale status messages and runs them through
// the same processing as fresh ones.
type Reclaimer struct {
	claimer   StaleClaimer
	consumer  Consumer
	processor queue.MessageProcessor
	cfg       ReclaimerConfig

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewReclaimer(claimer StaleClaimer, consumer Consumer, processor queue.MessageProcessor, cfg ReclaimerConfig) *Reclaimer {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.MinIdle <= 0 {
		cfg.MinIdle = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 5
	}
	return &Reclaimer{
		claimer:   claimer,
		consumer:  consumer,
		processor: processor,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run blocks until Stop is called or ctx is done.
func (r *Reclaimer) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "trigger.worker.reclaimer",
	})
	defer close(r.stoppedCh)

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle,
		"max_deliveries", r.cfg.MaxDeliveries)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			if _, err := r.ReclaimOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim cycle failed", "error", err)
			}
		}
	}
}

func (r *Reclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// ReclaimOnce runs one claim cycle and returns how many messages it handled.
// A message whose processing fails stays pending for a later cycle.
func (r *Reclaimer) ReclaimOnce(ctx context.Context) (int, error) {
	stale, err := r.claimer.ClaimStale(ctx, r.cfg.MinIdle, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claiming stale messages: %w", err)
	}
	if len(stale) > 0 {
		slog.InfoContext(ctx, "claimed stale status messages", "count", len(stale))
	}

	handled := 0
	for _, s := range stale {
		msgCtx := logger.WithLogFields(ctx, logger.LogFields{
			MessageID: logger.Ptr(s.Message.ID),
			JobName:   logger.Ptr(s.Message.Job),
			BuildID:   logger.Ptr(s.Message.BuildID),
		})
		if err := r.handle(msgCtx, s); err != nil {
			slog.ErrorContext(msgCtx, "reclaimed message failed", "error", err, "deliveries", s.Deliveries)
			continue
		}
		handled++
	}
	return handled, nil
}

func (r *Reclaimer) handle(ctx context.Context, s queue.StaleMessage) error {
	if s.Deliveries >= r.cfg.MaxDeliveries {
		slog.ErrorContext(ctx, "status message delivered too often, sending to DLQ", "deliveries", s.Deliveries)
		return r.consumer.SendDLQ(ctx, s.Message, fmt.Sprintf("delivered %d times without acknowledgement", s.Deliveries))
	}

	start := time.Now()
	if err := r.processor(ctx, s.Message); err != nil {
		return fmt.Errorf("processing reclaimed message: %w", err)
	}
	slog.InfoContext(ctx, "reclaimed message processed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}
