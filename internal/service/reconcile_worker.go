package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/postrate/internal/metrics"
)

const (
	DefaultReconcileSchedule = "@every 5m"

	// driftEpsilon is the largest difference between the stored and the
	// rebuilt aggregate that is not counted as drift.
	driftEpsilon = 1e-6
)

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	Checked  int
	Repaired int
	Failed   int
}

// ReconcileWorker rebuilds post aggregates from their vote records. Posts
// touched by accepted votes are queued with MarkDirty and flushed on a cron
// schedule, so a burst of votes on one post is reconciled once.
type ReconcileWorker struct {
	votes    VoteStore
	cache    *CacheService
	schedule string
	logger   zerolog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewReconcileWorker(votes VoteStore, cache *CacheService, schedule string, logger zerolog.Logger) *ReconcileWorker {
	if schedule == "" {
		schedule = DefaultReconcileSchedule
	}
	return &ReconcileWorker{
		votes:    votes,
		cache:    cache,
		schedule: schedule,
		logger:   logger.With().Str("component", "reconcile-worker").Logger(),
		pending:  make(map[string]struct{}),
	}
}

// MarkDirty queues a post for the next flush.
func (w *ReconcileWorker) MarkDirty(postID string) {
	w.mu.Lock()
	w.pending[postID] = struct{}{}
	w.mu.Unlock()
}

// Pending returns the number of queued posts.
func (w *ReconcileWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Start schedules Flush and returns immediately. When ctx is cancelled the
// scheduler stops and the queue is flushed one last time; the returned
// channel is closed once that is done.
func (w *ReconcileWorker) Start(ctx context.Context) (<-chan struct{}, error) {
	c := cron.New()
	if _, err := c.AddFunc(w.schedule, func() { w.Flush(ctx) }); err != nil {
		return nil, fmt.Errorf("reconcile schedule %q: %w", w.schedule, err)
	}
	c.Start()
	w.logger.Info().Str("schedule", w.schedule).Msg("starting")

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		<-c.Stop().Done()
		w.Flush(context.Background())
		w.logger.Info().Msg("stopped")
	}()
	return done, nil
}

// Flush drains the queue and reconciles every queued post.
func (w *ReconcileWorker) Flush(ctx context.Context) ReconcileReport {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return ReconcileReport{}
	}
	batch := w.pending
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	ids := make([]string, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	return w.reconcile(ctx, ids)
}

// RunAll reconciles every post that has votes.
func (w *ReconcileWorker) RunAll(ctx context.Context) (ReconcileReport, error) {
	ids, err := w.votes.ListPostIDsWithVotes(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}
	return w.reconcile(ctx, ids), nil
}

func (w *ReconcileWorker) reconcile(ctx context.Context, ids []string) ReconcileReport {
	start := time.Now()
	var report ReconcileReport
	for _, postID := range ids {
		report.Checked++
		repaired, err := w.reconcileOne(ctx, postID)
		if err != nil {
			report.Failed++
			w.logger.Error().Err(err).Str("post_id", postID).Msg("reconcile failed")
			continue
		}
		if repaired {
			report.Repaired++
		}
	}
	metrics.ReconcileDuration.Observe(time.Since(start).Seconds())

	if report.Repaired > 0 || report.Failed > 0 {
		w.logger.Warn().
			Int("checked", report.Checked).
			Int("repaired", report.Repaired).
			Int("failed", report.Failed).
			Msg("reconcile pass complete")
	} else {
		w.logger.Debug().Int("checked", report.Checked).Msg("reconcile pass complete")
	}
	return report
}

func (w *ReconcileWorker) reconcileOne(ctx context.Context, postID string) (bool, error) {
	before, after, err := w.votes.ReconcileRatingState(ctx, postID)
	if err != nil {
		return false, err
	}
	if before.Equal(after, driftEpsilon) {
		return false, nil
	}

	metrics.AggregateDrift.Inc()
	w.logger.Warn().
		Str("post_id", postID).
		Int64("stored_count", before.Count).
		Int64("rebuilt_count", after.Count).
		Float64("stored_weighted_rating", before.WeightedRating).
		Float64("rebuilt_weighted_rating", after.WeightedRating).
		Msg("aggregate drift repaired")

	if w.cache != nil {
		if err := w.cache.InvalidatePost(ctx, postID); err != nil {
			w.logger.Warn().Err(err).Str("post_id", postID).Msg("cache: invalidate failed")
		}
	}
	return true, nil
}
