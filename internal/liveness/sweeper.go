package liveness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/notify"
)

// ErrSweepInProgress is returned when a sweep is started while another one
// is still running.
var ErrSweepInProgress = errors.New("sweep already in progress")

// PostingStore is the persistence surface the sweeper depends on.
type PostingStore interface {
	ListDueForCheck(ctx context.Context, cutoff time.Time, limit int) ([]*domain.JobPosting, error)
	UpdateLiveness(ctx context.Context, p *domain.JobPosting) error
	UpdateGhostScore(ctx context.Context, id string, score int, reasons domain.StringSlice) error
}

// CheckLog is the append-only check history sink.
type CheckLog interface {
	Append(ctx context.Context, check *domain.LivenessCheck) error
}

// SweeperConfig tunes a sweep pass.
type SweeperConfig struct {
	// CheckInterval is how old a posting's last check must be before it is
	// due again.
	CheckInterval time.Duration
	// MaxConcurrent bounds parallel URL probes.
	MaxConcurrent int
	// BatchLimit caps how many postings one sweep touches.
	BatchLimit int
}

// WithDefaults fills unset fields.
func (c SweeperConfig) WithDefaults() SweeperConfig {
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 5
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = 500
	}
	return c
}

// SweepStats summarizes one sweep pass.
type SweepStats struct {
	Checked      int
	Confirmed    int
	Expired      int
	Inconclusive int
	GhostFlagged int
	Failed       int
}

// Sweeper runs periodic liveness checks over due postings. At most one
// sweep runs at a time; overlapping starts are rejected.
type Sweeper struct {
	store    PostingStore
	checkLog CheckLog
	checker  *Checker
	scorer   *GhostScorer
	notifier notify.Notifier
	cfg      SweeperConfig
	log      logger.Interface
	running  atomic.Bool
}

// NewSweeper creates a sweeper. A nil notifier falls back to the no-op.
func NewSweeper(
	store PostingStore,
	checkLog CheckLog,
	checker *Checker,
	scorer *GhostScorer,
	notifier notify.Notifier,
	cfg SweeperConfig,
	log logger.Interface,
) *Sweeper {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Sweeper{
		store:    store,
		checkLog: checkLog,
		checker:  checker,
		scorer:   scorer,
		notifier: notifier,
		cfg:      cfg.WithDefaults(),
		log:      log.WithComponent("sweeper"),
	}
}

// Sweep checks every due posting once, with bounded concurrency.
func (s *Sweeper) Sweep(ctx context.Context) (SweepStats, error) {
	if !s.running.CompareAndSwap(false, true) {
		return SweepStats{}, ErrSweepInProgress
	}
	defer s.running.Store(false)

	cutoff := time.Now().UTC().Add(-s.cfg.CheckInterval)
	due, err := s.store.ListDueForCheck(ctx, cutoff, s.cfg.BatchLimit)
	if err != nil {
		return SweepStats{}, fmt.Errorf("list due postings: %w", err)
	}
	if len(due) == 0 {
		s.log.Debug("no postings due for liveness check")
		return SweepStats{}, nil
	}

	s.log.Info("starting liveness sweep", "due", len(due))
	start := time.Now()

	var (
		mu    sync.Mutex
		stats SweepStats
		wg    sync.WaitGroup
		sem   = make(chan struct{}, s.cfg.MaxConcurrent)
	)

	for _, posting := range due {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(p *domain.JobPosting) {
			defer wg.Done()
			defer func() { <-sem }()

			result := s.sweepOne(ctx, p)
			mu.Lock()
			stats.Checked++
			switch {
			case result.err != nil:
				stats.Failed++
			case result.outcome == OutcomeConfirmed:
				stats.Confirmed++
			case result.expired:
				stats.Expired++
			case result.outcome == OutcomeInconclusive:
				stats.Inconclusive++
			}
			if result.ghostFlagged {
				stats.GhostFlagged++
			}
			mu.Unlock()
		}(posting)
	}
	wg.Wait()

	s.log.Info("liveness sweep complete",
		"checked", stats.Checked,
		"confirmed", stats.Confirmed,
		"expired", stats.Expired,
		"inconclusive", stats.Inconclusive,
		"ghost_flagged", stats.GhostFlagged,
		"failed", stats.Failed,
		"duration", time.Since(start),
	)
	return stats, ctx.Err()
}

type sweepResult struct {
	outcome      string
	expired      bool
	ghostFlagged bool
	err          error
}

// sweepOne checks one posting, persists its new state, rescores it, and
// publishes lifecycle events.
func (s *Sweeper) sweepOne(ctx context.Context, p *domain.JobPosting) sweepResult {
	wasExpired := p.Status == domain.LivenessExpired
	oldBand := s.scorer.Band(p.GhostScore)

	check := s.checker.Check(ctx, p)
	if err := s.store.UpdateLiveness(ctx, p); err != nil {
		s.log.Error("failed to persist liveness state", "job_id", p.ID, "error", err)
		return sweepResult{err: err}
	}
	if err := s.checkLog.Append(ctx, check); err != nil {
		s.log.Warn("failed to append liveness log", "job_id", p.ID, "error", err)
	}

	score, reasons := s.scorer.Score(p)
	if score != p.GhostScore {
		p.GhostScore = score
		p.GhostReasons = reasons
		if err := s.store.UpdateGhostScore(ctx, p.ID, score, reasons); err != nil {
			s.log.Error("failed to persist ghost score", "job_id", p.ID, "error", err)
			return sweepResult{outcome: check.Outcome, err: err}
		}
	}

	result := sweepResult{outcome: check.Outcome}
	if !wasExpired && p.Status == domain.LivenessExpired {
		result.expired = true
		s.publish(ctx, notify.EventJobExpired, p)
	}
	if newBand := s.scorer.Band(p.GhostScore); newBand == domain.GhostLikely && oldBand != domain.GhostLikely {
		result.ghostFlagged = true
		s.publish(ctx, notify.EventJobGhost, p)
	}
	return result
}

func (s *Sweeper) publish(ctx context.Context, eventType string, p *domain.JobPosting) {
	if err := s.notifier.Publish(ctx, notify.NewEvent(eventType, p)); err != nil {
		s.log.Warn("failed to publish event", "type", eventType, "job_id", p.ID, "error", err)
	}
}
