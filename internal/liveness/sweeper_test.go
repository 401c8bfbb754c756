package liveness_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/fetch"
	"github.com/jobradar/jobradar/internal/liveness"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/notify"
)

// sweepStore is an in-memory PostingStore and CheckLog.
type sweepStore struct {
	mu      sync.Mutex
	due     []*domain.JobPosting
	updated []*domain.JobPosting
	scores  map[string]int
	checks  []*domain.LivenessCheck
}

func newSweepStore(due ...*domain.JobPosting) *sweepStore {
	return &sweepStore{due: due, scores: map[string]int{}}
}

func (s *sweepStore) ListDueForCheck(context.Context, time.Time, int) ([]*domain.JobPosting, error) {
	return s.due, nil
}

func (s *sweepStore) UpdateLiveness(_ context.Context, p *domain.JobPosting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, p)
	return nil
}

func (s *sweepStore) UpdateGhostScore(_ context.Context, id string, score int, _ domain.StringSlice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[id] = score
	return nil
}

func (s *sweepStore) Append(_ context.Context, check *domain.LivenessCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, check)
	return nil
}

// captureNotifier records every published event.
type captureNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *captureNotifier) Publish(_ context.Context, e notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

// gateFetcher signals when the first probe starts and blocks until released.
type gateFetcher struct {
	inner   liveness.Fetcher
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateFetcher) Head(ctx context.Context, url string) (*fetch.Response, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.inner.Head(ctx, url)
}

func (g *gateFetcher) Get(ctx context.Context, url string) (*fetch.Response, error) {
	return g.inner.Get(ctx, url)
}

func duePosting(id string) *domain.JobPosting {
	return &domain.JobPosting{
		ID:               id,
		URL:              "https://acme.example/jobs/" + id,
		Status:           domain.LivenessUnknown,
		TrustScore:       50,
		Description:      "A long enough description for a real posting, covering responsibilities, requirements, and the interview process in detail. It keeps going well past the vagueness threshold so the ghost scorer has nothing to flag about its length at all.",
		SalaryMin:        90000,
		SalaryMax:        120000,
		RecruiterContact: "talent@acme.example",
		PostedAt:         time.Now().Add(-24 * time.Hour),
		FirstSeenAt:      time.Now().Add(-24 * time.Hour),
	}
}

func newSweeper(store *sweepStore, fetcher liveness.Fetcher, notifier notify.Notifier) *liveness.Sweeper {
	checker := liveness.NewChecker(fetcher, liveness.CheckerConfig{}, logger.NewNoOp())
	scorer := liveness.NewGhostScorer(liveness.GhostConfig{})
	return liveness.NewSweeper(store, store, checker, scorer, notifier,
		liveness.SweeperConfig{MaxConcurrent: 2}, logger.NewNoOp())
}

func TestSweep_ChecksEveryDuePosting(t *testing.T) {
	t.Parallel()

	store := newSweepStore(duePosting("a"), duePosting("b"), duePosting("c"))
	fetcher := &fakeFetcher{headResp: ok(""), getResp: ok("open role, apply today")}

	stats, err := newSweeper(store, fetcher, nil).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, stats.Checked)
	assert.Equal(t, 3, stats.Confirmed)
	assert.Len(t, store.updated, 3, "every check persists liveness state")
	assert.Len(t, store.checks, 3, "every check lands in the log")
}

func TestSweep_ExpiredTransitionPublishesEvent(t *testing.T) {
	t.Parallel()

	p := duePosting("a")
	p.ConsecutiveMiss = 2 // one more miss crosses the threshold
	store := newSweepStore(p)

	headResp, headErr := gone(http.StatusNotFound)
	fetcher := &fakeFetcher{headResp: headResp, headErr: headErr}
	notifier := &captureNotifier{}

	stats, err := newSweeper(store, fetcher, notifier).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Expired)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, notify.EventJobExpired, notifier.events[0].Type)
}

func TestSweep_GhostBandCrossingPublishesEvent(t *testing.T) {
	t.Parallel()

	p := duePosting("a")
	p.Description = "short"
	p.SalaryMin, p.SalaryMax = 0, 0
	p.RecruiterContact = ""
	p.RepostCount = 3
	p.PostedAt = time.Now().Add(-90 * 24 * time.Hour)
	store := newSweepStore(p)

	// Probe misses, so the stale-checks signal fires too.
	headResp, headErr := gone(http.StatusNotFound)
	fetcher := &fakeFetcher{headResp: headResp, headErr: headErr}
	notifier := &captureNotifier{}

	stats, err := newSweeper(store, fetcher, notifier).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.GhostFlagged)
	assert.GreaterOrEqual(t, store.scores["a"], 70)

	var ghostEvents int
	for _, e := range notifier.events {
		if e.Type == notify.EventJobGhost {
			ghostEvents++
		}
	}
	assert.Equal(t, 1, ghostEvents)
}

func TestSweep_RejectsOverlappingRuns(t *testing.T) {
	t.Parallel()

	p := duePosting("a")
	store := newSweepStore(p)

	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := &gateFetcher{inner: &fakeFetcher{headResp: ok(""), getResp: ok("open")}, started: started, release: release}

	sweeper := newSweeper(store, fetcher, nil)

	done := make(chan error, 1)
	go func() {
		_, err := sweeper.Sweep(context.Background())
		done <- err
	}()

	<-started
	_, err := sweeper.Sweep(context.Background())
	assert.ErrorIs(t, err, liveness.ErrSweepInProgress)

	close(release)
	require.NoError(t, <-done)

	// After the first sweep finishes the guard is released.
	_, err = sweeper.Sweep(context.Background())
	require.NoError(t, err)
}
