package ingest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/database"
	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/ingest"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/notify"
)

// fakeStore is an in-memory PostingStore keyed by (external_id, source).
type fakeStore struct {
	postings   map[string]*domain.JobPosting
	upsertErr  error
	reposted   []string
	livenesses []*domain.JobPosting
}

func newFakeStore() *fakeStore {
	return &fakeStore{postings: map[string]*domain.JobPosting{}}
}

func storeKey(externalID, source string) string { return externalID + "|" + source }

func (s *fakeStore) Upsert(_ context.Context, p *domain.JobPosting) (bool, error) {
	if s.upsertErr != nil {
		return false, s.upsertErr
	}
	key := storeKey(p.ExternalID, p.Source)
	existing, ok := s.postings[key]
	if ok {
		// Content fields update; identity and liveness state persist.
		p.ID = existing.ID
		p.FirstSeenAt = existing.FirstSeenAt
		p.Status = existing.Status
		p.RepostCount = existing.RepostCount
		s.postings[key] = p
		return false, nil
	}
	p.ID = key
	s.postings[key] = p
	return true, nil
}

func (s *fakeStore) GetBySourceKey(_ context.Context, externalID, source string) (*domain.JobPosting, error) {
	p, ok := s.postings[storeKey(externalID, source)]
	if !ok {
		return nil, database.ErrPostingNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) IncrementRepost(_ context.Context, id string) error {
	s.reposted = append(s.reposted, id)
	for _, p := range s.postings {
		if p.ID == id {
			p.RepostCount++
		}
	}
	return nil
}

func (s *fakeStore) UpdateLiveness(_ context.Context, p *domain.JobPosting) error {
	s.livenesses = append(s.livenesses, p)
	key := storeKey(p.ExternalID, p.Source)
	if stored, ok := s.postings[key]; ok {
		stored.Status = p.Status
		stored.ConsecutiveMiss = p.ConsecutiveMiss
		stored.ExpiresAt = p.ExpiresAt
	}
	return nil
}

// captureNotifier records every published event.
type captureNotifier struct {
	events []notify.Event
	err    error
}

func (n *captureNotifier) Publish(_ context.Context, e notify.Event) error {
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, e)
	return nil
}

func groupFor(title, company, url string) domain.DuplicateGroup {
	job := &domain.ScrapedJob{
		Title:   title,
		Company: company,
		Source: domain.JobSource{
			Type:   domain.SourceCareerPage,
			URL:    url,
			Method: domain.MethodAPI,
		},
		Description: "We are hiring a " + title + " to join " + company + ".",
		ScrapedAt:   time.Now(),
	}
	return domain.DuplicateGroup{
		Canonical:  job,
		Confidence: 1.0,
		Reason:     domain.MergeExactHash,
	}
}

func TestIngest_InsertPublishesNewJobEvent(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	notifier := &captureNotifier{}
	ing := ingest.New(store, notifier, logger.NewNoOp())

	stats, err := ing.Ingest(context.Background(), []domain.DuplicateGroup{
		groupFor("Backend Engineer", "Acme", "https://acme.example/jobs/1"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)
	assert.Equal(t, 0, stats.Updated)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, notify.EventJobNew, notifier.events[0].Type)
	assert.Equal(t, "Acme", notifier.events[0].Company)
}

func TestIngest_SecondPassUpdatesInPlace(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	notifier := &captureNotifier{}
	ing := ingest.New(store, notifier, logger.NewNoOp())

	group := groupFor("Backend Engineer", "Acme", "https://acme.example/jobs/1")
	_, err := ing.Ingest(context.Background(), []domain.DuplicateGroup{group})
	require.NoError(t, err)

	stats, err := ing.Ingest(context.Background(), []domain.DuplicateGroup{group})
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Inserted)
	assert.Equal(t, 1, stats.Updated)
	assert.Len(t, store.postings, 1, "one posting per source key")
	assert.Len(t, notifier.events, 1, "no second job.new event for an update")
}

func TestIngest_ExpiredPostingReappearingIsRepost(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ing := ingest.New(store, &captureNotifier{}, logger.NewNoOp())

	group := groupFor("Backend Engineer", "Acme", "https://acme.example/jobs/1")
	_, err := ing.Ingest(context.Background(), []domain.DuplicateGroup{group})
	require.NoError(t, err)

	for _, p := range store.postings {
		p.Status = domain.LivenessExpired
	}

	stats, err := ing.Ingest(context.Background(), []domain.DuplicateGroup{group})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Reposts)
	assert.Len(t, store.reposted, 1)
	require.Len(t, store.livenesses, 1)
	assert.Equal(t, domain.LivenessUnknown, store.livenesses[0].Status,
		"repost restarts liveness from unknown")
	assert.Zero(t, store.livenesses[0].ConsecutiveMiss)
	assert.Nil(t, store.livenesses[0].ExpiresAt)
}

func TestIngest_RewrittenDescriptionReappearanceIsNotARepost(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ing := ingest.New(store, &captureNotifier{}, logger.NewNoOp())

	group := groupFor("Backend Engineer", "Acme", "https://acme.example/jobs/1")
	_, err := ing.Ingest(context.Background(), []domain.DuplicateGroup{group})
	require.NoError(t, err)

	for _, p := range store.postings {
		p.Status = domain.LivenessExpired
	}

	rewritten := groupFor("Backend Engineer", "Acme", "https://acme.example/jobs/1")
	rewritten.Canonical.Description = "Completely new responsibilities and a new team."
	stats, err := ing.Ingest(context.Background(), []domain.DuplicateGroup{rewritten})
	require.NoError(t, err)

	assert.Zero(t, stats.Reposts, "a changed description is a fresh listing, not a repost")
	assert.Equal(t, 1, stats.Updated)
	assert.Empty(t, store.reposted)
	require.Len(t, store.livenesses, 1, "liveness still restarts for the revived posting")
	assert.Equal(t, domain.LivenessUnknown, store.livenesses[0].Status)
}

func TestIngest_OneFailureDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ing := ingest.New(store, nil, logger.NewNoOp())

	bad := domain.DuplicateGroup{Canonical: nil}
	good := groupFor("Backend Engineer", "Acme", "https://acme.example/jobs/1")

	stats, err := ing.Ingest(context.Background(), []domain.DuplicateGroup{bad, good})
	require.NoError(t, err, "nil canonical is skipped, not an error")
	assert.Equal(t, 1, stats.Inserted)
}

func TestIngest_UpsertErrorCollectedPerGroup(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.upsertErr = errors.New("connection reset")
	ing := ingest.New(store, nil, logger.NewNoOp())

	stats, err := ing.Ingest(context.Background(), []domain.DuplicateGroup{
		groupFor("Backend Engineer", "Acme", "https://acme.example/jobs/1"),
		groupFor("Data Scientist", "Acme", "https://acme.example/jobs/2"),
	})

	require.Error(t, err)
	assert.Equal(t, 2, stats.Failed)
}

func TestIngest_NotifierFailureIsBestEffort(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	notifier := &captureNotifier{err: errors.New("stream unavailable")}
	ing := ingest.New(store, notifier, logger.NewNoOp())

	stats, err := ing.Ingest(context.Background(), []domain.DuplicateGroup{
		groupFor("Backend Engineer", "Acme", "https://acme.example/jobs/1"),
	})

	require.NoError(t, err, "event delivery failures do not fail ingestion")
	assert.Equal(t, 1, stats.Inserted)
}

func TestIngest_DescriptionHashIsSet(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ing := ingest.New(store, nil, logger.NewNoOp())

	_, err := ing.Ingest(context.Background(), []domain.DuplicateGroup{
		groupFor("Backend Engineer", "Acme", "https://acme.example/jobs/1"),
	})
	require.NoError(t, err)

	for _, p := range store.postings {
		assert.NotEmpty(t, p.DescriptionHash)
	}
}
