// Package ingest persists deduplicated scraped jobs as postings.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jobradar/jobradar/internal/database"
	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/notify"
	"github.com/jobradar/jobradar/internal/textutil"
)

// PostingStore is the persistence surface the ingestor depends on.
type PostingStore interface {
	Upsert(ctx context.Context, p *domain.JobPosting) (bool, error)
	GetBySourceKey(ctx context.Context, externalID, source string) (*domain.JobPosting, error)
	IncrementRepost(ctx context.Context, id string) error
	UpdateLiveness(ctx context.Context, p *domain.JobPosting) error
}

// Stats summarizes one ingestion pass.
type Stats struct {
	Inserted int
	Updated  int
	Reposts  int
	Failed   int
}

// Ingestor writes duplicate groups into the posting store, one posting per
// group keyed by (external_id, source).
type Ingestor struct {
	store    PostingStore
	notifier notify.Notifier
	log      logger.Interface
}

// New creates an Ingestor. A nil notifier falls back to the no-op.
func New(store PostingStore, notifier notify.Notifier, log logger.Interface) *Ingestor {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Ingestor{store: store, notifier: notifier, log: log.WithComponent("ingest")}
}

// Ingest persists the canonical job of each group. A failure on one group
// does not stop the others.
func (i *Ingestor) Ingest(ctx context.Context, groups []domain.DuplicateGroup) (Stats, error) {
	var stats Stats
	var errs []error

	for _, group := range groups {
		if group.Canonical == nil {
			continue
		}
		if err := i.ingestOne(ctx, group.Canonical, &stats); err != nil {
			stats.Failed++
			errs = append(errs, err)
			i.log.Error("failed to ingest posting",
				"company", group.Canonical.Company,
				"title", group.Canonical.Title,
				"error", err,
			)
		}
	}

	i.log.Info("ingestion pass complete",
		"groups", len(groups),
		"inserted", stats.Inserted,
		"updated", stats.Updated,
		"reposts", stats.Reposts,
		"failed", stats.Failed,
	)
	return stats, errors.Join(errs...)
}

// ingestOne upserts a single job and handles repost detection.
func (i *Ingestor) ingestOne(ctx context.Context, job *domain.ScrapedJob, stats *Stats) error {
	posting := domain.FromScraped(job)
	posting.DescriptionHash = descriptionHash(job.Description)

	existing, err := i.store.GetBySourceKey(ctx, posting.ExternalID, posting.Source)
	if err != nil && !errors.Is(err, database.ErrPostingNotFound) {
		return fmt.Errorf("lookup existing posting: %w", err)
	}

	// An expired posting reappearing under the same key is live again and
	// its liveness state restarts from unknown. The repost counter feeds
	// the ghost score, so it only moves when the listing came back with the
	// same description; a rewritten posting is a fresh listing.
	reappeared := existing != nil && existing.Status == domain.LivenessExpired
	verbatim := existing != nil && posting.DescriptionHash == existing.DescriptionHash

	inserted, upsertErr := i.store.Upsert(ctx, posting)
	if upsertErr != nil {
		return fmt.Errorf("upsert posting: %w", upsertErr)
	}

	switch {
	case inserted:
		stats.Inserted++
		i.publish(ctx, notify.EventJobNew, posting)
	case reappeared:
		if verbatim {
			stats.Reposts++
		} else {
			stats.Updated++
		}
		if reviveErr := i.reviveExpired(ctx, existing, verbatim); reviveErr != nil {
			return reviveErr
		}
	default:
		stats.Updated++
	}
	return nil
}

// reviveExpired restarts the liveness state of an expired posting that
// reappeared, bumping the repost counter only for verbatim reposts.
func (i *Ingestor) reviveExpired(ctx context.Context, existing *domain.JobPosting, verbatim bool) error {
	if verbatim {
		if err := i.store.IncrementRepost(ctx, existing.ID); err != nil {
			return fmt.Errorf("increment repost: %w", err)
		}
	}

	now := time.Now().UTC()
	existing.Status = domain.LivenessUnknown
	existing.ConsecutiveMiss = 0
	existing.LastCheckedAt = &now
	existing.ExpiresAt = nil
	if err := i.store.UpdateLiveness(ctx, existing); err != nil {
		return fmt.Errorf("reset liveness after repost: %w", err)
	}
	return nil
}

// publish sends a lifecycle event. Delivery failures are logged, not
// propagated; notification is best effort.
func (i *Ingestor) publish(ctx context.Context, eventType string, p *domain.JobPosting) {
	if err := i.notifier.Publish(ctx, notify.NewEvent(eventType, p)); err != nil {
		i.log.Warn("failed to publish event",
			"type", eventType,
			"job_id", p.ID,
			"error", err,
		)
	}
}

// descriptionHash fingerprints the normalized description so content
// changes are detectable across scrapes.
func descriptionHash(description string) string {
	if description == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(textutil.Normalize(description)))
	return hex.EncodeToString(sum[:])
}
