// Package pipeline orchestrates one discovery run: scrape, deduplicate,
// ingest.
package pipeline

import (
	"context"
	"time"

	"github.com/jobradar/jobradar/internal/dedup"
	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/ingest"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/scrape"
)

// RunStats summarizes one pipeline run.
type RunStats struct {
	Companies   int
	Succeeded   int
	Failed      int
	JobsScraped int
	Groups      int
	Ingest      ingest.Stats
	Duration    time.Duration
}

// Pipeline wires the scraper engine, deduplicator, and ingestor into a
// single run. Constructed per invocation.
type Pipeline struct {
	engine   *scrape.Engine
	deduper  *dedup.Deduplicator
	ingestor *ingest.Ingestor
	log      logger.Interface
}

// New creates a pipeline.
func New(engine *scrape.Engine, deduper *dedup.Deduplicator, ingestor *ingest.Ingestor, log logger.Interface) *Pipeline {
	return &Pipeline{
		engine:   engine,
		deduper:  deduper,
		ingestor: ingestor,
		log:      log.WithComponent("pipeline"),
	}
}

// Run executes the full pass over the given companies. Scraping honors the
// context; dedup and ingestion always run over whatever was collected so a
// cancelled run still persists partial results.
func (p *Pipeline) Run(ctx context.Context, companies []domain.CompanyConfig) (RunStats, error) {
	started := time.Now()

	refs := make([]*domain.CompanyConfig, len(companies))
	for i := range companies {
		refs[i] = &companies[i]
	}

	results := p.engine.Run(ctx, refs)

	stats := RunStats{Companies: len(companies)}
	var jobs []domain.ScrapedJob
	for _, r := range results {
		if r.Success {
			stats.Succeeded++
			jobs = append(jobs, r.Jobs...)
		} else {
			stats.Failed++
		}
	}
	stats.JobsScraped = len(jobs)

	if len(jobs) == 0 {
		stats.Duration = time.Since(started)
		p.log.Warn("run collected no jobs", "companies", stats.Companies, "failed", stats.Failed)
		return stats, ctx.Err()
	}

	groups := p.deduper.Group(jobs)
	stats.Groups = len(groups)

	// Ingestion runs under a fresh deadline detached from the scrape
	// cancellation so collected work is not thrown away.
	ingestCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Minute)
	defer cancel()

	ingestStats, err := p.ingestor.Ingest(ingestCtx, groups)
	stats.Ingest = ingestStats
	stats.Duration = time.Since(started)

	p.log.Info("pipeline run complete",
		"companies", stats.Companies,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"jobs", stats.JobsScraped,
		"groups", stats.Groups,
		"inserted", ingestStats.Inserted,
		"updated", ingestStats.Updated,
		"duration", stats.Duration,
	)
	return stats, err
}
