// Package dedup collapses job records that describe the same posting.
package dedup

import (
	"sort"
	"time"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/textutil"
)

// Deduplication defaults.
const (
	DefaultFuzzyThreshold = 0.85
	DefaultFuzzyWindow    = 7 * 24 * time.Hour

	canonicalURLConfidence = 0.95
)

// Config tunes the deduplicator.
type Config struct {
	// FuzzyThreshold is the minimum title and location similarity for a
	// fuzzy merge.
	FuzzyThreshold float64
	// FuzzyWindow bounds how far apart two postings may be in time and
	// still fuzzy-merge.
	FuzzyWindow time.Duration
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 1 {
		c.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if c.FuzzyWindow <= 0 {
		c.FuzzyWindow = DefaultFuzzyWindow
	}
	return c
}

// Deduplicator groups scraped jobs that refer to the same posting. Grouping
// is idempotent: feeding the canonical output back in yields the same
// groups.
type Deduplicator struct {
	cfg Config
	log logger.Interface
}

// New creates a Deduplicator.
func New(cfg Config, log logger.Interface) *Deduplicator {
	return &Deduplicator{cfg: cfg.WithDefaults(), log: log.WithComponent("dedup")}
}

// group is the mutable working form of a DuplicateGroup.
type group struct {
	jobs       []*domain.ScrapedJob
	reason     domain.MergeReason
	confidence float64
}

// Group collapses the input into duplicate groups. Singleton groups carry
// the exact-hash reason with confidence 1.0.
func (d *Deduplicator) Group(jobs []domain.ScrapedJob) []domain.DuplicateGroup {
	for i := range jobs {
		jobs[i].Normalize()
	}

	groups := d.groupByHash(jobs)
	groups = d.mergeByCanonicalURL(groups)
	groups = d.mergeFuzzy(groups)

	out := make([]domain.DuplicateGroup, 0, len(groups))
	merged := 0
	for _, g := range groups {
		canonical, rest := electCanonical(g.jobs)
		merged += len(rest)
		out = append(out, domain.DuplicateGroup{
			Canonical:  canonical,
			Duplicates: rest,
			Confidence: g.confidence,
			Reason:     g.reason,
		})
	}

	if merged > 0 {
		d.log.Info("collapsed duplicate jobs",
			"input", len(jobs),
			"groups", len(out),
			"duplicates", merged,
		)
	}
	return out
}

// groupByHash buckets jobs sharing an identity hash.
func (d *Deduplicator) groupByHash(jobs []domain.ScrapedJob) []*group {
	index := make(map[string]*group)
	var ordered []*group
	for i := range jobs {
		hash := jobs[i].IdentityHash()
		g, ok := index[hash]
		if !ok {
			g = &group{reason: domain.MergeExactHash, confidence: 1.0}
			index[hash] = g
			ordered = append(ordered, g)
		}
		g.jobs = append(g.jobs, &jobs[i])
	}
	return ordered
}

// mergeByCanonicalURL joins groups whose members share a canonical posting
// URL after tracking-parameter stripping.
func (d *Deduplicator) mergeByCanonicalURL(groups []*group) []*group {
	index := make(map[string]*group)
	var ordered []*group
	for _, g := range groups {
		key := ""
		for _, job := range g.jobs {
			if job.Source.URL != "" {
				key = CanonicalURL(job.Source.URL)
				break
			}
		}
		if key == "" {
			ordered = append(ordered, g)
			continue
		}

		existing, ok := index[key]
		if !ok {
			index[key] = g
			ordered = append(ordered, g)
			continue
		}
		existing.jobs = append(existing.jobs, g.jobs...)
		existing.reason = domain.MergeCanonicalURL
		if canonicalURLConfidence < existing.confidence {
			existing.confidence = canonicalURLConfidence
		}
	}
	return ordered
}

// mergeFuzzy joins groups whose representatives have near-identical titles
// and locations at the same company within the time window.
func (d *Deduplicator) mergeFuzzy(groups []*group) []*group {
	var ordered []*group
	for _, g := range groups {
		rep := g.jobs[0]
		absorbed := false
		for _, existing := range ordered {
			other := existing.jobs[0]
			sim, ok := d.fuzzyMatch(rep, other)
			if !ok {
				continue
			}
			existing.jobs = append(existing.jobs, g.jobs...)
			existing.reason = domain.MergeFuzzy
			if sim < existing.confidence {
				existing.confidence = sim
			}
			absorbed = true
			break
		}
		if !absorbed {
			ordered = append(ordered, g)
		}
	}
	return ordered
}

// fuzzyMatch decides whether two jobs are near-duplicates and returns the
// weakest of the title and location similarities when they are. The same
// title at the same company in two different cities is two openings, not a
// duplicate.
func (d *Deduplicator) fuzzyMatch(a, b *domain.ScrapedJob) (float64, bool) {
	if textutil.NormalizeCompany(a.Company) != textutil.NormalizeCompany(b.Company) {
		return 0, false
	}
	if !withinWindow(observedAt(a), observedAt(b), d.cfg.FuzzyWindow) {
		return 0, false
	}
	sim := textutil.Similarity(a.NormalizedTitle, b.NormalizedTitle)
	if la, lb := a.Location.Normalized, b.Location.Normalized; la != "" && lb != "" {
		if locSim := textutil.Similarity(la, lb); locSim < sim {
			sim = locSim
		}
	}
	if sim < d.cfg.FuzzyThreshold {
		return 0, false
	}
	return sim, true
}

// observedAt prefers the posting date and falls back to scrape time.
func observedAt(j *domain.ScrapedJob) time.Time {
	if !j.PostedAt.IsZero() {
		return j.PostedAt
	}
	return j.ScrapedAt
}

func withinWindow(a, b time.Time, window time.Duration) bool {
	if a.IsZero() || b.IsZero() {
		return true
	}
	delta := a.Sub(b)
	if delta < 0 {
		delta = -delta
	}
	return delta <= window
}

// electCanonical picks the group member from the most authoritative
// extraction method, breaking ties by most recent observation.
func electCanonical(jobs []*domain.ScrapedJob) (*domain.ScrapedJob, []*domain.ScrapedJob) {
	sorted := make([]*domain.ScrapedJob, len(jobs))
	copy(sorted, jobs)
	sort.SliceStable(sorted, func(i, j int) bool {
		ai, aj := sorted[i].Source.Method.Authority(), sorted[j].Source.Method.Authority()
		if ai != aj {
			return ai > aj
		}
		return observedAt(sorted[i]).After(observedAt(sorted[j]))
	})
	return sorted[0], sorted[1:]
}
