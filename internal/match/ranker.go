// Package match ranks stored postings for a candidate profile.
package match

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/textutil"
)

// Scoring weights. They sum to 1.0; each component is normalized to [0,1]
// before weighting.
const (
	WeightSemantic        = 0.45
	WeightRecency         = 0.25
	WeightLiveness        = 0.20
	WeightPersonalization = 0.10
)

// Ranker defaults.
const (
	DefaultRecencyHalfLifeDays = 14
	DefaultRecencyFloor        = 0.1
	DefaultLivenessFloor       = 0.15
	DefaultLimit               = 50
)

// Config tunes the ranker.
type Config struct {
	// RecencyHalfLifeDays controls how fast the recency component decays.
	RecencyHalfLifeDays int
	// RecencyFloor is the minimum recency for old-but-active postings.
	RecencyFloor float64
	// LivenessFloor excludes postings whose liveness component falls below
	// it. Exclusion, not down-ranking.
	LivenessFloor float64
	// GhostSuspiciousAt and GhostLikelyAt mirror the scorer's band
	// thresholds; likely-ghost postings are excluded.
	GhostSuspiciousAt int
	GhostLikelyAt     int
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.RecencyHalfLifeDays <= 0 {
		c.RecencyHalfLifeDays = DefaultRecencyHalfLifeDays
	}
	if c.RecencyFloor <= 0 {
		c.RecencyFloor = DefaultRecencyFloor
	}
	if c.LivenessFloor <= 0 {
		c.LivenessFloor = DefaultLivenessFloor
	}
	if c.GhostSuspiciousAt <= 0 {
		c.GhostSuspiciousAt = 40
	}
	if c.GhostLikelyAt <= 0 {
		c.GhostLikelyAt = 70
	}
	return c
}

// Ranker scores and orders postings for a candidate. Ranking is read-only
// over the posting pool; results may be cached.
type Ranker struct {
	cfg   Config
	cache Cache
	log   logger.Interface
	now   func() time.Time
}

// NewRanker creates a ranker. A nil cache disables caching.
func NewRanker(cfg Config, cache Cache, log logger.Interface) *Ranker {
	return &Ranker{
		cfg:   cfg.WithDefaults(),
		cache: cache,
		log:   log.WithComponent("match"),
		now:   time.Now,
	}
}

// Filters narrows the posting pool for one ranking request.
type Filters struct {
	Location   string          `json:"location,omitempty"`
	RemoteOnly bool            `json:"remote_only,omitempty"`
	WorkType   domain.WorkType `json:"work_type,omitempty"`
	MinSalary  float64         `json:"min_salary,omitempty"`
	Limit      int             `json:"limit,omitempty"`
}

// Key renders the filters into a stable cache key fragment.
func (f Filters) Key() string {
	return fmt.Sprintf("%s|%t|%s|%.0f|%d",
		textutil.Normalize(f.Location), f.RemoteOnly, f.WorkType, f.MinSalary, f.Limit)
}

// Rank orders the pool for the candidate, best match first. Likely-ghost
// postings and postings under the liveness floor are excluded outright.
func (r *Ranker) Rank(ctx context.Context, candidate *domain.CandidateProfile, pool []*domain.JobPosting, filters Filters) []domain.MatchResult {
	if filters.Limit <= 0 {
		filters.Limit = DefaultLimit
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, candidate.ID, filters); ok {
			r.log.Debug("ranking served from cache", "candidate", candidate.ID)
			return cached
		}
	}

	skills := normalizeSkills(candidate.Skills)
	results := make([]domain.MatchResult, 0, len(pool))
	excluded := 0

	for _, posting := range pool {
		if !r.eligible(posting, filters) {
			excluded++
			continue
		}

		liveness := r.livenessScore(posting)
		if liveness < r.cfg.LivenessFloor {
			excluded++
			continue
		}

		semantic, matched := r.semanticScore(skills, posting)
		components := domain.ComponentScores{
			SemanticRelevance: semantic,
			Recency:           r.recencyScore(posting),
			Liveness:          liveness,
			Personalization:   r.personalizationScore(candidate.Preferences, posting),
		}

		final := WeightSemantic*components.SemanticRelevance +
			WeightRecency*components.Recency +
			WeightLiveness*components.Liveness +
			WeightPersonalization*components.Personalization

		results = append(results, domain.MatchResult{
			CandidateID:   candidate.ID,
			JobID:         posting.ID,
			FinalScore:    final,
			Components:    components,
			Explanation:   explain(components, matched, posting),
			MatchedSkills: matched,
		})
	}

	sortResults(results, pool)
	if len(results) > filters.Limit {
		results = results[:filters.Limit]
	}

	r.log.Info("ranked postings",
		"candidate", candidate.ID,
		"pool", len(pool),
		"excluded", excluded,
		"returned", len(results),
	)

	if r.cache != nil {
		r.cache.Set(ctx, candidate.ID, filters, results)
	}
	return results
}

// eligible applies hard exclusions and request filters.
func (r *Ranker) eligible(p *domain.JobPosting, f Filters) bool {
	if p.Status == domain.LivenessExpired {
		return false
	}
	// Postings the system believes are not real are dropped, not ranked
	// low.
	if p.Band(r.cfg.GhostSuspiciousAt, r.cfg.GhostLikelyAt) == domain.GhostLikely {
		return false
	}
	if f.RemoteOnly && !p.Remote {
		return false
	}
	if f.WorkType != "" && p.WorkType != "" && p.WorkType != f.WorkType {
		return false
	}
	if f.Location != "" && !p.Remote &&
		!strings.Contains(p.LocationNorm, textutil.Normalize(f.Location)) {
		return false
	}
	if f.MinSalary > 0 && p.SalaryMax > 0 && p.SalaryMax < f.MinSalary {
		return false
	}
	return true
}

// semanticScore measures skill overlap between the candidate and the
// posting. Partial containment counts, so "react" matches "react.js".
func (r *Ranker) semanticScore(candidateSkills []string, p *domain.JobPosting) (float64, []string) {
	if len(candidateSkills) == 0 {
		return 0, nil
	}

	jobSkills := normalizeSkills([]string(p.Skills))
	description := textutil.Normalize(p.Description)
	title := p.NormalizedTitle

	var matched []string
	for _, skill := range candidateSkills {
		if skillMatches(skill, jobSkills) ||
			containsToken(title, skill) ||
			containsToken(description, skill) {
			matched = append(matched, skill)
		}
	}
	return float64(len(matched)) / float64(len(candidateSkills)), matched
}

// recencyScore decays exponentially with days since posting, floored for
// old postings that are still confirmed open.
func (r *Ranker) recencyScore(p *domain.JobPosting) float64 {
	posted := p.PostedAt
	if posted.IsZero() {
		posted = p.FirstSeenAt
	}
	if posted.IsZero() {
		return r.cfg.RecencyFloor
	}

	days := r.now().UTC().Sub(posted).Hours() / 24
	if days < 0 {
		days = 0
	}
	score := math.Pow(0.5, days/float64(r.cfg.RecencyHalfLifeDays))
	return math.Max(score, r.cfg.RecencyFloor)
}

// livenessScore combines the posting's status with its trust score. Active
// high-trust postings approach 1.0; stale low-trust approach 0.
func (r *Ranker) livenessScore(p *domain.JobPosting) float64 {
	var base float64
	switch p.Status {
	case domain.LivenessActive:
		base = 1.0
	case domain.LivenessUnknown:
		base = 0.6
	case domain.LivenessStale:
		base = 0.25
	case domain.LivenessExpired:
		return 0
	}
	trust := float64(p.TrustScore) / float64(domain.ScoreMax)
	return base * (0.5 + 0.5*trust)
}

// personalizationScore measures how many of the candidate's stated
// preferences the posting satisfies. No stated preferences scores zero.
func (r *Ranker) personalizationScore(prefs domain.CandidatePreferences, p *domain.JobPosting) float64 {
	var stated, satisfied float64

	if len(prefs.Locations) > 0 {
		stated++
		for _, loc := range prefs.Locations {
			norm := textutil.Normalize(loc)
			if (p.Remote && textutil.IsRemote(loc)) || strings.Contains(p.LocationNorm, norm) {
				satisfied++
				break
			}
		}
	}
	if len(prefs.WorkTypes) > 0 {
		stated++
		for _, wt := range prefs.WorkTypes {
			if p.WorkType == wt || (wt == domain.WorkTypeRemote && p.Remote) {
				satisfied++
				break
			}
		}
	}
	if prefs.SalaryMin > 0 {
		stated++
		if p.SalaryMax >= prefs.SalaryMin {
			satisfied++
		}
	}
	if prefs.Employment != "" {
		stated++
		if p.EmploymentType == prefs.Employment {
			satisfied++
		}
	}

	if stated == 0 {
		return 0
	}
	return satisfied / stated
}

// sortResults orders by final score descending, breaking ties by recency
// then trust score.
func sortResults(results []domain.MatchResult, pool []*domain.JobPosting) {
	trust := make(map[string]int, len(pool))
	for _, p := range pool {
		trust[p.ID] = p.TrustScore
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		if results[i].Components.Recency != results[j].Components.Recency {
			return results[i].Components.Recency > results[j].Components.Recency
		}
		return trust[results[i].JobID] > trust[results[j].JobID]
	})
}

// explain assembles a human-readable summary from the top contributing
// factors.
func explain(c domain.ComponentScores, matched []string, p *domain.JobPosting) string {
	var parts []string
	if len(matched) > 0 {
		parts = append(parts, "matches your skills: "+strings.Join(matched, ", "))
	}
	if c.Recency > 0.7 {
		parts = append(parts, "recently posted")
	}
	if p.Status == domain.LivenessActive && c.Liveness > 0.7 {
		parts = append(parts, "verified still open")
	}
	if c.Personalization > 0.5 {
		parts = append(parts, "fits your preferences")
	}
	if len(parts) == 0 {
		return "broad match on your profile"
	}
	return strings.Join(parts, "; ")
}

// normalizeSkills lowercases and trims a skill list, dropping empties.
func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if norm := textutil.Normalize(s); norm != "" {
			out = append(out, norm)
		}
	}
	return out
}

// skillMatches reports whether the skill appears in the list, allowing
// partial containment in either direction.
func skillMatches(skill string, jobSkills []string) bool {
	for _, js := range jobSkills {
		if js == skill || strings.Contains(js, skill) || strings.Contains(skill, js) {
			return true
		}
	}
	return false
}

// containsToken reports whether text contains skill as a rough token. Short
// skills require word boundaries so "go" does not match "google".
func containsToken(text, skill string) bool {
	if text == "" || skill == "" {
		return false
	}
	if len(skill) > 3 {
		return strings.Contains(text, skill)
	}
	for _, token := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '/' || r == '(' || r == ')'
	}) {
		if token == skill {
			return true
		}
	}
	return false
}
