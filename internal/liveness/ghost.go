package liveness

import (
	"time"

	"github.com/jobradar/jobradar/internal/domain"
)

// Ghost signal reasons stored alongside the score.
const (
	ReasonUnverifiedAge = "old_without_verification"
	ReasonReposts       = "repeated_reposts"
	ReasonVagueText     = "vague_description"
	ReasonNoSalary      = "no_salary_disclosed"
	ReasonNoContact     = "no_recruiter_contact"
	ReasonStaleChecks   = "failing_liveness_checks"
)

// GhostConfig holds the signal weights and band thresholds for ghost
// scoring. All weights are additive; the sum is clamped to the score range.
type GhostConfig struct {
	UnverifiedAgeDays   int
	MinDescriptionChars int
	RepostFloor         int

	WeightUnverifiedAge int
	WeightReposts       int
	WeightVagueText     int
	WeightNoSalary      int
	WeightNoContact     int
	WeightStaleChecks   int

	// SuspiciousAt and LikelyAt partition scores into bands.
	SuspiciousAt int
	LikelyAt     int
}

// WithDefaults fills unset fields.
func (c GhostConfig) WithDefaults() GhostConfig {
	if c.UnverifiedAgeDays <= 0 {
		c.UnverifiedAgeDays = 45
	}
	if c.MinDescriptionChars <= 0 {
		c.MinDescriptionChars = 200
	}
	if c.RepostFloor <= 0 {
		c.RepostFloor = 2
	}
	if c.WeightUnverifiedAge <= 0 {
		c.WeightUnverifiedAge = 25
	}
	if c.WeightReposts <= 0 {
		c.WeightReposts = 20
	}
	if c.WeightVagueText <= 0 {
		c.WeightVagueText = 15
	}
	if c.WeightNoSalary <= 0 {
		c.WeightNoSalary = 10
	}
	if c.WeightNoContact <= 0 {
		c.WeightNoContact = 10
	}
	if c.WeightStaleChecks <= 0 {
		c.WeightStaleChecks = 20
	}
	if c.SuspiciousAt <= 0 {
		c.SuspiciousAt = 40
	}
	if c.LikelyAt <= 0 {
		c.LikelyAt = 70
	}
	return c
}

// GhostScorer computes ghost-job scores from posting signals.
type GhostScorer struct {
	cfg GhostConfig
	now func() time.Time
}

// NewGhostScorer creates a scorer.
func NewGhostScorer(cfg GhostConfig) *GhostScorer {
	return &GhostScorer{cfg: cfg.WithDefaults(), now: time.Now}
}

// Score computes the posting's ghost score and the reasons behind it.
// Scoring is pure; callers persist the result.
func (s *GhostScorer) Score(p *domain.JobPosting) (int, domain.StringSlice) {
	var (
		score   int
		reasons domain.StringSlice
	)

	add := func(weight int, reason string) {
		score += weight
		reasons = append(reasons, reason)
	}

	if s.oldWithoutVerification(p) {
		add(s.cfg.WeightUnverifiedAge, ReasonUnverifiedAge)
	}
	if p.RepostCount >= s.cfg.RepostFloor {
		add(s.cfg.WeightReposts, ReasonReposts)
	}
	if len(p.Description) > 0 && len(p.Description) < s.cfg.MinDescriptionChars {
		add(s.cfg.WeightVagueText, ReasonVagueText)
	}
	if p.SalaryMin == 0 && p.SalaryMax == 0 {
		add(s.cfg.WeightNoSalary, ReasonNoSalary)
	}
	if p.RecruiterContact == "" {
		add(s.cfg.WeightNoContact, ReasonNoContact)
	}
	if p.Status == domain.LivenessStale || p.ConsecutiveMiss > 0 {
		add(s.cfg.WeightStaleChecks, ReasonStaleChecks)
	}

	return clampScore(score), reasons
}

// Band maps a score to its band under this scorer's thresholds.
func (s *GhostScorer) Band(score int) domain.GhostBand {
	p := domain.JobPosting{GhostScore: score}
	return p.Band(s.cfg.SuspiciousAt, s.cfg.LikelyAt)
}

// oldWithoutVerification reports whether the posting has aged past the
// threshold without ever being confirmed active.
func (s *GhostScorer) oldWithoutVerification(p *domain.JobPosting) bool {
	ref := p.PostedAt
	if ref.IsZero() {
		ref = p.FirstSeenAt
	}
	if ref.IsZero() {
		return false
	}
	age := s.now().UTC().Sub(ref)
	return age > time.Duration(s.cfg.UnverifiedAgeDays)*24*time.Hour &&
		p.Status != domain.LivenessActive
}
