package domain

import "time"

// LivenessStatus describes whether a posting is still confirmed open.
type LivenessStatus string

const (
	LivenessActive  LivenessStatus = "active"
	LivenessStale   LivenessStatus = "stale"
	LivenessUnknown LivenessStatus = "unknown"
	LivenessExpired LivenessStatus = "expired"
)

// GhostBand classifies a posting by its ghost-job score.
type GhostBand string

const (
	GhostClean      GhostBand = "clean"
	GhostSuspicious GhostBand = "suspicious"
	GhostLikely     GhostBand = "likely_ghost"
)

// Score bounds for trust and ghost scores.
const (
	ScoreMin = 0
	ScoreMax = 100
)

// JobPosting is the persisted form of a job: a ScrapedJob plus platform
// fields. Exactly one posting exists per (ExternalID, Source) pair.
type JobPosting struct {
	ID              string          `json:"id" db:"id"`
	ExternalID      string          `json:"external_id" db:"external_id"`
	Source          string          `json:"source" db:"source"`
	Title           string          `json:"title" db:"title"`
	NormalizedTitle string          `json:"normalized_title" db:"normalized_title"`
	Company         string          `json:"company" db:"company"`
	LocationRaw     string          `json:"location_raw" db:"location_raw"`
	LocationNorm    string          `json:"location_norm" db:"location_norm"`
	CountryCode     string          `json:"country_code" db:"country_code"`
	Remote          bool            `json:"remote" db:"remote"`
	Description     string          `json:"description" db:"description"`
	DescriptionHash string          `json:"description_hash" db:"description_hash"`
	Skills          StringSlice     `json:"skills" db:"skills"`
	WorkType        WorkType        `json:"work_type" db:"work_type"`
	EmploymentType  EmploymentType  `json:"employment_type" db:"employment_type"`
	ExperienceLevel ExperienceLevel `json:"experience_level" db:"experience_level"`
	SalaryMin       float64         `json:"salary_min" db:"salary_min"`
	SalaryMax       float64         `json:"salary_max" db:"salary_max"`
	SalaryCurrency  string          `json:"salary_currency" db:"salary_currency"`
	SalaryPeriod    string          `json:"salary_period" db:"salary_period"`
	URL             string          `json:"url" db:"url"`
	ApplicationURL  string          `json:"application_url" db:"application_url"`
	Method          string          `json:"method" db:"method"`

	Status           LivenessStatus `json:"status" db:"status"`
	TrustScore       int            `json:"trust_score" db:"trust_score"`
	GhostScore       int            `json:"ghost_score" db:"ghost_score"`
	GhostReasons     StringSlice    `json:"ghost_reasons" db:"ghost_reasons"`
	ConsecutiveMiss  int            `json:"consecutive_miss" db:"consecutive_miss"`
	RepostCount      int            `json:"repost_count" db:"repost_count"`
	RecruiterContact string         `json:"recruiter_contact" db:"recruiter_contact"`
	ViewCount        int            `json:"view_count" db:"view_count"`
	ApplicationCount int            `json:"application_count" db:"application_count"`

	PostedAt      time.Time  `json:"posted_at" db:"posted_at"`
	FirstSeenAt   time.Time  `json:"first_seen_at" db:"first_seen_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty" db:"last_checked_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty" db:"expires_at"`
}

// Band returns the ghost band the posting's score falls into given the
// configured thresholds.
func (p *JobPosting) Band(suspicious, likely int) GhostBand {
	switch {
	case p.GhostScore >= likely:
		return GhostLikely
	case p.GhostScore >= suspicious:
		return GhostSuspicious
	default:
		return GhostClean
	}
}

// FromScraped builds a posting from a deduplicated scraped job. Platform
// fields start at their zero trust defaults.
func FromScraped(job *ScrapedJob) *JobPosting {
	job.Normalize()

	p := &JobPosting{
		ExternalID:      job.ExternalID,
		Source:          string(job.Source.Type),
		Title:           job.Title,
		NormalizedTitle: job.NormalizedTitle,
		Company:         job.Company,
		LocationRaw:     job.Location.Raw,
		LocationNorm:    job.Location.Normalized,
		CountryCode:     job.Location.CountryCode,
		Remote:          job.Location.Remote,
		Description:     job.Description,
		Skills:          StringSlice(job.Skills),
		WorkType:        job.WorkType,
		EmploymentType:  job.EmploymentType,
		ExperienceLevel: job.ExperienceLevel,
		URL:             job.Source.URL,
		ApplicationURL:  job.ApplicationURL,
		Method:          string(job.Source.Method),
		Status:          LivenessUnknown,
		TrustScore:      50,
		PostedAt:        job.PostedAt,
		FirstSeenAt:     job.ScrapedAt,
		UpdatedAt:       job.ScrapedAt,
	}
	if job.Salary != nil {
		yearly := job.Salary.NormalizedYearly()
		p.SalaryMin = yearly.Min
		p.SalaryMax = yearly.Max
		p.SalaryCurrency = yearly.Currency
		p.SalaryPeriod = string(yearly.Period)
	}
	return p
}

// LivenessCheck is one entry in the append-only liveness-check log.
type LivenessCheck struct {
	ID        string         `json:"id" db:"id"`
	JobID     string         `json:"job_id" db:"job_id"`
	CheckedAt time.Time      `json:"checked_at" db:"checked_at"`
	Outcome   string         `json:"outcome" db:"outcome"`
	Status    LivenessStatus `json:"status" db:"status"`
	HTTPCode  int            `json:"http_code" db:"http_code"`
	Detail    string         `json:"detail" db:"detail"`
}
