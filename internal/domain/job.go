// Package domain provides domain models used across the application.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jobradar/jobradar/internal/textutil"
)

// WorkType describes where the work happens.
type WorkType string

const (
	WorkTypeOnsite WorkType = "onsite"
	WorkTypeRemote WorkType = "remote"
	WorkTypeHybrid WorkType = "hybrid"
)

// EmploymentType describes the employment arrangement.
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentInternship EmploymentType = "internship"
)

// ExperienceLevel buckets seniority.
type ExperienceLevel string

const (
	ExperienceEntry     ExperienceLevel = "entry"
	ExperienceMid       ExperienceLevel = "mid"
	ExperienceSenior    ExperienceLevel = "senior"
	ExperienceLead      ExperienceLevel = "lead"
	ExperienceExecutive ExperienceLevel = "executive"
)

// RequirementType classifies a job requirement.
type RequirementType string

const (
	RequirementEducation     RequirementType = "education"
	RequirementExperience    RequirementType = "experience"
	RequirementSkill         RequirementType = "skill"
	RequirementCertification RequirementType = "certification"
)

// Requirement is a single typed job requirement.
type Requirement struct {
	Type RequirementType `json:"type" db:"type"`
	Text string          `json:"text" db:"text"`
}

// SalaryPeriod is the unit a salary range is expressed in.
type SalaryPeriod string

const (
	SalaryHourly  SalaryPeriod = "hourly"
	SalaryDaily   SalaryPeriod = "daily"
	SalaryMonthly SalaryPeriod = "monthly"
	SalaryYearly  SalaryPeriod = "yearly"
)

// Hours/days/months used to project salary periods to a yearly figure.
const (
	workHoursPerYear  = 2080
	workDaysPerYear   = 260
	workMonthsPerYear = 12
)

// Salary holds a salary range as advertised plus its normalized yearly form.
type Salary struct {
	Min      float64      `json:"min"`
	Max      float64      `json:"max"`
	Currency string       `json:"currency"`
	Period   SalaryPeriod `json:"period"`
}

// NormalizedYearly projects the salary range onto a yearly period.
func (s Salary) NormalizedYearly() Salary {
	factor := 1.0
	switch s.Period {
	case SalaryHourly:
		factor = workHoursPerYear
	case SalaryDaily:
		factor = workDaysPerYear
	case SalaryMonthly:
		factor = workMonthsPerYear
	case SalaryYearly:
	}
	return Salary{
		Min:      s.Min * factor,
		Max:      s.Max * factor,
		Currency: s.Currency,
		Period:   SalaryYearly,
	}
}

// IsZero reports whether no salary information is present.
func (s Salary) IsZero() bool {
	return s.Min == 0 && s.Max == 0
}

// Location holds a job location in raw and normalized form.
type Location struct {
	Raw         string `json:"raw"`
	Normalized  string `json:"normalized"`
	CountryCode string `json:"country_code,omitempty"`
	Remote      bool   `json:"remote"`
}

// NewLocation builds a Location from a raw string.
func NewLocation(raw string) Location {
	return Location{
		Raw:        raw,
		Normalized: textutil.NormalizeLocation(raw),
		Remote:     textutil.IsRemote(raw),
	}
}

// SourceType identifies where a job was discovered.
type SourceType string

const (
	SourceCareerPage SourceType = "career_page"
	SourceATS        SourceType = "ats"
)

// JobSource records the origin of a scraped job.
type JobSource struct {
	Type   SourceType       `json:"type"`
	URL    string           `json:"url"`
	Method ExtractionMethod `json:"method"`
}

// ScrapedJob is the ephemeral output of an extraction strategy.
type ScrapedJob struct {
	// ExternalID is the source-side identifier when one exists; otherwise
	// the identity hash stands in.
	ExternalID      string          `json:"external_id"`
	Title           string          `json:"title"`
	NormalizedTitle string          `json:"normalized_title"`
	Company         string          `json:"company"`
	Location        Location        `json:"location"`
	Description     string          `json:"description"`
	Requirements    []Requirement   `json:"requirements,omitempty"`
	Skills          []string        `json:"skills,omitempty"`
	WorkType        WorkType        `json:"work_type,omitempty"`
	EmploymentType  EmploymentType  `json:"employment_type,omitempty"`
	ExperienceLevel ExperienceLevel `json:"experience_level,omitempty"`
	Salary          *Salary         `json:"salary,omitempty"`
	Source          JobSource       `json:"source"`
	ApplicationURL  string          `json:"application_url,omitempty"`
	PostedAt        time.Time       `json:"posted_at"`
	ScrapedAt       time.Time       `json:"scraped_at"`
	UpdatedAt       time.Time       `json:"updated_at,omitempty"`
}

// IdentityHash returns the deterministic dedup key for this job. The title
// component folds only case and whitespace; abbreviation variants like
// "Sr." versus "Senior" are left to fuzzy matching, which is time-windowed.
func (j *ScrapedJob) IdentityHash() string {
	key := textutil.Normalize(j.Title) + "|" + textutil.NormalizeCompany(j.Company) + "|" + j.Location.Normalized
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// WellFormed reports whether the job carries the minimum fields a strategy
// must produce for the extraction to count as a success.
func (j *ScrapedJob) WellFormed() bool {
	return j.Title != "" && j.Company != "" && j.Source.URL != ""
}

// Normalize fills derived fields that strategies commonly leave empty.
func (j *ScrapedJob) Normalize() {
	if j.NormalizedTitle == "" {
		j.NormalizedTitle = textutil.NormalizeTitle(j.Title)
	}
	if j.Location.Normalized == "" && j.Location.Raw != "" {
		j.Location = NewLocation(j.Location.Raw)
	}
	if j.Location.Remote && j.WorkType == "" {
		j.WorkType = WorkTypeRemote
	}
	if j.ExternalID == "" {
		j.ExternalID = j.IdentityHash()
	}
}
