package domain

import "time"

// ATSType identifies a known applicant-tracking-system back end.
type ATSType string

const (
	ATSGreenhouse ATSType = "greenhouse"
	ATSLever      ATSType = "lever"
	ATSAshby      ATSType = "ashby"
)

// ATSIntegration describes a company's ATS job board.
type ATSIntegration struct {
	Type    ATSType `json:"type" yaml:"type"`
	BoardID string  `json:"board_id" yaml:"board_id"`
}

// PaginationMode describes how a career page paginates its listings.
type PaginationMode string

const (
	PaginationNone       PaginationMode = "none"
	PaginationQueryParam PaginationMode = "query_param"
	PaginationNextLink   PaginationMode = "next_link"
)

// PriorityTier orders companies by scrape priority.
type PriorityTier int

const (
	TierHigh PriorityTier = iota + 1
	TierMedium
	TierLow
)

// Selectors holds CSS selectors for DOM-based extraction of one source.
type Selectors struct {
	JobList     string `json:"job_list" yaml:"job_list"`
	Title       string `json:"title" yaml:"title"`
	Location    string `json:"location" yaml:"location"`
	Description string `json:"description" yaml:"description"`
	Link        string `json:"link" yaml:"link"`
	NextPage    string `json:"next_page,omitempty" yaml:"next_page"`
}

// CompanyConfig identifies an employer source. Produced by an external
// discovery process; read-only here.
type CompanyConfig struct {
	ID            string             `json:"id" yaml:"id"`
	Name          string             `json:"name" yaml:"name"`
	CareerPageURL string             `json:"career_page_url" yaml:"career_page_url"`
	ATS           *ATSIntegration    `json:"ats,omitempty" yaml:"ats"`
	Strategies    []ExtractionMethod `json:"strategies" yaml:"strategies"`
	Selectors     Selectors          `json:"selectors" yaml:"selectors"`
	Pagination    PaginationMode     `json:"pagination" yaml:"pagination"`
	ScrapeCadence time.Duration      `json:"scrape_cadence" yaml:"scrape_cadence"`
	Priority      PriorityTier       `json:"priority" yaml:"priority"`
}

// HasATS reports whether an ATS integration descriptor is configured.
func (c *CompanyConfig) HasATS() bool {
	return c.ATS != nil && c.ATS.Type != "" && c.ATS.BoardID != ""
}

// HasSelectors reports whether enough selectors exist for DOM extraction.
func (c *CompanyConfig) HasSelectors() bool {
	return c.Selectors.JobList != "" && c.Selectors.Title != ""
}
