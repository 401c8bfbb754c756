package scrape

import (
	"time"

	"github.com/jobradar/jobradar/internal/domain"
)

// ScrapingResult is the per-company outcome of a scrape run.
type ScrapingResult struct {
	CompanyID   string                  `json:"company_id"`
	CompanyName string                  `json:"company_name"`
	Success     bool                    `json:"success"`
	Jobs        []domain.ScrapedJob     `json:"jobs"`
	Method      domain.ExtractionMethod `json:"method,omitempty"`
	ErrorKind   Kind                    `json:"error_kind,omitempty"`
	Error       string                  `json:"error,omitempty"`
	Attempted   []string                `json:"attempted,omitempty"`
	Duration    time.Duration           `json:"duration"`
	BytesRead   int64                   `json:"bytes_read"`
}

// BatchSummary aggregates results across a run.
type BatchSummary struct {
	Companies int
	Succeeded int
	Failed    int
	Jobs      int
	Duration  time.Duration
}

// Summarize computes a batch summary over per-company results.
func Summarize(results []ScrapingResult, duration time.Duration) BatchSummary {
	s := BatchSummary{Companies: len(results), Duration: duration}
	for i := range results {
		if results[i].Success {
			s.Succeeded++
			s.Jobs += len(results[i].Jobs)
		} else {
			s.Failed++
		}
	}
	return s
}
