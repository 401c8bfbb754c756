package scrape

import (
	"context"

	"github.com/jobradar/jobradar/internal/domain"
)

// Strategy is one method of pulling job data from an employer source.
// Implementations return ErrNotApplicable (possibly wrapped) when their
// preconditions are not met for the given company; the engine skips them
// without penalty.
type Strategy interface {
	// Name identifies the strategy in logs and results.
	Name() string
	// Method is the extraction method this strategy implements.
	Method() domain.ExtractionMethod
	// Extract attempts to pull jobs for the company.
	Extract(ctx context.Context, company *domain.CompanyConfig) ([]domain.ScrapedJob, error)
}
