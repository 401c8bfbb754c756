// Package strategy implements the extraction strategies dispatched by the
// scrape engine: api, markup, embedded, llm, dom, and browser.
package strategy

import (
	"context"

	"github.com/jobradar/jobradar/internal/fetch"
)

// Fetcher is the outbound HTTP surface strategies depend on. Satisfied by
// *fetch.Client; narrowed here so tests can substitute a fake.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*fetch.Response, error)
}
