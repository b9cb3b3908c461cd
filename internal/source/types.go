package source

import (
	"context"

	"autoapply-engine/internal/domain"
)

// Query is the derived search every connector receives: the profile's first
// title, first location, and mapped contract preference.
type Query struct {
	Title        string
	Location     string
	ContractType domain.ContractType
	Limit        int
}

// Connector adapts one external listing provider. Implementations normalize
// into canonical domain.Job before returning, cap Limit to their provider
// maximum, and keep per-item failures to themselves. A returned error is
// absorbed by the aggregator; it never fails a run.
type Connector interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]domain.Job, error)
}
