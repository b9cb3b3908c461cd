package source

import (
	"context"
	"log"
	"time"

	"autoapply-engine/internal/domain"

	"golang.org/x/sync/errgroup"
)

// Aggregator fans out one query to every configured connector and merges
// the results into a deduplicated canonical list.
type Aggregator struct {
	Connectors []Connector // fixed priority order: first occurrence wins
	Timeout    time.Duration
}

func NewAggregator(connectors ...Connector) *Aggregator {
	return &Aggregator{Connectors: connectors, Timeout: 45 * time.Second}
}

type batch struct {
	idx  int
	jobs []domain.Job
}

// Fetch runs all connectors concurrently with the same query and joins their
// results. A connector error is logged and absorbed to an empty batch so one
// bad provider never blanks out the others. Dedup is by external id, first
// occurrence wins, iterating connectors in configuration order.
func (a *Aggregator) Fetch(ctx context.Context, q Query) []domain.Job {
	if len(a.Connectors) == 0 {
		return nil
	}
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	var g errgroup.Group
	results := make(chan batch, len(a.Connectors))

	for i, c := range a.Connectors {
		i, c := i, c
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			jobs, err := c.Fetch(cctx, q)
			if err != nil {
				log.Printf("[source:%s] error: %v", c.Name(), err)
				return nil // best-effort: don't cancel siblings
			}
			results <- batch{idx: i, jobs: jobs}
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	byConnector := make([][]domain.Job, len(a.Connectors))
	for b := range results {
		byConnector[b.idx] = b.jobs
	}

	seen := make(map[string]bool)
	var out []domain.Job
	for i, jobs := range byConnector {
		for _, j := range jobs {
			if j.ExternalID == "" || seen[j.ExternalID] {
				continue
			}
			seen[j.ExternalID] = true
			out = append(out, j)
		}
		if len(jobs) > 0 {
			log.Printf("[source:%s] merged jobs=%d", a.Connectors[i].Name(), len(jobs))
		}
	}
	return out
}
