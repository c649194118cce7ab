package serp

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultBatchConcurrency = 4

// SearchBatch runs independent searches concurrently and returns their
// results in input order. At most concurrency requests are in flight at
// once; zero or negative means the default of 4. The first failure cancels
// the remaining searches and is returned.
func (c *Client) SearchBatch(ctx context.Context, queries []Query, concurrency int) ([]*SearchResults, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}

	results := make([]*SearchResults, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, query := range queries {
		i, query := i, query
		g.Go(func() error {
			page, err := c.Search(ctx, query)
			if err != nil {
				c.logger.Warn("batch search failed",
					zap.String("query", query.Text()),
					zap.Error(err),
				)
				return err
			}
			results[i] = page
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
