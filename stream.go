package serp

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// StreamConfig controls pagination. The zero value of PageSize and MaxPages
// means the default; a zero Delay genuinely means no delay.
type StreamConfig struct {
	// PageSize is the number of results requested per page, 1 to 100.
	// Defaults to 10.
	PageSize int

	// MaxPages caps how many pages a stream fetches. Defaults to 10.
	MaxPages int

	// Delay is the pause before every fetch after the first, throttling
	// request rate against upstream limits.
	Delay time.Duration
}

// DefaultStreamConfig returns the standard pagination settings: pages of 10,
// at most 10 pages, 100ms between requests.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		PageSize: 10,
		MaxPages: 10,
		Delay:    100 * time.Millisecond,
	}
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.PageSize == 0 {
		c.PageSize = 10
	}
	if c.MaxPages == 0 {
		c.MaxPages = 10
	}
	return c
}

func (c StreamConfig) validate() error {
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("%w: page size must be between 1 and 100", ErrInvalidParameter)
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("%w: max pages must be at least 1", ErrInvalidParameter)
	}
	if c.Delay < 0 {
		return fmt.Errorf("%w: negative delay", ErrInvalidParameter)
	}
	return nil
}

// StreamState reports why a stream stopped, or that it is still running.
type StreamState int

const (
	StreamRunning StreamState = iota
	// StreamExhausted means the page budget was spent.
	StreamExhausted
	// StreamMatched means the early-stop predicate accepted a page.
	StreamMatched
	// StreamFailed means a page fetch returned an error.
	StreamFailed
)

func (s StreamState) String() string {
	switch s {
	case StreamRunning:
		return "running"
	case StreamExhausted:
		return "exhausted"
	case StreamMatched:
		return "matched"
	case StreamFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PageStream yields one parsed page per Next call, fetching lazily. Pages
// arrive in strictly increasing offset order; no page is fetched before the
// previous one completed. Not safe for concurrent use.
type PageStream struct {
	client    *Client
	base      Query
	cfg       StreamConfig
	predicate func(*SearchResults) bool

	page  int
	state StreamState
	err   error
}

// Next fetches and returns the next page. It returns io.EOF once the stream
// has stopped; after a page error the error itself is the final item, and
// every later call returns io.EOF.
func (s *PageStream) Next(ctx context.Context) (*SearchResults, error) {
	if s.state != StreamRunning {
		return nil, io.EOF
	}

	if s.page > 0 {
		if err := sleepCtx(ctx, s.cfg.Delay); err != nil {
			s.state = StreamFailed
			s.err = err
			return nil, err
		}
	}

	offset := s.page * s.cfg.PageSize
	query := s.base.withPage(s.cfg.PageSize, offset)

	s.client.logger.Debug("fetching page",
		zap.Int("page", s.page+1),
		zap.Int("offset", offset),
	)

	results, err := s.client.Search(ctx, query)
	s.page++

	if err == nil && s.client.metrics != nil {
		s.client.metrics.RecordPageFetched()
	}

	// Termination checks, in this order: budget, fetch error, predicate.
	switch {
	case s.page == s.cfg.MaxPages:
		s.state = StreamExhausted
	case err != nil:
		s.state = StreamFailed
		s.err = err
	case s.predicate != nil && s.predicate(results):
		s.state = StreamMatched
	}

	if err != nil {
		return nil, err
	}
	return results, nil
}

// State reports why the stream stopped, or StreamRunning while pages remain.
func (s *PageStream) State() StreamState {
	return s.state
}

// Err returns the error that failed the stream, or nil when State is not
// StreamFailed.
func (s *PageStream) Err() error {
	return s.err
}

// SearchPages starts a paginated search. Page k repeats the base query with
// the result count pinned to PageSize and the offset to k*PageSize; the base
// query's own count and offset are never sent.
func (c *Client) SearchPages(query Query, cfg StreamConfig) (*PageStream, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := query.validate(); err != nil {
		return nil, err
	}
	return &PageStream{client: c, base: query, cfg: cfg}, nil
}

// SearchUntil starts a paginated search that stops early once predicate
// accepts a page. The accepted page is still emitted; the predicate runs
// only on successfully fetched pages.
func (c *Client) SearchUntil(query Query, cfg StreamConfig, predicate func(*SearchResults) bool) (*PageStream, error) {
	if predicate == nil {
		return nil, fmt.Errorf("%w: nil predicate", ErrInvalidParameter)
	}
	s, err := c.SearchPages(query, cfg)
	if err != nil {
		return nil, err
	}
	s.predicate = predicate
	return s, nil
}

// OrganicStream yields individual organic results across pages, in source
// order. A page without organic results contributes no items; a failed page
// yields its error as the final item. Not safe for concurrent use.
type OrganicStream struct {
	pages  *PageStream
	buffer []OrganicResult
	done   bool
}

// OrganicResults starts a paginated search flattened to individual organic
// results.
func (c *Client) OrganicResults(query Query, cfg StreamConfig) (*OrganicStream, error) {
	pages, err := c.SearchPages(query, cfg)
	if err != nil {
		return nil, err
	}
	return &OrganicStream{pages: pages}, nil
}

// Next returns the next organic result, fetching further pages as needed.
// It returns io.EOF once the stream has stopped.
func (s *OrganicStream) Next(ctx context.Context) (OrganicResult, error) {
	for {
		if len(s.buffer) > 0 {
			item := s.buffer[0]
			s.buffer = s.buffer[1:]
			return item, nil
		}
		if s.done {
			return OrganicResult{}, io.EOF
		}

		page, err := s.pages.Next(ctx)
		if err == io.EOF {
			s.done = true
			return OrganicResult{}, io.EOF
		}
		if err != nil {
			s.done = true
			return OrganicResult{}, err
		}
		s.buffer = page.OrganicResults
	}
}

// State reports why the underlying page stream stopped.
func (s *OrganicStream) State() StreamState {
	return s.pages.State()
}

// SearchAll drains a flattened search into one ordered slice. It returns the
// first page error encountered, discarding results collected so far.
func (c *Client) SearchAll(ctx context.Context, query Query, cfg StreamConfig) ([]OrganicResult, error) {
	stream, err := c.OrganicResults(query, cfg)
	if err != nil {
		return nil, err
	}

	var all []OrganicResult
	for {
		result, err := stream.Next(ctx)
		if err == io.EOF {
			return all, nil
		}
		if err != nil {
			return nil, err
		}
		all = append(all, result)
	}
}
