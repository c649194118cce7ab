// Package serp is a typed client for the SerpAPI search-results API.
//
// A Client executes search queries over HTTPS, retries transient failures
// with exponential backoff, honors Retry-After on rate limiting, and decodes
// responses into typed structs. Queries are immutable values built by
// chaining setters, so a base query can be shared across goroutines and
// pagination sequences without aliasing.
//
// Basic usage:
//
//	client, err := serp.New(serp.Config{APIKey: "your-key"}, logger)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	q, err := serp.NewQuery("rust programming").Language("en").Limit(20)
//	if err != nil {
//		return err
//	}
//	results, err := client.Search(ctx, q)
//
// Pagination is pull based. SearchPages, SearchUntil and OrganicResults
// return streams whose Next method fetches the following page (or item) and
// returns io.EOF once the sequence has ended:
//
//	stream, _ := client.SearchPages(q, serp.StreamConfig{PageSize: 20, MaxPages: 5})
//	for {
//		page, err := stream.Next(ctx)
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		// use page
//	}
//
// Errors are matched with errors.Is and errors.As: sentinel values such as
// ErrRateLimited and ErrInvalidParameter classify the failure, while
// *RateLimitError and *APIError carry the wait hint and upstream status.
package serp

// Version is the client library version, reported in the default User-Agent.
const Version = "0.1.0"
