package serp

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Search type values for the tbm parameter.
const (
	SearchTypeImages   = "isch"
	SearchTypeVideos   = "vid"
	SearchTypeNews     = "nws"
	SearchTypeShopping = "shop"
)

// Query describes one search. Setters use value receivers and return a
// modified copy, so queries are immutable: a base query can be extended and
// shared across goroutines without aliasing. Start from NewQuery.
type Query struct {
	text         string
	language     string
	country      string
	googleDomain string
	num          int
	start        int
	startSet     bool
	device       string
	safe         string
	tbm          string
	location     string
}

// NewQuery returns a query for the given search text.
func NewQuery(text string) Query {
	return Query{text: text}
}

// Text returns the search text.
func (q Query) Text() string {
	return q.text
}

// Language sets the interface language (hl). Common values: "en", "es", "de".
func (q Query) Language(hl string) Query {
	q.language = hl
	return q
}

// Country sets the result country (gl). Common values: "us", "uk", "jp".
func (q Query) Country(gl string) Query {
	q.country = gl
	return q
}

// Domain sets the Google domain, e.g. "google.com" or "google.co.uk".
func (q Query) Domain(domain string) Query {
	q.googleDomain = domain
	return q
}

// Limit sets the number of results per request (num). The valid range is
// 1 to 100; values outside it are rejected here, before any request.
func (q Query) Limit(n int) (Query, error) {
	if n < 1 || n > 100 {
		return q, fmt.Errorf("%w: limit must be between 1 and 100", ErrInvalidParameter)
	}
	q.num = n
	return q, nil
}

// Offset sets the pagination offset (start). Offset zero is sent explicitly.
func (q Query) Offset(start int) Query {
	q.start = start
	q.startSet = true
	return q
}

// Device sets the device type: "desktop", "mobile" or "tablet".
func (q Query) Device(device string) Query {
	q.device = device
	return q
}

// SafeSearch sets the SafeSearch mode: "active" or "off".
func (q Query) SafeSearch(safe string) Query {
	q.safe = safe
	return q
}

// SearchType sets the tbm parameter, see the SearchType constants.
func (q Query) SearchType(tbm string) Query {
	q.tbm = tbm
	return q
}

// Location sets the location for local search, e.g. "Austin, Texas".
func (q Query) Location(location string) Query {
	q.location = location
	return q
}

// Images configures the query for image search.
func (q Query) Images() Query {
	return q.SearchType(SearchTypeImages)
}

// Videos configures the query for video search.
func (q Query) Videos() Query {
	return q.SearchType(SearchTypeVideos)
}

// News configures the query for news search.
func (q Query) News() Query {
	return q.SearchType(SearchTypeNews)
}

// Shopping configures the query for shopping search.
func (q Query) Shopping() Query {
	return q.SearchType(SearchTypeShopping)
}

// withPage pins the per-page fields for pagination. Both are always
// overridden, including on the first page, so every request carries the
// configured page size and an explicit start.
func (q Query) withPage(num, start int) Query {
	q.num = num
	q.start = start
	q.startSet = true
	return q
}

func (q Query) validate() error {
	if strings.TrimSpace(q.text) == "" {
		return fmt.Errorf("%w: query text cannot be empty", ErrInvalidParameter)
	}
	if q.start < 0 {
		return fmt.Errorf("%w: offset must be non-negative", ErrInvalidParameter)
	}
	return nil
}

// Values encodes the query parameters. The api_key is not included, the
// client appends it at dispatch.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("q", q.text)
	if q.language != "" {
		v.Set("hl", q.language)
	}
	if q.country != "" {
		v.Set("gl", q.country)
	}
	if q.googleDomain != "" {
		v.Set("google_domain", q.googleDomain)
	}
	if q.num > 0 {
		v.Set("num", strconv.Itoa(q.num))
	}
	if q.startSet {
		v.Set("start", strconv.Itoa(q.start))
	}
	if q.device != "" {
		v.Set("device", q.device)
	}
	if q.safe != "" {
		v.Set("safe", q.safe)
	}
	if q.tbm != "" {
		v.Set("tbm", q.tbm)
	}
	if q.location != "" {
		v.Set("location", q.location)
	}
	return v
}
