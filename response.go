package serp

import "encoding/json"

// SearchResults is the decoded response of one search request. Sections the
// API did not return are nil.
type SearchResults struct {
	SearchMetadata    SearchMetadata     `json:"search_metadata"`
	SearchParameters  SearchParameters   `json:"search_parameters"`
	OrganicResults    []OrganicResult    `json:"organic_results,omitempty"`
	AnswerBox         *AnswerBox         `json:"answer_box,omitempty"`
	KnowledgeGraph    *KnowledgeGraph    `json:"knowledge_graph,omitempty"`
	RelatedSearches   []RelatedSearch    `json:"related_searches,omitempty"`
	Pagination        *Pagination        `json:"pagination,omitempty"`
	Ads               []Ad               `json:"ads,omitempty"`
	ShoppingResults   []ShoppingResult   `json:"shopping_results,omitempty"`
	LocalResults      *LocalResults      `json:"local_results,omitempty"`
	NewsResults       []NewsResult       `json:"news_results,omitempty"`
	VideoResults      []VideoResult      `json:"video_results,omitempty"`
	InlineImages      []InlineImage      `json:"inline_images,omitempty"`
	InlineVideos      []InlineVideo      `json:"inline_videos,omitempty"`
	ShortVideos       []ShortVideo       `json:"short_videos,omitempty"`
	SearchInformation *SearchInformation `json:"search_information,omitempty"`
	SerpAPIPagination *SerpAPIPagination `json:"serpapi_pagination,omitempty"`
}

// OrganicCount returns the number of organic results on this page.
func (r *SearchResults) OrganicCount() int {
	return len(r.OrganicResults)
}

// SearchMetadata describes how the request was processed.
type SearchMetadata struct {
	ID                    string  `json:"id"`
	Status                string  `json:"status,omitempty"`
	JSONEndpoint          string  `json:"json_endpoint,omitempty"`
	CreatedAt             string  `json:"created_at,omitempty"`
	ProcessedAt           string  `json:"processed_at,omitempty"`
	GoogleURL             string  `json:"google_url,omitempty"`
	RawHTMLFile           string  `json:"raw_html_file,omitempty"`
	TotalTimeTaken        float64 `json:"total_time_taken,omitempty"`
	PixelPositionEndpoint string  `json:"pixel_position_endpoint,omitempty"`
}

// SearchParameters echoes the parameters the API applied.
type SearchParameters struct {
	Engine       string `json:"engine"`
	Query        string `json:"q"`
	GoogleDomain string `json:"google_domain,omitempty"`
	Country      string `json:"gl,omitempty"`
	Language     string `json:"hl,omitempty"`
	Device       string `json:"device,omitempty"`
}

// OrganicResult is one entry of the main result list.
type OrganicResult struct {
	Position                int              `json:"position,omitempty"`
	Title                   string           `json:"title"`
	Link                    string           `json:"link"`
	DisplayedLink           string           `json:"displayed_link,omitempty"`
	Snippet                 string           `json:"snippet,omitempty"`
	SnippetHighlightedWords []string         `json:"snippet_highlighted_words,omitempty"`
	CachedPageLink          string           `json:"cached_page_link,omitempty"`
	Date                    string           `json:"date,omitempty"`
	RichSnippet             *RichSnippet     `json:"rich_snippet,omitempty"`
	AboutThisResult         *AboutThisResult `json:"about_this_result,omitempty"`
}

type RichSnippet struct {
	Top    map[string]string `json:"top,omitempty"`
	Bottom map[string]string `json:"bottom,omitempty"`
}

type AboutThisResult struct {
	Source          *Source  `json:"source,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	RelatedKeywords []string `json:"related_keywords,omitempty"`
}

type Source struct {
	Description    string `json:"description,omitempty"`
	SourceInfoLink string `json:"source_info_link,omitempty"`
	Security       string `json:"security,omitempty"`
}

// AnswerBox is the featured snippet shown above organic results.
type AnswerBox struct {
	Type                    string   `json:"type"`
	Title                   string   `json:"title,omitempty"`
	Answer                  string   `json:"answer,omitempty"`
	Snippet                 string   `json:"snippet,omitempty"`
	SnippetHighlightedWords []string `json:"snippet_highlighted_words,omitempty"`
	Link                    string   `json:"link,omitempty"`
	DisplayedLink           string   `json:"displayed_link,omitempty"`
}

// KnowledgeGraph is the knowledge panel.
type KnowledgeGraph struct {
	Title                           string  `json:"title"`
	Type                            string  `json:"type,omitempty"`
	KGMID                           string  `json:"kgmid,omitempty"`
	KnowledgeGraphSearchLink        string  `json:"knowledge_graph_search_link,omitempty"`
	SerpAPIKnowledgeGraphSearchLink string  `json:"serpapi_knowledge_graph_search_link,omitempty"`
	Description                     string  `json:"description,omitempty"`
	Source                          *Source `json:"source,omitempty"`
	Thumbnail                       string  `json:"thumbnail,omitempty"`
}

// RelatedSearchKind discriminates the two shapes a related_searches entry
// takes on the wire.
type RelatedSearchKind int

const (
	// RelatedSearchSimple is a plain suggestion with a query text.
	RelatedSearchSimple RelatedSearchKind = iota
	// RelatedSearchBlock is a positioned block grouping several items.
	RelatedSearchBlock
)

// RelatedSearch is a related-search suggestion. The API serves two shapes
// under the same key, so the type is a tagged variant: exactly one of the
// shapes is set and Kind reports which. The shape is decided once, when the
// entry is decoded.
type RelatedSearch struct {
	kind   RelatedSearchKind
	simple RelatedQuery
	block  RelatedBlock
}

// RelatedQuery is the simple related-search shape.
type RelatedQuery struct {
	Query       string `json:"query"`
	Link        string `json:"link,omitempty"`
	SerpAPILink string `json:"serpapi_link,omitempty"`
}

// RelatedBlock is the grouped related-search shape.
type RelatedBlock struct {
	BlockPosition int                 `json:"block_position,omitempty"`
	Items         []RelatedSearchItem `json:"items"`
}

type RelatedSearchItem struct {
	Name        string `json:"name,omitempty"`
	Query       string `json:"query,omitempty"`
	Link        string `json:"link,omitempty"`
	SerpAPILink string `json:"serpapi_link,omitempty"`
	Image       string `json:"image,omitempty"`
	Stick       string `json:"stick,omitempty"`
}

// SimpleRelatedSearch wraps a plain suggestion as a RelatedSearch.
func SimpleRelatedSearch(q RelatedQuery) RelatedSearch {
	return RelatedSearch{kind: RelatedSearchSimple, simple: q}
}

// BlockRelatedSearch wraps a grouped block as a RelatedSearch.
func BlockRelatedSearch(b RelatedBlock) RelatedSearch {
	return RelatedSearch{kind: RelatedSearchBlock, block: b}
}

// Kind reports which shape this entry carries.
func (r RelatedSearch) Kind() RelatedSearchKind {
	return r.kind
}

// Simple returns the plain-suggestion shape, if that is what this entry is.
func (r RelatedSearch) Simple() (RelatedQuery, bool) {
	return r.simple, r.kind == RelatedSearchSimple
}

// Block returns the grouped shape, if that is what this entry is.
func (r RelatedSearch) Block() (RelatedBlock, bool) {
	return r.block, r.kind == RelatedSearchBlock
}

// Queries flattens the entry into the suggestion texts it carries,
// regardless of shape. Block items without a query are skipped.
func (r RelatedSearch) Queries() []string {
	switch r.kind {
	case RelatedSearchBlock:
		queries := make([]string, 0, len(r.block.Items))
		for _, it := range r.block.Items {
			if it.Query != "" {
				queries = append(queries, it.Query)
			}
		}
		return queries
	default:
		return []string{r.simple.Query}
	}
}

// UnmarshalJSON resolves the wire shape: objects with an items array decode
// as a block, everything else as a simple suggestion.
func (r *RelatedSearch) UnmarshalJSON(data []byte) error {
	var probe struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if probe.Items != nil {
		var b RelatedBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*r = BlockRelatedSearch(b)
		return nil
	}

	var s RelatedQuery
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = SimpleRelatedSearch(s)
	return nil
}

// MarshalJSON writes the entry back in its wire shape.
func (r RelatedSearch) MarshalJSON() ([]byte, error) {
	if r.kind == RelatedSearchBlock {
		return json.Marshal(r.block)
	}
	return json.Marshal(r.simple)
}

// Pagination is the page navigation block of the result page.
type Pagination struct {
	Current         int               `json:"current"`
	Next            string            `json:"next,omitempty"`
	NextLink        string            `json:"next_link,omitempty"`
	SerpAPINextLink string            `json:"serpapi_next_link,omitempty"`
	OtherPages      map[string]string `json:"other_pages,omitempty"`
}

// Ad is a sponsored result.
type Ad struct {
	Position      int        `json:"position,omitempty"`
	Title         string     `json:"title"`
	Link          string     `json:"link"`
	DisplayedLink string     `json:"displayed_link,omitempty"`
	Description   string     `json:"description,omitempty"`
	Sitelinks     []SiteLink `json:"sitelinks,omitempty"`
}

type SiteLink struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// ShoppingResult is one product entry.
type ShoppingResult struct {
	Position          int      `json:"position,omitempty"`
	Title             string   `json:"title"`
	Link              string   `json:"link,omitempty"`
	ProductLink       string   `json:"product_link,omitempty"`
	ProductID         string   `json:"product_id,omitempty"`
	SerpAPIProductAPI string   `json:"serpapi_product_api,omitempty"`
	Source            string   `json:"source,omitempty"`
	Price             string   `json:"price,omitempty"`
	ExtractedPrice    float64  `json:"extracted_price,omitempty"`
	Rating            float64  `json:"rating,omitempty"`
	Reviews           int      `json:"reviews,omitempty"`
	Extensions        []string `json:"extensions,omitempty"`
	Thumbnail         string   `json:"thumbnail,omitempty"`
}

// LocalResults holds the map-pack block.
type LocalResults struct {
	MoreLocationsLink string       `json:"more_locations_link,omitempty"`
	Places            []LocalPlace `json:"places,omitempty"`
}

type LocalPlace struct {
	Position       int               `json:"position,omitempty"`
	Title          string            `json:"title"`
	PlaceID        string            `json:"place_id,omitempty"`
	DataID         string            `json:"data_id,omitempty"`
	DataCID        string            `json:"data_cid,omitempty"`
	ReviewsLink    string            `json:"reviews_link,omitempty"`
	PhotosLink     string            `json:"photos_link,omitempty"`
	GPSCoordinates *GPSCoordinates   `json:"gps_coordinates,omitempty"`
	PlaceIDSearch  string            `json:"place_id_search,omitempty"`
	ProviderID     string            `json:"provider_id,omitempty"`
	Rating         float64           `json:"rating,omitempty"`
	Reviews        int               `json:"reviews,omitempty"`
	Price          string            `json:"price,omitempty"`
	Type           string            `json:"type,omitempty"`
	Types          []string          `json:"types,omitempty"`
	Address        string            `json:"address,omitempty"`
	OpenState      string            `json:"open_state,omitempty"`
	Hours          string            `json:"hours,omitempty"`
	OperatingHours map[string]string `json:"operating_hours,omitempty"`
	Phone          string            `json:"phone,omitempty"`
	Website        string            `json:"website,omitempty"`
	Description    string            `json:"description,omitempty"`
	ServiceOptions map[string]bool   `json:"service_options,omitempty"`
}

type GPSCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewsResult is one news entry.
type NewsResult struct {
	Position  int    `json:"position,omitempty"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Source    string `json:"source,omitempty"`
	Date      string `json:"date,omitempty"`
	Snippet   string `json:"snippet,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// VideoResult is one video entry.
type VideoResult struct {
	Position      int    `json:"position,omitempty"`
	Title         string `json:"title"`
	Link          string `json:"link"`
	DisplayedLink string `json:"displayed_link,omitempty"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	Channel       string `json:"channel,omitempty"`
	Duration      string `json:"duration,omitempty"`
	Platform      string `json:"platform,omitempty"`
	Date          string `json:"date,omitempty"`
}

type InlineImage struct {
	Position   int    `json:"position,omitempty"`
	Title      string `json:"title,omitempty"`
	Link       string `json:"link,omitempty"`
	Source     string `json:"source,omitempty"`
	SourceName string `json:"source_name,omitempty"`
	SourceLogo string `json:"source_logo,omitempty"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	Original   string `json:"original,omitempty"`
	IsProduct  bool   `json:"is_product,omitempty"`
}

type InlineVideo struct {
	Position   int         `json:"position,omitempty"`
	Title      string      `json:"title,omitempty"`
	Link       string      `json:"link,omitempty"`
	Thumbnail  string      `json:"thumbnail,omitempty"`
	Channel    string      `json:"channel,omitempty"`
	Duration   string      `json:"duration,omitempty"`
	Platform   string      `json:"platform,omitempty"`
	Date       string      `json:"date,omitempty"`
	KeyMoments []KeyMoment `json:"key_moments,omitempty"`
}

type KeyMoment struct {
	Time  string `json:"time,omitempty"`
	Title string `json:"title,omitempty"`
	Link  string `json:"link,omitempty"`
}

type ShortVideo struct {
	Position  int    `json:"position,omitempty"`
	Title     string `json:"title,omitempty"`
	Link      string `json:"link,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Duration  string `json:"duration,omitempty"`
	Platform  string `json:"platform,omitempty"`
}

// SearchInformation summarizes the result set.
type SearchInformation struct {
	OrganicResultsState string  `json:"organic_results_state,omitempty"`
	QueryDisplayed      string  `json:"query_displayed,omitempty"`
	TimeTakenDisplayed  float64 `json:"time_taken_displayed,omitempty"`
	TotalResults        int64   `json:"total_results,omitempty"`
}

// SerpAPIPagination carries the API-side links for the next page.
type SerpAPIPagination struct {
	Current    int               `json:"current,omitempty"`
	Next       string            `json:"next,omitempty"`
	NextLink   string            `json:"next_link,omitempty"`
	OtherPages map[string]string `json:"other_pages,omitempty"`
}
