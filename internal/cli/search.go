package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	serp "github.com/serpkit/serp-go"
)

var (
	language string
	country  string
	location string
	device   string
	safe     string
	limit    int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run a web search",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSearch(strings.Join(args, " "), "")
	},
}

var imagesCmd = &cobra.Command{
	Use:   "images [query]",
	Short: "Run an image search",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSearch(strings.Join(args, " "), "isch")
	},
}

var newsCmd = &cobra.Command{
	Use:   "news [query]",
	Short: "Run a news search",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSearch(strings.Join(args, " "), "nws")
	},
}

var videosCmd = &cobra.Command{
	Use:   "videos [query]",
	Short: "Run a video search",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSearch(strings.Join(args, " "), "vid")
	},
}

var shoppingCmd = &cobra.Command{
	Use:   "shopping [query]",
	Short: "Run a shopping search",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSearch(strings.Join(args, " "), "shop")
	},
}

func init() {
	for _, cmd := range []*cobra.Command{searchCmd, imagesCmd, newsCmd, videosCmd, shoppingCmd} {
		searchFlags(cmd)
		rootCmd.AddCommand(cmd)
	}
}

// searchFlags registers the query parameter flags shared by every
// search-like command.
func searchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&language, "language", "", "interface language code (hl)")
	cmd.Flags().StringVar(&country, "country", "", "country code (gl)")
	cmd.Flags().StringVar(&location, "location", "", "originate the search from this location")
	cmd.Flags().StringVar(&device, "device", "", "device profile: desktop, tablet or mobile")
	cmd.Flags().StringVar(&safe, "safe", "", "safe search mode: active or off")
	cmd.Flags().IntVar(&limit, "limit", 0, "number of results per page (1-100)")
}

// buildQuery applies the shared flags on top of the query text.
func buildQuery(text string) (serp.Query, error) {
	query := serp.NewQuery(text)
	if language != "" {
		query = query.Language(language)
	}
	if country != "" {
		query = query.Country(country)
	}
	if location != "" {
		query = query.Location(location)
	}
	if device != "" {
		query = query.Device(device)
	}
	if safe != "" {
		query = query.SafeSearch(safe)
	}
	if limit > 0 {
		var err error
		query, err = query.Limit(limit)
		if err != nil {
			return serp.Query{}, err
		}
	}
	return query, nil
}

func runSearch(text, searchType string) {
	client, logger, cleanup := newClient()
	defer cleanup()

	query, err := buildQuery(text)
	if err != nil {
		logger.Error("invalid query", zap.Error(err))
		os.Exit(1)
	}
	if searchType != "" {
		query = query.SearchType(searchType)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	results, err := client.Search(ctx, query)
	if err != nil {
		logger.Error("search failed", zap.String("query", text), zap.Error(err))
		os.Exit(1)
	}

	printResults(results)
	if remaining := client.QuotaRemaining(); remaining >= 0 {
		logger.Debug("quota remaining", zap.Int("remaining", remaining))
	}
}

// printResults renders whichever sections the response carries. Vertical
// results take precedence over the organic list so that the news, videos
// and shopping commands show their own tables.
func printResults(results *serp.SearchResults) {
	if box := results.AnswerBox; box != nil {
		if answer := firstNonEmpty(box.Answer, box.Snippet, box.Title); answer != "" {
			fmt.Printf("answer: %s\n\n", answer)
		}
	}
	if kg := results.KnowledgeGraph; kg != nil && kg.Title != "" {
		fmt.Printf("%s (%s)\n", kg.Title, kg.Type)
		if kg.Description != "" {
			fmt.Println(kg.Description)
		}
		fmt.Println()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	switch {
	case len(results.NewsResults) > 0:
		fmt.Fprintln(w, "POS\tTITLE\tSOURCE\tDATE")
		for _, r := range results.NewsResults {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.Position, truncate(r.Title, 60), r.Source, r.Date)
		}
	case len(results.VideoResults) > 0:
		fmt.Fprintln(w, "POS\tTITLE\tDURATION\tLINK")
		for _, r := range results.VideoResults {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.Position, truncate(r.Title, 60), r.Duration, r.Link)
		}
	case len(results.ShoppingResults) > 0:
		fmt.Fprintln(w, "POS\tTITLE\tPRICE\tSOURCE")
		for _, r := range results.ShoppingResults {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.Position, truncate(r.Title, 60), r.Price, r.Source)
		}
	default:
		fmt.Fprintln(w, "POS\tTITLE\tLINK")
		for _, r := range results.OrganicResults {
			fmt.Fprintf(w, "%d\t%s\t%s\n", r.Position, truncate(r.Title, 60), r.Link)
		}
	}
	w.Flush()

	if info := results.SearchInformation; info != nil && info.TotalResults > 0 {
		fmt.Printf("\nabout %d results\n", info.TotalResults)
	}
	if suggestions := relatedQueries(results); len(suggestions) > 0 {
		fmt.Printf("related: %s\n", strings.Join(suggestions, ", "))
	}
}

func relatedQueries(results *serp.SearchResults) []string {
	var queries []string
	for _, related := range results.RelatedSearches {
		queries = append(queries, related.Queries()...)
	}
	return queries
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
