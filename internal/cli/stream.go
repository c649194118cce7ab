package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	serp "github.com/serpkit/serp-go"
)

var (
	streamPages    int
	streamPageSize int
	streamDelay    time.Duration
)

var streamCmd = &cobra.Command{
	Use:   "stream [query]",
	Short: "Page through results, printing each page as it arrives",
	Args:  cobra.MinimumNArgs(1),
	Run:   runStream,
}

var allCmd = &cobra.Command{
	Use:   "all [query]",
	Short: "Collect organic results from every page into one table",
	Args:  cobra.MinimumNArgs(1),
	Run:   runAll,
}

func init() {
	for _, cmd := range []*cobra.Command{streamCmd, allCmd} {
		cmd.Flags().IntVar(&streamPages, "pages", 3, "maximum pages to fetch")
		cmd.Flags().IntVar(&streamPageSize, "page-size", 10, "results per page (1-100)")
		cmd.Flags().DurationVar(&streamDelay, "delay", 100*time.Millisecond, "pause between page fetches")
		searchFlags(cmd)
		rootCmd.AddCommand(cmd)
	}
}

func streamConfig() serp.StreamConfig {
	return serp.StreamConfig{
		PageSize: streamPageSize,
		MaxPages: streamPages,
		Delay:    streamDelay,
	}
}

func runStream(cmd *cobra.Command, args []string) {
	client, logger, cleanup := newClient()
	defer cleanup()

	query, err := buildQuery(strings.Join(args, " "))
	if err != nil {
		logger.Error("invalid query", zap.Error(err))
		os.Exit(1)
	}

	stream, err := client.SearchPages(query, streamConfig())
	if err != nil {
		logger.Error("stream setup failed", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetched := 0
	for {
		page, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Error("page fetch failed", zap.Int("page", fetched+1), zap.Error(err))
			break
		}
		fetched++
		fmt.Printf("page %d: %d results\n", fetched, page.OrganicCount())
		for _, r := range page.OrganicResults {
			fmt.Printf("  %3d. %s\n       %s\n", r.Position, truncate(r.Title, 70), r.Link)
		}
	}
	fmt.Printf("\nstream %s after %d pages\n", stream.State(), fetched)
}

func runAll(cmd *cobra.Command, args []string) {
	client, logger, cleanup := newClient()
	defer cleanup()

	query, err := buildQuery(strings.Join(args, " "))
	if err != nil {
		logger.Error("invalid query", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := client.SearchAll(ctx, query, streamConfig())
	if err != nil {
		logger.Error("search failed", zap.Error(err))
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "POS\tTITLE\tLINK")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\n", r.Position, truncate(r.Title, 60), r.Link)
	}
	w.Flush()
	fmt.Printf("\n%d results across up to %d pages\n", len(results), streamPages)
}
