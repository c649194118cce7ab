package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	serp "github.com/serpkit/serp-go"
)

var batchConcurrency int

var batchCmd = &cobra.Command{
	Use:   "batch [query]...",
	Short: "Run several queries concurrently",
	Args:  cobra.MinimumNArgs(1),
	Run:   runBatch,
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "maximum in-flight requests")
	searchFlags(batchCmd)
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) {
	client, logger, cleanup := newClient()
	defer cleanup()

	queries := make([]serp.Query, 0, len(args))
	for _, text := range args {
		query, err := buildQuery(text)
		if err != nil {
			logger.Error("invalid query", zap.String("query", text), zap.Error(err))
			os.Exit(1)
		}
		queries = append(queries, query)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pages, err := client.SearchBatch(ctx, queries, batchConcurrency)
	if err != nil {
		logger.Error("batch failed", zap.Error(err))
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "QUERY\tRESULTS\tTOP RESULT")
	for i, page := range pages {
		top := ""
		if page.OrganicCount() > 0 {
			top = truncate(page.OrganicResults[0].Title, 50)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", args[i], page.OrganicCount(), top)
	}
	w.Flush()
}
