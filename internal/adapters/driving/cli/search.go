package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Ask a question about your documents",
	Long: `Routes a natural-language question to the cheapest execution path
that can answer it: exact field filters, semantic ranking over the
embedding index, or on-device generative analysis.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	result, err := searchService.Search(cmd.Context(), flagActor, args[0])
	if err != nil {
		var quota *domain.QuotaExceeded
		if errors.As(err, &quota) {
			return fmt.Errorf("query quota exceeded, retry in %s", quota.RetryAfter.Round(time.Second))
		}
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	return outputSearchResult(cmd, result)
}

func outputSearchResult(cmd *cobra.Command, result *domain.RouterResult) error {
	if result.Degraded != "" {
		cmd.Printf("Note: %s\n\n", result.Degraded)
	}

	if result.Analysis != "" {
		cmd.Println(result.Analysis)
		cmd.Printf("(confidence %.2f)\n\n", result.Confidence)
	}

	if result.Aggregation != nil {
		agg := result.Aggregation
		cmd.Printf("%d documents, total $%.2f, average $%.2f",
			agg.DocumentCount, agg.TotalAmount, agg.AverageAmount)
		if agg.Vendor != "" {
			cmd.Printf(" at %s", agg.Vendor)
		}
		cmd.Println()
		if agg.EarliestDate != nil && agg.LatestDate != nil {
			cmd.Printf("from %s to %s\n",
				agg.EarliestDate.Format("2006-01-02"),
				agg.LatestDate.Format("2006-01-02"))
		}
		cmd.Println()
	}

	if len(result.Documents) == 0 {
		if result.Analysis == "" && result.Aggregation == nil {
			cmd.Println("No matching documents.")
		}
		return nil
	}

	cmd.Println("Documents:")
	for i := range result.Documents {
		doc := &result.Documents[i]
		title := doc.Title
		if title == "" {
			title = doc.ID
		}
		cmd.Printf("  [%d] %s", i+1, title)
		if doc.Vendor != "" {
			cmd.Printf(" - %s", doc.Vendor)
		}
		if doc.Amount != nil {
			cmd.Printf(" $%.2f", *doc.Amount)
		}
		if doc.TxnDate != nil {
			cmd.Printf(" (%s)", doc.TxnDate.Format("2006-01-02"))
		}
		cmd.Println()
	}

	cmd.Printf("\n%s query, %s\n", result.QueryType, result.ExecutionTime.Round(time.Millisecond))
	return nil
}
