package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index coverage and remaining query quota",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if vectorizer == nil || searchService == nil {
		return errors.New("services not configured")
	}

	stats, err := vectorizer.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading index stats: %w", err)
	}
	cmd.Printf("Documents:   %d\n", stats.Total)
	cmd.Printf("Vectorized:  %d\n", stats.Vectorized)
	cmd.Printf("Pending:     %d\n", stats.Pending)

	quota := searchService.RateLimitStats(flagActor)
	cmd.Printf("Quota:       %d queries left this minute, %d this hour\n",
		quota.RemainingMinute, quota.RemainingHour)
	return nil
}
