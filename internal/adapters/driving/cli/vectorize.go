package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var vectorizeCmd = &cobra.Command{
	Use:   "vectorize",
	Short: "Build or refresh the embedding index",
	Long: `Embeds every document whose vector is missing or stale. Documents
whose text is unchanged since the last run are skipped.`,
	RunE: runVectorize,
}

func init() {
	rootCmd.AddCommand(vectorizeCmd)
}

func runVectorize(cmd *cobra.Command, _ []string) error {
	if vectorizer == nil {
		return errors.New("vectorizer not configured")
	}

	cmd.Println("Vectorizing documents...")

	summary, err := vectorizer.VectorizeAll(cmd.Context(), func(current, total int) {
		cmd.Printf("\rProcessing... %d/%d", current, total)
	})
	if err != nil {
		return fmt.Errorf("vectorization failed: %w", err)
	}

	cmd.Printf("\rVectorized %d of %d documents (%d up to date, %d errors) in %s\n",
		summary.Vectorized, summary.Total, summary.Skipped, summary.Errored,
		summary.Duration.Round(time.Millisecond))
	return nil
}
