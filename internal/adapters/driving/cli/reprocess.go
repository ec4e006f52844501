package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

var reprocessForce bool

var reprocessCmd = &cobra.Command{
	Use:   "reprocess [document-id]",
	Short: "Re-extract entities from stored documents",
	Long: `Re-runs entity extraction (vendor, amount, date, category) over the
corpus. By default only documents that were never processed are
visited; --force reprocesses everything. With a document ID, only
that document is reprocessed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReprocess,
}

func init() {
	reprocessCmd.Flags().BoolVar(&reprocessForce, "force", false, "reprocess documents that already have entities")
	rootCmd.AddCommand(reprocessCmd)
}

func runReprocess(cmd *cobra.Command, args []string) error {
	if reprocessor == nil {
		return errors.New("reprocessor not configured")
	}

	if len(args) > 0 {
		changed, err := reprocessor.ReprocessOne(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("reprocess failed: %w", err)
		}
		if changed {
			cmd.Printf("Document %s reprocessed.\n", args[0])
		} else {
			cmd.Printf("Document %s unchanged.\n", args[0])
		}
		return nil
	}

	// Ctrl-C stops the sweep cleanly; the summary still reports what
	// was done before the interrupt.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		reprocessor.Cancel()
	}()

	cmd.Println("Reprocessing documents...")

	summary, err := reprocessor.ReprocessAll(cmd.Context(), func(current, total int) {
		cmd.Printf("\rProcessing... %d/%d", current, total)
	}, reprocessForce)
	if err != nil {
		return fmt.Errorf("reprocess failed: %w", err)
	}

	cmd.Printf("\rReprocessed %d of %d documents (%d skipped, %d errors) in %s\n",
		summary.Processed, summary.Total, summary.Skipped, summary.Errored,
		summary.Duration.Round(time.Millisecond))
	return nil
}
