package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the tamper-evident audit trail",
}

var auditRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show recent audit entries",
	RunE:  runAuditRecent,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the integrity of the full audit chain",
	Long: `Walks the audit trail from the oldest entry to the newest, checking
each entry's checksum and its link to the previous entry. Any
retroactive edit, deletion or reordering fails verification.`,
	RunE: runAuditVerify,
}

func init() {
	auditRecentCmd.Flags().IntVarP(&auditLimit, "limit", "n", 50, "maximum number of entries")
	auditCmd.AddCommand(auditRecentCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAuditRecent(cmd *cobra.Command, _ []string) error {
	if auditTrail == nil {
		return errors.New("audit trail not configured")
	}

	entries, err := auditTrail.RecentEntries(cmd.Context(), auditLimit)
	if err != nil {
		return fmt.Errorf("reading audit trail: %w", err)
	}
	if len(entries) == 0 {
		cmd.Println("Audit trail is empty.")
		return nil
	}

	for i := range entries {
		e := &entries[i]
		status := "ok"
		if !e.Success {
			status = "FAILED"
		}
		cmd.Printf("%s  %-7s %-20s %-8s %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.Level, e.Action, status, e.Details)
		if e.ErrorMessage != "" {
			cmd.Printf("    %s\n", e.ErrorMessage)
		}
	}
	return nil
}

func runAuditVerify(cmd *cobra.Command, _ []string) error {
	if auditTrail == nil {
		return errors.New("audit trail not configured")
	}

	if err := auditTrail.Verify(cmd.Context()); err != nil {
		return fmt.Errorf("audit chain verification failed: %w", err)
	}
	cmd.Println("Audit chain intact.")
	return nil
}
