package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Import a local file into the vault",
	Long: `Add extracts the text of a local file (txt, md, html, eml, docx and
similar), derives entity fields where possible, stores the document and
indexes it for semantic search. The file itself is not retained.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	if importer == nil {
		return errors.New("import service not configured")
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	doc, err := importer.Import(cmd.Context(), filepath.Base(path), data)
	if err != nil {
		return err
	}

	cmd.Printf("Imported %q as %s\n", doc.Title, doc.ID)
	if doc.Vendor != "" {
		cmd.Printf("  vendor:   %s\n", doc.Vendor)
	}
	if doc.Amount != nil {
		cmd.Printf("  amount:   $%.2f\n", *doc.Amount)
	}
	if doc.TxnDate != nil {
		cmd.Printf("  date:     %s\n", doc.TxnDate.Format("2006-01-02"))
	}
	if doc.Category != "" {
		cmd.Printf("  category: %s\n", doc.Category)
	}
	return nil
}
