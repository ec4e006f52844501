package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Manage the local analysis model",
}

var modelStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a model artifact is installed",
	RunE:  runModelStatus,
}

var modelInstallCmd = &cobra.Command{
	Use:   "install [path]",
	Short: "Install a model artifact from a local file",
	Long: `Copies a model artifact into the managed models directory. If the
same artifact is already installed the copy is skipped. The file
never leaves this machine.`,
	Args: cobra.ExactArgs(1),
	RunE: runModelInstall,
}

func init() {
	modelCmd.AddCommand(modelStatusCmd)
	modelCmd.AddCommand(modelInstallCmd)
	rootCmd.AddCommand(modelCmd)
}

func runModelStatus(cmd *cobra.Command, _ []string) error {
	if modelStore == nil {
		return errors.New("model store not configured")
	}

	if !modelStore.Ready() {
		cmd.Println("No model installed. Generative analysis is disabled.")
		return nil
	}
	path, err := modelStore.Path()
	if err != nil {
		return fmt.Errorf("reading model path: %w", err)
	}
	cmd.Printf("Model installed: %s\n", path)
	return nil
}

func runModelInstall(cmd *cobra.Command, args []string) error {
	if modelStore == nil {
		return errors.New("model store not configured")
	}

	err := modelStore.Install(cmd.Context(), args[0], func(done, total int64) {
		if total > 0 {
			cmd.Printf("\rCopying... %d%%", done*100/total)
		}
	})
	if err != nil {
		return fmt.Errorf("model install failed: %w", err)
	}
	cmd.Println("\rModel installed.   ")
	return nil
}
