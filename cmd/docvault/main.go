package main

import (
	"os"

	"github.com/docvault-labs/docvault-core/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
