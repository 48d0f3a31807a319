package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "pipeline",
		Short:         "Chapter Flow - transcripts, chapters, long-form sections and metadata from media",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().Bool("metrics", false, "serve Prometheus metrics (overrides metrics.enabled)")

	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newTranscribeCmd())
	rootCmd.AddCommand(newChaptersCmd())
	rootCmd.AddCommand(newSectionsCmd())
	rootCmd.AddCommand(newMetadataCmd())
	rootCmd.AddCommand(newDoctorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
