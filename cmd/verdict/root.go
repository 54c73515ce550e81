package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"verdict/internal/version"
)

var (
	// rootFlag overrides the workspace root (default: current directory)
	rootFlag string
	// formatFlag selects output rendering: human or json
	formatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "verdict",
	Short: "Verdict - tiered decision engine",
	Long: `Verdict classifies units of work by escalating through cheap lookup
tables, pattern signatures, a durable decision cache, and heuristics before
falling back to an external analyzer. Scans track file changes incrementally
so only what changed gets reclassified.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("verdict version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Workspace root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "human", "Output format: human or json")
}

// workspaceRoot resolves the effective workspace root
func workspaceRoot() (string, error) {
	if rootFlag != "" {
		return rootFlag, nil
	}
	return os.Getwd()
}

// printJSON renders v as indented JSON on stdout
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
