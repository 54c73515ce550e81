package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the workspace for file changes",
	Long:  "Fingerprints every tracked file, diffs against the stored snapshot, and replaces the snapshot",
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	logger := newLogger(root)

	eng, err := getEngine(root, logger)
	if err != nil {
		return err
	}

	result, err := eng.Scan()
	if err != nil {
		return err
	}

	if formatFlag == "json" {
		return printJSON(result)
	}

	fmt.Printf("Scanned %d files in %v\n", result.Files, result.Duration.Round(time.Millisecond))
	if len(result.Changes) == 0 {
		fmt.Println("No changes.")
		return nil
	}
	for _, change := range result.Changes {
		if change.Magnitude != "" {
			fmt.Printf("  %-9s %-9s %s\n", change.Kind, change.Magnitude, change.Path)
		} else {
			fmt.Printf("  %-9s %s\n", change.Kind, change.Path)
		}
	}
	return nil
}
