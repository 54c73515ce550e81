package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"verdict/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workspace state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	eng, err := getEngine(root, newLogger(root))
	if err != nil {
		return err
	}

	snapshot, err := eng.Snapshots.Load()
	if err != nil {
		return err
	}
	stats, err := eng.Cache.GetStats()
	if err != nil {
		return err
	}

	lastScan := eng.DB.GetMetaInt(storage.MetaKeyLastScanAt)
	lastSweep := eng.DB.GetMetaInt(storage.MetaKeyLastSweepAt)

	if formatFlag == "json" {
		return printJSON(map[string]any{
			"root":         root,
			"trackedFiles": len(snapshot),
			"lastScanAt":   lastScan,
			"lastSweepAt":  lastSweep,
			"cache":        stats,
		})
	}

	fmt.Printf("Workspace:     %s\n", root)
	fmt.Printf("Tracked files: %d\n", len(snapshot))
	fmt.Printf("Last scan:     %s\n", formatUnix(lastScan))
	fmt.Printf("Last sweep:    %s\n", formatUnix(lastSweep))
	fmt.Printf("Cache:         %d entries, %d hits, %d expired\n",
		stats.Entries, stats.TotalHits, stats.Expired)
	return nil
}

func formatUnix(ts int64) string {
	if ts == 0 {
		return "never"
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
