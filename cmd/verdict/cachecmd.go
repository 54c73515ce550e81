package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the decision cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show decision-cache statistics",
	RunE:  runCacheStats,
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Evict expired decision-cache entries",
	RunE:  runCacheSweep,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	eng, err := getEngine(root, newLogger(root))
	if err != nil {
		return err
	}

	stats, err := eng.Cache.GetStats()
	if err != nil {
		return err
	}

	if formatFlag == "json" {
		return printJSON(stats)
	}

	fmt.Printf("Entries:     %d (%d expired)\n", stats.Entries, stats.Expired)
	fmt.Printf("Total hits:  %d\n", stats.TotalHits)
	fmt.Printf("Hot entries: %d\n", stats.HotEntries)
	fmt.Printf("Size:        %d bytes\n", stats.SizeBytes)
	return nil
}

func runCacheSweep(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	eng, err := getEngine(root, newLogger(root))
	if err != nil {
		return err
	}

	removed, err := eng.Sweep()
	if err != nil {
		return err
	}

	if formatFlag == "json" {
		return printJSON(map[string]int64{"removed": removed})
	}
	fmt.Printf("Removed %d expired entries.\n", removed)
	return nil
}
