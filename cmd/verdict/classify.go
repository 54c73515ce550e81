package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"verdict/internal/classify"
	"verdict/internal/engine"
	"verdict/internal/evidence"
)

var (
	classifyChanged  bool
	classifyTaskType string
	classifyText     string
)

var classifyCmd = &cobra.Command{
	Use:   "classify [paths...]",
	Short: "Classify units of work",
	Long: `Resolves each path to a decision via the tier ladder. With --changed,
scans the workspace first and classifies only added or modified files.`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyChanged, "changed", false, "Scan and classify only changed files")
	classifyCmd.Flags().StringVar(&classifyTaskType, "task-type", "", "Declared task type signal")
	classifyCmd.Flags().StringVar(&classifyText, "text", "", "Free-form description signal")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	logger := newLogger(root)

	eng, err := getEngine(root, logger)
	if err != nil {
		return err
	}

	var outcomes []engine.Outcome
	if classifyChanged {
		_, outcomes, err = eng.ClassifyChanges(cmd.Context())
		if err != nil {
			return err
		}
	} else {
		if len(args) == 0 {
			return fmt.Errorf("nothing to classify: pass paths or --changed")
		}
		units := make([]classify.Unit, len(args))
		for i, path := range args {
			units[i] = classify.Unit{
				Path:     path,
				Text:     classifyText,
				TaskType: classifyTaskType,
			}
		}
		outcomes = eng.ClassifyUnits(context.Background(), units)
	}

	if formatFlag == "json" {
		return printJSON(outcomes)
	}

	for _, o := range outcomes {
		fmt.Printf("%-40s %-12s %-10s conf=%.2f cost=%.2f\n",
			o.Unit.Path, o.Decision.Label, o.Decision.Method, o.Decision.Confidence, o.Decision.Cost)
		if o.Verdict.Status != evidence.StatusAccepted {
			fmt.Printf("  gate: %s %v\n", o.Verdict.Status, o.Verdict.ViolatedConstraints)
		}
	}
	if len(outcomes) == 0 {
		fmt.Println("Nothing to classify.")
	}
	return nil
}
