package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"verdict/internal/config"
	enginerr "verdict/internal/errors"
	"verdict/internal/rules"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a verdict workspace",
	Long:  "Creates a .verdict/ directory with default configuration and rule tables in the workspace root",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Force reinitialization (removes the existing .verdict directory)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return enginerr.New(enginerr.InternalError, "failed to resolve workspace root", err)
	}

	stateDir := filepath.Join(root, config.StateDirName)
	if _, statErr := os.Stat(stateDir); statErr == nil {
		if !initForce {
			// Already initialized is success, rerunning in CI must not fail
			fmt.Println("verdict already initialized.")
			fmt.Printf("Configuration at: %s\n", filepath.Join(stateDir, "config.json"))
			fmt.Println("\nRun 'verdict init --force' to reinitialize.")
			return nil
		}
		if removeErr := os.RemoveAll(stateDir); removeErr != nil {
			return enginerr.New(enginerr.IOFailure, "failed to remove existing state directory", removeErr)
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(root); err != nil {
		return err
	}
	if err := rules.Defaults().Save(filepath.Join(stateDir, "rules.yaml")); err != nil {
		return err
	}

	fmt.Println("Initialized verdict workspace.")
	fmt.Printf("Configuration: %s\n", filepath.Join(stateDir, "config.json"))
	fmt.Printf("Rule tables:   %s\n", filepath.Join(stateDir, "rules.yaml"))
	return nil
}
