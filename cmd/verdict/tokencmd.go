package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"verdict/internal/auth"
)

var (
	tokenLabel       string
	tokenShowRevoked bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API tokens for the HTTP server",
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new API token",
	Long:  "Issues a token and prints it once. Only a hash is stored; the raw token cannot be recovered later.",
	RunE:  runTokenCreate,
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issued tokens",
	RunE:  runTokenList,
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke a token by key ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenRevoke,
}

func init() {
	tokenCreateCmd.Flags().StringVar(&tokenLabel, "label", "", "Label describing the token's purpose")
	tokenListCmd.Flags().BoolVar(&tokenShowRevoked, "all", false, "Include revoked tokens")
	tokenCmd.AddCommand(tokenCreateCmd)
	tokenCmd.AddCommand(tokenListCmd)
	tokenCmd.AddCommand(tokenRevokeCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runTokenCreate(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	eng, err := getEngine(root, newLogger(root))
	if err != nil {
		return err
	}

	keyID, raw, err := eng.Tokens.Issue(tokenLabel)
	if err != nil {
		return err
	}

	if formatFlag == "json" {
		return printJSON(map[string]string{"keyId": keyID, "token": raw})
	}
	fmt.Printf("Key ID: %s\n", keyID)
	fmt.Printf("Token:  %s\n", raw)
	fmt.Println("\nStore this token now. It will not be shown again.")
	return nil
}

func runTokenList(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	eng, err := getEngine(root, newLogger(root))
	if err != nil {
		return err
	}

	tokens, err := eng.Tokens.List(tokenShowRevoked)
	if err != nil {
		return err
	}

	if formatFlag == "json" {
		return printJSON(tokens)
	}
	if len(tokens) == 0 {
		fmt.Println("No tokens.")
		return nil
	}
	for _, tok := range tokens {
		state := "active"
		if tok.Revoked() {
			state = "revoked"
		}
		fmt.Printf("%s  %s%s****  %-8s %s\n",
			tok.KeyID, auth.TokenPrefix, tok.Prefix, state, tok.Label)
	}
	return nil
}

func runTokenRevoke(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	eng, err := getEngine(root, newLogger(root))
	if err != nil {
		return err
	}

	if err := eng.Tokens.Revoke(args[0]); err != nil {
		return err
	}
	fmt.Printf("Revoked %s\n", args[0])
	return nil
}
