package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"igstories/pkg/auth"
	"igstories/pkg/instagram"
	"igstories/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage saved sessions",
	Long: `Manage Instagram session tokens saved for later runs.

A token is saved automatically after every successful password login and
can be reused with 'igstories run --profile <account>'.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

Never share a session token, it grants full access to the account!`,
}

// importCmd represents the auth import command
var importCmd = &cobra.Command{
	Use:   "import <account>",
	Short: "Save a session token copied from a browser",
	Long: `Save the sessionid cookie of a logged-in browser for <account>.

The token is read from the IGSTORIES_SESSION_TOKEN environment variable or
prompted without echo.`,
	Example: `  igstories auth import myaccount`,
	Args:    cobra.ExactArgs(1),
	RunE:    runImport,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	RunE:  runList,
}

// removeCmd represents the auth remove command
var removeCmd = &cobra.Command{
	Use:     "remove <account>",
	Aliases: []string{"logout"},
	Short:   "Delete a saved session",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

// guideCmd represents the auth guide command
var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain how to copy a session token from a browser",
	Run: func(cmd *cobra.Command, args []string) {
		auth.WriteSessionTokenGuide(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(importCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(removeCmd)
	authCmd.AddCommand(guideCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	account := instagram.SanitizeUsername(args[0])
	if !instagram.IsValidUsername(account) {
		return fmt.Errorf("invalid account name: %s", args[0])
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize profile store: %w", err)
	}

	raw := os.Getenv("IGSTORIES_SESSION_TOKEN")
	if raw == "" {
		auth.WriteSessionTokenGuide(cmd.OutOrStdout())
		fmt.Println()
		if raw, err = readPassword("Session token: "); err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
	}
	token := auth.NormalizeToken(raw)
	if token == "" {
		return errors.New("session token is required")
	}

	if _, err := manager.LoadProfileToken(account); err == nil && !confirm(fmt.Sprintf("Replace the saved session for %s?", account)) {
		ui.PrintWarning("Import cancelled")
		return nil
	}

	if err := manager.SaveProfile(account, token); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Session saved for %s (%s)", account, auth.MaskToken(token)))
	fmt.Printf("\nUse it with: igstories run <account> --profile %s\n", account)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize profile store: %w", err)
	}

	profiles, err := manager.Profiles()
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		ui.PrintWarning("No saved sessions")
		fmt.Println("\nLog in once with 'igstories run <account> --username <you>'")
		fmt.Println("or import one with 'igstories auth import <you>'")
		return nil
	}

	ui.PrintHighlight(fmt.Sprintf("Saved sessions (%d)", len(profiles)))
	for _, p := range profiles {
		fmt.Printf("  %-30s %s  saved %s\n", p.Username, auth.MaskToken(p.SessionToken), p.SavedAt.Local().Format(time.DateTime))
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize profile store: %w", err)
	}

	account := instagram.SanitizeUsername(args[0])
	if !confirm(fmt.Sprintf("Delete the saved session for %s?", account)) {
		ui.PrintWarning("Removal cancelled")
		return nil
	}
	if err := manager.Delete(account); err != nil {
		return err
	}
	ui.PrintSuccess("Removed " + account)
	return nil
}

func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
