package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"socialscraper/pkg/auth"
	"socialscraper/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Recoup API key",
	Long: `Manage stored Recoup API keys.

Keys are stored per profile using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - The RECOUP_API_KEY environment variable (read only)

A key set in the configuration file or RECOUP_API_KEY takes precedence over
stored profiles.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an API key for a profile",
	Example: `  # Prompt for the key of the default profile
  socialscraper auth login

  # Store a key for a second workspace
  socialscraper auth login --profile staging`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored API key of a profile",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List stored profiles with masked keys",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd, logoutCmd, statusCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if existing, _ := manager.Retrieve(profile); existing != nil && !existing.LastModified.IsZero() {
		fmt.Fprintf(ui.Output, "Profile '%s' already has a key (%s). Replace it? (y/N): ", profile, auth.Mask(existing.APIKey))
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
			return nil
		}
	}

	fmt.Fprint(ui.Output, "Recoup API key: ")
	key, err := readPassword()
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}

	if err := manager.Store(&auth.Credential{Profile: profile, APIKey: key}); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("API key stored for profile '%s'", profile))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if err := manager.Delete(profile); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("API key removed for profile '%s'", profile))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	creds, err := manager.List()
	if err != nil {
		return err
	}
	fmt.Fprintln(ui.Output, ui.RenderCredentials(creds))

	if os.Getenv(auth.APIKeyEnv) != "" {
		ui.PrintInfo("Environment", auth.APIKeyEnv+" is set and overrides stored profiles")
	}
	return nil
}

// readPassword reads a secret from stdin without echoing when stdin is a
// terminal
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(ui.Output)
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
