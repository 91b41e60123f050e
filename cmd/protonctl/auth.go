package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DonovanMods/protonctl/internal/core"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// supportedSources lists the services protonctl can store a token for
var supportedSources = []string{core.GitHubTokenSource}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API tokens",
	Long: `Manage API tokens.

The GitHub release feed works without a token but is rate limited to 60
requests an hour. A personal access token (no scopes needed) lifts that.
GITHUB_TOKEN, when set, takes precedence over a stored token.`,
}

var authGitHubCmd = &cobra.Command{
	Use:   "github [token]",
	Short: "Store a GitHub token",
	Long: `Store a GitHub personal access token. Without an argument the token is
read from the terminal without echo.

Create one at https://github.com/settings/tokens (no scopes needed).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthGitHub,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout <source>",
	Short: "Remove a stored token",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show token status",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authGitHubCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthGitHub(cmd *cobra.Command, args []string) error {
	var token string
	if len(args) > 0 {
		token = strings.TrimSpace(args[0])
	} else {
		var err error
		token, err = readAPIKey(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
	}
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	if err := svc.SaveGitHubToken(token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	cmd.Printf("Saved GitHub token (%s)\n", maskAPIKey(token))
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	if !isSupportedSource(args[0]) {
		return fmt.Errorf("unsupported source: %s (supported: %s)", args[0], strings.Join(supportedSources, ", "))
	}

	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	if err := svc.DeleteGitHubToken(); err != nil {
		return fmt.Errorf("removing token: %w", err)
	}

	cmd.Println("Removed GitHub token.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	if env := os.Getenv("GITHUB_TOKEN"); env != "" {
		cmd.Printf("GitHub: authenticated via GITHUB_TOKEN (key: %s)\n", maskAPIKey(env))
		return nil
	}

	stored, err := svc.HasGitHubToken()
	if err != nil {
		return fmt.Errorf("checking GitHub token: %w", err)
	}
	if stored {
		cmd.Println("GitHub: authenticated (stored token)")
	} else {
		cmd.Println("GitHub: not authenticated (60 requests/hour)")
	}
	return nil
}

// isSupportedSource checks if a source ID is in the supported list
func isSupportedSource(sourceID string) bool {
	for _, s := range supportedSources {
		if s == sourceID {
			return true
		}
	}
	return false
}

// readAPIKey prompts for and reads a token, hiding input on a terminal
func readAPIKey(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter token: ")

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimSpace(string(keyBytes)), nil
	}

	// Piped input
	key, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(key), nil
}
