package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/DonovanMods/protonctl/internal/core"
	"github.com/DonovanMods/protonctl/internal/logging"
	"github.com/DonovanMods/protonctl/internal/storage/config"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// ErrCancelled is returned when the user cancels an operation (prompt declined or Ctrl-C).
// When returned from a command, Execute exits with code 2.
var ErrCancelled = errors.New("cancelled")

// appName names the XDG subdirectories
const appName = "protonctl"

var (
	version = "0.3.0"

	// Global flags
	configDir  string
	dataDir    string
	cacheDir   string
	verbose    bool
	jsonOutput bool
	noColor    bool

	// logCloser flushes the log file on exit
	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "protonctl",
	Short: "protonctl - Proton and Wine runner manager for Linux",
	Long: `protonctl finds the Proton and Wine installations on this machine, picks
one for each game, installs Proton-GE, manages per-game Wine prefixes and
prints the command line needed to launch a Windows game.

Use subcommands for operations. Run 'protonctl --help' for available commands.`,
	Version:           version,
	SilenceUsage:      true, // Runtime errors should not print usage
	SilenceErrors:     true, // We handle error output in Execute()
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default: $XDG_CONFIG_HOME/protonctl)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default: $XDG_DATA_HOME/protonctl)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache", "", "download cache directory (default: $XDG_CACHE_HOME/protonctl)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// colorEnabled returns true if colored output should be used (respects --no-color and NO_COLOR env).
// NO_COLOR: if set (any value), color is disabled per https://no-color.org
func colorEnabled() bool {
	if noColor {
		return false
	}
	return os.Getenv("NO_COLOR") == ""
}

const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
)

func colorize(code, s string) string {
	if !colorEnabled() {
		return s
	}
	return code + s + ansiReset
}

// colorGreen returns s in green when color is enabled
func colorGreen(s string) string { return colorize(ansiGreen, s) }

// colorRed returns s in red when color is enabled
func colorRed(s string) string { return colorize(ansiRed, s) }

// colorYellow returns s in yellow when color is enabled
func colorYellow(s string) string { return colorize(ansiYellow, s) }

// Execute runs the root command. Exit codes: 0 = success, 1 = error, 2 = user cancelled.
// When --json is set and an error occurs, prints {"error":"..."} to stdout before exiting.
func Execute() {
	err := rootCmd.Execute()
	if logCloser != nil {
		_ = logCloser.Close()
	}
	os.Exit(exitCode(err, os.Stdout, os.Stderr))
}

// exitCode reports err the way Execute does and returns the process exit code
func exitCode(err error, stdout, stderr io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		fmt.Fprintln(stderr, "Cancelled.")
		return 2
	case jsonOutput:
		fmt.Fprintf(stdout, `{"error":%q}`+"\n", err.Error())
	default:
		fmt.Fprintf(stderr, "%s %v\n", colorRed("Error:"), err)
	}
	return 1
}

// setupLogging points the global logger at the data directory. Console
// logging is only enabled with --verbose.
func setupLogging(cmd *cobra.Command, args []string) error {
	svcCfg := getServiceConfig()
	level := ""
	if appConfig, err := config.Load(svcCfg.ConfigDir); err == nil {
		level = appConfig.LogLevel
	}

	opts := logging.Options{
		Level:   level,
		Verbose: verbose,
		LogDir:  svcCfg.DataDir,
	}
	if verbose {
		opts.Console = os.Stderr
	}

	closer, err := logging.Setup(opts)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	logCloser = closer
	log.Debug().Str("command", cmd.CommandPath()).Msg("starting")
	return nil
}

// initService creates and initializes the core service
func initService() (*core.Service, error) {
	return core.NewService(getServiceConfig())
}

// closeService closes svc, reporting failures as a warning
func closeService(svc *core.Service) {
	if err := svc.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing service: %v\n", err)
	}
}

// getServiceConfig returns the service configuration with XDG defaults
func getServiceConfig() core.ServiceConfig {
	cfg := core.ServiceConfig{
		ConfigDir: configDir,
		DataDir:   dataDir,
		CacheDir:  cacheDir,
	}

	if cfg.ConfigDir == "" {
		cfg.ConfigDir = filepath.Join(xdg.ConfigHome, appName)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(xdg.DataHome, appName)
	}
	if cfg.CacheDir == "" {
		// A cache_path in config.yaml beats the XDG default
		if appConfig, err := config.Load(cfg.ConfigDir); err == nil && appConfig.CachePath != "" {
			cfg.CacheDir = appConfig.CachePath
		} else {
			cfg.CacheDir = filepath.Join(xdg.CacheHome, appName)
		}
	}

	return cfg
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
