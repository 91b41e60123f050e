package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/DonovanMods/protonctl/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var runnersCmd = &cobra.Command{
	Use:   "runners",
	Short: "Detect, resolve and install Proton and Wine runners",
	Long: `Detect, resolve and install Proton and Wine runners.

Runners are found in Steam's steamapps/common and compatibilitytools.d
directories, in protonctl's own runners directory, and on PATH (system Wine).`,
}

var runnersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every detected runner",
	Long: `List every detected runner. Proton-GE builds come first, newest first,
followed by other Proton builds and system Wine.

Examples:
  protonctl runners list
  protonctl runners list --json`,
	Args: cobra.NoArgs,
	RunE: runRunnersList,
}

var (
	resolveGame   string
	resolveRunner string
)

var runnersResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show which runner a game would use",
	Long: `Show which runner a game would use.

The first valid choice wins: --runner, the game's own runner, the global
default, the newest detected Proton, system Wine.

Examples:
  protonctl runners resolve
  protonctl runners resolve --game witcher3
  protonctl runners resolve --runner ~/proton/GE-Proton9-20`,
	Args: cobra.NoArgs,
	RunE: runRunnersResolve,
}

var runnersLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Check the latest Proton-GE release",
	Args:  cobra.NoArgs,
	RunE:  runRunnersLatest,
}

var runnersInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Download and install the latest Proton-GE",
	Long: `Download and install the latest Proton-GE.

Older Proton-GE builds are removed once the new one is verified, and the
default runner is switched to it when it was unset or pointed at Proton-GE.
Press Ctrl-C to cancel; nothing is left behind.`,
	Args: cobra.NoArgs,
	RunE: runRunnersInstall,
}

var cleanupKeep string

var runnersCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove Proton-GE builds other than the one kept",
	Long: `Remove every Proton-GE build in protonctl's runners directory except --keep.

Examples:
  protonctl runners cleanup --keep GE-Proton9-20`,
	Args: cobra.NoArgs,
	RunE: runRunnersCleanup,
}

var runnersSelectCmd = &cobra.Command{
	Use:   "select <path|auto>",
	Short: "Set the default runner",
	Long: `Set the default runner used by games without their own.

PATH may be a Proton folder, a folder containing bin/wine or wine, or a
Wine binary. "auto" goes back to auto-detection.

Examples:
  protonctl runners select ~/.local/share/protonctl/runners/GE-Proton9-20
  protonctl runners select /opt/wine-staging
  protonctl runners select auto`,
	Args: cobra.ExactArgs(1),
	RunE: runRunnersSelect,
}

var historyLimit int

var runnersHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show runner install, removal and selection history",
	Args:  cobra.NoArgs,
	RunE:  runRunnersHistory,
}

func init() {
	runnersResolveCmd.Flags().StringVarP(&resolveGame, "game", "g", "", "game ID whose runner override applies")
	runnersResolveCmd.Flags().StringVar(&resolveRunner, "runner", "", "explicit runner path to try first")
	runnersCleanupCmd.Flags().StringVar(&cleanupKeep, "keep", "", "Proton-GE directory name to keep")
	_ = runnersCleanupCmd.MarkFlagRequired("keep")
	runnersHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of events to show")

	runnersCmd.AddCommand(runnersListCmd)
	runnersCmd.AddCommand(runnersResolveCmd)
	runnersCmd.AddCommand(runnersLatestCmd)
	runnersCmd.AddCommand(runnersInstallCmd)
	runnersCmd.AddCommand(runnersCleanupCmd)
	runnersCmd.AddCommand(runnersSelectCmd)
	runnersCmd.AddCommand(runnersHistoryCmd)
	rootCmd.AddCommand(runnersCmd)
}

func runRunnersList(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	runners := svc.ListRunners(cmd.Context())
	out := cmd.OutOrStdout()

	if jsonOutput {
		if runners == nil {
			runners = []domain.Runner{}
		}
		return printJSON(out, runners)
	}

	if len(runners) == 0 {
		fmt.Fprintln(out, "No Proton or Wine installations found.")
		fmt.Fprintln(out, "\nInstall Proton-GE with 'protonctl runners install'.")
		return nil
	}

	pref, _ := svc.GlobalRunner()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tTYPE\tSOURCE\tVERSION\tPATH")
	for _, r := range runners {
		mark := "  "
		if r.Path == pref {
			mark = "* "
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%s\n", mark, r.Name, r.Type, r.Source, r.Version, r.Path)
	}
	w.Flush()

	fmt.Fprintf(out, "\nDefault: %s\n", pref)
	return nil
}

func runRunnersResolve(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	runner, err := svc.ResolveRunner(cmd.Context(), resolveGame, expandHome(resolveRunner))
	if err != nil {
		return err
	}
	if runner == nil {
		return fmt.Errorf("%w: install Proton-GE with 'protonctl runners install' or install Wine", domain.ErrNoRunner)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, runner)
	}
	fmt.Fprintf(out, "%s (%s)\n", colorGreen(runner.Name), runner.Type)
	fmt.Fprintf(out, "  Path: %s\n", runner.Path)
	if runner.Version != "" {
		fmt.Fprintf(out, "  Version: %s\n", runner.Version)
	}
	return nil
}

func runRunnersLatest(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	info, err := svc.LatestRelease(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, info)
	}

	fmt.Fprintf(out, "Latest Proton-GE: %s (%s)\n", info.Name, info.SizeFormatted)
	switch {
	case info.AlreadyInstalled:
		fmt.Fprintf(out, "Status: %s\n", colorGreen("installed"))
	case info.UpdateAvailable:
		fmt.Fprintf(out, "Status: %s\n", colorYellow("update available"))
	default:
		fmt.Fprintln(out, "Status: not installed")
	}
	if len(info.InstalledVersions) > 0 {
		fmt.Fprintf(out, "Installed: %s\n", strings.Join(info.InstalledVersions, ", "))
	}
	if !info.AlreadyInstalled {
		fmt.Fprintln(out, "\nRun 'protonctl runners install' to install it.")
	}
	return nil
}

func runRunnersInstall(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	ctx, stop := signalContext(commandContext(cmd))
	defer stop()

	stderr := cmd.ErrOrStderr()
	progress := newProgressPrinter(stderr, isTerminal(stderr))
	res, err := svc.InstallLatest(ctx, progress.update)
	progress.finish()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, res)
	}

	if res.AlreadyInstalled {
		fmt.Fprintf(out, "%s is already installed.\n", res.Name)
		return nil
	}
	fmt.Fprintf(out, "%s %s\n", colorGreen("✓"), res.Message)
	fmt.Fprintf(out, "  Path: %s\n", res.Path)
	if res.PreferenceUpdated {
		fmt.Fprintf(out, "  Now the default runner.\n")
	}
	for _, name := range res.Removed {
		fmt.Fprintf(out, "  Removed %s\n", name)
	}
	return nil
}

func runRunnersCleanup(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	removed := svc.RemoveOldRunners(cleanupKeep)

	out := cmd.OutOrStdout()
	if jsonOutput {
		if removed == nil {
			removed = []string{}
		}
		return printJSON(out, map[string]any{"removed": removed})
	}
	if len(removed) == 0 {
		fmt.Fprintln(out, "Nothing to remove.")
		return nil
	}
	for _, name := range removed {
		fmt.Fprintf(out, "Removed %s\n", name)
	}
	return nil
}

func runRunnersSelect(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	runner, err := svc.SelectRunner(expandHome(args[0]))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runner == nil {
		fmt.Fprintln(out, "Default runner: auto-detect")
		return nil
	}
	fmt.Fprintf(out, "Default runner: %s (%s)\n", colorGreen(runner.Name), runner.Type)
	fmt.Fprintf(out, "  Path: %s\n", runner.Path)
	return nil
}

func runRunnersHistory(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	events, err := svc.RunnerHistory(historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if events == nil {
			events = []domain.RunnerEvent{}
		}
		return printJSON(out, events)
	}
	if len(events) == 0 {
		fmt.Fprintln(out, "No runner history yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tACTION\tRUNNER\tPATH")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", humanize.Time(e.At), e.Action, e.Name, e.Path)
	}
	w.Flush()
	return nil
}

// commandContext returns the command's context, or Background outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// progressPrinter renders install progress. On a terminal it redraws one
// line; otherwise it prints each new status once.
type progressPrinter struct {
	w          io.Writer
	redraw     bool
	lastStatus string
	drawn      bool
}

func newProgressPrinter(w io.Writer, redraw bool) *progressPrinter {
	return &progressPrinter{w: w, redraw: redraw}
}

func (p *progressPrinter) update(percent float64, status string) {
	if p.redraw {
		fmt.Fprintf(p.w, "\r\033[K[%3.0f%%] %s", percent, status)
		p.drawn = true
		return
	}
	// Download byte counts change every chunk; only print phase changes
	phase, _, _ := strings.Cut(status, "...")
	if phase == p.lastStatus {
		return
	}
	p.lastStatus = phase
	fmt.Fprintf(p.w, "[%3.0f%%] %s\n", percent, status)
}

func (p *progressPrinter) finish() {
	if p.drawn {
		fmt.Fprintln(p.w)
	}
}
