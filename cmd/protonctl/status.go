package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show directories, the resolved runner and release settings",
	Long: `Show where protonctl keeps its files, which runner a game without its own
would use right now, and where Proton-GE releases come from.

Examples:
  protonctl status
  protonctl status --json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusReport is the --json form of the status command
type statusReport struct {
	Version       string `json:"version"`
	ConfigDir     string `json:"configDir"`
	DataDir       string `json:"dataDir"`
	RunnersDir    string `json:"runnersDir"`
	CompatDataDir string `json:"compatDataDir"`
	CacheDir      string `json:"cacheDir"`
	CacheSize     int64  `json:"cacheSize"`
	SteamPath     string `json:"steamPath"`
	DefaultRunner string `json:"defaultRunner"`
	Resolved      string `json:"resolved,omitempty"`
	ReleaseRepo   string `json:"releaseRepo"`
	Authenticated bool   `json:"authenticated"`
	Games         int    `json:"games"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	report := statusReport{
		Version:       version,
		ConfigDir:     svc.ConfigDir(),
		DataDir:       svc.DataDir(),
		RunnersDir:    svc.RunnersDir(),
		CompatDataDir: svc.CompatDataDir(),
		CacheDir:      svc.CacheDir(),
		SteamPath:     svc.SteamInstallPath(),
		ReleaseRepo:   svc.ReleaseRepo(),
		Authenticated: svc.GitHubAuthenticated(),
		Games:         len(svc.ListGames()),
	}
	if report.CacheSize, err = svc.CacheSize(); err != nil {
		return fmt.Errorf("measuring cache: %w", err)
	}
	if report.DefaultRunner, err = svc.GlobalRunner(); err != nil {
		return err
	}
	runner, err := svc.ResolveRunner(commandContext(cmd), "", "")
	if err != nil {
		return err
	}
	if runner != nil {
		report.Resolved = runner.Name
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, report)
	}

	resolved := colorYellow("none (run 'protonctl runners install')")
	if runner != nil {
		resolved = colorGreen(runner.Name) + " (" + string(runner.Type) + ")"
	}
	auth := "no (60 requests/hour)"
	if report.Authenticated {
		auth = "yes"
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Version:\t%s\n", report.Version)
	fmt.Fprintf(w, "Config:\t%s\n", report.ConfigDir)
	fmt.Fprintf(w, "Data:\t%s\n", report.DataDir)
	fmt.Fprintf(w, "Runners:\t%s\n", report.RunnersDir)
	fmt.Fprintf(w, "Prefixes:\t%s\n", report.CompatDataDir)
	fmt.Fprintf(w, "Cache:\t%s (%s)\n", report.CacheDir, humanize.Bytes(uint64(report.CacheSize)))
	fmt.Fprintf(w, "Steam:\t%s\n", report.SteamPath)
	fmt.Fprintf(w, "Default runner:\t%s\n", report.DefaultRunner)
	fmt.Fprintf(w, "Resolves to:\t%s\n", resolved)
	fmt.Fprintf(w, "Releases:\tgithub.com/%s\n", report.ReleaseRepo)
	fmt.Fprintf(w, "GitHub token:\t%s\n", auth)
	fmt.Fprintf(w, "Games:\t%d\n", report.Games)
	return w.Flush()
}
