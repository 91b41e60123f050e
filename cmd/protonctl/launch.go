package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/DonovanMods/protonctl/internal/core"
	"github.com/DonovanMods/protonctl/internal/domain"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	launchGame   string
	launchName   string
	launchExe    string
	launchRunner string
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Build or run the command line for a Windows game",
}

var launchPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the command and environment to launch a game",
	Long: `Print the command and environment needed to launch a Windows game
through the resolved runner. Nothing is started.

Either --game (a configured game) or --name and --exe are required.

Examples:
  protonctl launch plan --game witcher3
  protonctl launch plan --name "My Game" --exe "/games/My Game/game.exe"
  protonctl launch plan --game witcher3 --runner /usr/bin/wine --json`,
	Args: cobra.NoArgs,
	RunE: runLaunchPlan,
}

var launchRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Launch a game through the resolved runner",
	Long: `Launch a Windows game through the resolved runner and wait for it to exit.
The game runs in its executable's directory with the runner environment
merged over the current one.

Examples:
  protonctl launch run --game witcher3`,
	Args: cobra.NoArgs,
	RunE: runLaunchRun,
}

func init() {
	for _, c := range []*cobra.Command{launchPlanCmd, launchRunCmd} {
		c.Flags().StringVarP(&launchGame, "game", "g", "", "configured game ID")
		c.Flags().StringVar(&launchName, "name", "", "game name (names the prefix)")
		c.Flags().StringVar(&launchExe, "exe", "", "path to the Windows executable")
		c.Flags().StringVar(&launchRunner, "runner", "", "runner path overriding the game's and the default")
		c.MarkFlagsMutuallyExclusive("game", "name")
		c.MarkFlagsRequiredTogether("name", "exe")
	}

	launchCmd.AddCommand(launchPlanCmd)
	launchCmd.AddCommand(launchRunCmd)
	rootCmd.AddCommand(launchCmd)
}

// planLaunch builds the launch configuration from the launch flags
func planLaunch(cmd *cobra.Command, svc *core.Service) (*domain.LaunchConfig, error) {
	ctx := commandContext(cmd)
	override := expandHome(launchRunner)

	switch {
	case launchGame != "":
		return svc.PlanGameLaunch(ctx, launchGame, override)
	case launchName != "" && launchExe != "":
		exe, err := filepath.Abs(expandHome(launchExe))
		if err != nil {
			return nil, fmt.Errorf("resolving executable path: %w", err)
		}
		return svc.PlanLaunch(ctx, launchName, exe, override)
	default:
		return nil, errors.New("specify --game, or --name and --exe")
	}
}

func runLaunchPlan(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	cfg, err := planLaunch(cmd, svc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, cfg)
	}

	fmt.Fprintf(out, "Runner: %s (%s)\n", colorGreen(cfg.Runner.Name), cfg.Runner.Type)
	fmt.Fprintf(out, "Prefix: %s\n\n", cfg.CompatDataPath)

	keys := make([]string, 0, len(cfg.Env))
	for k := range cfg.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%s=%q \\\n", k, cfg.Env[k])
	}
	for i, arg := range cfg.Cmd {
		sep := " "
		if i == len(cfg.Cmd)-1 {
			sep = "\n"
		}
		fmt.Fprintf(out, "%q%s", arg, sep)
	}
	return nil
}

func runLaunchRun(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	cfg, err := planLaunch(cmd, svc)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(commandContext(cmd))
	defer stop()

	game := exec.CommandContext(ctx, cfg.Cmd[0], cfg.Cmd[1:]...)
	game.Env = cfg.Environ(os.Environ())
	game.Dir = filepath.Dir(cfg.Cmd[len(cfg.Cmd)-1])
	game.Stdin = cmd.InOrStdin()
	game.Stdout = cmd.OutOrStdout()
	game.Stderr = cmd.ErrOrStderr()

	log.Info().Strs("cmd", cfg.Cmd).Str("runner", cfg.Runner.Name).Msg("launching game")
	if err := game.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("game exited with code %d", exitErr.ExitCode())
		}
		return fmt.Errorf("starting game: %w", err)
	}
	return nil
}
