package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/DonovanMods/protonctl/internal/domain"

	"github.com/spf13/cobra"
)

var gameCmd = &cobra.Command{
	Use:   "game",
	Short: "Manage configured games",
	Long: `Manage the Windows games protonctl knows about.

Games live in games.yaml in the config directory. Each may pin its own
runner; otherwise the default runner is used.`,
}

var (
	gameAddName   string
	gameAddExe    string
	gameAddRunner string
)

var gameAddCmd = &cobra.Command{
	Use:   "add <game-id>",
	Short: "Add or replace a game",
	Long: `Add or replace a game.

Examples:
  protonctl game add witcher3 --name "The Witcher 3" --exe ~/Games/witcher3/bin/x64/witcher3.exe
  protonctl game add oldgame --name "Old Game" --exe /games/old/game.exe --runner /usr/bin/wine`,
	Args: cobra.ExactArgs(1),
	RunE: runGameAdd,
}

var gameListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured games",
	Args:  cobra.NoArgs,
	RunE:  runGameList,
}

var gameSetRunnerCmd = &cobra.Command{
	Use:   "set-runner <game-id> <path|auto>",
	Short: "Pin a runner for one game",
	Long: `Pin a runner for one game. "auto" removes the pin so the game follows
the default runner.

Examples:
  protonctl game set-runner witcher3 ~/.local/share/protonctl/runners/GE-Proton9-20
  protonctl game set-runner witcher3 auto`,
	Args: cobra.ExactArgs(2),
	RunE: runGameSetRunner,
}

var gameRemoveCmd = &cobra.Command{
	Use:   "remove <game-id>",
	Short: "Remove a game (its prefix is kept)",
	Args:  cobra.ExactArgs(1),
	RunE:  runGameRemove,
}

func init() {
	gameAddCmd.Flags().StringVar(&gameAddName, "name", "", "display name (defaults to the ID)")
	gameAddCmd.Flags().StringVar(&gameAddExe, "exe", "", "path to the Windows executable")
	gameAddCmd.Flags().StringVar(&gameAddRunner, "runner", "", "runner path to pin for this game")
	_ = gameAddCmd.MarkFlagRequired("exe")

	gameCmd.AddCommand(gameAddCmd)
	gameCmd.AddCommand(gameListCmd)
	gameCmd.AddCommand(gameSetRunnerCmd)
	gameCmd.AddCommand(gameRemoveCmd)
	rootCmd.AddCommand(gameCmd)
}

func runGameAdd(cmd *cobra.Command, args []string) error {
	exe, err := filepath.Abs(expandHome(gameAddExe))
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}
	if !domain.IsWindowsExecutable(exe) {
		return fmt.Errorf("%w: %s", domain.ErrNotWindowsExecutable, exe)
	}

	name := gameAddName
	if name == "" {
		name = args[0]
	}

	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	game := &domain.Game{
		ID:         args[0],
		Name:       name,
		Executable: exe,
		Runner:     expandHome(gameAddRunner),
	}
	if err := svc.AddGame(game); err != nil {
		return fmt.Errorf("saving game: %w", err)
	}

	cmd.Printf("Added %s (%s)\n", game.Name, game.ID)
	return nil
}

func runGameList(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	games := svc.ListGames()
	out := cmd.OutOrStdout()

	if jsonOutput {
		return printJSON(out, games)
	}

	if len(games) == 0 {
		fmt.Fprintln(out, "No games configured.")
		fmt.Fprintln(out, "\nUse 'protonctl game add' to add a game.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tRUNNER\tEXECUTABLE")
	for _, g := range games {
		runner := g.RunnerOverride()
		if runner == "" {
			runner = domain.RunnerAuto
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", g.ID, g.Name, runner, g.Executable)
	}
	w.Flush()
	return nil
}

func runGameSetRunner(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	runner := args[1]
	if !domain.IsAutoPreference(runner) {
		runner, err = filepath.Abs(expandHome(runner))
		if err != nil {
			return fmt.Errorf("resolving runner path: %w", err)
		}
	}

	if err := svc.SetGameRunner(args[0], runner); err != nil {
		return err
	}

	if domain.IsAutoPreference(runner) {
		cmd.Printf("%s now follows the default runner\n", args[0])
	} else {
		cmd.Printf("%s now uses %s\n", args[0], runner)
	}
	return nil
}

func runGameRemove(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	if err := svc.RemoveGame(args[0]); err != nil {
		return err
	}
	cmd.Printf("Removed %s\n", args[0])
	return nil
}
