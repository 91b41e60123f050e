package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var prefixCmd = &cobra.Command{
	Use:   "prefix",
	Short: "Manage per-game compatibility data (Wine prefixes)",
	Long: `Manage per-game compatibility data.

Each game gets a directory under the compatdata root named after a
filesystem-safe form of its name. Proton keeps its prefix there; Wine uses
its pfx subdirectory.`,
}

var prefixPathCmd = &cobra.Command{
	Use:   "path <game-name>",
	Short: "Print (and create) a game's compatibility data directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrefixPath,
}

var prefixSizeCmd = &cobra.Command{
	Use:   "size <game-name>",
	Short: "Show how much space a game's prefix uses",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrefixSize,
}

var prefixDeleteYes bool

var prefixDeleteCmd = &cobra.Command{
	Use:   "delete <game-name>",
	Short: "Delete a game's prefix and start fresh",
	Long: `Delete a game's prefix. An empty directory is recreated so the next
launch builds a fresh prefix. Saves stored inside the prefix are lost.

Examples:
  protonctl prefix delete "Elden Ring"
  protonctl prefix delete "Elden Ring" --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runPrefixDelete,
}

func init() {
	prefixDeleteCmd.Flags().BoolVarP(&prefixDeleteYes, "yes", "y", false, "do not ask for confirmation")

	prefixCmd.AddCommand(prefixPathCmd)
	prefixCmd.AddCommand(prefixSizeCmd)
	prefixCmd.AddCommand(prefixDeleteCmd)
	rootCmd.AddCommand(prefixCmd)
}

func runPrefixPath(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	path, err := svc.Prefixes().Path(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, map[string]string{"name": args[0], "slug": svc.Prefixes().Slugify(args[0]), "path": path})
	}
	fmt.Fprintln(out, path)
	return nil
}

func runPrefixSize(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	size, err := svc.Prefixes().Size(commandContext(cmd), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, map[string]any{"name": args[0], "size": size, "sizeFormatted": humanize.Bytes(uint64(size))})
	}
	fmt.Fprintf(out, "%s: %s\n", args[0], humanize.Bytes(uint64(size)))
	return nil
}

func runPrefixDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	if !prefixDeleteYes {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete the prefix for %q?", name))
		if err != nil {
			return err
		}
		if !ok {
			return ErrCancelled
		}
	}

	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	res := svc.Prefixes().Delete(name)

	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else if res.Success {
		fmt.Fprintln(out, res.Message)
	}
	if !res.Success {
		return errors.New(res.Message)
	}
	return nil
}
