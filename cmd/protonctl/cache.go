package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the download cache",
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove archives left behind by interrupted installs",
	Args:  cobra.NoArgs,
	RunE:  runCacheClean,
}

func init() {
	cacheCmd.AddCommand(cacheCleanCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClean(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(svc)

	count, size, err := svc.CleanDownloads()
	if err != nil {
		return fmt.Errorf("cleaning cache: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{"removed": count, "freed": size})
	}
	if count == 0 {
		cmd.Println("Cache is already clean.")
		return nil
	}
	cmd.Printf("Removed %d file(s), freed %s\n", count, humanize.Bytes(uint64(size)))
	return nil
}
