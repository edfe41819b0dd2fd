package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillmeat/skillmeat/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Keep the cache and collection manifest consistent",
}

var syncRecoverCmd = &cobra.Command{
	Use:   "recover <collection-id>",
	Short: "Rebuild cache tags, groups, and collection rows from collection.toml",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		syncer, _, err := newSyncer(cmd)
		if err != nil {
			return err
		}
		defer syncer.Store.Close()
		reason, err := syncer.Recover(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("recover cache: %w", err)
		}
		if reason != sync.SkippedNone {
			fmt.Printf("cache recovery skipped: %s\n", reason)
			return nil
		}
		fmt.Println("cache recovered from collection.toml")
		return nil
	},
}

var syncWatchCmd = &cobra.Command{
	Use:   "watch <collection-id>",
	Short: "Watch the collection root and re-run recovery whenever it changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		syncer, _, err := newSyncer(cmd)
		if err != nil {
			return err
		}
		defer syncer.Store.Close()
		fmt.Printf("watching %s for changes (ctrl-c to stop)\n", syncer.Root)
		return syncer.Watch(cmd.Context(), args[0])
	},
}

func init() {
	syncCmd.AddCommand(syncRecoverCmd)
	syncCmd.AddCommand(syncWatchCmd)
}
