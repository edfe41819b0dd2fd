package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillmeat/skillmeat/internal/collection"
	"github.com/skillmeat/skillmeat/internal/sync"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage collection tags",
}

var tagRenameCmd = &cobra.Command{
	Use:   "rename <slug> <new-name>",
	Short: "Rename a tag, keeping its slug stable",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		syncer, _, err := newSyncer(cmd)
		if err != nil {
			return err
		}
		defer syncer.Store.Close()
		if err := syncer.RenameTag(context.Background(), args[0], args[1]); err != nil {
			return fmt.Errorf("rename tag: %w", err)
		}
		fmt.Printf("renamed tag %q to %q\n", args[0], args[1])
		return nil
	},
}

var tagDeleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Delete a tag and remove it from every tagged artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		syncer, _, err := newSyncer(cmd)
		if err != nil {
			return err
		}
		defer syncer.Store.Close()
		if err := syncer.DeleteTag(context.Background(), args[0]); err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		fmt.Printf("deleted tag %q\n", args[0])
		return nil
	},
}

func init() {
	tagCmd.AddCommand(tagRenameCmd)
	tagCmd.AddCommand(tagDeleteCmd)
}

// newSyncer opens a Syncer bound to the effective collection root and
// cache store, for subcommands that need write-through behavior.
func newSyncer(cmd *cobra.Command) (*sync.Syncer, string, error) {
	root, _ := cmd.Flags().GetString("collection-root")
	store, err := openStore(context.Background())
	if err != nil {
		return nil, "", err
	}
	return &sync.Syncer{Store: store, Collection: collection.Open(root), Root: root}, root, nil
}
