package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/skillmeat/skillmeat/internal/cache/sqlite"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage artifact groups",
}

var groupCreateCmd = &cobra.Command{
	Use:   "create <collection-id> <name>",
	Short: "Create a group within a collection",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		id := uuid.NewString()
		if err := store.UpsertGroup(ctx, &sqlite.GroupRow{
			ID: id, CollectionID: args[0], Name: args[1],
		}); err != nil {
			return fmt.Errorf("create group: %w", err)
		}
		fmt.Println(id)
		return nil
	},
}

var groupAddCmd = &cobra.Command{
	Use:   "add-artifact <group-id> <artifact-id>",
	Short: "Add an artifact to a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		members, err := store.GroupArtifacts(ctx, args[0])
		if err != nil {
			return fmt.Errorf("load group members: %w", err)
		}
		if err := store.AddGroupArtifact(ctx, args[0], args[1], len(members)); err != nil {
			return fmt.Errorf("add group member: %w", err)
		}
		fmt.Printf("added %s to group %s\n", args[1], args[0])
		return nil
	},
}

var groupListCmd = &cobra.Command{
	Use:   "list <group-id>",
	Short: "List a group's member artifact ids",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		members, err := store.GroupArtifacts(ctx, args[0])
		if err != nil {
			return fmt.Errorf("load group members: %w", err)
		}
		for _, id := range members {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupAddCmd)
	groupCmd.AddCommand(groupListCmd)
}
