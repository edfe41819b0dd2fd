package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/skillmeat/skillmeat/internal/cache/sqlite"
	"github.com/skillmeat/skillmeat/internal/deployset"
)

var deploysetCmd = &cobra.Command{
	Use:   "deployset",
	Short: "Manage deployment sets",
}

var deploysetCreateCmd = &cobra.Command{
	Use:   "create <owner> <name>",
	Short: "Create a deployment set",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		id := uuid.NewString()
		if err := store.UpsertDeploymentSet(ctx, &sqlite.DeploymentSetRow{
			ID: id, Owner: args[0], Name: args[1],
		}); err != nil {
			return fmt.Errorf("create deployment set: %w", err)
		}
		fmt.Println(id)
		return nil
	},
}

var deploysetAddMemberCmd = &cobra.Command{
	Use:   "add-member <set-id> <artifact|group|set> <member-id>",
	Short: "Add an artifact, group, or nested set as a member of a deployment set",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		setID, kind, memberID := args[0], args[1], args[2]
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		existing, err := store.DeploymentSetMembers(ctx, setID)
		if err != nil {
			return fmt.Errorf("load existing deployment set members: %w", err)
		}
		member := &sqlite.DeploymentSetMember{ID: uuid.NewString(), SetID: setID, Position: len(existing)}
		switch kind {
		case "artifact":
			member.ArtifactID = memberID
		case "group":
			member.GroupID = memberID
		case "set":
			member.MemberSetID = memberID
		default:
			return fmt.Errorf("unknown member kind %q, want artifact, group, or set", kind)
		}
		if err := store.AddDeploymentSetMember(ctx, member); err != nil {
			return fmt.Errorf("add deployment set member: %w", err)
		}
		fmt.Printf("added %s %s to set %s\n", kind, memberID, setID)
		return nil
	},
}

var deploysetResolveCmd = &cobra.Command{
	Use:   "resolve <set-id>",
	Short: "Resolve a deployment set's full member artifact id list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		resolver := &deployset.Resolver{DepthLimit: deployset.DefaultDepthLimit}
		ids, err := resolver.Resolve(ctx, store, args[0])
		if err != nil {
			return fmt.Errorf("resolve deployment set: %w", err)
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	deploysetCmd.AddCommand(deploysetCreateCmd)
	deploysetCmd.AddCommand(deploysetAddMemberCmd)
	deploysetCmd.AddCommand(deploysetResolveCmd)
}
