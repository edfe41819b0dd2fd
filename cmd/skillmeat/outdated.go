package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillmeat/skillmeat/internal/registry"
)

var outdatedCmd = &cobra.Command{
	Use:   "outdated <artifact-id> [upstream-version]",
	Short: "Check or refresh an artifact's Outdated flag against its upstream version",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		art, err := store.GetArtifact(ctx, args[0])
		if err != nil {
			return fmt.Errorf("load artifact: %w", err)
		}
		if art == nil {
			return fmt.Errorf("no artifact with id %s", args[0])
		}

		if len(args) == 2 {
			art.UpstreamVersion = args[1]
		}
		art.Outdated = registry.IsOutdated(art.DeployedVersion, art.UpstreamVersion)

		if err := store.UpdateArtifact(ctx, art); err != nil {
			return fmt.Errorf("update artifact: %w", err)
		}
		fmt.Printf("%s:%s deployed=%s upstream=%s outdated=%v\n",
			art.Type, art.Name, art.DeployedVersion, art.UpstreamVersion, art.Outdated)
		return nil
	},
}

