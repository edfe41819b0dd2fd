package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillmeat/skillmeat/internal/composite"
	"github.com/skillmeat/skillmeat/internal/discovery"
)

var importCmd = &cobra.Command{
	Use:   "import <container-path>",
	Short: "Detect a composite container and import it with its children atomically",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		containerPath := args[0]
		upstream, _ := cmd.Flags().GetString("upstream")
		slugOverride, _ := cmd.Flags().GetString("slug")

		graph, ok, err := discovery.DetectComposite(containerPath)
		if err != nil {
			return fmt.Errorf("detect composite: %w", err)
		}
		if !ok {
			return fmt.Errorf("%s does not look like a composite container (no plugin.json and at most one artifact type present)", containerPath)
		}
		if len(graph.Children) == 0 {
			return fmt.Errorf("no importable children discovered under %s", containerPath)
		}

		slug := slugOverride
		if slug == "" {
			slug = graph.ParentName
		}
		compositeType := "skill"
		if graph.HasPluginManifest {
			compositeType = "plugin"
		}

		children := make([]composite.Child, 0, len(graph.Children))
		for _, c := range graph.Children {
			children = append(children, composite.Child{Type: c.Type, Name: c.Name, Path: c.Path})
		}

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		result, err := composite.Import(ctx, store, composite.Request{
			Slug: slug, CompositeType: compositeType, UpstreamSourceURL: upstream, Children: children,
		})
		if err != nil {
			return fmt.Errorf("import composite: %w", err)
		}

		fmt.Printf("imported composite %s with %d member(s)\n", result.CompositeID, len(result.Memberships))
		for _, m := range result.Memberships {
			fmt.Printf("  %s -> %s (%s)\n", m.ChildName, m.ArtifactID, m.Decision)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().String("upstream", "", "upstream source URL the composite was imported from")
	importCmd.Flags().String("slug", "", "override the composite's slug (defaults to the container directory name)")
}
