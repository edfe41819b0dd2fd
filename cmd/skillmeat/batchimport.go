package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skillmeat/skillmeat/internal/batch"
	"github.com/skillmeat/skillmeat/internal/collection"
	"github.com/skillmeat/skillmeat/internal/config"
	"github.com/skillmeat/skillmeat/internal/registry"
)

var batchImportCmd = &cobra.Command{
	Use:   "batch-import <type:source[:path[:scope]]>...",
	Short: "Validate and import several artifacts in one pass, non-transactionally",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		autoResolve, _ := cmd.Flags().GetBool("auto-resolve-conflicts")

		var items []batch.Item
		for _, spec := range args {
			parts := strings.SplitN(spec, ":", 4)
			if len(parts) < 2 {
				return fmt.Errorf("invalid item spec %q, want type:source[:path[:scope]]", spec)
			}
			item := batch.Item{
				Type:   registry.ArtifactType(parts[0]),
				Source: parts[1],
				Scope:  "user",
			}
			if len(parts) >= 3 {
				item.Path = parts[2]
			}
			if len(parts) == 4 && parts[3] != "" {
				item.Scope = parts[3]
			}
			items = append(items, item)
		}

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		coll := collection.Open(config.GetString("collection-root"))
		result, err := batch.Import(ctx, store, coll, items, autoResolve)
		if err != nil {
			return fmt.Errorf("batch import: %w", err)
		}

		fmt.Printf("requested %d, imported %d, failed %d (%s)\n",
			result.TotalRequested, result.TotalImported, result.TotalFailed, result.Duration)
		for _, item := range result.Items {
			if item.Success {
				fmt.Printf("  ok   %s: %s\n", item.ArtifactID, item.Message)
				continue
			}
			fmt.Printf("  fail %s: %s\n", item.ArtifactID, item.Error)
		}
		if result.TotalFailed > 0 {
			return fmt.Errorf("%d of %d artifacts failed to import", result.TotalFailed, result.TotalRequested)
		}
		return nil
	},
}

func init() {
	batchImportCmd.Flags().Bool("auto-resolve-conflicts", false, "skip duplicates and sibling validation failures instead of failing the whole batch")
}
