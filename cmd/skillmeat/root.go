package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skillmeat/skillmeat/internal/cache/sqlite"
	"github.com/skillmeat/skillmeat/internal/config"
	"github.com/skillmeat/skillmeat/internal/obs"
)

var rootCmd = &cobra.Command{
	Use:   "skillmeat",
	Short: "Content-addressed registry and deployment engine for Claude Code artifacts",
	Long: `skillmeat manages a collection of skills, commands, agents, hooks, and
MCP servers as content-addressed artifacts: discovering them on disk,
deduplicating versions, and deploying resolved sets into projects.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.Initialize(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize config: %v\n", err)
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			config.Set("json", true)
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			obs.SetLevel(obs.LevelDebug)
		}
		if root, _ := cmd.Flags().GetString("collection-root"); root != "" {
			config.Set("collection-root", root)
		}
		if db, _ := cmd.Flags().GetString("db"); db != "" {
			config.Set("db", db)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "emit machine-readable JSON output")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().String("collection-root", ".", "collection root directory")
	rootCmd.PersistentFlags().String("db", "", "path to the cache database (default: <collection-root>/.skillmeat/cache.db)")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(deploysetCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(outdatedCmd)
	rootCmd.AddCommand(batchImportCmd)
}

// Execute runs the root command. It seeds a background context so that
// commands reaching for cmd.Context() (the sync watcher, for one) always
// get a live, cancelable context regardless of how cobra's default
// compares across versions.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// openStore opens the cache/registry database at the effective config path.
func openStore(ctx context.Context) (*sqlite.Store, error) {
	dbPath := config.DBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return sqlite.New(ctx, dbPath)
}
