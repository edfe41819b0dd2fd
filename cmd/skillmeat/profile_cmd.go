package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/skillmeat/skillmeat/internal/cache/sqlite"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage deployment profiles",
}

var profileRegisterCmd = &cobra.Command{
	Use:   "register <platform> <root-dir> <supported-type>...",
	Short: "Register a deployment profile for a platform",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		platform, rootDir := args[0], args[1]
		supportedTypes := args[2:]
		projectID, _ := cmd.Flags().GetString("project")

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.UpsertDeploymentProfile(ctx, &sqlite.DeploymentProfileRow{
			ID:              uuid.NewString(),
			ProjectID:       projectID,
			Platform:        platform,
			RootDir:         rootDir,
			ArtifactPathMap: map[string]string{},
			ConfigFilenames: []string{},
			ContextPrefixes: []string{},
			SupportedTypes:  supportedTypes,
		}); err != nil {
			return fmt.Errorf("register deployment profile: %w", err)
		}
		fmt.Printf("registered profile %q rooted at %q\n", platform, rootDir)
		return nil
	},
}

func init() {
	profileRegisterCmd.Flags().String("project", "", "project id this profile belongs to (empty for the default project)")
	profileCmd.AddCommand(profileRegisterCmd)
}
