package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillmeat/skillmeat/internal/cache/sqlite"
	"github.com/skillmeat/skillmeat/internal/config"
	"github.com/skillmeat/skillmeat/internal/deploy"
	"github.com/skillmeat/skillmeat/internal/deployset"
	"github.com/skillmeat/skillmeat/internal/profile"
	"github.com/skillmeat/skillmeat/internal/tracker"
)

var deployCmd = &cobra.Command{
	Use:   "deploy <project-root> <platform>",
	Short: "Resolve a deployment set and materialize it into a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectRoot, platform := args[0], args[1]
		setID, _ := cmd.Flags().GetString("set")
		overwrite, _ := cmd.Flags().GetBool("overwrite")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		profileRow, err := store.GetDeploymentProfile(ctx, "", platform)
		if err != nil {
			return fmt.Errorf("load deployment profile %q: %w", platform, err)
		}
		if profileRow == nil {
			return fmt.Errorf("no deployment profile registered for platform %q", platform)
		}
		prof := profile.FromRow(profileRow)

		resolver := &deployset.Resolver{DepthLimit: deployset.DefaultDepthLimit}
		artifactIDs, err := resolver.Resolve(ctx, store, setID)
		if err != nil {
			return fmt.Errorf("resolve deployment set %q: %w", setID, err)
		}
		fmt.Printf("resolved %d artifact(s) for set %q on platform %q\n", len(artifactIDs), setID, platform)

		ledger := tracker.Open(filepath.Join(projectRoot, prof.RootDir))

		mat := &deploy.Materializer{
			ProjectRoot: projectRoot,
			Profile:     prof,
			Vars: deploy.Variables{
				ProjectName: filepath.Base(projectRoot),
				Date:        time.Now().UTC().Format("2006-01-02"),
			},
			Ledger: ledger,
			Store:  store,
		}

		collectionRoot := config.GetString("collection-root")
		requests, err := buildDeployRequests(ctx, store, collectionRoot, artifactIDs, overwrite, dryRun)
		if err != nil {
			return err
		}

		outcomes := mat.DeployBatch(ctx, requests, concurrency)
		written, skipped, failed := 0, 0, 0
		for _, o := range outcomes {
			if o.Err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "  failed %s: %v\n", o.ArtifactID, o.Err)
				continue
			}
			written += len(o.Written)
			skipped += len(o.Skipped)
		}
		fmt.Printf("deployed: %d file(s) written, %d file(s) skipped, %d artifact(s) failed\n", written, skipped, failed)
		return nil
	},
}

func init() {
	deployCmd.Flags().String("set", "", "deployment set id to resolve and deploy")
	deployCmd.Flags().Bool("overwrite", false, "overwrite files that already exist at the target path")
	deployCmd.Flags().Bool("dry-run", false, "report what would be written without touching disk")
	deployCmd.Flags().Int("concurrency", 4, "number of artifacts to materialize concurrently")
	deployCmd.MarkFlagRequired("set")
}

// buildDeployRequests loads each resolved artifact's latest version and
// its on-disk file(s), rooted at <collectionRoot>/<type>s/<name>/, into
// deploy.Request values.
func buildDeployRequests(ctx context.Context, store *sqlite.Store, collectionRoot string, artifactIDs []string, overwrite, dryRun bool) ([]deploy.Request, error) {
	requests := make([]deploy.Request, 0, len(artifactIDs))
	for _, id := range artifactIDs {
		art, err := store.GetArtifact(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load artifact %s: %w", id, err)
		}
		if art == nil {
			continue
		}
		latest, err := store.Latest(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load latest version for %s: %w", id, err)
		}
		collectionSHA := ""
		if latest != nil {
			collectionSHA = latest.ContentHash
		}

		artifactDir := filepath.Join(collectionRoot, string(art.Type)+"s", art.Name)
		files, err := loadArtifactFiles(artifactDir)
		if err != nil {
			return nil, fmt.Errorf("load files for %s:%s: %w", art.Type, art.Name, err)
		}

		requests = append(requests, deploy.Request{
			ArtifactID:     art.ID,
			ArtifactType:   string(art.Type),
			Name:           art.Name,
			CollectionSHA:  collectionSHA,
			FromCollection: collectionRoot,
			Files:          files,
			Overwrite:      overwrite,
			DryRun:         dryRun,
		})
	}
	return requests, nil
}

// loadArtifactFiles reads every regular file under artifactDir into a
// deploy.File whose RelPath is relative to artifactDir itself.
func loadArtifactFiles(artifactDir string) ([]deploy.File, error) {
	var files []deploy.File
	err := filepath.Walk(artifactDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(artifactDir, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, deploy.File{RelPath: rel, Content: content})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
