package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/skillmeat/skillmeat/internal/cache/sqlite"
	"github.com/skillmeat/skillmeat/internal/collection"
	"github.com/skillmeat/skillmeat/internal/contenthash"
	"github.com/skillmeat/skillmeat/internal/dedup"
	"github.com/skillmeat/skillmeat/internal/discovery"
	"github.com/skillmeat/skillmeat/internal/registry"
)

var discoverCmd = &cobra.Command{
	Use:   "discover [path]",
	Short: "Scan a directory for artifacts and import new ones into the registry",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		basePath := "."
		if len(args) == 1 {
			basePath = args[0]
		}
		mode, _ := cmd.Flags().GetString("mode")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		projectPath, _ := cmd.Flags().GetString("project")

		ctx := context.Background()
		scanner := discovery.NewScanner(basePath, discovery.ScanMode(mode))
		result, err := scanner.Discover(ctx)
		if err != nil {
			return fmt.Errorf("discover: %w", err)
		}

		fmt.Printf("scanned %d directories, found %d artifacts, skipped %d, %d errors\n",
			result.Stats.DirectoriesScanned, result.Stats.ArtifactsFound, result.Stats.SkippedUnsupported, result.Stats.Errors)
		for _, scanErr := range result.Errors {
			fmt.Printf("  error: %s\n", scanErr)
		}

		coll := collection.Open(basePath)
		collectionKeys, err := existenceKeysFromManifest(coll)
		if err != nil {
			return fmt.Errorf("load collection manifest for pre-scan: %w", err)
		}
		projectKeys := map[string]bool{}
		if projectPath != "" {
			projectResult, err := discovery.NewScanner(projectPath, discovery.ScanProject).Discover(ctx)
			if err != nil {
				return fmt.Errorf("scan project for pre-scan: %w", err)
			}
			for _, a := range projectResult.Artifacts {
				projectKeys[discovery.ArtifactKey(a.Type, a.Name)] = true
			}
		}
		candidates := discovery.CheckExistence(result.Artifacts, collectionKeys, projectKeys)

		if dryRun {
			for _, c := range candidates {
				if !c.Importable {
					fmt.Printf("  already present (%s), skipping %s:%s\n", c.Existence, c.Type, c.Name)
					continue
				}
				fmt.Printf("  would import %s:%s from %s\n", c.Type, c.Name, c.Path)
			}
			return nil
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		imported := 0
		for _, c := range candidates {
			if !c.Importable {
				fmt.Printf("  already present (%s), skipping %s:%s\n", c.Existence, c.Type, c.Name)
				continue
			}
			a := c.Artifact
			id, decision, err := importArtifact(ctx, store, a)
			if err != nil {
				fmt.Printf("  skip %s:%s: %v\n", a.Type, a.Name, err)
				continue
			}
			if err := coll.Mutate(func(m *collection.Manifest) error {
				for i, entry := range m.Artifacts {
					if entry.ID == id {
						m.Artifacts[i].Path = a.Path
						m.Artifacts[i].Version = ""
						return nil
					}
				}
				m.Artifacts = append(m.Artifacts, collection.ArtifactEntry{
					ID: id, Type: string(a.Type), Name: a.Name, Path: a.Path, Tags: a.Tags,
				})
				return nil
			}); err != nil {
				fmt.Printf("  warn: manifest update failed for %s:%s: %v\n", a.Type, a.Name, err)
			}
			fmt.Printf("  imported %s:%s (%s)\n", a.Type, a.Name, decision)
			imported++
		}
		fmt.Printf("imported %d/%d discovered artifacts\n", imported, len(result.Artifacts))
		return nil
	},
}

func init() {
	discoverCmd.Flags().String("mode", "auto", "scan mode: auto, project, or collection")
	discoverCmd.Flags().Bool("dry-run", false, "list discovered artifacts without importing")
	discoverCmd.Flags().String("project", "", "also scan this project path for the pre-scan existence check")
}

// existenceKeysFromManifest builds the "<type>:<name>" key set of every
// artifact already recorded in coll's manifest, for discovery's pre-scan
// existence check.
func existenceKeysFromManifest(coll *collection.Store) (map[string]bool, error) {
	m, err := coll.Load()
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(m.Artifacts))
	for _, entry := range m.Artifacts {
		keys[discovery.ArtifactKey(registry.ArtifactType(entry.Type), entry.Name)] = true
	}
	return keys, nil
}

// importArtifact hashes a, resolves deduplication against the registry,
// and performs whichever write the decision calls for.
func importArtifact(ctx context.Context, store *sqlite.Store, a discovery.Artifact) (artifactID string, decision dedup.Decision, err error) {
	hash, err := contenthash.Hash(a.Path)
	if err != nil {
		return "", "", fmt.Errorf("hash %s: %w", a.Path, err)
	}

	result, err := dedup.Resolve(ctx, store, a.Name, a.Type, hash, nil)
	if err != nil {
		return "", "", fmt.Errorf("resolve deduplication: %w", err)
	}

	switch result.Decision {
	case dedup.LinkExisting:
		return result.ArtifactID, result.Decision, nil
	case dedup.CreateNewVersion:
		latest, err := store.Latest(ctx, result.ArtifactID)
		if err != nil {
			return "", "", fmt.Errorf("load latest version: %w", err)
		}
		lineage := append(append([]string{}, latest.VersionLineage...), hash)
		if _, err := store.AppendVersion(ctx, &registry.ArtifactVersion{
			ID: uuid.NewString(), ArtifactID: result.ArtifactID, ContentHash: hash, ParentHash: latest.ContentHash,
			ChangeOrigin: registry.OriginSync, VersionLineage: lineage, CreatedAt: time.Now().UTC(),
		}); err != nil {
			return "", "", fmt.Errorf("append version: %w", err)
		}
		return result.ArtifactID, result.Decision, nil
	default:
		artifactID := uuid.NewString()
		art, err := store.UpsertArtifact(ctx, &registry.Artifact{
			ID: artifactID, Type: a.Type, Name: a.Name, ProjectID: registry.SentinelProjectID,
		})
		if err != nil {
			return "", "", fmt.Errorf("create artifact: %w", err)
		}
		if _, err := store.AppendVersion(ctx, &registry.ArtifactVersion{
			ID: uuid.NewString(), ArtifactID: art.ID, ContentHash: hash, ChangeOrigin: registry.OriginSync,
			VersionLineage: []string{hash}, CreatedAt: time.Now().UTC(),
		}); err != nil {
			return "", "", fmt.Errorf("append root version: %w", err)
		}
		return art.ID, result.Decision, nil
	}
}
