package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/skillmeat/skillmeat/internal/cache/sqlite"
	"github.com/skillmeat/skillmeat/internal/collection"
)

// runCLI executes rootCmd with args once, the way a real invocation would.
func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestDiscoverImportsArtifactIntoRegistryAndManifest(t *testing.T) {
	collectionRoot := t.TempDir()
	dbPath := filepath.Join(collectionRoot, ".skillmeat", "cache.db")

	skillDir := filepath.Join(collectionRoot, "artifacts", "skills", "canvas-design")
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte("---\nname: canvas-design\n---\nHello.\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := runCLI(t, "--collection-root", collectionRoot, "--db", dbPath, "discover", collectionRoot); err != nil {
		t.Fatalf("discover: %v", err)
	}

	store, err := sqlite.New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	defer store.Close()

	art, err := store.FindArtifactByNameType(context.Background(), "canvas-design", "skill")
	if err != nil {
		t.Fatalf("FindArtifactByNameType: %v", err)
	}
	if art == nil {
		t.Fatal("expected the discovered skill to be registered")
	}

	m, err := collection.Open(collectionRoot).Load()
	if err != nil {
		t.Fatalf("Load manifest: %v", err)
	}
	if len(m.Artifacts) != 1 || m.Artifacts[0].Name != "canvas-design" {
		t.Errorf("manifest artifacts = %+v, want one entry for canvas-design", m.Artifacts)
	}
}

func TestProfileRegisterAndDeploysetCreate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	if err := runCLI(t, "--db", dbPath, "profile", "register", "claude-code", ".claude", "skill"); err != nil {
		t.Fatalf("profile register: %v", err)
	}
	if err := runCLI(t, "--db", dbPath, "deployset", "create", "demo", "all-skills"); err != nil {
		t.Fatalf("deployset create: %v", err)
	}

	store, err := sqlite.New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	defer store.Close()

	row, err := store.GetDeploymentProfile(context.Background(), "", "claude-code")
	if err != nil {
		t.Fatalf("GetDeploymentProfile: %v", err)
	}
	if row == nil || row.RootDir != ".claude" {
		t.Errorf("GetDeploymentProfile = %+v, want RootDir .claude", row)
	}
}
