package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/skillmeat/skillmeat/internal/registry"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "skillmeat.db")
	store, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUpsertAndGetArtifact(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := &registry.Artifact{
		ID:              "art-1",
		Type:            registry.TypeSkill,
		Name:            "canvas",
		TargetPlatforms: []string{"claude-code"},
	}
	if _, err := store.UpsertArtifact(ctx, a); err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}

	got, err := store.GetArtifact(ctx, "art-1")
	if err != nil {
		t.Fatalf("GetArtifact: %v", err)
	}
	if got == nil || got.Name != "canvas" || got.Type != registry.TypeSkill {
		t.Fatalf("GetArtifact = %+v", got)
	}
	if len(got.TargetPlatforms) != 1 || got.TargetPlatforms[0] != "claude-code" {
		t.Errorf("TargetPlatforms = %v", got.TargetPlatforms)
	}
}

func TestUpsertArtifactIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := &registry.Artifact{ID: "art-1", Type: registry.TypeSkill, Name: "canvas"}
	first, err := store.UpsertArtifact(ctx, a)
	if err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}
	second, err := store.UpsertArtifact(ctx, &registry.Artifact{ID: "art-1", Type: registry.TypeSkill, Name: "renamed"})
	if err != nil {
		t.Fatalf("UpsertArtifact second: %v", err)
	}
	if second.Name != first.Name {
		t.Errorf("UpsertArtifact should return the existing row unchanged, got name %q", second.Name)
	}
}

func TestFindArtifactByNameTypeCaseInsensitive(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.UpsertArtifact(ctx, &registry.Artifact{ID: "art-1", Type: registry.TypeSkill, Name: "Canvas"}); err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}

	got, err := store.FindArtifactByNameType(ctx, "canvas", registry.TypeSkill)
	if err != nil {
		t.Fatalf("FindArtifactByNameType: %v", err)
	}
	if got == nil || got.ID != "art-1" {
		t.Fatalf("FindArtifactByNameType = %+v, want art-1", got)
	}

	if got, err := store.FindArtifactByNameType(ctx, "canvas", registry.TypeCommand); err != nil || got != nil {
		t.Errorf("FindArtifactByNameType type mismatch should not match, got %+v, err %v", got, err)
	}
}

func TestAppendVersionIdempotentOnContentHash(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.UpsertArtifact(ctx, &registry.Artifact{ID: "art-1", Type: registry.TypeSkill, Name: "canvas"}); err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}

	v := &registry.ArtifactVersion{ID: "ver-1", ArtifactID: "art-1", ContentHash: "hash-a", ChangeOrigin: registry.OriginDeployment, VersionLineage: []string{"hash-a"}}
	first, err := store.AppendVersion(ctx, v)
	if err != nil {
		t.Fatalf("AppendVersion: %v", err)
	}

	dup := &registry.ArtifactVersion{ID: "ver-2", ArtifactID: "art-1", ContentHash: "hash-a", ChangeOrigin: registry.OriginSync, VersionLineage: []string{"hash-a"}}
	second, err := store.AppendVersion(ctx, dup)
	if err != nil {
		t.Fatalf("AppendVersion dup: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("AppendVersion should be idempotent on content hash, got %q want %q", second.ID, first.ID)
	}

	exists, err := store.Exists(ctx, "hash-a")
	if err != nil || !exists {
		t.Errorf("Exists(hash-a) = %v, %v, want true, nil", exists, err)
	}
}

func TestLatestRootAndChain(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.UpsertArtifact(ctx, &registry.Artifact{ID: "art-1", Type: registry.TypeSkill, Name: "canvas"}); err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}

	base := time.Now().UTC()
	versions := []*registry.ArtifactVersion{
		{ID: "v1", ArtifactID: "art-1", ContentHash: "h1", ChangeOrigin: registry.OriginDeployment, VersionLineage: []string{"h1"}, CreatedAt: base},
		{ID: "v2", ArtifactID: "art-1", ContentHash: "h2", ParentHash: "h1", ChangeOrigin: registry.OriginSync, VersionLineage: []string{"h1", "h2"}, CreatedAt: base.Add(time.Minute)},
		{ID: "v3", ArtifactID: "art-1", ContentHash: "h3", ParentHash: "h2", ChangeOrigin: registry.OriginSync, VersionLineage: []string{"h1", "h2", "h3"}, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, v := range versions {
		if _, err := store.AppendVersion(ctx, v); err != nil {
			t.Fatalf("AppendVersion: %v", err)
		}
	}

	latest, err := store.Latest(ctx, "art-1")
	if err != nil || latest == nil || latest.ContentHash != "h3" {
		t.Fatalf("Latest = %+v, %v, want h3", latest, err)
	}

	root, err := store.Root(ctx, "art-1")
	if err != nil || root == nil || root.ContentHash != "h1" {
		t.Fatalf("Root = %+v, %v, want h1", root, err)
	}

	chain, err := store.Chain(ctx, "art-1")
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(chain) != 3 || chain[0].ContentHash != "h1" || chain[2].ContentHash != "h3" {
		t.Fatalf("Chain = %+v", chain)
	}
}

func TestUpdateArtifactNotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.UpdateArtifact(ctx, &registry.Artifact{ID: "missing"})
	if err == nil {
		t.Fatal("UpdateArtifact on missing id should error")
	}
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx *Store) error {
		_, err := tx.UpsertArtifact(ctx, &registry.Artifact{ID: "art-tx", Type: registry.TypeSkill, Name: "tx-artifact"})
		return err
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	got, err := store.GetArtifact(ctx, "art-tx")
	if err != nil || got == nil {
		t.Fatalf("GetArtifact after commit = %+v, %v", got, err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	wantErr := errBoom
	err := store.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.UpsertArtifact(ctx, &registry.Artifact{ID: "art-rb", Type: registry.TypeSkill, Name: "rollback-artifact"}); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("WithTx err = %v, want %v", err, wantErr)
	}

	got, err := store.GetArtifact(ctx, "art-rb")
	if err != nil {
		t.Fatalf("GetArtifact: %v", err)
	}
	if got != nil {
		t.Errorf("GetArtifact after rollback = %+v, want nil", got)
	}
}
