package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/skillmeat/skillmeat/internal/cache/sqlite"
	"github.com/skillmeat/skillmeat/internal/collection"
	"github.com/skillmeat/skillmeat/internal/registry"
)

func setupSyncer(t *testing.T) (*Syncer, string) {
	t.Helper()
	root := t.TempDir()
	store, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return &Syncer{Store: store, Collection: collection.Open(root), Root: root}, root
}

func TestRecoverRebuildsTagsAndGroups(t *testing.T) {
	syncer, root := setupSyncer(t)
	ctx := context.Background()

	skillRel := filepath.Join("skills", "canvas", "SKILL.md")
	if err := os.MkdirAll(filepath.Dir(filepath.Join(root, skillRel)), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, skillRel), []byte("---\nname: canvas\ntags: [productivity]\n---\nBody.\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := syncer.Store.UpsertArtifact(ctx, &registry.Artifact{ID: "art-1", Type: registry.TypeSkill, Name: "canvas"}); err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}

	if err := syncer.Collection.Save(&collection.Manifest{
		Name:           "default",
		TagDefinitions: []collection.TagDefinition{{Slug: "productivity", Name: "Productivity"}},
		Groups:         []collection.Group{{ID: "grp-1", Name: "Writing", Artifacts: []string{"skill:canvas"}}},
		Artifacts:      []collection.ArtifactEntry{{ID: "art-1", Type: "skill", Name: "canvas", Path: skillRel, Tags: []string{"productivity"}}},
	}); err != nil {
		t.Fatalf("Save manifest: %v", err)
	}

	if _, err := syncer.Recover(ctx, "coll-1"); err != nil {
		t.Fatalf("Recover: %v", err)
	}

	ids, err := syncer.Store.ArtifactsByTag(ctx, "productivity")
	if err != nil || len(ids) != 1 || ids[0] != "art-1" {
		t.Fatalf("ArtifactsByTag = %v, %v", ids, err)
	}
	groupMembers, err := syncer.Store.GroupArtifacts(ctx, "grp-1")
	if err != nil || len(groupMembers) != 1 {
		t.Fatalf("GroupArtifacts = %v, %v", groupMembers, err)
	}
}

func TestRecoverIsIdempotent(t *testing.T) {
	syncer, root := setupSyncer(t)
	ctx := context.Background()

	if _, err := syncer.Store.UpsertArtifact(ctx, &registry.Artifact{ID: "art-1", Type: registry.TypeSkill, Name: "canvas"}); err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}
	if err := syncer.Collection.Save(&collection.Manifest{
		Name:           "default",
		TagDefinitions: []collection.TagDefinition{{Slug: "productivity", Name: "Productivity"}},
		Artifacts:      []collection.ArtifactEntry{{ID: "art-1", Type: "skill", Name: "canvas", Tags: []string{"productivity"}}},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_ = root

	if _, err := syncer.Recover(ctx, "coll-1"); err != nil {
		t.Fatalf("Recover first: %v", err)
	}
	if _, err := syncer.Recover(ctx, "coll-1"); err != nil {
		t.Fatalf("Recover second: %v", err)
	}

	ids, err := syncer.Store.ArtifactsByTag(ctx, "productivity")
	if err != nil || len(ids) != 1 {
		t.Fatalf("ArtifactsByTag after double recover = %v, %v", ids, err)
	}
}

func TestDeleteTagCascadesToManifestAndFrontmatter(t *testing.T) {
	syncer, root := setupSyncer(t)
	ctx := context.Background()

	skillRel := filepath.Join("skills", "canvas", "SKILL.md")
	fullPath := filepath.Join(root, skillRel)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(fullPath, []byte("---\nname: canvas\ntags: [productivity]\n---\nBody.\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := syncer.Store.UpsertArtifact(ctx, &registry.Artifact{ID: "art-1", Type: registry.TypeSkill, Name: "canvas"}); err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}
	if err := syncer.Collection.Save(&collection.Manifest{
		TagDefinitions: []collection.TagDefinition{{Slug: "productivity", Name: "Productivity"}},
		Artifacts:      []collection.ArtifactEntry{{ID: "art-1", Type: "skill", Name: "canvas", Path: skillRel, Tags: []string{"productivity"}}},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := syncer.Recover(ctx, "coll-1"); err != nil {
		t.Fatalf("Recover: %v", err)
	}

	if err := syncer.DeleteTag(ctx, "productivity"); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}

	m, err := syncer.Collection.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.TagDefinitions) != 0 {
		t.Errorf("TagDefinitions = %v, want empty", m.TagDefinitions)
	}
	if len(m.Artifacts[0].Tags) != 0 {
		t.Errorf("Artifacts[0].Tags = %v, want empty", m.Artifacts[0].Tags)
	}
}

func TestRecoverSkipsWhenManifestMissing(t *testing.T) {
	syncer, _ := setupSyncer(t)
	ctx := context.Background()

	reason, err := syncer.Recover(ctx, "coll-1")
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if reason != SkippedNoCollectionToml {
		t.Errorf("reason = %q, want %q", reason, SkippedNoCollectionToml)
	}

	got, err := syncer.Store.GetCollectionByName(ctx, "coll-1")
	if err != nil {
		t.Fatalf("GetCollectionByName: %v", err)
	}
	if got != nil {
		t.Errorf("collection row written despite missing manifest: %+v", got)
	}
}

func TestRecoverSkipsWhenManifestUnreadable(t *testing.T) {
	syncer, root := setupSyncer(t)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(root, collection.ManifestFilename), []byte("not [valid toml"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reason, err := syncer.Recover(ctx, "coll-1")
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if reason != SkippedTomlReadError {
		t.Errorf("reason = %q, want %q", reason, SkippedTomlReadError)
	}
}

func TestRecoverSkipsTagsWhenDBAlreadyColored(t *testing.T) {
	syncer, _ := setupSyncer(t)
	ctx := context.Background()

	if err := syncer.Store.UpsertTag(ctx, &sqlite.TagRow{ID: "tag-1", Slug: "productivity", Name: "Hand Edited", Color: "#ff0000"}); err != nil {
		t.Fatalf("UpsertTag: %v", err)
	}
	if err := syncer.Collection.Save(&collection.Manifest{
		Name:           "default",
		TagDefinitions: []collection.TagDefinition{{Slug: "productivity", Name: "Manifest Name", Color: "#00ff00"}},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := syncer.Recover(ctx, "coll-1"); err != nil {
		t.Fatalf("Recover: %v", err)
	}

	// The DB-authoritative tag must survive untouched: a manifest upsert
	// with a differing name/color would otherwise have clobbered it.
	tag, err := syncer.Store.GetTagBySlug(ctx, "productivity")
	if err != nil {
		t.Fatalf("GetTagBySlug: %v", err)
	}
	if tag == nil || tag.Name != "Hand Edited" || tag.Color != "#ff0000" {
		t.Errorf("tag = %+v, want unchanged Hand Edited/#ff0000", tag)
	}
}

func TestRecoverSkipsGroupsWhenCollectionAlreadyHasOne(t *testing.T) {
	syncer, _ := setupSyncer(t)
	ctx := context.Background()

	if err := syncer.Store.UpsertCollection(ctx, &sqlite.CollectionRow{ID: "coll-1", Name: "default", RootPath: "."}); err != nil {
		t.Fatalf("UpsertCollection: %v", err)
	}
	if err := syncer.Store.UpsertGroup(ctx, &sqlite.GroupRow{ID: "grp-existing", CollectionID: "coll-1", Name: "Hand Made"}); err != nil {
		t.Fatalf("UpsertGroup: %v", err)
	}
	if err := syncer.Collection.Save(&collection.Manifest{
		Name:   "default",
		Groups: []collection.Group{{ID: "grp-1", Name: "From Manifest", Artifacts: []string{"skill:canvas"}}},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := syncer.Recover(ctx, "coll-1"); err != nil {
		t.Fatalf("Recover: %v", err)
	}

	members, err := syncer.Store.GroupArtifacts(ctx, "grp-1")
	if err != nil {
		t.Fatalf("GroupArtifacts: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("grp-1 should not have been recovered, got members %v", members)
	}
}

func TestRecoverResolvesGroupMembersByTypeName(t *testing.T) {
	syncer, _ := setupSyncer(t)
	ctx := context.Background()

	if _, err := syncer.Store.UpsertArtifact(ctx, &registry.Artifact{ID: "art-1", Type: registry.TypeSkill, Name: "canvas"}); err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}
	if err := syncer.Collection.Save(&collection.Manifest{
		Name:   "default",
		Groups: []collection.Group{{ID: "grp-1", Name: "Writing", Artifacts: []string{"skill:canvas", "skill:missing"}}},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := syncer.Recover(ctx, "coll-1"); err != nil {
		t.Fatalf("Recover: %v", err)
	}

	members, err := syncer.Store.GroupArtifacts(ctx, "grp-1")
	if err != nil {
		t.Fatalf("GroupArtifacts: %v", err)
	}
	if len(members) != 1 || members[0] != "art-1" {
		t.Errorf("members = %v, want [art-1] (unresolvable member silently skipped)", members)
	}
}
