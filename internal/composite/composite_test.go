package composite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/skillmeat/skillmeat/internal/cache/sqlite"
	"github.com/skillmeat/skillmeat/internal/registry"
)

func setupStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestImportCreatesCompositeAndChildren(t *testing.T) {
	store := setupStore(t)
	dir := t.TempDir()

	skillPath := filepath.Join(dir, "skills", "canvas")
	writeFile(t, filepath.Join(skillPath, "SKILL.md"), "---\nname: canvas\n---\nBody.\n")
	commandPath := filepath.Join(dir, "commands", "deploy")
	writeFile(t, filepath.Join(commandPath, "COMMAND.md"), "---\nname: deploy\n---\nBody.\n")

	result, err := Import(context.Background(), store, Request{
		Slug:          "My Plugin",
		CompositeType: "plugin",
		Children: []Child{
			{Type: registry.TypeSkill, Name: "canvas", Path: skillPath},
			{Type: registry.TypeCommand, Name: "deploy", Path: commandPath},
		},
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.CompositeID != "composite:my-plugin" {
		t.Errorf("CompositeID = %q", result.CompositeID)
	}
	if len(result.Memberships) != 2 {
		t.Fatalf("Memberships = %+v", result.Memberships)
	}

	members, err := store.CompositeMemberships(context.Background(), result.CompositeID)
	if err != nil || len(members) != 2 {
		t.Fatalf("CompositeMemberships = %+v, %v", members, err)
	}
}

func TestImportRejectsEmptyChildren(t *testing.T) {
	store := setupStore(t)
	_, err := Import(context.Background(), store, Request{Slug: "empty"})
	if err == nil {
		t.Fatal("expected error for empty children")
	}
}

func TestImportRollsBackOnChildHashFailure(t *testing.T) {
	store := setupStore(t)
	dir := t.TempDir()
	skillPath := filepath.Join(dir, "skills", "canvas")
	writeFile(t, filepath.Join(skillPath, "SKILL.md"), "---\nname: canvas\n---\nBody.\n")

	_, err := Import(context.Background(), store, Request{
		Slug: "broken-plugin",
		Children: []Child{
			{Type: registry.TypeSkill, Name: "canvas", Path: skillPath},
			{Type: registry.TypeCommand, Name: "missing", Path: filepath.Join(dir, "does-not-exist")},
		},
	})
	if err == nil {
		t.Fatal("expected error for missing child path")
	}

	got, err := store.GetArtifact(context.Background(), result0ArtifactID(t, store, "canvas"))
	if err == nil && got != nil {
		t.Errorf("partial artifact should not have been committed: %+v", got)
	}
}

func result0ArtifactID(t *testing.T, store *sqlite.Store, name string) string {
	t.Helper()
	a, err := store.FindArtifactByNameType(context.Background(), name, registry.TypeSkill)
	if err != nil {
		t.Fatalf("FindArtifactByNameType: %v", err)
	}
	if a == nil {
		return "nonexistent"
	}
	return a.ID
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"My Plugin":     "my-plugin",
		"  Weird!! Name": "weird-name",
		"":              "composite",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
