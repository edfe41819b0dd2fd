package deploy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/skillmeat/skillmeat/internal/cache/sqlite"
	"github.com/skillmeat/skillmeat/internal/contenthash"
	"github.com/skillmeat/skillmeat/internal/profile"
	"github.com/skillmeat/skillmeat/internal/registry"
	"github.com/skillmeat/skillmeat/internal/tracker"
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

func testMaterializer(t *testing.T) (*Materializer, string) {
	t.Helper()
	root := t.TempDir()
	p := &profile.Profile{RootDir: ".claude", ArtifactPathMap: map[string]string{"skill": "skills"}}
	m := &Materializer{
		ProjectRoot: root,
		Profile:     p,
		Vars:        Variables{ProjectName: "Acme", Author: "Dana"},
		Ledger:      tracker.Open(filepath.Join(root, ".claude")),
	}
	return m, root
}

func TestSubstituteReplacesWhitelistedTokens(t *testing.T) {
	content := []byte("Welcome to {{PROJECT_NAME}}, built by {{AUTHOR}}. {{UNKNOWN_TOKEN}} stays.")
	got := Substitute(content, Variables{ProjectName: "Acme", Author: "Dana"})
	want := "Welcome to Acme, built by Dana. {{UNKNOWN_TOKEN}} stays."
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDeployWritesFileAndLedger(t *testing.T) {
	m, root := testMaterializer(t)
	req := Request{
		ArtifactID: "art-1", ArtifactType: "skill", Name: "canvas", CollectionSHA: "hash-a",
		Files: []File{{RelPath: "SKILL.md", Content: []byte("Hello {{PROJECT_NAME}}")}},
	}

	out := m.Deploy(context.Background(), req)
	if out.Err != nil {
		t.Fatalf("Deploy: %v", out.Err)
	}
	if len(out.Written) != 1 {
		t.Fatalf("Written = %v", out.Written)
	}

	target := filepath.Join(root, ".claude", "skills", "canvas", "SKILL.md")
	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(content) != "Hello Acme" {
		t.Errorf("content = %q", content)
	}

	records, err := m.Ledger.Load()
	if err != nil || len(records) != 1 {
		t.Fatalf("ledger records = %+v, %v", records, err)
	}
	wantHash := contenthash.HashBytes([]byte("Hello Acme"))
	if records[0].ContentHash != wantHash {
		t.Errorf("ContentHash = %q, want hash of materialized content %q", records[0].ContentHash, wantHash)
	}
	if records[0].CollectionSHA != "hash-a" {
		t.Errorf("CollectionSHA = %q, want %q", records[0].CollectionSHA, "hash-a")
	}
}

func TestDeploySkipsExistingWithoutOverwrite(t *testing.T) {
	m, root := testMaterializer(t)
	target := filepath.Join(root, ".claude", "skills", "canvas", "SKILL.md")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(target, []byte("existing content"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	req := Request{
		ArtifactID: "art-1", ArtifactType: "skill", Name: "canvas",
		Files: []File{{RelPath: "SKILL.md", Content: []byte("new content")}},
	}
	out := m.Deploy(context.Background(), req)
	if out.Err != nil {
		t.Fatalf("Deploy: %v", out.Err)
	}
	if len(out.Skipped) != 1 || len(out.Written) != 0 {
		t.Fatalf("out = %+v, want one skipped file", out)
	}

	content, _ := os.ReadFile(target)
	if string(content) != "existing content" {
		t.Errorf("content was overwritten: %q", content)
	}
}

func TestDeployDryRunWritesNothing(t *testing.T) {
	m, root := testMaterializer(t)
	req := Request{
		ArtifactID: "art-1", ArtifactType: "skill", Name: "canvas", DryRun: true,
		Files: []File{{RelPath: "SKILL.md", Content: []byte("content")}},
	}
	out := m.Deploy(context.Background(), req)
	if out.Err != nil {
		t.Fatalf("Deploy: %v", out.Err)
	}
	if len(out.Written) != 1 {
		t.Fatalf("Written = %v, want one planned path", out.Written)
	}
	target := filepath.Join(root, ".claude", "skills", "canvas", "SKILL.md")
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("dry run should not create %s", target)
	}
}

func TestDeployBatchCapturesPerArtifactErrors(t *testing.T) {
	m, _ := testMaterializer(t)
	requests := []Request{
		{ArtifactID: "art-ok", ArtifactType: "skill", Name: "canvas", Files: []File{{RelPath: "SKILL.md", Content: []byte("ok")}}},
		{ArtifactID: "art-bad", ArtifactType: "skill", Name: "evil", Files: []File{{RelPath: "../../../etc/passwd", Content: []byte("bad")}}},
	}
	outcomes := m.DeployBatch(context.Background(), requests, 2)
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	var gotErr bool
	for _, o := range outcomes {
		if o.ArtifactID == "art-bad" && o.Err != nil {
			gotErr = true
		}
		if o.ArtifactID == "art-ok" && o.Err != nil {
			t.Errorf("art-ok should not error: %v", o.Err)
		}
	}
	if !gotErr {
		t.Error("expected art-bad to fail path traversal check")
	}
}

func TestDeployAppendsDeploymentVersionOnce(t *testing.T) {
	m, _ := testMaterializer(t)
	store := setupStore(t)
	m.Store = store
	ctx := context.Background()

	if _, err := store.UpsertArtifact(ctx, &registry.Artifact{ID: "art-1", Type: registry.TypeSkill, Name: "canvas"}); err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}

	req := Request{
		ArtifactID: "art-1", ArtifactType: "skill", Name: "canvas",
		Files: []File{{RelPath: "SKILL.md", Content: []byte("Hello {{PROJECT_NAME}}")}},
	}

	if out := m.Deploy(ctx, req); out.Err != nil {
		t.Fatalf("Deploy: %v", out.Err)
	}

	wantHash := contenthash.HashBytes([]byte("Hello Acme"))
	latest, err := store.Latest(ctx, "art-1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.ContentHash != wantHash || latest.ChangeOrigin != registry.OriginDeployment || latest.ParentHash != "" {
		t.Fatalf("latest = %+v, want a root deployment version with hash %q", latest, wantHash)
	}

	records, err := m.Ledger.Load()
	if err != nil || len(records) != 1 {
		t.Fatalf("ledger = %+v, %v", records, err)
	}
	if len(records[0].VersionLineage) != 1 || records[0].VersionLineage[0] != wantHash {
		t.Errorf("VersionLineage = %v, want [%q]", records[0].VersionLineage, wantHash)
	}

	// Redeploying unchanged content must not append a second version row.
	if out := m.Deploy(ctx, Request{
		ArtifactID: "art-1", ArtifactType: "skill", Name: "canvas", Overwrite: true,
		Files: []File{{RelPath: "SKILL.md", Content: []byte("Hello {{PROJECT_NAME}}")}},
	}); out.Err != nil {
		t.Fatalf("redeploy: %v", out.Err)
	}
	again, err := store.Latest(ctx, "art-1")
	if err != nil {
		t.Fatalf("Latest after redeploy: %v", err)
	}
	if again.ID != latest.ID {
		t.Errorf("redeploy with unchanged content created a new version row: %+v", again)
	}
}
