package tracker

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLedgerPutLoadRemove(t *testing.T) {
	dir := t.TempDir()
	l := Open(dir)

	records, err := l.Load()
	if err != nil || len(records) != 0 {
		t.Fatalf("Load empty = %v, %v", records, err)
	}

	rec := Record{ArtifactUUID: "art-1", ArtifactType: "skill", ArtifactName: "canvas", ContentHash: "hash-a", ArtifactPath: filepath.ToSlash(filepath.Join(".claude", "skills/canvas/SKILL.md")), DeployedAt: time.Now().UTC()}
	if err := l.Put(rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	records, err = l.Load()
	if err != nil || len(records) != 1 || records[0].ContentHash != "hash-a" {
		t.Fatalf("Load after Put = %+v, %v", records, err)
	}
	if records[0].DeploymentProfileID != "claude_code" || records[0].Platform != "claude_code" || records[0].ProfileRootDir != ".claude" {
		t.Errorf("legacy backfill = %+v, want claude_code/.claude inferred from artifact_path", records[0])
	}

	rec.ContentHash = "hash-b"
	if err := l.Put(rec); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	records, err = l.Load()
	if err != nil || len(records) != 1 || records[0].ContentHash != "hash-b" {
		t.Fatalf("Load after replace = %+v, %v", records, err)
	}

	if err := l.Remove(rec.ArtifactPath); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	records, err = l.Load()
	if err != nil || len(records) != 0 {
		t.Fatalf("Load after Remove = %+v, %v", records, err)
	}
}

func TestLedgerMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	l := Open(filepath.Join(dir, "nested"))
	records, err := l.Load()
	if err != nil || len(records) != 0 {
		t.Fatalf("Load = %v, %v, want empty nil error", records, err)
	}
}
