package contenthash

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestHashFileDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SKILL.md")
	writeFile(t, path, "hello world")

	h1, err := Hash(path)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := Hash(path)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Errorf("expected stable hash, got %s then %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("expected 64-hex hash, got length %d", len(h1))
	}
}

func TestHashDirectoryOrderIndependent(t *testing.T) {
	dirA := t.TempDir()
	writeFile(t, filepath.Join(dirA, "a.md"), "alpha")
	writeFile(t, filepath.Join(dirA, "b.md"), "beta")

	dirB := t.TempDir()
	// Same logical content, files created in the opposite order.
	writeFile(t, filepath.Join(dirB, "b.md"), "beta")
	writeFile(t, filepath.Join(dirB, "a.md"), "alpha")

	hA, err := Hash(dirA)
	if err != nil {
		t.Fatalf("Hash dirA: %v", err)
	}
	hB, err := Hash(dirB)
	if err != nil {
		t.Fatalf("Hash dirB: %v", err)
	}
	if hA != hB {
		t.Errorf("expected order-independent hash, got %s vs %s", hA, hB)
	}
}

func TestHashExcludesJunkFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "SKILL.md"), "content")
	base, err := Hash(dir)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	writeFile(t, filepath.Join(dir, ".DS_Store"), "junk")
	writeFile(t, filepath.Join(dir, "notes.tmp"), "junk")
	writeFile(t, filepath.Join(dir, "node_modules", "pkg.json"), "{}")

	after, err := Hash(dir)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if base != after {
		t.Errorf("expected excluded entries to not affect hash, got %s vs %s", base, after)
	}
}

func TestHashChangesOnContentChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SKILL.md")
	writeFile(t, path, "version 1")
	h1, _ := Hash(dir)

	writeFile(t, path, "version 2")
	h2, _ := Hash(dir)

	if h1 == h2 {
		t.Errorf("expected hash to change when content changes")
	}
}

func TestHashEmptyDirectoryIsStable(t *testing.T) {
	dir := t.TempDir()
	h1, err := Hash(dir)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == "" {
		t.Errorf("expected non-empty hash for empty directory")
	}
	h2, _ := Hash(dir)
	if h1 != h2 {
		t.Errorf("expected stable hash for empty directory")
	}
}

func TestHashMissingPath(t *testing.T) {
	_, err := Hash(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatalf("expected error for missing path")
	}
}

func TestDigestWrapsHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SKILL.md")
	writeFile(t, path, "hello")

	h, err := Hash(path)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	d, err := Digest(path)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if d.Encoded() != h {
		t.Errorf("expected digest encoded value %s to equal hash %s", d.Encoded(), h)
	}
}
