package frontmatter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFrontmatterAndBody(t *testing.T) {
	raw := []byte("---\nname: canvas\ndescription: draws things\n---\n# Canvas\n\nBody text.\n")
	doc, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m, err := doc.ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if m["name"] != "canvas" {
		t.Errorf("name = %v, want canvas", m["name"])
	}
	if !strings.Contains(doc.Body, "# Canvas") {
		t.Errorf("Body = %q", doc.Body)
	}
}

func TestParseNoFrontmatter(t *testing.T) {
	doc, err := Parse([]byte("just a file with no frontmatter\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m, _ := doc.ToMap()
	if len(m) != 0 {
		t.Errorf("ToMap = %v, want empty", m)
	}
	if doc.Body != "just a file with no frontmatter\n" {
		t.Errorf("Body = %q", doc.Body)
	}
}

func TestSetPreservesUnknownKeys(t *testing.T) {
	raw := []byte("---\nname: canvas\ncustom_field: keep-me\n---\nBody.\n")
	doc, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := doc.Set("version", "2.0.0"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	m, err := doc.ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if m["custom_field"] != "keep-me" {
		t.Errorf("custom_field lost: %v", m)
	}
	if m["version"] != "2.0.0" {
		t.Errorf("version = %v, want 2.0.0", m["version"])
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SKILL.md")
	if err := os.WriteFile(path, []byte("---\nname: canvas\n---\nBody.\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	doc, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := doc.Set("tags", []string{"design", "drawing"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := Write(path, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}

	reread, err := Read(path)
	if err != nil {
		t.Fatalf("Read after write: %v", err)
	}
	m, _ := reread.ToMap()
	tags, ok := m["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Fatalf("tags = %v", m["tags"])
	}
}
