package profile

import (
	"path/filepath"
	"testing"

	"github.com/skillmeat/skillmeat/internal/errs"
)

func testProfile() *Profile {
	return &Profile{
		Platform:        "claude-code",
		RootDir:         ".claude",
		ArtifactPathMap: map[string]string{"skill": "skills"},
		SupportedTypes:  []string{"skill", "command"},
	}
}

func TestTargetPathUsesOverride(t *testing.T) {
	p := testProfile()
	got, err := p.TargetPath("/project", "skill", "canvas", "SKILL.md")
	if err != nil {
		t.Fatalf("TargetPath: %v", err)
	}
	want := filepath.Join("/project", ".claude", "skills", "canvas", "SKILL.md")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTargetPathFallsBackToPluralType(t *testing.T) {
	p := testProfile()
	got, err := p.TargetPath("/project", "command", "deploy", "COMMAND.md")
	if err != nil {
		t.Fatalf("TargetPath: %v", err)
	}
	want := filepath.Join("/project", ".claude", "commands", "deploy", "COMMAND.md")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTargetPathRejectsTraversal(t *testing.T) {
	p := testProfile()
	_, err := p.TargetPath("/project", "skill", "canvas", "../../etc/passwd")
	if !errs.Is(err, errs.PathTraversal) {
		t.Fatalf("err = %v, want PathTraversal", err)
	}
}

func TestSupports(t *testing.T) {
	p := testProfile()
	if !p.Supports("skill") {
		t.Error("Supports(skill) = false, want true")
	}
	if p.Supports("hook") {
		t.Error("Supports(hook) = true, want false")
	}
}
