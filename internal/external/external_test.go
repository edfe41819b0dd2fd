package external

import "testing"

func TestParseSourceSpecShorthand(t *testing.T) {
	ref, err := ParseSourceSpec("anthropics/skills/canvas-design@v1.2.0")
	if err != nil {
		t.Fatalf("ParseSourceSpec: %v", err)
	}
	if ref.Owner != "anthropics" || ref.Repo != "skills" || ref.Path != "canvas-design" || ref.Version != "v1.2.0" {
		t.Errorf("ref = %+v", ref)
	}
}

func TestParseSourceSpecShorthandNoVersion(t *testing.T) {
	ref, err := ParseSourceSpec("anthropics/skills")
	if err != nil {
		t.Fatalf("ParseSourceSpec: %v", err)
	}
	if ref.Owner != "anthropics" || ref.Repo != "skills" || ref.Path != "" || ref.Version != "" {
		t.Errorf("ref = %+v", ref)
	}
}

func TestParseSourceSpecGitHubTreeURL(t *testing.T) {
	ref, err := ParseSourceSpec("https://github.com/anthropics/skills/tree/main/canvas-design")
	if err != nil {
		t.Fatalf("ParseSourceSpec: %v", err)
	}
	if ref.Owner != "anthropics" || ref.Repo != "skills" || ref.Version != "main" || ref.Path != "canvas-design" {
		t.Errorf("ref = %+v", ref)
	}
}

func TestParseSourceSpecGitHubBlobURLWithVersionOverride(t *testing.T) {
	ref, err := ParseSourceSpec("https://github.com/anthropics/skills/blob/main/README.md@v2")
	if err != nil {
		t.Fatalf("ParseSourceSpec: %v", err)
	}
	if ref.Version != "v2" {
		t.Errorf("Version = %q, want v2 (explicit suffix overrides url ref)", ref.Version)
	}
}

func TestParseSourceSpecRejectsMissingRepo(t *testing.T) {
	if _, err := ParseSourceSpec("justowner"); err == nil {
		t.Fatal("expected error for missing repo segment")
	}
}

func TestParseSourceSpecRejectsEmpty(t *testing.T) {
	if _, err := ParseSourceSpec(""); err == nil {
		t.Fatal("expected error for empty spec")
	}
}
