// Package profile resolves deployment-profile-aware target paths: given
// an artifact's type and relative path within a collection, compute
// where it lands inside a project's platform-specific root (e.g.
// .claude/ for claude-code), honoring any per-type path override and
// rejecting traversal outside the profile root.
package profile

import (
	"path/filepath"
	"strings"

	"github.com/skillmeat/skillmeat/internal/cache/sqlite"
	"github.com/skillmeat/skillmeat/internal/errs"
)

// Profile is the resolved, in-memory shape of a deployment_profiles row.
type Profile struct {
	ID              string
	Platform        string
	RootDir         string // e.g. ".claude"
	ArtifactPathMap map[string]string
	ConfigFilenames []string
	ContextPrefixes []string
	SupportedTypes  []string
}

// FromRow adapts a cache row into a Profile.
func FromRow(row *sqlite.DeploymentProfileRow) *Profile {
	if row == nil {
		return nil
	}
	return &Profile{
		ID:              row.ID,
		Platform:        row.Platform,
		RootDir:         row.RootDir,
		ArtifactPathMap: row.ArtifactPathMap,
		ConfigFilenames: row.ConfigFilenames,
		ContextPrefixes: row.ContextPrefixes,
		SupportedTypes:  row.SupportedTypes,
	}
}

// knownProfileRoots is the closed set of profile root directory names a
// source path might already carry as a leading segment, per spec §6's
// recognized profile roots.
var knownProfileRoots = map[string]bool{
	".claude": true,
	".codex":  true,
	".gemini": true,
	".cursor": true,
}

// stripKnownProfileRoot removes a leading path segment that matches one
// of the well-known profile roots, so a path carried over from another
// platform's deployment (or recorded verbatim in a legacy ledger) isn't
// double-rooted when resolved under a different profile.
func stripKnownProfileRoot(relPath string) string {
	slash := filepath.ToSlash(relPath)
	if idx := strings.Index(slash, "/"); idx >= 0 && knownProfileRoots[slash[:idx]] {
		return slash[idx+1:]
	}
	return relPath
}

// Supports reports whether artifactType may be deployed under this
// profile.
func (p *Profile) Supports(artifactType string) bool {
	for _, t := range p.SupportedTypes {
		if t == artifactType {
			return true
		}
	}
	return false
}

// containerFor returns the subdirectory under RootDir that artifactType
// deploys into, honoring ArtifactPathMap overrides and falling back to
// the pluralized type name.
func (p *Profile) containerFor(artifactType string) string {
	if override, ok := p.ArtifactPathMap[artifactType]; ok {
		return override
	}
	return artifactType + "s"
}

// TargetPath computes the absolute destination for an artifact with the
// given relative path (its location inside the artifact's own directory
// tree, e.g. "SKILL.md" or "scripts/run.py"), rooted under projectRoot.
//
// Returns a errs.PathTraversal error if relPath escapes the artifact
// directory via ".." segments: materialization must never be tricked
// into writing outside the profile root.
func (p *Profile) TargetPath(projectRoot, artifactType, artifactName, relPath string) (string, error) {
	relPath = stripKnownProfileRoot(relPath)
	if containsTraversal(relPath) {
		return "", errs.New(errs.PathTraversal, "relative path escapes artifact directory: "+relPath)
	}
	container := p.containerFor(artifactType)
	full := filepath.Join(projectRoot, p.RootDir, container, artifactName, relPath)

	root := filepath.Clean(filepath.Join(projectRoot, p.RootDir))
	if !withinRoot(root, full) {
		return "", errs.New(errs.PathTraversal, "resolved target path escapes profile root: "+full)
	}
	return full, nil
}

func containsTraversal(relPath string) bool {
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

func withinRoot(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}
