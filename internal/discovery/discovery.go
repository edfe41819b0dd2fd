// Package discovery scans a project's .claude/ directory (or a
// collection's artifacts/ directory, legacy) and reports the artifacts
// it finds, ready for import.
//
// Grounded on original_source/skillmeat/core/discovery.py: the same
// project/collection/auto scan-mode split, the same per-type-directory
// walk with per-artifact error isolation, and the same frontmatter-driven
// metadata extraction. Structured logging and in-process counters stand
// in for the Python source's discovery_metrics Prometheus instruments,
// which are an external-exporter concern out of scope here.
package discovery

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skillmeat/skillmeat/internal/frontmatter"
	"github.com/skillmeat/skillmeat/internal/obs"
	"github.com/skillmeat/skillmeat/internal/registry"
)

// ScanMode selects which directory convention to scan.
type ScanMode string

const (
	ScanAuto       ScanMode = "auto"
	ScanProject    ScanMode = "project"
	ScanCollection ScanMode = "collection"
)

// Artifact is a single discovered, not-yet-imported artifact.
type Artifact struct {
	Type        registry.ArtifactType
	Name        string
	Source      string
	Version     string
	Scope       string
	Tags        []string
	Description string
	Path        string
	DiscoveredAt time.Time
}

// Stats counts what a scan encountered, independent of any metrics
// exporter.
type Stats struct {
	DirectoriesScanned int
	ArtifactsFound     int
	SkippedUnsupported int
	Errors             int
}

// Result is the outcome of a scan.
type Result struct {
	Artifacts []Artifact
	Errors    []string
	Stats     Stats
	Duration  time.Duration
}

// Scanner walks a base path looking for artifacts.
type Scanner struct {
	basePath      string
	mode          ScanMode
	artifactsBase string
}

// NewScanner resolves scanMode against basePath's directory structure.
func NewScanner(basePath string, mode ScanMode) *Scanner {
	s := &Scanner{basePath: basePath, mode: mode}
	switch mode {
	case ScanProject:
		s.artifactsBase = filepath.Join(basePath, ".claude")
	case ScanCollection:
		s.artifactsBase = filepath.Join(basePath, "artifacts")
	default:
		s.mode = ScanAuto
		if dirExists(filepath.Join(basePath, ".claude")) {
			s.mode = ScanProject
			s.artifactsBase = filepath.Join(basePath, ".claude")
		} else if dirExists(filepath.Join(basePath, "artifacts")) {
			s.mode = ScanCollection
			s.artifactsBase = filepath.Join(basePath, "artifacts")
		} else {
			s.mode = ScanProject
			s.artifactsBase = filepath.Join(basePath, ".claude")
		}
	}
	return s
}

// Discover performs the scan. Per-artifact and per-directory errors are
// collected in Result.Errors rather than aborting the whole scan.
func (s *Scanner) Discover(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	if !dirExists(s.artifactsBase) {
		msg := "artifacts directory not found: " + s.artifactsBase
		obs.Warnf("discovery: %s", msg)
		result.Errors = append(result.Errors, msg)
		result.Duration = time.Since(start)
		return result, nil
	}

	entries, err := os.ReadDir(s.artifactsBase)
	if err != nil {
		result.Errors = append(result.Errors, "reading artifacts base: "+err.Error())
		result.Duration = time.Since(start)
		return result, nil
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if !entry.IsDir() {
			continue
		}
		artifactType, ok := normalizeContainerName(strings.ToLower(entry.Name()))
		if !ok {
			obs.Debugf("discovery: skipping unsupported directory %s", entry.Name())
			result.Stats.SkippedUnsupported++
			continue
		}
		result.Stats.DirectoriesScanned++

		typeDir := filepath.Join(s.artifactsBase, entry.Name())
		found, scanErrs := s.scanTypeDirectory(typeDir, artifactType)
		result.Artifacts = append(result.Artifacts, found...)
		result.Errors = append(result.Errors, scanErrs...)
	}

	result.Stats.ArtifactsFound = len(result.Artifacts)
	result.Stats.Errors = len(result.Errors)
	result.Duration = time.Since(start)
	obs.Infof("discovery: scan completed, %d artifacts found, %d errors, %s",
		result.Stats.ArtifactsFound, result.Stats.Errors, result.Duration)
	return result, nil
}

func (s *Scanner) scanTypeDirectory(typeDir string, artifactType registry.ArtifactType) ([]Artifact, []string) {
	var found []Artifact
	var errs []string

	entries, err := os.ReadDir(typeDir)
	if err != nil {
		return nil, []string{"reading " + typeDir + ": " + err.Error()}
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		artifactPath := filepath.Join(typeDir, entry.Name())

		metadataFile, ok := findMetadataFile(artifactPath, artifactType, entry.IsDir())
		if !ok {
			obs.Debugf("discovery: no metadata file for %s", artifactPath)
			continue
		}

		meta, err := extractMetadata(metadataFile)
		if err != nil {
			errs = append(errs, "extracting metadata from "+metadataFile+": "+err.Error())
			continue
		}

		name := meta.name
		if name == "" {
			name = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}

		found = append(found, Artifact{
			Type:         artifactType,
			Name:         name,
			Source:       meta.source,
			Version:      meta.version,
			Scope:        meta.scope,
			Tags:         meta.tags,
			Description:  meta.description,
			Path:         artifactPath,
			DiscoveredAt: time.Now().UTC(),
		})
	}
	return found, errs
}

// findMetadataFile locates the metadata file for an artifact directory
// or single-file artifact, mirroring _find_metadata_file's per-type
// branching. isDir tells us which branch of the Python source's
// directory-vs-file check applies.
func findMetadataFile(artifactPath string, artifactType registry.ArtifactType, isDir bool) (string, bool) {
	if !isDir {
		if strings.HasSuffix(strings.ToLower(artifactPath), ".md") {
			switch artifactType {
			case registry.TypeCommand, registry.TypeAgent:
				return artifactPath, true
			}
		}
		return "", false
	}

	for _, candidate := range signatureFilenames[artifactType] {
		full := filepath.Join(artifactPath, candidate)
		if fileExists(full) {
			if artifactType == registry.TypeMCP && strings.HasSuffix(candidate, ".json") {
				// mcp.json alone identifies the artifact but carries no
				// YAML frontmatter to extract from.
				return "", false
			}
			return full, true
		}
	}
	return "", false
}

type extractedMeta struct {
	name        string
	description string
	source      string
	version     string
	scope       string
	tags        []string
}

func extractMetadata(metadataFile string) (extractedMeta, error) {
	doc, err := frontmatter.Read(metadataFile)
	if err != nil {
		return extractedMeta{}, err
	}
	raw, err := doc.ToMap()
	if err != nil {
		return extractedMeta{}, err
	}

	m := extractedMeta{}
	m.name = stringField(raw, "name", "title")
	m.description = stringField(raw, "description")
	m.source = stringField(raw, "source", "upstream")
	m.version = stringField(raw, "version")
	m.scope = stringField(raw, "scope")
	if tags, ok := raw["tags"].([]any); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				m.tags = append(m.tags, s)
			}
		}
	}
	return m, nil
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
