package discovery

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/skillmeat/skillmeat/internal/registry"
)

// PluginManifestFilename, present at a container's root, identifies it as
// a composite regardless of how many distinct artifact types it holds.
const PluginManifestFilename = "plugin.json"

// DiscoveredGraph is a composite container's identity plus its flattened
// child artifacts, ready to feed composite.Import.
type DiscoveredGraph struct {
	ParentName        string
	ParentPath        string
	HasPluginManifest bool
	Children          []Artifact
}

// DetectComposite classifies containerPath as a composite container:
// either a plugin.json marker at its root, or multiple distinct
// single-type subcontainers present at once. ok is false when
// containerPath holds at most one artifact type and carries no
// plugin.json, the ordinary single-artifact-container case discovery
// already handles via Scan.
func DetectComposite(containerPath string) (*DiscoveredGraph, bool, error) {
	entries, err := os.ReadDir(containerPath)
	if err != nil {
		return nil, false, err
	}

	hasPluginManifest := fileExists(filepath.Join(containerPath, PluginManifestFilename))

	var scanner Scanner
	var children []Artifact
	typesSeen := map[registry.ArtifactType]bool{}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		artifactType, ok := normalizeContainerName(strings.ToLower(entry.Name()))
		if !ok {
			continue
		}
		typeDir := filepath.Join(containerPath, entry.Name())
		found, _ := scanner.scanTypeDirectory(typeDir, artifactType)
		if len(found) == 0 {
			continue
		}
		typesSeen[artifactType] = true
		children = append(children, found...)
	}

	if !hasPluginManifest && len(typesSeen) < 2 {
		return nil, false, nil
	}

	return &DiscoveredGraph{
		ParentName:        filepath.Base(containerPath),
		ParentPath:        containerPath,
		HasPluginManifest: hasPluginManifest,
		Children:          children,
	}, true, nil
}
