package sqlite

import "github.com/skillmeat/skillmeat/internal/registry"

func artifactFixture(id string) *registry.Artifact {
	return &registry.Artifact{ID: id, Type: registry.TypeSkill, Name: id}
}

func versionFixture(artifactID, contentHash string) *registry.ArtifactVersion {
	return &registry.ArtifactVersion{
		ID:             contentHash + "-ver",
		ArtifactID:     artifactID,
		ContentHash:    contentHash,
		ChangeOrigin:   registry.OriginDeployment,
		VersionLineage: []string{contentHash},
	}
}
