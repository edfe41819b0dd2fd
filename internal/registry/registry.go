package registry

import "context"

// Store is the persistence contract for the artifact registry.
// A single SQL store (internal/cache/sqlite) implements both this interface
// and the cache/index projections (internal/cache): the registry tables
// are simply the subset of that store's schema that is authoritative
// rather than derived.
type Store interface {
	// UpsertArtifact creates the artifact if identity+project is new, or
	// returns the existing row unchanged otherwise.
	UpsertArtifact(ctx context.Context, a *Artifact) (*Artifact, error)

	// GetArtifact fetches an artifact by id.
	GetArtifact(ctx context.Context, id string) (*Artifact, error)

	// FindArtifactByNameType looks up an artifact by case-insensitive name
	// and exact type.
	FindArtifactByNameType(ctx context.Context, name string, t ArtifactType) (*Artifact, error)

	// UpdateArtifact persists mutable Artifact fields (DeployedVersion,
	// UpstreamVersion, Outdated, LocallyModified, TargetPlatforms).
	UpdateArtifact(ctx context.Context, a *Artifact) error

	// AppendVersion appends a new ArtifactVersion. If a row with the same
	// ContentHash already exists, the call is idempotent: the existing row
	// is returned rather than creating a duplicate.
	AppendVersion(ctx context.Context, v *ArtifactVersion) (*ArtifactVersion, error)

	// GetVersion looks up a version by its content hash.
	GetVersion(ctx context.Context, contentHash string) (*ArtifactVersion, error)

	// Latest returns the most recently created version for an artifact.
	Latest(ctx context.Context, artifactID string) (*ArtifactVersion, error)

	// Root returns the earliest (first-created) version for an artifact.
	Root(ctx context.Context, artifactID string) (*ArtifactVersion, error)

	// Chain returns every version for an artifact, oldest first.
	Chain(ctx context.Context, artifactID string) ([]*ArtifactVersion, error)

	// Exists reports whether a version with contentHash is already recorded.
	Exists(ctx context.Context, contentHash string) (bool, error)
}
