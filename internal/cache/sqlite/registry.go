package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/skillmeat/skillmeat/internal/errs"
	"github.com/skillmeat/skillmeat/internal/registry"
)

var _ registry.Store = (*Store)(nil)

// UpsertArtifact creates the artifact row if it does not already exist
// (matched by id), or returns the existing row untouched.
func (s *Store) UpsertArtifact(ctx context.Context, a *registry.Artifact) (*registry.Artifact, error) {
	if existing, err := s.GetArtifact(ctx, a.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	platforms, err := json.Marshal(a.TargetPlatforms)
	if err != nil {
		return nil, errs.Wrap(errs.Validation, "marshal target_platforms", err)
	}
	now := a.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO artifacts (id, project_id, type, name, deployed_version, upstream_version, outdated, locally_modified, target_platforms, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ProjectID, string(a.Type), a.Name, a.DeployedVersion, a.UpstreamVersion,
		boolToInt(a.Outdated), boolToInt(a.LocallyModified), string(platforms), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "insert artifact", err)
	}
	return a, nil
}

// GetArtifact fetches an artifact by id, returning (nil, nil) if absent.
func (s *Store) GetArtifact(ctx context.Context, id string) (*registry.Artifact, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, project_id, type, name, deployed_version, upstream_version, outdated, locally_modified, target_platforms, created_at, updated_at
		FROM artifacts WHERE id = ?`, id)
	return scanArtifact(row)
}

// FindArtifactByNameType looks up an artifact by case-insensitive name and
// exact type. Returns (nil, nil) if no match.
func (s *Store) FindArtifactByNameType(ctx context.Context, name string, t registry.ArtifactType) (*registry.Artifact, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, project_id, type, name, deployed_version, upstream_version, outdated, locally_modified, target_platforms, created_at, updated_at
		FROM artifacts WHERE type = ? AND name = ? COLLATE NOCASE
		LIMIT 1`, string(t), name)
	return scanArtifact(row)
}

// UpdateArtifact persists the mutable fields of an existing artifact row.
func (s *Store) UpdateArtifact(ctx context.Context, a *registry.Artifact) error {
	platforms, err := json.Marshal(a.TargetPlatforms)
	if err != nil {
		return errs.Wrap(errs.Validation, "marshal target_platforms", err)
	}
	a.UpdatedAt = time.Now().UTC()

	res, err := s.q.ExecContext(ctx, `
		UPDATE artifacts
		SET deployed_version = ?, upstream_version = ?, outdated = ?, locally_modified = ?, target_platforms = ?, updated_at = ?
		WHERE id = ?`,
		a.DeployedVersion, a.UpstreamVersion, boolToInt(a.Outdated), boolToInt(a.LocallyModified), string(platforms), a.UpdatedAt, a.ID,
	)
	if err != nil {
		return errs.Wrap(errs.TransientIO, "update artifact", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.TransientIO, "update artifact rows affected", err)
	}
	if n == 0 {
		return errs.New(errs.NotFound, "artifact not found: "+a.ID)
	}
	return nil
}

// AppendVersion appends a new version row, idempotent on ContentHash.
func (s *Store) AppendVersion(ctx context.Context, v *registry.ArtifactVersion) (*registry.ArtifactVersion, error) {
	if existing, err := s.GetVersion(ctx, v.ContentHash); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	lineage, err := json.Marshal(v.VersionLineage)
	if err != nil {
		return nil, errs.Wrap(errs.Validation, "marshal version_lineage", err)
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	var parentHash any
	if v.ParentHash != "" {
		parentHash = v.ParentHash
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO artifact_versions (id, artifact_id, content_hash, parent_hash, change_origin, version_lineage, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.ArtifactID, v.ContentHash, parentHash, string(v.ChangeOrigin), string(lineage), v.CreatedAt,
	)
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "insert artifact_version", err)
	}
	return v, nil
}

// GetVersion looks up a version by content hash, returning (nil, nil) if
// absent.
func (s *Store) GetVersion(ctx context.Context, contentHash string) (*registry.ArtifactVersion, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, artifact_id, content_hash, parent_hash, change_origin, version_lineage, created_at
		FROM artifact_versions WHERE content_hash = ?`, contentHash)
	return scanVersion(row)
}

// Latest returns the most recently created version for an artifact.
func (s *Store) Latest(ctx context.Context, artifactID string) (*registry.ArtifactVersion, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, artifact_id, content_hash, parent_hash, change_origin, version_lineage, created_at
		FROM artifact_versions WHERE artifact_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, artifactID)
	return scanVersion(row)
}

// Root returns the earliest version for an artifact.
func (s *Store) Root(ctx context.Context, artifactID string) (*registry.ArtifactVersion, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, artifact_id, content_hash, parent_hash, change_origin, version_lineage, created_at
		FROM artifact_versions WHERE artifact_id = ?
		ORDER BY created_at ASC, id ASC LIMIT 1`, artifactID)
	return scanVersion(row)
}

// Chain returns every version for an artifact, oldest first.
func (s *Store) Chain(ctx context.Context, artifactID string) ([]*registry.ArtifactVersion, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, artifact_id, content_hash, parent_hash, change_origin, version_lineage, created_at
		FROM artifact_versions WHERE artifact_id = ?
		ORDER BY created_at ASC, id ASC`, artifactID)
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "query artifact_versions chain", err)
	}
	defer rows.Close()

	var out []*registry.ArtifactVersion
	for rows.Next() {
		v, err := scanVersionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Exists reports whether a version with contentHash is already recorded.
func (s *Store) Exists(ctx context.Context, contentHash string) (bool, error) {
	var n int
	row := s.q.QueryRowContext(ctx, "SELECT COUNT(1) FROM artifact_versions WHERE content_hash = ?", contentHash)
	if err := row.Scan(&n); err != nil {
		return false, errs.Wrap(errs.TransientIO, "check version existence", err)
	}
	return n > 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (*registry.Artifact, error) {
	var a registry.Artifact
	var typ, platformsJSON string
	var outdated, locallyModified int

	err := row.Scan(&a.ID, &a.ProjectID, &typ, &a.Name, &a.DeployedVersion, &a.UpstreamVersion,
		&outdated, &locallyModified, &platformsJSON, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "scan artifact", err)
	}

	a.Type = registry.ArtifactType(typ)
	a.Outdated = outdated != 0
	a.LocallyModified = locallyModified != 0
	if err := json.Unmarshal([]byte(platformsJSON), &a.TargetPlatforms); err != nil {
		return nil, errs.Wrap(errs.Integrity, "unmarshal target_platforms", err)
	}
	return &a, nil
}

func scanVersion(row rowScanner) (*registry.ArtifactVersion, error) {
	var v registry.ArtifactVersion
	var parentHash sql.NullString
	var origin, lineageJSON string

	err := row.Scan(&v.ID, &v.ArtifactID, &v.ContentHash, &parentHash, &origin, &lineageJSON, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "scan artifact_version", err)
	}

	v.ParentHash = parentHash.String
	v.ChangeOrigin = registry.ChangeOrigin(origin)
	if err := json.Unmarshal([]byte(lineageJSON), &v.VersionLineage); err != nil {
		return nil, errs.Wrap(errs.Integrity, "unmarshal version_lineage", err)
	}
	return &v, nil
}

func scanVersionRows(rows *sql.Rows) (*registry.ArtifactVersion, error) {
	return scanVersion(rows)
}
