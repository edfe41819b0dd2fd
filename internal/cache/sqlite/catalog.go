// Catalog methods back the cache/index projections: the
// parts of the schema that are rebuildable from the collection store
// and the registry, rather than authoritative themselves.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/skillmeat/skillmeat/internal/errs"
)

// --- Collections ------------------------------------------------------

type CollectionRow struct {
	ID        string
	Name      string
	RootPath  string
	Version   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Store) UpsertCollection(ctx context.Context, c *CollectionRow) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO collections (id, name, root_path, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, root_path = excluded.root_path, version = excluded.version, updated_at = excluded.updated_at`,
		c.ID, c.Name, c.RootPath, c.Version, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return errs.Wrap(errs.TransientIO, "upsert collection", err)
	}
	return nil
}

func (s *Store) GetCollectionByName(ctx context.Context, name string) (*CollectionRow, error) {
	row := s.q.QueryRowContext(ctx, `SELECT id, name, root_path, version, created_at, updated_at FROM collections WHERE name = ?`, name)
	var c CollectionRow
	err := row.Scan(&c.ID, &c.Name, &c.RootPath, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "scan collection", err)
	}
	return &c, nil
}

// SetCollectionArtifact records (or updates) the membership of an
// artifact in a collection, along with its cached tag slugs and resolved
// version: a denormalized read path maintained by internal/sync.
func (s *Store) SetCollectionArtifact(ctx context.Context, collectionID, artifactID string, tags []string, resolvedVersion, version string) error {
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return errs.Wrap(errs.Validation, "marshal tags", err)
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO collection_artifacts (collection_id, artifact_id, tags_json, resolved_version, version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection_id, artifact_id) DO UPDATE SET tags_json = excluded.tags_json, resolved_version = excluded.resolved_version, version = excluded.version`,
		collectionID, artifactID, string(tagsJSON), resolvedVersion, version,
	)
	if err != nil {
		return errs.Wrap(errs.TransientIO, "upsert collection_artifacts", err)
	}
	return nil
}

// --- Tags ---------------------------------------------------------------

type TagRow struct {
	ID          string
	Slug        string
	Name        string
	Color       string
	Description string
}

func (s *Store) UpsertTag(ctx context.Context, t *TagRow) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO tags (id, slug, name, color, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET name = excluded.name, color = excluded.color, description = excluded.description`,
		t.ID, t.Slug, t.Name, t.Color, t.Description,
	)
	if err != nil {
		return errs.Wrap(errs.TransientIO, "upsert tag", err)
	}
	return nil
}

// GetTagBySlug returns a tag row, or nil if no tag has that slug.
func (s *Store) GetTagBySlug(ctx context.Context, slug string) (*TagRow, error) {
	row := s.q.QueryRowContext(ctx, `SELECT id, slug, name, color, description FROM tags WHERE slug = ?`, slug)
	var t TagRow
	var color sql.NullString
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &color, &t.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "scan tag", err)
	}
	t.Color = color.String
	return &t, nil
}

// RenameTag updates a tag's name in place; slug (the stable identifier
// frontmatter refers to) is untouched so the rename never cascades into
// a reslug.
func (s *Store) RenameTag(ctx context.Context, slug, newName string) error {
	res, err := s.q.ExecContext(ctx, `UPDATE tags SET name = ? WHERE slug = ?`, newName, slug)
	if err != nil {
		return errs.Wrap(errs.TransientIO, "rename tag", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.New(errs.NotFound, "tag not found: "+slug)
	}
	return nil
}

func (s *Store) DeleteTag(ctx context.Context, slug string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM tags WHERE slug = ?`, slug)
	if err != nil {
		return errs.Wrap(errs.TransientIO, "delete tag", err)
	}
	return nil
}

func (s *Store) TagArtifact(ctx context.Context, artifactID, tagID string) error {
	_, err := s.q.ExecContext(ctx, `INSERT OR IGNORE INTO artifact_tags (artifact_id, tag_id) VALUES (?, ?)`, artifactID, tagID)
	if err != nil {
		return errs.Wrap(errs.TransientIO, "tag artifact", err)
	}
	return nil
}

func (s *Store) UntagArtifact(ctx context.Context, artifactID, tagID string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM artifact_tags WHERE artifact_id = ? AND tag_id = ?`, artifactID, tagID)
	if err != nil {
		return errs.Wrap(errs.TransientIO, "untag artifact", err)
	}
	return nil
}

// HasColoredTag reports whether any tag row already carries a non-null
// color, the DB-authoritative signal that tag recovery from
// collection.toml has already run (or the tags were set by hand) and
// should not be clobbered.
func (s *Store) HasColoredTag(ctx context.Context) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(1) FROM tags WHERE color IS NOT NULL AND color != ''`).Scan(&n)
	if err != nil {
		return false, errs.Wrap(errs.TransientIO, "count colored tags", err)
	}
	return n > 0, nil
}

// ArtifactsByTag returns the artifact ids carrying the given tag slug.
func (s *Store) ArtifactsByTag(ctx context.Context, slug string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT at.artifact_id FROM artifact_tags at
		JOIN tags t ON t.id = at.tag_id
		WHERE t.slug = ?`, slug)
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "query artifacts by tag", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Groups ---------------------------------------------------------------

type GroupRow struct {
	ID           string
	CollectionID string
	Name         string
	Description  string
	Color        string
	Icon         string
	Position     int
}

func (s *Store) UpsertGroup(ctx context.Context, g *GroupRow) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO groups (id, collection_id, name, description, color, icon, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description, color = excluded.color, icon = excluded.icon, position = excluded.position`,
		g.ID, g.CollectionID, g.Name, g.Description, g.Color, g.Icon, g.Position,
	)
	if err != nil {
		return errs.Wrap(errs.TransientIO, "upsert group", err)
	}
	return nil
}

func (s *Store) AddGroupArtifact(ctx context.Context, groupID, artifactID string, position int) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO group_artifacts (group_id, artifact_id, position)
		VALUES (?, ?, ?)
		ON CONFLICT(group_id, artifact_id) DO UPDATE SET position = excluded.position`,
		groupID, artifactID, position,
	)
	if err != nil {
		return errs.Wrap(errs.TransientIO, "add group artifact", err)
	}
	return nil
}

// HasGroupForCollection reports whether the given collection already has
// any group row, the DB-authoritative signal that group recovery from
// collection.toml has already run for it.
func (s *Store) HasGroupForCollection(ctx context.Context, collectionID string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(1) FROM groups WHERE collection_id = ?`, collectionID).Scan(&n)
	if err != nil {
		return false, errs.Wrap(errs.TransientIO, "count groups for collection", err)
	}
	return n > 0, nil
}

func (s *Store) GroupArtifacts(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT artifact_id FROM group_artifacts WHERE group_id = ? ORDER BY position ASC`, groupID)
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "query group artifacts", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Composite artifacts --------------------------------------------------

type CompositeRow struct {
	ID                string
	CompositeType     string
	UpstreamSourceURL string
}

type CompositeMembership struct {
	ID                string
	CompositeID       string
	ChildArtifactID   string
	Position          int
	PinnedVersionHash string
	RelationshipType  string
	CollectionID      string
}

func (s *Store) InsertComposite(ctx context.Context, c *CompositeRow) error {
	now := time.Now().UTC()
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO composite_artifacts (id, composite_type, upstream_source_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.CompositeType, c.UpstreamSourceURL, now, now,
	)
	if err != nil {
		return errs.Wrap(errs.TransientIO, "insert composite artifact", err)
	}
	return nil
}

func (s *Store) InsertCompositeMembership(ctx context.Context, m *CompositeMembership) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO composite_memberships (id, composite_id, child_artifact_id, position, pinned_version_hash, relationship_type, collection_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.CompositeID, m.ChildArtifactID, m.Position, m.PinnedVersionHash, m.RelationshipType, m.CollectionID,
	)
	if err != nil {
		return errs.Wrap(errs.TransientIO, "insert composite membership", err)
	}
	return nil
}

func (s *Store) CompositeMemberships(ctx context.Context, compositeID string) ([]*CompositeMembership, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, composite_id, child_artifact_id, position, pinned_version_hash, relationship_type, collection_id
		FROM composite_memberships WHERE composite_id = ? ORDER BY position ASC`, compositeID)
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "query composite memberships", err)
	}
	defer rows.Close()
	var out []*CompositeMembership
	for rows.Next() {
		var m CompositeMembership
		if err := rows.Scan(&m.ID, &m.CompositeID, &m.ChildArtifactID, &m.Position, &m.PinnedVersionHash, &m.RelationshipType, &m.CollectionID); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// --- Deployment sets --------------------------------------------------

type DeploymentSetRow struct {
	ID          string
	Name        string
	Description string
	Owner       string
	Tags        []string
}

type DeploymentSetMember struct {
	ID          string
	SetID       string
	Position    int
	ArtifactID  string // exactly one of ArtifactID, GroupID, MemberSetID is set
	GroupID     string
	MemberSetID string
}

func (s *Store) UpsertDeploymentSet(ctx context.Context, d *DeploymentSetRow) error {
	tagsJSON, err := json.Marshal(d.Tags)
	if err != nil {
		return errs.Wrap(errs.Validation, "marshal deployment set tags", err)
	}
	now := time.Now().UTC()
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO deployment_sets (id, name, description, owner, tags_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description, owner = excluded.owner, tags_json = excluded.tags_json, updated_at = excluded.updated_at`,
		d.ID, d.Name, d.Description, d.Owner, string(tagsJSON), now, now,
	)
	if err != nil {
		return errs.Wrap(errs.TransientIO, "upsert deployment set", err)
	}
	return nil
}

func (s *Store) AddDeploymentSetMember(ctx context.Context, m *DeploymentSetMember) error {
	var artifactID, groupID, memberSetID any
	if m.ArtifactID != "" {
		artifactID = m.ArtifactID
	}
	if m.GroupID != "" {
		groupID = m.GroupID
	}
	if m.MemberSetID != "" {
		memberSetID = m.MemberSetID
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO deployment_set_members (id, set_id, position, artifact_uuid, group_id, member_set_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.SetID, m.Position, artifactID, groupID, memberSetID,
	)
	if err != nil {
		return errs.Wrap(errs.TransientIO, "insert deployment set member", err)
	}
	return nil
}

func (s *Store) DeploymentSetMembers(ctx context.Context, setID string) ([]*DeploymentSetMember, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, set_id, position, artifact_uuid, group_id, member_set_id
		FROM deployment_set_members WHERE set_id = ? ORDER BY position ASC`, setID)
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "query deployment set members", err)
	}
	defer rows.Close()

	var out []*DeploymentSetMember
	for rows.Next() {
		var m DeploymentSetMember
		var artifactID, groupID, memberSetID sql.NullString
		if err := rows.Scan(&m.ID, &m.SetID, &m.Position, &artifactID, &groupID, &memberSetID); err != nil {
			return nil, err
		}
		m.ArtifactID, m.GroupID, m.MemberSetID = artifactID.String, groupID.String, memberSetID.String
		out = append(out, &m)
	}
	return out, rows.Err()
}

// --- Deployment profiles --------------------------------------------------

type DeploymentProfileRow struct {
	ID               string
	ProjectID        string
	Platform         string
	RootDir          string
	ArtifactPathMap  map[string]string
	ConfigFilenames  []string
	ContextPrefixes  []string
	SupportedTypes   []string
}

func (s *Store) UpsertDeploymentProfile(ctx context.Context, p *DeploymentProfileRow) error {
	pathMap, err := json.Marshal(p.ArtifactPathMap)
	if err != nil {
		return errs.Wrap(errs.Validation, "marshal artifact_path_map", err)
	}
	configFilenames, err := json.Marshal(p.ConfigFilenames)
	if err != nil {
		return errs.Wrap(errs.Validation, "marshal config_filenames", err)
	}
	contextPrefixes, err := json.Marshal(p.ContextPrefixes)
	if err != nil {
		return errs.Wrap(errs.Validation, "marshal context_prefixes", err)
	}
	supportedTypes, err := json.Marshal(p.SupportedTypes)
	if err != nil {
		return errs.Wrap(errs.Validation, "marshal supported_types", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO deployment_profiles (id, project_id, platform, root_dir, artifact_path_map, config_filenames, context_prefixes, supported_types)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, platform) DO UPDATE SET root_dir = excluded.root_dir, artifact_path_map = excluded.artifact_path_map, config_filenames = excluded.config_filenames, context_prefixes = excluded.context_prefixes, supported_types = excluded.supported_types`,
		p.ID, p.ProjectID, p.Platform, p.RootDir, string(pathMap), string(configFilenames), string(contextPrefixes), string(supportedTypes),
	)
	if err != nil {
		return errs.Wrap(errs.TransientIO, "upsert deployment profile", err)
	}
	return nil
}

func (s *Store) GetDeploymentProfile(ctx context.Context, projectID, platform string) (*DeploymentProfileRow, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, project_id, platform, root_dir, artifact_path_map, config_filenames, context_prefixes, supported_types
		FROM deployment_profiles WHERE project_id = ? AND platform = ?`, projectID, platform)

	var p DeploymentProfileRow
	var pathMapJSON, configFilenamesJSON, contextPrefixesJSON, supportedTypesJSON string
	err := row.Scan(&p.ID, &p.ProjectID, &p.Platform, &p.RootDir, &pathMapJSON, &configFilenamesJSON, &contextPrefixesJSON, &supportedTypesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "scan deployment profile", err)
	}

	if err := json.Unmarshal([]byte(pathMapJSON), &p.ArtifactPathMap); err != nil {
		return nil, errs.Wrap(errs.Integrity, "unmarshal artifact_path_map", err)
	}
	if err := json.Unmarshal([]byte(configFilenamesJSON), &p.ConfigFilenames); err != nil {
		return nil, errs.Wrap(errs.Integrity, "unmarshal config_filenames", err)
	}
	if err := json.Unmarshal([]byte(contextPrefixesJSON), &p.ContextPrefixes); err != nil {
		return nil, errs.Wrap(errs.Integrity, "unmarshal context_prefixes", err)
	}
	if err := json.Unmarshal([]byte(supportedTypesJSON), &p.SupportedTypes); err != nil {
		return nil, errs.Wrap(errs.Integrity, "unmarshal supported_types", err)
	}
	return &p, nil
}
