package sqlite

// schema is applied with CREATE TABLE IF NOT EXISTS on every open: a
// single baseline schema plus an incremental migrations list
// (migrations.go) for anything added after the baseline shipped.
//
// Tables split into two ownership classes:
//   - artifacts / artifact_versions: the registry itself, authoritative,
//     never derivable from the collection store alone.
//   - everything else: the cache/index, a rebuildable projection of
//     the collection store plus the registry.
const schema = `
PRAGMA foreign_keys = ON;

-- Registry (authoritative) --------------------------------------------

CREATE TABLE IF NOT EXISTS artifacts (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL,
    name TEXT NOT NULL,
    deployed_version TEXT NOT NULL DEFAULT '',
    upstream_version TEXT NOT NULL DEFAULT '',
    outdated INTEGER NOT NULL DEFAULT 0,
    locally_modified INTEGER NOT NULL DEFAULT 0,
    target_platforms TEXT NOT NULL DEFAULT '[]',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_artifacts_name_type ON artifacts(type, name COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_artifacts_project ON artifacts(project_id);

CREATE TABLE IF NOT EXISTS artifact_versions (
    id TEXT PRIMARY KEY,
    artifact_id TEXT NOT NULL REFERENCES artifacts(id) ON DELETE CASCADE,
    content_hash TEXT NOT NULL UNIQUE,
    parent_hash TEXT,
    change_origin TEXT NOT NULL CHECK (change_origin IN ('deployment', 'sync', 'local_modification')),
    version_lineage TEXT NOT NULL DEFAULT '[]',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_artifact_versions_artifact ON artifact_versions(artifact_id, created_at);

-- Composite / plugin import --------------------------------------------

CREATE TABLE IF NOT EXISTS composite_artifacts (
    id TEXT PRIMARY KEY,
    composite_type TEXT NOT NULL,
    upstream_source_url TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS composite_memberships (
    id TEXT PRIMARY KEY,
    composite_id TEXT NOT NULL REFERENCES composite_artifacts(id) ON DELETE CASCADE,
    child_artifact_id TEXT NOT NULL REFERENCES artifacts(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    pinned_version_hash TEXT NOT NULL REFERENCES artifact_versions(content_hash),
    relationship_type TEXT NOT NULL DEFAULT 'contains',
    collection_id TEXT NOT NULL DEFAULT '',
    UNIQUE(composite_id, child_artifact_id)
);

CREATE INDEX IF NOT EXISTS idx_composite_memberships_composite ON composite_memberships(composite_id, position);

-- Collection store cache (derived, rebuildable) --------------------------

CREATE TABLE IF NOT EXISTS collections (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    root_path TEXT NOT NULL,
    version TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS collection_artifacts (
    collection_id TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
    artifact_id TEXT NOT NULL REFERENCES artifacts(id) ON DELETE CASCADE,
    tags_json TEXT NOT NULL DEFAULT '[]',
    resolved_version TEXT NOT NULL DEFAULT '',
    version TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (collection_id, artifact_id)
);

CREATE TABLE IF NOT EXISTS tags (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    color TEXT,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS artifact_tags (
    artifact_id TEXT NOT NULL REFERENCES artifacts(id) ON DELETE CASCADE,
    tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    PRIMARY KEY (artifact_id, tag_id)
);

CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    collection_id TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    color TEXT,
    icon TEXT NOT NULL DEFAULT '',
    position INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_groups_collection ON groups(collection_id, position);

CREATE TABLE IF NOT EXISTS group_artifacts (
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    artifact_id TEXT NOT NULL REFERENCES artifacts(id) ON DELETE CASCADE,
    position INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (group_id, artifact_id)
);

-- Deployment sets ---------------------------------------------------------

CREATE TABLE IF NOT EXISTS deployment_sets (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    owner TEXT NOT NULL DEFAULT '',
    tags_json TEXT NOT NULL DEFAULT '[]',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS deployment_set_members (
    id TEXT PRIMARY KEY,
    set_id TEXT NOT NULL REFERENCES deployment_sets(id) ON DELETE CASCADE,
    position INTEGER NOT NULL DEFAULT 0,
    artifact_uuid TEXT,
    group_id TEXT,
    member_set_id TEXT,
    CHECK (
        (artifact_uuid IS NOT NULL) + (group_id IS NOT NULL) + (member_set_id IS NOT NULL) = 1
    )
);

CREATE INDEX IF NOT EXISTS idx_deployment_set_members_set ON deployment_set_members(set_id, position);

-- Deployment profiles -----------------------------------------------------

CREATE TABLE IF NOT EXISTS deployment_profiles (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    platform TEXT NOT NULL,
    root_dir TEXT NOT NULL,
    artifact_path_map TEXT NOT NULL DEFAULT '{}',
    config_filenames TEXT NOT NULL DEFAULT '[]',
    context_prefixes TEXT NOT NULL DEFAULT '[]',
    supported_types TEXT NOT NULL DEFAULT '[]',
    UNIQUE(project_id, platform)
);

-- Internal bookkeeping ----------------------------------------------------

CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
