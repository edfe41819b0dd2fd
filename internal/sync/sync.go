// Package sync keeps the relational cache (internal/cache/sqlite) and
// the filesystem collection store (internal/collection) consistent in
// both directions:
//
//   - Write-through: a tag rename or delete made through Syncer is
//     immediately reflected back into collection.toml, and a delete
//     also into each affected artifact's own frontmatter tags: list.
//     Group mutations are not written through.
//   - Recovery: if the cache is lost or stale, it is rebuilt from
//     collection.toml plus each artifact's frontmatter, rather than the
//     other way around: the filesystem is always authoritative.
package sync

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/skillmeat/skillmeat/internal/cache/sqlite"
	"github.com/skillmeat/skillmeat/internal/collection"
	"github.com/skillmeat/skillmeat/internal/frontmatter"
	"github.com/skillmeat/skillmeat/internal/obs"
	"github.com/skillmeat/skillmeat/internal/registry"
)

// SkippedReason explains why Recover left all or part of the cache
// untouched for a collection.
type SkippedReason string

const (
	SkippedNone SkippedReason = ""
	// SkippedNoCollectionToml means collection.toml does not exist yet:
	// there is nothing to recover from.
	SkippedNoCollectionToml SkippedReason = "no_collection_toml"
	// SkippedTomlReadError means collection.toml exists but could not be
	// read or parsed.
	SkippedTomlReadError SkippedReason = "toml_read_error"
)

// Syncer coordinates writes between the cache store and a collection's
// manifest/frontmatter files.
type Syncer struct {
	Store      *sqlite.Store
	Collection *collection.Store
	Root       string // collection root, for resolving ArtifactEntry.Path

	recoverGroup singleflight.Group
}

// recoverOnce runs Recover for collectionID, collapsing concurrent
// callers (the watch debounce firing again before a prior recovery has
// finished) into the single in-flight call rather than racing two
// recoveries against the same cache rows.
func (s *Syncer) recoverOnce(ctx context.Context, collectionID string) error {
	_, err, _ := s.recoverGroup.Do(collectionID, func() (interface{}, error) {
		reason, err := s.Recover(ctx, collectionID)
		if reason != SkippedNone {
			obs.Debugf("sync: recovery for %s skipped: %s", collectionID, reason)
		}
		return nil, err
	})
	return err
}

// RenameTag updates the cache row and the manifest's tag_definitions
// entry, leaving slugs untouched (only the display name changes).
// Artifacts' frontmatter tags: lists hold slugs and are not rewritten.
func (s *Syncer) RenameTag(ctx context.Context, slug, newName string) error {
	if err := s.Store.RenameTag(ctx, slug, newName); err != nil {
		return err
	}

	return s.Collection.Mutate(func(m *collection.Manifest) error {
		for i, td := range m.TagDefinitions {
			if td.Slug == slug {
				m.TagDefinitions[i].Name = newName
			}
		}
		return nil
	})
}

// DeleteTag removes the cache rows, the manifest's tag_definitions
// entry, and the tag from every artifact's frontmatter and manifest
// entry that referenced it.
func (s *Syncer) DeleteTag(ctx context.Context, slug string) error {
	ids, err := s.Store.ArtifactsByTag(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteTag(ctx, slug); err != nil {
		return err
	}

	return s.Collection.Mutate(func(m *collection.Manifest) error {
		out := m.TagDefinitions[:0]
		for _, td := range m.TagDefinitions {
			if td.Slug != slug {
				out = append(out, td)
			}
		}
		m.TagDefinitions = out

		idSet := map[string]bool{}
		for _, id := range ids {
			idSet[id] = true
		}
		for i, entry := range m.Artifacts {
			if !idSet[entry.ID] {
				continue
			}
			m.Artifacts[i].Tags = removeString(entry.Tags, slug)
			if entry.Path != "" {
				s.writeThroughFrontmatter(filepath.Join(s.Root, entry.Path), m.Artifacts[i].Tags)
			}
		}
		return nil
	})
}

// writeThroughFrontmatter best-effort updates an artifact's own
// frontmatter tags: list. Failures are logged as warnings and swallowed
// at this layer since the manifest, not the frontmatter copy, is
// authoritative for tag membership; frontmatter is a convenience mirror
// for tools that read the file directly.
func (s *Syncer) writeThroughFrontmatter(metadataPath string, tags []string) {
	doc, err := frontmatter.Read(metadataPath)
	if err != nil {
		obs.Warnf("sync: frontmatter write-through for %s failed: %v", metadataPath, err)
		return
	}
	if err := doc.Set("tags", tags); err != nil {
		obs.Warnf("sync: frontmatter write-through for %s failed: %v", metadataPath, err)
		return
	}
	if err := frontmatter.Write(metadataPath, doc); err != nil {
		obs.Warnf("sync: frontmatter write-through for %s failed: %v", metadataPath, err)
	}
}

func removeString(list []string, target string) []string {
	out := list[:0]
	for _, s := range list {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// Recover rebuilds the cache's collection, tags, and groups rows from
// collection.toml, but only the parts the DB doesn't already consider
// authoritative: a Tag row with a non-null color means tags were already
// recovered (or hand-edited in the DB) and must not be clobbered by a
// stale manifest re-read, and likewise a collection already carrying any
// Group row is left alone. A missing or unreadable manifest aborts
// before any write, reporting why via the returned SkippedReason.
func (s *Syncer) Recover(ctx context.Context, collectionID string) (SkippedReason, error) {
	manifestPath := filepath.Join(s.Root, collection.ManifestFilename)
	if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
		return SkippedNoCollectionToml, nil
	}

	m, err := s.Collection.Load()
	if err != nil {
		return SkippedTomlReadError, nil
	}

	if err := s.Store.UpsertCollection(ctx, &sqlite.CollectionRow{
		ID: collectionID, Name: m.Name, RootPath: s.Root, Version: m.Version,
	}); err != nil {
		return SkippedNone, err
	}

	tagsAuthoritative, err := s.Store.HasColoredTag(ctx)
	if err != nil {
		return SkippedNone, err
	}
	if !tagsAuthoritative {
		for _, td := range m.TagDefinitions {
			if err := s.Store.UpsertTag(ctx, &sqlite.TagRow{
				ID: tagIDForSlug(td.Slug), Slug: td.Slug, Name: td.Name, Color: td.Color, Description: td.Description,
			}); err != nil {
				return SkippedNone, err
			}
		}
	}

	groupsAuthoritative, err := s.Store.HasGroupForCollection(ctx, collectionID)
	if err != nil {
		return SkippedNone, err
	}
	if !groupsAuthoritative {
		for _, g := range m.Groups {
			if err := s.Store.UpsertGroup(ctx, &sqlite.GroupRow{
				ID: g.ID, CollectionID: collectionID, Name: g.Name, Description: g.Description, Color: g.Color, Icon: g.Icon, Position: g.Position,
			}); err != nil {
				return SkippedNone, err
			}
			pos := 0
			for _, member := range g.Artifacts {
				artifactID, ok, err := s.resolveMember(ctx, member)
				if err != nil {
					return SkippedNone, err
				}
				if !ok {
					obs.Warnf("sync: group %s references unresolvable member %q, skipping", g.ID, member)
					continue
				}
				if err := s.Store.AddGroupArtifact(ctx, g.ID, artifactID, pos); err != nil {
					return SkippedNone, err
				}
				pos++
			}
		}
	}

	for _, entry := range m.Artifacts {
		if err := s.Store.SetCollectionArtifact(ctx, collectionID, entry.ID, entry.Tags, "", entry.Version); err != nil {
			return SkippedNone, err
		}
		for _, tagSlug := range entry.Tags {
			if err := s.Store.TagArtifact(ctx, entry.ID, tagIDForSlug(tagSlug)); err != nil {
				return SkippedNone, err
			}
		}
	}
	return SkippedNone, nil
}

// resolveMember looks up a group member string, either a raw artifact id
// (legacy manifests written before members switched to human
// identifiers) or a "<type>:<name>" identifier, against the Artifact
// table.
func (s *Syncer) resolveMember(ctx context.Context, member string) (string, bool, error) {
	typeName, name, ok := strings.Cut(member, ":")
	if !ok {
		art, err := s.Store.GetArtifact(ctx, member)
		if err != nil {
			return "", false, err
		}
		return member, art != nil, nil
	}
	art, err := s.Store.FindArtifactByNameType(ctx, name, registry.ArtifactType(typeName))
	if err != nil {
		return "", false, err
	}
	if art == nil {
		return "", false, nil
	}
	return art.ID, true, nil
}

// tagIDForSlug derives a stable tag id from its slug so recovery is
// idempotent without needing a lookup table: re-running Recover against
// the same manifest reassigns the same ids.
func tagIDForSlug(slug string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("skillmeat-tag:"+slug)).String()
}
