// Package composite imports a composite/plugin artifact (a directory
// tree bundling several single-type artifacts under one distributable
// unit) as a single atomic transaction.
//
// Grounded on original_source/skillmeat/core/importer.py: each child is
// content-hashed and deduplicated independently, but the composite row,
// its memberships, and every child's registry write commit together or
// not at all. This file uses internal/cache/sqlite's Store.WithTx rather
// than the Python source's SQLAlchemy session/rollback, and
// internal/contenthash + internal/dedup in place of its hashing and
// deduplication helpers: same shape, idiomatic Go.
package composite

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skillmeat/skillmeat/internal/cache/sqlite"
	"github.com/skillmeat/skillmeat/internal/contenthash"
	"github.com/skillmeat/skillmeat/internal/dedup"
	"github.com/skillmeat/skillmeat/internal/errs"
	"github.com/skillmeat/skillmeat/internal/registry"
)

// Child is a single artifact discovered inside the composite's tree,
// already resolved to a path discovery can hash.
type Child struct {
	Type registry.ArtifactType
	Name string
	Path string
}

// Request describes a composite import.
type Request struct {
	Slug              string // required; Import rejects an empty Slug with a validation error
	CompositeType     string // e.g. "plugin"
	UpstreamSourceURL string
	Children          []Child
}

// Result reports what was created or linked.
type Result struct {
	CompositeID string
	Memberships []MemberResult
}

// MemberResult is the per-child outcome.
type MemberResult struct {
	ChildName  string
	ArtifactID string
	Decision   dedup.Decision
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify normalizes a plugin/composite name into the <slug> part of the
// id format "composite:<slug>": lowercase, non-alphanumeric runs
// collapsed to a single hyphen, leading/trailing hyphens trimmed.
func Slugify(name string) string {
	lower := strings.ToLower(name)
	slug := slugInvalid.ReplaceAllString(lower, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "composite"
	}
	return slug
}

// Import hashes every child, resolves deduplication for each, and
// commits the composite row plus all memberships in a single
// transaction. Any failure (a hash error, a dedup resolution error, a
// write error) rolls the whole import back; no partial composite is
// ever left in the registry.
func Import(ctx context.Context, store *sqlite.Store, req Request) (*Result, error) {
	if len(req.Children) == 0 {
		return nil, errs.New(errs.Validation, "composite import requires at least one child artifact")
	}

	slug := req.Slug
	if slug == "" {
		return nil, errs.New(errs.Validation, "composite import requires a slug")
	}
	compositeID := "composite:" + Slugify(slug)

	type resolved struct {
		child    Child
		hash     string
		decision dedup.Result
	}
	var plan []resolved

	for _, child := range req.Children {
		hash, err := contenthash.Hash(child.Path)
		if err != nil {
			return nil, errs.Wrap(errs.Integrity, "hash composite child "+child.Name, err)
		}
		decision, err := dedup.Resolve(ctx, store, child.Name, child.Type, hash, nil)
		if err != nil {
			return nil, errs.Wrap(errs.TransientIO, "resolve dedup for composite child "+child.Name, err)
		}
		plan = append(plan, resolved{child: child, hash: hash, decision: decision})
	}

	result := &Result{CompositeID: compositeID}

	err := store.WithTx(ctx, func(tx *sqlite.Store) error {
		if err := tx.InsertComposite(ctx, &sqlite.CompositeRow{
			ID:                compositeID,
			CompositeType:     req.CompositeType,
			UpstreamSourceURL: req.UpstreamSourceURL,
		}); err != nil {
			return err
		}

		for i, p := range plan {
			artifactID, err := commitChild(ctx, tx, p.child, p.hash, p.decision)
			if err != nil {
				return fmt.Errorf("composite child %q: %w", p.child.Name, err)
			}

			membership := &sqlite.CompositeMembership{
				ID:                uuid.NewString(),
				CompositeID:       compositeID,
				ChildArtifactID:   artifactID,
				Position:          i,
				PinnedVersionHash: p.hash,
				RelationshipType:  "contains",
			}
			if err := tx.InsertCompositeMembership(ctx, membership); err != nil {
				return err
			}
			result.Memberships = append(result.Memberships, MemberResult{
				ChildName:  p.child.Name,
				ArtifactID: artifactID,
				Decision:   p.decision.Decision,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// commitChild performs the registry writes implied by a single child's
// dedup decision, returning its artifact id.
func commitChild(ctx context.Context, tx *sqlite.Store, child Child, hash string, decision dedup.Result) (string, error) {
	switch decision.Decision {
	case dedup.LinkExisting:
		return decision.ArtifactID, nil

	case dedup.CreateNewVersion:
		latest, err := tx.Latest(ctx, decision.ArtifactID)
		if err != nil {
			return "", err
		}
		var parentHash string
		var lineage []string
		if latest != nil {
			parentHash = latest.ContentHash
			lineage = append(append([]string{}, latest.VersionLineage...), hash)
		} else {
			lineage = []string{hash}
		}
		version := &registry.ArtifactVersion{
			ID:             uuid.NewString(),
			ArtifactID:     decision.ArtifactID,
			ContentHash:    hash,
			ParentHash:     parentHash,
			ChangeOrigin:   registry.OriginSync,
			VersionLineage: lineage,
			CreatedAt:      time.Now().UTC(),
		}
		if _, err := tx.AppendVersion(ctx, version); err != nil {
			return "", err
		}
		return decision.ArtifactID, nil

	default: // CreateNewArtifact
		artifactID := uuid.NewString()
		artifact := &registry.Artifact{
			ID:        artifactID,
			Type:      child.Type,
			Name:      child.Name,
			CreatedAt: time.Now().UTC(),
		}
		if _, err := tx.UpsertArtifact(ctx, artifact); err != nil {
			return "", err
		}
		version := &registry.ArtifactVersion{
			ID:             uuid.NewString(),
			ArtifactID:     artifactID,
			ContentHash:    hash,
			ChangeOrigin:   registry.OriginSync,
			VersionLineage: []string{hash},
			CreatedAt:      time.Now().UTC(),
		}
		if _, err := tx.AppendVersion(ctx, version); err != nil {
			return "", err
		}
		return artifactID, nil
	}
}
