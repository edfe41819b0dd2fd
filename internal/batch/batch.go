// Package batch implements bulk artifact import: validate every
// candidate up front, then import or skip each one independently.
// Unlike internal/composite, a batch import is not transactional: a
// failure on one item never rolls back items already committed.
//
// Ported from original_source/skillmeat/core/importer.py's
// ArtifactImporter.bulk_import / _validate_batch / _check_duplicate /
// _import_single. Metrics and the OpenTelemetry-style log_performance
// wrapper in that source stay out of scope; observability here goes
// through internal/obs like the rest of the tree.
package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skillmeat/skillmeat/internal/cache/sqlite"
	"github.com/skillmeat/skillmeat/internal/collection"
	"github.com/skillmeat/skillmeat/internal/contenthash"
	"github.com/skillmeat/skillmeat/internal/dedup"
	"github.com/skillmeat/skillmeat/internal/errs"
	"github.com/skillmeat/skillmeat/internal/obs"
	"github.com/skillmeat/skillmeat/internal/registry"
)

// validTypes is the closed set of artifact kinds a bulk import accepts.
// Context-entity variants (config, spec, rule, progress_template) are
// registry.ArtifactType values too, but bulk import sticks to the same
// five the original source validated.
var validTypes = map[registry.ArtifactType]bool{
	registry.TypeSkill:   true,
	registry.TypeCommand: true,
	registry.TypeAgent:   true,
	registry.TypeHook:    true,
	registry.TypeMCP:     true,
}

// Item is a single artifact requested for import.
type Item struct {
	Source string // "owner/repo/path[@version]" or "local/..."; validated for shape only
	Type   registry.ArtifactType
	Name   string // derived from Source's last path segment if empty
	Path   string // local filesystem path to hash and import; required, an item without one is reported failed
	Scope  string // "user" or "local"
	Tags   []string
}

// id returns the "type:name" identity used in Result entries, deriving
// Name from Source when the caller left it blank.
func (it Item) id() string {
	name := it.Name
	if name == "" {
		last := it.Source
		if i := strings.LastIndex(last, "/"); i >= 0 {
			last = last[i+1:]
		}
		if i := strings.Index(last, "@"); i >= 0 {
			last = last[:i]
		}
		name = last
	}
	return fmt.Sprintf("%s:%s", it.Type, name)
}

// ItemResult is the per-item outcome of Import.
type ItemResult struct {
	ArtifactID string // "type:name", for display
	StoreID    string // the registry row's UUID; set on every successful item, the existing row's for a skipped duplicate
	Success    bool
	Skipped    bool // true when Success is true because a duplicate was skipped
	Message    string
	Error      string
	Decision   dedup.Decision
}

// Result is the outcome of a whole batch.
type Result struct {
	TotalRequested int
	TotalImported  int
	TotalFailed    int
	Items          []ItemResult
	Duration       time.Duration
}

// validate checks one item against the rules _validate_batch enforces:
// a known artifact type, a source that at least looks like
// "something/something", and a recognized scope.
func validate(it Item) error {
	if !validTypes[it.Type] {
		return errs.New(errs.Validation, fmt.Sprintf("invalid artifact type: %s", it.Type))
	}
	if it.Source == "" || !strings.Contains(it.Source, "/") {
		return errs.New(errs.Validation, fmt.Sprintf("invalid source format: %q", it.Source))
	}
	scope := it.Scope
	if scope == "" {
		scope = "user"
	}
	if scope != "user" && scope != "local" {
		return errs.New(errs.Validation, fmt.Sprintf("invalid scope: %q", it.Scope))
	}
	return nil
}

// ValidateBatch validates every item and returns the (index, error)
// pairs for the ones that fail; a nil return means the whole batch is
// clean.
func ValidateBatch(items []Item) map[int]error {
	var bad map[int]error
	for i, it := range items {
		if err := validate(it); err != nil {
			if bad == nil {
				bad = make(map[int]error)
			}
			bad[i] = err
		}
	}
	return bad
}

// Import validates every item, then imports or skips each one in turn.
//
// If validation fails for any item and autoResolveConflicts is false,
// the whole batch is rejected up front: no item is imported and every
// result reports its own validation error, mirroring
// ArtifactImporter.bulk_import's short-circuit. Otherwise the items
// that did pass validation are imported; items that failed validation
// are still reported as failed but no longer block their siblings.
//
// A name+type match already present in the registry counts as a
// duplicate. With autoResolveConflicts set the duplicate is skipped
// (reported as a successful, skipped import, matching the Python
// source counting it "as success since it exists"); otherwise it is
// reported as a failure.
//
// Cancellation via ctx is honored between items, never mid-item: a
// canceled batch keeps every item already committed.
//
// coll may be nil, in which case the registry is updated but no
// collection.toml membership entry is written (useful for a registry-only
// import, or in tests that don't need the manifest side effect).
func Import(ctx context.Context, store *sqlite.Store, coll *collection.Store, items []Item, autoResolveConflicts bool) (*Result, error) {
	start := time.Now()
	result := &Result{TotalRequested: len(items)}

	invalid := ValidateBatch(items)
	if len(invalid) > 0 && !autoResolveConflicts {
		for i, it := range items {
			if err := invalid[i]; err != nil {
				result.Items = append(result.Items, ItemResult{
					ArtifactID: it.id(), Success: false, Message: "Validation failed", Error: err.Error(),
				})
				result.TotalFailed++
				continue
			}
			result.Items = append(result.Items, ItemResult{
				ArtifactID: it.id(), Success: false, Message: "Validation failed", Error: "batch rejected: sibling item failed validation",
			})
			result.TotalFailed++
		}
		result.Duration = time.Since(start)
		return result, nil
	}

	for i, it := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := invalid[i]; err != nil {
			result.Items = append(result.Items, ItemResult{
				ArtifactID: it.id(), Success: false, Message: "Validation failed", Error: err.Error(),
			})
			result.TotalFailed++
			continue
		}

		item := it
		ir := importOne(ctx, store, item, autoResolveConflicts)
		result.Items = append(result.Items, ir)
		if ir.Success {
			result.TotalImported++
			if coll != nil && !ir.Skipped && ir.StoreID != "" {
				if err := addToManifest(coll, ir.StoreID, item); err != nil {
					obs.Warnf("batch import: manifest update failed for %s: %v", ir.ArtifactID, err)
				}
			}
		} else {
			result.TotalFailed++
		}
	}

	result.Duration = time.Since(start)
	obs.Infof("batch import: %d imported, %d failed (of %d requested)", result.TotalImported, result.TotalFailed, result.TotalRequested)
	return result, nil
}

func importOne(ctx context.Context, store *sqlite.Store, it Item, autoResolveConflicts bool) ItemResult {
	id := it.id()

	existing, err := store.FindArtifactByNameType(ctx, nameFromID(id), it.Type)
	if err != nil {
		return ItemResult{ArtifactID: id, Success: false, Message: "Import failed", Error: err.Error()}
	}
	if existing != nil {
		if autoResolveConflicts {
			return ItemResult{ArtifactID: id, StoreID: existing.ID, Success: true, Skipped: true, Message: "Skipped (already exists)"}
		}
		return ItemResult{ArtifactID: id, Success: false, Message: "Import failed", Error: "artifact already exists in collection"}
	}

	if it.Path == "" {
		return ItemResult{ArtifactID: id, Success: false, Message: "Import failed", Error: fmt.Sprintf("source %q requires a local path to import from", it.Source)}
	}

	hash, err := contenthash.Hash(it.Path)
	if err != nil {
		obs.Warnf("batch import: hash %s failed: %v", it.Path, err)
		return ItemResult{ArtifactID: id, Success: false, Message: "Import failed", Error: err.Error()}
	}

	decision, err := dedup.Resolve(ctx, store, nameFromID(id), it.Type, hash, nil)
	if err != nil {
		return ItemResult{ArtifactID: id, Success: false, Message: "Import failed", Error: err.Error()}
	}

	storeID, err := commit(ctx, store, it, nameFromID(id), hash, decision)
	if err != nil {
		obs.Warnf("batch import: commit %s failed: %v", id, err)
		return ItemResult{ArtifactID: id, Success: false, Message: "Import failed", Error: err.Error()}
	}
	return ItemResult{ArtifactID: id, StoreID: storeID, Success: true, Message: "Imported successfully", Decision: decision.Decision}
}

// addToManifest records a newly-imported artifact's collection
// membership, the same manifest mutation cmd/skillmeat/discover.go
// performs after a successful import.
func addToManifest(coll *collection.Store, storeID string, it Item) error {
	return coll.Mutate(func(m *collection.Manifest) error {
		for _, entry := range m.Artifacts {
			if entry.ID == storeID {
				return nil
			}
		}
		m.Artifacts = append(m.Artifacts, collection.ArtifactEntry{
			ID: storeID, Type: string(it.Type), Name: nameFromID(it.id()), Path: it.Path, Tags: it.Tags,
		})
		return nil
	})
}

func nameFromID(id string) string {
	if i := strings.Index(id, ":"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// commit performs the registry write implied by decision, the same
// three-way branch internal/composite's commitChild and
// cmd/skillmeat's importArtifact use, duplicated here rather than
// shared because each caller's surrounding transaction semantics
// differ (composite is transactional, this is not).
func commit(ctx context.Context, store *sqlite.Store, it Item, name string, hash string, decision dedup.Result) (string, error) {
	switch decision.Decision {
	case dedup.LinkExisting:
		return decision.ArtifactID, nil

	case dedup.CreateNewVersion:
		latest, err := store.Latest(ctx, decision.ArtifactID)
		if err != nil {
			return "", err
		}
		var parentHash string
		lineage := []string{hash}
		if latest != nil {
			parentHash = latest.ContentHash
			lineage = append(append([]string{}, latest.VersionLineage...), hash)
		}
		if _, err := store.AppendVersion(ctx, &registry.ArtifactVersion{
			ID: uuid.NewString(), ArtifactID: decision.ArtifactID, ContentHash: hash, ParentHash: parentHash,
			ChangeOrigin: registry.OriginSync, VersionLineage: lineage, CreatedAt: time.Now().UTC(),
		}); err != nil {
			return "", err
		}
		return decision.ArtifactID, nil

	default: // CreateNewArtifact
		artifactID := uuid.NewString()
		art, err := store.UpsertArtifact(ctx, &registry.Artifact{
			ID: artifactID, Type: it.Type, Name: name, ProjectID: registry.SentinelProjectID,
		})
		if err != nil {
			return "", err
		}
		if _, err := store.AppendVersion(ctx, &registry.ArtifactVersion{
			ID: uuid.NewString(), ArtifactID: art.ID, ContentHash: hash, ChangeOrigin: registry.OriginSync,
			VersionLineage: []string{hash}, CreatedAt: time.Now().UTC(),
		}); err != nil {
			return "", err
		}
		return art.ID, nil
	}
}
