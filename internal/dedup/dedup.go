// Package dedup implements the deduplication resolver: given
// an incoming (name, type, content hash) triple, decide whether the import
// should link to an existing version, append a new version to an existing
// artifact, or create a brand-new artifact.
//
// Ported from original_source/skillmeat/core/deduplication.py, including
// its optional OpenTelemetry span wrapper with graceful no-op fallback:
// tracing export itself stays an external concern, but the hook
// point is part of the component's shape in the source it was distilled
// from.
package dedup

import (
	"context"

	"github.com/skillmeat/skillmeat/internal/registry"
)

// Decision is the outcome of a deduplication check.
type Decision string

const (
	// LinkExisting: an ArtifactVersion with this content hash already
	// exists. The caller performs no writes to the registry.
	LinkExisting Decision = "link_existing"
	// CreateNewVersion: an Artifact with the same name+type exists but no
	// version has this content hash. The caller appends a new version
	// whose parent is the artifact's latest.
	CreateNewVersion Decision = "create_new_version"
	// CreateNewArtifact: neither hash nor name/type matched. The caller
	// creates both the artifact and its root version.
	CreateNewArtifact Decision = "create_new_artifact"
)

// Result is the full outcome of Resolve.
type Result struct {
	Decision          Decision
	ArtifactID        string // set for LinkExisting and CreateNewVersion
	ArtifactVersionID string // set only for LinkExisting
	Reason            string
}

// Span is the minimal tracing hook Resolve will use if provided. A nil
// Tracer disables instrumentation entirely (the graceful no-op fallback
// mirrored from the Python source's try/except ImportError pattern).
type Span interface {
	SetAttribute(key, value string)
	End()
}

// Tracer starts a Span for a named operation.
type Tracer interface {
	Start(ctx context.Context, name string) (context.Context, Span)
}

// Resolve determines how an incoming artifact import should be handled.
// name is compared case-insensitively; artifactType is compared exactly.
// tracer may be nil.
func Resolve(ctx context.Context, store registry.Store, name string, artifactType registry.ArtifactType, contentHash string, tracer Tracer) (Result, error) {
	var span Span
	if tracer != nil {
		ctx, span = tracer.Start(ctx, "artifact.dedup_resolve")
		span.SetAttribute("artifact_name", name)
		span.SetAttribute("content_hash", contentHash)
		defer span.End()
	}

	// Scenario A: exact content hash match.
	existingVersion, err := store.GetVersion(ctx, contentHash)
	if err != nil {
		return Result{}, err
	}
	if existingVersion != nil {
		if span != nil {
			span.SetAttribute("decision", string(LinkExisting))
		}
		return Result{
			Decision:          LinkExisting,
			ArtifactID:        existingVersion.ArtifactID,
			ArtifactVersionID: existingVersion.ID,
			Reason:            "content hash already exists in the registry; linking to existing artifact",
		}, nil
	}

	// Scenario B: same name+type, different content hash.
	existingArtifact, err := store.FindArtifactByNameType(ctx, name, artifactType)
	if err != nil {
		return Result{}, err
	}
	if existingArtifact != nil {
		if span != nil {
			span.SetAttribute("decision", string(CreateNewVersion))
		}
		return Result{
			Decision:   CreateNewVersion,
			ArtifactID: existingArtifact.ID,
			Reason:     "artifact already exists with a different content hash; a new version will be appended",
		}, nil
	}

	// Scenario C: no match at all.
	if span != nil {
		span.SetAttribute("decision", string(CreateNewArtifact))
	}
	return Result{
		Decision: CreateNewArtifact,
		Reason:   "no existing artifact found; a new artifact and initial version will be created",
	}, nil
}
