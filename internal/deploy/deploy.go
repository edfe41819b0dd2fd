// Package deploy materializes artifacts from the collection store onto a
// project's filesystem under a resolved deployment profile:
// variable substitution, atomic staging, overwrite-skip semantics, and
// ledger bookkeeping. Fan-out across a deployment set's artifacts uses
// golang.org/x/sync/errgroup for a bounded worker pool.
package deploy

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/skillmeat/skillmeat/internal/cache/sqlite"
	"github.com/skillmeat/skillmeat/internal/contenthash"
	"github.com/skillmeat/skillmeat/internal/errs"
	"github.com/skillmeat/skillmeat/internal/obs"
	"github.com/skillmeat/skillmeat/internal/profile"
	"github.com/skillmeat/skillmeat/internal/registry"
	"github.com/skillmeat/skillmeat/internal/tracker"
)

// Variables is the whitelisted set of substitution tokens honored inside
// deployed file content. Any other "{{NAME}}" token is left
// untouched.
type Variables struct {
	ProjectName             string
	ProjectDescription      string
	Author                  string
	Date                    string
	ArchitectureDescription string
}

var variablePattern = regexp.MustCompile(`\{\{(PROJECT_NAME|PROJECT_DESCRIPTION|AUTHOR|DATE|ARCHITECTURE_DESCRIPTION)\}\}`)

// Substitute replaces whitelisted {{TOKEN}} placeholders in content.
// Unrecognized tokens are left as-is rather than erroring: an artifact
// author's own literal "{{SOMETHING}}" text should not be mangled.
func Substitute(content []byte, vars Variables) []byte {
	values := map[string]string{
		"PROJECT_NAME":             vars.ProjectName,
		"PROJECT_DESCRIPTION":      vars.ProjectDescription,
		"AUTHOR":                   vars.Author,
		"DATE":                     vars.Date,
		"ARCHITECTURE_DESCRIPTION": vars.ArchitectureDescription,
	}
	return variablePattern.ReplaceAllFunc(content, func(match []byte) []byte {
		token := string(match[2 : len(match)-2])
		return []byte(values[token])
	})
}

// File is one file to materialize, relative to the artifact's own root.
type File struct {
	RelPath string
	Content []byte
}

// Request describes a single artifact's deployment.
type Request struct {
	ArtifactID     string
	ArtifactType   string
	Name           string
	CollectionSHA  string // content hash of the artifact's current registry version, pre-substitution
	FromCollection string // collection root the artifact was sourced from
	Files          []File
	Overwrite      bool // false: skip files that already exist, matching spec default
	DryRun         bool
}

// Outcome reports what happened to one artifact's deployment.
type Outcome struct {
	ArtifactID string
	Written    []string
	Skipped    []string
	Err        error
}

// Materializer deploys artifacts under a single resolved profile and
// project root.
type Materializer struct {
	ProjectRoot string
	Profile     *profile.Profile
	Vars        Variables
	Ledger      *tracker.Ledger

	// Store, if set, lets Deploy append a root ArtifactVersion with
	// change_origin=deployment the first time a materialized file's
	// content hash is seen for its artifact. Nil skips registry writes
	// (useful for dry runs or tests with no cache store available).
	Store *sqlite.Store
}

// Deploy writes each of req's files to a temporary file in its target's
// directory, then renames it into place, recording a ledger entry per
// file. Partial writes within one artifact's Files are possible on
// error: callers should treat a non-nil Outcome.Err as "some files may
// have been written" and consult Outcome.Written.
func (m *Materializer) Deploy(ctx context.Context, req Request) Outcome {
	out := Outcome{ArtifactID: req.ArtifactID}

	for _, f := range req.Files {
		if ctx.Err() != nil {
			out.Err = ctx.Err()
			return out
		}

		target, err := m.Profile.TargetPath(m.ProjectRoot, req.ArtifactType, req.Name, f.RelPath)
		if err != nil {
			out.Err = err
			return out
		}

		if !req.Overwrite {
			if _, statErr := os.Stat(target); statErr == nil {
				out.Skipped = append(out.Skipped, target)
				continue
			}
		}

		if req.DryRun {
			out.Written = append(out.Written, target)
			continue
		}

		content := Substitute(f.Content, m.Vars)
		if err := writeAtomic(target, content); err != nil {
			out.Err = err
			return out
		}
		out.Written = append(out.Written, target)

		contentHash := contenthash.HashBytes(content)

		var mergeBase string
		var lineage []string
		if m.Store != nil {
			var verErr error
			mergeBase, lineage, verErr = m.recordDeploymentVersion(ctx, req.ArtifactID, contentHash)
			if verErr != nil {
				// Version tracking is a best-effort side channel; per
				// the failure-isolation policy it never aborts a
				// deploy that already wrote its file.
				obs.Warnf("deploy: version tracking failed for %s: %v", req.ArtifactID, verErr)
			}
		}

		if m.Ledger != nil {
			relPath, relErr := filepath.Rel(m.ProjectRoot, target)
			if relErr != nil {
				relPath = target
			}
			rec := tracker.Record{
				ArtifactUUID:        req.ArtifactID,
				ArtifactType:        req.ArtifactType,
				ArtifactName:        req.Name,
				ArtifactPath:        filepath.ToSlash(relPath),
				FromCollection:      req.FromCollection,
				DeployedAt:          time.Now().UTC(),
				CollectionSHA:       req.CollectionSHA,
				ContentHash:         contentHash,
				MergeBaseSnapshot:   mergeBase,
				LocalModifications:  false,
				VersionLineage:      lineage,
				DeploymentProfileID: m.Profile.ID,
				Platform:            m.Profile.Platform,
				ProfileRootDir:      m.Profile.RootDir,
			}
			if err := m.Ledger.Put(rec); err != nil {
				out.Err = err
				return out
			}
		}
	}
	return out
}

// recordDeploymentVersion appends a root ArtifactVersion with
// change_origin=deployment the first time contentHash is seen for
// artifactID, mirroring create_deployment_version's idempotent-on-hash
// behavior: a repeat deploy of unchanged content is a no-op. It returns
// the artifact's previous latest content hash (the merge-base snapshot)
// and the resulting version's lineage.
func (m *Materializer) recordDeploymentVersion(ctx context.Context, artifactID, contentHash string) (mergeBase string, lineage []string, err error) {
	latest, err := m.Store.Latest(ctx, artifactID)
	if err != nil {
		return "", nil, err
	}
	if latest != nil {
		mergeBase = latest.ContentHash
	}

	existing, err := m.Store.GetVersion(ctx, contentHash)
	if err != nil {
		return mergeBase, nil, err
	}
	if existing != nil {
		return mergeBase, existing.VersionLineage, nil
	}

	v := &registry.ArtifactVersion{
		ID:             uuid.NewString(),
		ArtifactID:     artifactID,
		ContentHash:    contentHash,
		ChangeOrigin:   registry.OriginDeployment,
		VersionLineage: []string{contentHash},
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := m.Store.AppendVersion(ctx, v); err != nil {
		return mergeBase, nil, err
	}
	return mergeBase, v.VersionLineage, nil
}

// DeployBatch fans Deploy out across a set of requests with bounded
// concurrency, capturing each artifact's Outcome independently rather
// than aborting the batch on the first failure.
func (m *Materializer) DeployBatch(ctx context.Context, requests []Request, concurrency int) []Outcome {
	if concurrency <= 0 {
		concurrency = 4
	}
	outcomes := make([]Outcome, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			outcomes[i] = m.Deploy(gctx, req)
			return nil // per-artifact errors live in Outcome, not the group
		})
	}
	_ = g.Wait()
	return outcomes
}

func writeAtomic(target string, content []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.TransientIO, "create target directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".deploy-*.tmp")
	if err != nil {
		return errs.Wrap(errs.TransientIO, "create temp deploy file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return errs.Wrap(errs.TransientIO, "write temp deploy file", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.TransientIO, "close temp deploy file", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return errs.Wrap(errs.TransientIO, "chmod temp deploy file", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return errs.Wrap(errs.TransientIO, "rename temp deploy file into place", err)
	}
	return nil
}

// bytesEqual reports whether a and b hold the same bytes.
func bytesEqual(a, b []byte) bool {
	return bytes.Equal(a, b)
}
