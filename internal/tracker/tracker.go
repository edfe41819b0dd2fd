// Package tracker maintains the per-profile-root deployment ledger: a
// TOML file at <project>/<profile.root_dir>/.skillmeat-deployed.toml
// recording which artifact version is currently materialized at each
// target path, so redeploys and prunes know what they own.
package tracker

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"

	"github.com/skillmeat/skillmeat/internal/errs"
	"github.com/skillmeat/skillmeat/internal/obs"
)

// LedgerFilename is the tracker file's name within a profile root.
const LedgerFilename = ".skillmeat-deployed.toml"

// Record is one deployed artifact's ledger entry, mirroring spec's
// DeploymentRecord shape.
type Record struct {
	ArtifactUUID        string    `toml:"artifact_uuid"`
	ArtifactType        string    `toml:"artifact_type"`
	ArtifactName        string    `toml:"artifact_name"`
	ArtifactPath        string    `toml:"artifact_path"` // project-root-relative deployed path
	FromCollection      string    `toml:"from_collection,omitempty"`
	DeployedAt          time.Time `toml:"deployed_at"`
	CollectionSHA       string    `toml:"collection_sha,omitempty"`
	ContentHash         string    `toml:"content_hash"`
	MergeBaseSnapshot   string    `toml:"merge_base_snapshot,omitempty"`
	LocalModifications  bool      `toml:"local_modifications"`
	VersionLineage      []string  `toml:"version_lineage,omitempty"`
	DeploymentProfileID string    `toml:"deployment_profile_id,omitempty"`
	Platform            string    `toml:"platform,omitempty"`
	ProfileRootDir      string    `toml:"profile_root_dir,omitempty"`
}

type ledgerFile struct {
	Records []Record `toml:"deployed"`
}

// Ledger guards one profile root's tracker file with a reentrant,
// per-file flock.
type Ledger struct {
	path            string
	lock            *flock.Flock
	fallbackRootDir string // basename of the profile root, used by legacy backfill
}

// Open returns a handle for the ledger under profileRoot.
func Open(profileRoot string) *Ledger {
	path := filepath.Join(profileRoot, LedgerFilename)
	return &Ledger{path: path, lock: flock.New(path + ".lock"), fallbackRootDir: filepath.Base(profileRoot)}
}

// profileRootToPlatform maps the well-known profile root directory names
// to their platform id, per spec §6's recognized values.
var profileRootToPlatform = map[string]string{
	".claude": "claude_code",
	".codex":  "codex",
	".gemini": "gemini",
	".cursor": "cursor",
}

// inferRootFromPath returns the leading known profile-root segment of a
// project-relative artifact path (e.g. ".claude" from
// ".claude/skills/foo/SKILL.md"), or "" if none matches.
func inferRootFromPath(artifactPath string) string {
	slash := filepath.ToSlash(artifactPath)
	for root := range profileRootToPlatform {
		if strings.HasPrefix(slash, root+"/") {
			return root
		}
	}
	return ""
}

// backfillLegacy fills deployment_profile_id/platform/profile_root_dir on
// records written before profile-aware deploys tracked them, the same
// inference migrate_to_deployment_profiles.py's
// infer_record_profile_metadata performs: profile_root_dir from the
// record's own artifact_path prefix (falling back to the ledger's own
// directory name), platform/deployment_profile_id from a reverse lookup
// of that root. Fields already populated are never overwritten.
func backfillLegacy(rec Record, fallbackRootDir string) Record {
	if rec.ProfileRootDir == "" {
		rec.ProfileRootDir = inferRootFromPath(rec.ArtifactPath)
		if rec.ProfileRootDir == "" {
			rec.ProfileRootDir = fallbackRootDir
		}
	}
	platform, known := profileRootToPlatform[rec.ProfileRootDir]
	if !known {
		platform = "other"
	}
	if rec.DeploymentProfileID == "" {
		rec.DeploymentProfileID = platform
	}
	if rec.Platform == "" {
		rec.Platform = platform
	}
	return rec
}

// Load reads every record currently in the ledger. A missing or
// malformed file degrades to an empty list rather than erroring: a
// fresh deploy target legitimately has no ledger yet.
func (l *Ledger) Load() ([]Record, error) {
	if locked, err := l.lock.TryRLock(); err != nil {
		return nil, errs.Wrap(errs.TransientIO, "lock ledger for read", err)
	} else if locked {
		defer l.lock.Unlock()
	}
	return l.loadLocked()
}

func (l *Ledger) loadLocked() ([]Record, error) {
	raw, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "read ledger", err)
	}
	var f ledgerFile
	if _, err := toml.Decode(string(raw), &f); err != nil {
		obs.Warnf("tracker: ledger %s failed to parse, treating as empty: %v", l.path, err)
		return nil, nil
	}
	for i, rec := range f.Records {
		f.Records[i] = backfillLegacy(rec, l.fallbackRootDir)
	}
	return f.Records, nil
}

// Put inserts or replaces the record for the given artifact path and
// writes the ledger back atomically (temp file + rename).
func (l *Ledger) Put(rec Record) error {
	if err := l.lock.Lock(); err != nil {
		return errs.Wrap(errs.TransientIO, "lock ledger for write", err)
	}
	defer l.lock.Unlock()

	records, err := l.loadLocked()
	if err != nil {
		return err
	}
	replaced := false
	for i, r := range records {
		if r.ArtifactPath == rec.ArtifactPath {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}
	return l.writeLocked(records)
}

// Remove deletes the record for artifactPath, if present.
func (l *Ledger) Remove(artifactPath string) error {
	if err := l.lock.Lock(); err != nil {
		return errs.Wrap(errs.TransientIO, "lock ledger for write", err)
	}
	defer l.lock.Unlock()

	records, err := l.loadLocked()
	if err != nil {
		return err
	}
	out := records[:0]
	for _, r := range records {
		if r.ArtifactPath != artifactPath {
			out = append(out, r)
		}
	}
	return l.writeLocked(out)
}

func (l *Ledger) writeLocked(records []Record) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.TransientIO, "create ledger directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".deployed-*.tmp")
	if err != nil {
		return errs.Wrap(errs.TransientIO, "create temp ledger file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(ledgerFile{Records: records}); err != nil {
		tmp.Close()
		return errs.Wrap(errs.TransientIO, "encode ledger", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.TransientIO, "close temp ledger file", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		return errs.Wrap(errs.TransientIO, "rename temp ledger file into place", err)
	}
	return nil
}
