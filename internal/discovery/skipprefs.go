package discovery

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"

	"github.com/skillmeat/skillmeat/internal/errs"
	"github.com/skillmeat/skillmeat/internal/obs"
)

// SkipPrefsFilename is the per-project skip-list file discovery consults
// before surfacing an artifact as a pending import candidate.
const SkipPrefsFilename = ".skillmeat_skip_prefs.toml"

// SkipEntry records a single skipped artifact, keyed "<type>:<name>".
type SkipEntry struct {
	Key       string    `toml:"key"`
	Type      string    `toml:"type"`
	Name      string    `toml:"name"`
	Reason    string    `toml:"reason"`
	SkippedAt time.Time `toml:"skipped_at"`
}

type skipPrefsFile struct {
	Entries []SkipEntry `toml:"skip"`
}

// SkipPrefs guards reads/writes to the skip-preferences file for one
// project with a reentrant file lock.
type SkipPrefs struct {
	path string
	lock *flock.Flock
}

// OpenSkipPrefs returns a handle for the skip-prefs file under
// <projectClaudeDir>/.skillmeat_skip_prefs.toml.
func OpenSkipPrefs(projectClaudeDir string) *SkipPrefs {
	path := filepath.Join(projectClaudeDir, SkipPrefsFilename)
	return &SkipPrefs{path: path, lock: flock.New(path + ".lock")}
}

// Load reads the skip list. A missing file returns an empty list, not an
// error. A file that fails to parse (e.g. duplicate TOML keys) is
// treated the same way: discovery degrades to "nothing is skipped"
// rather than failing the whole scan, and the parse failure is logged as
// a warning.
func (p *SkipPrefs) Load() ([]SkipEntry, error) {
	if locked, err := p.lock.TryRLock(); err != nil {
		return nil, errs.Wrap(errs.TransientIO, "lock skip prefs for read", err)
	} else if locked {
		defer p.lock.Unlock()
	}

	raw, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "read skip prefs", err)
	}

	var f skipPrefsFile
	if _, err := toml.Decode(string(raw), &f); err != nil {
		obs.Warnf("discovery: skip prefs file %s failed to parse, treating as empty: %v", p.path, err)
		return nil, nil
	}
	return f.Entries, nil
}

// Add appends an entry (idempotent on Key) and writes the file back
// atomically: temp file in the same directory, then os.Rename.
func (p *SkipPrefs) Add(entry SkipEntry) error {
	if err := p.lock.Lock(); err != nil {
		return errs.Wrap(errs.TransientIO, "lock skip prefs for write", err)
	}
	defer p.lock.Unlock()

	entries, err := p.loadLocked()
	if err != nil {
		return err
	}

	replaced := false
	for i, e := range entries {
		if e.Key == entry.Key {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	return p.writeLocked(entries)
}

// Remove deletes the entry for key, if present.
func (p *SkipPrefs) Remove(key string) error {
	if err := p.lock.Lock(); err != nil {
		return errs.Wrap(errs.TransientIO, "lock skip prefs for write", err)
	}
	defer p.lock.Unlock()

	entries, err := p.loadLocked()
	if err != nil {
		return err
	}
	out := entries[:0]
	for _, e := range entries {
		if e.Key != key {
			out = append(out, e)
		}
	}
	return p.writeLocked(out)
}

// loadLocked assumes the caller already holds the lock.
func (p *SkipPrefs) loadLocked() ([]SkipEntry, error) {
	raw, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "read skip prefs", err)
	}
	var f skipPrefsFile
	if _, err := toml.Decode(string(raw), &f); err != nil {
		obs.Warnf("discovery: skip prefs file %s failed to parse, starting fresh: %v", p.path, err)
		return nil, nil
	}
	return f.Entries, nil
}

func (p *SkipPrefs) writeLocked(entries []SkipEntry) error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.TransientIO, "create skip prefs directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".skip-prefs-*.tmp")
	if err != nil {
		return errs.Wrap(errs.TransientIO, "create temp skip prefs file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(skipPrefsFile{Entries: entries}); err != nil {
		tmp.Close()
		return errs.Wrap(errs.TransientIO, "encode skip prefs", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.TransientIO, "close temp skip prefs file", err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		return errs.Wrap(errs.TransientIO, "rename temp skip prefs file into place", err)
	}
	return nil
}
