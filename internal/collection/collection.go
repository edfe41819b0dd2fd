// Package collection reads and writes a collection's manifest
// (collection.toml), the filesystem-side source of truth for tag
// definitions, groups, and artifact membership. The
// relational cache (internal/cache/sqlite) is a derived, rebuildable
// projection of this file plus the registry, never the other way
// round.
package collection

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"

	"github.com/skillmeat/skillmeat/internal/errs"
)

// ManifestFilename is the collection manifest's name at the collection
// root.
const ManifestFilename = "collection.toml"

// TagDefinition is one entry under [[tag_definitions]].
type TagDefinition struct {
	Slug        string `toml:"slug"`
	Name        string `toml:"name"`
	Color       string `toml:"color,omitempty"`
	Description string `toml:"description,omitempty"`
}

// Group is one entry under [[groups]]. Artifacts holds human identifiers
// in "<type>:<name>" form, matching collection.toml's authored-by-hand
// members list rather than raw registry UUIDs: a group is hand-edited
// alongside the manifest, and UUIDs aren't stable across a fresh import.
type Group struct {
	ID          string   `toml:"id"`
	Name        string   `toml:"name"`
	Description string   `toml:"description,omitempty"`
	Color       string   `toml:"color,omitempty"`
	Icon        string   `toml:"icon,omitempty"`
	Position    int      `toml:"position,omitempty"`
	Artifacts   []string `toml:"members"` // "<type>:<name>" identifiers, in display order
}

// ArtifactEntry is one entry under [[artifacts]]: the collection-level
// record of an artifact's membership, independent of its own frontmatter.
type ArtifactEntry struct {
	ID      string   `toml:"id"`
	Type    string   `toml:"type"`
	Name    string   `toml:"name"`
	Path    string   `toml:"path"` // the path the artifact was imported from, as the importer was given it
	Tags    []string `toml:"tags,omitempty"`
	Version string   `toml:"version,omitempty"`
}

// Manifest is the parsed collection.toml.
type Manifest struct {
	Name           string          `toml:"name"`
	Version        string          `toml:"version,omitempty"`
	TagDefinitions []TagDefinition `toml:"tag_definitions,omitempty"`
	Groups         []Group         `toml:"groups,omitempty"`
	Artifacts      []ArtifactEntry `toml:"artifacts,omitempty"`
	UpdatedAt      time.Time       `toml:"updated_at,omitempty"`
}

// Store guards one collection's manifest file with a reentrant
// gofrs/flock lock.
type Store struct {
	root string
	lock *flock.Flock
}

// Open returns a handle for the collection manifest rooted at root.
func Open(root string) *Store {
	return &Store{root: root, lock: flock.New(filepath.Join(root, ManifestFilename+".lock"))}
}

func (s *Store) path() string {
	return filepath.Join(s.root, ManifestFilename)
}

// Load reads and parses the manifest. A missing file returns a Manifest
// with zero values, not an error: a fresh collection directory has not
// written one yet.
func (s *Store) Load() (*Manifest, error) {
	if locked, err := s.lock.TryRLock(); err != nil {
		return nil, errs.Wrap(errs.TransientIO, "lock collection manifest for read", err)
	} else if locked {
		defer s.lock.Unlock()
	}
	return s.loadLocked()
}

func (s *Store) loadLocked() (*Manifest, error) {
	raw, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "read collection manifest", err)
	}
	var m Manifest
	if _, err := toml.Decode(string(raw), &m); err != nil {
		return nil, errs.Wrap(errs.Validation, "parse collection manifest", err)
	}
	return &m, nil
}

// Save writes m back atomically (temp file + rename), stamping UpdatedAt.
func (s *Store) Save(m *Manifest) error {
	if err := s.lock.Lock(); err != nil {
		return errs.Wrap(errs.TransientIO, "lock collection manifest for write", err)
	}
	defer s.lock.Unlock()

	m.UpdatedAt = time.Now().UTC()
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return errs.Wrap(errs.TransientIO, "create collection root", err)
	}

	tmp, err := os.CreateTemp(s.root, ".collection-*.tmp")
	if err != nil {
		return errs.Wrap(errs.TransientIO, "create temp collection manifest", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(m); err != nil {
		tmp.Close()
		return errs.Wrap(errs.TransientIO, "encode collection manifest", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.TransientIO, "close temp collection manifest", err)
	}
	if err := os.Rename(tmpPath, s.path()); err != nil {
		return errs.Wrap(errs.TransientIO, "rename temp collection manifest into place", err)
	}
	return nil
}

// Mutate loads the manifest, applies fn, and saves the result: a
// convenience wrapper held under a single lock acquisition so callers
// doing read-modify-write don't race themselves.
func (s *Store) Mutate(fn func(m *Manifest) error) error {
	if err := s.lock.Lock(); err != nil {
		return errs.Wrap(errs.TransientIO, "lock collection manifest", err)
	}
	defer s.lock.Unlock()

	m, err := s.loadLocked()
	if err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()

	tmp, err := os.CreateTemp(s.root, ".collection-*.tmp")
	if err != nil {
		return errs.Wrap(errs.TransientIO, "create temp collection manifest", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(m); err != nil {
		tmp.Close()
		return errs.Wrap(errs.TransientIO, "encode collection manifest", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.TransientIO, "close temp collection manifest", err)
	}
	return os.Rename(tmpPath, s.path())
}
