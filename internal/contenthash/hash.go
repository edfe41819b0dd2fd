// Package contenthash computes deterministic SHA-256 content hashes for
// artifact bodies, both single files and directory trees.
//
// Directory hashing uses a Merkle-style approach: every included file's
// relative POSIX path and SHA-256 are recorded, the records are sorted by
// path, and the sorted records are fed into a final SHA-256, so the result
// never depends on filesystem traversal order or on when files were
// created. Grounded directly on skillmeat/core/hashing.py in
// original_source.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	digest "github.com/opencontainers/go-digest"

	"github.com/skillmeat/skillmeat/internal/obs"
)

var (
	excludedDirs = map[string]bool{
		".git":            true,
		"node_modules":    true,
		"__pycache__":     true,
		".mypy_cache":     true,
		".pytest_cache":   true,
		".ruff_cache":     true,
		".tox":            true,
		"venv":            true,
		".venv":           true,
		"dist":            true,
		"build":           true,
	}

	excludedFiles = map[string]bool{
		".DS_Store": true,
		"Thumbs.db": true,
		".gitkeep":  true,
	}

	excludedPrefixes = []string{"~$", ".#"}
	excludedSuffixes = []string{".tmp", ".swp", ".swo", "~"}
)

// IsExcluded reports whether a bare file or directory name (not a full
// path) must be skipped during hashing.
func IsExcluded(name string) bool {
	if excludedFiles[name] || excludedDirs[name] {
		return true
	}
	for _, p := range excludedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, s := range excludedSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// Hash computes the content hash of path, which must be either a regular
// file or a directory. Returns a 64-hex-char SHA-256 digest string.
//
// Individual unreadable files inside a directory are skipped rather than
// failing the whole hash, logged at debug level.
func Hash(path string) (string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("missing_path: %s", path)
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	if info.Mode().IsRegular() {
		return hashFile(path)
	}
	if info.IsDir() {
		entries, err := collectEntries(path)
		if err != nil {
			return "", err
		}
		return merkleHash(entries), nil
	}
	return "", fmt.Errorf("invalid_target: %s is neither a regular file nor a directory", path)
}

// Digest is a convenience wrapper returning Hash as an OCI-style
// "sha256:<hex>" digest value, used where components want a typed,
// self-describing content identifier rather than a bare hex string.
func Digest(path string) (digest.Digest, error) {
	hex, err := Hash(path)
	if err != nil {
		return "", err
	}
	return digest.NewDigestFromEncoded(digest.SHA256, hex), nil
}

type fileEntry struct {
	relPath string
	hash    string
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the SHA-256 hex digest of raw content already in
// memory, for callers hashing post-processed bytes (e.g. deployed
// content after variable substitution) rather than a file on disk.
func HashBytes(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// obsDebugf is indirected through a var so tests can assert on skipped
// files without depending on internal/obs's global state directly.
var obsDebugf = obs.Debugf

func collectEntries(root string) ([]fileEntry, error) {
	var entries []fileEntry

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directory entry: skip rather than abort the walk.
			obsDebugf("skipping unreadable path %s: %v", p, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if p != root && d.IsDir() && IsExcluded(name) {
			return filepath.SkipDir
		}
		if d.IsDir() {
			return nil
		}
		if IsExcluded(name) {
			return nil
		}

		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			// Follow symlinks to regular files; skip anything else
			// (sockets, devices, broken links) silently.
			resolved, statErr := os.Stat(p)
			if statErr != nil || !resolved.Mode().IsRegular() {
				return nil
			}
		}

		h, err := hashFile(p)
		if err != nil {
			obsDebugf("skipping unreadable file %s: %v", p, err)
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		entries = append(entries, fileEntry{relPath: filepath.ToSlash(rel), hash: h})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func merkleHash(entries []fileEntry) string {
	sorted := make([]fileEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].relPath < sorted[j].relPath })

	h := sha256.New()
	for _, e := range sorted {
		h.Write([]byte(e.relPath))
		h.Write([]byte{0})
		h.Write([]byte(e.hash))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
