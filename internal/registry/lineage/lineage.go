// Package lineage implements the pure, DB-free version-lineage
// algorithms. Ported from original_source/skillmeat/core/version_lineage.py
// (build_version_lineage, find_common_ancestor, trace_lineage_path). Kept
// session-free, the same pure-function testability style the
// deployment-set resolver also follows, so it can be unit tested without
// a database.
package lineage

// Ancestor is the minimal view of an ArtifactVersion this package needs:
// its own content hash and its already-built lineage (root -> current).
type Ancestor struct {
	ContentHash string
	Lineage     []string
}

// Build extends parentLineage (the parent version's lineage, or nil if the
// parent has none / doesn't exist) with currentHash.
//
//   - parentHash == "" (root version): returns [currentHash].
//   - parent exists with a lineage: returns parentLineage + [currentHash].
//   - parent exists without a lineage (legacy row): returns
//     [parentHash, currentHash].
//   - parent does not exist at all (orphan): returns [currentHash].
func Build(parentHash string, parentLineage []string, parentExists bool, currentHash string) []string {
	if parentHash == "" {
		return []string{currentHash}
	}
	if parentExists {
		if len(parentLineage) > 0 {
			out := make([]string, 0, len(parentLineage)+1)
			out = append(out, parentLineage...)
			out = append(out, currentHash)
			return out
		}
		return []string{parentHash, currentHash}
	}
	return []string{currentHash}
}

// CommonAncestor returns the most recent hash shared by both lineages, or
// "" if either lineage is empty or they share nothing. "Most recent" means
// the common hash that appears last in lineageA.
func CommonAncestor(lineageA, lineageB []string) string {
	if len(lineageA) == 0 || len(lineageB) == 0 {
		return ""
	}
	inB := make(map[string]bool, len(lineageB))
	for _, h := range lineageB {
		inB[h] = true
	}
	for i := len(lineageA) - 1; i >= 0; i-- {
		if inB[lineageA[i]] {
			return lineageA[i]
		}
	}
	return ""
}

// TracePath returns the ordered slice of hashes connecting from and to,
// inclusive. It first tries a forward path within lineageTo (from precedes
// to); failing that, a backward path within lineageFrom, reversed so the
// result always reads from -> to. Returns nil if neither lineage contains
// both endpoints.
func TracePath(from, to string, lineageFrom, lineageTo []string) []string {
	if fromIdx, toIdx, ok := indexBoth(lineageTo, from, to); ok && fromIdx <= toIdx {
		return append([]string(nil), lineageTo[fromIdx:toIdx+1]...)
	}
	if fromIdx, toIdx, ok := indexBoth(lineageFrom, from, to); ok && toIdx <= fromIdx {
		segment := lineageFrom[toIdx : fromIdx+1]
		reversed := make([]string, len(segment))
		for i, h := range segment {
			reversed[len(segment)-1-i] = h
		}
		return reversed
	}
	return nil
}

func indexBoth(lineage []string, a, b string) (idxA, idxB int, ok bool) {
	idxA, idxB = -1, -1
	for i, h := range lineage {
		if h == a {
			idxA = i
		}
		if h == b {
			idxB = i
		}
	}
	return idxA, idxB, idxA != -1 && idxB != -1
}

// Depth returns len(lineage)-1, 0 for an empty lineage.
func Depth(lineage []string) int {
	if len(lineage) == 0 {
		return 0
	}
	return len(lineage) - 1
}
