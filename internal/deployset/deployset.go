// Package deployset resolves a deployment set into a flat, ordered,
// deduplicated list of artifact IDs.
//
// Grounded on original_source/skillmeat/core/deployment_sets.py: the
// DFS over member_map/group_map is kept exactly as a dependency-free
// function so it can be unit tested with synthetic maps, the same way
// the Python source separates _resolve_dfs from its DB-backed
// _build_member_map_from_db/_build_group_map_from_db.
package deployset

import (
	"context"
	"fmt"

	"github.com/skillmeat/skillmeat/internal/cache/sqlite"
	"github.com/skillmeat/skillmeat/internal/errs"
)

// DefaultDepthLimit bounds how deeply nested deployment sets may recurse
// before resolution is rejected as misconfigured.
const DefaultDepthLimit = 20

// Member is the in-memory shape of a deployment_set_members row: exactly
// one of ArtifactID, GroupID, MemberSetID is non-empty.
type Member struct {
	ArtifactID  string
	GroupID     string
	MemberSetID string
}

// Resolver runs the DFS expansion. DepthLimit defaults to
// DefaultDepthLimit when zero.
type Resolver struct {
	DepthLimit int
}

// ResolutionError reports a depth-limit breach, carrying the full
// traversal path so the caller can report which nested set triggered it.
type ResolutionError struct {
	SetID      string
	Path       []string
	DepthLimit int
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("deployment set %q exceeds depth limit %d: path %v", e.SetID, e.DepthLimit, e.Path)
}

// ResolveDFS expands rootSetID using pre-built in-memory maps, with no
// I/O: this is the part of the algorithm exercised directly by tests.
func (r *Resolver) ResolveDFS(rootSetID string, memberMap map[string][]Member, groupMap map[string][]string) ([]string, error) {
	limit := r.DepthLimit
	if limit == 0 {
		limit = DefaultDepthLimit
	}

	seen := map[string]bool{}
	var result []string

	var dfs func(setID string, path []string) error
	dfs = func(setID string, path []string) error {
		// path always includes the root set, so nesting depth is
		// len(path)-1: depth exactly equal to limit succeeds, only
		// limit+1 raises.
		if len(path)-1 > limit {
			return &ResolutionError{SetID: setID, Path: path, DepthLimit: limit}
		}
		for _, m := range memberMap[setID] {
			switch {
			case m.ArtifactID != "":
				if !seen[m.ArtifactID] {
					seen[m.ArtifactID] = true
					result = append(result, m.ArtifactID)
				}
			case m.GroupID != "":
				for _, id := range groupMap[m.GroupID] {
					if !seen[id] {
						seen[id] = true
						result = append(result, id)
					}
				}
			case m.MemberSetID != "":
				if err := dfs(m.MemberSetID, append(append([]string{}, path...), m.MemberSetID)); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := dfs(rootSetID, []string{rootSetID}); err != nil {
		return nil, err
	}
	return result, nil
}

// Resolve loads the member/group maps reachable from rootSetID from the
// cache store and runs ResolveDFS against them. Reachable sets are
// walked breadth-first, with one members query per set and one
// artifacts query per referenced group.
func (r *Resolver) Resolve(ctx context.Context, store *sqlite.Store, rootSetID string) ([]string, error) {
	memberMap := map[string][]Member{}
	groupMap := map[string][]string{}

	frontier := map[string]bool{rootSetID: true}
	visited := map[string]bool{}
	for len(frontier) > 0 {
		next := map[string]bool{}
		for setID := range frontier {
			if visited[setID] {
				continue
			}
			visited[setID] = true

			rows, err := store.DeploymentSetMembers(ctx, setID)
			if err != nil {
				return nil, errs.Wrap(errs.TransientIO, "load deployment set members", err)
			}
			var members []Member
			for _, row := range rows {
				m := Member{ArtifactID: row.ArtifactID, GroupID: row.GroupID, MemberSetID: row.MemberSetID}
				members = append(members, m)
				if m.MemberSetID != "" && !visited[m.MemberSetID] {
					next[m.MemberSetID] = true
				}
				if m.GroupID != "" {
					if _, ok := groupMap[m.GroupID]; !ok {
						ids, err := store.GroupArtifacts(ctx, m.GroupID)
						if err != nil {
							return nil, errs.Wrap(errs.TransientIO, "load group artifacts", err)
						}
						groupMap[m.GroupID] = ids
					}
				}
			}
			memberMap[setID] = members
		}
		frontier = next
	}

	return r.ResolveDFS(rootSetID, memberMap, groupMap)
}
