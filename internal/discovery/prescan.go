package discovery

import "github.com/skillmeat/skillmeat/internal/registry"

// ExistenceClass classifies a discovered candidate by whether it is
// already present in the collection manifest and/or a project's own
// deployed artifacts.
type ExistenceClass string

const (
	ExistenceNeither        ExistenceClass = "neither"
	ExistenceCollectionOnly ExistenceClass = "collection_only"
	ExistenceProjectOnly    ExistenceClass = "project_only"
	ExistenceBoth           ExistenceClass = "both"
)

// Candidate is a discovered artifact annotated with its pre-scan
// existence classification.
type Candidate struct {
	Artifact
	Existence  ExistenceClass
	Importable bool // false only when Existence == ExistenceBoth
}

// ArtifactKey builds the "<type>:<name>" identifier existence checks and
// group member resolution key candidates by.
func ArtifactKey(artifactType registry.ArtifactType, name string) string {
	return string(artifactType) + ":" + name
}

// CheckExistence classifies each discovered artifact against the set of
// "<type>:<name>" keys already present in the collection manifest and,
// optionally, a project's deployed artifacts. Present in neither, or in
// exactly one, is importable; present in both is excluded from import
// candidates, though still reported (Importable=false) so a caller can
// surface it as "already present" rather than silently dropping it.
func CheckExistence(candidates []Artifact, collectionKeys, projectKeys map[string]bool) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, a := range candidates {
		key := ArtifactKey(a.Type, a.Name)
		inCollection := collectionKeys[key]
		inProject := projectKeys[key]

		class := ExistenceNeither
		switch {
		case inCollection && inProject:
			class = ExistenceBoth
		case inCollection:
			class = ExistenceCollectionOnly
		case inProject:
			class = ExistenceProjectOnly
		}

		out = append(out, Candidate{Artifact: a, Existence: class, Importable: class != ExistenceBoth})
	}
	return out
}
