package registry

import "github.com/Masterminds/semver/v3"

// IsOutdated reports whether upstream is a newer version than deployed
// for the purposes of Artifact.Outdated. Both are first compared as
// semver; if either fails to parse (many upstream sources report commit
// shas or arbitrary tags rather than semver), the comparison falls back
// to a simple inequality, treating any mismatch as outdated.
func IsOutdated(deployed, upstream string) bool {
	if deployed == "" || upstream == "" {
		return false
	}
	deployedVer, deployedErr := semver.NewVersion(deployed)
	upstreamVer, upstreamErr := semver.NewVersion(upstream)
	if deployedErr != nil || upstreamErr != nil {
		return deployed != upstream
	}
	return upstreamVer.GreaterThan(deployedVer)
}
