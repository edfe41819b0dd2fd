// Package external models the boundary types SkillMeat exchanges with
// marketplace catalogs and source specifiers: parsing
// "owner/repo/path[@version]" shorthand and GitHub tree/blob URLs into a
// structured reference, and the catalog entry shape a marketplace index
// returns.
package external

import (
	"net/url"
	"strings"

	"github.com/skillmeat/skillmeat/internal/errs"
)

// SourceRef is a parsed reference to content hosted in a GitHub
// repository.
type SourceRef struct {
	Owner   string
	Repo    string
	Path    string // path within the repo; empty means repo root
	Version string // branch, tag, or commit sha; empty means default branch
}

// ParseSourceSpec accepts either the short "owner/repo/path[@version]"
// form or a github.com tree/blob URL and returns a SourceRef.
func ParseSourceSpec(spec string) (SourceRef, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return SourceRef{}, errs.New(errs.Validation, "empty source spec")
	}

	if strings.Contains(spec, "github.com") {
		return parseGitHubURL(spec)
	}
	return parseShorthand(spec)
}

func parseShorthand(spec string) (SourceRef, error) {
	body, version := splitVersion(spec)
	parts := strings.SplitN(body, "/", 3)
	if len(parts) < 2 {
		return SourceRef{}, errs.New(errs.Validation, "source spec must be owner/repo[/path][@version]: "+spec)
	}
	ref := SourceRef{Owner: parts[0], Repo: parts[1], Version: version}
	if len(parts) == 3 {
		ref.Path = parts[2]
	}
	if ref.Owner == "" || ref.Repo == "" {
		return SourceRef{}, errs.New(errs.Validation, "source spec missing owner or repo: "+spec)
	}
	return ref, nil
}

func parseGitHubURL(spec string) (SourceRef, error) {
	body, version := splitVersion(spec)
	u, err := url.Parse(body)
	if err != nil {
		return SourceRef{}, errs.Wrap(errs.Validation, "parse source url", err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 {
		return SourceRef{}, errs.New(errs.Validation, "github url missing owner/repo: "+spec)
	}
	ref := SourceRef{Owner: segments[0], Repo: segments[1]}

	// .../tree/<ref>/<path...> or .../blob/<ref>/<path...>
	if len(segments) >= 4 && (segments[2] == "tree" || segments[2] == "blob") {
		ref.Version = segments[3]
		if len(segments) > 4 {
			ref.Path = strings.Join(segments[4:], "/")
		}
	}
	if version != "" {
		ref.Version = version
	}
	return ref, nil
}

// splitVersion separates a trailing "@version" suffix, being careful not
// to split on an "@" that is part of a scoped npm-style package path
// (none expected here, but we only split on the last "@" after the last
// "/" to stay conservative).
func splitVersion(spec string) (body, version string) {
	lastSlash := strings.LastIndex(spec, "/")
	at := strings.LastIndex(spec, "@")
	if at == -1 || at < lastSlash {
		return spec, ""
	}
	return spec[:at], spec[at+1:]
}

// CatalogEntry is one item in a marketplace index response.
type CatalogEntry struct {
	Name        string
	Type        string
	Description string
	Source      SourceRef
	Tags        []string
	Downloads   int
	UpdatedAt   string
}
