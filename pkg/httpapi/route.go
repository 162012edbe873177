package httpapi

import (
	"strings"

	"github.com/jingkaihe/skillserve/pkg/skill"
)

// routeKind discriminates the fixed set of path shapes the handler
// recognizes. Resolution is total: every normalized path maps to exactly
// one kind.
type routeKind int

const (
	routeRoot routeKind = iota
	routeIndex
	routeDocument
	routeFile
	routeRedirect
	routeInvalidName
	routeInvalidPath
	routeNotFound
)

type route struct {
	kind  routeKind
	skill string
	file  string
}

// resolveRoute matches a normalized path (leading slash, at most one
// trailing slash stripped) against the route shapes in fixed order.
//
// A malformed name in a bare /{name} path resolves to routeNotFound, not
// routeInvalidName: single-segment paths report a generic 404 while the
// deeper shapes report validation errors. Existing clients depend on the
// asymmetry, so it is kept; do not extend it to new routes.
func resolveRoute(path string) route {
	if path == "" || path == "/" {
		return route{kind: routeRoot}
	}
	if path == "/index.json" {
		return route{kind: routeIndex}
	}

	name, rest, nested := strings.Cut(strings.TrimPrefix(path, "/"), "/")

	if !nested {
		if !skill.ValidName(name) {
			return route{kind: routeNotFound}
		}
		return route{kind: routeRedirect, skill: name}
	}

	if rest == "" {
		return route{kind: routeNotFound}
	}
	if rest == skill.DocumentName {
		if !skill.ValidName(name) {
			return route{kind: routeInvalidName, skill: name, file: rest}
		}
		return route{kind: routeDocument, skill: name}
	}
	if !skill.ValidName(name) {
		return route{kind: routeInvalidName, skill: name, file: rest}
	}
	if !skill.ValidFilePath(rest) {
		return route{kind: routeInvalidPath, skill: name, file: rest}
	}
	return route{kind: routeFile, skill: name, file: rest}
}
