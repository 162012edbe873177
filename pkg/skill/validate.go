package skill

import (
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	// MaxNameLen bounds skill names.
	MaxNameLen = 64
	// MaxDescriptionLen bounds skill descriptions.
	MaxDescriptionLen = 1024
)

// ValidName reports whether name is a well-formed skill name: 1-64
// characters of [a-z0-9-], no leading or trailing hyphen, no doubled
// hyphen. Scanned in one linear pass rather than a lookaround regex.
func ValidName(name string) bool {
	if len(name) == 0 || len(name) > MaxNameLen {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
			if i == 0 || i == len(name)-1 || name[i-1] == '-' {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// ValidFilePath reports whether path is a safe skill-relative file path.
// It rejects absolute paths, any ".." occurrence, backslashes, URL
// query/fragment characters, and control or non-ASCII bytes. The check
// never touches a filesystem, so non-filesystem providers can rely on it
// for the same traversal guarantees.
func ValidFilePath(path string) bool {
	if path == "" || path[0] == '/' {
		return false
	}
	if strings.Contains(path, "..") {
		return false
	}
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c <= 0x1F || c >= 0x7F {
			return false
		}
		switch c {
		case '\\', '?', '#', '[', ']':
			return false
		}
	}
	return true
}

// ValidFrontmatter reports whether an untyped record (typically the
// decoded YAML frontmatter of a SKILL.md) carries a string name passing
// ValidName and a string description of length in [1, MaxDescriptionLen].
// Any other shape, including non-map input, is rejected without panicking.
func ValidFrontmatter(record any) bool {
	if record == nil {
		return false
	}
	var md Metadata
	if err := mapstructure.Decode(record, &md); err != nil {
		return false
	}
	return ValidName(md.Name) && len(md.Description) >= 1 && len(md.Description) <= MaxDescriptionLen
}
