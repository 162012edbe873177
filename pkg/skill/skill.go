// Package skill defines the skill bundle data model: a named instruction
// document with YAML frontmatter metadata plus a set of supporting files.
// It also hosts the naming and path validators that providers, the HTTP
// handler, and offline tooling all share.
package skill

import (
	"fmt"

	"github.com/pkg/errors"
)

// DocumentName is the canonical instruction document inside every skill
// bundle. The HTTP handler reconstructs it from metadata and body rather
// than serving a stored copy.
const DocumentName = "SKILL.md"

// Skill is an immutable skill bundle. Providers replace their whole skill
// set atomically; a Skill is never mutated in place after construction.
type Skill struct {
	Name        string
	Description string
	Body        string
	Files       []string
}

// Metadata is the YAML frontmatter of a SKILL.md document.
type Metadata struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Description string `yaml:"description" mapstructure:"description"`
}

// IndexEntry is the discovery-index projection of a Skill: the body is
// omitted so the index stays small.
type IndexEntry struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Files       []string `json:"files"`
}

// New constructs a validated Skill. The file list is copied and always
// starts with SKILL.md; every other entry must pass ValidFilePath.
func New(name, description, body string, files []string) (Skill, error) {
	if !ValidName(name) {
		return Skill{}, errors.Errorf("invalid skill name %q", name)
	}
	if len(description) == 0 || len(description) > MaxDescriptionLen {
		return Skill{}, errors.Errorf("skill %q description length must be in [1, %d]", name, MaxDescriptionLen)
	}

	normalized := make([]string, 0, len(files)+1)
	normalized = append(normalized, DocumentName)
	for _, f := range files {
		if f == DocumentName {
			continue
		}
		if !ValidFilePath(f) {
			return Skill{}, errors.Errorf("skill %q lists invalid file path %q", name, f)
		}
		normalized = append(normalized, f)
	}

	return Skill{
		Name:        name,
		Description: description,
		Body:        body,
		Files:       normalized,
	}, nil
}

// IndexEntry returns the index projection of the skill. The file list is
// copied so index consumers cannot alias the skill's own slice.
func (s Skill) IndexEntry() IndexEntry {
	files := make([]string, len(s.Files))
	copy(files, s.Files)
	return IndexEntry{
		Name:        s.Name,
		Description: s.Description,
		Files:       files,
	}
}

// HasFile reports whether path is in the skill's enumerated file list.
func (s Skill) HasFile(path string) bool {
	for _, f := range s.Files {
		if f == path {
			return true
		}
	}
	return false
}

// RenderDocument reconstructs the SKILL.md document from stored metadata
// and body. The fence layout is fixed wire format: clients parse it back,
// so the closing fence is always followed by a blank line before the body.
func RenderDocument(s Skill) string {
	return fmt.Sprintf("---\nname: %s\ndescription: %s\n---\n\n%s", s.Name, s.Description, s.Body)
}
