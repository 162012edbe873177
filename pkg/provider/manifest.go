package provider

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Manifest is the YAML seed format for a Static provider: a canned skill
// set with inline file contents, for serving fixed skills without a
// directory tree.
//
//	skills:
//	  - name: git-workflow
//	    description: Follow team Git conventions.
//	    body: |
//	      # Git Workflow
//	    files:
//	      - path: scripts/extract.py
//	        content: |
//	          print("hi")
type Manifest struct {
	Skills []ManifestSkill `yaml:"skills"`
}

// ManifestSkill is one skill entry in a Manifest.
type ManifestSkill struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Body        string         `yaml:"body"`
	Files       []ManifestFile `yaml:"files"`
}

// ManifestFile is an inline supporting file in a Manifest.
type ManifestFile struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
}

// LoadManifest reads a YAML manifest file into a Static provider.
func LoadManifest(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read manifest %s", path)
	}
	return ParseManifest(data)
}

// ParseManifest builds a Static provider from raw manifest YAML.
func ParseManifest(data []byte) (*Static, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "failed to parse manifest")
	}

	entries := make([]Entry, 0, len(m.Skills))
	for _, ms := range m.Skills {
		files := make(map[string]string, len(ms.Files))
		for _, f := range ms.Files {
			if _, dup := files[f.Path]; dup {
				return nil, errors.Errorf("skill %q lists file %q twice", ms.Name, f.Path)
			}
			files[f.Path] = f.Content
		}
		entries = append(entries, Entry{
			Name:        ms.Name,
			Description: ms.Description,
			Body:        ms.Body,
			Files:       files,
		})
	}

	static, err := NewStatic(entries...)
	if err != nil {
		return nil, errors.Wrap(err, "invalid manifest")
	}
	return static, nil
}
