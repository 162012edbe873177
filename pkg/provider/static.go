package provider

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillserve/pkg/skill"
)

// Entry seeds one skill in a Static provider. Files maps supporting file
// paths to their content; SKILL.md is implied and must not appear here.
type Entry struct {
	Name        string
	Description string
	Body        string
	Files       map[string]string
}

// Static is an in-memory provider seeded at construction time. The skill
// set can be replaced atomically with SetSkills but individual skills are
// never mutated.
type Static struct {
	mu     sync.RWMutex
	skills []skill.Skill
	files  map[string]map[string]string
}

// NewStatic builds a Static provider from the given entries. Entries that
// fail validation are rejected.
func NewStatic(entries ...Entry) (*Static, error) {
	s := &Static{}
	if err := s.SetSkills(entries...); err != nil {
		return nil, err
	}
	return s, nil
}

// SetSkills atomically replaces the provider's entire skill set.
func (s *Static) SetSkills(entries ...Entry) error {
	skills := make([]skill.Skill, 0, len(entries))
	files := make(map[string]map[string]string, len(entries))

	for _, e := range entries {
		paths := make([]string, 0, len(e.Files))
		for p := range e.Files {
			if p == skill.DocumentName {
				return errors.Errorf("skill %q must not seed a literal %s", e.Name, skill.DocumentName)
			}
			paths = append(paths, p)
		}
		sort.Strings(paths)

		sk, err := skill.New(e.Name, e.Description, e.Body, paths)
		if err != nil {
			return err
		}
		if _, dup := files[sk.Name]; dup {
			return errors.Errorf("duplicate skill name %q", sk.Name)
		}

		contents := make(map[string]string, len(e.Files))
		for p, c := range e.Files {
			contents[p] = c
		}

		skills = append(skills, sk)
		files[sk.Name] = contents
	}

	s.mu.Lock()
	s.skills = skills
	s.files = files
	s.mu.Unlock()
	return nil
}

// GetSkills implements Provider.
func (s *Static) GetSkills(_ context.Context) ([]skill.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]skill.Skill, len(s.skills))
	copy(out, s.skills)
	return out, nil
}

// GetSkillFile implements Provider.
func (s *Static) GetSkillFile(_ context.Context, name, path string) (string, bool, error) {
	if path == skill.DocumentName {
		return "", false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	contents, ok := s.files[name]
	if !ok {
		return "", false, nil
	}
	content, ok := contents[path]
	return content, ok, nil
}
