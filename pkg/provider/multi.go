package provider

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/jingkaihe/skillserve/pkg/skill"
)

// Multi merges several providers by name precedence: when two sources
// expose the same skill name, the later source in the list wins. File
// lookups follow the same precedence, asking later sources first.
type Multi struct {
	sources []Provider
}

// NewMulti combines the given providers. The order matters: sources
// later in the list override earlier ones.
func NewMulti(sources ...Provider) *Multi {
	return &Multi{sources: sources}
}

// GetSkills implements Provider. Any source failure fails the whole
// merge; a partial index would silently hide skills, so errors from all
// failing sources are aggregated and surfaced together.
func (m *Multi) GetSkills(ctx context.Context) ([]skill.Skill, error) {
	var merged []skill.Skill
	position := make(map[string]int)
	var errs *multierror.Error

	for _, src := range m.sources {
		skills, err := src.GetSkills(ctx)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		for _, s := range skills {
			if i, seen := position[s.Name]; seen {
				merged[i] = s
				continue
			}
			position[s.Name] = len(merged)
			merged = append(merged, s)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return merged, nil
}

// GetSkillFile implements Provider. Sources are consulted from last to
// first so the provider that wins the name merge also serves the files.
func (m *Multi) GetSkillFile(ctx context.Context, name, path string) (string, bool, error) {
	var errs *multierror.Error

	for i := len(m.sources) - 1; i >= 0; i-- {
		content, ok, err := m.sources[i].GetSkillFile(ctx, name, path)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if ok {
			return content, true, nil
		}
	}

	return "", false, errs.ErrorOrNil()
}
