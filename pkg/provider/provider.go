// Package provider defines the backing-store contract consumed by the
// HTTP handler, along with three conforming strategies: an in-memory
// static provider, a filesystem provider with a time-boxed cache, and a
// precedence-merging combinator over multiple providers.
package provider

import (
	"context"

	"github.com/jingkaihe/skillserve/pkg/skill"
)

// Provider supplies skill data to the HTTP handler. Implementations own
// their skill sets and any caching policy; the handler only borrows data
// for the duration of one request. Implementations must be safe for
// concurrent use.
type Provider interface {
	// GetSkills returns the full current skill set. An empty set is
	// valid. The returned slice must not contain two skills with the
	// same name.
	GetSkills(ctx context.Context) ([]skill.Skill, error)

	// GetSkillFile returns the content of one supporting file, with
	// ok=false when the skill or file does not exist. SKILL.md is never
	// served from here: the handler reconstructs it itself, so the
	// lookup reports ok=false for that path.
	GetSkillFile(ctx context.Context, name, path string) (content string, ok bool, err error)
}
