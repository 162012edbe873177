package provider

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/jingkaihe/skillserve/pkg/logger"
	"github.com/jingkaihe/skillserve/pkg/skill"
)

// DefaultCacheTTL is how long a filesystem scan stays fresh before the
// next request triggers a rescan.
const DefaultCacheTTL = 5 * time.Second

// FS serves skills from a directory tree with one subdirectory per
// skill, each containing a SKILL.md with YAML frontmatter plus arbitrary
// nested resource files. Scans are cached for a fixed TTL; Invalidate
// forces the next request to rescan.
type FS struct {
	root  string
	ttl   time.Duration
	allow []glob.Glob

	// refreshMu serializes rescans so concurrent cache misses trigger at
	// most one directory walk.
	refreshMu sync.Mutex
	mu        sync.RWMutex
	snap      *fsSnapshot
	expires   time.Time

	watcher *fsnotify.Watcher
	done    chan struct{}
}

type fsSnapshot struct {
	skills []skill.Skill
	byName map[string]fsSkill
}

type fsSkill struct {
	skill skill.Skill
	dir   string
}

// FSOption configures an FS provider.
type FSOption func(*FS) error

// WithCacheTTL overrides the scan cache TTL.
func WithCacheTTL(ttl time.Duration) FSOption {
	return func(p *FS) error {
		if ttl <= 0 {
			return errors.Errorf("cache TTL must be positive, got %s", ttl)
		}
		p.ttl = ttl
		return nil
	}
}

// WithAllowlist restricts the provider to skills whose names match at
// least one of the given glob patterns.
func WithAllowlist(patterns ...string) FSOption {
	return func(p *FS) error {
		for _, pattern := range patterns {
			g, err := glob.Compile(pattern)
			if err != nil {
				return errors.Wrapf(err, "invalid allowlist pattern %q", pattern)
			}
			p.allow = append(p.allow, g)
		}
		return nil
	}
}

// WithWatch invalidates the cache whenever the skills root changes on
// disk, instead of waiting out the TTL. Close releases the watcher.
// Only the root directory is watched; edits deep inside a skill surface
// when the TTL expires.
func WithWatch() FSOption {
	return func(p *FS) error {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return errors.Wrap(err, "failed to create filesystem watcher")
		}
		if err := watcher.Add(p.root); err != nil {
			watcher.Close()
			return errors.Wrapf(err, "failed to watch %s", p.root)
		}
		p.watcher = watcher
		p.done = make(chan struct{})
		go p.watch()
		return nil
	}
}

// NewFS creates a filesystem provider rooted at dir. The directory does
// not need to exist yet unless WithWatch is requested; a missing root
// scans as an empty skill set.
func NewFS(dir string, opts ...FSOption) (*FS, error) {
	p := &FS{
		root: dir,
		ttl:  DefaultCacheTTL,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Close stops the filesystem watcher if one was started.
func (p *FS) Close() error {
	if p.watcher == nil {
		return nil
	}
	err := p.watcher.Close()
	<-p.done
	return err
}

func (p *FS) watch() {
	defer close(p.done)
	for {
		select {
		case _, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			p.Invalidate()
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			logger.L.WithError(err).Warn("skills directory watcher error")
		}
	}
}

// Invalidate drops the cached scan so the next request rescans the tree.
func (p *FS) Invalidate() {
	p.mu.Lock()
	p.snap = nil
	p.mu.Unlock()
}

// GetSkills implements Provider.
func (p *FS) GetSkills(ctx context.Context) ([]skill.Skill, error) {
	snap, err := p.current(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]skill.Skill, len(snap.skills))
	copy(out, snap.skills)
	return out, nil
}

// GetSkillFile implements Provider. Lookups are restricted to the
// skill's enumerated file list, so even a path that passes the grammar
// cannot reach outside the snapshot taken at scan time.
func (p *FS) GetSkillFile(ctx context.Context, name, path string) (string, bool, error) {
	if !skill.ValidName(name) || !skill.ValidFilePath(path) {
		return "", false, nil
	}
	if path == skill.DocumentName {
		return "", false, nil
	}

	snap, err := p.current(ctx)
	if err != nil {
		return "", false, err
	}
	fsk, ok := snap.byName[name]
	if !ok || !fsk.skill.HasFile(path) {
		return "", false, nil
	}

	data, err := os.ReadFile(filepath.Join(fsk.dir, filepath.FromSlash(path)))
	if os.IsNotExist(err) {
		// listed at scan time but deleted since
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to read %s of skill %q", path, name)
	}
	return string(data), true, nil
}

func (p *FS) current(ctx context.Context) (*fsSnapshot, error) {
	p.mu.RLock()
	if p.snap != nil && time.Now().Before(p.expires) {
		snap := p.snap
		p.mu.RUnlock()
		return snap, nil
	}
	p.mu.RUnlock()

	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	// another request may have refreshed while we waited
	p.mu.RLock()
	if p.snap != nil && time.Now().Before(p.expires) {
		snap := p.snap
		p.mu.RUnlock()
		return snap, nil
	}
	p.mu.RUnlock()

	snap, err := p.scan(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.snap = snap
	p.expires = time.Now().Add(p.ttl)
	p.mu.Unlock()
	return snap, nil
}

func (p *FS) scan(ctx context.Context) (*fsSnapshot, error) {
	snap := &fsSnapshot{byName: make(map[string]fsSkill)}

	entries, err := os.ReadDir(p.root)
	if os.IsNotExist(err) {
		return snap, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read skills directory %s", p.root)
	}

	log := logger.G(ctx)
	for _, entry := range entries {
		dir := filepath.Join(p.root, entry.Name())

		// follow symlinks, as skill directories are often linked in
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}

		sk, err := LoadSkillDir(dir)
		if err != nil {
			log.WithError(err).WithField("dir", dir).Debug("skipping skill directory")
			continue
		}
		if !p.allowed(sk.Name) {
			continue
		}
		if _, exists := snap.byName[sk.Name]; exists {
			log.WithField("skill", sk.Name).WithField("dir", dir).Warn("duplicate skill name, keeping first")
			continue
		}

		snap.skills = append(snap.skills, sk)
		snap.byName[sk.Name] = fsSkill{skill: sk, dir: dir}
	}

	sort.Slice(snap.skills, func(i, j int) bool {
		return snap.skills[i].Name < snap.skills[j].Name
	})
	return snap, nil
}

func (p *FS) allowed(name string) bool {
	if len(p.allow) == 0 {
		return true
	}
	for _, g := range p.allow {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// LoadSkillDir loads one skill from a directory containing a SKILL.md
// with YAML frontmatter. The frontmatter must satisfy ValidFrontmatter
// and every discovered resource file must pass the file-path grammar.
// Offline validation tooling uses it directly, outside any provider.
func LoadSkillDir(dir string) (skill.Skill, error) {
	content, err := os.ReadFile(filepath.Join(dir, skill.DocumentName))
	if err != nil {
		return skill.Skill{}, errors.Wrap(err, "failed to read skill document")
	}

	md := goldmark.New(goldmark.WithExtensions(meta.Meta))
	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return skill.Skill{}, errors.Wrap(err, "failed to parse skill document")
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return skill.Skill{}, errors.New("missing frontmatter")
	}
	if !skill.ValidFrontmatter(metaData) {
		return skill.Skill{}, errors.New("invalid frontmatter")
	}

	name, _ := metaData["name"].(string)
	description, _ := metaData["description"].(string)
	body := extractBody(string(content))

	files, err := listResourceFiles(dir)
	if err != nil {
		return skill.Skill{}, err
	}

	return skill.New(name, description, body, files)
}

// listResourceFiles walks a skill directory and returns the relative
// paths of all resource files other than SKILL.md. Paths failing the
// file-path grammar (and anything beneath them) are skipped.
func listResourceFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." || rel == skill.DocumentName {
			return nil
		}
		if !skill.ValidFilePath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk skill directory %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

// extractBody strips the YAML frontmatter fence and returns the markdown
// body. Content without a complete fence is returned as-is.
func extractBody(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return content
	}
	return strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n")
}
