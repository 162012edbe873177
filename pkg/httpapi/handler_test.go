package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillserve/pkg/provider"
	"github.com/jingkaihe/skillserve/pkg/skill"
)

func testProvider(t *testing.T) *provider.Static {
	t.Helper()
	p, err := provider.NewStatic(
		provider.Entry{
			Name:        "git-workflow",
			Description: "Follow team Git conventions for branching and commits.",
			Body:        "# Git Workflow\n\nCreate feature branches from `main`.",
		},
		provider.Entry{
			Name:        "code-review",
			Description: "Review pull requests against the team checklist.",
			Body:        "# Code Review",
			Files: map[string]string{
				"scripts/extract.py":             "print(\"extracting\")\n",
				"references/deep/nested/file.md": "# Nested\n",
			},
		},
	)
	require.NoError(t, err)
	return p
}

type failingProvider struct{}

func (failingProvider) GetSkills(context.Context) ([]skill.Skill, error) {
	return nil, assert.AnError
}

func (failingProvider) GetSkillFile(context.Context, string, string) (string, bool, error) {
	return "", false, assert.AnError
}

func serve(h *Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	h := NewHandler(testProvider(t), Config{})

	rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/index.json")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var parsed struct {
		Skills []map[string]any `json:"skills"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	require.Len(t, parsed.Skills, 2)

	first := parsed.Skills[0]
	assert.Equal(t, "git-workflow", first["name"])
	assert.Equal(t, "Follow team Git conventions for branching and commits.", first["description"])
	assert.Equal(t, []any{"SKILL.md"}, first["files"])
	assert.NotContains(t, first, "body")

	second := parsed.Skills[1]
	assert.Equal(t, "code-review", second["name"])
	assert.Equal(t, []any{"SKILL.md", "references/deep/nested/file.md", "scripts/extract.py"}, second["files"])
}

func TestIndexProviderFailure(t *testing.T) {
	h := NewHandler(failingProvider{}, Config{})

	rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/index.json")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestSkillDocument(t *testing.T) {
	h := NewHandler(testProvider(t), Config{})

	t.Run("found", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/git-workflow/SKILL.md")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t,
			"---\nname: git-workflow\ndescription: Follow team Git conventions for branching and commits.\n---\n\n# Git Workflow\n\nCreate feature branches from `main`.",
			rec.Body.String())
	})

	t.Run("unknown skill", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/unknown-skill/SKILL.md")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Skill not found"}`, rec.Body.String())
	})

	t.Run("invalid name", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/Invalid_Name/SKILL.md")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid skill name"}`, rec.Body.String())
	})
}

func TestSkillFile(t *testing.T) {
	h := NewHandler(testProvider(t), Config{})

	t.Run("found", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/code-review/scripts/extract.py")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/x-python; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, "print(\"extracting\")\n", rec.Body.String())
	})

	t.Run("unknown file", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/code-review/scripts/missing.py")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"File not found"}`, rec.Body.String())
	})

	t.Run("nested SKILL.md is a plain file lookup", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/code-review/docs/SKILL.md")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid path", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/code-review/notes[0].md")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid file path"}`, rec.Body.String())
	})

	t.Run("provider failure", func(t *testing.T) {
		h := NewHandler(failingProvider{}, Config{})
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/code-review/notes.md")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
	})
}

func TestRedirects(t *testing.T) {
	h := NewHandler(testProvider(t), Config{})

	t.Run("root", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills")

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "http://example.com/.well-known/skills/index.json", rec.Header().Get("Location"))
	})

	t.Run("root with trailing slash", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/")
		assert.Equal(t, http.StatusFound, rec.Code)
	})

	t.Run("skill shorthand", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/git-workflow")

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "http://example.com/.well-known/skills/git-workflow/SKILL.md", rec.Header().Get("Location"))
	})

	t.Run("location follows forwarded proto", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/.well-known/skills/git-workflow", nil)
		req.Header.Set("X-Forwarded-Proto", "https")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "https://example.com/.well-known/skills/git-workflow/SKILL.md", rec.Header().Get("Location"))
	})

	t.Run("invalid bare name is a generic 404", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/Invalid_Name")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())
	})
}

func TestNotFoundFallthrough(t *testing.T) {
	h := NewHandler(testProvider(t), Config{})

	// one trailing slash is normalized away, the second leaves an empty
	// rest segment that matches no route shape
	rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/git-workflow//")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())
}

func TestMethodGating(t *testing.T) {
	h := NewHandler(testProvider(t), Config{})

	t.Run("options preflight", func(t *testing.T) {
		rec := serve(h, http.MethodOptions, "http://example.com/.well-known/skills/index.json")

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "GET, HEAD, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Empty(t, rec.Body.String())
	})

	t.Run("head dispatches like get", func(t *testing.T) {
		rec := serve(h, http.MethodHead, "http://example.com/.well-known/skills/index.json")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			rec := serve(h, method, "http://example.com/.well-known/skills/index.json")

			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, "GET, HEAD, OPTIONS", rec.Header().Get("Allow"))
			assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String())
		})
	}
}

func TestHeaders(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		h := NewHandler(testProvider(t), Config{})
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/index.json")

		assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, HEAD, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	})

	t.Run("explicit origins", func(t *testing.T) {
		h := NewHandler(testProvider(t), Config{CORSOrigins: []string{"https://a.example", "https://b.example"}})
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/index.json")

		assert.Equal(t, "https://a.example, https://b.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("cors disabled omits all three headers", func(t *testing.T) {
		h := NewHandler(testProvider(t), Config{DisableCORS: true})
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/index.json")

		hdr := rec.Result().Header
		_, hasOrigin := hdr["Access-Control-Allow-Origin"]
		_, hasMethods := hdr["Access-Control-Allow-Methods"]
		_, hasHeaders := hdr["Access-Control-Allow-Headers"]
		assert.False(t, hasOrigin)
		assert.False(t, hasMethods)
		assert.False(t, hasHeaders)
	})

	t.Run("custom cache control", func(t *testing.T) {
		h := NewHandler(testProvider(t), Config{CacheControl: "no-store"})
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/index.json")

		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})
}

func TestMounting(t *testing.T) {
	t.Run("custom base path", func(t *testing.T) {
		h := NewHandler(testProvider(t), Config{BasePath: "/skills"})
		rec := serve(h, http.MethodGet, "http://example.com/skills/index.json")

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("prefix already stripped by outer router", func(t *testing.T) {
		h := NewHandler(testProvider(t), Config{})
		rec := serve(h, http.MethodGet, "http://example.com/index.json")

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("redirect keeps configured prefix", func(t *testing.T) {
		h := NewHandler(testProvider(t), Config{BasePath: "/skills"})
		rec := serve(h, http.MethodGet, "http://example.com/skills/git-workflow")

		assert.Equal(t, "http://example.com/skills/git-workflow/SKILL.md", rec.Header().Get("Location"))
	})
}

func TestEvents(t *testing.T) {
	record := func(t *testing.T, cfg Config, method, target string) []Event {
		t.Helper()
		var events []Event
		cfg.EventSink = func(ev Event) { events = append(events, ev) }
		h := NewHandler(testProvider(t), cfg)
		serve(h, method, target)
		return events
	}

	t.Run("index", func(t *testing.T) {
		events := record(t, Config{}, http.MethodGet, "http://example.com/.well-known/skills/index.json")
		require.Len(t, events, 1)
		assert.Equal(t, EventIndexRequested, events[0].Type)
		assert.Equal(t, 2, events[0].SkillCount)
		assert.Equal(t, "/.well-known/skills/index.json", events[0].Path)
		assert.NotEmpty(t, events[0].ID)
		assert.False(t, events[0].Time.IsZero())
	})

	t.Run("document", func(t *testing.T) {
		events := record(t, Config{}, http.MethodGet, "http://example.com/.well-known/skills/git-workflow/SKILL.md")
		require.Len(t, events, 1)
		assert.Equal(t, EventSkillRequested, events[0].Type)
		assert.Equal(t, "git-workflow", events[0].SkillName)
	})

	t.Run("file", func(t *testing.T) {
		events := record(t, Config{}, http.MethodGet, "http://example.com/.well-known/skills/code-review/scripts/extract.py")
		require.Len(t, events, 1)
		assert.Equal(t, EventFileRequested, events[0].Type)
		assert.Equal(t, "code-review", events[0].SkillName)
		assert.Equal(t, "scripts/extract.py", events[0].FilePath)
	})

	t.Run("unknown skill", func(t *testing.T) {
		events := record(t, Config{}, http.MethodGet, "http://example.com/.well-known/skills/unknown-skill/SKILL.md")
		require.Len(t, events, 1)
		assert.Equal(t, EventNotFound, events[0].Type)
		assert.Equal(t, "unknown-skill", events[0].SkillName)
	})

	// 400 validation responses are tagged NOT_FOUND rather than ERROR.
	// The tag name is misleading but consumers depend on it.
	t.Run("validation failure keeps not-found tag", func(t *testing.T) {
		events := record(t, Config{}, http.MethodGet, "http://example.com/.well-known/skills/Invalid_Name/notes.md")
		require.Len(t, events, 1)
		assert.Equal(t, EventNotFound, events[0].Type)
		assert.Equal(t, "Invalid_Name", events[0].SkillName)
		assert.Equal(t, "notes.md", events[0].FilePath)
	})

	t.Run("redirects emit nothing", func(t *testing.T) {
		events := record(t, Config{}, http.MethodGet, "http://example.com/.well-known/skills/git-workflow")
		assert.Empty(t, events)
	})

	t.Run("provider failure", func(t *testing.T) {
		var events []Event
		h := NewHandler(failingProvider{}, Config{EventSink: func(ev Event) { events = append(events, ev) }})
		serve(h, http.MethodGet, "http://example.com/.well-known/skills/index.json")

		require.Len(t, events, 1)
		assert.Equal(t, EventError, events[0].Type)
		assert.NotEmpty(t, events[0].Error)
	})

	t.Run("event ids are unique", func(t *testing.T) {
		var events []Event
		h := NewHandler(testProvider(t), Config{EventSink: func(ev Event) { events = append(events, ev) }})
		serve(h, http.MethodGet, "http://example.com/.well-known/skills/index.json")
		serve(h, http.MethodGet, "http://example.com/.well-known/skills/index.json")

		require.Len(t, events, 2)
		assert.NotEqual(t, events[0].ID, events[1].ID)
	})

	t.Run("panicking sink does not corrupt the response", func(t *testing.T) {
		h := NewHandler(testProvider(t), Config{EventSink: func(Event) { panic("sink exploded") }})
		rec := serve(h, http.MethodGet, "http://example.com/.well-known/skills/index.json")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "git-workflow")
	})
}
