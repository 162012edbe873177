// Package httpapi implements the skills discovery HTTP surface: a
// path-based dispatcher that validates untrusted path segments, queries
// a pluggable provider, and renders deterministic responses with CORS
// and caching headers plus an analytics event hook. The handler is a
// plain http.Handler with no routing-framework coupling; embedders mount
// it behind whatever mux they already run.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jingkaihe/skillserve/pkg/logger"
	"github.com/jingkaihe/skillserve/pkg/provider"
	"github.com/jingkaihe/skillserve/pkg/skill"
)

const (
	// DefaultBasePath is the well-known prefix the handler serves under.
	DefaultBasePath = "/.well-known/skills"
	// DefaultCacheControl is the cache policy applied to every
	// non-preflight response unless overridden.
	DefaultCacheControl = "public, max-age=3600"

	allowedMethods = "GET, HEAD, OPTIONS"
	jsonType       = "application/json"
	markdownType   = "text/markdown; charset=utf-8"
)

// Config configures a Handler. The zero value is usable: it serves under
// DefaultBasePath with a one-hour public cache and wildcard CORS.
type Config struct {
	// BasePath is the URL prefix the handler is mounted under. Requests
	// whose paths do not carry the prefix are treated as prefix-relative,
	// which tolerates routers that strip the prefix before dispatching.
	BasePath string

	// CacheControl is the Cache-Control header value for every
	// non-preflight response.
	CacheControl string

	// CORSOrigins lists the allowed origins. Empty means "*" unless
	// DisableCORS is set.
	CORSOrigins []string

	// DisableCORS omits all CORS headers entirely.
	DisableCORS bool

	// Verbose lifts provider failure detail into the logs. Responses
	// never carry internal detail either way.
	Verbose bool

	// EventSink, when set, receives one Event per observed outcome.
	EventSink EventSink
}

// Handler dispatches skills discovery requests. It is stateless and
// re-entrant: configuration is captured at construction and no locks are
// taken per request.
type Handler struct {
	provider     provider.Provider
	basePath     string
	cacheControl string
	corsOrigin   string // empty when CORS is disabled
	verbose      bool
	sink         EventSink
}

// NewHandler builds a Handler over the given provider.
func NewHandler(p provider.Provider, cfg Config) *Handler {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimSuffix(basePath, "/")

	cacheControl := cfg.CacheControl
	if cacheControl == "" {
		cacheControl = DefaultCacheControl
	}

	corsOrigin := ""
	if !cfg.DisableCORS {
		if len(cfg.CORSOrigins) > 0 {
			corsOrigin = strings.Join(cfg.CORSOrigins, ", ")
		} else {
			corsOrigin = "*"
		}
	}

	return &Handler{
		provider:     p,
		basePath:     basePath,
		cacheControl: cacheControl,
		corsOrigin:   corsOrigin,
		verbose:      cfg.Verbose,
		sink:         cfg.EventSink,
	}
}

// BasePath returns the normalized base prefix the handler serves under.
func (h *Handler) BasePath() string {
	return h.basePath
}

// response is the abstract HTTP response the dispatcher renders before
// anything touches the ResponseWriter, which keeps route dispatch a pure
// value transformation and lets tests assert on exact shapes.
type response struct {
	status      int
	contentType string
	body        []byte
	location    string
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		h.setCORS(w.Header())
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", allowedMethods)
		h.write(w, jsonError(http.StatusMethodNotAllowed, "Method not allowed"))
		return
	}

	normalized := h.normalize(r.URL.Path)
	resp, ev := h.dispatch(r.Context(), r, resolveRoute(normalized))
	h.emit(r.Context(), r.URL.Path, ev)
	h.write(w, resp)
}

// normalize reduces a request path to its prefix-relative form: the base
// prefix is stripped when present, a leading slash is guaranteed, and at
// most one trailing slash is removed.
func (h *Handler) normalize(path string) string {
	if strings.HasPrefix(path, h.basePath) {
		path = path[len(h.basePath):]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

func (h *Handler) dispatch(ctx context.Context, r *http.Request, rt route) (response, *Event) {
	switch rt.kind {
	case routeRoot:
		return h.redirect(r, "/index.json"), nil

	case routeIndex:
		return h.serveIndex(ctx)

	case routeDocument:
		return h.serveDocument(ctx, rt.skill)

	case routeFile:
		return h.serveFile(ctx, rt.skill, rt.file)

	case routeRedirect:
		return h.redirect(r, "/"+rt.skill+"/"+skill.DocumentName), nil

	case routeInvalidName:
		return jsonError(http.StatusBadRequest, "Invalid skill name"),
			&Event{Type: EventNotFound, SkillName: rt.skill, FilePath: rt.file}

	case routeInvalidPath:
		return jsonError(http.StatusBadRequest, "Invalid file path"),
			&Event{Type: EventNotFound, SkillName: rt.skill, FilePath: rt.file}

	default:
		return jsonError(http.StatusNotFound, "Not found"), &Event{Type: EventNotFound}
	}
}

type skillIndex struct {
	Skills []skill.IndexEntry `json:"skills"`
}

func (h *Handler) serveIndex(ctx context.Context) (response, *Event) {
	skills, err := h.provider.GetSkills(ctx)
	if err != nil {
		return h.providerFailure(ctx, err), &Event{Type: EventError, Error: err.Error()}
	}

	entries := make([]skill.IndexEntry, 0, len(skills))
	for _, s := range skills {
		entries = append(entries, s.IndexEntry())
	}

	body, err := json.MarshalIndent(skillIndex{Skills: entries}, "", "  ")
	if err != nil {
		return h.providerFailure(ctx, err), &Event{Type: EventError, Error: err.Error()}
	}

	return response{status: http.StatusOK, contentType: jsonType, body: body},
		&Event{Type: EventIndexRequested, SkillCount: len(skills)}
}

func (h *Handler) serveDocument(ctx context.Context, name string) (response, *Event) {
	skills, err := h.provider.GetSkills(ctx)
	if err != nil {
		return h.providerFailure(ctx, err), &Event{Type: EventError, SkillName: name, Error: err.Error()}
	}

	for _, s := range skills {
		if s.Name == name {
			return response{status: http.StatusOK, contentType: markdownType, body: []byte(skill.RenderDocument(s))},
				&Event{Type: EventSkillRequested, SkillName: name}
		}
	}

	return jsonError(http.StatusNotFound, "Skill not found"), &Event{Type: EventNotFound, SkillName: name}
}

func (h *Handler) serveFile(ctx context.Context, name, path string) (response, *Event) {
	content, ok, err := h.provider.GetSkillFile(ctx, name, path)
	if err != nil {
		return h.providerFailure(ctx, err), &Event{Type: EventError, SkillName: name, FilePath: path, Error: err.Error()}
	}
	if !ok {
		return jsonError(http.StatusNotFound, "File not found"), &Event{Type: EventNotFound, SkillName: name, FilePath: path}
	}

	return response{status: http.StatusOK, contentType: ContentTypeFor(path), body: []byte(content)},
		&Event{Type: EventFileRequested, SkillName: name, FilePath: path}
}

// redirect builds a Location from the requesting scheme and host so the
// handler never bakes in a hostname.
func (h *Handler) redirect(r *http.Request, rel string) response {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	} else if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return response{
		status:      http.StatusFound,
		contentType: defaultContentType,
		location:    fmt.Sprintf("%s://%s%s%s", scheme, r.Host, h.basePath, rel),
	}
}

func (h *Handler) providerFailure(ctx context.Context, err error) response {
	if h.verbose {
		logger.G(ctx).Errorf("provider failure: %+v", err)
	} else {
		logger.G(ctx).WithError(err).Error("provider failure")
	}
	return jsonError(http.StatusInternalServerError, "Internal server error")
}

func jsonError(status int, message string) response {
	body, _ := json.Marshal(map[string]string{"error": message})
	return response{status: status, contentType: jsonType, body: body}
}

// emit delivers an event to the sink. Sink panics are recovered so a
// misbehaving sink can never corrupt the response path.
func (h *Handler) emit(ctx context.Context, rawPath string, ev *Event) {
	if ev == nil || h.sink == nil {
		return
	}

	ev.ID = uuid.NewString()
	ev.Time = time.Now().UTC()
	ev.Path = rawPath

	defer func() {
		if rec := recover(); rec != nil {
			logger.G(ctx).WithField("panic", rec).Warn("event sink panicked")
		}
	}()
	h.sink(*ev)
}

func (h *Handler) setCORS(hdr http.Header) {
	if h.corsOrigin == "" {
		return
	}
	hdr.Set("Access-Control-Allow-Origin", h.corsOrigin)
	hdr.Set("Access-Control-Allow-Methods", allowedMethods)
	hdr.Set("Access-Control-Allow-Headers", "Content-Type")
}

func (h *Handler) write(w http.ResponseWriter, resp response) {
	hdr := w.Header()
	hdr.Set("Cache-Control", h.cacheControl)
	hdr.Set("Content-Type", resp.contentType)
	h.setCORS(hdr)
	if resp.location != "" {
		hdr.Set("Location", resp.location)
	}
	w.WriteHeader(resp.status)
	if len(resp.body) > 0 {
		w.Write(resp.body)
	}
}
