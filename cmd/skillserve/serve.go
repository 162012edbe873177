package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillserve/pkg/httpapi"
	"github.com/jingkaihe/skillserve/pkg/logger"
	"github.com/jingkaihe/skillserve/pkg/presenter"
	"github.com/jingkaihe/skillserve/pkg/provider"
	"github.com/jingkaihe/skillserve/pkg/server"
)

// ServeConfig holds configuration for the serve command.
type ServeConfig struct {
	Host         string
	Port         int
	BasePath     string
	SkillDirs    []string
	Manifest     string
	CacheControl string
	CORSOrigins  []string
	NoCORS       bool
	CacheTTL     time.Duration
	Watch        bool
	Allow        []string
	Verbose      bool
}

// NewServeConfig creates a ServeConfig with default values.
func NewServeConfig() *ServeConfig {
	return &ServeConfig{
		Host:         "localhost",
		Port:         8080,
		BasePath:     httpapi.DefaultBasePath,
		CacheControl: httpapi.DefaultCacheControl,
		CacheTTL:     provider.DefaultCacheTTL,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the skills discovery server",
	Long: `Start an HTTP server exposing the skills discovery surface. Skills come
from one or more --skills-dir directory trees (one subdirectory per
skill, each with a SKILL.md) and/or a --manifest YAML file with inline
skill content. When several sources define the same skill name, the
source given last wins.`,
	Run: func(cmd *cobra.Command, _ []string) {
		runServeCommand(cmd.Context(), getServeConfigFromFlags(cmd))
	},
}

func init() {
	defaults := NewServeConfig()
	serveCmd.Flags().String("host", defaults.Host, "Host to bind to")
	serveCmd.Flags().Int("port", defaults.Port, "Port to bind to")
	serveCmd.Flags().String("base-path", defaults.BasePath, "URL prefix to serve under")
	serveCmd.Flags().StringArray("skills-dir", nil, "Skills directory tree (repeatable, later wins)")
	serveCmd.Flags().String("manifest", "", "YAML manifest of inline skills")
	serveCmd.Flags().String("cache-control", defaults.CacheControl, "Cache-Control header value")
	serveCmd.Flags().StringArray("cors-origin", nil, "Allowed CORS origin (repeatable, default *)")
	serveCmd.Flags().Bool("no-cors", false, "Disable CORS headers entirely")
	serveCmd.Flags().Duration("cache-ttl", defaults.CacheTTL, "Filesystem scan cache TTL")
	serveCmd.Flags().Bool("watch", false, "Invalidate the scan cache on filesystem changes")
	serveCmd.Flags().StringArray("allow", nil, "Skill name allowlist glob (repeatable)")
	serveCmd.Flags().Bool("verbose", false, "Log provider failure detail")
}

func getServeConfigFromFlags(cmd *cobra.Command) *ServeConfig {
	config := NewServeConfig()

	if host, err := cmd.Flags().GetString("host"); err == nil {
		config.Host = host
	}
	if port, err := cmd.Flags().GetInt("port"); err == nil {
		config.Port = port
	}
	if basePath, err := cmd.Flags().GetString("base-path"); err == nil {
		config.BasePath = basePath
	}
	if dirs, err := cmd.Flags().GetStringArray("skills-dir"); err == nil {
		config.SkillDirs = dirs
	}
	if manifest, err := cmd.Flags().GetString("manifest"); err == nil {
		config.Manifest = manifest
	}
	if cacheControl, err := cmd.Flags().GetString("cache-control"); err == nil {
		config.CacheControl = cacheControl
	}
	if origins, err := cmd.Flags().GetStringArray("cors-origin"); err == nil {
		config.CORSOrigins = origins
	}
	if noCORS, err := cmd.Flags().GetBool("no-cors"); err == nil {
		config.NoCORS = noCORS
	}
	if ttl, err := cmd.Flags().GetDuration("cache-ttl"); err == nil {
		config.CacheTTL = ttl
	}
	if watch, err := cmd.Flags().GetBool("watch"); err == nil {
		config.Watch = watch
	}
	if allow, err := cmd.Flags().GetStringArray("allow"); err == nil {
		config.Allow = allow
	}
	if verbose, err := cmd.Flags().GetBool("verbose"); err == nil {
		config.Verbose = verbose
	}

	return config
}

// buildProvider assembles the provider stack from the configured
// sources. The returned closers stop filesystem watchers on shutdown.
func buildProvider(config *ServeConfig) (provider.Provider, []func() error, error) {
	var sources []provider.Provider
	var closers []func() error

	if config.Manifest != "" {
		static, err := provider.LoadManifest(config.Manifest)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, static)
	}

	dirs := config.SkillDirs
	if len(dirs) == 0 && config.Manifest == "" {
		dirs = []string{"./skills"}
	}

	for _, dir := range dirs {
		opts := []provider.FSOption{provider.WithCacheTTL(config.CacheTTL)}
		if len(config.Allow) > 0 {
			opts = append(opts, provider.WithAllowlist(config.Allow...))
		}
		if config.Watch {
			opts = append(opts, provider.WithWatch())
		}
		fsProvider, err := provider.NewFS(dir, opts...)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, fsProvider)
		closers = append(closers, fsProvider.Close)
	}

	if len(sources) == 1 {
		return sources[0], closers, nil
	}
	return provider.NewMulti(sources...), closers, nil
}

func runServeCommand(ctx context.Context, config *ServeConfig) {
	p, closers, err := buildProvider(config)
	if err != nil {
		presenter.Error(err, "failed to set up skill sources")
		os.Exit(1)
	}
	defer func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				logger.G(ctx).WithError(err).Warn("failed to close skill source")
			}
		}
	}()

	handler := httpapi.NewHandler(p, httpapi.Config{
		BasePath:     config.BasePath,
		CacheControl: config.CacheControl,
		CORSOrigins:  config.CORSOrigins,
		DisableCORS:  config.NoCORS,
		Verbose:      config.Verbose,
		EventSink: func(ev httpapi.Event) {
			logger.G(ctx).WithFields(map[string]any{
				"event":      ev.Type,
				"path":       ev.Path,
				"skill":      ev.SkillName,
				"file":       ev.FilePath,
				"skillCount": ev.SkillCount,
			}).Debug("request event")
		},
	})

	srv, err := server.New(handler, &server.Config{Host: config.Host, Port: config.Port})
	if err != nil {
		presenter.Error(err, "failed to create server")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	presenter.Success(fmt.Sprintf("Serving skills on http://%s:%d%s", config.Host, config.Port, handler.BasePath()))
	presenter.Info("Press Ctrl+C to stop the server")

	if err := srv.Start(ctx); err != nil {
		presenter.Error(err, "server failed")
		os.Exit(1)
	}

	presenter.Info("Server stopped")
}
