package ember

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/emberssr/ember/dev"
	"github.com/emberssr/ember/static"
)

// Ember is the top-level handle on a running (or not-yet-started) serving
// core: it owns the manifest reference, the static engine, the module
// loader, and the underlying Server.
type Ember struct {
	Config *Config
	Logger Logger

	manifestRef  *ManifestRef
	patternCache *PatternCache
	staticEngine *static.Engine
	modules      *ModuleLoader
	pipeline     *Pipeline
	server       *Server

	devWatcher *dev.Watcher
	devEngine  *dev.Engine
	handlerRef *devAwareHandler
}

// New builds an Ember core from cfg and a registry of render functions. It
// loads the route manifest eagerly so a misconfigured manifest is reported
// at startup, not on the first request; the optional 404/500 error pages
// are only named here and are resolved per request. middleware is
// the caller-supplied chain, applied in the order given with
// recoverMiddleware always outermost; it may be nil. Further links can be
// added later with Ember.Use.
func New(cfg *Config, registry ModuleRegistry, logger Logger, middleware ...Middleware) (*Ember, error) {
	if logger == nil {
		logger = NopLogger
	}

	patternCache := NewPatternCache(cfg.PatternCacheSize)

	f, err := os.Open(cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("ember: failed to open manifest %q: %w", cfg.ManifestPath, err)
	}
	defer f.Close()

	manifest, err := LoadManifest(f, patternCache)
	if err != nil {
		return nil, err
	}

	manifestRef := NewManifestRef(manifest)

	staticEngine := static.New(cfg.StaticRoot, 32*1024*1024, func(msg string, fields ...interface{}) {
		logger.Warnf(msg, fields...)
	})

	modules := NewModuleLoader(registry, cfg.DevMode)
	modules.ReturnErrorStub = cfg.DevMode

	errorPages := NewErrorPages(cfg.Render404JSX, cfg.Render500JSX)

	pipeline := &Pipeline{
		Manifest:        manifestRef,
		Static:          staticEngine,
		Modules:         modules,
		ErrorPages:      errorPages,
		Middlewares:     append([]Middleware(nil), middleware...),
		Logger:          logger,
		PublicPath:      cfg.PublicPath,
		SecurityHeaders: cfg.SecurityHeaders,
		DevMode:         cfg.DevMode,
	}

	e := &Ember{
		Config:       cfg,
		Logger:       logger,
		manifestRef:  manifestRef,
		patternCache: patternCache,
		staticEngine: staticEngine,
		modules:      modules,
		pipeline:     pipeline,
	}

	e.handlerRef = &devAwareHandler{pipeline: e.pipeline}
	e.server = NewServer(cfg, e.handlerRef, logger)

	if cfg.DevMode {
		if err := e.startDev(); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Use appends middleware to the end of the request pipeline's chain. It is
// safe to call before Serve but not concurrently with in-flight requests.
func (e *Ember) Use(middleware ...Middleware) {
	e.pipeline.Middlewares = append(e.pipeline.Middlewares, middleware...)
}

func (e *Ember) startDev() error {
	roots := e.Config.WatchPaths
	if len(roots) == 0 {
		roots = []string{e.Config.StaticRoot}
	}

	w, err := dev.NewWatcher(roots, 150*time.Millisecond)
	if err != nil {
		return fmt.Errorf("ember: failed to start dev watcher: %w", err)
	}
	e.devWatcher = w

	broadcaster := dev.NewBroadcaster()

	render := e.renderHotReplaceSession
	e.handlerRef.devHandler = dev.Handler(broadcaster, render)

	rebuild := dev.RebuildFunc(func(ctx context.Context) error {
		f, err := os.Open(e.Config.ManifestPath)
		if err != nil {
			return err
		}
		defer f.Close()

		manifest, err := LoadManifest(f, e.patternCache)
		if err != nil {
			return err
		}
		e.manifestRef.Store(manifest)
		return nil
	})
	if e.Config.BuildCommand != "" {
		runner := dev.NewBuildRunner(e.Config.BuildCommand, e.Config.BuildArgs...)
		rebuild = runner.Rebuild(rebuild)
	}

	invalidate := []dev.InvalidateFunc{
		func(ctx context.Context) error {
			for _, entry := range e.manifestRef.Load().Entries() {
				e.modules.Invalidate(entry.JSX)
			}
			return nil
		},
	}

	e.devEngine = dev.NewEngine(w, broadcaster, rebuild, render, invalidate, func(msg string, fields ...interface{}) {
		e.Logger.Warnf(msg, fields...)
	})

	go e.devEngine.Run(context.Background())

	return nil
}

// renderHotReplaceSession resolves href — the query parameter a connected
// SSE subscriber sends in GET /hot-replace?href=<current-path> — against
// the live manifest and renders that subscriber's own route, rather than
// some one-size-fits-all page.
func (e *Ember) renderHotReplaceSession(ctx context.Context, href string) (dev.ReloadPayload, error) {
	pathname, ok := normalize(href)
	if !ok {
		return dev.ReloadPayload{}, fmt.Errorf("ember: invalid hot-replace href %q", href)
	}

	result := match(e.manifestRef.Load(), pathname)
	if result.Status != Matched {
		return dev.ReloadPayload{}, fmt.Errorf("ember: no route matches hot-replace href %q", href)
	}

	route := result.Route
	render, err := e.modules.Load(route.JSX)
	if err != nil {
		return dev.ReloadPayload{}, err
	}

	body, err := render(result.Params.Map())
	if err != nil {
		return dev.ReloadPayload{}, err
	}

	var payload dev.ReloadPayload
	payload.Body = extractBodyContent(body)
	payload.Assets.CSS = route.Assets.CSS
	payload.Assets.JS = route.Assets.JS
	payload.PublicPath = e.Config.PublicPath
	return payload, nil
}

// Serve starts the HTTP server and blocks until it stops.
func (e *Ember) Serve() error {
	return e.server.Serve()
}

// Shutdown gracefully stops the HTTP server and the dev engine, if running.
func (e *Ember) Shutdown(ctx context.Context) error {
	if e.devEngine != nil {
		e.devEngine.Stop()
	}
	if e.devWatcher != nil {
		e.devWatcher.Close()
	}
	return e.server.Shutdown(ctx)
}

// AddShutdownJob registers f to run when Shutdown is called.
func (e *Ember) AddShutdownJob(f func()) int {
	return e.server.AddShutdownJob(f)
}

// RemoveShutdownJob unregisters a shutdown job previously added via
// AddShutdownJob.
func (e *Ember) RemoveShutdownJob(id int) {
	e.server.RemoveShutdownJob(id)
}
