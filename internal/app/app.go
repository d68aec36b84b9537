// Package app wires the cmiique subsystems into a running service.
//
// The App struct owns the full lifecycle: New loads the corpus and polysemy
// table and builds the translator and HTTP API, Run serves until the context
// ends, Reload applies configuration changes in place, and Shutdown tears
// everything down in order.
//
// For testing, inject data via functional options (WithIndex, WithResolver,
// WithMetrics). When an option is not provided, New loads the data named in
// the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/cmiique/internal/api"
	"github.com/MrWong99/cmiique/internal/config"
	"github.com/MrWong99/cmiique/internal/corpus"
	"github.com/MrWong99/cmiique/internal/corpus/postgres"
	"github.com/MrWong99/cmiique/internal/corpus/sqlite"
	"github.com/MrWong99/cmiique/internal/generative"
	"github.com/MrWong99/cmiique/internal/health"
	"github.com/MrWong99/cmiique/internal/mcpserver"
	"github.com/MrWong99/cmiique/internal/observe"
	"github.com/MrWong99/cmiique/internal/polysemy"
	"github.com/MrWong99/cmiique/internal/translate"
	"github.com/MrWong99/cmiique/pkg/provider/llm"
)

const readHeaderTimeout = 10 * time.Second

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	LLM llm.Provider
}

// corpusStore is a database holding the phrase table.
type corpusStore interface {
	Load(ctx context.Context) (*corpus.Index, error)
	Import(ctx context.Context, ix *corpus.Index) error
	Ping(ctx context.Context) error
}

// App owns all subsystem lifetimes of the translation service.
type App struct {
	cfg       *config.Config
	providers *Providers
	version   string

	// Subsystems, initialised in New and torn down in Shutdown.
	index    *corpus.Index
	resolver *polysemy.Resolver
	store    corpusStore
	storeKey string
	metrics  *observe.Metrics
	level    *slog.LevelVar
	tr       *translate.Translator
	api      *api.Server
	handler  http.Handler

	// mu guards cfg after New.
	mu sync.Mutex

	// closers are called in order during Shutdown.
	closers []func() error

	// servers are the HTTP servers started by Run.
	srvMu   sync.Mutex
	servers []*http.Server
	addrs   []net.Addr

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithIndex injects a corpus index instead of loading one from config.
func WithIndex(ix *corpus.Index) Option {
	return func(a *App) { a.index = ix }
}

// WithResolver injects a polysemy resolver instead of loading one from config.
func WithResolver(r *polysemy.Resolver) Option {
	return func(a *App) { a.resolver = r }
}

// WithMetrics injects the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLevelVar lets Reload change the log level of the handler built on lv.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry); a nil LLM disables
// generative fallback.
//
// The corpus and the polysemy table are loaded concurrently. A Postgres
// corpus is imported from corpus.import_path first when that is set.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
		version:   "dev",
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Corpus + polysemy ─────────────────────────────────────────────
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := a.initCorpus(egCtx); err != nil {
			return fmt.Errorf("init corpus: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		if err := a.initPolysemy(); err != nil {
			return fmt.Errorf("init polysemy: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		a.runClosers()
		return nil, fmt.Errorf("app: %w", err)
	}

	// ── 2. Translator ────────────────────────────────────────────────────
	trOpts := []translate.Option{
		translate.WithResolver(a.resolver),
		translate.WithMetrics(a.metrics),
		translate.WithSettings(settingsFrom(cfg.Matching)),
	}
	if providers.LLM != nil {
		trOpts = append(trOpts, translate.WithGenerator(generative.New(providers.LLM)))
	} else {
		slog.Warn("no llm configured, generative fallback disabled")
	}
	tr, err := translate.New(a.index, trOpts...)
	if err != nil {
		a.runClosers()
		return nil, fmt.Errorf("app: init translator: %w", err)
	}
	a.tr = tr

	// ── 3. Health + HTTP API ─────────────────────────────────────────────
	a.api = api.New(tr,
		api.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
		api.WithHealth(a.healthHandler()),
		api.WithMetrics(a.metrics),
		api.WithMetricsHandler(observe.MetricsHandler()),
	)
	a.handler = a.api.Handler()

	slog.Info("translator ready",
		"corpus_version", a.index.Version(),
		"entries", a.index.Len(),
		"polysemous_words", a.resolver.Words(),
		"generative", tr.Generative(),
	)
	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initCorpus loads the phrase table from a YAML file, Postgres or SQLite.
func (a *App) initCorpus(ctx context.Context) error {
	if a.index != nil {
		return nil
	}

	cc := a.cfg.Corpus
	switch {
	case cc.PostgresDSN != "":
		store, err := postgres.NewStore(ctx, cc.PostgresDSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		a.store, a.storeKey = store, "postgres"
	case cc.SQLitePath != "":
		store, err := sqlite.Open(ctx, cc.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store.Close)
		a.store, a.storeKey = store, "sqlite"
	default:
		ix, err := corpus.LoadFile(cc.Path)
		if err != nil {
			return err
		}
		a.index = ix
		return nil
	}

	if cc.ImportPath != "" {
		if err := importCorpus(ctx, a.store, cc.ImportPath); err != nil {
			return err
		}
	}
	ix, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	a.index = ix
	return nil
}

func importCorpus(ctx context.Context, store corpusStore, path string) error {
	ix, err := corpus.LoadFile(path)
	if err != nil {
		return err
	}
	if err := store.Import(ctx, ix); err != nil {
		return err
	}
	slog.Info("imported corpus into database", "path", path, "entries", ix.Len())
	return nil
}

// initPolysemy loads the polysemy table, or uses the built-in one when no
// path is configured.
func (a *App) initPolysemy() error {
	if a.resolver != nil {
		return nil
	}
	r, err := loadResolver(a.cfg.Polysemy)
	if err != nil {
		return err
	}
	a.resolver = r
	return nil
}

func loadResolver(pc config.PolysemyConfig) (*polysemy.Resolver, error) {
	table := polysemy.Builtin()
	if pc.Path != "" {
		t, err := polysemy.LoadFile(pc.Path)
		if err != nil {
			return nil, err
		}
		table = t
	}
	return polysemy.NewResolver(table)
}

func (a *App) healthHandler() *health.Handler {
	var checkers []health.Checker
	if a.store != nil {
		checkers = append(checkers, health.PingChecker(a.storeKey, a.store))
	}
	if hr, ok := a.providers.LLM.(health.HealthReporter); ok {
		checkers = append(checkers, health.ProviderChecker("llm", hr))
	}
	return health.New(
		health.WithCorpus(func() health.Corpus { return a.tr.Index() }),
		health.WithCheckers(checkers...),
	)
}

func settingsFrom(mc config.MatchingConfig) translate.Settings {
	return translate.Settings{
		MinScore: mc.MinScore,
		Limit:    mc.Limit,
		Tier:     mc.Tier,
	}
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Translator returns the shared translator.
func (a *App) Translator() *translate.Translator { return a.tr }

// Handler returns the HTTP API handler with middleware applied.
func (a *App) Handler() http.Handler { return a.handler }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the HTTP API on server.listen_addr, and /metrics on
// telemetry.metrics_addr when that is set. It returns when ctx is cancelled
// or a listener fails; the servers keep running until Shutdown.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	listen := a.cfg.Server.ListenAddr
	metricsAddr := a.cfg.Telemetry.MetricsAddr
	a.mu.Unlock()

	errCh := make(chan error, 2)
	if err := a.serve(errCh, "api", listen, a.handler); err != nil {
		return err
	}
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", observe.MetricsHandler())
		if err := a.serve(errCh, "metrics", metricsAddr, mux); err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (a *App) serve(errCh chan<- error, name, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("app: listen %s on %q: %w", name, addr, err)
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: readHeaderTimeout}

	a.srvMu.Lock()
	a.servers = append(a.servers, srv)
	a.addrs = append(a.addrs, ln.Addr())
	a.srvMu.Unlock()

	slog.Info("listening", "server", name, "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("app: serve %s: %w", name, err)
		}
	}()
	return nil
}

// Addrs returns the addresses of the listeners opened by Run, API first.
func (a *App) Addrs() []net.Addr {
	a.srvMu.Lock()
	defer a.srvMu.Unlock()
	return append([]net.Addr(nil), a.addrs...)
}

// ServeMCP exposes the translator as MCP tools over stdin/stdout until ctx
// is cancelled or the client disconnects.
func (a *App) ServeMCP(ctx context.Context) error {
	return mcpserver.Run(ctx, a.tr, a.version)
}

// ─── Reload ──────────────────────────────────────────────────────────────────

// Reload applies the differences between the running config and next. Log
// level, corpus, polysemy and matching changes take effect immediately;
// everything else is logged as requiring a restart. A failed corpus or
// polysemy reload keeps the previous data.
func (a *App) Reload(ctx context.Context, next *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()

	d := config.Diff(a.cfg, next)
	if d.Empty() {
		return
	}
	log := observe.Logger(ctx)
	applied := *next

	if d.LogLevelChanged && a.level != nil {
		a.level.Set(SlogLevel(d.NewLogLevel))
		log.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.MatchingChanged {
		a.tr.SetSettings(settingsFrom(next.Matching))
		log.Info("matching settings changed",
			"min_score", next.Matching.MinScore,
			"limit", next.Matching.Limit,
			"tier", next.Matching.Tier,
		)
	}
	if d.PolysemyChanged {
		if r, err := loadResolver(next.Polysemy); err != nil {
			log.Error("polysemy reload failed, keeping previous table", "err", err)
			applied.Polysemy = a.cfg.Polysemy
		} else {
			a.tr.SetResolver(r)
			log.Info("polysemy table reloaded", "words", r.Words())
		}
	}
	if d.CorpusChanged {
		if err := a.reloadCorpus(ctx, next.Corpus, false); err != nil {
			log.Error("corpus reload failed, keeping previous corpus", "err", err)
			applied.Corpus = a.cfg.Corpus
		}
	}
	if d.RestartRequired {
		log.Warn("config changes require a restart to take effect")
		config.KeepRestartFields(&applied, a.cfg)
	}
	a.cfg = &applied
}

// ReloadFiles reloads the corpus and/or polysemy YAML files named by the
// current config after they were edited in place. For a database source the
// corpus flag re-imports the import file. Failures keep the previous data.
func (a *App) ReloadFiles(ctx context.Context, corpusFile, polysemyFile bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	log := observe.Logger(ctx)

	if polysemyFile && a.cfg.Polysemy.Path != "" {
		if r, err := loadResolver(a.cfg.Polysemy); err != nil {
			log.Error("polysemy reload failed, keeping previous table", "err", err)
		} else {
			a.tr.SetResolver(r)
			log.Info("polysemy table reloaded", "words", r.Words())
		}
	}
	if corpusFile {
		if err := a.reloadCorpus(ctx, a.cfg.Corpus, true); err != nil {
			log.Error("corpus reload failed, keeping previous corpus", "err", err)
		}
	}
}

// Config returns the configuration currently in force. Fields that need a
// restart keep their startup values until then.
func (a *App) Config() config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return *a.cfg
}

// reloadCorpus loads the phrase table named by cc. With reimport set, a
// database source re-imports its import_path even when the path is unchanged.
func (a *App) reloadCorpus(ctx context.Context, cc config.CorpusConfig, reimport bool) error {
	var (
		ix  *corpus.Index
		err error
	)
	old := a.cfg.Corpus
	switch {
	case cc.PostgresDSN == "" && cc.SQLitePath == "":
		ix, err = corpus.LoadFile(cc.Path)
	case a.store != nil && cc.PostgresDSN == old.PostgresDSN && cc.SQLitePath == old.SQLitePath:
		if cc.ImportPath != "" && (reimport || cc.ImportPath != old.ImportPath) {
			err = importCorpus(ctx, a.store, cc.ImportPath)
		}
		if err == nil {
			ix, err = a.store.Load(ctx)
		}
	default:
		return errors.New("switching the corpus database requires a restart")
	}
	if err != nil {
		return err
	}
	a.tr.SetIndex(ix)
	observe.Logger(ctx).Info("corpus reloaded", "version", ix.Version(), "entries", ix.Len())
	return nil
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown stops the HTTP servers, waiting for in-flight requests, then runs
// the closers in order. It respects the context deadline: if ctx expires
// before all closers finish, remaining closers are skipped and the context
// error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.srvMu.Lock()
		servers := a.servers
		a.srvMu.Unlock()

		slog.Info("shutting down", "servers", len(servers), "closers", len(a.closers))
		for _, srv := range servers {
			if err := srv.Shutdown(ctx); err != nil {
				slog.Warn("http shutdown error", "err", err)
			}
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

func (a *App) runClosers() {
	for _, c := range a.closers {
		_ = c()
	}
	a.closers = nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// SlogLevel converts a config.LogLevel to its slog level. Unknown levels map
// to Info.
func SlogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
