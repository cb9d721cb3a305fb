// Package main runs the local card finder: it loads the catalog, opens the
// ownership and group stores and serves them to the renderer over HTTP and
// WebSocket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ramonehamilton/cardfinder/internal/api"
	"github.com/ramonehamilton/cardfinder/internal/catalog"
	"github.com/ramonehamilton/cardfinder/internal/config"
	"github.com/ramonehamilton/cardfinder/internal/events"
	"github.com/ramonehamilton/cardfinder/internal/export"
	"github.com/ramonehamilton/cardfinder/internal/filter"
	"github.com/ramonehamilton/cardfinder/internal/groups"
	"github.com/ramonehamilton/cardfinder/internal/kv"
	"github.com/ramonehamilton/cardfinder/internal/metrics"
	"github.com/ramonehamilton/cardfinder/internal/ownership"
	"github.com/ramonehamilton/cardfinder/internal/version"
)

var (
	configPath   = flag.String("config", "", "Config file (default: ~/.cardfinder/config.toml)")
	port         = flag.Int("port", 0, "API server port (overrides config)")
	catalogPath  = flag.String("catalog", "", "Card list file (overrides config)")
	backend      = flag.String("backend", "", "Storage backend: sqlite, badger, redis or memory (overrides config)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	exportKind   = flag.String("export", "", "Export groups or ownership and exit")
	exportFormat = flag.String("format", "json", "Export format: json, csv or yaml")
	exportOut    = flag.String("out", "", "Export file (default: stdout)")
	showVersion  = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("cardfinder", version.String())
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.App.DebugMode {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("cardfinder failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *catalogPath != "" {
		cfg.Catalog.Path = *catalogPath
	}
	if *backend != "" {
		cfg.Storage.Backend = *backend
	}
	if *debug {
		cfg.App.DebugMode = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storagePath, err := cfg.StoragePath()
	if err != nil {
		return err
	}
	substrate, err := kv.Open(ctx, kv.Options{
		Backend:     cfg.Storage.Backend,
		Path:        storagePath,
		RedisURL:    cfg.Storage.RedisURL,
		RedisPrefix: cfg.Storage.RedisPrefix,
		Passphrase:  cfg.Storage.Passphrase,
	}, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := substrate.Close(); err != nil {
			logger.Warn("closing storage", "error", err)
		}
	}()

	source := catalog.NewSource(nil)
	if cfg.Catalog.Path != "" {
		cat, err := catalog.LoadFile(cfg.Catalog.Path)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		source.Replace(cat)
		logger.Info("catalog loaded", "path", cfg.Catalog.Path, "cards", cat.Len())
	} else {
		logger.Warn("no catalog configured, starting with an empty catalog")
	}
	metrics.RecordCatalogSize(source.Current().Len())

	owned, err := ownership.NewStore(substrate, ownership.Options{
		Key:      cfg.Storage.OwnershipKey,
		Resolver: source,
		Logger:   logger.With("store", "ownership"),
	})
	if err != nil {
		return err
	}
	owned.Prime(source.Current())

	grp, err := groups.NewStore(substrate, groups.Options{
		Key:    cfg.Storage.GroupsKey,
		Logger: logger.With("store", "groups"),
	})
	if err != nil {
		return err
	}

	if *exportKind != "" {
		return runExport(owned, grp)
	}

	debounce, err := cfg.GetKeywordDebounce()
	if err != nil {
		return err
	}

	// One lock serializes HTTP requests, debounced passes and reloads.
	var mu sync.Mutex
	exec := func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		fn()
	}

	dispatcher := events.NewEventDispatcher(logger)
	dispatcher.Register(events.NewLogObserver(logger))

	engine := filter.NewEngine(filter.Options{Ownership: owned, Groups: grp, Logger: logger})
	recomputer := filter.NewRecomputer(engine, source, filter.RecomputerOptions{
		KeywordDelay: debounce,
		Groups: func() (string, string) {
			st := grp.State()
			return st.ActiveID, st.EditingID
		},
		Publish: api.PublishFilterResults(dispatcher),
		Exec:    exec,
		Logger:  logger,
	})

	unprime := source.OnReload(func(c *catalog.Catalog) {
		exec(func() { owned.Prime(c) })
	})
	defer unprime()
	unbind := recomputer.Bind(source, owned, grp)
	defer unbind()
	exec(func() { recomputer.Recompute() })

	server := api.NewServer(&api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	}, api.Deps{
		Ownership:  owned,
		Groups:     grp,
		Catalog:    source,
		Recomputer: recomputer,
		Dispatcher: dispatcher,
		Lock:       &mu,
	})
	if err := server.Start(); err != nil {
		return fmt.Errorf("start API server: %w", err)
	}

	watchErr := make(chan error, 1)
	if cfg.Catalog.Watch && cfg.Catalog.Path != "" {
		watcher := catalog.NewWatcher(cfg.Catalog.Path, source, logger)
		go func() { watchErr <- watcher.Run(ctx) }()
	}

	logger.Info("cardfinder running",
		"version", version.String(),
		"url", fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		"storage", cfg.Storage.Backend)

	select {
	case <-ctx.Done():
	case err := <-watchErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("catalog watcher stopped", "error", err)
		}
		<-ctx.Done()
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runExport(owned *ownership.Store, grp *groups.Store) error {
	format, err := export.ParseFormat(*exportFormat)
	if err != nil {
		return err
	}

	var data interface{}
	switch *exportKind {
	case "groups":
		if format == export.FormatCSV {
			data = export.GroupRows(grp.Export())
		} else {
			data = grp.Export()
		}
	case "ownership":
		data = export.OwnershipRows(owned)
	default:
		return fmt.Errorf("unknown export %q (want groups or ownership)", *exportKind)
	}

	if *exportOut == "" {
		return export.Write(os.Stdout, format, data)
	}
	return export.WriteFile(*exportOut, format, data, true)
}
