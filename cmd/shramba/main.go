package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/erazemk/shramba/internal/api"
	"github.com/erazemk/shramba/internal/backend"
	"github.com/erazemk/shramba/internal/config"
	"github.com/erazemk/shramba/internal/db"
	"github.com/erazemk/shramba/internal/inventory"
	"github.com/erazemk/shramba/internal/recipe"
	"github.com/erazemk/shramba/internal/store"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

type flags struct {
	configPath string
	envFile    string
	dbPath     string
	addr       string
	logPath    string
}

func parseFlags(args []string) (*flags, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("shramba", flag.ContinueOnError)
	f := &flags{}

	fs.StringVar(&f.configPath, "config", "", "")
	fs.StringVar(&f.configPath, "c", "", "")

	fs.StringVar(&f.envFile, "env", ".env", "")
	fs.StringVar(&f.envFile, "e", ".env", "")

	fs.StringVar(&f.dbPath, "db", "", "")
	fs.StringVar(&f.dbPath, "d", "", "")

	fs.StringVar(&f.addr, "addr", "", "")
	fs.StringVar(&f.addr, "a", "", "")

	fs.StringVar(&f.logPath, "log", "", "")
	fs.StringVar(&f.logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: shramba [flags]

Flags:
  -c, -config <path>      TOML config file (default: shramba.toml if present)
  -e, -env <path>         .env file (default: .env if present)
  -d, -db <path>          SQLite database path (default: shramba.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Environment:
  SHRAMBA_CONFIG, SHRAMBA_ADDR, SHRAMBA_DB, SHRAMBA_LOG, OPENROUTER_API_KEY,
  SHRAMBA_RECIPE_URL, SHRAMBA_RECIPE_MODEL, SHRAMBA_RECIPE_TIMEOUT,
  SHRAMBA_SHUTDOWN_TIMEOUT
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return f, fs, nil
}

// applyFlags overrides the loaded config with flags given on the command line.
func applyFlags(cfg *config.Config, f *flags, fs *flag.FlagSet) error {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "db", "d":
			cfg.Server.DB = f.dbPath
		case "addr", "a":
			cfg.Server.Addr = f.addr
		case "log", "l":
			cfg.Server.Log = f.logPath
		}
	})
	return cfg.Validate()
}

func main() {
	f, fs, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(f.configPath, f.envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := applyFlags(cfg, f, fs); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(cfg.Server.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := run(cfg); err != nil {
		slog.Error("server error", "error", err)
		if closeLog != nil {
			closeLog()
		}
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	database, err := db.Open(cfg.Server.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Live feeds are fanned out in process, so one server owns a database.
	if cfg.Server.DB != db.MemoryPath {
		lock := flock.New(cfg.Server.DB + ".lock")
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("locking database: %w", err)
		}
		if !locked {
			return fmt.Errorf("database %s is in use by another shramba server", cfg.Server.DB)
		}
		defer lock.Unlock()
	}

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}

	slog.Info("database ready", "path", cfg.Server.DB)

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(context.Background(), database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	logger := slog.Default()
	coll := backend.NewCollection(database, backend.WithLogger(logger))
	blobs := backend.NewBlobs(database, backend.DefaultBlobPrefix)
	engines := inventory.NewRegistry(inventory.Collection(coll), blobs, logger)
	defer engines.Close()

	recipes := recipe.NewClient(recipe.Config{
		APIKey:         cfg.Recipe.APIKey,
		BaseURL:        cfg.Recipe.BaseURL,
		Model:          cfg.Recipe.Model,
		Referer:        cfg.Recipe.Referer,
		Title:          cfg.Recipe.Title,
		TimeoutSeconds: cfg.Recipe.TimeoutSeconds,
	}, recipe.WithLogger(logger))
	if cfg.Recipe.APIKey == "" {
		slog.Warn("no recipe API key configured, recipe suggestions will fall back")
	}

	apiRouter := api.NewRouter(api.Config{
		DB:         database,
		JWTSecret:  jwtSecret,
		Collection: coll,
		Blobs:      blobs,
		Engines:    engines,
		Recipes:    recipes,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)

	handler := api.LoggingMiddleware(mux)

	// Cancelled on shutdown so open event streams end.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	go pruneEngines(baseCtx, engines, time.Duration(cfg.Server.SessionIdle)*time.Minute)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())
		cancelBase()

		timeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	slog.Info("server stopped, closing database")
	return nil
}

// pruneEngines closes the engines of sessions idle for longer than idle
// until ctx is cancelled.
func pruneEngines(ctx context.Context, engines *inventory.Registry, idle time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			engines.Prune(idle)
		}
	}
}
