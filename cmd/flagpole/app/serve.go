package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/flagpole/internal/api"
	"github.com/stacklok/flagpole/internal/config"
	"github.com/stacklok/flagpole/internal/logger"
	"github.com/stacklok/flagpole/internal/management"
	"github.com/stacklok/flagpole/internal/registry"
	"github.com/stacklok/flagpole/internal/router"
	"github.com/stacklok/flagpole/internal/telemetry"
	"github.com/stacklok/flagpole/internal/versions"
	"github.com/stacklok/flagpole/internal/watcher"
)

const (
	defaultGracefulTimeout = 30 * time.Second
	serverRequestTimeout   = 30 * time.Second // proxied APIs may be slow
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 35 * time.Second // Must be > serverRequestTimeout to let middleware handle timeout
	serverIdleTimeout      = 60 * time.Second
	reloadMaxTries         = 3
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the API server and register the configured APIs.

APIs come from, in order: the management API (unless disabled), --api flags or the
config file's apis list, and the manifest. Module files and the manifest are looked
up in the search directories (--search-dirs or FLAGPOLE_API_SEARCH_DIRS).`,
		RunE: runServe,
	}

	cmd.Flags().String("address", config.DefaultAddress, "Address to listen on")
	cmd.Flags().String("config", "", "Path to configuration file (YAML format)")
	cmd.Flags().StringSlice("search-dirs", nil, "Directories module files and manifests are looked up in")
	cmd.Flags().String("manifest", "", "API manifest to load at startup")
	cmd.Flags().StringArray("api", nil, "Register an API at startup (name@version=file, repeatable)")
	cmd.Flags().Bool("watch", false, "Reload the manifest when it changes")
	cmd.Flags().String("debounce", config.DefaultDebounce, "Quiet period before a manifest reload")
	cmd.Flags().Bool("management", true, "Register the management API")
	cmd.Flags().Bool("metrics", false, "Expose Prometheus metrics")
	cmd.Flags().String("metrics-path", telemetry.DefaultMetricsPath, "Path the metrics are served on")

	for _, name := range []string{"address", "config", "search-dirs", "manifest", "api", "watch", "debounce", "management", "metrics", "metrics-path"} {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			logger.Fatalf("Failed to bind %s flag: %v", name, err)
		}
	}
	if err := viper.BindEnv("search-dirs", config.SearchDirsEnv); err != nil {
		logger.Fatalf("Failed to bind %s: %v", config.SearchDirsEnv, err)
	}

	return cmd
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	a, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	a.bootstrap(ctx)

	return a.run(ctx)
}

// loadConfig reads the config file, when given, and applies flag and environment
// overrides on top of it.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	var opts []config.Option
	if path := v.GetString("config"); path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}

	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if v.IsSet("address") {
		cfg.Address = v.GetString("address")
	}
	if v.IsSet("search-dirs") {
		cfg.SearchDirs = v.GetStringSlice("search-dirs")
	}
	if v.IsSet("manifest") {
		cfg.Manifest = v.GetString("manifest")
	}
	if v.IsSet("watch") {
		cfg.Watch.Enabled = v.GetBool("watch")
	}
	if v.IsSet("debounce") {
		cfg.Watch.Debounce = v.GetString("debounce")
	}
	if v.IsSet("management") {
		cfg.Management.Enabled = v.GetBool("management")
	}
	if v.IsSet("metrics") || v.IsSet("metrics-path") {
		if cfg.Metrics == nil {
			cfg.Metrics = &telemetry.Config{}
		}
		if v.IsSet("metrics") {
			cfg.Metrics.Enabled = v.GetBool("metrics")
		}
		if v.IsSet("metrics-path") {
			cfg.Metrics.Path = v.GetString("metrics-path")
		}
	}
	for _, s := range v.GetStringSlice("api") {
		api, err := config.ParseAPIFlag(s)
		if err != nil {
			return nil, err
		}
		cfg.APIs = append(cfg.APIs, api)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// application wires the registry, the dynamic router and the HTTP surface together.
type application struct {
	cfg       *config.Config
	mux       *router.Mux
	registry  *registry.Registry
	telemetry *telemetry.Telemetry
	handler   http.Handler
	ready     atomic.Bool
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	tel, err := telemetry.New(ctx, metricsConfig(cfg))
	if err != nil {
		return nil, err
	}

	var regMetrics *telemetry.RegistryMetrics
	var httpMetrics *telemetry.HTTPMetrics
	if tel.Enabled() {
		if regMetrics, err = telemetry.NewRegistryMetrics(tel.MeterProvider()); err != nil {
			return nil, fmt.Errorf("failed to create registry metrics: %w", err)
		}
		if httpMetrics, err = telemetry.NewHTTPMetrics(tel.MeterProvider()); err != nil {
			return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
		}
	}

	mux := router.NewMux()
	opts := []registry.Option{registry.WithMetrics(regMetrics)}
	if len(cfg.SearchDirs) > 0 {
		opts = append(opts, registry.WithSearchDirs(cfg.SearchDirs...))
	}
	reg, err := registry.New(mux, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	a := &application{cfg: cfg, mux: mux, registry: reg, telemetry: tel}
	a.handler = api.NewServer(mux,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(serverRequestTimeout),
			httpMetrics.Middleware,
			api.LoggingMiddleware,
		),
		api.WithReadiness(a.readiness),
		api.WithMetricsHandler(tel.Path(), tel.Handler()),
	)
	return a, nil
}

func metricsConfig(cfg *config.Config) *telemetry.Config {
	if cfg.Metrics == nil {
		return nil
	}
	mc := *cfg.Metrics
	if mc.ServiceVersion == "" {
		mc.ServiceVersion = versions.GetVersionInfo().Version
	}
	return &mc
}

func (a *application) readiness(context.Context) (int, error) {
	if !a.ready.Load() {
		return 0, errors.New("startup registrations in progress")
	}
	return a.registry.Len(), nil
}

// bootstrap performs the startup registrations. Failures are logged; the server still
// starts so a fixed manifest can be reloaded.
func (a *application) bootstrap(ctx context.Context) {
	defer a.ready.Store(true)

	if a.cfg.Management.Enabled {
		info := registry.APIInfo{
			Name:            a.cfg.Management.Name,
			DescriptiveName: "Management API",
			Description:     "Lists, reloads and unregisters APIs",
			Version:         a.cfg.Management.Version,
		}
		if err := a.registry.RegisterDirect(ctx, info, management.New(a.registry)); err != nil {
			logger.Errorf("Failed to register management API: %v", err)
		}
	}

	for _, api := range a.cfg.APIs {
		info := registry.APIInfo{
			Name:            api.Name,
			DescriptiveName: api.DescriptiveName,
			Description:     api.Description,
			Version:         api.Version,
		}
		if err := a.registry.RegisterFromFile(ctx, info, api.FileName); err != nil {
			logger.Errorf("Failed to register %s %s from %s: %v", api.Name, api.Version, api.FileName, err)
		}
	}

	if a.cfg.Manifest != "" {
		if err := a.registry.LoadAPIConfig(ctx, a.cfg.Manifest); err != nil {
			logger.Errorf("Failed to load manifest %s: %v", a.cfg.Manifest, err)
		}
	}

	logger.Infof("%d API version(s) registered", a.registry.Len())
}

// newWatcher returns the manifest watcher, or nil when watching is disabled.
func (a *application) newWatcher() (*watcher.Watcher, error) {
	if !a.cfg.Watch.Enabled {
		return nil, nil
	}
	path, err := a.registry.Locate(a.cfg.Manifest)
	if err != nil {
		return nil, fmt.Errorf("cannot watch manifest: %w", err)
	}
	manifest := a.cfg.Manifest
	return watcher.New(path, func(ctx context.Context) error {
		return a.registry.LoadAPIConfig(ctx, manifest)
	},
		watcher.WithDebounce(a.cfg.Watch.GetDebounce()),
		// An editor may still be writing the manifest when the debounce fires.
		watcher.WithRetry(reloadMaxTries, func(err error) bool {
			return errors.Is(err, registry.ErrConfigParse)
		}),
	)
}

// run serves until ctx is cancelled or the server fails, then unregisters every API.
func (a *application) run(ctx context.Context) error {
	w, err := a.newWatcher()
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         a.cfg.Address,
		Handler:      a.handler,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Server listening on %s", a.cfg.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	if w != nil {
		g.Go(func() error {
			return w.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	a.shutdown()
	if err != nil {
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}

// shutdown unregisters every API, running their unregister hooks, and flushes metrics.
func (a *application) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := a.registry.Unregister(ctx, "", ""); err != nil {
		logger.Errorf("Failed to unregister APIs: %v", err)
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		logger.Errorf("Failed to shutdown telemetry: %v", err)
	}
}
