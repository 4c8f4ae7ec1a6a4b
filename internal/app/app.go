// Package app wires the process together: environment config, the logging
// router, the catalog, the ledger store, the hub, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	server "emberfall/server"
	"emberfall/server/internal/ledgerstore"
	nethttp "emberfall/server/internal/net"
	"emberfall/server/internal/telemetry"
	"emberfall/server/logging"
	"emberfall/server/logging/sinks"
)

// Environment is the process configuration, parsed from environment
// variables. Zero values fall back to the engine defaults.
type Environment struct {
	Addr         string `env:"ADDR" envDefault:":8080"`
	CatalogPath  string `env:"CATALOG_PATH"`
	LedgerDBPath string `env:"LEDGER_DB_PATH"`
	LogJSONPath  string `env:"LOG_JSON_PATH"`

	TickRate           int           `env:"TICK_RATE"`
	MinInterval        time.Duration `env:"INVASION_MIN_INTERVAL"`
	MaxInterval        time.Duration `env:"INVASION_MAX_INTERVAL"`
	Duration           time.Duration `env:"INVASION_DURATION"`
	PhaseKillThreshold int           `env:"PHASE_KILL_THRESHOLD"`
	Seed               int64         `env:"INVASION_SEED"`

	ShutdownGrace time.Duration `env:"SHUTDOWN_GRACE" envDefault:"5s"`
}

// LoadEnvironment parses the process environment.
func LoadEnvironment() (Environment, error) {
	var cfg Environment
	if err := env.Parse(&cfg); err != nil {
		return Environment{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// engineConfig folds the environment overrides into the engine defaults.
func engineConfig(envCfg Environment) server.Config {
	cfg := server.DefaultConfig()
	if envCfg.TickRate > 0 {
		cfg.TickRate = envCfg.TickRate
	}
	if envCfg.MinInterval > 0 {
		cfg.MinInterval = envCfg.MinInterval
	}
	if envCfg.MaxInterval > 0 {
		cfg.MaxInterval = envCfg.MaxInterval
	}
	if envCfg.Duration > 0 {
		cfg.Duration = envCfg.Duration
	}
	if envCfg.PhaseKillThreshold > 0 {
		cfg.PhaseKillThreshold = envCfg.PhaseKillThreshold
	}
	if envCfg.Seed != 0 {
		cfg.Seed = envCfg.Seed
	}
	return cfg
}

// Run boots the server and blocks until ctx is cancelled or the
// listener fails.
func Run(ctx context.Context, envCfg Environment) error {
	stdLogger := log.New(os.Stdout, "", log.LstdFlags)

	sinkSet := map[string]logging.Sink{
		"console": sinks.NewConsole(os.Stdout),
	}
	if path := strings.TrimSpace(envCfg.LogJSONPath); path != "" {
		logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open json log sink: %w", err)
		}
		// The sink takes ownership and closes the file with the router.
		sinkSet["json"] = sinks.NewJSON(logFile)
	}
	router, err := logging.NewRouter(logging.SystemClock{}, logging.DefaultConfig(), sinkSet)
	if err != nil {
		return fmt.Errorf("start logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := router.Close(closeCtx); err != nil {
			stdLogger.Printf("logging router close: %v", err)
		}
	}()

	catalog := server.DefaultCatalog()
	if path := strings.TrimSpace(envCfg.CatalogPath); path != "" {
		loaded, err := server.LoadCatalog(path)
		if err != nil {
			return fmt.Errorf("load catalog %s: %w", path, err)
		}
		catalog = loaded
		stdLogger.Printf("loaded catalog from %s (%d archetypes, %d shop items)",
			path, len(catalog.Archetypes()), len(catalog.ShopItems()))
	}

	var store server.LedgerStore
	if path := strings.TrimSpace(envCfg.LedgerDBPath); path != "" {
		sqlStore, err := ledgerstore.Open(path)
		if err != nil {
			return fmt.Errorf("open ledger store: %w", err)
		}
		defer sqlStore.Close()
		store = sqlStore
		stdLogger.Printf("ledger persistence enabled at %s", path)
	}

	hub := server.NewHub(server.HubConfig{
		Config:    engineConfig(envCfg),
		Catalog:   catalog,
		Publisher: router,
		Logger:    telemetry.WrapLogger(stdLogger),
		Store:     store,
	})
	if err := hub.LoadLedger(ctx); err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	stop := make(chan struct{})
	simDone := make(chan struct{})
	go func() {
		defer close(simDone)
		hub.RunSimulation(stop)
	}()

	handler := nethttp.NewHTTPHandler(hub, nethttp.HTTPHandlerConfig{Logger: stdLogger})
	srv := &http.Server{
		Addr:              envCfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		stdLogger.Printf("listening on %s", envCfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		grace := envCfg.ShutdownGrace
		if grace <= 0 {
			grace = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			stdLogger.Printf("http shutdown: %v", err)
		}
		<-errCh
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	close(stop)
	<-simDone
	return runErr
}
