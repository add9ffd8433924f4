package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"ironveil/server/internal/catalog"
	"ironveil/server/internal/engine"
	servernet "ironveil/server/internal/net"
	"ironveil/server/internal/sim"
	"ironveil/server/logging"
	loggingSinks "ironveil/server/logging/sinks"
)

// Config collects everything Run needs; zero values fall back to defaults.
type Config struct {
	Addr        string
	CatalogPath string
	Seed        int64
	Logging     logging.Config
	TickRate    int
	Logger      *log.Logger
}

func DefaultConfig() Config {
	return Config{
		Addr:    ":8080",
		Logging: logging.DefaultConfig(),
	}
}

// Run wires the logging router, engine, simulation loop, and transport, then
// serves until the HTTP listener fails or ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	fallback := cfg.Logger
	if fallback == nil {
		fallback = log.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	logCfg := cfg.Logging
	if raw := os.Getenv("LOG_BUFFER_SIZE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			logCfg.BufferSize = value
		} else {
			fallback.Printf("invalid LOG_BUFFER_SIZE=%q: %v", raw, err)
		}
	}

	sinks, closers, err := buildSinks(logCfg)
	if err != nil {
		return fmt.Errorf("failed to build log sinks: %w", err)
	}
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	router, err := logging.NewRouter(logging.SystemClock{}, logCfg, sinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			fallback.Printf("failed to close logging router: %v", cerr)
		}
	}()

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		loaded, err := catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("failed to load catalog %s: %w", cfg.CatalogPath, err)
		}
		cat = loaded
	}

	eng := engine.New(engine.Config{
		Catalog:   cat,
		Publisher: router,
		Seed:      cfg.Seed,
	})

	loopCfg := sim.DefaultLoopConfig()
	if cfg.TickRate > 0 {
		loopCfg.TickRate = cfg.TickRate
	}
	loop := sim.NewLoop(eng, loopCfg, logging.SystemClock{}, sim.LoopHooks{})

	gateway := servernet.NewGateway(eng, loop, router)
	defer gateway.Close()
	eng.SetMessenger(gateway)

	stop := make(chan struct{})
	go loop.Run(stop)
	defer close(stop)

	handler := servernet.NewHandler(gateway, loop, servernet.HandlerConfig{Logger: fallback})
	srv := &http.Server{Addr: cfg.Addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fallback.Printf("server listening on %s", cfg.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}

func buildSinks(cfg logging.Config) ([]logging.NamedSink, []func(), error) {
	var sinks []logging.NamedSink
	var closers []func()

	if cfg.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsole(os.Stdout)})
	}
	if cfg.HasSink("json") {
		path := cfg.JSON.FilePath
		if path == "" {
			path = "events.ndjson"
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, err
		}
		closers = append(closers, func() { file.Close() })
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(file, cfg.JSON.FlushInterval)})
	}
	return sinks, closers, nil
}
