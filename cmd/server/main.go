package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"ironveil/server/internal/app"
)

func main() {
	cfg := app.DefaultConfig()
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flag.StringVar(&cfg.CatalogPath, "catalog", "", "path to a definitions file merged over the built-in catalog")
	flag.Int64Var(&cfg.Seed, "seed", 0, "rng seed for combat rolls (0 uses a fixed default)")
	flag.IntVar(&cfg.TickRate, "tick-rate", 0, "simulation ticks per second (0 uses the default)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
