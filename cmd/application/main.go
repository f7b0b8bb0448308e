package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gocatalog_sync/config"
	"gocatalog_sync/internal/catalog/app"
	"gocatalog_sync/pkg/dbconnect"
	"gocatalog_sync/pkg/dbconnect/postgres"
	"gocatalog_sync/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config; empty uses defaults and environment")
	memory := flag.Bool("memory", false, "keep snapshots in memory instead of Postgres")
	flag.Parse()

	log.Printf("\nStarted catalog sync\n")
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var connector dbconnect.Database
	if !*memory {
		connector = postgres.NewPgConnector(cfg.Postgres, logger.NewLogger(os.Stdout, ""))
	}

	server := app.NewCatalogServer(connector, cfg, os.Stdout)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("Catalog server stopped: %s", err)
	}
}
