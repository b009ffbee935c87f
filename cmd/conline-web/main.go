package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conline/conline/internal/aggregator"
	"github.com/conline/conline/internal/config"
	"github.com/conline/conline/internal/server"
	"github.com/conline/conline/internal/storage"
	"github.com/conline/conline/internal/storage/postgres"
	"github.com/conline/conline/internal/storage/sqlite"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to YAML config file (default: config/conline.yaml)")
	flag.Parse()

	// If no config path specified, use default if it exists
	if *configPath == "" {
		defaultPath := "config/conline.yaml"
		if _, err := os.Stat(defaultPath); err == nil {
			*configPath = defaultPath
			log.Printf("Using config file: %s", defaultPath)
		}
	}

	// Load configuration
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadConfigFile(*configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize storage
	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	agg := aggregator.New(store)

	addr, err := server.Start(ctx, cfg, store, agg)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Conline web service running at http://%s", addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")

	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// openStore selects the storage engine from configuration.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		return postgres.NewStore(cfg.Storage.PostgresDSN)
	default:
		return sqlite.NewStore(cfg.Storage.DataPath + "/conline.db")
	}
}
