package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"ipregistry/config"
	"ipregistry/database"
	"ipregistry/fixtures"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to JSON config file")
		dbPath     = flag.String("db", "", "Path to registry database (overrides config)")
		outDir     = flag.String("out", "./fixtures_out", "Output directory for JSON fixtures")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}

	if _, err := os.Stat(cfg.DatabasePath); err != nil {
		log.Fatalf("Registry database not found: %s", cfg.DatabasePath)
	}

	db, err := database.NewRegistryDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open registry database: %v", err)
	}
	defer db.Close()

	exporter := fixtures.NewExporter(db, *outDir)
	if err := exporter.Export(); err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	fmt.Printf("Fixtures written to %s (load order: persons, organizations, ip_objects)\n", *outDir)
}
