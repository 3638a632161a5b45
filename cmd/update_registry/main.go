package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ipregistry/config"
	"ipregistry/database"
	"ipregistry/importer"
	"ipregistry/scraper"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to JSON config file")
		dbPath      = flag.String("db", "", "Path to registry database (overrides config)")
		ipTypeSlug  = flag.String("ip-type", "invention", "IP type to update")
		baseURL     = flag.String("base-url", "", "Registry card URL prefix (overrides config)")
		maxRequests = flag.Int("max-requests", 0, "Hard request ceiling (testing)")
		delayMS     = flag.Int("delay-ms", 0, "Delay between requests in milliseconds")
		dryRun      = flag.Bool("dry-run", false, "Fetch and compare without writing updates")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *baseURL != "" {
		cfg.Scraper.BaseURL = *baseURL
	}
	if cfg.Scraper.BaseURL == "" {
		log.Fatal("Registry base URL is not configured (use -base-url or config)")
	}

	ipType, err := importer.ParseIPType(*ipTypeSlug)
	if err != nil {
		log.Fatalf("Invalid -ip-type: %v", err)
	}

	db, err := database.NewRegistryDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open registry database: %v", err)
	}
	defer db.Close()

	regNumbers, err := actualRegNumbers(db, ipType.Slug())
	if err != nil {
		log.Fatalf("Failed to list objects: %v", err)
	}
	if len(regNumbers) == 0 {
		fmt.Println("Nothing to update")
		return
	}

	scraperCfg := scraper.DefaultConfig()
	scraperCfg.BaseURL = cfg.Scraper.BaseURL
	scraperCfg.Delay = time.Duration(cfg.Scraper.DelayMS) * time.Millisecond
	scraperCfg.Jitter = time.Duration(cfg.Scraper.JitterMS) * time.Millisecond
	scraperCfg.Timeout = time.Duration(cfg.Scraper.TimeoutMS) * time.Millisecond
	scraperCfg.MaxRequests = cfg.Scraper.MaxRequests
	scraperCfg.UserAgent = cfg.Scraper.UserAgent
	if *maxRequests > 0 {
		scraperCfg.MaxRequests = *maxRequests
	}
	if *delayMS > 0 {
		scraperCfg.Delay = time.Duration(*delayMS) * time.Millisecond
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := scraper.New(scraperCfg)
	stats, err := s.UpdateObjects(ctx, db, ipType.Slug(), regNumbers, *dryRun)
	if err != nil && ctx.Err() == nil {
		log.Fatalf("Update failed: %v", err)
	}

	fmt.Printf("\n=== Registry Update (%s) ===\n", ipType.Slug())
	fmt.Printf("Requested: %d\n", stats.Requested)
	fmt.Printf("Updated: %d\n", stats.Updated)
	fmt.Printf("Unchanged: %d\n", stats.Unchanged)
	fmt.Printf("Errors: %d\n", stats.Errors)
	if ctx.Err() != nil {
		fmt.Println("Interrupted by operator")
		os.Exit(1)
	}
	if stats.Errors > 0 {
		os.Exit(1)
	}
}

// actualRegNumbers возвращает номера регистрации объектов типа,
// отсортированные по давности обновления: самые залежавшиеся первыми.
func actualRegNumbers(db *database.RegistryDB, ipType string) ([]string, error) {
	rows, err := db.GetConnection().Query(
		`SELECT registration_number FROM ip_objects WHERE ip_type = ? ORDER BY updated_at ASC`,
		ipType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regNumbers []string
	for rows.Next() {
		var rn string
		if err := rows.Scan(&rn); err != nil {
			return nil, err
		}
		regNumbers = append(regNumbers, rn)
	}
	return regNumbers, rows.Err()
}
