package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"ipregistry/classification"
	"ipregistry/config"
	"ipregistry/database"
	"ipregistry/importer"
	"ipregistry/normalization"
	"ipregistry/resolver"
)

func main() {
	var (
		filePath    = flag.String("file", "", "Path to the catalogue file (CSV or XLSX)")
		configPath  = flag.String("config", "", "Path to JSON config file")
		dbPath      = flag.String("db", "", "Path to registry database (overrides config)")
		ipTypeSlug  = flag.String("ip-type", "invention", "IP type: invention, utility-model, industrial-design, software, database, topology")
		catalogueID = flag.Int64("catalogue-id", 0, "Existing catalogue id to attach rows to")
		pubDate     = flag.String("publication-date", "", "Catalogue publication date (YYYY-MM-DD)")
		dryRun      = flag.Bool("dry-run", false, "Run detection and resolution without writing to the database")
		force       = flag.Bool("force", false, "Re-evaluate rows even when the catalogue predates their last update")
		skipFilters = flag.Bool("skip-filters", false, "Disable the skip-by-publication-date policy")
		encodingArg = flag.String("encoding", "", "Declared source encoding (utf-8, cp1251, koi8-r)")
		delimiter   = flag.String("delimiter", ";", "Declared source delimiter")
		batchSize   = flag.Int("batch-size", 0, "Batch size for queries and write transactions")
		minYear     = flag.Int("min-year", 0, "Skip records created before this year")
		onlyActive  = flag.Bool("only-active", false, "Import only records with active legal protection")
		maxRows     = flag.Int("max-rows", 0, "Hard row ceiling (debugging)")
		noNER       = flag.Bool("no-ner", false, "Disable the NER classifier, use heuristics only")
	)
	flag.Parse()

	if *filePath == "" {
		fmt.Println("Usage: import_catalogue -file <path> [-ip-type <slug>] [-db <path>] [flags]")
		os.Exit(1)
	}
	if _, err := os.Stat(*filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Fatalf("File not found: %s", *filePath)
		}
		log.Fatalf("Error checking file %s: %v", *filePath, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}

	ipType, err := importer.ParseIPType(*ipTypeSlug)
	if err != nil {
		log.Fatalf("Invalid -ip-type: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}
	db, err := database.NewRegistryDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open registry database: %v", err)
	}
	defer db.Close()

	catalogue, err := resolveCatalogue(db, ipType, *catalogueID, *filePath, *pubDate, *dryRun)
	if err != nil {
		log.Fatalf("Failed to resolve catalogue: %v", err)
	}

	var classifier classification.NameClassifier
	if !*noNER {
		classifier = classification.NewProseClassifier()
	}
	detector := classification.NewDetector(classifier, classification.DefaultCacheSize)

	rctx, err := resolver.NewContext(db, detector, *dryRun)
	if err != nil {
		log.Fatalf("Failed to create resolution context: %v", err)
	}

	opts := importer.DefaultOptions()
	opts.DryRun = *dryRun
	opts.Force = *force
	opts.SkipByDate = cfg.SkipByDate && !*skipFilters
	opts.BatchSize = cfg.BatchSize
	opts.MinYear = *minYear
	opts.OnlyActive = *onlyActive
	opts.MaxRows = *maxRows
	opts.Encoding = *encodingArg
	if *delimiter != "" {
		opts.Delimiter = []rune(*delimiter)[0]
	}

	imp := importer.NewImporter(db, rctx, ipType, catalogue, opts)
	stats, err := imp.Run(*filePath)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	fmt.Printf("\n=== Import Results (%s) ===\n", ipType.Slug())
	fmt.Printf("Processed: %d\n", stats.Processed)
	fmt.Printf("Created: %d\n", stats.Created)
	fmt.Printf("Updated: %d\n", stats.Updated)
	fmt.Printf("Unchanged: %d\n", stats.Unchanged)
	fmt.Printf("Skipped: %d (by publication date: %d)\n", stats.Skipped, stats.SkippedByDate)
	fmt.Printf("Errors: %d\n", stats.Errors)
	if stats.Relations != nil {
		fmt.Printf("Relations: %d author, %d holder-person, %d holder-org (deleted %d, inserted %d)\n",
			stats.Relations.AuthorPairs, stats.Relations.HolderPersonPairs, stats.Relations.HolderOrgPairs,
			stats.Relations.DeletedRows, stats.Relations.InsertedRows)
	}
	fmt.Printf("Duration: %s\n", stats.Duration.Round(time.Millisecond))
	if *dryRun {
		fmt.Println("Dry run: no database writes performed")
	}

	for _, msg := range stats.ErrorMessages {
		fmt.Printf(" - %s\n", msg)
	}
	if stats.Errors > 0 {
		os.Exit(1)
	}
}

// resolveCatalogue находит существующую запись каталога или регистрирует
// новую по пути файла и дате публикации.
func resolveCatalogue(db *database.RegistryDB, ipType importer.IPType, id int64, filePath, pubDate string, dryRun bool) (*database.Catalogue, error) {
	if id > 0 {
		catalogue, err := db.GetCatalogue(id)
		if err != nil {
			return nil, err
		}
		if catalogue == nil {
			return nil, fmt.Errorf("catalogue %d not found", id)
		}
		return catalogue, nil
	}

	catalogue := &database.Catalogue{
		IPType:          ipType.Slug(),
		FileName:        filepath.Base(filePath),
		PublicationDate: normalization.ParseDate(pubDate),
		ImportRunID:     uuid.NewString(),
	}
	if dryRun {
		return catalogue, nil
	}
	if _, err := db.CreateCatalogue(catalogue); err != nil {
		return nil, err
	}
	return catalogue, nil
}
