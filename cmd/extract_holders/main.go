package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ipregistry/extractors"
	"ipregistry/importer"
)

func main() {
	var (
		filePath    = flag.String("file", "", "Path to the catalogue file")
		outputPath  = flag.String("output", "holders.txt", "Path to the output holder list")
		encodingArg = flag.String("encoding", "", "Declared source encoding")
		delimiter   = flag.String("delimiter", ";", "Declared source delimiter")
		batchSize   = flag.Int("batch-size", 1000, "Rows between checkpoint writes")
		assumeYes   = flag.Bool("yes", false, "Resume from checkpoint without prompting")
	)
	flag.Parse()

	if *filePath == "" {
		fmt.Println("Usage: extract_holders -file <path> [-output <path>] [flags]")
		os.Exit(1)
	}

	var delim rune = ';'
	if *delimiter != "" {
		delim = []rune(*delimiter)[0]
	}
	table, err := importer.LoadTable(*filePath, *encodingArg, delim)
	if err != nil {
		log.Fatalf("Failed to load catalogue: %v", err)
	}

	holderColumn := findHolderColumn(table.Headers)
	if holderColumn == -1 {
		log.Fatalf("No holder column found in headers: %v", table.Headers)
	}

	extractor := extractors.NewHolderExtractor(*outputPath, *batchSize)

	// Возобновление с контрольной точки по подтверждению оператора
	startRow := 0
	checkpoint, err := extractor.LoadCheckpoint()
	if err != nil {
		log.Fatalf("Failed to read checkpoint: %v", err)
	}
	if checkpoint != nil && checkpoint.Processed > 0 {
		fmt.Printf("Found checkpoint: %d rows processed, %d unique holders (%s)\n",
			checkpoint.Processed, checkpoint.UniqueHolders, checkpoint.Timestamp.Format("2006-01-02 15:04"))
		if *assumeYes || promptYesNo("Resume from checkpoint?") {
			if err := extractor.Resume(); err != nil {
				log.Fatalf("Failed to resume from previous output: %v", err)
			}
			startRow = checkpoint.Processed
		}
	}

	// Кооперативная остановка: по сигналу дописывается частичная пачка
	// и контрольная точка, затем процесс выходит
	interrupt := make(chan struct{})
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		close(interrupt)
	}()

	stats, err := extractor.Extract(table, holderColumn, startRow, interrupt)
	if err != nil {
		log.Fatalf("Extraction failed: %v", err)
	}

	fmt.Printf("\n=== Holder Extraction ===\n")
	fmt.Printf("Rows processed: %d\n", stats.Processed)
	fmt.Printf("Unique holders: %d\n", stats.UniqueHolders)
	fmt.Printf("Output: %s\n", *outputPath)
	if stats.Resumed {
		fmt.Println("Resumed from checkpoint")
	}
	if stats.Interrupted {
		fmt.Println("Interrupted: partial results and checkpoint written")
		os.Exit(1)
	}
}

func findHolderColumn(headers []string) int {
	for i, header := range headers {
		h := strings.ToLower(header)
		if strings.Contains(h, "patent holder") || strings.Contains(h, "right holder") ||
			strings.Contains(h, "rightholder") || strings.Contains(h, "copyright holder") {
			return i
		}
	}
	return -1
}

func promptYesNo(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
