// Package extractors содержит автономный экстрактор правообладателей:
// читает выгрузку каталога и пишет дедуплицированный текстовый список
// наименований правообладателей с контрольными точками для возобновления.
package extractors

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ipregistry/importer"
	"ipregistry/normalization"
)

// Checkpoint состояние прерванного прогона экстрактора.
// Файл .checkpoint хранит строки вида key=value.
type Checkpoint struct {
	Processed     int
	UniqueHolders int
	Timestamp     time.Time
	RunID         string
}

// ExtractorStats итоги прогона экстрактора.
type ExtractorStats struct {
	Processed     int
	UniqueHolders int
	Resumed       bool
	Interrupted   bool
}

// HolderExtractor извлекает наименования правообладателей из выгрузки.
type HolderExtractor struct {
	outputPath string
	batchSize  int
	runID      string

	holders map[string]bool
	ordered []string
}

// NewHolderExtractor создает экстрактор, пишущий в outputPath.
// После каждой пачки строк перезаписываются выходной файл, его копия
// .backup и контрольная точка .checkpoint.
func NewHolderExtractor(outputPath string, batchSize int) *HolderExtractor {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &HolderExtractor{
		outputPath: outputPath,
		batchSize:  batchSize,
		runID:      uuid.NewString(),
		holders:    make(map[string]bool),
	}
}

// CheckpointPath путь файла контрольной точки.
func (he *HolderExtractor) CheckpointPath() string {
	return he.outputPath + ".checkpoint"
}

// LoadCheckpoint читает контрольную точку предыдущего прогона.
// Возвращает nil, если точки нет.
func (he *HolderExtractor) LoadCheckpoint() (*Checkpoint, error) {
	data, err := os.ReadFile(he.CheckpointPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	cp := &Checkpoint{}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found {
			continue
		}
		switch key {
		case "processed":
			cp.Processed, _ = strconv.Atoi(value)
		case "unique_holders":
			cp.UniqueHolders, _ = strconv.Atoi(value)
		case "timestamp":
			cp.Timestamp, _ = time.Parse(time.RFC3339, value)
		case "run_id":
			cp.RunID = value
		}
	}
	return cp, nil
}

// Resume восстанавливает накопленный список из выходного файла
// предыдущего прогона.
func (he *HolderExtractor) Resume() error {
	file, err := os.Open(he.outputPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open previous output: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		holder := strings.TrimSpace(scanner.Text())
		if holder == "" || he.holders[holder] {
			continue
		}
		he.holders[holder] = true
		he.ordered = append(he.ordered, holder)
	}
	return scanner.Err()
}

// Extract обрабатывает выгрузку. interrupt - канал кооперативной
// остановки (обычно сигнал ОС): при срабатывании пишется финальная
// частичная пачка и контрольная точка, затем обработка завершается.
func (he *HolderExtractor) Extract(table *importer.Table, holderColumn int, startRow int, interrupt <-chan struct{}) (*ExtractorStats, error) {
	stats := &ExtractorStats{Resumed: startRow > 0}

	processed := startRow
	sinceFlush := 0
	for i := startRow; i < len(table.Rows); i++ {
		select {
		case <-interrupt:
			stats.Interrupted = true
			stats.Processed = processed
			stats.UniqueHolders = len(he.ordered)
			if err := he.flush(processed); err != nil {
				return stats, err
			}
			log.Printf("interrupted at row %d, checkpoint written", processed)
			return stats, nil
		default:
		}

		row := table.Rows[i]
		processed++
		sinceFlush++

		if holderColumn < 0 || holderColumn >= len(row) {
			continue
		}
		for _, holder := range normalization.SplitMultiValue(row[holderColumn]) {
			if he.holders[holder] {
				continue
			}
			he.holders[holder] = true
			he.ordered = append(he.ordered, holder)
		}

		if sinceFlush >= he.batchSize {
			if err := he.flush(processed); err != nil {
				return stats, err
			}
			sinceFlush = 0
		}
	}

	stats.Processed = processed
	stats.UniqueHolders = len(he.ordered)
	if err := he.flush(processed); err != nil {
		return stats, err
	}
	return stats, nil
}

// Holders возвращает накопленный список в порядке первого появления.
func (he *HolderExtractor) Holders() []string {
	return append([]string{}, he.ordered...)
}

// SortedHolders возвращает отсортированную копию списка.
func (he *HolderExtractor) SortedHolders() []string {
	holders := he.Holders()
	sort.Strings(holders)
	return holders
}

// flush перезаписывает выходной файл, .backup и .checkpoint.
// Потеряться при падении может не больше одной пачки.
func (he *HolderExtractor) flush(processed int) error {
	content := strings.Join(he.ordered, "\n")
	if len(he.ordered) > 0 {
		content += "\n"
	}

	if err := os.WriteFile(he.outputPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.WriteFile(he.outputPath+".backup", []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	checkpoint := fmt.Sprintf("processed=%d\nunique_holders=%d\ntimestamp=%s\nrun_id=%s\n",
		processed, len(he.ordered), time.Now().UTC().Format(time.RFC3339), he.runID)
	if err := os.WriteFile(he.CheckpointPath(), []byte(checkpoint), 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	return nil
}
