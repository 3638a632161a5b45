package extractors

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ipregistry/importer"
)

func holderTable(rows ...string) *importer.Table {
	table := &importer.Table{Headers: []string{"registration number", "patent holders"}}
	for i, holders := range rows {
		table.Rows = append(table.Rows, []string{"RU" + string(rune('1'+i)), holders})
	}
	return table
}

func TestExtractDeduplicates(t *testing.T) {
	out := filepath.Join(t.TempDir(), "holders.txt")
	ex := NewHolderExtractor(out, 2)

	table := holderTable(
		`ООО "Ромашка"`,
		`ООО "Ромашка", АО "Василек"`,
		`АО "Василек"`,
	)

	stats, err := ex.Extract(table, 1, 0, nil)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Processed)
	require.Equal(t, 2, stats.UniqueHolders)
	require.False(t, stats.Interrupted)

	// Порядок первого появления
	require.Equal(t, []string{`ООО "Ромашка"`, `АО "Василек"`}, ex.Holders())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "ООО \"Ромашка\"\nАО \"Василек\"\n", string(data))

	backup, err := os.ReadFile(out + ".backup")
	require.NoError(t, err)
	require.Equal(t, data, backup)
}

func TestExtractSkipsEmptyCells(t *testing.T) {
	out := filepath.Join(t.TempDir(), "holders.txt")
	ex := NewHolderExtractor(out, 10)

	table := holderTable("", "null", `ООО "Ромашка"`)
	stats, err := ex.Extract(table, 1, 0, nil)
	require.NoError(t, err)
	require.Equal(t, 1, stats.UniqueHolders)
}

func TestCheckpointRoundTrip(t *testing.T) {
	out := filepath.Join(t.TempDir(), "holders.txt")
	ex := NewHolderExtractor(out, 10)

	_, err := ex.Extract(holderTable(`ООО "Ромашка"`, `АО "Василек"`), 1, 0, nil)
	require.NoError(t, err)

	cp, err := ex.LoadCheckpoint()
	require.NoError(t, err)
	require.NotNil(t, cp)
	require.Equal(t, 2, cp.Processed)
	require.Equal(t, 2, cp.UniqueHolders)
	require.False(t, cp.Timestamp.IsZero())
	require.NotEmpty(t, cp.RunID)
}

func TestLoadCheckpointMissing(t *testing.T) {
	ex := NewHolderExtractor(filepath.Join(t.TempDir(), "holders.txt"), 10)
	cp, err := ex.LoadCheckpoint()
	require.NoError(t, err)
	require.Nil(t, cp)
}

func TestCheckpointFormat(t *testing.T) {
	out := filepath.Join(t.TempDir(), "holders.txt")
	ex := NewHolderExtractor(out, 10)

	_, err := ex.Extract(holderTable(`ООО "Ромашка"`), 1, 0, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(ex.CheckpointPath())
	require.NoError(t, err)
	content := string(data)
	require.True(t, strings.HasPrefix(content, "processed=1\n"))
	require.Contains(t, content, "unique_holders=1\n")
	require.Contains(t, content, "timestamp=")
	require.Contains(t, content, "run_id=")
}

func TestResumeContinuesAccumulation(t *testing.T) {
	out := filepath.Join(t.TempDir(), "holders.txt")

	first := NewHolderExtractor(out, 10)
	_, err := first.Extract(holderTable(`ООО "Ромашка"`, `АО "Василек"`), 1, 0, nil)
	require.NoError(t, err)

	cp, err := first.LoadCheckpoint()
	require.NoError(t, err)

	second := NewHolderExtractor(out, 10)
	require.NoError(t, second.Resume())

	table := holderTable(`ООО "Ромашка"`, `АО "Василек"`, `ФГУП "НИИ Автоматики"`)
	stats, err := second.Extract(table, 1, cp.Processed, nil)
	require.NoError(t, err)
	require.True(t, stats.Resumed)
	require.Equal(t, 3, stats.Processed)
	require.Equal(t, 3, stats.UniqueHolders)

	require.Equal(t, []string{`ООО "Ромашка"`, `АО "Василек"`, `ФГУП "НИИ Автоматики"`}, second.Holders())
}

func TestExtractInterrupt(t *testing.T) {
	out := filepath.Join(t.TempDir(), "holders.txt")
	ex := NewHolderExtractor(out, 100)

	interrupt := make(chan struct{})
	close(interrupt)

	stats, err := ex.Extract(holderTable(`ООО "Ромашка"`, `АО "Василек"`), 1, 0, interrupt)
	require.NoError(t, err)
	require.True(t, stats.Interrupted)
	require.Zero(t, stats.Processed)

	// Контрольная точка пишется даже при немедленном прерывании
	_, err = os.Stat(ex.CheckpointPath())
	require.NoError(t, err)
}

func TestSortedHolders(t *testing.T) {
	out := filepath.Join(t.TempDir(), "holders.txt")
	ex := NewHolderExtractor(out, 10)

	_, err := ex.Extract(holderTable("Яблоко", "Арбуз"), 1, 0, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Арбуз", "Яблоко"}, ex.SortedHolders())
}
