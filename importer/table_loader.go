package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Table табличное содержимое выгрузки: очищенные заголовки и строки данных.
type Table struct {
	Headers []string
	Rows    [][]string
}

// loadStrategy одна комбинация кодировки и разделителя.
type loadStrategy struct {
	name      string
	enc       encoding.Encoding
	delimiter rune
}

// LoadTable читает выгрузку. Формат определяется расширением: .xlsx идет
// через excelize, остальное разбирается как CSV с перебором комбинаций
// кодировки и разделителя в фиксированном порядке приоритета.
// Если ни одна комбинация не дала осмысленной таблицы - ошибка фатальна
// для этого каталога.
func LoadTable(path string, declaredEncoding string, declaredDelimiter rune) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return loadExcelTable(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue file: %w", err)
	}

	if declaredDelimiter == 0 {
		declaredDelimiter = ';'
	}
	declared := encodingByName(declaredEncoding)

	strategies := []loadStrategy{
		{"utf-8/declared", encoding.Nop, declaredDelimiter},
		{"cp1251/declared", charmap.Windows1251, declaredDelimiter},
		{"utf-8/semicolon", encoding.Nop, ';'},
		{"cp1251/semicolon", charmap.Windows1251, ';'},
		{"utf-8/tab", encoding.Nop, '\t'},
	}
	if declared != nil {
		strategies[0].enc = declared
		strategies[1].enc = declared
		strategies[1].name = "declared-encoding/declared"
	}

	var lastErr error
	for _, strategy := range strategies {
		table, err := parseDelimited(data, strategy)
		if err != nil {
			lastErr = err
			continue
		}
		return table, nil
	}

	return nil, fmt.Errorf("no encoding/delimiter strategy succeeded for %s: %w", path, lastErr)
}

func encodingByName(name string) encoding.Encoding {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil
	case "cp1251", "windows-1251", "windows1251":
		return charmap.Windows1251
	case "koi8-r", "koi8r":
		return charmap.KOI8R
	case "iso-8859-5":
		return charmap.ISO8859_5
	default:
		return nil
	}
}

// parseDelimited пробует одну комбинацию кодировки и разделителя.
// Комбинация считается неудачной, если разбор падает, таблица пуста
// или заголовок состоит из единственной колонки (неверный разделитель).
func parseDelimited(data []byte, strategy loadStrategy) (*Table, error) {
	decoded := data
	if strategy.enc != encoding.Nop && strategy.enc != nil {
		converted, _, err := transform.Bytes(strategy.enc.NewDecoder(), data)
		if err != nil {
			return nil, fmt.Errorf("%s: decode failed: %w", strategy.name, err)
		}
		decoded = converted
	}
	if !utf8.Valid(decoded) {
		return nil, fmt.Errorf("%s: result is not valid UTF-8", strategy.name)
	}

	reader := csv.NewReader(strings.NewReader(string(decoded)))
	reader.Comma = strategy.delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", strategy.name, err)
	}
	if len(headers) < 2 {
		return nil, fmt.Errorf("%s: header has a single column, wrong delimiter", strategy.name)
	}

	for i, header := range headers {
		headers[i] = cleanHeader(header)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read row: %w", strategy.name, err)
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}

// loadExcelTable читает первый лист xlsx-файла.
func loadExcelTable(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("Excel file is empty")
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = cleanHeader(header)
	}

	return &Table{Headers: headers, Rows: rows[1:]}, nil
}

// cleanHeader убирает из заголовка BOM, кавычки и лишние пробелы.
func cleanHeader(header string) string {
	header = strings.TrimPrefix(header, "\uFEFF")
	header = strings.Trim(header, `"'«»`)
	return strings.TrimSpace(header)
}
