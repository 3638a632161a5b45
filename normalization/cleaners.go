package normalization

import (
	"strconv"
	"strings"
	"time"
)

// nullTokens значения ячеек, которые считаются отсутствующими данными.
// Выгрузки ФИПС содержат как пустые ячейки, так и текстовые заглушки.
var nullTokens = map[string]bool{
	"":     true,
	"nan":  true,
	"null": true,
	"none": true,
	"n/a":  true,
	"-":    true,
	"—":    true,
}

// truthyTokens значения, которые трактуются как "истина" в булевых колонках
// (статус правовой охраны и подобные).
var truthyTokens = map[string]bool{
	"1":         true,
	"1.0":       true,
	"t":         true,
	"true":      true,
	"yes":       true,
	"да":        true,
	"действует": true,
	"активен":   true,
}

// dateLayouts форматы дат в порядке приоритета. Выгрузки разных лет
// используют разные форматы, поэтому перебираем все.
var dateLayouts = []string{
	"20060102",
	"2006-01-02",
	"02.01.2006",
	"2006/01/02",
}

// fallbackDateLayouts дополнительные форматы для обобщенного разбора.
var fallbackDateLayouts = []string{
	"02/01/2006",
	"2006.01.02",
	"02-01-2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// CleanString приводит сырое значение ячейки к строке: пустые значения и
// текстовые заглушки ("null", "None", "NaN") схлопываются в пустую строку.
func CleanString(value string) string {
	trimmed := strings.TrimSpace(value)
	if nullTokens[strings.ToLower(trimmed)] {
		return ""
	}
	return trimmed
}

// ParseDate разбирает дату из ячейки. Возвращает nil, если значение пустое
// или не распознано ни одним из известных форматов. Никогда не паникует.
func ParseDate(value string) *time.Time {
	cleaned := CleanString(value)
	if cleaned == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, cleaned); err == nil {
			return &ts
		}
	}

	// Обобщенный разбор: дополнительные форматы и серийные даты Excel.
	for _, layout := range fallbackDateLayouts {
		if ts, err := time.Parse(layout, cleaned); err == nil {
			ts = ts.UTC().Truncate(24 * time.Hour)
			return &ts
		}
	}

	if serial, err := strconv.ParseFloat(cleaned, 64); err == nil && serial > 59 && serial < 200000 {
		// Серийная дата Excel: количество дней с 1899-12-30
		excelEpoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
		ts := excelEpoch.AddDate(0, 0, int(serial))
		return &ts
	}

	return nil
}

// ParseBool возвращает true только для известных истинных значений,
// без учета регистра и пробелов. Пустые и нераспознанные значения - false.
func ParseBool(value string) bool {
	return truthyTokens[strings.ToLower(strings.TrimSpace(value))]
}

// SplitMultiValue разбивает ячейку со списком значений (авторы,
// правообладатели, страны). Разделителем служит перевод строки или запятая.
func SplitMultiValue(value string) []string {
	cleaned := CleanString(value)
	if cleaned == "" {
		return nil
	}

	separator := ","
	if strings.Contains(cleaned, "\n") {
		separator = "\n"
	}

	var parts []string
	for _, part := range strings.Split(cleaned, separator) {
		part = CleanString(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
