package normalization

import (
	"testing"
	"time"
)

func TestCleanString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  ООО Ромашка  ", "ООО Ромашка"},
		{"", ""},
		{"   ", ""},
		{"null", ""},
		{"None", ""},
		{"NaN", ""},
		{"n/a", ""},
		{"-", ""},
		{"RU12345", "RU12345"},
	}

	for _, tt := range tests {
		if got := CleanString(tt.input); got != tt.expected {
			t.Errorf("CleanString(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestCleanStringIdempotent(t *testing.T) {
	inputs := []string{"  Иванов Иван  ", "null", "ГОСТ 12345", ""}
	for _, input := range inputs {
		once := CleanString(input)
		twice := CleanString(once)
		if once != twice {
			t.Errorf("CleanString is not idempotent on %q: %q != %q", input, once, twice)
		}
	}
}

func TestParseDateSupportedFormats(t *testing.T) {
	expected := time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC)
	inputs := []string{
		"20200315",
		"2020-03-15",
		"15.03.2020",
		"2020/03/15",
	}

	for _, input := range inputs {
		got := ParseDate(input)
		if got == nil {
			t.Errorf("ParseDate(%q) = nil, expected %s", input, expected.Format("2006-01-02"))
			continue
		}
		gy, gm, gd := got.Date()
		ey, em, ed := expected.Date()
		if gy != ey || gm != em || gd != ed {
			t.Errorf("ParseDate(%q) = %s, expected %s", input, got.Format("2006-01-02"), expected.Format("2006-01-02"))
		}
	}
}

func TestParseDateFallback(t *testing.T) {
	if got := ParseDate("15/03/2020"); got == nil || got.Year() != 2020 {
		t.Errorf("ParseDate fallback failed for 15/03/2020: %v", got)
	}
	// Серийная дата Excel: 43905 = 2020-03-15
	if got := ParseDate("43905"); got == nil || got.Year() != 2020 || got.Month() != time.March {
		t.Errorf("ParseDate failed for Excel serial 43905: %v", got)
	}
}

func TestParseDateInvalid(t *testing.T) {
	inputs := []string{"", "null", "не дата", "32.13.2020", "########", "abc123"}
	for _, input := range inputs {
		if got := ParseDate(input); got != nil {
			t.Errorf("ParseDate(%q) = %v, expected nil", input, got)
		}
	}
}

func TestParseBool(t *testing.T) {
	truthy := []string{"1", "true", "TRUE", " yes ", "Да", "действует", "t", "1.0", "Активен"}
	for _, input := range truthy {
		if !ParseBool(input) {
			t.Errorf("ParseBool(%q) = false, expected true", input)
		}
	}

	falsy := []string{"", "0", "false", "нет", "null", "NaN", "прекращено", "  "}
	for _, input := range falsy {
		if ParseBool(input) {
			t.Errorf("ParseBool(%q) = true, expected false", input)
		}
	}
}

func TestSplitMultiValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"comma separated", "Иванов И.И., Петров П.П.", []string{"Иванов И.И.", "Петров П.П."}},
		{"newline separated", "Иванов И.И.\nПетров П.П.", []string{"Иванов И.И.", "Петров П.П."}},
		{"newline wins over comma", "ООО \"А, Б\"\nПетров П.П.", []string{"ООО \"А, Б\"", "Петров П.П."}},
		{"empty", "", nil},
		{"null token", "null", nil},
		{"blank items dropped", "Иванов,,  ,Петров", []string{"Иванов", "Петров"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitMultiValue(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("SplitMultiValue(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("SplitMultiValue(%q)[%d] = %q, expected %q", tt.input, i, got[i], tt.expected[i])
				}
			}
		})
	}
}
