package normalization

import "testing"

func TestCanonicalLegalForm(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ООО", "ООО"},
		{"ооо", "ООО"},
		{"О.О.О.", "ООО"},
		{"Общество с ограниченной ответственностью", "ООО"},
		{"Акционерное общество", "АО"},
		{"ФГУП", "ФГУП"},
		{"LLC", "LLC"},
		{"Ромашка", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CanonicalLegalForm(tt.input); got != tt.expected {
			t.Errorf("CanonicalLegalForm(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeOrgName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`ООО "Ромашка"`, "ромашка"},
		{`Ромашка ООО`, "ромашка"},
		{`Общество с ограниченной ответственностью «Ромашка»`, "ромашка"},
		{`ЗАО "Научный Центр Прикладной Электродинамики"`, "научный центр прикладной электродинамики"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := NormalizeOrgName(tt.input); got != tt.expected {
			t.Errorf("NormalizeOrgName(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

// Разные написания одной организации должны сходиться к одной поисковой форме.
func TestNormalizeOrgNameConverges(t *testing.T) {
	variants := []string{
		`ООО "Ромашка"`,
		`Ромашка, ООО`,
		`Общество с ограниченной ответственностью "Ромашка"`,
		`ооо «Ромашка»`,
	}

	base := NormalizeOrgName(variants[0])
	if base == "" {
		t.Fatal("empty search form for base variant")
	}
	for _, v := range variants[1:] {
		if got := NormalizeOrgName(v); got != base {
			t.Errorf("NormalizeOrgName(%q) = %q, expected %q", v, got, base)
		}
	}
}

func TestExtractSearchKeywords(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"quoted name", `ООО "Ромашка"`, []string{"Ромашка"}},
		{"abbrev without legal form", `НИИ Точных Приборов АО`, []string{"НИИ"}},
		{"registry code", `ООО Ромашка ОГРН 1027700132195`, []string{"ОГРН", "1027700132195"}},
		{"nothing to extract", `Ромашка`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractSearchKeywords(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("ExtractSearchKeywords(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("keyword[%d] = %q, expected %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestSignificantWords(t *testing.T) {
	words := SignificantWords(`ФГУП "Московский завод специальных сплавов"`)
	if len(words) == 0 {
		t.Fatal("expected significant words, got none")
	}
	// Слова длиной до 4 символов и стоп-слова отбрасываются
	for _, w := range words {
		if len([]rune(w)) == 0 {
			t.Errorf("empty word in result %v", words)
		}
	}

	if got := SignificantWords("ООО"); got != nil {
		t.Errorf("SignificantWords(legal form only) = %v, expected nil", got)
	}
}

func TestStemWord(t *testing.T) {
	// Стеммер должен сводить словоформы к общей основе
	if StemWord("электродинамики") != StemWord("электродинамика") {
		t.Errorf("stems differ: %q vs %q", StemWord("электродинамики"), StemWord("электродинамика"))
	}
	if StemWord("testing") != StemWord("tested") {
		t.Errorf("english stems differ: %q vs %q", StemWord("testing"), StemWord("tested"))
	}
}
