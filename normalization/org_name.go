package normalization

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

// legalFormAlias каноническая форма ОПФ по свернутому написанию
// (без пробелов и пунктуации, в верхнем регистре).
var legalFormAlias = map[string]string{
	"ООО": "ООО",
	"ОБЩЕСТВОСОГРАНИЧЕННОЙОТВЕТСТВЕННОСТЬЮ": "ООО",
	"ЗАО": "ЗАО",
	"ЗАКРЫТОЕАКЦИОНЕРНОЕОБЩЕСТВО": "ЗАО",
	"ОАО": "ОАО",
	"ОТКРЫТОЕАКЦИОНЕРНОЕОБЩЕСТВО": "ОАО",
	"ПАО": "ПАО",
	"ПУБЛИЧНОЕАКЦИОНЕРНОЕОБЩЕСТВО": "ПАО",
	"АО":                  "АО",
	"АКЦИОНЕРНОЕОБЩЕСТВО": "АО",
	"ФГУП":                "ФГУП",
	"ФЕДЕРАЛЬНОЕГОСУДАРСТВЕННОЕУНИТАРНОЕПРЕДПРИЯТИЕ": "ФГУП",
	"ГУП":   "ГУП",
	"МУП":   "МУП",
	"ФГБУ":  "ФГБУ",
	"ФГБОУ": "ФГБОУ",
	"ФГАОУ": "ФГАОУ",
	"ИП":    "ИП",
	"ИНДИВИДУАЛЬНЫЙПРЕДПРИНИМАТЕЛЬ": "ИП",
	"НПО":                     "НПО",
	"НПП":                     "НПП",
	"ОКБ":                     "ОКБ",
	"КБ":                      "КБ",
	"LLC":                     "LLC",
	"LIMITEDLIABILITYCOMPANY": "LLC",
	"JSC":                     "JSC",
	"JOINTSTOCKCOMPANY":       "JSC",
	"LTD":                     "LTD",
	"INC":                     "INC",
	"GMBH":                    "GMBH",
}

// legalFormWords развернутые написания ОПФ, вырезаемые из поисковой формы.
var legalFormWords = []string{
	"общество с ограниченной ответственностью",
	"закрытое акционерное общество",
	"открытое акционерное общество",
	"публичное акционерное общество",
	"акционерное общество",
	"федеральное государственное унитарное предприятие",
	"федеральное государственное бюджетное учреждение",
	"федеральное государственное бюджетное образовательное учреждение",
	"федеральное государственное автономное образовательное учреждение",
	"государственное унитарное предприятие",
	"муниципальное унитарное предприятие",
	"индивидуальный предприниматель",
	"limited liability company",
	"joint stock company",
}

// stopWords слова, не несущие смысла при поиске организаций.
var stopWords = map[string]bool{
	"имени": true, "россии": true, "высшего": true, "образования": true,
	"учреждение": true, "предприятие": true, "общество": true,
	"организация": true, "федеральное": true, "государственное": true,
	"бюджетное": true, "автономное": true, "научное": true,
}

var (
	quotedNameRegex   = regexp.MustCompile(`[«"']([^«»"']{2,})[»"']`)
	registryCodeRegex = regexp.MustCompile(`\d{10,}`)
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	punctRegex        = regexp.MustCompile(`[«»"'.,;:()\[\]№]+`)
)

// CanonicalLegalForm сворачивает написание ОПФ к каноническому сокращению.
// Возвращает пустую строку, если форма не распознана.
func CanonicalLegalForm(value string) string {
	key := sanitizeLegalFormToken(value)
	if canonical, ok := legalFormAlias[key]; ok {
		return canonical
	}
	return ""
}

func sanitizeLegalFormToken(value string) string {
	replacer := strings.NewReplacer(
		" ", "", ".", "", ",", "", `"`, "",
		"«", "", "»", "", "'", "", "-", "", "_", "",
	)
	return replacer.Replace(strings.ToUpper(strings.TrimSpace(value)))
}

// NormalizeOrgName строит поисковую форму названия организации.
// Форма используется ТОЛЬКО для сопоставления: в базу название всегда
// сохраняется дословно, чтобы не терять исходное написание.
func NormalizeOrgName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if lowered == "" {
		return ""
	}

	for _, form := range legalFormWords {
		lowered = strings.ReplaceAll(lowered, form, " ")
	}

	// Короткие ОПФ вырезаем пословно, чтобы не задеть части слов
	var kept []string
	for _, word := range strings.Fields(punctRegex.ReplaceAllString(lowered, " ")) {
		if CanonicalLegalForm(word) != "" {
			continue
		}
		kept = append(kept, word)
	}

	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(strings.Join(kept, " "), " "))
}

// ExtractSearchKeywords извлекает из названия организации токены для
// поиска по пересечению: содержимое кавычек, аббревиатуры в верхнем
// регистре и цифровые коды от 10 знаков (ИНН/ОГРН).
func ExtractSearchKeywords(name string) []string {
	seen := make(map[string]bool)
	var keywords []string

	appendKeyword := func(kw string) {
		kw = strings.TrimSpace(kw)
		if len([]rune(kw)) < 2 || seen[kw] {
			return
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}

	for _, match := range quotedNameRegex.FindAllStringSubmatch(name, -1) {
		appendKeyword(match[1])
	}

	for _, token := range strings.Fields(punctRegex.ReplaceAllString(name, " ")) {
		if isAllCapsAbbrev(token) && CanonicalLegalForm(token) == "" {
			appendKeyword(token)
		}
	}

	for _, code := range registryCodeRegex.FindAllString(name, -1) {
		appendKeyword(code)
	}

	return keywords
}

// isAllCapsAbbrev проверяет, что токен выглядит как аббревиатура:
// от двух букв, все в верхнем регистре.
func isAllCapsAbbrev(token string) bool {
	runes := []rune(token)
	if len(runes) < 2 {
		return false
	}
	letters := 0
	for _, r := range runes {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		} else if !unicode.IsDigit(r) {
			return false
		}
	}
	return letters >= 2
}

// SignificantWords возвращает стеммированные значимые слова названия
// (длиннее четырех символов, без стоп-слов) для поиска по подстроке.
func SignificantWords(name string) []string {
	normalized := NormalizeOrgName(name)
	if normalized == "" {
		return nil
	}

	var words []string
	for _, word := range strings.Fields(normalized) {
		if len([]rune(word)) <= 4 || stopWords[word] {
			continue
		}
		words = append(words, StemWord(word))
	}
	return words
}

// StemWord стеммирует слово стеммером Snowball. Язык выбирается по
// наличию кириллицы; при ошибке возвращается исходное слово.
func StemWord(word string) string {
	language := "english"
	for _, r := range word {
		if unicode.Is(unicode.Cyrillic, r) {
			language = "russian"
			break
		}
	}

	stemmed, err := snowball.Stem(word, language, false)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}
