package classification

import (
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize размер кэша результатов детектора. Каталоги ФИПС
// содержат сотни тысяч строк с сильно повторяющимися наименованиями.
const DefaultCacheSize = 50000

// orgTokens маркеры организаций: ОПФ, типы учреждений, иностранные формы.
// Наличие любого из них сразу классифицирует строку как организацию.
var orgTokens = []string{
	"ооо", "зао", "оао", "пао", "ао", "нао", "аозт", "тоо",
	"фгуп", "гуп", "муп", "фгбу", "фгбоу", "фгаоу", "фгану",
	"нии", "внии", "цнии", "нпо", "нпп", "окб", "скб",
	"институт", "университет", "академия", "колледж", "техникум",
	"завод", "фабрика", "комбинат", "концерн", "корпорация",
	"компания", "предприятие", "общество", "объединение", "центр",
	"фонд", "ассоциация", "союз", "холдинг", "фирма", "бюро",
	"министерство", "администрация", "правительство", "учреждение",
	"llc", "ltd", "inc", "corp", "gmbh", "s.a", "b.v", "a.g",
	"co", "plc", "university", "institute", "corporation", "company",
	"laboratories", "foundation", "technologies",
}

// Detector определяет, обозначает ли свободный текст человека или
// организацию. Результаты мемоизируются в ограниченном LRU-кэше.
type Detector struct {
	classifier NameClassifier
	cache      *lru.Cache[string, EntityType]
}

// NewDetector создает детектор. classifier может быть nil - тогда
// используются только эвристики (важно для тестов и офлайн-режима).
func NewDetector(classifier NameClassifier, cacheSize int) *Detector {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, EntityType](cacheSize)
	if err != nil {
		// lru.New ошибается только при неположительном размере
		panic(err)
	}
	return &Detector{
		classifier: classifier,
		cache:      cache,
	}
}

// DetectType классифицирует строку как человека или организацию.
// Ответ всегда есть: при любой неоднозначности выбирается организация,
// это безопасное значение по умолчанию для реестровых данных.
func (d *Detector) DetectType(text string) EntityType {
	if cached, ok := d.cache.Get(text); ok {
		return cached
	}

	result := d.classify(text)
	d.cache.Add(text, result)
	return result
}

// DetectTypeBatch классифицирует набор строк, переиспользуя кэш:
// полный разбор выполняется только для промахов.
func (d *Detector) DetectTypeBatch(texts []string) map[string]EntityType {
	results := make(map[string]EntityType, len(texts))
	for _, text := range texts {
		if _, done := results[text]; done {
			continue
		}
		results[text] = d.DetectType(text)
	}
	return results
}

// CacheLen возвращает текущее число записей в кэше.
func (d *Detector) CacheLen() int {
	return d.cache.Len()
}

func (d *Detector) classify(text string) EntityType {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < 2 {
		return EntityOrganization
	}

	if containsOrgToken(trimmed) {
		return EntityOrganization
	}

	if d.classifier != nil {
		if entityType, ok := d.classifier.Classify(trimmed); ok {
			return entityType
		}
	}

	if looksLikePersonName(trimmed) {
		return EntityPerson
	}

	return EntityOrganization
}

// containsOrgToken проверяет наличие маркера организации среди слов строки.
func containsOrgToken(text string) bool {
	lowered := strings.ToLower(text)
	for _, token := range strings.FieldsFunc(lowered, func(r rune) bool {
		return r == ' ' || r == ',' || r == ';' || r == '(' || r == ')' ||
			r == '«' || r == '»' || r == '"' || r == '\t'
	}) {
		token = strings.Trim(token, ".'`")
		for _, marker := range orgTokens {
			if token == marker {
				return true
			}
		}
	}
	return false
}

// looksLikePersonName структурная эвристика: 2-4 слова, из которых не
// менее count-1 начинаются с заглавной буквы и не содержат цифр.
// Покрывает типовые ФИО ("Иванов Иван Иванович", "Иванов И.И.").
func looksLikePersonName(text string) bool {
	words := strings.Fields(text)
	if len(words) < 2 || len(words) > 4 {
		return false
	}

	capitalized := 0
	for _, word := range words {
		if isCapitalizedWord(word) {
			capitalized++
		}
	}
	return capitalized >= len(words)-1
}

func isCapitalizedWord(word string) bool {
	runes := []rune(strings.Trim(word, "."))
	if len(runes) == 0 {
		return false
	}
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
