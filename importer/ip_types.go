package importer

import (
	"fmt"
)

// IPType тип объекта интеллектуальной собственности. Закрытое множество:
// выбор разборщика идет по варианту, а не по сравнению строк.
type IPType int

const (
	IPInvention IPType = iota
	IPUtilityModel
	IPIndustrialDesign
	IPSoftware
	IPDatabase
	IPTopology
)

// ipTypeInfo метаданные типа: слаг для хранения/CLI и ключевые слова
// заголовка колонки с названием объекта в выгрузках ФИПС.
type ipTypeInfo struct {
	slug     string
	title    string
	nameKeys []string
}

var ipTypeTable = map[IPType]ipTypeInfo{
	IPInvention: {
		slug:     "invention",
		title:    "изобретение",
		nameKeys: []string{"invention name"},
	},
	IPUtilityModel: {
		slug:     "utility-model",
		title:    "полезная модель",
		nameKeys: []string{"utility model name"},
	},
	IPIndustrialDesign: {
		slug:     "industrial-design",
		title:    "промышленный образец",
		nameKeys: []string{"industrial design name"},
	},
	IPSoftware: {
		slug:     "software",
		title:    "программа для ЭВМ",
		nameKeys: []string{"program name", "software name"},
	},
	IPDatabase: {
		slug:     "database",
		title:    "база данных",
		nameKeys: []string{"database name"},
	},
	IPTopology: {
		slug:     "topology",
		title:    "топология интегральной микросхемы",
		nameKeys: []string{"topology name"},
	},
}

// Slug возвращает слаг типа, используемый в базе и флагах CLI.
func (t IPType) Slug() string {
	return ipTypeTable[t].slug
}

// String возвращает русское название типа.
func (t IPType) String() string {
	return ipTypeTable[t].title
}

// nameColumnKeys ключевые слова заголовка колонки с названием объекта.
// Общий ключ "name" идет последним, чтобы специфичные выигрывали.
func (t IPType) nameColumnKeys() []string {
	return append(append([]string{}, ipTypeTable[t].nameKeys...), "name")
}

// AllIPTypes возвращает все известные типы в стабильном порядке.
func AllIPTypes() []IPType {
	return []IPType{
		IPInvention, IPUtilityModel, IPIndustrialDesign,
		IPSoftware, IPDatabase, IPTopology,
	}
}

// ParseIPType разбирает слаг типа из флага CLI.
func ParseIPType(slug string) (IPType, error) {
	for t, info := range ipTypeTable {
		if info.slug == slug {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown ip type %q (expected one of: invention, utility-model, industrial-design, software, database, topology)", slug)
}
