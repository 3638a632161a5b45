// Package importer реализует пакетный импорт каталогов ФИПС в базу реестра.
package importer

import (
	"fmt"
	"log"
	"strings"
	"time"

	"ipregistry/database"
	"ipregistry/normalization"
	"ipregistry/relations"
	"ipregistry/resolver"
)

// Options параметры запуска импорта одного каталога.
type Options struct {
	DryRun     bool
	Force      bool // сравнивать поля даже для строк, пропускаемых по дате
	SkipByDate bool // политика пропуска строк старше последнего обновления
	BatchSize  int  // размер пачки для выборок и транзакций записи
	MinYear    int  // отбрасывать записи старше этого года создания
	OnlyActive bool // импортировать только действующие записи
	MaxRows    int  // жесткий потолок строк (для отладки)
	Encoding   string
	Delimiter  rune
}

// DefaultOptions параметры по умолчанию: политика пропуска по дате
// публикации каталога включена, но остается настраиваемой - даты
// публикации в открытых данных бывают недостоверны.
func DefaultOptions() Options {
	return Options{
		SkipByDate: true,
		BatchSize:  500,
	}
}

// ImportStats итоги импорта каталога. Ошибки строк накапливаются,
// а не прерывают обработку.
type ImportStats struct {
	Processed     int
	Created       int
	Updated       int
	Unchanged     int
	Skipped       int // строки без ключа и отфильтрованные
	SkippedByDate int
	Errors        int
	ErrorMessages []string
	Relations     *relations.RebuildStats
	Started       time.Time
	Duration      time.Duration
}

// columnIndices индексы нужных колонок в заголовке выгрузки.
type columnIndices struct {
	regNumber        int
	name             int
	authors          int
	holders          int
	applicationDate  int
	registrationDate int
	expirationDate   int
	actual           int
	url              int
	abstract         int
}

// parsedRow очищенные значения одной строки выгрузки.
type parsedRow struct {
	regNumber        string
	name             string
	authors          []string
	holders          []string
	applicationDate  *time.Time
	registrationDate *time.Time
	expirationDate   *time.Time
	actual           bool
	url              string
	abstract         string
	creationYear     int
}

// Importer драйвер импорта каталога одного типа ИС.
type Importer struct {
	db        *database.RegistryDB
	rctx      *resolver.Context
	builder   *relations.Builder
	ipType    IPType
	catalogue *database.Catalogue
	opts      Options
}

// NewImporter создает драйвер импорта.
func NewImporter(db *database.RegistryDB, rctx *resolver.Context, ipType IPType, catalogue *database.Catalogue, opts Options) *Importer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	return &Importer{
		db:        db,
		rctx:      rctx,
		builder:   relations.NewBuilder(db),
		ipType:    ipType,
		catalogue: catalogue,
		opts:      opts,
	}
}

// Run выполняет импорт каталога от загрузки файла до перестройки связей.
// Ошибка возвращается только для фатальных условий (нечитаемый файл,
// отсутствие обязательной колонки); ошибки строк попадают в статистику.
func (imp *Importer) Run(filePath string) (*ImportStats, error) {
	stats := &ImportStats{Started: time.Now()}
	defer func() { stats.Duration = time.Since(stats.Started) }()

	// LOAD_SOURCE
	table, err := LoadTable(filePath, imp.opts.Encoding, imp.opts.Delimiter)
	if err != nil {
		return stats, err
	}

	indices, err := imp.findColumns(table.Headers)
	if err != nil {
		return stats, err
	}

	// INDEX_BY_KEY: строки без номера регистрации отбрасываются и считаются
	rowsByKey := make(map[string]parsedRow, len(table.Rows))
	keys := make([]string, 0, len(table.Rows))
	for _, raw := range table.Rows {
		if imp.opts.MaxRows > 0 && stats.Processed >= imp.opts.MaxRows {
			break
		}
		stats.Processed++

		row := imp.parseRow(raw, indices)
		if row.regNumber == "" {
			stats.Skipped++
			continue
		}
		if imp.opts.OnlyActive && !row.actual {
			stats.Skipped++
			continue
		}
		if imp.opts.MinYear > 0 && row.creationYear > 0 && row.creationYear < imp.opts.MinYear {
			stats.Skipped++
			continue
		}

		if _, dup := rowsByKey[row.regNumber]; !dup {
			keys = append(keys, row.regNumber)
		}
		rowsByKey[row.regNumber] = row
	}

	// DIFF_AGAINST_DB
	existing, err := imp.db.GetIPObjectsByRegNumbers(imp.ipType.Slug(), keys, imp.opts.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch existing ip objects: %w", err)
	}

	// PREPARE_FIELD_CHANGES
	var toCreate []*database.IPObject
	var toUpdate []database.IPObjectUpdate
	var tuples []relations.Tuple
	var touchedKeys []string

	for _, key := range keys {
		row := rowsByKey[key]
		current, found := existing[key]

		if !found {
			toCreate = append(toCreate, imp.buildObject(row))
			touchedKeys = append(touchedKeys, key)
			tuples = append(tuples, rowTuples(row)...)
			continue
		}

		if imp.skipByDate(current) {
			stats.SkippedByDate++
			stats.Skipped++
			continue
		}

		// Связи перевыводятся и для неизмененных записей: список авторов
		// мог поменяться без изменения отслеживаемых полей
		touchedKeys = append(touchedKeys, key)
		tuples = append(tuples, rowTuples(row)...)

		changes := diffObject(current, row, imp.catalogueID())
		if len(changes) == 0 {
			stats.Unchanged++
			continue
		}

		toUpdate = append(toUpdate, database.IPObjectUpdate{ID: current.ID, Fields: changes})
	}

	// BULK_WRITE_OBJECTS
	if !imp.opts.DryRun {
		created, err := imp.db.InsertIPObjectsBulk(toCreate, imp.opts.BatchSize)
		if err != nil {
			stats.Errors++
			stats.ErrorMessages = append(stats.ErrorMessages, err.Error())
			log.Printf("bulk insert failed: %v", err)
		} else {
			stats.Created = created
		}

		updated, err := imp.db.UpdateIPObjectsBatch(toUpdate, imp.opts.BatchSize)
		if err != nil {
			stats.Errors++
			stats.ErrorMessages = append(stats.ErrorMessages, err.Error())
			log.Printf("batch update failed: %v", err)
		} else {
			stats.Updated = updated
		}
	} else {
		stats.Created = len(toCreate)
		stats.Updated = len(toUpdate)
	}

	// RESOLVE_ID_MAP: пакетная вставка не возвращает созданные id
	idMap, err := imp.db.GetIPObjectIDsByRegNumbers(imp.ipType.Slug(), touchedKeys, imp.opts.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("failed to resolve ip object ids: %w", err)
	}

	// BUILD_RELATIONS
	relStats, err := imp.builder.Rebuild(imp.rctx, tuples, idMap)
	if err != nil {
		stats.Errors++
		stats.ErrorMessages = append(stats.ErrorMessages, err.Error())
		log.Printf("relation rebuild failed: %v", err)
	}
	stats.Relations = relStats

	return stats, nil
}

func (imp *Importer) catalogueID() int64 {
	if imp.catalogue == nil {
		return 0
	}
	return imp.catalogue.ID
}

// skipByDate пропускает строку, если каталог опубликован не позже
// последнего обновления записи. Политика настраиваемая: при
// недостоверных датах публикации ее нужно выключать (или включать Force).
func (imp *Importer) skipByDate(current *database.IPObject) bool {
	if !imp.opts.SkipByDate || imp.opts.Force {
		return false
	}
	if imp.catalogue == nil || imp.catalogue.PublicationDate == nil {
		return false
	}
	return !imp.catalogue.PublicationDate.After(current.UpdatedAt)
}

// findColumns ищет колонки по ключевым словам заголовков, как в выгрузках
// открытых данных ФИПС. Обязательна только колонка номера регистрации.
func (imp *Importer) findColumns(headers []string) (columnIndices, error) {
	indices := columnIndices{
		regNumber: -1, name: -1, authors: -1, holders: -1,
		applicationDate: -1, registrationDate: -1, expirationDate: -1,
		actual: -1, url: -1, abstract: -1,
	}

	for i, header := range headers {
		h := strings.ToLower(strings.TrimSpace(header))
		if h == "" {
			continue
		}

		if indices.regNumber == -1 && strings.Contains(h, "registration number") {
			indices.regNumber = i
		}
		if indices.name == -1 && containsAny(h, imp.ipType.nameColumnKeys()) && !strings.Contains(h, "holder") {
			indices.name = i
		}
		if indices.authors == -1 && strings.Contains(h, "author") {
			indices.authors = i
		}
		if indices.holders == -1 && containsAny(h, []string{"patent holder", "right holder", "rightholder", "copyright holder"}) {
			indices.holders = i
		}
		if indices.applicationDate == -1 && strings.Contains(h, "application date") {
			indices.applicationDate = i
		}
		if indices.registrationDate == -1 && strings.Contains(h, "registration date") {
			indices.registrationDate = i
		}
		if indices.expirationDate == -1 && containsAny(h, []string{"expiration date", "expiry date"}) {
			indices.expirationDate = i
		}
		if indices.actual == -1 && containsAny(h, []string{"actual", "status"}) {
			indices.actual = i
		}
		if indices.url == -1 && containsAny(h, []string{"url", "link"}) {
			indices.url = i
		}
		if indices.abstract == -1 && containsAny(h, []string{"abstract", "description"}) {
			indices.abstract = i
		}
	}

	if indices.regNumber == -1 {
		return indices, fmt.Errorf("required column 'registration number' not found in headers")
	}
	return indices, nil
}

// parseRow очищает значения ячеек. Ошибки полей не фатальны: дата
// становится nil, флаг - false, строка - пустой.
func (imp *Importer) parseRow(raw []string, indices columnIndices) parsedRow {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(raw) {
			return ""
		}
		return raw[idx]
	}

	row := parsedRow{
		regNumber:        normalization.CleanString(cell(indices.regNumber)),
		name:             normalization.CleanString(cell(indices.name)),
		authors:          normalization.SplitMultiValue(cell(indices.authors)),
		holders:          normalization.SplitMultiValue(cell(indices.holders)),
		applicationDate:  normalization.ParseDate(cell(indices.applicationDate)),
		registrationDate: normalization.ParseDate(cell(indices.registrationDate)),
		expirationDate:   normalization.ParseDate(cell(indices.expirationDate)),
		actual:           normalization.ParseBool(cell(indices.actual)),
		url:              normalization.CleanString(cell(indices.url)),
		abstract:         normalization.CleanString(cell(indices.abstract)),
	}

	// Год создания выводится из даты регистрации, иначе из даты заявки
	if row.registrationDate != nil {
		row.creationYear = row.registrationDate.Year()
	} else if row.applicationDate != nil {
		row.creationYear = row.applicationDate.Year()
	}

	return row
}

func (imp *Importer) buildObject(row parsedRow) *database.IPObject {
	return &database.IPObject{
		IPType:             imp.ipType.Slug(),
		RegistrationNumber: row.regNumber,
		Name:               row.name,
		ApplicationDate:    row.applicationDate,
		RegistrationDate:   row.registrationDate,
		ExpirationDate:     row.expirationDate,
		Actual:             row.actual,
		URL:                row.url,
		Abstract:           row.abstract,
		CreationYear:       row.creationYear,
		CatalogueID:        imp.catalogueID(),
	}
}

// diffObject сравнивает запись с разобранной строкой по полям и
// возвращает только изменившиеся колонки. Пустой результат означает,
// что запись актуальна и перезаписывать ее не нужно.
func diffObject(current *database.IPObject, row parsedRow, catalogueID int64) map[string]interface{} {
	changes := make(map[string]interface{})

	if current.Name != row.name {
		changes["name"] = row.name
	}
	if !sameDate(current.ApplicationDate, row.applicationDate) {
		changes["application_date"] = row.applicationDate
	}
	if !sameDate(current.RegistrationDate, row.registrationDate) {
		changes["registration_date"] = row.registrationDate
	}
	if !sameDate(current.ExpirationDate, row.expirationDate) {
		changes["expiration_date"] = row.expirationDate
	}
	if current.Actual != row.actual {
		changes["actual"] = row.actual
	}
	if current.URL != row.url {
		changes["url"] = row.url
	}
	if current.Abstract != row.abstract {
		changes["abstract"] = row.abstract
	}
	if current.CreationYear != row.creationYear {
		changes["creation_year"] = nullableYearValue(row.creationYear)
	}

	if len(changes) > 0 && catalogueID > 0 && current.CatalogueID != catalogueID {
		changes["catalogue_id"] = catalogueID
	}

	return changes
}

func nullableYearValue(year int) interface{} {
	if year <= 0 {
		return nil
	}
	return year
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// rowTuples переводит авторов и правообладателей строки в связи.
func rowTuples(row parsedRow) []relations.Tuple {
	tuples := make([]relations.Tuple, 0, len(row.authors)+len(row.holders))
	for _, author := range row.authors {
		tuples = append(tuples, relations.Tuple{
			RegistrationNumber: row.regNumber,
			EntityName:         author,
			Kind:               relations.KindAuthor,
		})
	}
	for _, holder := range row.holders {
		tuples = append(tuples, relations.Tuple{
			RegistrationNumber: row.regNumber,
			EntityName:         holder,
			Kind:               relations.KindHolder,
		})
	}
	return tuples
}

// containsAny проверяет, содержит ли строка любую из подстрок.
func containsAny(s string, substrings []string) bool {
	for _, substr := range substrings {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
