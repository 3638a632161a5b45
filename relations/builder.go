// Package relations перевыводит таблицы связей объект ИС <-> сущность
// из данных очередной выгрузки.
package relations

import (
	"fmt"
	"log/slog"

	"ipregistry/classification"
	"ipregistry/database"
	"ipregistry/normalization"
	"ipregistry/resolver"
)

// Kind вид связи в исходных данных.
type Kind int

const (
	KindAuthor Kind = iota // автор
	KindHolder             // правообладатель
)

// Tuple одна связь из выгрузки: номер регистрации, сырое наименование
// сущности и вид связи.
type Tuple struct {
	RegistrationNumber string
	EntityName         string
	Kind               Kind
}

const (
	deleteChunkSize = 500
	insertChunkSize = 2000
)

// RebuildStats итоги перестройки связей.
type RebuildStats struct {
	Tuples            int
	AuthorPairs       int
	HolderPersonPairs int
	HolderOrgPairs    int
	DeletedRows       int64
	InsertedRows      int
	UnresolvedNames   int
}

// Builder перестраивает связи объектов ИС по данным импорта.
type Builder struct {
	db     *database.RegistryDB
	logger *slog.Logger
}

// NewBuilder создает построитель связей.
func NewBuilder(db *database.RegistryDB) *Builder {
	return &Builder{
		db:     db,
		logger: slog.Default().With("component", "relation_builder"),
	}
}

// Rebuild приводит связи затронутых объектов в точное соответствие
// с выгрузкой. Существующие связи каждого вида удаляются целиком и
// заменяются новым набором: фазы удаления и вставки строго
// последовательны внутри вида связи, чтобы старые и новые строки
// не сосуществовали.
func (b *Builder) Rebuild(ctx *resolver.Context, tuples []Tuple, idByRegNumber map[string]int64) (*RebuildStats, error) {
	stats := &RebuildStats{Tuples: len(tuples)}
	if len(tuples) == 0 {
		return stats, nil
	}

	// Шаг 1: классифицируем каждое уникальное наименование
	distinctNames := make([]string, 0, len(tuples))
	seenNames := make(map[string]bool, len(tuples))
	for _, tuple := range tuples {
		name := normalization.CleanString(tuple.EntityName)
		if name == "" || seenNames[name] {
			continue
		}
		seenNames[name] = true
		distinctNames = append(distinctNames, name)
	}
	entityTypes := ctx.Detector().DetectTypeBatch(distinctNames)

	// Шаг 2: разбиваем наименования по виду связи и типу сущности.
	// Авторы всегда люди; правообладатели делятся по детектору.
	var personNames, orgNames []string
	wantPerson := make(map[string]bool)
	wantOrg := make(map[string]bool)
	for _, tuple := range tuples {
		name := normalization.CleanString(tuple.EntityName)
		if name == "" {
			continue
		}
		if tuple.Kind == KindAuthor || entityTypes[name] == classification.EntityPerson {
			if !wantPerson[name] {
				wantPerson[name] = true
				personNames = append(personNames, name)
			}
		}
		if tuple.Kind == KindHolder && entityTypes[name] == classification.EntityOrganization {
			if !wantOrg[name] {
				wantOrg[name] = true
				orgNames = append(orgNames, name)
			}
		}
	}

	// Шаг 3: пакетно разрешаем наименования в канонические записи
	persons, err := ctx.ResolvePersonsBulk(personNames)
	if err != nil {
		return stats, fmt.Errorf("failed to resolve persons: %w", err)
	}
	orgs, err := ctx.ResolveOrganizationsBulk(orgNames)
	if err != nil {
		return stats, fmt.Errorf("failed to resolve organizations: %w", err)
	}

	// Шаг 4: строим целевые наборы пар, без дублей
	type pairKey struct {
		objectID int64
		entityID int64
	}
	authorPairs := make(map[pairKey]bool)
	holderPersonPairs := make(map[pairKey]bool)
	holderOrgPairs := make(map[pairKey]bool)
	touched := make(map[int64]bool)

	for _, tuple := range tuples {
		name := normalization.CleanString(tuple.EntityName)
		if name == "" {
			continue
		}
		objectID, ok := idByRegNumber[tuple.RegistrationNumber]
		if !ok {
			continue
		}
		touched[objectID] = true

		switch tuple.Kind {
		case KindAuthor:
			person, ok := persons[name]
			if !ok {
				stats.UnresolvedNames++
				continue
			}
			authorPairs[pairKey{objectID, person.ID}] = true
		case KindHolder:
			if entityTypes[name] == classification.EntityPerson {
				person, ok := persons[name]
				if !ok {
					stats.UnresolvedNames++
					continue
				}
				holderPersonPairs[pairKey{objectID, person.ID}] = true
			} else {
				org, ok := orgs[name]
				if !ok {
					stats.UnresolvedNames++
					continue
				}
				holderOrgPairs[pairKey{objectID, org.ID}] = true
			}
		}
	}

	stats.AuthorPairs = len(authorPairs)
	stats.HolderPersonPairs = len(holderPersonPairs)
	stats.HolderOrgPairs = len(holderOrgPairs)

	if ctx.DryRun() {
		b.logger.Info("dry run: skipping relation writes",
			"authors", stats.AuthorPairs,
			"holder_persons", stats.HolderPersonPairs,
			"holder_orgs", stats.HolderOrgPairs)
		return stats, nil
	}

	touchedIDs := make([]int64, 0, len(touched))
	for id := range touched {
		touchedIDs = append(touchedIDs, id)
	}

	// Шаги 5-6 для каждого вида связи: полное удаление, затем вставка
	for _, step := range []struct {
		table database.RelationTable
		pairs map[pairKey]bool
	}{
		{database.RelationAuthors, authorPairs},
		{database.RelationHolderPersons, holderPersonPairs},
		{database.RelationHolderOrgs, holderOrgPairs},
	} {
		deleted, err := b.db.DeleteRelationsForObjects(step.table, touchedIDs, deleteChunkSize)
		if err != nil {
			return stats, fmt.Errorf("failed to clear %s: %w", step.table.Name, err)
		}
		stats.DeletedRows += deleted

		rows := make([]database.RelationPair, 0, len(step.pairs))
		for key := range step.pairs {
			rows = append(rows, database.RelationPair{IPObjectID: key.objectID, EntityID: key.entityID})
		}
		inserted, err := b.db.InsertRelationPairs(step.table, rows, insertChunkSize)
		if err != nil {
			return stats, fmt.Errorf("failed to insert %s: %w", step.table.Name, err)
		}
		stats.InsertedRows += inserted
	}

	b.logger.Info("relations rebuilt",
		"objects", len(touchedIDs),
		"deleted", stats.DeletedRows,
		"inserted", stats.InsertedRows,
		"unresolved", stats.UnresolvedNames)

	return stats, nil
}
