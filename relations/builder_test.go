package relations

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ipregistry/classification"
	"ipregistry/database"
	"ipregistry/resolver"
)

func newTestDB(t *testing.T) *database.RegistryDB {
	t.Helper()
	db, err := database.NewRegistryDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newResolverContext(t *testing.T, db *database.RegistryDB, dryRun bool) *resolver.Context {
	t.Helper()
	ctx, err := resolver.NewContext(db, classification.NewDetector(nil, 0), dryRun)
	require.NoError(t, err)
	return ctx
}

func insertObject(t *testing.T, db *database.RegistryDB, ipType, regNumber string) int64 {
	t.Helper()
	_, err := db.InsertIPObjectsBulk([]*database.IPObject{
		{IPType: ipType, RegistrationNumber: regNumber, Name: "объект " + regNumber},
	}, 10)
	require.NoError(t, err)

	ids, err := db.GetIPObjectIDsByRegNumbers(ipType, []string{regNumber}, 10)
	require.NoError(t, err)
	require.Contains(t, ids, regNumber)
	return ids[regNumber]
}

func TestRebuildSplitsByEntityType(t *testing.T) {
	db := newTestDB(t)
	objectID := insertObject(t, db, "invention", "RU12345")

	tuples := []Tuple{
		{"RU12345", "Иванов Иван Иванович", KindAuthor},
		{"RU12345", "Петров Петр Петрович", KindAuthor},
		{"RU12345", `ООО "Ромашка"`, KindHolder},
		{"RU12345", "Сидоров Сидор Сидорович", KindHolder},
	}

	stats, err := NewBuilder(db).Rebuild(newResolverContext(t, db, false), tuples, map[string]int64{"RU12345": objectID})
	require.NoError(t, err)
	require.Equal(t, 2, stats.AuthorPairs)
	require.Equal(t, 1, stats.HolderPersonPairs)
	require.Equal(t, 1, stats.HolderOrgPairs)
	require.Zero(t, stats.UnresolvedNames)

	authors, err := db.CountRelationsForObject(database.RelationAuthors, objectID)
	require.NoError(t, err)
	require.Equal(t, 2, authors)

	holderPersons, err := db.CountRelationsForObject(database.RelationHolderPersons, objectID)
	require.NoError(t, err)
	require.Equal(t, 1, holderPersons)

	holderOrgs, err := db.CountRelationsForObject(database.RelationHolderOrgs, objectID)
	require.NoError(t, err)
	require.Equal(t, 1, holderOrgs)
}

// Повторная выгрузка с другим списком авторов должна дать ровно новый
// список: старые связи не переживают перестройку.
func TestRebuildReplacesRelations(t *testing.T) {
	db := newTestDB(t)
	objectID := insertObject(t, db, "invention", "RU12345")
	idMap := map[string]int64{"RU12345": objectID}
	builder := NewBuilder(db)

	_, err := builder.Rebuild(newResolverContext(t, db, false), []Tuple{
		{"RU12345", "Иванов Иван Иванович", KindAuthor},
		{"RU12345", "Петров Петр Петрович", KindAuthor},
	}, idMap)
	require.NoError(t, err)

	firstIDs, err := db.RelationEntityIDs(database.RelationAuthors, objectID)
	require.NoError(t, err)
	require.Len(t, firstIDs, 2)

	// Петров выбыл, добавился Кузнецов
	_, err = builder.Rebuild(newResolverContext(t, db, false), []Tuple{
		{"RU12345", "Иванов Иван Иванович", KindAuthor},
		{"RU12345", "Кузнецов Кузьма Кузьмич", KindAuthor},
	}, idMap)
	require.NoError(t, err)

	secondIDs, err := db.RelationEntityIDs(database.RelationAuthors, objectID)
	require.NoError(t, err)
	require.Len(t, secondIDs, 2)

	ivanov, err := db.FindPersonByFullName("Иванов Иван Иванович")
	require.NoError(t, err)
	require.NotNil(t, ivanov)
	petrov, err := db.FindPersonByFullName("Петров Петр Петрович")
	require.NoError(t, err)
	require.NotNil(t, petrov, "resolved persons are kept even when the relation is gone")

	require.Contains(t, secondIDs, ivanov.ID)
	require.NotContains(t, secondIDs, petrov.ID)
}

// Идемпотентность: повторная перестройка с теми же кортежами не меняет
// итоговый набор связей.
func TestRebuildIdempotent(t *testing.T) {
	db := newTestDB(t)
	objectID := insertObject(t, db, "software", "2020612345")
	idMap := map[string]int64{"2020612345": objectID}
	builder := NewBuilder(db)

	tuples := []Tuple{
		{"2020612345", "Иванов Иван Иванович", KindAuthor},
		{"2020612345", `АО "Лаборатория"`, KindHolder},
	}

	_, err := builder.Rebuild(newResolverContext(t, db, false), tuples, idMap)
	require.NoError(t, err)
	firstAuthors, err := db.RelationEntityIDs(database.RelationAuthors, objectID)
	require.NoError(t, err)

	stats, err := builder.Rebuild(newResolverContext(t, db, false), tuples, idMap)
	require.NoError(t, err)
	require.Zero(t, stats.UnresolvedNames)

	secondAuthors, err := db.RelationEntityIDs(database.RelationAuthors, objectID)
	require.NoError(t, err)
	require.Equal(t, firstAuthors, secondAuthors)

	holderOrgs, err := db.CountRelationsForObject(database.RelationHolderOrgs, objectID)
	require.NoError(t, err)
	require.Equal(t, 1, holderOrgs)
}

func TestRebuildDeduplicatesPairs(t *testing.T) {
	db := newTestDB(t)
	objectID := insertObject(t, db, "invention", "RU111")

	// Один и тот же автор дважды в выгрузке
	stats, err := NewBuilder(db).Rebuild(newResolverContext(t, db, false), []Tuple{
		{"RU111", "Иванов Иван Иванович", KindAuthor},
		{"RU111", "Иванов  Иван  Иванович", KindAuthor},
	}, map[string]int64{"RU111": objectID})
	require.NoError(t, err)
	require.LessOrEqual(t, stats.AuthorPairs, 2)

	count, err := db.CountRelationsForObject(database.RelationAuthors, objectID)
	require.NoError(t, err)
	require.LessOrEqual(t, count, 2)
	require.GreaterOrEqual(t, count, 1)
}

func TestRebuildSkipsUnknownObjects(t *testing.T) {
	db := newTestDB(t)
	objectID := insertObject(t, db, "invention", "RU222")

	stats, err := NewBuilder(db).Rebuild(newResolverContext(t, db, false), []Tuple{
		{"RU222", "Иванов Иван Иванович", KindAuthor},
		{"НЕТ_ТАКОГО", "Петров Петр Петрович", KindAuthor},
	}, map[string]int64{"RU222": objectID})
	require.NoError(t, err)
	require.Equal(t, 1, stats.AuthorPairs)
}

func TestRebuildEmptyNamesIgnored(t *testing.T) {
	db := newTestDB(t)
	objectID := insertObject(t, db, "invention", "RU333")

	stats, err := NewBuilder(db).Rebuild(newResolverContext(t, db, false), []Tuple{
		{"RU333", "  ", KindAuthor},
		{"RU333", "null", KindHolder},
	}, map[string]int64{"RU333": objectID})
	require.NoError(t, err)
	require.Zero(t, stats.AuthorPairs)
	require.Zero(t, stats.HolderOrgPairs)
}

func TestRebuildDryRun(t *testing.T) {
	db := newTestDB(t)
	objectID := insertObject(t, db, "invention", "RU444")

	stats, err := NewBuilder(db).Rebuild(newResolverContext(t, db, true), []Tuple{
		{"RU444", "Иванов Иван Иванович", KindAuthor},
		{"RU444", `ООО "Ромашка"`, KindHolder},
	}, map[string]int64{"RU444": objectID})
	require.NoError(t, err)
	require.Equal(t, 1, stats.AuthorPairs)
	require.Equal(t, 1, stats.HolderOrgPairs)
	require.Zero(t, stats.InsertedRows)

	count, err := db.CountRelationsForObject(database.RelationAuthors, objectID)
	require.NoError(t, err)
	require.Zero(t, count)
}
