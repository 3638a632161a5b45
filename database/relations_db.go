package database

import (
	"fmt"
)

// RelationTable описывает одну таблицу связей объект ИС <-> сущность.
type RelationTable struct {
	Name         string
	EntityColumn string
}

// Таблицы связей. Строки этих таблиц полностью перевыводятся из
// источника при каждом импорте, а не сливаются поштучно.
var (
	RelationAuthors = RelationTable{
		Name:         "ip_object_authors",
		EntityColumn: "person_id",
	}
	RelationHolderPersons = RelationTable{
		Name:         "ip_object_holder_persons",
		EntityColumn: "person_id",
	}
	RelationHolderOrgs = RelationTable{
		Name:         "ip_object_holder_orgs",
		EntityColumn: "organization_id",
	}
)

// RelationPair одна строка таблицы связей.
type RelationPair struct {
	IPObjectID int64
	EntityID   int64
}

// DeleteRelationsForObjects удаляет все связи данного вида для
// перечисленных объектов. Удаление режется на пачки id.
func (db *RegistryDB) DeleteRelationsForObjects(table RelationTable, ipObjectIDs []int64, chunkSize int) (int64, error) {
	if len(ipObjectIDs) == 0 {
		return 0, nil
	}

	var deleted int64
	for _, chunk := range chunkInt64(ipObjectIDs, chunkSize) {
		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		res, err := db.conn.Exec(
			`DELETE FROM `+table.Name+` WHERE ip_object_id IN (`+placeholders(len(chunk))+`)`,
			args...,
		)
		if err != nil {
			return deleted, fmt.Errorf("failed to delete %s relations: %w", table.Name, err)
		}
		if affected, err := res.RowsAffected(); err == nil {
			deleted += affected
		}
	}

	return deleted, nil
}

// InsertRelationPairs вставляет пары связей пачками. Дубли пар
// игнорируются (INSERT OR IGNORE), порядок внутри пачки не важен.
func (db *RegistryDB) InsertRelationPairs(table RelationTable, pairs []RelationPair, chunkSize int) (int, error) {
	if chunkSize <= 0 {
		chunkSize = 2000
	}

	inserted := 0
	for start := 0; start < len(pairs); start += chunkSize {
		end := start + chunkSize
		if end > len(pairs) {
			end = len(pairs)
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return inserted, fmt.Errorf("failed to begin %s insert: %w", table.Name, err)
		}

		stmt, err := tx.Prepare(
			`INSERT OR IGNORE INTO ` + table.Name + ` (ip_object_id, ` + table.EntityColumn + `) VALUES (?, ?)`,
		)
		if err != nil {
			tx.Rollback()
			return inserted, fmt.Errorf("failed to prepare %s insert: %w", table.Name, err)
		}

		for _, pair := range pairs[start:end] {
			res, err := stmt.Exec(pair.IPObjectID, pair.EntityID)
			if err != nil {
				stmt.Close()
				tx.Rollback()
				return inserted, fmt.Errorf("failed to insert %s pair: %w", table.Name, err)
			}
			if affected, _ := res.RowsAffected(); affected > 0 {
				inserted++
			}
		}

		stmt.Close()
		if err := tx.Commit(); err != nil {
			return inserted, fmt.Errorf("failed to commit %s insert: %w", table.Name, err)
		}
	}

	return inserted, nil
}

// CountRelationsForObject возвращает число связей данного вида у объекта.
func (db *RegistryDB) CountRelationsForObject(table RelationTable, ipObjectID int64) (int, error) {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM `+table.Name+` WHERE ip_object_id = ?`, ipObjectID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s relations: %w", table.Name, err)
	}
	return count, nil
}

// RelationEntityIDs возвращает id сущностей, связанных с объектом.
func (db *RegistryDB) RelationEntityIDs(table RelationTable, ipObjectID int64) ([]int64, error) {
	rows, err := db.conn.Query(
		`SELECT `+table.EntityColumn+` FROM `+table.Name+` WHERE ip_object_id = ? ORDER BY 1`,
		ipObjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s relations: %w", table.Name, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s relation: %w", table.Name, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
