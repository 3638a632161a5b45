package database

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// IPObject запись реестра об объекте интеллектуальной собственности.
// Естественный ключ - номер регистрации внутри типа ИС.
type IPObject struct {
	ID                 int64
	IPType             string
	RegistrationNumber string
	Name               string
	ApplicationDate    *time.Time
	RegistrationDate   *time.Time
	ExpirationDate     *time.Time
	Actual             bool
	URL                string
	Abstract           string
	CreationYear       int
	CatalogueID        int64
	UpdatedAt          time.Time
}

// ipObjectUpdateColumns колонки, которые разрешено менять точечным
// обновлением. Белый список защищает динамический SET от опечаток.
var ipObjectUpdateColumns = map[string]bool{
	"name":              true,
	"application_date":  true,
	"registration_date": true,
	"expiration_date":   true,
	"actual":            true,
	"url":               true,
	"abstract":          true,
	"creation_year":     true,
	"catalogue_id":      true,
}

// IPObjectUpdate точечное обновление: меняются только перечисленные поля.
type IPObjectUpdate struct {
	ID     int64
	Fields map[string]interface{}
}

const ipObjectColumns = `id, ip_type, registration_number, name,
	application_date, registration_date, expiration_date, actual,
	url, abstract, COALESCE(creation_year, 0), COALESCE(catalogue_id, 0), updated_at`

func scanIPObject(row interface{ Scan(...interface{}) error }) (*IPObject, error) {
	var obj IPObject
	if err := row.Scan(
		&obj.ID, &obj.IPType, &obj.RegistrationNumber, &obj.Name,
		&obj.ApplicationDate, &obj.RegistrationDate, &obj.ExpirationDate, &obj.Actual,
		&obj.URL, &obj.Abstract, &obj.CreationYear, &obj.CatalogueID, &obj.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &obj, nil
}

// GetIPObjectsByRegNumbers пакетно выбирает объекты по номерам регистрации
// внутри одного типа ИС.
func (db *RegistryDB) GetIPObjectsByRegNumbers(ipType string, regNumbers []string, chunkSize int) (map[string]*IPObject, error) {
	result := make(map[string]*IPObject, len(regNumbers))
	if len(regNumbers) == 0 {
		return result, nil
	}

	for _, chunk := range chunkStrings(regNumbers, chunkSize) {
		args := make([]interface{}, 0, len(chunk)+1)
		args = append(args, ipType)
		for _, rn := range chunk {
			args = append(args, rn)
		}

		rows, err := db.conn.Query(
			`SELECT `+ipObjectColumns+` FROM ip_objects
			 WHERE ip_type = ? AND registration_number IN (`+placeholders(len(chunk))+`)`,
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to query ip objects: %w", err)
		}

		for rows.Next() {
			obj, err := scanIPObject(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan ip object: %w", err)
			}
			result[obj.RegistrationNumber] = obj
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to iterate ip objects: %w", err)
		}
		rows.Close()
	}

	return result, nil
}

// GetIPObjectIDsByRegNumbers выбирает соответствие номер регистрации -> id.
// Нужно после пакетной вставки: bulk insert не возвращает созданные id.
func (db *RegistryDB) GetIPObjectIDsByRegNumbers(ipType string, regNumbers []string, chunkSize int) (map[string]int64, error) {
	result := make(map[string]int64, len(regNumbers))
	if len(regNumbers) == 0 {
		return result, nil
	}

	for _, chunk := range chunkStrings(regNumbers, chunkSize) {
		args := make([]interface{}, 0, len(chunk)+1)
		args = append(args, ipType)
		for _, rn := range chunk {
			args = append(args, rn)
		}

		rows, err := db.conn.Query(
			`SELECT registration_number, id FROM ip_objects
			 WHERE ip_type = ? AND registration_number IN (`+placeholders(len(chunk))+`)`,
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to query ip object ids: %w", err)
		}

		for rows.Next() {
			var regNumber string
			var id int64
			if err := rows.Scan(&regNumber, &id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan ip object id: %w", err)
			}
			result[regNumber] = id
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to iterate ip object ids: %w", err)
		}
		rows.Close()
	}

	return result, nil
}

// InsertIPObjectsBulk вставляет новые объекты пачками внутри коротких
// транзакций. Конфликт по (ip_type, registration_number) игнорируется:
// параллельных писателей нет, дубль в источнике не должен ронять пачку.
func (db *RegistryDB) InsertIPObjectsBulk(objects []*IPObject, chunkSize int) (int, error) {
	if chunkSize <= 0 {
		chunkSize = 500
	}

	inserted := 0
	for start := 0; start < len(objects); start += chunkSize {
		end := start + chunkSize
		if end > len(objects) {
			end = len(objects)
		}
		chunk := objects[start:end]

		tx, err := db.conn.Begin()
		if err != nil {
			return inserted, fmt.Errorf("failed to begin ip objects insert: %w", err)
		}

		stmt, err := tx.Prepare(
			`INSERT OR IGNORE INTO ip_objects
			 (ip_type, registration_number, name, application_date, registration_date,
			  expiration_date, actual, url, abstract, creation_year, catalogue_id, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		)
		if err != nil {
			tx.Rollback()
			return inserted, fmt.Errorf("failed to prepare ip objects insert: %w", err)
		}

		for _, obj := range chunk {
			res, err := stmt.Exec(
				obj.IPType, obj.RegistrationNumber, obj.Name,
				obj.ApplicationDate, obj.RegistrationDate, obj.ExpirationDate,
				obj.Actual, obj.URL, obj.Abstract,
				nullableYear(obj.CreationYear), nullableID(obj.CatalogueID),
			)
			if err != nil {
				stmt.Close()
				tx.Rollback()
				return inserted, fmt.Errorf("failed to insert ip object %q: %w", obj.RegistrationNumber, err)
			}
			if affected, _ := res.RowsAffected(); affected > 0 {
				inserted++
			}
		}

		stmt.Close()
		if err := tx.Commit(); err != nil {
			return inserted, fmt.Errorf("failed to commit ip objects insert: %w", err)
		}
	}

	return inserted, nil
}

// UpdateIPObjectsBatch применяет точечные обновления пачками внутри
// коротких транзакций. Неизвестные колонки отбрасываются.
func (db *RegistryDB) UpdateIPObjectsBatch(updates []IPObjectUpdate, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	updated := 0
	for start := 0; start < len(updates); start += batchSize {
		end := start + batchSize
		if end > len(updates) {
			end = len(updates)
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return updated, fmt.Errorf("failed to begin ip objects update: %w", err)
		}

		for _, upd := range updates[start:end] {
			columns := make([]string, 0, len(upd.Fields))
			for col := range upd.Fields {
				if ipObjectUpdateColumns[col] {
					columns = append(columns, col)
				}
			}
			if len(columns) == 0 {
				continue
			}
			sort.Strings(columns)

			setClauses := make([]string, 0, len(columns)+1)
			args := make([]interface{}, 0, len(columns)+1)
			for _, col := range columns {
				setClauses = append(setClauses, col+" = ?")
				args = append(args, upd.Fields[col])
			}
			setClauses = append(setClauses, "updated_at = CURRENT_TIMESTAMP")
			args = append(args, upd.ID)

			query := `UPDATE ip_objects SET ` + strings.Join(setClauses, ", ") + ` WHERE id = ?`
			if _, err := tx.Exec(query, args...); err != nil {
				tx.Rollback()
				return updated, fmt.Errorf("failed to update ip object %d: %w", upd.ID, err)
			}
			updated++
		}

		if err := tx.Commit(); err != nil {
			return updated, fmt.Errorf("failed to commit ip objects update: %w", err)
		}
	}

	return updated, nil
}

func nullableYear(year int) interface{} {
	if year <= 0 {
		return nil
	}
	return year
}

func nullableID(id int64) interface{} {
	if id <= 0 {
		return nil
	}
	return id
}
