package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Person физическое лицо (автор или правообладатель).
// Надежного глобального идентификатора у людей в выгрузках нет,
// идентичность определяется только кортежем имени - см. FindPersonByNameTuple.
type Person struct {
	ID         int64
	FullName   string
	LastName   string
	FirstName  string
	MiddleName string
	Slug       string
}

const personColumns = `id, full_name, last_name, first_name, middle_name, slug`

func scanPerson(row interface{ Scan(...interface{}) error }) (*Person, error) {
	var p Person
	if err := row.Scan(&p.ID, &p.FullName, &p.LastName, &p.FirstName, &p.MiddleName, &p.Slug); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindPersonByNameTuple ищет человека по точному совпадению кортежа
// (фамилия, имя, отчество). Отчество может быть пустым.
func (db *RegistryDB) FindPersonByNameTuple(lastName, firstName, middleName string) (*Person, error) {
	row := db.conn.QueryRow(
		`SELECT `+personColumns+` FROM persons
		 WHERE last_name = ? AND first_name = ? AND middle_name = ?
		 ORDER BY id LIMIT 1`,
		lastName, firstName, middleName,
	)
	person, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find person by name tuple: %w", err)
	}
	return person, nil
}

// FindPersonByFullName ищет человека по полной строке имени.
func (db *RegistryDB) FindPersonByFullName(fullName string) (*Person, error) {
	row := db.conn.QueryRow(
		`SELECT `+personColumns+` FROM persons WHERE full_name = ? ORDER BY id LIMIT 1`,
		fullName,
	)
	person, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find person by full name: %w", err)
	}
	return person, nil
}

// FindPersonsByFullNames пакетно ищет людей по полным именам.
// Запросы режутся на пачки, чтобы ограничить размер IN-выражения.
func (db *RegistryDB) FindPersonsByFullNames(fullNames []string, chunkSize int) (map[string]*Person, error) {
	result := make(map[string]*Person, len(fullNames))
	if len(fullNames) == 0 {
		return result, nil
	}
	if chunkSize <= 0 {
		chunkSize = 100
	}

	for _, chunk := range chunkStrings(fullNames, chunkSize) {
		args := make([]interface{}, len(chunk))
		for i, name := range chunk {
			args[i] = name
		}

		rows, err := db.conn.Query(
			`SELECT `+personColumns+` FROM persons WHERE full_name IN (`+placeholders(len(chunk))+`)`,
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to query persons by full names: %w", err)
		}

		for rows.Next() {
			person, err := scanPerson(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan person: %w", err)
			}
			// Первое совпадение выигрывает: у дублей имени меньший id старше
			if _, exists := result[person.FullName]; !exists {
				result[person.FullName] = person
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to iterate persons: %w", err)
		}
		rows.Close()
	}

	return result, nil
}

// MaxPersonID возвращает максимальный занятый идентификатор.
func (db *RegistryDB) MaxPersonID() (int64, error) {
	var maxID sql.NullInt64
	if err := db.conn.QueryRow(`SELECT MAX(id) FROM persons`).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("failed to query max person id: %w", err)
	}
	return maxID.Int64, nil
}

// PersonSlugExists проверяет занятость слага.
func (db *RegistryDB) PersonSlugExists(slug string) (bool, error) {
	var one int
	err := db.conn.QueryRow(`SELECT 1 FROM persons WHERE slug = ?`, slug).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check person slug: %w", err)
	}
	return true, nil
}

// InsertPerson вставляет одного человека с заранее выделенным id.
func (db *RegistryDB) InsertPerson(p *Person) error {
	_, err := db.conn.Exec(
		`INSERT INTO persons (id, full_name, last_name, first_name, middle_name, slug)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.FullName, p.LastName, p.FirstName, p.MiddleName, p.Slug,
	)
	if err != nil {
		return fmt.Errorf("failed to insert person %q: %w", p.FullName, err)
	}
	return nil
}

// InsertPersonsBulk вставляет людей пачками. При конфликте пачки
// (гонка по id или слагу) пачка повторяется построчно; отказавшие строки
// логируются и пропускаются, остальные вставляются.
// Возвращает число успешно вставленных строк.
func (db *RegistryDB) InsertPersonsBulk(persons []*Person, chunkSize int, retryRow func(*Person) bool) (int, error) {
	if chunkSize <= 0 {
		chunkSize = 500
	}

	inserted := 0
	for start := 0; start < len(persons); start += chunkSize {
		end := start + chunkSize
		if end > len(persons) {
			end = len(persons)
		}
		chunk := persons[start:end]

		if err := db.insertPersonsChunk(chunk); err == nil {
			inserted += len(chunk)
			continue
		}

		// Конфликт внутри пачки: вставляем построчно
		for _, person := range chunk {
			if err := db.InsertPerson(person); err != nil {
				if retryRow != nil && retryRow(person) {
					if err2 := db.InsertPerson(person); err2 == nil {
						inserted++
						continue
					}
				}
				log.Printf("skipping person %q after insert conflict: %v", person.FullName, err)
				continue
			}
			inserted++
		}
	}

	return inserted, nil
}

func (db *RegistryDB) insertPersonsChunk(persons []*Person) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin persons insert: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO persons (id, full_name, last_name, first_name, middle_name, slug)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare persons insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range persons {
		if _, err := stmt.Exec(p.ID, p.FullName, p.LastName, p.FirstName, p.MiddleName, p.Slug); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert person %q: %w", p.FullName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit persons insert: %w", err)
	}
	return nil
}
