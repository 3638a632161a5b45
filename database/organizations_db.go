package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
)

// Organization юридическое лицо (правообладатель).
// Название хранится дословно как в источнике: поисковая нормальная форма
// вычисляется на лету и в базу не записывается.
type Organization struct {
	ID        int64
	Name      string
	FullName  string
	ShortName string
	Slug      string
}

const organizationColumns = `id, name, full_name, short_name, slug`

func scanOrganization(row interface{ Scan(...interface{}) error }) (*Organization, error) {
	var o Organization
	if err := row.Scan(&o.ID, &o.Name, &o.FullName, &o.ShortName, &o.Slug); err != nil {
		return nil, err
	}
	return &o, nil
}

// FindOrganizationExact ищет организацию по точному совпадению с любым
// из названий: основным, полным или коротким.
func (db *RegistryDB) FindOrganizationExact(name string) (*Organization, error) {
	row := db.conn.QueryRow(
		`SELECT `+organizationColumns+` FROM organizations
		 WHERE name = ? OR full_name = ? OR short_name = ?
		 ORDER BY id LIMIT 1`,
		name, name, name,
	)
	org, err := scanOrganization(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find organization by exact name: %w", err)
	}
	return org, nil
}

// FindOrganizationsByNames пакетно ищет организации по точным названиям.
func (db *RegistryDB) FindOrganizationsByNames(names []string, chunkSize int) (map[string]*Organization, error) {
	result := make(map[string]*Organization, len(names))
	if len(names) == 0 {
		return result, nil
	}
	if chunkSize <= 0 {
		chunkSize = 100
	}

	for _, chunk := range chunkStrings(names, chunkSize) {
		args := make([]interface{}, 0, len(chunk)*3)
		for _, name := range chunk {
			args = append(args, name)
		}
		in := placeholders(len(chunk))
		query := `SELECT ` + organizationColumns + ` FROM organizations
			WHERE name IN (` + in + `) OR full_name IN (` + in + `) OR short_name IN (` + in + `)`
		args = append(args, args[:len(chunk)]...)
		args = append(args, args[:len(chunk)]...)

		rows, err := db.conn.Query(query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query organizations by names: %w", err)
		}

		for rows.Next() {
			org, err := scanOrganization(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan organization: %w", err)
			}
			for _, key := range []string{org.Name, org.FullName, org.ShortName} {
				if key == "" {
					continue
				}
				if _, exists := result[key]; !exists {
					result[key] = org
				}
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to iterate organizations: %w", err)
		}
		rows.Close()
	}

	return result, nil
}

// SearchOrganizationsByKeyword ищет организации, название которых
// содержит ключевое слово (кавычечное имя, аббревиатура, код ИНН/ОГРН).
func (db *RegistryDB) SearchOrganizationsByKeyword(keyword string, limit int) ([]*Organization, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(keyword) + "%"
	rows, err := db.conn.Query(
		`SELECT `+organizationColumns+` FROM organizations
		 WHERE name LIKE ? ESCAPE '\' OR full_name LIKE ? ESCAPE '\' OR short_name LIKE ? ESCAPE '\'
		 ORDER BY id LIMIT ?`,
		pattern, pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search organizations by keyword: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// AllOrganizations возвращает все организации. Используется уровнем
// разрешения сущностей для префиксного сопоставления нормальных форм.
func (db *RegistryDB) AllOrganizations() ([]*Organization, error) {
	rows, err := db.conn.Query(`SELECT ` + organizationColumns + ` FROM organizations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// MaxOrganizationID возвращает максимальный занятый идентификатор.
func (db *RegistryDB) MaxOrganizationID() (int64, error) {
	var maxID sql.NullInt64
	if err := db.conn.QueryRow(`SELECT MAX(id) FROM organizations`).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("failed to query max organization id: %w", err)
	}
	return maxID.Int64, nil
}

// OrganizationSlugExists проверяет занятость слага.
func (db *RegistryDB) OrganizationSlugExists(slug string) (bool, error) {
	var one int
	err := db.conn.QueryRow(`SELECT 1 FROM organizations WHERE slug = ?`, slug).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check organization slug: %w", err)
	}
	return true, nil
}

// InsertOrganization вставляет одну организацию с заранее выделенным id.
func (db *RegistryDB) InsertOrganization(o *Organization) error {
	_, err := db.conn.Exec(
		`INSERT INTO organizations (id, name, full_name, short_name, slug)
		 VALUES (?, ?, ?, ?, ?)`,
		o.ID, o.Name, o.FullName, o.ShortName, o.Slug,
	)
	if err != nil {
		return fmt.Errorf("failed to insert organization %q: %w", o.Name, err)
	}
	return nil
}

// InsertOrganizationsBulk вставляет организации пачками; при конфликте
// пачка повторяется построчно с возможной регенерацией id/слага.
// Возвращает число успешно вставленных строк.
func (db *RegistryDB) InsertOrganizationsBulk(orgs []*Organization, chunkSize int, retryRow func(*Organization) bool) (int, error) {
	if chunkSize <= 0 {
		chunkSize = 500
	}

	inserted := 0
	for start := 0; start < len(orgs); start += chunkSize {
		end := start + chunkSize
		if end > len(orgs) {
			end = len(orgs)
		}
		chunk := orgs[start:end]

		if err := db.insertOrganizationsChunk(chunk); err == nil {
			inserted += len(chunk)
			continue
		}

		for _, org := range chunk {
			if err := db.InsertOrganization(org); err != nil {
				if retryRow != nil && retryRow(org) {
					if err2 := db.InsertOrganization(org); err2 == nil {
						inserted++
						continue
					}
				}
				log.Printf("skipping organization %q after insert conflict: %v", org.Name, err)
				continue
			}
			inserted++
		}
	}

	return inserted, nil
}

func (db *RegistryDB) insertOrganizationsChunk(orgs []*Organization) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin organizations insert: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO organizations (id, name, full_name, short_name, slug)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare organizations insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range orgs {
		if _, err := stmt.Exec(o.ID, o.Name, o.FullName, o.ShortName, o.Slug); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert organization %q: %w", o.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit organizations insert: %w", err)
	}
	return nil
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
