package database

import (
	"fmt"
)

// schemaStatements схема базы реестра. Таблицы создаются идемпотентно,
// порядок важен: связи ссылаются на сущности.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS persons (
		id INTEGER PRIMARY KEY,
		full_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		middle_name TEXT NOT NULL DEFAULT '',
		slug TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_persons_name_tuple
		ON persons(last_name, first_name, middle_name)`,
	`CREATE INDEX IF NOT EXISTS idx_persons_full_name ON persons(full_name)`,

	`CREATE TABLE IF NOT EXISTS organizations (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		short_name TEXT NOT NULL DEFAULT '',
		slug TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_organizations_name ON organizations(name)`,

	`CREATE TABLE IF NOT EXISTS catalogues (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ip_type TEXT NOT NULL,
		file_name TEXT NOT NULL DEFAULT '',
		publication_date TIMESTAMP,
		uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		import_run_id TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS ip_objects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ip_type TEXT NOT NULL,
		registration_number TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		application_date TIMESTAMP,
		registration_date TIMESTAMP,
		expiration_date TIMESTAMP,
		actual BOOLEAN NOT NULL DEFAULT 0,
		url TEXT NOT NULL DEFAULT '',
		abstract TEXT NOT NULL DEFAULT '',
		creation_year INTEGER,
		catalogue_id INTEGER REFERENCES catalogues(id),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(ip_type, registration_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ip_objects_reg_number
		ON ip_objects(registration_number)`,

	`CREATE TABLE IF NOT EXISTS ip_object_authors (
		ip_object_id INTEGER NOT NULL REFERENCES ip_objects(id),
		person_id INTEGER NOT NULL REFERENCES persons(id),
		PRIMARY KEY (ip_object_id, person_id)
	)`,
	`CREATE TABLE IF NOT EXISTS ip_object_holder_persons (
		ip_object_id INTEGER NOT NULL REFERENCES ip_objects(id),
		person_id INTEGER NOT NULL REFERENCES persons(id),
		PRIMARY KEY (ip_object_id, person_id)
	)`,
	`CREATE TABLE IF NOT EXISTS ip_object_holder_orgs (
		ip_object_id INTEGER NOT NULL REFERENCES ip_objects(id),
		organization_id INTEGER NOT NULL REFERENCES organizations(id),
		PRIMARY KEY (ip_object_id, organization_id)
	)`,
}

// migrate применяет схему базы реестра.
func (db *RegistryDB) migrate() error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
