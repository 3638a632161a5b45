package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Catalogue метаданные одного загруженного файла выгрузки.
// Дата публикации используется политикой пропуска строк, источник
// которых старше последнего обновления записи.
type Catalogue struct {
	ID              int64
	IPType          string
	FileName        string
	PublicationDate *time.Time
	UploadedAt      time.Time
	ImportRunID     string
}

// CreateCatalogue регистрирует загруженный файл выгрузки.
func (db *RegistryDB) CreateCatalogue(c *Catalogue) (int64, error) {
	res, err := db.conn.Exec(
		`INSERT INTO catalogues (ip_type, file_name, publication_date, import_run_id)
		 VALUES (?, ?, ?, ?)`,
		c.IPType, c.FileName, c.PublicationDate, c.ImportRunID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create catalogue: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get catalogue id: %w", err)
	}
	c.ID = id
	return id, nil
}

// GetCatalogue возвращает метаданные выгрузки по id.
func (db *RegistryDB) GetCatalogue(id int64) (*Catalogue, error) {
	row := db.conn.QueryRow(
		`SELECT id, ip_type, file_name, publication_date, uploaded_at, import_run_id
		 FROM catalogues WHERE id = ?`,
		id,
	)

	var c Catalogue
	err := row.Scan(&c.ID, &c.IPType, &c.FileName, &c.PublicationDate, &c.UploadedAt, &c.ImportRunID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalogue %d: %w", id, err)
	}
	return &c, nil
}
