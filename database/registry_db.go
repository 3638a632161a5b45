package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// RegistryDB обертка для работы с базой реестра ИС.
type RegistryDB struct {
	conn *sql.DB
}

// NewRegistryDB открывает базу реестра и применяет схему.
func NewRegistryDB(dbPath string) (*RegistryDB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping registry database: %w", err)
	}

	db := &RegistryDB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate registry database: %w", err)
	}

	return db, nil
}

// GetConnection возвращает низкоуровневое подключение.
func (db *RegistryDB) GetConnection() *sql.DB {
	return db.conn
}

// Close закрывает подключение к базе.
func (db *RegistryDB) Close() error {
	return db.conn.Close()
}

// chunkInt64 режет список идентификаторов на пачки фиксированного размера,
// чтобы ограничить длину IN-выражений.
func chunkInt64(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = 500
	}
	var chunks [][]int64
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// chunkStrings режет список строковых ключей на пачки.
func chunkStrings(keys []string, size int) [][]string {
	if size <= 0 {
		size = 500
	}
	var chunks [][]string
	for start := 0; start < len(keys); start += size {
		end := start + size
		if end > len(keys) {
			end = len(keys)
		}
		chunks = append(chunks, keys[start:end])
	}
	return chunks
}

// placeholders возвращает строку вида "?,?,?" для IN-выражения.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
