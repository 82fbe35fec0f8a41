package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// db wraps the SQLite connection with a read/write lock.
type db struct {
	conn *sql.DB
	mu   sync.RWMutex
}

func openDB(path string) (*db, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	d := &db{conn: conn}
	if err := d.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return d, nil
}

func (d *db) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS captures (
		id TEXT PRIMARY KEY,
		captured_at DATETIME NOT NULL,
		filepath TEXT NOT NULL,
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		filesize INTEGER DEFAULT 0,
		rectified INTEGER DEFAULT 0,
		warning TEXT DEFAULT '',
		quad TEXT DEFAULT '',
		classification TEXT DEFAULT '',
		quality REAL DEFAULT 0,
		source TEXT DEFAULT '',
		auto INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_captures_captured_at ON captures(captured_at);
	CREATE INDEX IF NOT EXISTS idx_captures_classification ON captures(classification);
	`
	_, err := d.conn.Exec(schema)
	return err
}

func (d *db) close() error {
	return d.conn.Close()
}
