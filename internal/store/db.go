package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection holding the message archive.
type DB struct {
	*sql.DB
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string) (*DB, error) {
	return open(path + "?_journal_mode=WAL&_busy_timeout=5000")
}

// OpenReadOnly opens an existing archive for reading alongside a running daemon.
func OpenReadOnly(path string) (*DB, error) {
	return open("file:" + path + "?mode=ro&_busy_timeout=5000")
}

func open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{db}, nil
}
