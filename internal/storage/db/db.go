package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// memory opens a private in-memory database; tests use it
const memory = ":memory:"

// DB is the protonctl state database: stored API tokens and runner history
type DB struct {
	*sql.DB
}

// New opens (creating if needed) the database at path and brings its schema
// up to date.
func New(path string) (*DB, error) {
	dsn := path
	if path != memory {
		// WAL lets the TUI read history while a CLI run writes it
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if path == memory {
		// each connection to :memory: would see its own empty database
		sqlDB.SetMaxOpenConns(1)
	}

	d := &DB{DB: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	return d, nil
}
