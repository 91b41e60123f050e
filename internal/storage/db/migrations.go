package db

import "fmt"

// schema lists migrations in order; index i brings the database to version i+1
var schema = []func(*DB) error{
	createTokensAndHistory,
	indexHistoryByName,
}

func (d *DB) migrate() error {
	if _, err := d.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var current int
	if err := d.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for v := current + 1; v <= len(schema); v++ {
		if err := d.applyMigration(v, schema[v-1]); err != nil {
			return err
		}
	}
	return nil
}

// applyMigration runs step and records version v
func (d *DB) applyMigration(v int, step func(*DB) error) error {
	if err := step(d); err != nil {
		return fmt.Errorf("migration %d: %w", v, err)
	}
	if _, err := d.Exec("INSERT INTO schema_migrations (version) VALUES (?)", v); err != nil {
		return fmt.Errorf("recording migration %d: %w", v, err)
	}
	return nil
}

func createTokensAndHistory(d *DB) error {
	for _, stmt := range []string{
		`CREATE TABLE auth_tokens (
			service TEXT PRIMARY KEY,
			token TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE runner_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			detail TEXT,
			occurred_at DATETIME NOT NULL
		)`,
	} {
		if _, err := d.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func indexHistoryByName(d *DB) error {
	_, err := d.Exec(`CREATE INDEX idx_runner_history_name ON runner_history(name, occurred_at)`)
	return err
}
