package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Token is a credential for a remote release service
type Token struct {
	Service   string
	Value     string
	UpdatedAt time.Time
}

// SaveToken stores the token for service, replacing any earlier one
func (d *DB) SaveToken(service, value string) error {
	const upsert = `INSERT INTO auth_tokens (service, token, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(service) DO UPDATE SET token = excluded.token, updated_at = CURRENT_TIMESTAMP`
	if _, err := d.Exec(upsert, service, value); err != nil {
		return fmt.Errorf("saving %s token: %w", service, err)
	}
	return nil
}

// GetToken returns nil without error when no token is stored for service.
func (d *DB) GetToken(service string) (*Token, error) {
	tok := Token{Service: service}
	row := d.QueryRow(`SELECT token, updated_at FROM auth_tokens WHERE service = ?`, service)
	switch err := row.Scan(&tok.Value, &tok.UpdatedAt); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("reading %s token: %w", service, err)
	}
	return &tok, nil
}

// DeleteToken is a no-op when nothing is stored
func (d *DB) DeleteToken(service string) error {
	if _, err := d.Exec(`DELETE FROM auth_tokens WHERE service = ?`, service); err != nil {
		return fmt.Errorf("removing %s token: %w", service, err)
	}
	return nil
}

func (d *DB) HasToken(service string) (bool, error) {
	var exists bool
	err := d.QueryRow(`SELECT EXISTS(SELECT 1 FROM auth_tokens WHERE service = ?)`, service).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("looking up %s token: %w", service, err)
	}
	return exists, nil
}
