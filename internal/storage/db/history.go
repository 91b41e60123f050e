package db

import (
	"fmt"
	"time"

	"github.com/DonovanMods/protonctl/internal/domain"
)

// RecordRunnerEvent appends an install, removal or selection to the runner history
func (d *DB) RecordRunnerEvent(event domain.RunnerEvent) error {
	at := event.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := d.Exec(`
		INSERT INTO runner_history (action, name, path, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?)
	`, string(event.Action), event.Name, event.Path, event.Detail, at.UTC())
	if err != nil {
		return fmt.Errorf("recording runner event: %w", err)
	}
	return nil
}

// ListRunnerEvents returns the most recent history entries, newest first.
// A limit of 0 or less returns everything.
func (d *DB) ListRunnerEvents(limit int) ([]domain.RunnerEvent, error) {
	query := `
		SELECT id, action, name, path, COALESCE(detail, ''), occurred_at
		FROM runner_history
		ORDER BY occurred_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runner history: %w", err)
	}
	defer rows.Close()

	var events []domain.RunnerEvent
	for rows.Next() {
		var e domain.RunnerEvent
		var action string
		if err := rows.Scan(&e.ID, &action, &e.Name, &e.Path, &e.Detail, &e.At); err != nil {
			return nil, fmt.Errorf("scanning runner event: %w", err)
		}
		e.Action = domain.RunnerAction(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runner history: %w", err)
	}
	return events, nil
}
