package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Well-known preference keys
const (
	PrefIncludeHidden = "scan.include_hidden"
	PrefAppCache      = "scan.app_cache"
	PrefObb           = "scan.obb"
	PrefJunkReminder  = "daemon.junk_reminder"
	PrefRAMCheck      = "daemon.ram_check"
)

// KnownPrefs lists the keys the toolbox reads
func KnownPrefs() []string {
	return []string{PrefIncludeHidden, PrefAppCache, PrefObb, PrefJunkReminder, PrefRAMCheck}
}

// GetBool returns the stored toggle, or def when the key was never set
func (s *Store) GetBool(ctx context.Context, key string, def bool) (bool, error) {
	var v bool
	err := s.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return def, wrapErr("failed to read preference "+key, err)
	}
	return v, nil
}

// SetBool stores a toggle
func (s *Store) SetBool(ctx context.Context, key string, value bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(timeFormat))
	if err != nil {
		return wrapErr("failed to write preference "+key, err)
	}
	return nil
}

// ListPrefs returns every stored toggle ordered by key
func (s *Store) ListPrefs(ctx context.Context) ([]Preference, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value, updated_at FROM preferences ORDER BY key")
	if err != nil {
		return nil, wrapErr("failed to list preferences", err)
	}
	defer rows.Close()

	var prefs []Preference
	for rows.Next() {
		var p Preference
		var updatedAt string
		if err := rows.Scan(&p.Key, &p.Value, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at for %s: %w", p.Key, err)
		}
		prefs = append(prefs, p)
	}

	return prefs, rows.Err()
}
