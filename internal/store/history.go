package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordClean stores a clean run. An empty ID is replaced with a new UUID,
// which is returned.
func (s *Store) RecordClean(ctx context.Context, rec *CleanRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	typesJSON, err := json.Marshal(rec.Types)
	if err != nil {
		return "", fmt.Errorf("failed to marshal types: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO clean_history
		(id, started_at, finished_at, deleted, failed, bytes_freed, types, dry_run, manifest_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.StartedAt.UTC().Format(timeFormat),
		rec.FinishedAt.UTC().Format(timeFormat),
		rec.Deleted,
		rec.Failed,
		rec.BytesFreed,
		string(typesJSON),
		rec.DryRun,
		rec.ManifestPath,
	)
	if err != nil {
		return "", wrapErr("failed to record clean run", err)
	}

	return rec.ID, nil
}

// ListHistory returns clean runs, newest first. limit <= 0 means no limit.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]*CleanRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, deleted, failed, bytes_freed, types, dry_run, manifest_path
		FROM clean_history
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapErr("failed to list history", err)
	}
	defer rows.Close()

	var records []*CleanRecord
	for rows.Next() {
		var r CleanRecord
		var startedAt, finishedAt, typesJSON string
		var manifest sql.NullString

		if err := rows.Scan(
			&r.ID,
			&startedAt,
			&finishedAt,
			&r.Deleted,
			&r.Failed,
			&r.BytesFreed,
			&typesJSON,
			&r.DryRun,
			&manifest,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("failed to parse started_at for %s: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("failed to parse finished_at for %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(typesJSON), &r.Types); err != nil {
			return nil, fmt.Errorf("failed to unmarshal types for %s: %w", r.ID, err)
		}
		r.ManifestPath = manifest.String

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return records, nil
}
