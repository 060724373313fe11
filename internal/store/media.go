package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Media index operations

// UpsertMedia inserts or refreshes a batch of media rows in one transaction.
// Rows are keyed by path, so re-indexing keeps a file's id stable.
func (s *Store) UpsertMedia(ctx context.Context, records []MediaRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO media (path, name, size, mod_time, media_type, is_download, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			size = excluded.size,
			mod_time = excluded.mod_time,
			media_type = excluded.media_type,
			is_download = excluded.is_download,
			indexed_at = excluded.indexed_at
	`)
	if err != nil {
		return wrapErr("failed to prepare media upsert", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.Path,
			r.Name,
			r.Size,
			r.ModTime.UTC().Format(timeFormat),
			string(r.MediaType),
			r.IsDownload,
			r.IndexedAt.UTC().Format(timeFormat),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert media %s: %w", r.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit media upsert: %w", err)
	}
	return nil
}

// MediaQuery narrows ListMedia. Zero value lists everything.
type MediaQuery struct {
	Type          MediaType // empty for any type
	DownloadsOnly bool
}

// ListMedia returns indexed rows ordered by id
func (s *Store) ListMedia(ctx context.Context, q MediaQuery) ([]*MediaRecord, error) {
	query := `
		SELECT id, path, name, size, mod_time, media_type, is_download, indexed_at
		FROM media
		WHERE (? = '' OR media_type = ?)
		AND (? = 0 OR is_download = 1)
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, string(q.Type), string(q.Type), q.DownloadsOnly)
	if err != nil {
		return nil, wrapErr("failed to list media", err)
	}
	defer rows.Close()

	var records []*MediaRecord
	for rows.Next() {
		r, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media: %w", err)
	}

	return records, nil
}

// GetMedia retrieves a media row by id
func (s *Store) GetMedia(ctx context.Context, id int64) (*MediaRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, name, size, mod_time, media_type, is_download, indexed_at
		FROM media
		WHERE id = ?
	`, id)

	r, err := scanMedia(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("media %d: %w", id, ErrNotFound)
	}
	return r, err
}

// DeleteMedia removes a media row by id
func (s *Store) DeleteMedia(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM media WHERE id = ?", id)
	if err != nil {
		return wrapErr(fmt.Sprintf("failed to delete media %d", id), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("media %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteMediaByPath removes the row for a path if there is one
func (s *Store) DeleteMediaByPath(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM media WHERE path = ?", path); err != nil {
		return wrapErr("failed to delete media "+path, err)
	}
	return nil
}

// PruneMedia removes rows not refreshed since the given time and returns how many went
func (s *Store) PruneMedia(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM media WHERE indexed_at < ?",
		before.UTC().Format(timeFormat))
	if err != nil {
		return 0, wrapErr("failed to prune media", err)
	}
	return res.RowsAffected()
}

// CountMedia returns the number of indexed files and their total size
func (s *Store) CountMedia(ctx context.Context) (int, int64, error) {
	var count int
	var size int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(size), 0) FROM media").Scan(&count, &size)
	if err != nil {
		return 0, 0, wrapErr("failed to count media", err)
	}
	return count, size, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedia(row rowScanner) (*MediaRecord, error) {
	var r MediaRecord
	var modTime, indexedAt, mediaType string

	err := row.Scan(
		&r.ID,
		&r.Path,
		&r.Name,
		&r.Size,
		&modTime,
		&mediaType,
		&r.IsDownload,
		&indexedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, wrapErr("failed to scan media row", err)
	}

	r.MediaType = MediaType(mediaType)
	if r.ModTime, err = time.Parse(time.RFC3339Nano, modTime); err != nil {
		return nil, fmt.Errorf("failed to parse mod_time for %s: %w", r.Path, err)
	}
	if r.IndexedAt, err = time.Parse(time.RFC3339Nano, indexedAt); err != nil {
		return nil, fmt.Errorf("failed to parse indexed_at for %s: %w", r.Path, err)
	}

	return &r, nil
}
