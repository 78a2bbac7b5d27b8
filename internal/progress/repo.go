package progress

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mediatrack/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Add appends one progress change. History rows are never updated.
func (r *Repo) Add(ctx context.Context, h models.ProgressHistory) error {
	if h.At.IsZero() {
		h.At = time.Now().UTC()
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO entry_progress_history (entry_id, user_id, previous, current, at)
		VALUES (?, ?, ?, ?, ?)
	`, h.EntryID, h.UserID, h.Previous, h.Current, h.At)
	if err != nil {
		return fmt.Errorf("insert progress history: %w", err)
	}
	return nil
}

// List returns the entry's history newest first.
func (r *Repo) List(ctx context.Context, userID string, entryID int64, limit, offset int) ([]models.ProgressHistory, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM entry_progress_history
		WHERE user_id = ? AND entry_id = ?
	`, userID, entryID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count progress history: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT entry_id, user_id, previous, current, at
		FROM entry_progress_history
		WHERE user_id = ? AND entry_id = ?
		ORDER BY at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, entryID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list progress history: %w", err)
	}
	defer rows.Close()

	out := make([]models.ProgressHistory, 0, limit)
	for rows.Next() {
		var h models.ProgressHistory
		if err := rows.Scan(&h.EntryID, &h.UserID, &h.Previous, &h.Current, &h.At); err != nil {
			return nil, 0, fmt.Errorf("scan progress history: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows progress history: %w", err)
	}

	return out, total, nil
}
