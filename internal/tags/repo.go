package tags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediatrack/pkg/database"
	"mediatrack/pkg/models"
)

var (
	ErrNotFound  = errors.New("tag not found")
	ErrNameTaken = errors.New("tag name already exists")
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Create(ctx context.Context, t *models.Tag) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Color == "" {
		t.Color = models.DefaultTagColor
	}
	t.CreatedAt = time.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO tags (user_id, name, color, created_at)
		VALUES (?, ?, ?, ?)
	`, t.UserID, t.Name, t.Color, t.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrNameTaken
		}
		return fmt.Errorf("insert tag: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id
	return nil
}

// List returns the user's tags with how many entries carry each one.
func (r *Repo) List(ctx context.Context, userID string) ([]TagWithCount, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT t.id, t.user_id, t.name, t.color, t.created_at, COUNT(et.entry_id)
		FROM tags t
		LEFT JOIN entry_tags et ON et.tag_id = t.id
		WHERE t.user_id = ?
		GROUP BY t.id
		ORDER BY t.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	out := make([]TagWithCount, 0)
	for rows.Next() {
		var t TagWithCount
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Color, &t.CreatedAt, &t.EntryCount); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows tags: %w", err)
	}
	return out, nil
}

type TagWithCount struct {
	models.Tag
	EntryCount int `json:"entry_count"`
}

func (r *Repo) Get(ctx context.Context, userID string, id int64) (*models.Tag, error) {
	var t models.Tag
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, name, color, created_at
		FROM tags
		WHERE id = ? AND user_id = ?
	`, id, userID).Scan(&t.ID, &t.UserID, &t.Name, &t.Color, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return &t, nil
}

func (r *Repo) Update(ctx context.Context, t *models.Tag) error {
	t.Name = strings.TrimSpace(t.Name)
	res, err := r.DB.ExecContext(ctx, `
		UPDATE tags SET name = ?, color = ?
		WHERE id = ? AND user_id = ?
	`, t.Name, t.Color, t.ID, t.UserID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrNameTaken
		}
		return fmt.Errorf("update tag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tag rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the tag; entries keep existing and just lose the tag.
func (r *Repo) Delete(ctx context.Context, userID string, id int64) error {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM tags WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete tag rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
