package entries

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mediatrack/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type ListQuery struct {
	Category string
	Status   string
	Search   string // case-insensitive match on title or notes
	TagID    int64
	Limit    int
	Offset   int
}

const entryColumns = `
	id, user_id, title, category, status, platform,
	progress_current, progress_total, episodes_count, duration_minutes, rating,
	notes, external_link, external_id, external_source, cover_image,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e                              models.Entry
		category, status               string
		total, episodes, duration, rat sql.NullInt64
	)
	if err := row.Scan(
		&e.ID, &e.UserID, &e.Title, &category, &status, &e.Platform,
		&e.ProgressCurrent, &total, &episodes, &duration, &rat,
		&e.Notes, &e.ExternalLink, &e.ExternalID, &e.ExternalSource, &e.CoverImage,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Category = models.Category(category)
	e.Status = models.Status(status)
	e.ProgressTotal = intFromNull(total)
	e.EpisodesCount = intFromNull(episodes)
	e.DurationMinutes = intFromNull(duration)
	e.Rating = intFromNull(rat)
	e.Tags = []models.Tag{}
	return &e, nil
}

func intFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullFromInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// Create inserts the entry as given, stamping both timestamps, and returns the new id.
func (r *Repo) Create(ctx context.Context, e *models.Entry) (int64, error) {
	now := time.Now().UTC()
	if e.Status == "" {
		e.Status = models.StatusPending
	}

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO entries (
			user_id, title, category, status, platform,
			progress_current, progress_total, episodes_count, duration_minutes, rating,
			notes, external_link, external_id, external_source, cover_image,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.UserID, e.Title, string(e.Category), string(e.Status), e.Platform,
		e.ProgressCurrent, nullFromInt(e.ProgressTotal), nullFromInt(e.EpisodesCount),
		nullFromInt(e.DurationMinutes), nullFromInt(e.Rating),
		e.Notes, e.ExternalLink, e.ExternalID, e.ExternalSource, e.CoverImage,
		now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	e.CreatedAt = now
	e.UpdatedAt = now
	return id, nil
}

// ExistsForUser returns the id of the user's entry with exactly this external
// identity. An empty id or source never matches.
func (r *Repo) ExistsForUser(ctx context.Context, userID, externalID, externalSource string) (int64, bool, error) {
	if externalID == "" || externalSource == "" {
		return 0, false, nil
	}

	var id int64
	err := r.DB.QueryRowContext(ctx, `
		SELECT id FROM entries
		WHERE user_id = ? AND external_id = ? AND external_source = ?
		ORDER BY id
		LIMIT 1
	`, userID, externalID, externalSource).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("exists for user: %w", err)
	}
	return id, true, nil
}

// Get returns the user's entry with its tags, or nil when it does not exist
// or belongs to someone else.
func (r *Repo) Get(ctx context.Context, userID string, id int64) (*models.Entry, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+entryColumns+`
		FROM entries
		WHERE id = ? AND user_id = ?
	`, id, userID)

	e, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}

	tags, err := r.TagsFor(ctx, []int64{e.ID})
	if err != nil {
		return nil, err
	}
	if t, ok := tags[e.ID]; ok {
		e.Tags = t
	}
	return e, nil
}

// Owns reports whether the entry exists and belongs to the user.
func (r *Repo) Owns(ctx context.Context, userID string, id int64) (bool, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM entries WHERE id = ? AND user_id = ?
	`, id, userID).Scan(&n); err != nil {
		return false, fmt.Errorf("owns entry: %w", err)
	}
	return n > 0, nil
}

func (r *Repo) List(ctx context.Context, userID string, q ListQuery) ([]models.Entry, int, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	where, args := buildListWhere(userID, q)

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries e WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `SELECT `+prefixColumns("e.")+`
		FROM entries e
		WHERE `+where+`
		ORDER BY e.updated_at DESC, e.id DESC
		LIMIT ? OFFSET ?
	`, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	out := make([]models.Entry, 0, q.Limit)
	ids := make([]int64, 0, q.Limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan entry row: %w", err)
		}
		out = append(out, *e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}

	tags, err := r.TagsFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		if t, ok := tags[out[i].ID]; ok {
			out[i].Tags = t
		}
	}
	return out, total, nil
}

func buildListWhere(userID string, q ListQuery) (string, []any) {
	where := []string{"e.user_id = ?"}
	args := []any{userID}

	if c := strings.TrimSpace(q.Category); c != "" {
		where = append(where, "e.category = ?")
		args = append(args, c)
	}
	if s := strings.TrimSpace(q.Status); s != "" {
		where = append(where, "e.status = ?")
		args = append(args, s)
	}
	if kw := strings.TrimSpace(q.Search); kw != "" {
		where = append(where, "(LOWER(e.title) LIKE ? OR LOWER(e.notes) LIKE ?)")
		like := "%" + strings.ToLower(kw) + "%"
		args = append(args, like, like)
	}
	if q.TagID > 0 {
		where = append(where, "EXISTS (SELECT 1 FROM entry_tags et WHERE et.entry_id = e.id AND et.tag_id = ?)")
		args = append(args, q.TagID)
	}
	return strings.Join(where, " AND "), args
}

func prefixColumns(prefix string) string {
	cols := strings.Split(entryColumns, ",")
	for i, c := range cols {
		cols[i] = prefix + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func (r *Repo) Stats(ctx context.Context, userID string) (models.StatusStats, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM entries
		WHERE user_id = ?
		GROUP BY status
	`, userID)
	if err != nil {
		return models.StatusStats{}, fmt.Errorf("entry stats: %w", err)
	}
	defer rows.Close()

	var st models.StatusStats
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return models.StatusStats{}, fmt.Errorf("scan stats: %w", err)
		}
		st.Total += n
		switch models.Status(status) {
		case models.StatusPending:
			st.Pending = n
		case models.StatusInProgress:
			st.InProgress = n
		case models.StatusCompleted:
			st.Completed = n
		case models.StatusDropped:
			st.Dropped = n
		}
	}
	if err := rows.Err(); err != nil {
		return models.StatusStats{}, fmt.Errorf("rows err: %w", err)
	}
	return st, nil
}

// Update writes every editable column of e and bumps updated_at.
func (r *Repo) Update(ctx context.Context, e *models.Entry) error {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE entries SET
			title = ?, status = ?, platform = ?,
			progress_current = ?, progress_total = ?, rating = ?,
			notes = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`,
		e.Title, string(e.Status), e.Platform,
		e.ProgressCurrent, nullFromInt(e.ProgressTotal), nullFromInt(e.Rating),
		e.Notes, now,
		e.ID, e.UserID,
	)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entry rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	e.UpdatedAt = now
	return nil
}

func (r *Repo) Delete(ctx context.Context, userID string, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM entries
		WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SetTags replaces the entry's tags. Every tag must belong to the entry's owner.
func (r *Repo) SetTags(ctx context.Context, userID string, entryID int64, tagIDs []int64) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set tags: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var owned int
	if err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM entries WHERE id = ? AND user_id = ?
	`, entryID, userID).Scan(&owned); err != nil {
		return fmt.Errorf("check entry owner: %w", err)
	}
	if owned == 0 {
		return ErrNotFound
	}

	ids := uniqueIDs(tagIDs)
	if len(ids) > 0 {
		args := make([]any, 0, len(ids)+1)
		args = append(args, userID)
		for _, id := range ids {
			args = append(args, id)
		}
		var n int
		if err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM tags WHERE user_id = ? AND id IN (`+placeholders(len(ids))+`)
		`, args...).Scan(&n); err != nil {
			return fmt.Errorf("check tag owner: %w", err)
		}
		if n != len(ids) {
			return ErrUnknownTag
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM entry_tags WHERE entry_id = ?`, entryID); err != nil {
		return fmt.Errorf("clear entry tags: %w", err)
	}
	for _, id := range ids {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO entry_tags (entry_id, tag_id) VALUES (?, ?)
		`, entryID, id); err != nil {
			return fmt.Errorf("insert entry tag: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set tags: %w", err)
	}
	return nil
}

// TagsFor returns the tags attached to each of the given entries, keyed by entry id.
func (r *Repo) TagsFor(ctx context.Context, entryIDs []int64) (map[int64][]models.Tag, error) {
	out := make(map[int64][]models.Tag, len(entryIDs))
	if len(entryIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(entryIDs))
	for i, id := range entryIDs {
		args[i] = id
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT et.entry_id, t.id, t.user_id, t.name, t.color, t.created_at
		FROM entry_tags et
		JOIN tags t ON t.id = et.tag_id
		WHERE et.entry_id IN (`+placeholders(len(entryIDs))+`)
		ORDER BY t.name
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list entry tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entryID int64
			t       models.Tag
		)
		if err := rows.Scan(&entryID, &t.ID, &t.UserID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry tag: %w", err)
		}
		out[entryID] = append(out[entryID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
