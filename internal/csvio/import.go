package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mediatrack/internal/entries"
	"mediatrack/pkg/database"
	"mediatrack/pkg/models"
)

// ImportResult counts what happened to each data row.
type ImportResult struct {
	Created    int      `json:"created"`
	Duplicates int      `json:"duplicates"`
	Invalid    int      `json:"invalid"`
	Errors     []string `json:"errors,omitempty"`
}

// Import reads rows in the Export layout for userID. Rows whose external
// identity the user already has are skipped; malformed rows are counted and
// reported by line number. The tags and timestamp columns are ignored.
func Import(ctx context.Context, repo *entries.Repo, userID string, in io.Reader) (ImportResult, error) {
	var res ImportResult

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return res, fmt.Errorf("read header: %w", err)
	}
	if _, ok := header["title"]; !ok {
		return res, errors.New("missing title column")
	}

	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}

		e, err := parseRow(header, row)
		if err != nil {
			res.Invalid++
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		e.UserID = userID

		if _, found, err := repo.ExistsForUser(ctx, userID, e.ExternalID, e.ExternalSource); err != nil {
			return res, err
		} else if found {
			res.Duplicates++
			continue
		}

		if _, err := repo.Create(ctx, e); err != nil {
			if database.IsUniqueViolation(err) {
				res.Duplicates++
				continue
			}
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		res.Created++
	}
	return res, nil
}

func parseRow(header map[string]int, row []string) (*models.Entry, error) {
	get := func(key string) string { return valueAt(header, row, key) }

	title := strings.TrimSpace(get("title"))
	if title == "" {
		return nil, entries.ErrMissingTitle
	}
	if n := []rune(title); len(n) > models.MaxTitleLength {
		title = string(n[:models.MaxTitleLength])
	}

	category := models.Category(strings.ToLower(get("category")))
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", get("category"))
	}

	status := models.Status(strings.ToLower(get("status")))
	if status == "" {
		status = models.StatusPending
	}
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", get("status"))
	}

	e := &models.Entry{
		Title:          title,
		Category:       category,
		Status:         status,
		Platform:       get("platform"),
		Notes:          get("notes"),
		ExternalLink:   get("external_link"),
		ExternalID:     get("external_id"),
		ExternalSource: get("external_source"),
		CoverImage:     get("cover_image"),
	}

	current, err := parseOptionalInt(get("progress_current"))
	if err != nil {
		return nil, fmt.Errorf("progress_current: %w", err)
	}
	if current != nil {
		if *current < 0 {
			return nil, errors.New("progress_current must be >= 0")
		}
		e.ProgressCurrent = *current
	}

	for _, f := range []struct {
		key string
		dst **int
	}{
		{"progress_total", &e.ProgressTotal},
		{"episodes_count", &e.EpisodesCount},
		{"duration_minutes", &e.DurationMinutes},
		{"rating", &e.Rating},
	} {
		v, err := parseOptionalInt(get(f.key))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = v
	}
	if e.Rating != nil && (*e.Rating < models.MinRating || *e.Rating > models.MaxRating) {
		return nil, fmt.Errorf("rating must be between %d and %d", models.MinRating, models.MaxRating)
	}
	return e, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseOptionalInt(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
