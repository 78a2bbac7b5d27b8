// Package csvio moves a user's entries in and out of CSV files.
package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"mediatrack/internal/entries"
	"mediatrack/pkg/models"
)

// Columns is the header written by Export and understood by Import.
var Columns = []string{
	"title", "category", "status", "platform",
	"progress_current", "progress_total", "episodes_count", "duration_minutes", "rating",
	"notes", "external_link", "external_id", "external_source", "cover_image",
	"tags", "created_at", "updated_at",
}

const pageSize = 100

// Export writes every entry of userID, most recently updated first, and
// returns the number of rows written.
func Export(ctx context.Context, repo *entries.Repo, userID string, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write(Columns); err != nil {
		return 0, err
	}

	written := 0
	for offset := 0; ; offset += pageSize {
		items, total, err := repo.List(ctx, userID, entries.ListQuery{Limit: pageSize, Offset: offset})
		if err != nil {
			return written, fmt.Errorf("list entries: %w", err)
		}
		for _, e := range items {
			if err := w.Write(record(e)); err != nil {
				return written, err
			}
			written++
		}
		if len(items) == 0 || offset+len(items) >= total {
			break
		}
	}

	w.Flush()
	return written, w.Error()
}

func record(e models.Entry) []string {
	names := make([]string, 0, len(e.Tags))
	for _, t := range e.Tags {
		names = append(names, t.Name)
	}
	return []string{
		e.Title,
		string(e.Category),
		string(e.Status),
		e.Platform,
		strconv.Itoa(e.ProgressCurrent),
		formatInt(e.ProgressTotal),
		formatInt(e.EpisodesCount),
		formatInt(e.DurationMinutes),
		formatInt(e.Rating),
		e.Notes,
		e.ExternalLink,
		e.ExternalID,
		e.ExternalSource,
		e.CoverImage,
		strings.Join(names, ";"),
		e.CreatedAt.UTC().Format(time.RFC3339),
		e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func formatInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
