package csvio

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediatrack/internal/entries"
	"mediatrack/pkg/database"
	"mediatrack/pkg/models"
)

func intPtr(v int) *int { return &v }

func newRepo(t *testing.T) *entries.Repo {
	t.Helper()
	db := database.OpenTemp(t)
	database.InsertTestUser(t, db, "u1")
	database.InsertTestUser(t, db, "u2")
	return entries.NewRepo(db)
}

func TestExportImportRoundTrip(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	for _, e := range []models.Entry{
		{UserID: "u1", Title: "Cowboy Bebop", Category: models.CategoryAnime, ProgressCurrent: 3, ProgressTotal: intPtr(26), Rating: intPtr(10), ExternalID: "1", ExternalSource: "anilist"},
		{UserID: "u1", Title: "Notes, with comma", Category: models.CategoryBook, Notes: "line one\nline two"},
	} {
		e := e
		_, err := repo.Create(ctx, &e)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	n, err := Export(ctx, repo, "u1", &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])

	res, err := Import(ctx, repo, "u2", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 2}, res)

	items, _, err := repo.List(ctx, "u2", entries.ListQuery{Search: "bebop"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].ProgressCurrent)
	assert.Equal(t, intPtr(26), items[0].ProgressTotal)
	assert.Equal(t, intPtr(10), items[0].Rating)

	// the imported identity now exists for u2
	res, err = Import(ctx, repo, "u2", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 1, res.Created)
}

func TestImport_InvalidRows(t *testing.T) {
	repo := newRepo(t)

	in := strings.Join([]string{
		"Title,Category,Status,Rating",
		"Good,anime,,",
		",anime,,",
		"Bad category,podcast,,",
		"Bad status,anime,watching,",
		"Bad rating,anime,,11",
		"Worse rating,anime,,x",
	}, "\n")

	res, err := Import(context.Background(), repo, "u1", strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 5, res.Invalid)
	require.Len(t, res.Errors, 5)
	assert.True(t, strings.HasPrefix(res.Errors[0], "line 3:"))
}

func TestImport_MissingTitleColumn(t *testing.T) {
	repo := newRepo(t)
	_, err := Import(context.Background(), repo, "u1", strings.NewReader("name,category\nx,anime\n"))
	assert.Error(t, err)
}
