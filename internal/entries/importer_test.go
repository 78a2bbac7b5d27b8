package entries

import (
	"context"
	"errors"
	"strings"
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediatrack/pkg/models"
)

func anilistCandidate() models.Candidate {
	return models.Candidate{
		Source:      models.SourceAniList,
		ExternalID:  "123",
		Title:       "Cowboy Bebop",
		Description: "<p>Space <i>bounty</i> hunters.</p>",
		CoverImage:  "https://img.example/bebop.jpg",
		Episodes:    intPtr(26),
		Duration:    intPtr(24),
		URL:         "https://anilist.co/anime/1",
	}
}

func countEntries(t *testing.T, repo *Repo, userID string) int {
	t.Helper()
	var n int
	require.NoError(t, repo.DB.QueryRow(`SELECT COUNT(*) FROM entries WHERE user_id = ?`, userID).Scan(&n))
	return n
}

func TestImporter_CreatesNormalizedEntry(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	im := NewImporter(repo, testSources())

	id, err := im.Import(context.Background(), "u1", anilistCandidate())
	require.NoError(t, err)

	e, err := repo.Get(context.Background(), "u1", id)
	require.NoError(t, err)
	require.NotNil(t, e)

	assert.Equal(t, "Cowboy Bebop", e.Title)
	assert.Equal(t, models.CategoryAnime, e.Category)
	assert.Equal(t, models.StatusPending, e.Status)
	assert.Equal(t, "AniList", e.Platform)
	assert.Equal(t, 0, e.ProgressCurrent)
	assert.Equal(t, intPtr(26), e.ProgressTotal)
	assert.Equal(t, intPtr(26), e.EpisodesCount)
	assert.Equal(t, intPtr(24), e.DurationMinutes)
	assert.Nil(t, e.Rating)
	assert.Equal(t, "Space bounty hunters.", e.Notes)
	assert.Equal(t, "https://anilist.co/anime/1", e.ExternalLink)
	assert.Equal(t, "123", e.ExternalID)
	assert.Equal(t, "anilist", e.ExternalSource)
	assert.Equal(t, "https://img.example/bebop.jpg", e.CoverImage)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestImporter_SeriesFromTVMaze(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	im := NewImporter(repo, testSources())

	id, err := im.Import(context.Background(), "u1", models.Candidate{
		Source:     models.SourceTVMaze,
		ExternalID: "169",
		Title:      "Breaking Bad",
		Episodes:   intPtr(0),
	})
	require.NoError(t, err)

	e, err := repo.Get(context.Background(), "u1", id)
	require.NoError(t, err)
	assert.Equal(t, models.CategorySeries, e.Category)
	assert.Equal(t, "TVMaze", e.Platform)
	assert.Nil(t, e.ProgressTotal)
	assert.Nil(t, e.EpisodesCount)
}

func TestImporter_WhitespaceTitleRejected(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	im := NewImporter(repo, testSources())

	c := anilistCandidate()
	c.Title = "  "
	_, err := im.Import(context.Background(), "u1", c)
	assert.ErrorIs(t, err, ErrMissingTitle)

	c.Source = "bogus"
	_, err = im.Import(context.Background(), "u1", c)
	assert.ErrorIs(t, err, ErrMissingTitle)
	assert.Equal(t, 0, countEntries(t, repo, "u1"))
}

func TestImporter_UnknownSource(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	im := NewImporter(repo, testSources())

	for _, src := range []models.Source{"", "mal"} {
		c := anilistCandidate()
		c.Source = src
		_, err := im.Import(context.Background(), "u1", c)
		assert.ErrorIs(t, err, ErrInvalidPayload)
	}
}

func TestImporter_DescriptionTruncated(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	im := NewImporter(repo, testSources())

	c := anilistCandidate()
	c.Description = "<p>Hello</p>" + strings.Repeat("x", 600)
	id, err := im.Import(context.Background(), "u1", c)
	require.NoError(t, err)

	e, err := repo.Get(context.Background(), "u1", id)
	require.NoError(t, err)
	assert.Equal(t, 503, len([]rune(e.Notes)))
	assert.True(t, strings.HasPrefix(e.Notes, "Hellox"))
	assert.True(t, strings.HasSuffix(e.Notes, "..."))
	assert.NotContains(t, e.Notes, "<")
	assert.NotContains(t, e.Notes, ">")
}

func TestImporter_DuplicateReturnsExistingID(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	im := NewImporter(repo, testSources())
	ctx := context.Background()

	first, err := im.Import(ctx, "u1", anilistCandidate())
	require.NoError(t, err)

	_, err = im.Import(ctx, "u1", anilistCandidate())
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, first, dup.ExistingID)
	assert.Equal(t, 1, countEntries(t, repo, "u1"))

	// another user may import the same title
	_, err = im.Import(ctx, "u2", anilistCandidate())
	require.NoError(t, err)
}

func TestImporter_ConcurrentDoubleImport(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	im := NewImporter(repo, testSources())

	const workers = 8
	var (
		wg      gosync.WaitGroup
		mu      gosync.Mutex
		created []int64
		dups    []int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := im.Import(context.Background(), "u1", anilistCandidate())
			mu.Lock()
			defer mu.Unlock()
			var dup *DuplicateError
			switch {
			case err == nil:
				created = append(created, id)
			case errors.As(err, &dup):
				dups = append(dups, dup.ExistingID)
			default:
				t.Errorf("unexpected import error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Len(t, created, 1)
	assert.Len(t, dups, workers-1)
	for _, id := range dups {
		assert.Equal(t, created[0], id)
	}
	assert.Equal(t, 1, countEntries(t, repo, "u1"))
}
