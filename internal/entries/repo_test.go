package entries

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediatrack/pkg/models"
)

func insertTag(t *testing.T, repo *Repo, userID, name string) int64 {
	t.Helper()
	res, err := repo.DB.Exec(`
		INSERT INTO tags (user_id, name, color, created_at) VALUES (?, ?, ?, ?)
	`, userID, name, models.DefaultTagColor, time.Now().UTC())
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestRepo_CreateAndGet(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ctx := context.Background()

	e := mustCreate(t, repo, models.Entry{UserID: "u1", Title: "Dune", Category: models.CategoryBook, Rating: intPtr(9)})
	assert.NotZero(t, e.ID)
	assert.Equal(t, models.StatusPending, e.Status)

	got, err := repo.Get(ctx, "u1", e.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, intPtr(9), got.Rating)
	assert.Nil(t, got.ProgressTotal)
	assert.Equal(t, []models.Tag{}, got.Tags)

	other, err := repo.Get(ctx, "u2", e.ID)
	require.NoError(t, err)
	assert.Nil(t, other)

	owned, err := repo.Owns(ctx, "u2", e.ID)
	require.NoError(t, err)
	assert.False(t, owned)
}

func TestRepo_ExistsForUser(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ctx := context.Background()

	e := mustCreate(t, repo, models.Entry{UserID: "u1", Title: "Bebop", ExternalID: "1", ExternalSource: "anilist"})

	id, found, err := repo.ExistsForUser(ctx, "u1", "1", "anilist")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, e.ID, id)

	cases := []struct{ user, id, source string }{
		{"u2", "1", "anilist"},
		{"u1", "1", "AniList"},
		{"u1", "1", "tvmaze"},
		{"u1", "", "anilist"},
		{"u1", "1", ""},
	}
	for _, c := range cases {
		_, found, err := repo.ExistsForUser(ctx, c.user, c.id, c.source)
		require.NoError(t, err)
		assert.False(t, found, "%+v", c)
	}
}

func TestRepo_ManualEntriesWithoutExternalIdentity(t *testing.T) {
	repo := NewRepo(newTestDB(t))

	// the uniqueness index only covers imported entries
	mustCreate(t, repo, models.Entry{UserID: "u1", Title: "Notebook A"})
	mustCreate(t, repo, models.Entry{UserID: "u1", Title: "Notebook B"})
	assert.Equal(t, 2, countEntries(t, repo, "u1"))
}

func TestRepo_ListFiltersAndOrder(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ctx := context.Background()

	a := mustCreate(t, repo, models.Entry{UserID: "u1", Title: "Akira", Category: models.CategoryMovie, Status: models.StatusCompleted})
	b := mustCreate(t, repo, models.Entry{UserID: "u1", Title: "Berserk", Category: models.CategoryManga, Notes: "dark fantasy"})
	c := mustCreate(t, repo, models.Entry{UserID: "u1", Title: "Clannad", Category: models.CategoryAnime})
	mustCreate(t, repo, models.Entry{UserID: "u2", Title: "Other user"})

	// touch a so it becomes the most recently updated
	time.Sleep(5 * time.Millisecond)
	a.Notes = "rewatch"
	require.NoError(t, repo.Update(ctx, a))

	items, total, err := repo.List(ctx, "u1", ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 3)
	assert.Equal(t, []int64{a.ID, c.ID, b.ID}, []int64{items[0].ID, items[1].ID, items[2].ID})

	items, total, err = repo.List(ctx, "u1", ListQuery{Category: "manga"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, b.ID, items[0].ID)

	items, _, err = repo.List(ctx, "u1", ListQuery{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].ID)

	items, _, err = repo.List(ctx, "u1", ListQuery{Search: "FANTASY"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)

	tagID := insertTag(t, repo, "u1", "favorites")
	require.NoError(t, repo.SetTags(ctx, "u1", c.ID, []int64{tagID}))
	items, _, err = repo.List(ctx, "u1", ListQuery{TagID: tagID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, c.ID, items[0].ID)
	require.Len(t, items[0].Tags, 1)
	assert.Equal(t, "favorites", items[0].Tags[0].Name)

	items, total, err = repo.List(ctx, "u1", ListQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, c.ID, items[0].ID)
}

func TestRepo_Stats(t *testing.T) {
	repo := NewRepo(newTestDB(t))

	mustCreate(t, repo, models.Entry{UserID: "u1", Title: "a"})
	mustCreate(t, repo, models.Entry{UserID: "u1", Title: "b", Status: models.StatusInProgress})
	mustCreate(t, repo, models.Entry{UserID: "u1", Title: "c", Status: models.StatusInProgress})
	mustCreate(t, repo, models.Entry{UserID: "u1", Title: "d", Status: models.StatusDropped})
	mustCreate(t, repo, models.Entry{UserID: "u2", Title: "e", Status: models.StatusCompleted})

	st, err := repo.Stats(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusStats{Total: 4, Pending: 1, InProgress: 2, Dropped: 1}, st)
}

func TestRepo_UpdateAndDelete(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ctx := context.Background()

	e := mustCreate(t, repo, models.Entry{UserID: "u1", Title: "Monster"})

	foreign := *e
	foreign.UserID = "u2"
	assert.ErrorIs(t, repo.Update(ctx, &foreign), ErrNotFound)

	deleted, err := repo.Delete(ctx, "u2", e.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = repo.Delete(ctx, "u1", e.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := repo.Get(ctx, "u1", e.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepo_SetTags(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ctx := context.Background()

	e := mustCreate(t, repo, models.Entry{UserID: "u1", Title: "Haikyuu"})
	mine := insertTag(t, repo, "u1", "sports")
	other := insertTag(t, repo, "u1", "comfy")
	theirs := insertTag(t, repo, "u2", "sports")

	require.NoError(t, repo.SetTags(ctx, "u1", e.ID, []int64{mine, other, mine}))
	got, err := repo.Get(ctx, "u1", e.ID)
	require.NoError(t, err)
	assert.Len(t, got.Tags, 2)

	assert.ErrorIs(t, repo.SetTags(ctx, "u1", e.ID, []int64{theirs}), ErrUnknownTag)
	assert.ErrorIs(t, repo.SetTags(ctx, "u2", e.ID, []int64{theirs}), ErrNotFound)

	// a rejected call leaves the previous tags in place
	got, err = repo.Get(ctx, "u1", e.ID)
	require.NoError(t, err)
	assert.Len(t, got.Tags, 2)

	require.NoError(t, repo.SetTags(ctx, "u1", e.ID, nil))
	got, err = repo.Get(ctx, "u1", e.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)

	// deleting a tag detaches it without touching the entry
	require.NoError(t, repo.SetTags(ctx, "u1", e.ID, []int64{mine}))
	_, err = repo.DB.Exec(`DELETE FROM tags WHERE id = ?`, mine)
	require.NoError(t, err)
	got, err = repo.Get(ctx, "u1", e.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Tags)
}
