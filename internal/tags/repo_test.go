package tags

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediatrack/internal/entries"
	"mediatrack/pkg/database"
	"mediatrack/pkg/models"
)

func TestRepo_CreateListDelete(t *testing.T) {
	db := database.OpenTemp(t)
	database.InsertTestUser(t, db, "u1")
	database.InsertTestUser(t, db, "u2")
	repo := NewRepo(db)
	ctx := context.Background()

	fav := &models.Tag{UserID: "u1", Name: "  favorites "}
	require.NoError(t, repo.Create(ctx, fav))
	assert.Equal(t, "favorites", fav.Name)
	assert.Equal(t, models.DefaultTagColor, fav.Color)

	assert.ErrorIs(t, repo.Create(ctx, &models.Tag{UserID: "u1", Name: "favorites"}), ErrNameTaken)
	require.NoError(t, repo.Create(ctx, &models.Tag{UserID: "u2", Name: "favorites"}))

	entryRepo := entries.NewRepo(db)
	id, err := entryRepo.Create(ctx, &models.Entry{UserID: "u1", Title: "Frieren", Category: models.CategoryAnime})
	require.NoError(t, err)
	require.NoError(t, entryRepo.SetTags(ctx, "u1", id, []int64{fav.ID}))

	list, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].EntryCount)

	got, err := repo.Get(ctx, "u2", fav.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, repo.Delete(ctx, "u2", fav.ID), ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "u1", fav.ID))

	// the entry survives without the tag
	e, err := entryRepo.Get(ctx, "u1", id)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Empty(t, e.Tags)
}

func TestRepo_Update(t *testing.T) {
	db := database.OpenTemp(t)
	database.InsertTestUser(t, db, "u1")
	repo := NewRepo(db)
	ctx := context.Background()

	a := &models.Tag{UserID: "u1", Name: "a"}
	b := &models.Tag{UserID: "u1", Name: "b"}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	b.Name = "a"
	assert.ErrorIs(t, repo.Update(ctx, b), ErrNameTaken)

	b.Name, b.Color = "rewatch", "#FF0000"
	require.NoError(t, repo.Update(ctx, b))
	got, err := repo.Get(ctx, "u1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, "rewatch", got.Name)
	assert.Equal(t, "#FF0000", got.Color)

	assert.ErrorIs(t, repo.Update(ctx, &models.Tag{ID: 999, UserID: "u1", Name: "x"}), ErrNotFound)
}
