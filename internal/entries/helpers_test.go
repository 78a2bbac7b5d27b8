package entries

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	gosync "sync"
	"testing"

	"mediatrack/internal/metadata"
	"mediatrack/pkg/database"
	"mediatrack/pkg/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := database.OpenTemp(t)
	database.InsertTestUser(t, db, "u1")
	database.InsertTestUser(t, db, "u2")
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSources() *metadata.Searcher {
	return metadata.NewSearcher(testLogger(),
		metadata.NewAniList(metadata.ClientOptions{Logger: testLogger()}),
		metadata.NewTVMaze(metadata.ClientOptions{Logger: testLogger()}),
	)
}

func intPtr(v int) *int { return &v }

func mustCreate(t *testing.T, repo *Repo, e models.Entry) *models.Entry {
	t.Helper()
	if e.Category == "" {
		e.Category = models.CategoryAnime
	}
	if _, err := repo.Create(context.Background(), &e); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	return &e
}

type historyStub struct {
	mu      gosync.Mutex
	records []models.ProgressHistory
}

func (h *historyStub) Add(_ context.Context, rec models.ProgressHistory) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	return nil
}

func (h *historyStub) all() []models.ProgressHistory {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.ProgressHistory(nil), h.records...)
}
