package entries

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediatrack/internal/auth"
	"mediatrack/pkg/models"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Repo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := NewRepo(newTestDB(t))
	svc := NewService(repo, &historyStub{}, testLogger())
	h := NewHandler(svc, NewImporter(repo, testSources()), nil, testLogger())

	router := gin.New()
	rg := router.Group("", func(c *gin.Context) {
		auth.SetClaims(c, &auth.Claims{UserID: c.GetHeader("X-Test-User")})
	})
	h.RegisterRoutes(rg)
	return router, repo
}

func do(router *gin.Engine, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const importBody = `{
	"source": "anilist",
	"external_id": "123",
	"title": "Cowboy Bebop",
	"description": "<b>Bang</b>",
	"episodes": 26,
	"url": "https://anilist.co/anime/1"
}`

func TestHandler_Import(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, http.MethodPost, "/entries/import", "u1", importBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode(t, rec)["id"].(float64)
	assert.NotZero(t, id)

	rec = do(router, http.MethodPost, "/entries/import", "u1", importBody)
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "duplicate", body["code"])
	assert.Equal(t, id, body["existing_id"])

	rec = do(router, http.MethodPost, "/entries/import", "u1", `{"source": "anilist", "external_id": "5", "title": "  "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_title", decode(t, rec)["code"])

	rec = do(router, http.MethodPost, "/entries/import", "u1", `{"source": "imdb", "external_id": "5", "title": "Heat"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_payload", decode(t, rec)["code"])

	rec = do(router, http.MethodPost, "/entries/import", "u1", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_payload", decode(t, rec)["code"])
}

func TestHandler_PatchFields(t *testing.T) {
	router, repo := newTestRouter(t)
	e := mustCreate(t, repo, models.Entry{UserID: "u1", Title: "Monster", Rating: intPtr(8)})
	path := fmt.Sprintf("/entries/%d", e.ID)

	rec := do(router, http.MethodPatch, path, "u1", `{"rating": "abc", "notes": "ok"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, []any{"notes"}, body["updated"])
	entry := body["entry"].(map[string]any)
	assert.Equal(t, "ok", entry["notes"])
	assert.Equal(t, float64(8), entry["rating"])

	rec = do(router, http.MethodPatch, path, "u1", `{"rating": "abc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPatch, path, "u2", `{"notes": "hijack"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodPatch, "/entries/abc", "u1", `{"notes": "x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPatch, path, "u1", `[1, 2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Detail(t *testing.T) {
	router, repo := newTestRouter(t)
	e := mustCreate(t, repo, models.Entry{UserID: "u1", Title: "Zero", ProgressCurrent: 5, ProgressTotal: intPtr(0)})

	rec := do(router, http.MethodGet, fmt.Sprintf("/entries/%d", e.ID), "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(0), body["progress_percent"])
	assert.Equal(t, "Anime", body["category_label"])
	assert.Equal(t, "Pending", body["status_label"])
	assert.Equal(t, []any{}, body["tags"])

	rec = do(router, http.MethodGet, fmt.Sprintf("/entries/%d", e.ID), "u2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_CreateListEditDelete(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, http.MethodPost, "/entries", "u1", `{"title": "Outer Wilds", "category": "game", "rating": 10}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	id := int64(created["id"].(float64))
	assert.Equal(t, "pending", created["status"])

	rec = do(router, http.MethodPost, "/entries", "u1", `{"title": "Bad", "category": "podcast", "rating": 11}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode(t, rec)["fields"].(map[string]any)
	assert.Contains(t, fields, "category")
	assert.Contains(t, fields, "rating")

	rec = do(router, http.MethodGet, "/entries?category=game", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)
	assert.Equal(t, float64(1), list["total"])
	stats := list["stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["pending"])

	path := fmt.Sprintf("/entries/%d", id)
	rec = do(router, http.MethodPut, path, "u1", `{"status": "completed", "progress_current": 1, "progress_total": 1, "clear_rating": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edited := decode(t, rec)
	assert.Equal(t, "completed", edited["status"])
	assert.Equal(t, float64(100), edited["progress_percent"])
	assert.Nil(t, edited["rating"])

	rec = do(router, http.MethodPut, path, "u1", `{"status": "paused"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodDelete, path, "u2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodDelete, path, "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, path, "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
