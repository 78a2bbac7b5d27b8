package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

// fakeAPI answers a handful of routes and records what it saw.
func fakeAPI(t *testing.T, calls *[]recorded) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, auth: r.Header.Get("Authorization")}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		*calls = append(*calls, rec)

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/auth/login":
			_, _ = w.Write([]byte(`{"token":"tok-123","user":{"id":"u1","username":"alice"}}`))
		case r.URL.Path == "/search":
			_, _ = w.Write([]byte(`{"count":1,"results":[{"source":"anilist","external_id":"21","title":"One Piece","episodes":1100}]}`))
		case r.URL.Path == "/entries/import":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"already in your list","code":"duplicate","existing_id":7}`))
		case r.URL.Path == "/entries" && r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`{"total":1,"items":[{"id":7,"title":"One Piece","status":"in_progress","progress_current":3}],"stats":{"total":1,"in_progress":1}}`))
		case r.URL.Path == "/entries/7" && r.Method == http.MethodPatch:
			_, _ = w.Write([]byte(`{"updated":["progress_current","rating"],"entry":{"id":7}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"entry not found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, srv *httptest.Server, tokenPath string, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs(append([]string{"--api", srv.URL, "--token-file", tokenPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestLoginSavesToken(t *testing.T) {
	var calls []recorded
	srv := fakeAPI(t, &calls)
	tokenPath := filepath.Join(t.TempDir(), "token.json")

	out, err := run(t, srv, tokenPath, "auth", "login", "--email", "a@x.io", "--password", "secret123")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as alice")

	c := newAPIClient(srv.URL, tokenPath)
	token, err := c.loadToken()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	// later calls carry the token
	_, err = run(t, srv, tokenPath, "entries", "list")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", calls[len(calls)-1].auth)
}

func TestAuthedCommandWithoutToken(t *testing.T) {
	var calls []recorded
	srv := fakeAPI(t, &calls)

	_, err := run(t, srv, filepath.Join(t.TempDir(), "missing.json"), "entries", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
	assert.Empty(t, calls)
}

func TestEntriesListTable(t *testing.T) {
	var calls []recorded
	srv := fakeAPI(t, &calls)
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, newAPIClient(srv.URL, tokenPath).saveToken("tok"))

	out, err := run(t, srv, tokenPath, "entries", "list", "--status", "in_progress", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "One Piece")
	assert.Contains(t, out, "1 of 1 shown")

	q := calls[len(calls)-1].query
	assert.Contains(t, q, "status=in_progress")
	assert.Contains(t, q, "limit=5")
}

func TestEntriesListJSON(t *testing.T) {
	var calls []recorded
	srv := fakeAPI(t, &calls)
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, newAPIClient(srv.URL, tokenPath).saveToken("tok"))

	out, err := run(t, srv, tokenPath, "-o", "json", "entries", "list")
	require.NoError(t, err)

	var decoded entryList
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 1, decoded.Total)
	require.Len(t, decoded.Items, 1)
	assert.Equal(t, int64(7), decoded.Items[0].ID)
}

func TestUpdateSendsTypedFields(t *testing.T) {
	var calls []recorded
	srv := fakeAPI(t, &calls)
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, newAPIClient(srv.URL, tokenPath).saveToken("tok"))

	out, err := run(t, srv, tokenPath, "entries", "update", "7", "progress_current=4", "rating=", "title=24")
	require.NoError(t, err)
	assert.Contains(t, out, "updated progress_current, rating")

	body := calls[len(calls)-1].body
	assert.Equal(t, float64(4), body["progress_current"])
	assert.Nil(t, body["rating"])
	assert.Contains(t, body, "rating")
	assert.Equal(t, "24", body["title"])
}

func TestImportReportsDuplicate(t *testing.T) {
	var calls []recorded
	srv := fakeAPI(t, &calls)
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, newAPIClient(srv.URL, tokenPath).saveToken("tok"))

	out, err := run(t, srv, tokenPath, "import", "one", "piece", "--source", "anilist", "--id", "21")
	require.NoError(t, err)
	assert.Contains(t, out, "already in your list (entry 7)")

	last := calls[len(calls)-1]
	assert.Equal(t, "/entries/import", last.path)
	assert.Equal(t, "One Piece", last.body["title"])
}

func TestImportUnknownCandidate(t *testing.T) {
	var calls []recorded
	srv := fakeAPI(t, &calls)
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, newAPIClient(srv.URL, tokenPath).saveToken("tok"))

	_, err := run(t, srv, tokenPath, "import", "one piece", "--source", "tvmaze", "--id", "21")
	require.Error(t, err)
	assert.Len(t, calls, 1)
}

func TestAPIErrorMessage(t *testing.T) {
	var calls []recorded
	srv := fakeAPI(t, &calls)
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, newAPIClient(srv.URL, tokenPath).saveToken("tok"))

	_, err := run(t, srv, tokenPath, "entries", "show", "99")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "entry not found", apiErr.Message)
}

func TestParseAssignments(t *testing.T) {
	_, err := parseAssignments([]string{"noequals"})
	assert.Error(t, err)

	_, err = parseAssignments([]string{"=5"})
	assert.Error(t, err)

	got, err := parseAssignments([]string{"notes=12", "progress_total=12", "status=completed"})
	require.NoError(t, err)
	assert.Equal(t, "12", got["notes"])
	assert.Equal(t, 12, got["progress_total"])
	assert.Equal(t, "completed", got["status"])
}

func TestRenderYAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	v := struct {
		ProgressCurrent int `json:"progress_current"`
	}{ProgressCurrent: 3}

	require.NoError(t, render(&buf, outputYAML, v))
	assert.Equal(t, "progress_current: 3", strings.TrimSpace(buf.String()))
}

func TestInvalidOutputFormat(t *testing.T) {
	var calls []recorded
	srv := fakeAPI(t, &calls)
	_, err := run(t, srv, filepath.Join(t.TempDir(), "t.json"), "-o", "xml", "tags")
	assert.Error(t, err)
}
