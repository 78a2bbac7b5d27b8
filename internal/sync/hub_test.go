package sync

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediatrack/internal/auth"
	"mediatrack/pkg/models"
	"mediatrack/pkg/utils"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSpace(line)
}

func TestHub_PublishOnlyReachesOwner(t *testing.T) {
	hub := NewHub(testLogger())

	mineServer, mineClient := net.Pipe()
	theirsServer, theirsClient := net.Pipe()
	defer mineClient.Close()
	defer theirsClient.Close()

	hub.Add("u1", mineServer)
	hub.Add("u2", theirsServer)
	assert.Equal(t, Stats{TCPClients: 2}, hub.Stats())

	got := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(mineClient).ReadString('\n')
		got <- line
	}()

	ev := NewEntryEvent(EntryUpdated, &models.Entry{ID: 7, UserID: "u1", Title: "Lain", Status: models.StatusInProgress, ProgressCurrent: 3})
	hub.Publish("u1", ev)

	select {
	case line := <-got:
		var decoded EntryEvent
		require.NoError(t, json.Unmarshal([]byte(line), &decoded))
		assert.Equal(t, EntryUpdated, decoded.Type)
		assert.Equal(t, int64(7), decoded.EntryID)
		assert.Equal(t, "in_progress", decoded.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("owner did not receive event")
	}

	// u2 never reads; a write to it would have blocked until the deadline
	_ = theirsClient.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	_, err := bufio.NewReader(theirsClient).ReadString('\n')
	assert.Error(t, err)
}

func TestHub_DropsBrokenConnections(t *testing.T) {
	hub := NewHub(testLogger())
	server, client := net.Pipe()
	hub.Add("u1", server)
	_ = client.Close()

	hub.Publish("u1", map[string]string{"type": "ping"})
	assert.Equal(t, 0, hub.Stats().TCPClients)
}

type versionStub map[string]int

func (v versionStub) GetTokenVersion(_ context.Context, userID string) (int, error) {
	n, ok := v[userID]
	if !ok {
		return 0, auth.ErrUserNotFound
	}
	return n, nil
}

func TestServer_TokenHandshake(t *testing.T) {
	tokens := auth.NewTokenService(utils.AuthConfig{JWTSecret: "sync-secret", JWTDuration: time.Hour})
	a := auth.NewAuthenticator(tokens, versionStub{"u1": 0})
	hub := NewHub(testLogger())
	srv := NewServer("", hub, a, testLogger())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	go func() { _ = srv.Serve(ctx, ln) }()

	// bad token is rejected and the connection closed
	bad, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer bad.Close()
	_, err = bad.Write([]byte("garbage\n"))
	require.NoError(t, err)
	assert.Contains(t, readLine(t, bufio.NewReader(bad)), `"error"`)

	token, _, err := tokens.Sign(&auth.User{ID: "u1"})
	require.NoError(t, err)

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte(token + "\n"))
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	assert.Contains(t, readLine(t, r), `"welcome"`)

	require.Eventually(t, func() bool { return hub.Stats().TCPClients == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.Publish("u1", NewEntryEvent(EntryDeleted, &models.Entry{ID: 9, UserID: "u1"}))
	assert.Contains(t, readLine(t, r), `"entry.deleted"`)
}
