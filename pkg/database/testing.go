package database

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTemp opens a migrated database in a per-test temp directory.
func OpenTemp(t testing.TB) *sql.DB {
	t.Helper()

	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// InsertTestUser creates a user row so entries and tags satisfy their foreign keys.
func InsertTestUser(t testing.TB, db *sql.DB, id string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO users (id, username, email, password_hash)
		VALUES (?, ?, ?, 'x')
	`, id, "user-"+id, id+"@example.com")
	if err != nil {
		t.Fatalf("insert test user %s: %v", id, err)
	}
}
