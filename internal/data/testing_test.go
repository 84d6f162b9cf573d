//go:build integration

package data

import (
	"context"
	"go-blog-app/internal/config"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
)

// setupTestDB creates a new in-memory SQLite database with the sqlite3
// migrations applied. The connection is closed when the test ends.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := NewDB(config.DBConfig{Driver: DriverSQLite, DSN: "file::memory:"})
	if err != nil {
		t.Fatalf("Failed to connect to sqlite test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	files, err := filepath.Glob("../../migrations/sqlite3/*.up.sql")
	if err != nil || len(files) == 0 {
		t.Fatalf("Failed to find migrations: %v", err)
	}
	for _, f := range files {
		schema, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", f, err)
		}
		db.MustExec(string(schema))
	}
	return db
}

func mustCreateUser(t *testing.T, db *sqlx.DB, username string) *User {
	t.Helper()
	u := &User{Username: username, Email: username + "@example.com"}
	if err := NewSQLUserRepository(db).CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return u
}

func mustCreateCategory(t *testing.T, db *sqlx.DB, slug string, published bool) *Category {
	t.Helper()
	c := &Category{Title: slug, Slug: slug, IsPublished: published}
	if _, err := NewCategoryRepository(db).Save(context.Background(), c); err != nil {
		t.Fatalf("failed to create category %s: %v", slug, err)
	}
	return c
}

func mustCreatePost(t *testing.T, db *sqlx.DB, p *Post) *Post {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Text == "" {
		p.Text = "body"
	}
	if err := NewSQLPostRepository(db).CreatePost(context.Background(), p); err != nil {
		t.Fatalf("failed to create post %q: %v", p.Title, err)
	}
	return p
}
