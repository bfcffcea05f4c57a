package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/blogpost/blogpost/internal/model"
	"github.com/blogpost/blogpost/migrations"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420421

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetPostsSchema rolls every migration back and re-applies them.
func ResetPostsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.Postgres())
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	if _, err := provider.DownTo(ctx, 0); err != nil {
		return fmt.Errorf("apply down migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply up migrations: %w", err)
	}

	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestAuthor returns a random author with both names set.
func NewTestAuthor() model.Author {
	return model.Author{
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
	}
}

// NewTestPost creates a test post with random content and fresh identity.
func NewTestPost(t testing.TB) *model.Post {
	t.Helper()
	now := model.Timestamp(time.Now())
	return &model.Post{
		ID:        ulid.Make().String(),
		Author:    NewTestAuthor(),
		Title:     gofakeit.Sentence(6),
		Content:   gofakeit.Paragraph(1, 3, 12, " "),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestPosts creates n test posts with strictly increasing creation times.
func NewTestPosts(t testing.TB, n int) []*model.Post {
	t.Helper()
	base := model.Timestamp(time.Now())
	posts := make([]*model.Post, n)
	for i := range posts {
		post := NewTestPost(t)
		post.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		post.UpdatedAt = post.CreatedAt
		posts[i] = post
	}
	return posts
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
