//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blogpost/blogpost/internal/testutil"
)

// ============================================================================
// Migration Integration Tests
// ============================================================================

func TestIntegrationMigration_PostsTableSchema(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	expectedColumns := []string{
		"id",
		"author",
		"title",
		"content",
		"created_at",
		"updated_at",
		"deleted_at",
	}

	for _, col := range expectedColumns {
		t.Run(col, func(t *testing.T) {
			exists, err := columnExists(ctx, pool, "posts", col)
			if err != nil {
				t.Fatalf("columnExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Column %q should exist in posts table", col)
			}
		})
	}
}

func TestIntegrationMigration_PostsConstraints(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	// Empty title
	_, err := pool.Exec(ctx, `
		INSERT INTO posts (id, author, title, content)
		VALUES ('empty-title', '{"firstName":"Jane","lastName":"Doe"}', '', 'World')
	`)
	if err == nil {
		t.Error("Expected check constraint violation for empty title")
	}

	// Empty content
	_, err = pool.Exec(ctx, `
		INSERT INTO posts (id, author, title, content)
		VALUES ('empty-content', '{"firstName":"Jane","lastName":"Doe"}', 'Hello', '')
	`)
	if err == nil {
		t.Error("Expected check constraint violation for empty content")
	}

	// Author without last name
	_, err = pool.Exec(ctx, `
		INSERT INTO posts (id, author, title, content)
		VALUES ('half-author', '{"firstName":"Jane"}', 'Hello', 'World')
	`)
	if err == nil {
		t.Error("Expected check constraint violation for author missing lastName")
	}
}

func TestIntegrationMigration_Rollback(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	repo := &Repository{pool: pool}
	provider, closeDB, err := repo.Migrator()
	if err != nil {
		t.Fatalf("Migrator failed: %v", err)
	}
	defer closeDB()

	if _, err := provider.DownTo(ctx, 0); err != nil {
		t.Fatalf("DownTo failed: %v", err)
	}

	exists, err := tableExists(ctx, pool, "posts")
	if err != nil {
		t.Fatalf("tableExists failed: %v", err)
	}
	if exists {
		t.Error("posts table should not exist after rollback")
	}

	if _, err := provider.Up(ctx); err != nil {
		t.Fatalf("reapply migrations: %v", err)
	}
}

func TestIntegrationMigration_Idempotency(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	repo := &Repository{pool: pool}
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("second migrate should not fail: %v", err)
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables 
			WHERE table_schema = 'public' 
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.columns 
			WHERE table_schema = 'public' 
			AND table_name = $1 
			AND column_name = $2
		)
	`, tableName, columnName).Scan(&exists)
	return exists, err
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newMigrationTestEnv(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	unlock, err := testutil.AcquireDBLock(ctx, pool)
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetPostsSchema(ctx, pool); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return ctx, pool
}
