package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/blogpost/blogpost/internal/model"
	"github.com/blogpost/blogpost/migrations"
)

// SQLiteStore persists posts in a single SQLite file. The author is kept
// as a JSON document in a TEXT column.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies
// the embedded SQLite migrations.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, err
	}

	provider, err := newSQLiteProvider(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := provider.Up(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply sqlite migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewSQLiteMigrator opens the database at path without migrating it and
// returns a goose provider for it. The caller must close the returned DB.
func NewSQLiteMigrator(ctx context.Context, path string) (*goose.Provider, func() error, error) {
	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	provider, err := newSQLiteProvider(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return provider, db.Close, nil
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	path = strings.TrimPrefix(path, "sqlite://")

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite allows one writer; a single connection keeps pragmas and
	// :memory: databases consistent across calls.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w: %w", ErrUnavailable, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

func newSQLiteProvider(db *sql.DB) (*goose.Provider, error) {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.SQLite())
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}

// Ping checks database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreatePost inserts a new post.
func (s *SQLiteStore) CreatePost(ctx context.Context, post *model.Post) error {
	author, err := json.Marshal(post.Author)
	if err != nil {
		return fmt.Errorf("failed to encode author: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO posts (id, author, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		post.ID,
		string(author),
		post.Title,
		post.Content,
		post.CreatedAt.UnixNano(),
		post.UpdatedAt.UnixNano(),
	)
	if err != nil {
		if isSQLiteConstraint(err) {
			return ErrPostExists
		}
		return fmt.Errorf("failed to create post: %w", err)
	}

	return nil
}

// GetPostByID retrieves a live post by its ID.
func (s *SQLiteStore) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE id = ? AND deleted_at IS NULL`, id)

	post, err := scanSQLitePost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post by ID: %w", err)
	}

	return post, nil
}

// ListPosts retrieves all live posts in creation order.
func (s *SQLiteStore) ListPosts(ctx context.Context) ([]*model.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE deleted_at IS NULL
		ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*model.Post, 0)
	for rows.Next() {
		post, err := scanSQLitePost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}

	return posts, nil
}

// UpdatePost applies patch in one statement.
func (s *SQLiteStore) UpdatePost(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE posts
		SET title = COALESCE(?, title),
		    content = COALESCE(?, content),
		    updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
		RETURNING `+postColumns,
		patch.Title,
		patch.Content,
		model.Timestamp(time.Now()).UnixNano(),
		id,
	)

	post, err := scanSQLitePost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return post, nil
}

// DeletePost tombstones a post.
func (s *SQLiteStore) DeletePost(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE posts
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		model.Timestamp(time.Now()).UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrPostNotFound
	}

	return nil
}

// CountPosts returns the number of live posts.
func (s *SQLiteStore) CountPosts(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE deleted_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePost(row sqlScanner) (*model.Post, error) {
	var (
		post      model.Post
		author    string
		createdAt int64
		updatedAt int64
		deletedAt sql.NullInt64
	)

	if err := row.Scan(
		&post.ID,
		&author,
		&post.Title,
		&post.Content,
		&createdAt,
		&updatedAt,
		&deletedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(author), &post.Author); err != nil {
		return nil, fmt.Errorf("failed to decode author: %w", err)
	}

	post.CreatedAt = time.Unix(0, createdAt).UTC()
	post.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if deletedAt.Valid {
		t := time.Unix(0, deletedAt.Int64).UTC()
		post.DeletedAt = &t
	}

	return &post, nil
}

func isSQLiteConstraint(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// Extended result codes disabled
		return strings.Contains(err.Error(), "UNIQUE")
	}
	return false
}
