package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/blogpost/blogpost/internal/model"
)

const postColumns = `id, author, title, content, created_at, updated_at, deleted_at`

// CreatePost inserts a new post into the database.
// The author is stored as a JSONB document.
func (r *Repository) CreatePost(ctx context.Context, post *model.Post) error {
	query := `
		INSERT INTO posts (id, author, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		post.ID,
		post.Author,
		post.Title,
		post.Content,
		post.CreatedAt,
		post.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrPostExists
		}
		return wrapPgError("failed to create post", err)
	}

	return nil
}

// GetPostByID retrieves a live post by its ID.
func (r *Repository) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE id = $1 AND deleted_at IS NULL
	`

	post, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, wrapPgError("failed to get post by ID", err)
	}

	return post, nil
}

// ListPosts retrieves all live posts in creation order.
func (r *Repository) ListPosts(ctx context.Context) ([]*model.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, wrapPgError("failed to list posts", err)
	}
	defer rows.Close()

	posts := make([]*model.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapPgError("error iterating posts", err)
	}

	return posts, nil
}

// UpdatePost applies patch to a live post in a single statement and
// returns the stored result. Concurrent updates resolve last-writer-wins;
// a post deleted before the update commits yields ErrPostNotFound.
func (r *Repository) UpdatePost(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error) {
	query := `
		UPDATE posts
		SET title = COALESCE($2, title),
		    content = COALESCE($3, content),
		    updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + postColumns

	post, err := scanPost(r.pool.QueryRow(ctx, query,
		id,
		patch.Title,
		patch.Content,
		model.Timestamp(time.Now()),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, wrapPgError("failed to update post", err)
	}

	return post, nil
}

// DeletePost tombstones a post. The row is kept so its ID is never reused.
func (r *Repository) DeletePost(ctx context.Context, id string) error {
	query := `
		UPDATE posts
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return wrapPgError("failed to delete post", err)
	}

	if result.RowsAffected() == 0 {
		return ErrPostNotFound
	}

	return nil
}

// CountPosts returns the number of live posts.
func (r *Repository) CountPosts(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE deleted_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, wrapPgError("failed to count posts", err)
	}
	return count, nil
}

// scanPost scans a single row into a Post model.
func scanPost(row pgx.Row) (*model.Post, error) {
	var post model.Post
	err := row.Scan(
		&post.ID,
		&post.Author,
		&post.Title,
		&post.Content,
		&post.CreatedAt,
		&post.UpdatedAt,
		&post.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	post.CreatedAt = post.CreatedAt.UTC()
	post.UpdatedAt = post.UpdatedAt.UTC()
	return &post, nil
}
