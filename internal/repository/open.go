package repository

import (
	"context"
	"fmt"

	"github.com/blogpost/blogpost/internal/model"
)

// Store is implemented by every post store.
type Store interface {
	Ping(ctx context.Context) error
	Close() error
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	ListPosts(ctx context.Context) ([]*model.Post, error)
	UpdatePost(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error)
	DeletePost(ctx context.Context, id string) error
	CountPosts(ctx context.Context) (int, error)
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// OpenOptions selects and configures a store.
type OpenOptions struct {
	Driver string // postgres, sqlite or memory
	URL    string
	// Migrate applies pending PostgreSQL migrations on open. SQLite is
	// always migrated on open.
	Migrate bool
}

// Open returns the store named by opts.Driver.
func Open(ctx context.Context, opts OpenOptions) (Store, error) {
	switch opts.Driver {
	case "postgres":
		repo, err := New(ctx, opts.URL)
		if err != nil {
			return nil, err
		}
		if opts.Migrate {
			if err := repo.Migrate(ctx); err != nil {
				_ = repo.Close()
				return nil, err
			}
		}
		return repo, nil
	case "sqlite":
		return NewSQLiteStore(ctx, opts.URL)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
