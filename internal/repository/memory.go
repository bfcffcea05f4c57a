package repository

import (
	"context"
	"sync"
	"time"

	"github.com/blogpost/blogpost/internal/model"
)

// MemoryStore keeps posts in process memory. It is used for local runs
// and tests; contents are lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	posts map[string]*model.Post
	order []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts: make(map[string]*model.Post),
	}
}

// Ping always succeeds unless ctx is done.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// CreatePost stores a copy of post. IDs of deleted posts stay reserved.
func (m *MemoryStore) CreatePost(ctx context.Context, post *model.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.posts[post.ID]; exists {
		return ErrPostExists
	}

	m.posts[post.ID] = post.Clone()
	m.order = append(m.order, post.ID)
	return nil
}

// GetPostByID returns a copy of the live post with id.
func (m *MemoryStore) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	post, ok := m.posts[id]
	if !ok || post.IsDeleted() {
		return nil, ErrPostNotFound
	}
	return post.Clone(), nil
}

// ListPosts returns live posts in insertion order.
func (m *MemoryStore) ListPosts(ctx context.Context) ([]*model.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	posts := make([]*model.Post, 0, len(m.order))
	for _, id := range m.order {
		post := m.posts[id]
		if post.IsDeleted() {
			continue
		}
		posts = append(posts, post.Clone())
	}
	return posts, nil
}

// UpdatePost applies patch under the write lock.
func (m *MemoryStore) UpdatePost(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	post, ok := m.posts[id]
	if !ok || post.IsDeleted() {
		return nil, ErrPostNotFound
	}

	patch.Apply(post)
	post.UpdatedAt = model.Timestamp(time.Now())
	return post.Clone(), nil
}

// DeletePost tombstones the post with id.
func (m *MemoryStore) DeletePost(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	post, ok := m.posts[id]
	if !ok || post.IsDeleted() {
		return ErrPostNotFound
	}

	now := model.Timestamp(time.Now())
	post.DeletedAt = &now
	return nil
}

// CountPosts returns the number of live posts.
func (m *MemoryStore) CountPosts(ctx context.Context) (int, error) {
	posts, err := m.ListPosts(ctx)
	if err != nil {
		return 0, err
	}
	return len(posts), nil
}
