package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogpost/blogpost/internal/model"
	"github.com/blogpost/blogpost/internal/testutil"
)

type postStore = Store

type storeFactory func(t *testing.T, ctx context.Context) postStore

func storeFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, ctx context.Context) postStore {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T, ctx context.Context) postStore {
			store, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "posts.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
		"postgres": func(t *testing.T, ctx context.Context) postStore {
			return newTestRepository(t, ctx)
		},
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, ctx context.Context, store postStore)) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			fn(t, ctx, factory(t, ctx))
		})
	}
}

func TestStore_CreateAndGetPost(t *testing.T) {
	forEachStore(t, func(t *testing.T, ctx context.Context, store postStore) {
		post := testutil.NewTestPost(t)
		require.NoError(t, store.CreatePost(ctx, post))

		got, err := store.GetPostByID(ctx, post.ID)
		require.NoError(t, err)
		assertPostEqual(t, post, got)
	})
}

func TestStore_CreatePost_DuplicateID(t *testing.T) {
	forEachStore(t, func(t *testing.T, ctx context.Context, store postStore) {
		post := testutil.NewTestPost(t)
		require.NoError(t, store.CreatePost(ctx, post))

		duplicate := testutil.NewTestPost(t)
		duplicate.ID = post.ID
		assert.ErrorIs(t, store.CreatePost(ctx, duplicate), ErrPostExists)
	})
}

func TestStore_TimestampsRoundTripExactly(t *testing.T) {
	forEachStore(t, func(t *testing.T, ctx context.Context, store postStore) {
		post := testutil.NewTestPost(t)
		post.CreatedAt = model.Timestamp(time.Date(2026, 10, 14, 12, 0, 0, 123456789, time.UTC))
		post.UpdatedAt = post.CreatedAt
		require.NoError(t, store.CreatePost(ctx, post))

		got, err := store.GetPostByID(ctx, post.ID)
		require.NoError(t, err)
		assert.True(t, post.CreatedAt.Equal(got.CreatedAt), "created %v, want %v", got.CreatedAt, post.CreatedAt)

		listed, err := store.ListPosts(ctx)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.True(t, post.CreatedAt.Equal(listed[0].CreatedAt))

		title := "patched"
		updated, err := store.UpdatePost(ctx, post.ID, model.PostPatch{Title: &title})
		require.NoError(t, err)
		assert.True(t, updated.UpdatedAt.Equal(updated.UpdatedAt.Truncate(time.Microsecond)), "updated_at %v carries sub-microsecond digits", updated.UpdatedAt)
	})
}

func TestStore_GetPostByID_NotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, ctx context.Context, store postStore) {
		_, err := store.GetPostByID(ctx, "nonexistent-id")
		assert.ErrorIs(t, err, ErrPostNotFound)
	})
}

func TestStore_ListPosts_CreationOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, ctx context.Context, store postStore) {
		posts := testutil.NewTestPosts(t, 5)
		for _, post := range posts {
			require.NoError(t, store.CreatePost(ctx, post))
		}

		listed, err := store.ListPosts(ctx)
		require.NoError(t, err)
		require.Len(t, listed, len(posts))
		for i := range posts {
			assert.Equal(t, posts[i].ID, listed[i].ID, "position %d", i)
		}

		count, err := store.CountPosts(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(posts), count)
	})
}

func TestStore_ListPosts_Empty(t *testing.T) {
	forEachStore(t, func(t *testing.T, ctx context.Context, store postStore) {
		listed, err := store.ListPosts(ctx)
		require.NoError(t, err)
		assert.NotNil(t, listed)
		assert.Empty(t, listed)
	})
}

func TestStore_UpdatePost_PartialPatch(t *testing.T) {
	forEachStore(t, func(t *testing.T, ctx context.Context, store postStore) {
		post := testutil.NewTestPost(t)
		require.NoError(t, store.CreatePost(ctx, post))

		title := "Updated"
		updated, err := store.UpdatePost(ctx, post.ID, model.PostPatch{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "Updated", updated.Title)
		assert.Equal(t, post.Content, updated.Content)

		got, err := store.GetPostByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "Updated", got.Title)
		assert.Equal(t, post.Content, got.Content)
		assert.Equal(t, post.Author, got.Author)
		assert.True(t, post.CreatedAt.Equal(got.CreatedAt), "created %v, want %v", got.CreatedAt, post.CreatedAt)
	})
}

func TestStore_UpdatePost_NotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, ctx context.Context, store postStore) {
		content := "x"
		_, err := store.UpdatePost(ctx, "nonexistent-id", model.PostPatch{Content: &content})
		assert.ErrorIs(t, err, ErrPostNotFound)
	})
}

func TestStore_DeletePost(t *testing.T) {
	forEachStore(t, func(t *testing.T, ctx context.Context, store postStore) {
		post := testutil.NewTestPost(t)
		require.NoError(t, store.CreatePost(ctx, post))

		require.NoError(t, store.DeletePost(ctx, post.ID))

		_, err := store.GetPostByID(ctx, post.ID)
		assert.ErrorIs(t, err, ErrPostNotFound)

		// Second delete finds no live post
		assert.ErrorIs(t, store.DeletePost(ctx, post.ID), ErrPostNotFound)

		listed, err := store.ListPosts(ctx)
		require.NoError(t, err)
		assert.Empty(t, listed)
	})
}

func TestStore_DeletedIDNotReused(t *testing.T) {
	forEachStore(t, func(t *testing.T, ctx context.Context, store postStore) {
		post := testutil.NewTestPost(t)
		require.NoError(t, store.CreatePost(ctx, post))
		require.NoError(t, store.DeletePost(ctx, post.ID))

		reused := testutil.NewTestPost(t)
		reused.ID = post.ID
		assert.ErrorIs(t, store.CreatePost(ctx, reused), ErrPostExists)
	})
}

func TestStore_UpdateAfterDelete(t *testing.T) {
	forEachStore(t, func(t *testing.T, ctx context.Context, store postStore) {
		post := testutil.NewTestPost(t)
		require.NoError(t, store.CreatePost(ctx, post))
		require.NoError(t, store.DeletePost(ctx, post.ID))

		title := "too late"
		_, err := store.UpdatePost(ctx, post.ID, model.PostPatch{Title: &title})
		assert.ErrorIs(t, err, ErrPostNotFound)
	})
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	forEachStore(t, func(t *testing.T, ctx context.Context, store postStore) {
		post := testutil.NewTestPost(t)
		require.NoError(t, store.CreatePost(ctx, post))

		titles := []string{"one", "two", "three", "four", "five", "six", "seven", "eight"}

		var wg sync.WaitGroup
		for _, title := range titles {
			wg.Add(1)
			go func(title string) {
				defer wg.Done()
				_, err := store.UpdatePost(ctx, post.ID, model.PostPatch{Title: &title})
				assert.NoError(t, err)
			}(title)
		}
		wg.Wait()

		got, err := store.GetPostByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Contains(t, titles, got.Title)
		assert.Equal(t, post.Content, got.Content)
	})
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	store := NewMemoryStore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Ping(ctx), context.Canceled)
	assert.ErrorIs(t, store.CreatePost(ctx, testutil.NewTestPost(t)), context.Canceled)

	_, err := store.ListPosts(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	post := testutil.NewTestPost(t)
	require.NoError(t, store.CreatePost(ctx, post))

	post.Title = "mutated after create"

	got, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated after create", got.Title)

	got.Title = "mutated after get"
	again, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated after get", again.Title)
}

func newTestRepository(t *testing.T, ctx context.Context) *Repository {
	t.Helper()

	dbURL := testutil.RequireEnv(t, "DATABASE_URL")
	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetPostsSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return repo
}

func assertPostEqual(t *testing.T, expected, actual *model.Post) {
	t.Helper()

	assert.Equal(t, expected.ID, actual.ID)
	assert.Equal(t, expected.Author, actual.Author)
	assert.Equal(t, expected.Title, actual.Title)
	assert.Equal(t, expected.Content, actual.Content)
	assert.True(t, expected.CreatedAt.Equal(actual.CreatedAt), "created %v, want %v", actual.CreatedAt, expected.CreatedAt)
	assert.Nil(t, actual.DeletedAt)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	mem, err := Open(ctx, OpenOptions{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, mem)

	lite, err := Open(ctx, OpenOptions{Driver: "sqlite", URL: filepath.Join(t.TempDir(), "open.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = lite.Close() })
	assert.IsType(t, &SQLiteStore{}, lite)
	require.NoError(t, lite.Ping(ctx))

	_, err = Open(ctx, OpenOptions{Driver: "cassandra"})
	assert.Error(t, err)
}
