// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/oklog/ulid/v2"

	"github.com/blogpost/blogpost/internal/cache"
	"github.com/blogpost/blogpost/internal/events"
	"github.com/blogpost/blogpost/internal/metrics"
	"github.com/blogpost/blogpost/internal/model"
	"github.com/blogpost/blogpost/internal/repository"
)

// DefaultTimeout bounds every store call when Options.Timeout is unset.
const DefaultTimeout = 5 * time.Second

// PostStore is the persistence backend used by PostService.
type PostStore interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	ListPosts(ctx context.Context) ([]*model.Post, error)
	UpdatePost(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// PostCache is the optional read-through cache in front of the store.
// SetPost must skip ids marked deleted and copies older than the cached
// one, so a slow read cannot overwrite what a later write left behind.
type PostCache interface {
	GetPost(ctx context.Context, id string) (*model.Post, error)
	SetPost(ctx context.Context, post *model.Post) error
	DeletePost(ctx context.Context, id string) error
	MarkDeleted(ctx context.Context, id string) error
	IsNegativelyCached(ctx context.Context, id string) (bool, error)
	SetNegativeCache(ctx context.Context, id string) error
}

// EventPublisher receives post lifecycle events.
type EventPublisher interface {
	PublishAsync(event events.PostEventPayload)
}

// Options configures optional collaborators of PostService. Leave
// Cache or Events nil to disable them.
type Options struct {
	Cache   PostCache
	Events  EventPublisher
	Metrics metrics.Recorder
	Logger  *slog.Logger
	Timeout time.Duration
	Now     func() time.Time
}

// PostService handles blog post business logic.
type PostService struct {
	store   PostStore
	cache   PostCache
	events  EventPublisher
	metrics metrics.Recorder
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewPostService creates a new PostService backed by store.
func NewPostService(store PostStore, opts Options) *PostService {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoop()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PostService{
		store:   store,
		cache:   opts.Cache,
		events:  opts.Events,
		metrics: opts.Metrics,
		logger:  opts.Logger.With("component", "service.post"),
		timeout: opts.Timeout,
		now:     opts.Now,
	}
}

// CreatePostInput defines input for creating a post.
type CreatePostInput struct {
	Author  model.Author `json:"author"`
	Title   string       `json:"title"`
	Content string       `json:"content"`
}

func (in *CreatePostInput) normalize() {
	in.Author.FirstName = strings.TrimSpace(in.Author.FirstName)
	in.Author.LastName = strings.TrimSpace(in.Author.LastName)
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
}

// Validate checks that every field is present and non-blank.
func (in CreatePostInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Author, validation.By(validateAuthor)),
		validation.Field(&in.Title, validation.Required.Error("title is required")),
		validation.Field(&in.Content, validation.Required.Error("content is required")),
	)
}

func validateAuthor(value any) error {
	author, ok := value.(model.Author)
	if !ok {
		return errors.New("must be an author")
	}
	return validation.ValidateStruct(&author,
		validation.Field(&author.FirstName, validation.Required.Error("firstName is required")),
		validation.Field(&author.LastName, validation.Required.Error("lastName is required")),
	)
}

// UpdatePostInput defines input for updating a post. Nil fields are
// left unchanged.
type UpdatePostInput struct {
	ID      string  `json:"id"`
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func (in *UpdatePostInput) normalize() {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		in.Title = &title
	}
	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		in.Content = &content
	}
}

// Validate requires at least one field, and every supplied field to be non-blank.
func (in UpdatePostInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ID, validation.Required.Error("id is required")),
		validation.Field(&in.Title,
			validation.When(in.Content == nil, validation.NotNil.Error("title or content is required")),
			validation.NilOrNotEmpty.Error("title must not be empty"),
		),
		validation.Field(&in.Content,
			validation.NilOrNotEmpty.Error("content must not be empty"),
		),
	)
}

func (in UpdatePostInput) patch() model.PostPatch {
	return model.PostPatch{Title: in.Title, Content: in.Content}
}

// ListPosts returns all live posts in creation order.
func (s *PostService) ListPosts(ctx context.Context) ([]*model.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	posts, err := s.store.ListPosts(ctx)
	s.observe("list", start, err)
	if err != nil {
		return nil, mapStoreError("list posts", err)
	}

	return posts, nil
}

// CreatePost validates input and stores a new post.
func (s *PostService) CreatePost(ctx context.Context, input CreatePostInput) (*model.Post, error) {
	input.normalize()
	if err := FromValidation(input.Validate()); err != nil {
		return nil, err
	}

	now := model.Timestamp(s.now())
	post := &model.Post{
		ID:        ulid.Make().String(),
		Author:    input.Author,
		Title:     input.Title,
		Content:   input.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := s.store.CreatePost(ctx, post)
	s.observe("create", start, err)
	if err != nil {
		return nil, mapStoreError("create post", err)
	}

	s.metrics.IncPostCreated()
	s.publish(events.TypePostCreated, post.ID)

	return post, nil
}

// GetPost retrieves a post by ID, consulting the cache first when one
// is configured.
func (s *PostService) GetPost(ctx context.Context, id string) (*model.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.cache != nil {
		post, err := s.cache.GetPost(ctx, id)
		switch {
		case err == nil:
			s.metrics.IncPostCacheHit()
			return post, nil
		case errors.Is(err, cache.ErrCacheMiss):
			s.metrics.IncPostCacheMiss()
			negative, err := s.cache.IsNegativelyCached(ctx, id)
			if err != nil {
				s.logger.Warn("negative cache lookup failed", "post_id", id, "error", err)
			} else if negative {
				return nil, ErrPostNotFound
			}
		default:
			// Redis trouble falls through to the store
			s.logger.Warn("cache lookup failed", "post_id", id, "error", err)
		}
	}

	start := time.Now()
	post, err := s.store.GetPostByID(ctx, id)
	s.observe("get", start, err)
	if err != nil {
		err = mapStoreError("get post", err)
		if errors.Is(err, ErrPostNotFound) && s.cache != nil {
			if cerr := s.cache.SetNegativeCache(ctx, id); cerr != nil {
				s.logger.Warn("failed to set negative cache", "post_id", id, "error", cerr)
			}
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetPost(ctx, post); err != nil {
			s.logger.Warn("failed to backfill cache", "post_id", id, "error", err)
		}
	}

	return post, nil
}

// UpdatePost applies the supplied fields to a live post.
func (s *PostService) UpdatePost(ctx context.Context, input UpdatePostInput) (*model.Post, error) {
	input.normalize()
	if err := FromValidation(input.Validate()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	post, err := s.store.UpdatePost(ctx, input.ID, input.patch())
	s.observe("update", start, err)
	if err != nil {
		return nil, mapStoreError("update post", err)
	}

	s.refreshCache(ctx, post)
	s.metrics.IncPostUpdated()
	s.publish(events.TypePostUpdated, post.ID)

	return post, nil
}

// DeletePost removes a live post. Deleting an unknown or already
// deleted ID returns ErrPostNotFound.
func (s *PostService) DeletePost(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := s.store.DeletePost(ctx, id)
	s.observe("delete", start, err)
	if err != nil {
		return mapStoreError("delete post", err)
	}

	s.evict(ctx, id)
	s.metrics.IncPostDeleted()
	s.publish(events.TypePostDeleted, id)

	return nil
}

// refreshCache writes the updated post through to the cache. If that
// fails the entry is dropped instead. Cache errors are logged only.
func (s *PostService) refreshCache(ctx context.Context, post *model.Post) {
	if s.cache == nil {
		return
	}
	err := s.cache.SetPost(ctx, post)
	if err == nil {
		return
	}
	s.logger.Warn("failed to refresh cache", "post_id", post.ID, "error", err)
	if err := s.cache.DeletePost(ctx, post.ID); err != nil {
		s.logger.Warn("failed to invalidate cache", "post_id", post.ID, "error", err)
	}
}

// evict tombstones a deleted id in the cache. Cache errors are logged only.
func (s *PostService) evict(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.MarkDeleted(ctx, id); err != nil {
		s.logger.Warn("failed to tombstone cache entry", "post_id", id, "error", err)
	}
}

func (s *PostService) publish(eventType, id string) {
	if s.events == nil {
		return
	}
	s.events.PublishAsync(events.NewPostEvent(eventType, id, s.now()))
}

func (s *PostService) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil && !errors.Is(err, repository.ErrPostNotFound) {
		outcome = "error"
	}
	s.metrics.ObserveStoreDuration(op, outcome, time.Since(start))
}
