package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blogpost/blogpost/internal/handler/dto"
	"github.com/blogpost/blogpost/internal/model"
	"github.com/blogpost/blogpost/internal/service"
)

// PostService is the business layer used by PostHandler.
type PostService interface {
	ListPosts(ctx context.Context) ([]*model.Post, error)
	CreatePost(ctx context.Context, input service.CreatePostInput) (*model.Post, error)
	GetPost(ctx context.Context, id string) (*model.Post, error)
	UpdatePost(ctx context.Context, input service.UpdatePostInput) (*model.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// PostHandler handles HTTP requests for post operations.
type PostHandler struct {
	svc    PostService
	logger *slog.Logger
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(svc PostService, logger *slog.Logger) *PostHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostHandler{
		svc:    svc,
		logger: logger,
	}
}

// Routes mounts the post endpoints on r.
func (h *PostHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List handles GET /posts.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.ListPosts(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToPostListResponse(posts))
}

// Create handles POST /posts.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePostRequest
	if !h.decode(w, r, &req) {
		return
	}

	post, err := h.svc.CreatePost(r.Context(), req.ToInput())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("post_created", "post_id", post.ID)

	writeJSON(w, http.StatusCreated, dto.ToPostResponse(post))
}

// Get handles GET /posts/{id}.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.svc.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToPostResponse(post))
}

// Update handles PUT /posts/{id}.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.UpdatePostRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := req.Validate(id); err != nil {
		h.handleServiceError(w, r, service.FromValidation(err))
		return
	}

	if _, err := h.svc.UpdatePost(r.Context(), req.ToInput(id)); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("post_updated", "post_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /posts/{id}.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.DeletePost(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("post_deleted", "post_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into dst, writing the error response itself
// when the body is unusable.
func (h *PostHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
		return false
	}

	writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body", nil)
	return false
}

// handleServiceError maps service errors to HTTP responses.
func (h *PostHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError

	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", verr.Fields)
	case errors.Is(err, service.ErrPostNotFound):
		writeError(w, http.StatusNotFound, "POST_NOT_FOUND", "Post not found", nil)
	case errors.Is(err, service.ErrTimeout):
		h.logger.Warn("store_timeout", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusGatewayTimeout, "STORE_TIMEOUT", "The store did not respond in time", nil)
	case errors.Is(err, service.ErrStoreUnavailable):
		h.logger.Error("store_unavailable", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "The store is unavailable", nil)
	default:
		h.logger.Error("internal_error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string, details map[string]string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
