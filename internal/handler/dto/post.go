// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/blogpost/blogpost/internal/model"
	"github.com/blogpost/blogpost/internal/service"
)

// AuthorRequest is the structured author accepted on create.
type AuthorRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// CreatePostRequest represents the request body for creating a post.
type CreatePostRequest struct {
	Author  AuthorRequest `json:"author"`
	Title   string        `json:"title"`
	Content string        `json:"content"`
}

// ToInput converts the request into service input.
func (r CreatePostRequest) ToInput() service.CreatePostInput {
	return service.CreatePostInput{
		Author: model.Author{
			FirstName: r.Author.FirstName,
			LastName:  r.Author.LastName,
		},
		Title:   r.Title,
		Content: r.Content,
	}
}

// UpdatePostRequest represents the request body for updating a post.
// ID is optional; when present it must equal the path ID.
type UpdatePostRequest struct {
	ID      *string `json:"id,omitempty"`
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Validate checks the body against the ID taken from the path.
func (r UpdatePostRequest) Validate(pathID string) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID,
			validation.When(r.ID != nil,
				validation.Required.Error("id must not be empty"),
				validation.In(pathID).Error("id must match the id in the URL"),
			),
		),
	)
}

// ToInput converts the request into service input for pathID.
func (r UpdatePostRequest) ToInput(pathID string) service.UpdatePostInput {
	return service.UpdatePostInput{
		ID:      pathID,
		Title:   r.Title,
		Content: r.Content,
	}
}

// PostResponse represents a post in API responses.
type PostResponse struct {
	ID      string    `json:"id"`
	Author  string    `json:"author"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Created time.Time `json:"created"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// ToPostResponse converts a Post model to PostResponse DTO.
func ToPostResponse(post *model.Post) PostResponse {
	return PostResponse{
		ID:      post.ID,
		Author:  post.Author.DisplayName(),
		Title:   post.Title,
		Content: post.Content,
		Created: post.CreatedAt,
	}
}

// ToPostListResponse converts posts to a JSON array body. The result is
// never nil so an empty list encodes as [].
func ToPostListResponse(posts []*model.Post) []PostResponse {
	responses := make([]PostResponse, len(posts))
	for i, post := range posts {
		responses[i] = ToPostResponse(post)
	}
	return responses
}
