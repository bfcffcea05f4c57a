// Package model defines domain entities for the application.
package model

import (
	"strconv"
	"strings"
	"time"
)

// Author is the embedded author document of a post.
type Author struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// DisplayName renders the author as "First Last".
func (a Author) DisplayName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Timestamp returns t in UTC at the microsecond precision every store
// keeps, so a post reads back exactly as it was written.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Post represents a blog post entity.
type Post struct {
	ID        string     `json:"id"`
	Author    Author     `json:"author"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created"`
	UpdatedAt time.Time  `json:"-"`
	DeletedAt *time.Time `json:"-"`
}

// IsDeleted returns true if the post has been tombstoned.
func (p *Post) IsDeleted() bool {
	return p.DeletedAt != nil
}

// Clone returns a copy that shares no pointers with p.
func (p *Post) Clone() *Post {
	c := *p
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

// PostPatch holds the mutable fields of a post. Nil fields are left unchanged.
type PostPatch struct {
	Title   *string
	Content *string
}

// IsEmpty reports whether the patch changes nothing.
func (p PostPatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil
}

// Apply overwrites the supplied fields on post.
func (p PostPatch) Apply(post *Post) {
	if p.Title != nil {
		post.Title = *p.Title
	}
	if p.Content != nil {
		post.Content = *p.Content
	}
}

// CachedPost represents post data stored in Redis cache.
// Uses string types for Redis hash compatibility.
type CachedPost struct {
	AuthorFirstName string `redis:"author_first_name"`
	AuthorLastName  string `redis:"author_last_name"`
	Title           string `redis:"title"`
	Content         string `redis:"content"`
	CreatedAt       string `redis:"created_at"` // Unix nanoseconds
	UpdatedAt       string `redis:"updated_at"` // Unix nanoseconds
}

// ToPost converts CachedPost to Post domain model.
func (c *CachedPost) ToPost(id string) *Post {
	post := &Post{
		ID: id,
		Author: Author{
			FirstName: c.AuthorFirstName,
			LastName:  c.AuthorLastName,
		},
		Title:   c.Title,
		Content: c.Content,
	}

	if ts, err := strconv.ParseInt(c.CreatedAt, 10, 64); err == nil {
		post.CreatedAt = time.Unix(0, ts).UTC()
	}
	if ts, err := strconv.ParseInt(c.UpdatedAt, 10, 64); err == nil {
		post.UpdatedAt = time.Unix(0, ts).UTC()
	}

	return post
}

// ToCachedPost converts Post domain model to CachedPost.
func (p *Post) ToCachedPost() *CachedPost {
	return &CachedPost{
		AuthorFirstName: p.Author.FirstName,
		AuthorLastName:  p.Author.LastName,
		Title:           p.Title,
		Content:         p.Content,
		CreatedAt:       strconv.FormatInt(p.CreatedAt.UnixNano(), 10),
		UpdatedAt:       strconv.FormatInt(p.UpdatedAt.UnixNano(), 10),
	}
}
