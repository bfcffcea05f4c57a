package model

import (
	"testing"
	"time"
)

func TestAuthor_DisplayName(t *testing.T) {
	tests := []struct {
		name   string
		author Author
		want   string
	}{
		{"both names", Author{FirstName: "Jane", LastName: "Doe"}, "Jane Doe"},
		{"first only", Author{FirstName: "Jane"}, "Jane"},
		{"last only", Author{LastName: "Doe"}, "Doe"},
		{"empty", Author{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.author.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPostPatch_Apply(t *testing.T) {
	title := "Updated"
	post := &Post{Title: "Hello", Content: "World"}

	PostPatch{Title: &title}.Apply(post)

	if post.Title != "Updated" {
		t.Errorf("expected title Updated, got %q", post.Title)
	}
	if post.Content != "World" {
		t.Errorf("expected content unchanged, got %q", post.Content)
	}
}

func TestPostPatch_IsEmpty(t *testing.T) {
	content := "x"

	if !(PostPatch{}).IsEmpty() {
		t.Error("expected zero patch to be empty")
	}
	if (PostPatch{Content: &content}).IsEmpty() {
		t.Error("expected patch with content to be non-empty")
	}
}

func TestPost_Clone(t *testing.T) {
	deleted := time.Now().UTC()
	post := &Post{ID: "p1", Title: "Hello", DeletedAt: &deleted}

	clone := post.Clone()
	clone.Title = "Changed"
	*clone.DeletedAt = deleted.Add(time.Hour)

	if post.Title != "Hello" {
		t.Error("clone shares title with original")
	}
	if !post.DeletedAt.Equal(deleted) {
		t.Error("clone shares deleted_at with original")
	}
}

func TestCachedPost_RoundTrip(t *testing.T) {
	created := time.Date(2026, 1, 15, 12, 0, 0, 123456789, time.UTC)
	post := &Post{
		ID:        "01HZY",
		Author:    Author{FirstName: "Jane", LastName: "Doe"},
		Title:     "Hello",
		Content:   "World",
		CreatedAt: created,
		UpdatedAt: created,
	}

	got := post.ToCachedPost().ToPost(post.ID)

	if got.ID != post.ID || got.Title != post.Title || got.Content != post.Content {
		t.Fatalf("cached post mismatch: %+v", got)
	}
	if got.Author != post.Author {
		t.Errorf("author mismatch: %+v vs %+v", got.Author, post.Author)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at mismatch: %v vs %v", got.CreatedAt, created)
	}
}

func TestTimestamp_MicrosecondUTC(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	in := time.Date(2026, 10, 14, 19, 0, 0, 123456789, loc)

	got := Timestamp(in)

	want := time.Date(2026, 10, 14, 12, 0, 0, 123456000, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("Timestamp() = %v, want %v", got, want)
	}
}
