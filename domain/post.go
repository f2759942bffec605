package domain

import (
	"context"
	"encoding/json"
	"time"
)

// RepostPrefix is prepended to the source text when a post is reposted.
const RepostPrefix = "REPOSTED:\n"

// Post is a feed entry. Author is a snapshot of the user at creation time, not
// a live reference. Comments are read newest-first. Likes is the set of users
// who currently like the post, backed by one row per (post, user) pair.
type Post struct {
	ID       int          `json:"id" gorm:"primaryKey"`
	Author   UserSnapshot `json:"user" gorm:"embedded;embeddedPrefix:author_"`
	Text     string       `json:"text"`
	ImageRef string       `json:"imageRef,omitempty"`

	Comments []Comment `json:"comments" gorm:"foreignKey:PostID"`
	Likes    []Like    `json:"likes" gorm:"foreignKey:PostID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment belongs to exactly one post. The author snapshot follows the same
// embed-at-write-time rule as posts.
type Comment struct {
	ID     int          `json:"id" gorm:"primaryKey"`
	PostID int          `json:"post_id" gorm:"index;not null"`
	Author UserSnapshot `json:"user" gorm:"embedded;embeddedPrefix:author_"`
	Text   string       `json:"text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Like is one user's membership in a post's like set. The composite unique
// index on (post_id, user_id) is what makes liking idempotent.
type Like struct {
	ID     int    `json:"-" gorm:"primaryKey"`
	PostID int    `json:"-" gorm:"uniqueIndex:idx_likes_post_user;not null"`
	UserID string `json:"-" gorm:"uniqueIndex:idx_likes_post_user;not null"`

	CreatedAt time.Time `json:"-"`
}

// MarshalJSON serializes a like as the bare liking user id, so a post's like
// set reads as a plain array of user ids.
func (l Like) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.UserID)
}

// PostFilter narrows post listings. A nil AuthorID means all posts.
type PostFilter struct {
	AuthorID *string
}

// PostService is a set of methods to manipulate and work with the Post model
// and its engagement state (likes and comments).
type PostService interface {
	Create(ctx context.Context, post *Post) error
	// CreateRepost builds a new post from the source post's text and image
	// reference. The source post is never mutated and no provenance link
	// is kept.
	CreateRepost(ctx context.Context, author UserSnapshot, sourcePostID int) (*Post, error)
	ByID(ctx context.Context, id int) (*Post, error)
	All(ctx context.Context, filter PostFilter) ([]Post, error)
	// Delete removes the post and its like rows. Comments are left in
	// place; see the orphaned-comments note in DESIGN.md.
	Delete(ctx context.Context, id int, requestingUserID string) (*Post, error)
	Like(ctx context.Context, postID int, userID string) error
	Unlike(ctx context.Context, postID int, userID string) error
	AddComment(ctx context.Context, postID int, author UserSnapshot, text string) ([]Comment, error)
	CommentsByPost(ctx context.Context, postID int) ([]Comment, error)
}
