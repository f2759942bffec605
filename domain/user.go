package domain

import (
	"context"
	"time"
)

// User is a directory record for one external identity. UserID is the stable
// id assigned by the identity provider and is the permanent join key across
// posts, comments and follows. FirstName, LastName and UserImage are mutable
// and mirror whatever the provider last reported.
type User struct {
	ID        int    `json:"-" gorm:"primaryKey"`
	UserID    string `json:"userId" gorm:"uniqueIndex;not null"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	UserImage string `json:"userImage"`
	Email     string `json:"email,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns the user's display fields as an embeddable snapshot.
func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{
		UserID:    u.UserID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		UserImage: u.UserImage,
	}
}

// UserSnapshot is a denormalized, point-in-time copy of a user's display
// fields, embedded by value in posts, comments and follow edges. Directory
// updates after the embedding write do not propagate; that staleness is the
// price of rendering feeds without joins.
type UserSnapshot struct {
	UserID    string `json:"userId" gorm:"index;not null"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	UserImage string `json:"userImage"`
}

// UserService is a set of methods to manipulate and work with the User model.
type UserService interface {
	// Upsert creates the record on first sight of UserID and otherwise
	// writes only when a mutable field actually changed. Calling it twice
	// with identical data performs at most one write.
	Upsert(ctx context.Context, user *User) error
	ByUserID(ctx context.Context, userID string) (*User, error)
}
