package domain

import (
	"context"
	"time"
)

// Follow is a directed edge meaning "follower follows following". Both sides
// are embedded snapshots, so the edge renders without directory lookups. At
// most one edge may exist per (follower id, following id) pair; the composite
// unique index created in database.Open is the authoritative guard.
type Follow struct {
	ID        int          `json:"id" gorm:"primaryKey"`
	Follower  UserSnapshot `json:"follower" gorm:"embedded;embeddedPrefix:follower_"`
	Following UserSnapshot `json:"following" gorm:"embedded;embeddedPrefix:following_"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FollowService is a set of methods to manipulate and work with the Follow model.
type FollowService interface {
	Create(ctx context.Context, follow *Follow) error
	Delete(ctx context.Context, followerID, followingID string) error
	// Followers returns the follower-side snapshots of every edge pointing
	// at userID; Following returns the following-side snapshots of every
	// edge leaving userID.
	Followers(ctx context.Context, userID string) ([]UserSnapshot, error)
	Following(ctx context.Context, userID string) ([]UserSnapshot, error)
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	CountFollowers(ctx context.Context, userID string) (int, error)
	CountFollowing(ctx context.Context, userID string) (int, error)
}
