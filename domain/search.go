package domain

import "context"

// UserSummary is one row of a search or directory result: the display fields
// plus whatever aggregates the query produced.
type UserSummary struct {
	UserID       string `json:"userId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName,omitempty"`
	UserImage    string `json:"userImage"`
	PostCount    int    `json:"postCount,omitempty"`
	CommentCount int    `json:"commentCount,omitempty"`
	IsFollowing  bool   `json:"isFollowing"`
}

// ProfileSummary aggregates one user's public counts. IsFollowing is only
// meaningful when the summary was requested with a viewer id.
type ProfileSummary struct {
	UserID         string `json:"userId"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName,omitempty"`
	UserImage      string `json:"userImage"`
	PostCount      int    `json:"postCount"`
	CommentCount   int    `json:"commentCount"`
	FollowersCount int    `json:"followersCount"`
	FollowingCount int    `json:"followingCount"`
	IsFollowing    bool   `json:"isFollowing"`
}

// SearchService is the read-only aggregation side of the app: name search,
// profile summaries and the member directory. No method mutates anything.
type SearchService interface {
	// SearchByName case-insensitively matches the query as a substring of
	// first or last names, across the user directory and post author
	// snapshots, deduped by user id and capped at a small fixed limit.
	SearchByName(ctx context.Context, query string) ([]UserSummary, error)
	// ProfileSummary counts posts, comments, followers and followings for
	// one user. viewerID may be empty.
	ProfileSummary(ctx context.Context, userID, viewerID string) (*ProfileSummary, error)
	// Directory lists every user who has posted, with post and comment
	// counts, flagged with whether viewerID follows them.
	Directory(ctx context.Context, viewerID string) ([]UserSummary, error)
}
