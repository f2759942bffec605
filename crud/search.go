package crud

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"linkedout/domain"
	"linkedout/errs"
)

const (
	// searchResultLimit caps how many profiles a name search returns.
	searchResultLimit = 5
	// searchCacheTTL bounds how long a cached search result is served.
	searchCacheTTL = 5 * time.Minute
)

// SearchService serves the read-only aggregation queries: name search, profile
// summaries and the member directory. Search results are cached by query
// string in Redis for a short TTL; the cache is an optimization, not a
// correctness requirement, and every cache failure degrades to a plain
// database query. It implements the domain.SearchService interface.
type SearchService struct {
	db    *gorm.DB
	cache *redis.Client
}

// NewSearchService returns an instance of SearchService. cache may be nil.
func NewSearchService(db *gorm.DB, cache *redis.Client) *SearchService {
	return &SearchService{
		db:    db,
		cache: cache,
	}
}

// Ensure the SearchService struct properly implements the domain.SearchService interface.
var _ domain.SearchService = &SearchService{}

// SearchByName case-insensitively matches the query as a substring of first or
// last names, across the user directory and post author snapshots. Results are
// merged, deduped by user id and capped at searchResultLimit.
func (ss *SearchService) SearchByName(ctx context.Context, query string) ([]domain.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.Errorf(errs.EINVALID, "A search query is required.")
	}

	cacheKey := "search:" + strings.ToLower(query)
	if cached, ok := ss.cacheGet(ctx, cacheKey); ok {
		return cached, nil
	}

	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	var directory []domain.UserSummary
	err := ss.db.WithContext(ctx).Model(&domain.User{}).
		Select("user_id, first_name, last_name, user_image").
		Where(`LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Limit(searchResultLimit).
		Scan(&directory).Error
	if err != nil {
		return nil, err
	}

	var authors []domain.UserSummary
	err = ss.db.WithContext(ctx).Model(&domain.Post{}).
		Select("author_user_id AS user_id, MAX(author_first_name) AS first_name, MAX(author_last_name) AS last_name, MAX(author_user_image) AS user_image").
		Where(`LOWER(author_first_name) LIKE ? ESCAPE '\' OR LOWER(author_last_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Group("author_user_id").
		Limit(searchResultLimit).
		Scan(&authors).Error
	if err != nil {
		return nil, err
	}

	merged := []domain.UserSummary{}
	seen := map[string]bool{}
	for _, u := range append(directory, authors...) {
		if seen[u.UserID] {
			continue
		}
		seen[u.UserID] = true
		merged = append(merged, u)
		if len(merged) == searchResultLimit {
			break
		}
	}

	ss.cacheSet(ctx, cacheKey, merged)
	return merged, nil
}

// ProfileSummary aggregates one user's public counts. The comment count covers
// every comment the user authored, regardless of which post it sits on. When
// viewerID is non-empty the summary also reports whether the viewer follows
// this user.
func (ss *SearchService) ProfileSummary(ctx context.Context, userID, viewerID string) (*domain.ProfileSummary, error) {
	if userID == "" {
		return nil, errs.Errorf(errs.EINVALID, "A user id is required.")
	}

	snapshot, err := ss.displayFields(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := &domain.ProfileSummary{
		UserID:    userID,
		FirstName: snapshot.FirstName,
		LastName:  snapshot.LastName,
		UserImage: snapshot.UserImage,
	}

	db := ss.db.WithContext(ctx)
	var count int64
	if err := db.Model(&domain.Post{}).Where("author_user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}
	summary.PostCount = int(count)

	if err := db.Model(&domain.Comment{}).Where("author_user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}
	summary.CommentCount = int(count)

	if err := db.Model(&domain.Follow{}).Where("following_user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}
	summary.FollowersCount = int(count)

	if err := db.Model(&domain.Follow{}).Where("follower_user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}
	summary.FollowingCount = int(count)

	if viewerID != "" && viewerID != userID {
		err := db.Model(&domain.Follow{}).
			Where("follower_user_id = ? AND following_user_id = ?", viewerID, userID).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		summary.IsFollowing = count > 0
	}
	return summary, nil
}

// Directory lists every user who has posted, with their post count and the
// number of comments sitting on their posts, flagged with whether the viewer
// follows them.
func (ss *SearchService) Directory(ctx context.Context, viewerID string) ([]domain.UserSummary, error) {
	users := []domain.UserSummary{}
	err := ss.db.WithContext(ctx).Model(&domain.Post{}).
		Select("author_user_id AS user_id, MAX(author_first_name) AS first_name, MAX(author_last_name) AS last_name, MAX(author_user_image) AS user_image, COUNT(*) AS post_count").
		Group("author_user_id").
		Scan(&users).Error
	if err != nil {
		return nil, err
	}

	type commentRow struct {
		UserID string
		Count  int
	}
	var commentRows []commentRow
	err = ss.db.WithContext(ctx).Model(&domain.Comment{}).
		Select("posts.author_user_id AS user_id, COUNT(comments.id) AS count").
		Joins("JOIN posts ON posts.id = comments.post_id").
		Group("posts.author_user_id").
		Scan(&commentRows).Error
	if err != nil {
		return nil, err
	}
	commentCounts := map[string]int{}
	for _, row := range commentRows {
		commentCounts[row.UserID] = row.Count
	}

	followed := map[string]bool{}
	if viewerID != "" {
		var followingIDs []string
		err := ss.db.WithContext(ctx).Model(&domain.Follow{}).
			Where("follower_user_id = ?", viewerID).
			Pluck("following_user_id", &followingIDs).Error
		if err != nil {
			return nil, err
		}
		for _, id := range followingIDs {
			followed[id] = true
		}
	}

	for i := range users {
		users[i].CommentCount = commentCounts[users[i].UserID]
		users[i].IsFollowing = followed[users[i].UserID]
	}
	return users, nil
}

// displayFields resolves a user's display fields, preferring the directory and
// falling back to the freshest post snapshot for users that predate it.
func (ss *SearchService) displayFields(ctx context.Context, userID string) (*domain.UserSnapshot, error) {
	var user domain.User
	err := ss.db.WithContext(ctx).First(&user, "user_id = ?", userID).Error
	if err == nil {
		snapshot := user.Snapshot()
		return &snapshot, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var post domain.Post
	err = ss.db.WithContext(ctx).
		Where("author_user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The user does not exist.")
		}
		return nil, err
	}
	return &post.Author, nil
}

// escapeLike escapes LIKE metacharacters so the query matches as a literal
// substring instead of acting as a wildcard pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// cacheGet returns a cached search result. Any cache error reads as a miss.
func (ss *SearchService) cacheGet(ctx context.Context, key string) ([]domain.UserSummary, bool) {
	if ss.cache == nil {
		return nil, false
	}
	raw, err := ss.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("search cache read failed", "key", key, "err", err)
		}
		return nil, false
	}
	var cached []domain.UserSummary
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, false
	}
	return cached, true
}

// cacheSet stores a search result with the bounded TTL, best-effort.
func (ss *SearchService) cacheSet(ctx context.Context, key string, result []domain.UserSummary) {
	if ss.cache == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := ss.cache.Set(ctx, key, raw, searchCacheTTL).Err(); err != nil {
		slog.Warn("search cache write failed", "key", key, "err", err)
	}
}
