package crud

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"linkedout/domain"
	"linkedout/errs"
	"linkedout/notify"
)

// PostService manages posts and their engagement state: likes, comments and
// reposts. It implements the domain.PostService interface.
type PostService struct {
	postValidator
}

// postValidator runs validations on incoming Post data.
// On success, it passes the data on to postGorm.
type postValidator struct {
	postGorm
}

// postGorm runs CRUD operations on the database using incoming Post data.
// It assumes that data has been validated.
type postGorm struct {
	db     *gorm.DB
	events EventPublisher
}

// NewPostService returns an instance of PostService. events may be nil.
func NewPostService(db *gorm.DB, events EventPublisher) *PostService {
	return &PostService{
		postValidator{
			postGorm{
				db:     db,
				events: events,
			},
		},
	}
}

// Ensure the PostService struct properly implements the domain.PostService interface.
var _ domain.PostService = &PostService{}

// Create runs validations needed for creating new Post database records.
func (pv *postValidator) Create(ctx context.Context, post *domain.Post) error {
	err := runPostValFns(post,
		pv.authorRequired,
		pv.textRequired)
	if err != nil {
		return err
	}
	return pv.postGorm.Create(ctx, post)
}

// CreateRepost loads the source post and stores a new post derived from it.
// The source is only ever read.
func (pv *postValidator) CreateRepost(ctx context.Context, author domain.UserSnapshot, sourcePostID int) (*domain.Post, error) {
	source, err := pv.ByID(ctx, sourcePostID)
	if err != nil {
		return nil, err
	}
	repost := &domain.Post{
		Author:   author,
		Text:     domain.RepostPrefix + source.Text,
		ImageRef: source.ImageRef,
	}
	err = runPostValFns(repost,
		pv.authorRequired,
		pv.textRequired)
	if err != nil {
		return nil, err
	}
	if err := pv.postGorm.create(ctx, repost, "repost"); err != nil {
		return nil, err
	}
	return repost, nil
}

// ByID runs validations needed for retrieving a Post by its id.
func (pv *postValidator) ByID(ctx context.Context, id int) (*domain.Post, error) {
	if id < 1 {
		return nil, errs.Errorf(errs.EINVALID, "Invalid post id.")
	}
	return pv.postGorm.ByID(ctx, id)
}

// Delete runs validations needed for deleting an existing Post.
func (pv *postValidator) Delete(ctx context.Context, id int, requestingUserID string) (*domain.Post, error) {
	if id < 1 {
		return nil, errs.Errorf(errs.EINVALID, "Invalid post id.")
	}
	if requestingUserID == "" {
		return nil, errs.Errorf(errs.EINVALID, "A requesting user id is required.")
	}
	return pv.postGorm.Delete(ctx, id, requestingUserID)
}

// Like runs validations needed for adding a user to a post's like set.
func (pv *postValidator) Like(ctx context.Context, postID int, userID string) error {
	if userID == "" {
		return errs.Errorf(errs.EINVALID, "A user id is required.")
	}
	return pv.postGorm.Like(ctx, postID, userID)
}

// Unlike runs validations needed for removing a user from a post's like set.
func (pv *postValidator) Unlike(ctx context.Context, postID int, userID string) error {
	if userID == "" {
		return errs.Errorf(errs.EINVALID, "A user id is required.")
	}
	return pv.postGorm.Unlike(ctx, postID, userID)
}

// AddComment runs validations needed for commenting on a post.
func (pv *postValidator) AddComment(ctx context.Context, postID int, author domain.UserSnapshot, text string) ([]domain.Comment, error) {
	if author.UserID == "" {
		return nil, errs.Errorf(errs.EINVALID, "An author is required.")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errs.Errorf(errs.EINVALID, "Comment text must not be empty.")
	}
	return pv.postGorm.AddComment(ctx, postID, author, text)
}

// runPostValFns runs any number of functions of type postValFn on the passed
// in Post object and returns the first error.
func runPostValFns(post *domain.Post, fns ...postValFn) error {
	for _, fn := range fns {
		if err := fn(post); err != nil {
			return err
		}
	}
	return nil
}

// A postValFn is any function that takes in a pointer to a domain.Post object
// and returns an error.
type postValFn func(post *domain.Post) error

// authorRequired makes sure the author snapshot carries a user id.
func (pv *postValidator) authorRequired(post *domain.Post) error {
	if post.Author.UserID == "" {
		return errs.Errorf(errs.EINVALID, "An author is required.")
	}
	return nil
}

// textRequired makes sure the post text is not blank.
func (pv *postValidator) textRequired(post *domain.Post) error {
	if strings.TrimSpace(post.Text) == "" {
		return errs.Errorf(errs.EINVALID, "Post text must not be empty.")
	}
	return nil
}

// withEngagement preloads a post query with its like set and its comments,
// comments newest-first. The id tiebreak keeps the order stable when two
// writes land in the same timestamp tick.
func withEngagement(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		Preload("Likes")
}

// Create stores the data from the Post object in a new database record.
// New posts start with an empty comment list and an empty like set.
func (pg *postGorm) Create(ctx context.Context, post *domain.Post) error {
	return pg.create(ctx, post, "post")
}

// create writes the post and publishes exactly one event of the given type,
// so a repost doesn't double up as a "post" event.
func (pg *postGorm) create(ctx context.Context, post *domain.Post, eventType string) error {
	post.Comments = []domain.Comment{}
	post.Likes = []domain.Like{}
	if err := pg.db.WithContext(ctx).Create(post).Error; err != nil {
		return err
	}
	pg.publish(ctx, notify.Event{
		Type:   eventType,
		Actor:  post.Author.UserID,
		PostID: post.ID,
	})
	return nil
}

// publish guards against an unset publisher.
func (pg *postGorm) publish(ctx context.Context, event notify.Event) {
	if pg.events != nil {
		pg.events.Publish(ctx, event)
	}
}

// ByID retrieves a single Post with its engagement state populated.
func (pg *postGorm) ByID(ctx context.Context, id int) (*domain.Post, error) {
	var post domain.Post
	err := withEngagement(pg.db.WithContext(ctx)).First(&post, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The post does not exist.")
		}
		return nil, err
	}
	return &post, nil
}

// All retrieves posts newest-first, optionally filtered to one author.
func (pg *postGorm) All(ctx context.Context, filter domain.PostFilter) ([]domain.Post, error) {
	posts := []domain.Post{}
	db := withEngagement(pg.db.WithContext(ctx)).Order("created_at DESC, id DESC")
	if filter.AuthorID != nil {
		db = db.Where("author_user_id = ?", *filter.AuthorID)
	}
	if err := db.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// Delete removes a post and its like rows after checking that the requesting
// user owns it. Comments stay behind on purpose; deleting the image blob is
// the caller's (best-effort) concern, which is why the deleted post is
// returned with its image reference intact. The reference is blanked when
// another post, typically a repost, still points at the same blob, so the
// caller won't pull the image out from under it.
func (pg *postGorm) Delete(ctx context.Context, id int, requestingUserID string) (*domain.Post, error) {
	post, err := pg.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Author.UserID != requestingUserID {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "You are not allowed to delete this post.")
	}
	err = pg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.Post{}, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Like{}, "post_id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	if post.ImageRef != "" {
		var refs int64
		err := pg.db.WithContext(ctx).Model(&domain.Post{}).
			Where("image_ref = ?", post.ImageRef).
			Count(&refs).Error
		if err != nil {
			return nil, err
		}
		if refs > 0 {
			post.ImageRef = ""
		}
	}
	return post, nil
}

// Like adds the user to the post's like set. Re-liking is a no-op: the insert
// runs as a conditional write against the (post_id, user_id) unique index, so
// concurrent duplicates collapse instead of erroring.
func (pg *postGorm) Like(ctx context.Context, postID int, userID string) error {
	if err := pg.postExists(ctx, postID); err != nil {
		return err
	}
	like := domain.Like{PostID: postID, UserID: userID}
	err := pg.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&like).Error
	if err != nil {
		return err
	}
	pg.publish(ctx, notify.Event{
		Type:   "like",
		Actor:  userID,
		PostID: postID,
	})
	return nil
}

// Unlike removes the user from the post's like set. Removing an absent member
// succeeds without error.
func (pg *postGorm) Unlike(ctx context.Context, postID int, userID string) error {
	if err := pg.postExists(ctx, postID); err != nil {
		return err
	}
	return pg.db.WithContext(ctx).
		Delete(&domain.Like{}, "post_id = ? AND user_id = ?", postID, userID).Error
}

// AddComment appends a comment to the post and returns the updated comment
// list, newest-first.
func (pg *postGorm) AddComment(ctx context.Context, postID int, author domain.UserSnapshot, text string) ([]domain.Comment, error) {
	if err := pg.postExists(ctx, postID); err != nil {
		return nil, err
	}
	comment := domain.Comment{
		PostID: postID,
		Author: author,
		Text:   text,
	}
	if err := pg.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, err
	}
	pg.publish(ctx, notify.Event{
		Type:   "comment",
		Actor:  author.UserID,
		PostID: postID,
	})
	return pg.CommentsByPost(ctx, postID)
}

// CommentsByPost retrieves a post's comments newest-first.
func (pg *postGorm) CommentsByPost(ctx context.Context, postID int) ([]domain.Comment, error) {
	if err := pg.postExists(ctx, postID); err != nil {
		return nil, err
	}
	comments := []domain.Comment{}
	err := pg.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// postExists is a cheap existence check shared by the engagement operations.
func (pg *postGorm) postExists(ctx context.Context, postID int) error {
	if postID < 1 {
		return errs.Errorf(errs.EINVALID, "Invalid post id.")
	}
	var count int64
	err := pg.db.WithContext(ctx).Model(&domain.Post{}).Where("id = ?", postID).Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return errs.Errorf(errs.ENOTFOUND, "The post does not exist.")
	}
	return nil
}
