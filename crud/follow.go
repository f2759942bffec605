package crud

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"linkedout/domain"
	"linkedout/errs"
	"linkedout/notify"
)

// FollowService manages directed follow edges between users.
// It implements the domain.FollowService interface.
type FollowService struct {
	followValidator
}

// followValidator runs validations on incoming Follow data.
// On success, it passes the data on to followGorm.
type followValidator struct {
	followGorm
}

// followGorm runs CRUD operations on the database using incoming Follow data.
// It assumes that data has been validated.
type followGorm struct {
	db     *gorm.DB
	events EventPublisher
}

// NewFollowService returns an instance of FollowService. events may be nil.
func NewFollowService(db *gorm.DB, events EventPublisher) *FollowService {
	return &FollowService{
		followValidator{
			followGorm{
				db:     db,
				events: events,
			},
		},
	}
}

// Ensure the FollowService struct properly implements the domain.FollowService interface.
var _ domain.FollowService = &FollowService{}

// Create runs validations needed for creating a new follow edge.
func (fv *followValidator) Create(ctx context.Context, follow *domain.Follow) error {
	err := runFollowValFns(follow,
		fv.snapshotsRequired,
		fv.followingIsNotFollower)
	if err != nil {
		return err
	}
	if err := fv.notAlreadyFollowing(ctx, follow); err != nil {
		return err
	}
	return fv.followGorm.Create(ctx, follow)
}

// Delete runs validations needed for removing a follow edge.
func (fv *followValidator) Delete(ctx context.Context, followerID, followingID string) error {
	if followerID == "" || followingID == "" {
		return errs.Errorf(errs.EINVALID, "Follower and following ids are required.")
	}
	return fv.followGorm.Delete(ctx, followerID, followingID)
}

// runFollowValFns runs any number of functions of type followValFn on the
// passed in Follow object and returns the first error.
func runFollowValFns(follow *domain.Follow, fns ...followValFn) error {
	for _, fn := range fns {
		if err := fn(follow); err != nil {
			return err
		}
	}
	return nil
}

// A followValFn is any function that takes in a pointer to a domain.Follow
// object and returns an error.
type followValFn func(follow *domain.Follow) error

// snapshotsRequired makes sure both sides of the edge carry a user id.
func (fv *followValidator) snapshotsRequired(follow *domain.Follow) error {
	if follow.Follower.UserID == "" || follow.Following.UserID == "" {
		return errs.Errorf(errs.EINVALID, "Follower and following ids are required.")
	}
	return nil
}

// followingIsNotFollower makes sure a user cannot follow themselves.
func (fv *followValidator) followingIsNotFollower(follow *domain.Follow) error {
	if follow.Follower.UserID == follow.Following.UserID {
		return errs.Errorf(errs.EINVALID, "You cannot follow yourself.")
	}
	return nil
}

// notAlreadyFollowing reports a friendly Conflict when the edge exists. The
// unique pair index remains the authoritative guard underneath, so two
// concurrent requests that both pass this check still produce only one edge.
func (fv *followValidator) notAlreadyFollowing(ctx context.Context, follow *domain.Follow) error {
	var existing domain.Follow
	err := fv.db.WithContext(ctx).
		First(&existing, "follower_user_id = ? AND following_user_id = ?",
			follow.Follower.UserID, follow.Following.UserID).Error
	if err == nil {
		return errs.Errorf(errs.ECONFLICT, "You already follow this user.")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

// Create stores the edge. A duplicate-key error from the pair index is
// translated to the same Conflict the validator would have reported.
func (fg *followGorm) Create(ctx context.Context, follow *domain.Follow) error {
	err := fg.db.WithContext(ctx).Create(follow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.Errorf(errs.ECONFLICT, "You already follow this user.")
		}
		return err
	}
	if fg.events != nil {
		fg.events.Publish(ctx, notify.Event{
			Type:    "follow",
			Actor:   follow.Follower.UserID,
			Subject: follow.Following.UserID,
		})
	}
	return nil
}

// Delete removes the edge for the given pair, reporting NotFound when none
// exists.
func (fg *followGorm) Delete(ctx context.Context, followerID, followingID string) error {
	res := fg.db.WithContext(ctx).
		Delete(&domain.Follow{}, "follower_user_id = ? AND following_user_id = ?", followerID, followingID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.Errorf(errs.ENOTFOUND, "You don't follow this user.")
	}
	return nil
}

// Followers returns the follower-side snapshot of every edge pointing at the
// given user.
func (fg *followGorm) Followers(ctx context.Context, userID string) ([]domain.UserSnapshot, error) {
	var follows []domain.Follow
	err := fg.db.WithContext(ctx).
		Where("following_user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&follows).Error
	if err != nil {
		return nil, err
	}
	snapshots := make([]domain.UserSnapshot, len(follows))
	for i, f := range follows {
		snapshots[i] = f.Follower
	}
	return snapshots, nil
}

// Following returns the following-side snapshot of every edge leaving the
// given user.
func (fg *followGorm) Following(ctx context.Context, userID string) ([]domain.UserSnapshot, error) {
	var follows []domain.Follow
	err := fg.db.WithContext(ctx).
		Where("follower_user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&follows).Error
	if err != nil {
		return nil, err
	}
	snapshots := make([]domain.UserSnapshot, len(follows))
	for i, f := range follows {
		snapshots[i] = f.Following
	}
	return snapshots, nil
}

// IsFollowing reports whether an edge exists for the given pair.
func (fg *followGorm) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := fg.db.WithContext(ctx).Model(&domain.Follow{}).
		Where("follower_user_id = ? AND following_user_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountFollowers counts edges pointing at the given user.
func (fg *followGorm) CountFollowers(ctx context.Context, userID string) (int, error) {
	var count int64
	err := fg.db.WithContext(ctx).Model(&domain.Follow{}).
		Where("following_user_id = ?", userID).
		Count(&count).Error
	return int(count), err
}

// CountFollowing counts edges leaving the given user.
func (fg *followGorm) CountFollowing(ctx context.Context, userID string) (int, error) {
	var count int64
	err := fg.db.WithContext(ctx).Model(&domain.Follow{}).
		Where("follower_user_id = ?", userID).
		Count(&count).Error
	return int(count), err
}
