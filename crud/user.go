package crud

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"linkedout/domain"
	"linkedout/errs"
)

// UserService manages the user directory: one record per external identity,
// created on first sign-in and updated in place when the identity provider
// reports changed profile fields. It implements the domain.UserService
// interface.
type UserService struct {
	userValidator
}

// userValidator runs validations on incoming User data.
// On success, it passes the data on to userGorm.
type userValidator struct {
	userGorm
}

// userGorm runs CRUD operations on the database using incoming User data.
// It assumes that data has been validated.
type userGorm struct {
	db *gorm.DB
}

// NewUserService returns an instance of UserService.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{
		userValidator{
			userGorm{
				db: db,
			},
		},
	}
}

// Ensure the UserService struct properly implements the domain.UserService interface.
var _ domain.UserService = &UserService{}

// Upsert runs validations needed for syncing a provider identity into the
// directory.
func (uv *userValidator) Upsert(ctx context.Context, user *domain.User) error {
	err := runUserValFns(user,
		uv.userIdRequired,
		uv.firstNameRequired)
	if err != nil {
		return err
	}
	return uv.userGorm.Upsert(ctx, user)
}

// runUserValFns runs any number of functions of type userValFn on the passed
// in User object and returns the first error.
func runUserValFns(user *domain.User, fns ...userValFn) error {
	for _, fn := range fns {
		if err := fn(user); err != nil {
			return err
		}
	}
	return nil
}

// A userValFn is any function that takes in a pointer to a domain.User object
// and returns an error.
type userValFn func(user *domain.User) error

func (uv *userValidator) userIdRequired(user *domain.User) error {
	if user.UserID == "" {
		return errs.Errorf(errs.EINVALID, "A user id is required.")
	}
	return nil
}

func (uv *userValidator) firstNameRequired(user *domain.User) error {
	if user.FirstName == "" {
		return errs.Errorf(errs.EINVALID, "A first name is required.")
	}
	return nil
}

// Upsert creates the directory record on first sight of the provider id.
// For a known id it compares each mutable field and writes only when at least
// one differs, so repeated syncs with identical data perform no writes. The
// passed in user is left holding the current record either way.
func (ug *userGorm) Upsert(ctx context.Context, user *domain.User) error {
	var existing domain.User
	err := ug.db.WithContext(ctx).First(&existing, "user_id = ?", user.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ug.db.WithContext(ctx).Create(user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		// Lost the race against a concurrent first sign-in; continue on
		// the winner's record as if the pre-check had found it.
		err = ug.db.WithContext(ctx).First(&existing, "user_id = ?", user.UserID).Error
	}
	if err != nil {
		return err
	}

	changed := existing.FirstName != user.FirstName ||
		existing.LastName != user.LastName ||
		existing.UserImage != user.UserImage
	if changed {
		existing.FirstName = user.FirstName
		existing.LastName = user.LastName
		existing.UserImage = user.UserImage
		if err := ug.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return err
		}
	}
	*user = existing
	return nil
}

// ByUserID retrieves a directory record by its external provider id.
func (ug *userGorm) ByUserID(ctx context.Context, userID string) (*domain.User, error) {
	var user domain.User
	err := ug.db.WithContext(ctx).First(&user, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The user does not exist.")
		}
		return nil, err
	}
	return &user, nil
}
