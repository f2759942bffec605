package crud

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"linkedout/notify"
)

// An EventPublisher receives an engagement event after a successful mutation.
// *notify.Publisher is the production implementation; tests substitute a
// recorder.
type EventPublisher interface {
	Publish(ctx context.Context, event notify.Event)
}

// A ServicesConfig is any function that takes in a pointer to a Services
// object and returns an error. It wraps the constructor of a crud service so
// that main.go can assemble Services with functional options.
type ServicesConfig func(*Services) error

// Services is a container object holding pointers to all the crud services.
// The crud services all share the database connection provided by Services.
type Services struct {
	db     *gorm.DB
	User   *UserService
	Post   *PostService
	Follow *FollowService
	Search *SearchService
}

// NewServices returns a new Services object, containing any crud services
// it's told to create by one of the passed in ServicesConfig functions.
func NewServices(db *gorm.DB, cfgs ...ServicesConfig) (*Services, error) {
	s := Services{
		db: db,
	}
	for _, cfg := range cfgs {
		if err := cfg(&s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// WithUser wraps the constructor of UserService.
func WithUser() ServicesConfig {
	return func(s *Services) error {
		s.User = NewUserService(s.db)
		return nil
	}
}

// WithPost wraps the constructor of PostService. events may be nil.
func WithPost(events EventPublisher) ServicesConfig {
	return func(s *Services) error {
		s.Post = NewPostService(s.db, events)
		return nil
	}
}

// WithFollow wraps the constructor of FollowService. events may be nil.
func WithFollow(events EventPublisher) ServicesConfig {
	return func(s *Services) error {
		s.Follow = NewFollowService(s.db, events)
		return nil
	}
}

// WithSearch wraps the constructor of SearchService. cache may be nil, in
// which case every search goes straight to the database.
func WithSearch(cache *redis.Client) ServicesConfig {
	return func(s *Services) error {
		s.Search = NewSearchService(s.db, cache)
		return nil
	}
}
