package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"linkedout/domain"
)

// DB wraps the gorm connection handle.
type DB struct {
	Gorm *gorm.DB

	DSN string
}

// NewDB returns an unopened DB for the given data source name.
func NewDB(dsn string) *DB {
	return &DB{
		DSN: dsn,
	}
}

// Open connects to Postgres and migrates the schema. TranslateError is on so
// that unique-index violations surface as gorm.ErrDuplicatedKey, which the
// crud layer turns into Conflict errors. Foreign key constraints are not
// created: deleting a post deliberately leaves its comments in place.
func Open(db *DB, logSQL bool) (err error) {
	if db.DSN == "" {
		return fmt.Errorf("dsn required")
	}
	cfg := &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	}
	if logSQL {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}
	db.Gorm, err = gorm.Open(postgres.Open(db.DSN), cfg)
	if err != nil {
		return fmt.Errorf("err opening gorm postgres connection: %w", err)
	}
	return Migrate(db.Gorm)
}

// Migrate creates or updates all tables and the composite unique indexes that
// back the follow-edge and like-set invariants.
func Migrate(g *gorm.DB) error {
	err := g.AutoMigrate(
		&domain.User{},
		&domain.Post{},
		&domain.Comment{},
		&domain.Like{},
		&domain.Follow{},
	)
	if err != nil {
		return fmt.Errorf("err migrating: %w", err)
	}
	// The pair index cannot be expressed as a tag on the embedded snapshot
	// fields, so it is created by hand. It is the authoritative guard for
	// "at most one follow edge per (follower, following) pair".
	err = g.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_follows_pair ON follows (follower_user_id, following_user_id)",
	).Error
	if err != nil {
		return fmt.Errorf("err creating follow pair index: %w", err)
	}
	return nil
}

// Close closes the underlying sql connection.
func Close(db *DB) error {
	if db.Gorm == nil {
		return nil
	}
	sqlDB, err := db.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
