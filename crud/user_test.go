package crud

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"linkedout/database"
	"linkedout/domain"
	"linkedout/errs"
)

func TestUserService_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesOnFirstSight", func(t *testing.T) {
		us := NewUserService(newTestDB(t))
		user := domain.User{UserID: "u1", FirstName: "Ada", LastName: "Lovelace"}
		if err := us.Upsert(ctx, &user); err != nil {
			t.Fatal(err)
		}
		if user.ID == 0 {
			t.Fatal("expected a database id to be assigned")
		}
		got, err := us.ByUserID(ctx, "u1")
		if err != nil {
			t.Fatal(err)
		}
		if got.FirstName != "Ada" || got.LastName != "Lovelace" {
			t.Fatalf("unexpected record: %+v", got)
		}
	})

	t.Run("IdenticalSyncWritesNothing", func(t *testing.T) {
		us := NewUserService(newTestDB(t))
		user := domain.User{UserID: "u1", FirstName: "Ada", LastName: "Lovelace"}
		if err := us.Upsert(ctx, &user); err != nil {
			t.Fatal(err)
		}
		firstUpdatedAt := user.UpdatedAt

		again := domain.User{UserID: "u1", FirstName: "Ada", LastName: "Lovelace"}
		if err := us.Upsert(ctx, &again); err != nil {
			t.Fatal(err)
		}
		if again.ID != user.ID {
			t.Fatalf("expected the same record, got ids %d and %d", user.ID, again.ID)
		}
		if !again.UpdatedAt.Equal(firstUpdatedAt) {
			t.Fatal("expected no write for an identical sync")
		}
	})

	t.Run("ChangedFieldUpdatesInPlace", func(t *testing.T) {
		us := NewUserService(newTestDB(t))
		user := domain.User{UserID: "u1", FirstName: "Ada", UserImage: "old.png"}
		if err := us.Upsert(ctx, &user); err != nil {
			t.Fatal(err)
		}

		changed := domain.User{UserID: "u1", FirstName: "Ada", UserImage: "new.png"}
		if err := us.Upsert(ctx, &changed); err != nil {
			t.Fatal(err)
		}
		if changed.ID != user.ID {
			t.Fatal("expected the update to reuse the existing record")
		}
		got, err := us.ByUserID(ctx, "u1")
		if err != nil {
			t.Fatal(err)
		}
		if got.UserImage != "new.png" {
			t.Fatalf("expected updated image, got %q", got.UserImage)
		}
	})

	t.Run("AbsorbsConcurrentFirstSignIn", func(t *testing.T) {
		// A second sign-in for the same provider id can land between the
		// pre-check and the insert. Interpose on the create to write the
		// competing record first, so the insert hits the unique index.
		db, err := gorm.Open(sqlite.Open("file:upsert_race?mode=memory&cache=shared"), &gorm.Config{
			TranslateError:                           true,
			DisableForeignKeyConstraintWhenMigrating: true,
			SkipDefaultTransaction:                   true,
			Logger:                                   logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			t.Fatalf("opening test database: %v", err)
		}
		if err := database.Migrate(db); err != nil {
			t.Fatalf("migrating test database: %v", err)
		}
		raced := false
		err = db.Callback().Create().Before("gorm:create").Register("concurrent_signin", func(tx *gorm.DB) {
			if raced {
				return
			}
			if _, ok := tx.Statement.Dest.(*domain.User); !ok {
				return
			}
			raced = true
			err := tx.Session(&gorm.Session{NewDB: true}).
				Exec("INSERT INTO users (user_id, first_name, last_name) VALUES (?, ?, ?)",
					"u1", "Ada", "Lovelace").Error
			if err != nil {
				t.Fatalf("seeding competing record: %v", err)
			}
		})
		if err != nil {
			t.Fatal(err)
		}

		us := NewUserService(db)
		user := domain.User{UserID: "u1", FirstName: "Ada", LastName: "Lovelace"}
		if err := us.Upsert(ctx, &user); err != nil {
			t.Fatalf("expected the upsert to absorb the race, got %v", err)
		}
		if !raced {
			t.Fatal("expected the competing record to have been seeded")
		}
		if user.ID == 0 || user.FirstName != "Ada" {
			t.Fatalf("expected the winner's record back, got %+v", user)
		}
		var count int64
		if err := db.Model(&domain.User{}).Where("user_id = ?", "u1").Count(&count).Error; err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Fatalf("expected exactly one directory record, got %d", count)
		}
	})

	t.Run("RejectsMissingUserID", func(t *testing.T) {
		us := NewUserService(newTestDB(t))
		err := us.Upsert(ctx, &domain.User{FirstName: "Ada"})
		if errs.ErrorCode(err) != errs.EINVALID {
			t.Fatalf("expected invalid, got %v", err)
		}
	})
}

func TestUserService_ByUserID(t *testing.T) {
	us := NewUserService(newTestDB(t))
	_, err := us.ByUserID(context.Background(), "nobody")
	if errs.ErrorCode(err) != errs.ENOTFOUND {
		t.Fatalf("expected not found, got %v", err)
	}
}
