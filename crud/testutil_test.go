package crud

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"linkedout/database"
	"linkedout/domain"
	"linkedout/notify"
)

// newTestDB opens an in-memory sqlite database with the same gorm settings as
// the production Postgres connection and runs the full migration.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

// eventRecorder captures published engagement events for assertions.
type eventRecorder struct {
	events []notify.Event
}

func (r *eventRecorder) Publish(_ context.Context, event notify.Event) {
	r.events = append(r.events, event)
}

// snapshot builds a user snapshot for tests.
func snapshot(userID, firstName string) domain.UserSnapshot {
	return domain.UserSnapshot{
		UserID:    userID,
		FirstName: firstName,
		LastName:  "Tester",
		UserImage: "https://img.example/" + userID + ".png",
	}
}
