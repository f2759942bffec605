package crud

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"linkedout/domain"
	"linkedout/errs"
)

// seedUser writes a directory record directly, bypassing the service layer.
func seedUser(t *testing.T, db *gorm.DB, userID, firstName, lastName string) {
	t.Helper()
	user := domain.User{UserID: userID, FirstName: firstName, LastName: lastName}
	if err := db.Create(&user).Error; err != nil {
		t.Fatal(err)
	}
}

func TestSearchService_SearchByName(t *testing.T) {
	ctx := context.Background()

	t.Run("MatchesCaseInsensitively", func(t *testing.T) {
		db := newTestDB(t)
		ss := NewSearchService(db, nil)
		seedUser(t, db, "u1", "Ada", "Lovelace")
		seedUser(t, db, "u2", "Grace", "Hopper")

		results, err := ss.SearchByName(ctx, "aDa")
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 || results[0].UserID != "u1" {
			t.Fatalf("unexpected results: %+v", results)
		}
	})

	t.Run("MatchesLastNames", func(t *testing.T) {
		db := newTestDB(t)
		ss := NewSearchService(db, nil)
		seedUser(t, db, "u1", "Ada", "Lovelace")

		results, err := ss.SearchByName(ctx, "love")
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 || results[0].UserID != "u1" {
			t.Fatalf("unexpected results: %+v", results)
		}
	})

	t.Run("DedupesDirectoryAndAuthors", func(t *testing.T) {
		db := newTestDB(t)
		ss := NewSearchService(db, nil)
		ps := NewPostService(db, nil)
		seedUser(t, db, "u1", "Ada", "Lovelace")
		for _, text := range []string{"one", "two"} {
			post := domain.Post{Author: snapshot("u1", "Ada"), Text: text}
			if err := ps.Create(ctx, &post); err != nil {
				t.Fatal(err)
			}
		}

		results, err := ss.SearchByName(ctx, "ada")
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 {
			t.Fatalf("expected one deduped result, got %+v", results)
		}
	})

	t.Run("CapsResults", func(t *testing.T) {
		db := newTestDB(t)
		ss := NewSearchService(db, nil)
		for _, id := range []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7"} {
			seedUser(t, db, id, "Ada", "Number"+id)
		}

		results, err := ss.SearchByName(ctx, "ada")
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != searchResultLimit {
			t.Fatalf("expected %d results, got %d", searchResultLimit, len(results))
		}
	})

	t.Run("WildcardsMatchLiterally", func(t *testing.T) {
		db := newTestDB(t)
		ss := NewSearchService(db, nil)
		seedUser(t, db, "u1", "Ada", "Lovelace")
		seedUser(t, db, "u2", "100%", "Proof")
		seedUser(t, db, "u3", "A_B", "Tester")

		results, err := ss.SearchByName(ctx, "%")
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 || results[0].UserID != "u2" {
			t.Fatalf("expected %%-query to match only the literal name, got %+v", results)
		}

		results, err = ss.SearchByName(ctx, "_")
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 || results[0].UserID != "u3" {
			t.Fatalf("expected _-query to match only the literal name, got %+v", results)
		}
	})

	t.Run("RejectsBlankQuery", func(t *testing.T) {
		ss := NewSearchService(newTestDB(t), nil)
		_, err := ss.SearchByName(ctx, "   ")
		if errs.ErrorCode(err) != errs.EINVALID {
			t.Fatalf("expected invalid, got %v", err)
		}
	})
}

func TestSearchService_ProfileSummary(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	ss := NewSearchService(db, nil)
	ps := NewPostService(db, nil)
	fs := NewFollowService(db, nil)
	seedUser(t, db, "u1", "Ada", "Lovelace")
	seedUser(t, db, "u2", "Grace", "Hopper")

	post := domain.Post{Author: snapshot("u1", "Ada"), Text: "Hello world"}
	if err := ps.Create(ctx, &post); err != nil {
		t.Fatal(err)
	}
	other := domain.Post{Author: snapshot("u2", "Grace"), Text: "from grace"}
	if err := ps.Create(ctx, &other); err != nil {
		t.Fatal(err)
	}
	if _, err := ps.AddComment(ctx, other.ID, snapshot("u1", "Ada"), "hi grace"); err != nil {
		t.Fatal(err)
	}
	follow := domain.Follow{Follower: snapshot("u2", "Grace"), Following: snapshot("u1", "Ada")}
	if err := fs.Create(ctx, &follow); err != nil {
		t.Fatal(err)
	}

	t.Run("Counts", func(t *testing.T) {
		summary, err := ss.ProfileSummary(ctx, "u1", "")
		if err != nil {
			t.Fatal(err)
		}
		if summary.PostCount != 1 {
			t.Fatalf("expected 1 post, got %d", summary.PostCount)
		}
		if summary.CommentCount != 1 {
			t.Fatalf("expected 1 comment, got %d", summary.CommentCount)
		}
		if summary.FollowersCount != 1 || summary.FollowingCount != 0 {
			t.Fatalf("expected followers 1 / following 0, got %d/%d", summary.FollowersCount, summary.FollowingCount)
		}
		if summary.FirstName != "Ada" || summary.LastName != "Lovelace" {
			t.Fatalf("unexpected display fields: %+v", summary)
		}
	})

	t.Run("ViewerFollowState", func(t *testing.T) {
		summary, err := ss.ProfileSummary(ctx, "u1", "u2")
		if err != nil {
			t.Fatal(err)
		}
		if !summary.IsFollowing {
			t.Fatal("expected the viewer to be reported as following")
		}
		summary, err = ss.ProfileSummary(ctx, "u2", "u1")
		if err != nil {
			t.Fatal(err)
		}
		if summary.IsFollowing {
			t.Fatal("expected the viewer to be reported as not following")
		}
	})

	t.Run("FallsBackToPostSnapshot", func(t *testing.T) {
		// u3 has posted but never synced into the directory.
		legacy := domain.Post{Author: snapshot("u3", "Edsger"), Text: "go to considered harmful"}
		if err := ps.Create(ctx, &legacy); err != nil {
			t.Fatal(err)
		}
		summary, err := ss.ProfileSummary(ctx, "u3", "")
		if err != nil {
			t.Fatal(err)
		}
		if summary.FirstName != "Edsger" {
			t.Fatalf("expected display fields from the post snapshot, got %+v", summary)
		}
	})

	t.Run("UnknownUser", func(t *testing.T) {
		_, err := ss.ProfileSummary(ctx, "nobody", "")
		if errs.ErrorCode(err) != errs.ENOTFOUND {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestSearchService_Directory(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	ss := NewSearchService(db, nil)
	ps := NewPostService(db, nil)
	fs := NewFollowService(db, nil)

	for _, text := range []string{"one", "two"} {
		post := domain.Post{Author: snapshot("u1", "Ada"), Text: text}
		if err := ps.Create(ctx, &post); err != nil {
			t.Fatal(err)
		}
	}
	post := domain.Post{Author: snapshot("u2", "Grace"), Text: "hello"}
	if err := ps.Create(ctx, &post); err != nil {
		t.Fatal(err)
	}
	if _, err := ps.AddComment(ctx, post.ID, snapshot("u1", "Ada"), "hi"); err != nil {
		t.Fatal(err)
	}
	follow := domain.Follow{Follower: snapshot("u3", "Edsger"), Following: snapshot("u1", "Ada")}
	if err := fs.Create(ctx, &follow); err != nil {
		t.Fatal(err)
	}

	users, err := ss.Directory(ctx, "u3")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 directory rows, got %d", len(users))
	}
	byID := map[string]domain.UserSummary{}
	for _, u := range users {
		byID[u.UserID] = u
	}
	if byID["u1"].PostCount != 2 || byID["u2"].PostCount != 1 {
		t.Fatalf("unexpected post counts: %+v", byID)
	}
	if byID["u2"].CommentCount != 1 {
		t.Fatalf("expected one comment on u2's posts, got %d", byID["u2"].CommentCount)
	}
	if !byID["u1"].IsFollowing || byID["u2"].IsFollowing {
		t.Fatalf("unexpected follow flags: %+v", byID)
	}
}
