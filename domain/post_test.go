package domain

import (
	"encoding/json"
	"testing"
)

func TestPost_LikesMarshalAsUserIDs(t *testing.T) {
	post := Post{
		ID:     1,
		Author: UserSnapshot{UserID: "u1", FirstName: "Ada"},
		Text:   "Hello world",
		Likes: []Like{
			{ID: 10, PostID: 1, UserID: "u2"},
			{ID: 11, PostID: 1, UserID: "u3"},
		},
		Comments: []Comment{},
	}

	raw, err := json.Marshal(&post)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Likes []string `json:"likes"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Likes) != 2 || decoded.Likes[0] != "u2" || decoded.Likes[1] != "u3" {
		t.Fatalf("expected the like set to render as user ids, got %v", decoded.Likes)
	}
}
