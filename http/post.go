package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"linkedout/auth"
	"linkedout/domain"
	"linkedout/errs"
)

func (s *Server) registerPostRoutes(r *mux.Router) {
	r.HandleFunc("/api/posts", s.requireAuth(s.handleCreatePost)).Methods("POST")
	r.HandleFunc("/api/posts", s.handleListPosts).Methods("GET")
	r.HandleFunc("/api/posts/{post_id:[0-9]+}", s.handleGetPost).Methods("GET")
	r.HandleFunc("/api/posts/{post_id:[0-9]+}", s.requireAuth(s.handleDeletePost)).Methods("DELETE")
	r.HandleFunc("/api/posts/{post_id:[0-9]+}/like", s.requireAuth(s.handleLikePost)).Methods("POST")
	r.HandleFunc("/api/posts/{post_id:[0-9]+}/unlike", s.requireAuth(s.handleUnlikePost)).Methods("POST")
	r.HandleFunc("/api/posts/{post_id:[0-9]+}/comments", s.handleListComments).Methods("GET")
	r.HandleFunc("/api/posts/{post_id:[0-9]+}/comments", s.requireAuth(s.handleAddComment)).Methods("POST")
}

// handleCreatePost handles the route "POST /api/posts".
// A body carrying a repost_id produces a repost of that post; anything else
// creates a regular post from text and an optional image reference.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text     string `json:"text"`
		ImageRef string `json:"imageRef"`
		RepostID int    `json:"repost_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}

	author := auth.GetUser(r.Context()).Snapshot()

	var post *domain.Post
	if body.RepostID > 0 {
		repost, err := s.ps.CreateRepost(r.Context(), author, body.RepostID)
		if err != nil {
			errs.ReturnError(w, r, err)
			return
		}
		post = repost
	} else {
		post = &domain.Post{
			Author:   author,
			Text:     body.Text,
			ImageRef: body.ImageRef,
		}
		if err := s.ps.Create(r.Context(), post); err != nil {
			errs.ReturnError(w, r, err)
			return
		}
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(post); err != nil {
		errs.LogError(r, err)
	}
}

// handleListPosts handles the route "GET /api/posts".
// Posts come back newest-first, optionally filtered to one author via the
// user_id query parameter.
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	var filter domain.PostFilter
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		filter.AuthorID = &userID
	}
	posts, err := s.ps.All(r.Context(), filter)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(posts); err != nil {
		errs.LogError(r, err)
	}
}

// handleGetPost handles the route "GET /api/posts/{post_id}".
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	post, err := s.ps.ByID(r.Context(), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(post); err != nil {
		errs.LogError(r, err)
	}
}

// handleDeletePost handles the route "DELETE /api/posts/{post_id}".
// Only the post's author may delete it. The attached image blob is removed
// best-effort after the database delete succeeded.
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	user := auth.GetUser(r.Context())
	post, err := s.ps.Delete(r.Context(), id, user.UserID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if post.ImageRef != "" && s.blobs != nil {
		if err := s.blobs.Delete(r.Context(), post.ImageRef); err != nil {
			errs.LogError(r, err)
		}
	}
	if err := json.NewEncoder(w).Encode(post); err != nil {
		errs.LogError(r, err)
	}
}

// handleLikePost handles the route "POST /api/posts/{post_id}/like".
// Liking an already-liked post succeeds without changing anything.
func (s *Server) handleLikePost(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	user := auth.GetUser(r.Context())
	if err := s.ps.Like(r.Context(), id, user.UserID); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "post liked successfully"})
}

// handleUnlikePost handles the route "POST /api/posts/{post_id}/unlike".
func (s *Server) handleUnlikePost(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	user := auth.GetUser(r.Context())
	if err := s.ps.Unlike(r.Context(), id, user.UserID); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "post unliked successfully"})
}

// handleListComments handles the route "GET /api/posts/{post_id}/comments".
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	comments, err := s.ps.CommentsByPost(r.Context(), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(comments); err != nil {
		errs.LogError(r, err)
	}
}

// handleAddComment handles the route "POST /api/posts/{post_id}/comments".
// It returns the post's updated comment list, newest-first.
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}
	author := auth.GetUser(r.Context()).Snapshot()
	comments, err := s.ps.AddComment(r.Context(), id, author, body.Text)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(comments); err != nil {
		errs.LogError(r, err)
	}
}

// parsePostID reads the post_id route parameter.
func parsePostID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["post_id"])
	if err != nil || id < 1 {
		return 0, errs.Errorf(errs.EINVALID, "Invalid post id format.")
	}
	return id, nil
}
