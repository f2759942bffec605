package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"linkedout/auth"
	"linkedout/domain"
	"linkedout/errs"
)

func (s *Server) registerFollowRoutes(r *mux.Router) {
	r.HandleFunc("/api/followers", s.handleListFollowers).Methods("GET")
	r.HandleFunc("/api/following", s.handleListFollowing).Methods("GET")
	r.HandleFunc("/api/followers", s.requireAuth(s.handleCreateFollow)).Methods("POST")
	r.HandleFunc("/api/followers", s.requireAuth(s.handleDeleteFollow)).Methods("DELETE")
}

// followRequestBody is the body of follow/unfollow requests.
type followRequestBody struct {
	FollowingUserID string `json:"following_user_id"`
}

// handleListFollowers handles the route "GET /api/followers?user_id=".
func (s *Server) handleListFollowers(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "A user id is required."))
		return
	}
	followers, err := s.fs.Followers(r.Context(), userID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(followers); err != nil {
		errs.LogError(r, err)
	}
}

// handleListFollowing handles the route "GET /api/following?user_id=".
func (s *Server) handleListFollowing(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "A user id is required."))
		return
	}
	following, err := s.fs.Following(r.Context(), userID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(following); err != nil {
		errs.LogError(r, err)
	}
}

// handleCreateFollow handles the route "POST /api/followers".
// The followed user's snapshot is resolved from the directory before the edge
// is written, so both sides of the edge embed display data as of now.
func (s *Server) handleCreateFollow(w http.ResponseWriter, r *http.Request) {
	var body followRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}
	if body.FollowingUserID == "" {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "A following user id is required."))
		return
	}

	following, err := s.us.ByUserID(r.Context(), body.FollowingUserID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	follow := domain.Follow{
		Follower:  auth.GetUser(r.Context()).Snapshot(),
		Following: following.Snapshot(),
	}
	if err := s.fs.Create(r.Context(), &follow); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(&follow); err != nil {
		errs.LogError(r, err)
	}
}

// handleDeleteFollow handles the route "DELETE /api/followers".
func (s *Server) handleDeleteFollow(w http.ResponseWriter, r *http.Request) {
	var body followRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}
	user := auth.GetUser(r.Context())
	if err := s.fs.Delete(r.Context(), user.UserID, body.FollowingUserID); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "unfollowed successfully"})
}
