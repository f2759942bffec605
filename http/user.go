package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"linkedout/auth"
	"linkedout/errs"
)

func (s *Server) registerUserRoutes(r *mux.Router) {
	// Search profiles by name.
	r.HandleFunc("/api/search-users", s.requireAuth(s.handleSearchUsers)).Methods("GET")

	// Aggregated counts for one profile page.
	r.HandleFunc("/api/user-profile", s.requireAuth(s.handleUserProfile)).Methods("GET")

	// The member directory, with follow state relative to the caller.
	r.HandleFunc("/api/users", s.requireAuth(s.handleListUsers)).Methods("GET")
}

// handleSearchUsers handles the route "GET /api/search-users?query=".
func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	results, err := s.ss.SearchByName(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(results); err != nil {
		errs.LogError(r, err)
	}
}

// handleUserProfile handles the route "GET /api/user-profile?user_id=".
// The viewer's follow state is included when the profile is not their own.
func (s *Server) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "A user id is required."))
		return
	}
	viewer := auth.GetUser(r.Context())
	summary, err := s.ss.ProfileSummary(r.Context(), userID, viewer.UserID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		errs.LogError(r, err)
	}
}

// handleListUsers handles the route "GET /api/users".
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	viewer := auth.GetUser(r.Context())
	users, err := s.ss.Directory(r.Context(), viewer.UserID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(users); err != nil {
		errs.LogError(r, err)
	}
}
