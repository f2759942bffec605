package http

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"linkedout/auth"
	"linkedout/domain"
	"linkedout/errs"
)

const sessionName = "linkedout_session"

func (s *Server) registerAuthRoutes(r *mux.Router) {
	// Start the OAuth flow against the identity provider.
	r.HandleFunc("/auth/login", s.handleLogin).Methods("GET")

	// Provider redirect target; upserts the directory record and opens a session.
	r.HandleFunc("/auth/callback", s.handleCallback).Methods("GET")

	r.HandleFunc("/auth/logout", s.handleLogout).Methods("POST")

	// The signed-in client pushes its current provider profile fields.
	r.HandleFunc("/api/auth", s.requireAuth(s.handleSyncProfile)).Methods("POST")

	r.HandleFunc("/api/me", s.requireAuth(s.handleMe)).Methods("GET")
}

// providerProfile is the shape of the identity provider's userinfo response.
// The provider id is the only field we depend on being stable.
type providerProfile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
	Email     string `json:"email"`
}

// handleLogin handles the route "GET /auth/login".
// It stores a random state in the session and redirects to the provider.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	session, _ := s.sessions.Get(r, sessionName)
	session.Values["oauth_state"] = state
	if err := session.Save(r, w); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusFound)
}

// handleCallback handles the route "GET /auth/callback".
// It exchanges the code, fetches the provider profile, upserts the user
// directory record and stores the provider id in the session.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessions.Get(r, sessionName)
	wantState, _ := session.Values["oauth_state"].(string)
	if wantState == "" || r.FormValue("state") != wantState {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid oauth state."))
		return
	}
	delete(session.Values, "oauth_state")

	token, err := s.oauth.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EUNAVAILABLE, "The identity provider rejected the sign-in."))
		return
	}

	res, err := s.oauth.Client(r.Context(), token).Get(s.userInfoURL)
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EUNAVAILABLE, "Could not fetch the profile from the identity provider."))
		return
	}
	defer res.Body.Close()

	var profile providerProfile
	if err := json.NewDecoder(res.Body).Decode(&profile); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EUNAVAILABLE, "Could not read the profile from the identity provider."))
		return
	}

	user := domain.User{
		UserID:    profile.ID,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		UserImage: profile.ImageURL,
		Email:     profile.Email,
	}
	if err := s.us.Upsert(r.Context(), &user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	session.Values["user_id"] = user.UserID
	if err := session.Save(r, w); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(&user); err != nil {
		errs.LogError(r, err)
	}
}

// handleLogout handles the route "POST /auth/logout".
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessions.Get(r, sessionName)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "successfully logged out"})
}

// handleSyncProfile handles the route "POST /api/auth".
// The client pushes the provider profile fields it currently sees; the server
// upserts them, writing only when something actually changed.
func (s *Server) handleSyncProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		UserImage string `json:"userImage"`
		Email     string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}

	current := auth.GetUser(r.Context())
	user := domain.User{
		UserID:    current.UserID,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		UserImage: body.UserImage,
		Email:     body.Email,
	}
	if err := s.us.Upsert(r.Context(), &user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(&user); err != nil {
		errs.LogError(r, err)
	}
}

// handleMe handles the route "GET /api/me".
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if err := json.NewEncoder(w).Encode(user); err != nil {
		errs.LogError(r, err)
	}
}

// The checkUser middleware resolves the session to a directory record and
// stores it in the request context. Anonymous requests pass through.
func (s *Server) checkUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.sessions.Get(r, sessionName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		userID, _ := session.Values["user_id"].(string)
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, err := s.us.ByUserID(r.Context(), userID)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.SetUser(r.Context(), user)))
	})
}

// requireAuth rejects requests that did not resolve to a signed-in user.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			errs.ReturnError(w, r, errs.Errorf(errs.EUNAUTHORIZED, "You must be signed in."))
			return
		}
		next.ServeHTTP(w, r)
	}
}

// randomState generates the anti-forgery state for the OAuth flow.
func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
