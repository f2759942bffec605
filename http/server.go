package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"

	"linkedout/crud"
	"linkedout/domain"
	"linkedout/storage"
)

// Server provides the http surface of the app: routing, request handling and
// middleware. It resolves the session to a user before handing requests over
// to the crud services.
type Server struct {
	router   *mux.Router
	sessions *sessions.CookieStore

	oauth       *oauth2.Config
	userInfoURL string

	us domain.UserService
	ps domain.PostService
	fs domain.FollowService
	ss domain.SearchService

	blobs domain.BlobStore
	// files is non-nil when blobs is filesystem-backed; it serves the
	// signed /blob/{name} route.
	files *storage.FileStore
}

// NewServer returns a new instance of the server, registers all routes and
// gives their handlers access to the services passed in. blobs may be nil,
// which disables the image endpoints.
func NewServer(
	isProd bool,
	sessionKey string,
	csrfKey string,
	oauth *oauth2.Config,
	userInfoURL string,
	services *crud.Services,
	blobs domain.BlobStore,
) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		sessions:    sessions.NewCookieStore([]byte(sessionKey)),
		oauth:       oauth,
		userInfoURL: userInfoURL,
		us:          services.User,
		ps:          services.Post,
		fs:          services.Follow,
		ss:          services.Search,
		blobs:       blobs,
	}
	if files, ok := blobs.(*storage.FileStore); ok {
		s.files = files
	}
	s.sessions.Options.HttpOnly = true
	s.sessions.Options.Secure = isProd

	s.registerAuthRoutes(s.router)
	s.registerPostRoutes(s.router)
	s.registerFollowRoutes(s.router)
	s.registerUserRoutes(s.router)
	s.registerBlobRoutes(s.router)

	s.router.Use(setContentTypeJSON, s.checkUser)
	if isProd {
		csrfMw := csrf.Protect([]byte(csrfKey), csrf.Path("/"))
		s.router.Use(csrfMw)
	}
	return s
}

// The setContentTypeJSON middleware sets the content type to "application/json".
// The blob handler overrides it for raw file responses.
func setContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Run starts to listen and serve on the specified port.
func (s *Server) Run(port int) error {
	slog.Info("server listening", "port", port)
	return http.ListenAndServe(":"+strconv.Itoa(port), s.router)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
