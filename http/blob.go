package http

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"linkedout/domain"
	"linkedout/errs"
)

func (s *Server) registerBlobRoutes(r *mux.Router) {
	r.HandleFunc("/api/images", s.requireAuth(s.handleUploadImage)).Methods("POST")

	// A fresh retrieval URL is requested per render; the stored reference
	// never carries one.
	r.HandleFunc("/api/images/url", s.requireAuth(s.handleImageURL)).Methods("GET")

	if s.files != nil {
		r.HandleFunc("/blob/{name}", s.handleServeBlob).Methods("GET")
	}
}

// handleUploadImage handles the route "POST /api/images".
// It validates the upload (jpeg/png, size cap, content sniffing), stores the
// bytes under a generated unique name and returns that name as the reference.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	if s.blobs == nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EUNAVAILABLE, "Image uploads are not configured."))
		return
	}
	if err := r.ParseMultipartForm(domain.MaxUploadSize); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid multipart form."))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "An image file is required."))
		return
	}
	defer file.Close()

	if header.Size > domain.MaxUploadSize {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID,
			"Image %s exceeds the upload size limit of %dMB.", header.Filename, domain.MaxUploadSize>>20))
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == ".jpg" {
		ext = ".jpeg"
	}
	if ext != ".jpeg" && ext != ".png" {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID,
			"Image %s has an invalid extension, must be .jpeg or .png.", header.Filename))
		return
	}

	// Sniff the real content type rather than trusting the extension.
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && n == 0 {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Could not read the image file."))
		return
	}
	contentType := http.DetectContentType(buffer[:n])
	if contentType != "image/jpeg" && contentType != "image/png" {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID,
			"Image %s has an invalid content type, must be image/jpeg or image/png.", header.Filename))
		return
	}
	if "image/"+strings.TrimPrefix(ext, ".") != contentType {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID,
			"Image %s content type %s does not match its extension.", header.Filename, contentType))
		return
	}
	if _, err := file.Seek(0, 0); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	name := fmt.Sprintf("%s_%d%s", uuid.NewString(), time.Now().UnixMilli(), ext)
	if err := s.blobs.Put(r.Context(), name, contentType, file); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EUNAVAILABLE, "Could not store the image."))
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"imageRef": name})
}

// handleImageURL handles the route "GET /api/images/url?file=".
// It exchanges a stored blob reference for a short-lived retrieval URL.
func (s *Server) handleImageURL(w http.ResponseWriter, r *http.Request) {
	if s.blobs == nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EUNAVAILABLE, "Image storage is not configured."))
		return
	}
	name := r.URL.Query().Get("file")
	if name == "" {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Missing file parameter."))
		return
	}
	url, err := s.blobs.RetrievalURL(r.Context(), name)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"url": url})
}

// handleServeBlob handles the route "GET /blob/{name}" for the filesystem
// store, after checking the URL's expiry and signature.
func (s *Server) handleServeBlob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	exp, err := strconv.ParseInt(r.URL.Query().Get("exp"), 10, 64)
	if err != nil || !s.files.Verify(name, exp, r.URL.Query().Get("sig")) {
		errs.ReturnError(w, r, errs.Errorf(errs.EUNAUTHORIZED, "The link is invalid or has expired."))
		return
	}
	f, err := s.files.Open(name)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	defer f.Close()

	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	http.ServeContent(w, r, name, time.Time{}, f)
}
