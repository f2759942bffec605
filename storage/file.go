package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"linkedout/domain"
	"linkedout/errs"
)

// FileStore keeps blobs as plain files under a root directory and hands out
// HMAC-signed expiring URLs for them, served by the http layer's /blob route.
// It is the development stand-in for the S3 store and implements the same
// time-boxed retrieval contract.
type FileStore struct {
	root       string
	baseURL    string
	signingKey []byte
}

var _ domain.BlobStore = &FileStore{}

// NewFileStore returns a FileStore rooted at dir. baseURL is prepended to
// retrieval URLs so they resolve from the client's side.
func NewFileStore(dir, baseURL, signingKey string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("err creating blob root: %w", err)
	}
	return &FileStore{
		root:       dir,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		signingKey: []byte(signingKey),
	}, nil
}

// Put writes the blob bytes to disk under the given name.
func (fs *FileStore) Put(ctx context.Context, name string, contentType string, r io.Reader) error {
	if err := validName(name); err != nil {
		return err
	}
	dst, err := os.Create(filepath.Join(fs.root, name))
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, r); err != nil {
		return err
	}
	return nil
}

// RetrievalURL returns a signed URL valid for domain.RetrievalURLTTL. The
// signature covers the blob name and the expiry, so neither can be swapped.
func (fs *FileStore) RetrievalURL(ctx context.Context, name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(fs.root, name)); err != nil {
		return "", errs.Errorf(errs.ENOTFOUND, "The file does not exist.")
	}
	exp := time.Now().Add(domain.RetrievalURLTTL).Unix()
	q := url.Values{}
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("sig", fs.sign(name, exp))
	return fmt.Sprintf("%s/blob/%s?%s", fs.baseURL, name, q.Encode()), nil
}

// Delete removes the blob file. Removing an absent blob is not an error.
func (fs *FileStore) Delete(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(fs.root, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Open returns the blob file for serving. The http layer calls Verify first.
func (fs *FileStore) Open(name string) (*os.File, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(fs.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The file does not exist.")
		}
		return nil, err
	}
	return f, nil
}

// Verify checks a retrieval URL's expiry and signature.
func (fs *FileStore) Verify(name string, exp int64, sig string) bool {
	if time.Now().Unix() > exp {
		return false
	}
	return hmac.Equal([]byte(fs.sign(name, exp)), []byte(sig))
}

// sign computes the URL signature over "name|exp".
func (fs *FileStore) sign(name string, exp int64) string {
	mac := hmac.New(sha256.New, fs.signingKey)
	fmt.Fprintf(mac, "%s|%d", name, exp)
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

// validName rejects names that could escape the root directory. Generated
// blob names are flat uuid_timestamp.ext strings, so anything with a path
// separator is malformed input.
func validName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return errs.Errorf(errs.EINVALID, "Invalid file name.")
	}
	return nil
}
