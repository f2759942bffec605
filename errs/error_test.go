package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestErrorCode(t *testing.T) {
	t.Run("ApplicationError", func(t *testing.T) {
		err := Errorf(ENOTFOUND, "The post does not exist.")
		if got := ErrorCode(err); got != ENOTFOUND {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("WrappedApplicationError", func(t *testing.T) {
		err := fmt.Errorf("loading post: %w", Errorf(ECONFLICT, "You already follow this user."))
		if got := ErrorCode(err); got != ECONFLICT {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("PlainError", func(t *testing.T) {
		if got := ErrorCode(errors.New("disk on fire")); got != EINTERNAL {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("NilError", func(t *testing.T) {
		if got := ErrorCode(nil); got != "" {
			t.Fatalf("got %q", got)
		}
	})
}

func TestErrorMessage(t *testing.T) {
	t.Run("ApplicationError", func(t *testing.T) {
		err := Errorf(EINVALID, "A user id is required.")
		if got := ErrorMessage(err); got != "A user id is required." {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("PlainErrorIsMasked", func(t *testing.T) {
		if got := ErrorMessage(errors.New("disk on fire")); got != "Internal error." {
			t.Fatalf("got %q", got)
		}
	})
}

func TestErrorStatusCode(t *testing.T) {
	cases := map[string]int{
		EINVALID:      http.StatusBadRequest,
		ENOTFOUND:     http.StatusNotFound,
		ECONFLICT:     http.StatusConflict,
		EUNAUTHORIZED: http.StatusForbidden,
		EUNAVAILABLE:  http.StatusServiceUnavailable,
		EINTERNAL:     http.StatusInternalServerError,
		"bogus":       http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := ErrorStatusCode(code); got != want {
			t.Errorf("code %q: got %d, want %d", code, got, want)
		}
	}
}

func TestReturnError(t *testing.T) {
	t.Run("ApplicationError", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/posts/1", nil)
		ReturnError(w, r, Errorf(ENOTFOUND, "The post does not exist."))

		if w.Code != http.StatusNotFound {
			t.Fatalf("got status %d", w.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body["error"] != "The post does not exist." {
			t.Fatalf("got body %v", body)
		}
	})

	t.Run("InternalErrorIsMasked", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/posts", nil)
		ReturnError(w, r, errors.New("pq: connection refused"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("got status %d", w.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body["error"] != "Internal error." {
			t.Fatalf("expected internals to be masked, got %v", body)
		}
	})
}
