package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authedRequest(t *testing.T, mw func(http.Handler) http.Handler, path string, set func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if set != nil {
		set(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthAcceptsValidTokens(t *testing.T) {
	mw := Auth("secret")

	t.Run("bearer header", func(t *testing.T) {
		rec := authedRequest(t, mw, "/api/listings", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer secret")
		})
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
	})

	t.Run("api key header", func(t *testing.T) {
		rec := authedRequest(t, mw, "/api/listings", func(r *http.Request) {
			r.Header.Set("X-API-Key", "secret")
		})
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
	})
}

func TestAuthRejectsBadTokens(t *testing.T) {
	mw := Auth("secret")

	t.Run("missing token", func(t *testing.T) {
		rec := authedRequest(t, mw, "/api/listings", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		rec := authedRequest(t, mw, "/api/listings", func(r *http.Request) {
			r.Header.Set("X-API-Key", "not-it")
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong scheme", func(t *testing.T) {
		rec := authedRequest(t, mw, "/api/listings", func(r *http.Request) {
			r.Header.Set("Authorization", "Basic secret")
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func TestAuthExemptPaths(t *testing.T) {
	mw := Auth("secret", "/api/health", "/telegram/webhook")

	for _, path := range []string{"/api/health", "/telegram/webhook"} {
		rec := authedRequest(t, mw, path, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s: status = %d, want 204", path, rec.Code)
		}
	}

	rec := authedRequest(t, mw, "/api/listings", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("non-exempt path: status = %d, want 401", rec.Code)
	}
}

func TestAuthDisabledWithEmptyKey(t *testing.T) {
	rec := authedRequest(t, Auth(""), "/api/listings", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}
