package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type fakeInvalidator struct {
	dropped []string
	err     error
}

func (f *fakeInvalidator) Invalidate(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.dropped = append(f.dropped, id)
	return nil
}

func invalidateRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Delete("/cache/users/{userId}", h.InvalidateUserCache)
	return r
}

func TestInvalidateUserCache_DropsUser(t *testing.T) {
	inv := &fakeInvalidator{}
	h := NewHandler(nil, nil)
	h.SetUserCache(inv)

	rec := httptest.NewRecorder()
	invalidateRouter(h).ServeHTTP(rec,
		httptest.NewRequest(http.MethodDelete, "/cache/users/u7", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if len(inv.dropped) != 1 || inv.dropped[0] != "u7" {
		t.Fatalf("dropped = %v, want [u7]", inv.dropped)
	}
}

func TestInvalidateUserCache_NoCacheConfigured(t *testing.T) {
	h := NewHandler(nil, nil)

	rec := httptest.NewRecorder()
	invalidateRouter(h).ServeHTTP(rec,
		httptest.NewRequest(http.MethodDelete, "/cache/users/u7", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestInvalidateUserCache_StoreError(t *testing.T) {
	inv := &fakeInvalidator{err: errors.New("redis down")}
	h := NewHandler(nil, nil)
	h.SetUserCache(inv)

	rec := httptest.NewRecorder()
	invalidateRouter(h).ServeHTTP(rec,
		httptest.NewRequest(http.MethodDelete, "/cache/users/u7", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
