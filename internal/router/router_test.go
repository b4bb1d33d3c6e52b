package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"accountcore/internal/auth"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	tokens := auth.NewTokenService([]byte("test-secret"))
	return RegisterRoutes(zap.NewNop().Sugar(), sqlx.NewDb(db, "postgres"), tokens)
}

func TestLiveness(t *testing.T) {
	h := newTestRouter(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("got %d want 200", w.Code)
	}
	if w.Body.String() != "API is running" {
		t.Fatalf("unexpected body: %q", w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/login", nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight: got %d want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("missing Access-Control-Allow-Origin header")
	}
}

func TestCommonHeaders(t *testing.T) {
	h := newTestRouter(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff header")
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing request id header")
	}
}

func TestModerationRoutesAreGated(t *testing.T) {
	h := newTestRouter(t)

	for _, path := range []string{"/block", "/unblock", "/delete"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: got %d want 401", path, w.Code)
		}
	}
}
