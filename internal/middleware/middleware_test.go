//go:build unit

package middleware

import (
	"context"
	"errors"
	"go-blog-app/internal/auth"
	"go-blog-app/internal/data"
	"go-blog-app/internal/logger"
	"go-blog-app/internal/service"
	"go-blog-app/internal/session"
	"go-blog-app/internal/view"
	"go-blog-app/web"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// mockSessionManager is a mock implementation of the session.Manager interface.
type mockSessionManager struct {
	values  map[string]interface{}
	removed []string
}

// Ensure mockSessionManager implements the session.Manager interface.
var _ session.Manager = (*mockSessionManager)(nil)

func (m *mockSessionManager) LoadAndSave(next http.Handler) http.Handler { return next }
func (m *mockSessionManager) Put(ctx context.Context, key string, val interface{}) {
	m.values[key] = val
}
func (m *mockSessionManager) GetString(ctx context.Context, key string) string {
	s, _ := m.values[key].(string)
	return s
}
func (m *mockSessionManager) GetInt64(ctx context.Context, key string) int64 {
	n, _ := m.values[key].(int64)
	return n
}
func (m *mockSessionManager) PopString(ctx context.Context, key string) string { return "" }
func (m *mockSessionManager) RenewToken(ctx context.Context) error             { return nil }
func (m *mockSessionManager) Destroy(ctx context.Context) error                { return nil }
func (m *mockSessionManager) Remove(ctx context.Context, key string) {
	delete(m.values, key)
	m.removed = append(m.removed, key)
}

type mockUserLoader struct {
	users map[int64]*data.User
}

func (m *mockUserLoader) GetUser(ctx context.Context, id int64) (*data.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, service.ErrNotFound
}

func newTestView(t *testing.T) *view.View {
	t.Helper()
	v, err := view.New(web.TemplateFS)
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}
	return v
}

// captureUser records the user the downstream handler sees.
func captureUser(got **UserInfo) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = GetUserInfo(r.Context())
	})
}

func TestAuthenticate(t *testing.T) {
	users := &mockUserLoader{users: map[int64]*data.User{1: {ID: 1, Username: "alice"}}}

	t.Run("known user", func(t *testing.T) {
		sm := &mockSessionManager{values: map[string]interface{}{session.UserIDKey: int64(1)}}
		var got *UserInfo
		Authenticate(sm, users, logger.Nop())(captureUser(&got)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

		if !got.Authenticated() || got.Username != "alice" || got.Subject != auth.RoleMember {
			t.Errorf("unexpected user info: %+v", got)
		}
		if got.Viewer() != (service.Viewer{ID: 1, Username: "alice"}) {
			t.Errorf("unexpected viewer: %+v", got.Viewer())
		}
	})

	t.Run("deleted user", func(t *testing.T) {
		sm := &mockSessionManager{values: map[string]interface{}{session.UserIDKey: int64(9)}}
		var got *UserInfo
		Authenticate(sm, users, logger.Nop())(captureUser(&got)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

		if got.Authenticated() || got.Subject != auth.RoleAnonymous {
			t.Errorf("expected anonymous, got %+v", got)
		}
		if len(sm.removed) != 1 || sm.removed[0] != session.UserIDKey {
			t.Errorf("expected the stale user id to be removed, got %v", sm.removed)
		}
	})

	t.Run("no session", func(t *testing.T) {
		sm := &mockSessionManager{values: map[string]interface{}{}}
		var got *UserInfo
		Authenticate(sm, users, logger.Nop())(captureUser(&got)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

		if got.Viewer() != service.Anonymous {
			t.Errorf("expected anonymous viewer, got %+v", got.Viewer())
		}
	})
}

func TestAuthorizer(t *testing.T) {
	enforcer, err := auth.NewEnforcer(nil)
	if err != nil {
		t.Fatal(err)
	}
	auth.SeedDefaultPolicies(enforcer, logger.Nop())
	authz := Authorizer(enforcer, newTestView(t), logger.Nop())

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	member := &UserInfo{ID: 1, Username: "alice", Subject: auth.RoleMember}

	testCases := []struct {
		name         string
		user         *UserInfo
		method       string
		path         string
		wantStatus   int
		wantLocation string
	}{
		{"anonymous reads index", nil, "GET", "/", http.StatusOK, ""},
		{"anonymous reads post", nil, "GET", "/posts/3/", http.StatusOK, ""},
		{"anonymous edits post", nil, "GET", "/posts/3/edit/", http.StatusFound, "/auth/login/?next=%2Fposts%2F3%2Fedit%2F"},
		{"anonymous comments", nil, "POST", "/posts/3/comment/", http.StatusFound, "/auth/login/?next=%2Fposts%2F3%2Fcomment%2F"},
		{"member edits post", member, "GET", "/posts/3/edit/", http.StatusOK, ""},
		{"member inherits anonymous routes", member, "GET", "/category/travel/", http.StatusOK, ""},
		{"member uses wrong method", member, "DELETE", "/posts/3/", http.StatusForbidden, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.user != nil {
				req = req.WithContext(SetUserInfo(req.Context(), tc.user))
			}
			rr := httptest.NewRecorder()
			authz(ok).ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Errorf("want status %d; got %d", tc.wantStatus, rr.Code)
			}
			if tc.wantLocation != "" && rr.Header().Get("Location") != tc.wantLocation {
				t.Errorf("want redirect to %q; got %q", tc.wantLocation, rr.Header().Get("Location"))
			}
			if tc.wantStatus == http.StatusForbidden && !strings.Contains(rr.Body.String(), "Error 403") {
				t.Errorf("expected the error page, got %s", rr.Body.String())
			}
		})
	}
}

func TestErrorMiddleware(t *testing.T) {
	errs := Error(logger.Nop(), newTestView(t))

	t.Run("app error", func(t *testing.T) {
		h := errs(func(w http.ResponseWriter, r *http.Request) *AppError {
			return &AppError{Error: errors.New("missing"), Message: "Page not found", Code: http.StatusNotFound}
		})
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/nowhere/", nil))

		if rr.Code != http.StatusNotFound {
			t.Errorf("want status 404; got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Error 404") || !strings.Contains(rr.Body.String(), "Page not found") {
			t.Errorf("body does not contain the error page: %s", rr.Body.String())
		}
	})

	t.Run("panic", func(t *testing.T) {
		h := errs(func(w http.ResponseWriter, r *http.Request) *AppError {
			panic("boom")
		})
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("want status 500; got %d", rr.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		h := errs(func(w http.ResponseWriter, r *http.Request) *AppError {
			w.WriteHeader(http.StatusTeapot)
			return nil
		})
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

		if rr.Code != http.StatusTeapot {
			t.Errorf("want status 418; got %d", rr.Code)
		}
	})
}
