package middleware

import (
	"fmt"
	"go-blog-app/internal/logger"
	"go-blog-app/internal/view"
	"net/http"
	"net/url"

	"github.com/casbin/casbin/v2"
)

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/auth/login/"

// LoginURL returns the login page URL that returns to next afterwards.
func LoginURL(next string) string {
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// Authorizer creates a new middleware for authorization.
// It checks the request's role against the casbin route policies. Denied
// visitors are redirected to the login page; denied members get a 403 page.
func Authorizer(e casbin.IEnforcer, v *view.View, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := GetUserInfo(r.Context())

			allowed, err := e.Enforce(info.Subject, r.URL.Path, r.Method)
			if err != nil {
				RenderError(w, r, v, log, &AppError{Error: err, Message: "Authorization error", Code: http.StatusInternalServerError})
				return
			}

			if !allowed {
				if !info.Authenticated() {
					http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusFound)
					return
				}
				RenderError(w, r, v, log, &AppError{
					Error:   fmt.Errorf("%s may not %s %s", info.Subject, r.Method, r.URL.Path),
					Message: "Forbidden",
					Code:    http.StatusForbidden,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
