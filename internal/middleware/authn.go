package middleware

import (
	"context"
	"errors"
	"fmt"
	"go-blog-app/internal/auth"
	"go-blog-app/internal/data"
	"go-blog-app/internal/logger"
	"go-blog-app/internal/service"
	"go-blog-app/internal/session"
	"net/http"
)

// UserLoader looks up the account behind a session.
type UserLoader interface {
	GetUser(ctx context.Context, id int64) (*data.User, error)
}

// Authenticate resolves the session's user and stores it in the request
// context. Sessions pointing at a deleted account are cleared.
func Authenticate(sm session.Manager, users UserLoader, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := &UserInfo{Subject: auth.RoleAnonymous}

			if id := sm.GetInt64(r.Context(), session.UserIDKey); id != 0 {
				user, err := users.GetUser(r.Context(), id)
				switch {
				case err == nil:
					info = &UserInfo{ID: user.ID, Username: user.Username, Subject: auth.RoleMember}
				case errors.Is(err, service.ErrNotFound):
					sm.Remove(r.Context(), session.UserIDKey)
				default:
					log.Error(err, fmt.Sprintf("Failed to load session user %d", id))
				}
			}

			next.ServeHTTP(w, r.WithContext(SetUserInfo(r.Context(), info)))
		})
	}
}
