package session

import (
	"context"
	"database/sql"
	"go-blog-app/internal/config"
	"net/http"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// UserIDKey is the session key holding the logged-in user's ID.
const UserIDKey = "user_id"

// CookieName is the name of the session cookie.
const CookieName = "blog_session"

// Manager is an interface that abstracts the session management implementation.
// This allows for easier testing and dependency injection.
type Manager interface {
	LoadAndSave(next http.Handler) http.Handler
	Put(ctx context.Context, key string, val interface{})
	GetString(ctx context.Context, key string) string
	GetInt64(ctx context.Context, key string) int64
	PopString(ctx context.Context, key string) string
	RenewToken(ctx context.Context) error
	Destroy(ctx context.Context) error
	Remove(ctx context.Context, key string)
}

var _ Manager = (*scs.SessionManager)(nil)

// New creates a session manager over store. secure marks the cookie
// HTTPS-only.
func New(cfg config.SessionConfig, store scs.Store, secure bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = store
	if cfg.Lifetime > 0 {
		sm.Lifetime = time.Duration(cfg.Lifetime) * time.Hour
	}
	sm.Cookie.Name = CookieName
	sm.Cookie.Persist = true
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = secure
	return sm
}

// NewStore picks the scs store that keeps sessions in the application
// database, matching its driver.
func NewStore(driver string, db *sql.DB) scs.Store {
	if driver == "mysql" {
		return mysqlstore.New(db)
	}
	return sqlite3store.New(db)
}
