package middleware

import (
	"context"
	"go-blog-app/internal/auth"
	"go-blog-app/internal/service"
)

// contextKey defines a custom type for context keys to avoid collisions.
type contextKey string

const userContextKey = contextKey("user")

// UserInfo represents the essential user information stored in the request context.
type UserInfo struct {
	ID       int64
	Username string
	// Subject is the casbin role the request is enforced as.
	Subject string
}

// Authenticated reports whether a user is logged in.
func (u *UserInfo) Authenticated() bool {
	return u != nil && u.ID != 0
}

// Viewer converts the user into the identity the services reason about.
func (u *UserInfo) Viewer() service.Viewer {
	if !u.Authenticated() {
		return service.Anonymous
	}
	return service.Viewer{ID: u.ID, Username: u.Username}
}

// GetUserInfo retrieves the user information from the request context.
func GetUserInfo(ctx context.Context) *UserInfo {
	if userInfo, ok := ctx.Value(userContextKey).(*UserInfo); ok {
		return userInfo
	}
	// Return an anonymous user if no user info is found in the context.
	return &UserInfo{Subject: auth.RoleAnonymous}
}

// SetUserInfo adds the user information to the request context.
func SetUserInfo(ctx context.Context, userInfo *UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, userInfo)
}
