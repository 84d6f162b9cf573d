package handler

import (
	"errors"
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/session"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups the application's HTTP handlers.
type Handlers struct {
	Blog    *BlogHandler
	Profile *ProfileHandler
	Auth    *AuthHandler
	SEO     *SeoHandler
}

// Assets are the file trees served next to the application routes.
// A nil field disables its route.
type Assets struct {
	Static fs.FS
	Media  http.FileSystem
}

// NewRouter creates and configures a new chi router.
func NewRouter(
	h Handlers,
	sm session.Manager,
	authnMiddleware func(http.Handler) http.Handler,
	authzMiddleware func(http.Handler) http.Handler,
	errorMiddleware func(middleware.AppHandler) http.Handler,
	assets Assets,
) *chi.Mux {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.NotFound(errorMiddleware(func(w http.ResponseWriter, r *http.Request) *middleware.AppError {
		return notFound(errors.New("no route for " + r.URL.Path))
	}).ServeHTTP)
	r.MethodNotAllowed(errorMiddleware(func(w http.ResponseWriter, r *http.Request) *middleware.AppError {
		return &middleware.AppError{Error: errors.New(r.Method + " " + r.URL.Path), Message: "Method Not Allowed", Code: http.StatusMethodNotAllowed}
	}).ServeHTTP)

	// Public, session-less routes
	if assets.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", noDirListing(http.FileServer(http.FS(assets.Static)))))
	}
	if assets.Media != nil {
		r.Handle("/media/*", http.StripPrefix("/media/", noDirListing(http.FileServer(assets.Media))))
	}
	r.Get("/robots.txt", h.SEO.robotsHandler)
	r.Method(http.MethodGet, "/sitemap.xml", errorMiddleware(h.SEO.sitemapHandler))

	// Session-aware routes, checked against the route policies
	r.Group(func(r chi.Router) {
		r.Use(sm.LoadAndSave)
		r.Use(authnMiddleware)
		r.Use(authzMiddleware)

		get := func(pattern string, fn middleware.AppHandler) {
			r.Method(http.MethodGet, pattern, errorMiddleware(fn))
		}
		form := func(pattern string, fn middleware.AppHandler) {
			handler := errorMiddleware(fn)
			r.Method(http.MethodGet, pattern, handler)
			r.Method(http.MethodPost, pattern, handler)
		}

		get("/", h.Blog.index)
		get("/category/{slug}/", h.Blog.categoryPosts)
		form("/posts/create/", h.Blog.createPost)
		get("/posts/{id}/", h.Blog.postDetail)
		form("/posts/{id}/edit/", h.Blog.editPost)
		form("/posts/{id}/delete/", h.Blog.deletePost)
		r.Method(http.MethodPost, "/posts/{id}/comment/", errorMiddleware(h.Blog.addComment))
		form("/posts/{id}/edit_comment/{cid}/", h.Blog.editComment)
		form("/posts/{id}/delete_comment/{cid}/", h.Blog.deleteComment)

		form("/profile/edit/", h.Profile.editProfile)
		form("/edit_profile/", h.Profile.editProfile)
		get("/profile/{username}/", h.Profile.profile)

		form("/auth/registration/", h.Auth.register)
		form("/auth/login/", h.Auth.login)
		form("/auth/logout/", h.Auth.logout)
		form("/auth/password_change/", h.Auth.passwordChange)
		get("/auth/password_change/done/", h.Auth.passwordChangeDone)
		if h.Auth.OIDCEnabled() {
			get("/auth/oidc/login", h.Auth.oidcLogin)
			get("/auth/oidc/callback", h.Auth.oidcCallback)
		}
	})

	return r
}

// noDirListing answers directory requests with 404 instead of an index.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
