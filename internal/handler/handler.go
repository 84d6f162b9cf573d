package handler

import (
	"errors"
	"fmt"
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/service"
	"go-blog-app/internal/view"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// render executes a page template with the current user attached.
func render(v *view.View, w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) *middleware.AppError {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["CurrentUser"] = middleware.GetUserInfo(r.Context())
	if _, ok := data["Form"]; !ok {
		data["Form"] = map[string]string{}
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = service.ValidationErrors{}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := v.Render(w, r, name, data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render page", Code: http.StatusInternalServerError}
	}
	return nil
}

// viewer returns the identity the request acts as.
func viewer(r *http.Request) service.Viewer {
	return middleware.GetUserInfo(r.Context()).Viewer()
}

// requireLogin redirects anonymous visitors to the login page and reports
// whether the request may continue.
func requireLogin(w http.ResponseWriter, r *http.Request) bool {
	if middleware.GetUserInfo(r.Context()).Authenticated() {
		return true
	}
	http.Redirect(w, r, middleware.LoginURL(r.URL.RequestURI()), http.StatusFound)
	return false
}

// notFound builds the 404 error for a missing or hidden item.
func notFound(err error) *middleware.AppError {
	return &middleware.AppError{Error: err, Message: "Page not found", Code: http.StatusNotFound}
}

// serviceError maps a service failure to a response. Authentication and
// ownership failures are answered with redirects, in which case it returns nil.
func serviceError(w http.ResponseWriter, r *http.Request, err error, ownerRedirect string) *middleware.AppError {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		http.Redirect(w, r, middleware.LoginURL(r.URL.RequestURI()), http.StatusFound)
		return nil
	case errors.Is(err, service.ErrNotOwner):
		http.Redirect(w, r, ownerRedirect, http.StatusFound)
		return nil
	case errors.Is(err, service.ErrNotFound):
		return notFound(err)
	}
	return &middleware.AppError{Error: err, Message: "Internal Server Error", Code: http.StatusInternalServerError}
}

// idParam reads a numeric URL parameter.
func idParam(r *http.Request, name string) (int64, *middleware.AppError) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, notFound(fmt.Errorf("invalid %s %q", name, chi.URLParam(r, name)))
	}
	return id, nil
}

// pageNumber reads the page query parameter. Anything but a positive
// integer yields 0, which the services reject as not found.
func pageNumber(r *http.Request) int {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// safeNext accepts only local redirect targets.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}

func postURL(id int64) string {
	return fmt.Sprintf("/posts/%d/", id)
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}
