package handler

import (
	"go-blog-app/internal/logger"
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/service"
	"go-blog-app/internal/view"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ProfileHandler holds the dependencies for the profile handlers.
type ProfileHandler struct {
	posts service.PostServicer
	users service.UserServicer
	view  *view.View
	log   logger.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(ps service.PostServicer, us service.UserServicer, v *view.View, log logger.Logger) *ProfileHandler {
	return &ProfileHandler{posts: ps, users: us, view: v, log: log}
}

// profile renders a user's page and posts.
func (h *ProfileHandler) profile(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, err := h.posts.ListProfile(r.Context(), viewer(r), chi.URLParam(r, "username"), pageNumber(r))
	if err != nil {
		return serviceError(w, r, err, "/")
	}
	return render(h.view, w, r, "profile.html", map[string]interface{}{
		"Profile": page.Profile,
		"IsOwner": page.IsOwner,
		"Posts":   page.Posts,
		"Page":    page.Page,
	})
}

// editProfile lets the logged-in user edit their own profile.
func (h *ProfileHandler) editProfile(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if !requireLogin(w, r) {
		return nil
	}
	v := viewer(r)

	if r.Method == http.MethodPost {
		form := formFields(r, "username", "email", "first_name", "last_name")
		user, err := h.users.UpdateProfile(r.Context(), v, service.ProfileInput{
			Username:  form["username"],
			Email:     form["email"],
			FirstName: form["first_name"],
			LastName:  form["last_name"],
		})
		if err == nil {
			http.Redirect(w, r, profileURL(user.Username), http.StatusFound)
			return nil
		}
		if verrs, ok := service.AsValidation(err); ok {
			return render(h.view, w, r, "user.html", map[string]interface{}{"Form": form, "Errors": verrs})
		}
		return serviceError(w, r, err, "/")
	}

	user, err := h.users.GetUser(r.Context(), v.ID)
	if err != nil {
		return serviceError(w, r, err, "/")
	}
	form := map[string]string{
		"username":   user.Username,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	}
	return render(h.view, w, r, "user.html", map[string]interface{}{"Form": form})
}
