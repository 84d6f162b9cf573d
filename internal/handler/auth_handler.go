package handler

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"go-blog-app/internal/auth"
	"go-blog-app/internal/data"
	"go-blog-app/internal/logger"
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/service"
	"go-blog-app/internal/session"
	"go-blog-app/internal/view"
	"io"
	"net/http"
	"time"
)

// AuthHandler holds the dependencies for the authentication handlers.
type AuthHandler struct {
	users   service.UserServicer
	session session.Manager
	oidc    *auth.Authenticator
	view    *view.View
	log     logger.Logger
}

// NewAuthHandler creates a new AuthHandler. oidc may be nil when external
// sign-in is not configured.
func NewAuthHandler(us service.UserServicer, sm session.Manager, oidc *auth.Authenticator, v *view.View, log logger.Logger) *AuthHandler {
	return &AuthHandler{users: us, session: sm, oidc: oidc, view: v, log: log}
}

// OIDCEnabled reports whether external sign-in routes are served.
func (h *AuthHandler) OIDCEnabled() bool {
	return h.oidc != nil
}

// register shows and processes the sign-up form.
func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if r.Method != http.MethodPost {
		return render(h.view, w, r, "registration.html", nil)
	}
	form := formFields(r, "username", "email", "first_name", "last_name")
	user, err := h.users.Register(r.Context(), service.RegistrationInput{
		Username:        form["username"],
		Email:           form["email"],
		FirstName:       form["first_name"],
		LastName:        form["last_name"],
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password_confirm"),
	})
	if err != nil {
		if verrs, ok := service.AsValidation(err); ok {
			return render(h.view, w, r, "registration.html", map[string]interface{}{"Form": form, "Errors": verrs})
		}
		return serviceError(w, r, err, "/")
	}
	h.log.Info("User registered: " + user.Username)
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

// login shows the login form and signs users in with their password.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	next := safeNext(r.FormValue("next"), "/")
	vars := map[string]interface{}{
		"Next":        next,
		"OIDCEnabled": h.OIDCEnabled(),
	}
	if r.Method != http.MethodPost {
		return render(h.view, w, r, "login.html", vars)
	}

	username := r.PostFormValue("username")
	user, err := h.users.Authenticate(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			vars["Form"] = map[string]string{"username": username}
			vars["LoginError"] = "Please enter a correct username and password."
			return render(h.view, w, r, "login.html", vars)
		}
		return serviceError(w, r, err, "/")
	}
	if err := h.startSession(r, user); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to start session", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, next, http.StatusFound)
	return nil
}

// logout clears the session and redirects to the home page.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.session.Destroy(r.Context()); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to log out", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

// passwordChange shows and processes the password change form.
func (h *AuthHandler) passwordChange(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if !requireLogin(w, r) {
		return nil
	}
	if r.Method != http.MethodPost {
		return render(h.view, w, r, "password_change.html", nil)
	}
	err := h.users.ChangePassword(r.Context(), viewer(r),
		r.PostFormValue("old_password"), r.PostFormValue("new_password"), r.PostFormValue("new_password_confirm"))
	if err != nil {
		if verrs, ok := service.AsValidation(err); ok {
			return render(h.view, w, r, "password_change.html", map[string]interface{}{"Errors": verrs})
		}
		return serviceError(w, r, err, "/")
	}
	// Keep the user signed in under a fresh token.
	if err := h.session.RenewToken(r.Context()); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to renew session", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, "/auth/password_change/done/", http.StatusFound)
	return nil
}

func (h *AuthHandler) passwordChangeDone(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if !requireLogin(w, r) {
		return nil
	}
	return render(h.view, w, r, "password_change.html", map[string]interface{}{"Done": true})
}

// oidcLogin redirects the user to the OIDC provider to log in.
// It uses a random 'state' string for CSRF protection.
func (h *AuthHandler) oidcLogin(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	state, err := randString(16)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Internal Server Error", Code: http.StatusInternalServerError}
	}
	// Store the state in a short-lived cookie to verify on callback.
	http.SetCookie(w, &http.Cookie{
		Name:     "state",
		Value:    state,
		Path:     "/",
		MaxAge:   int(10 * time.Minute / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
	})
	http.Redirect(w, r, h.oidc.AuthCodeURL(state), http.StatusFound)
	return nil
}

// oidcCallback is the redirect URL for the OIDC provider. The verified
// identity is linked to a local account, created on first sign-in.
func (h *AuthHandler) oidcCallback(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	// Verify the state parameter to prevent CSRF attacks.
	stateCookie, err := r.Cookie("state")
	if err != nil {
		return &middleware.AppError{Error: err, Message: "State cookie not found", Code: http.StatusBadRequest}
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		return &middleware.AppError{Error: errors.New("state mismatch"), Message: "State did not match", Code: http.StatusBadRequest}
	}
	http.SetCookie(w, &http.Cookie{Name: "state", Path: "/", MaxAge: -1})

	claims, err := h.oidc.VerifyCode(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to verify identity", Code: http.StatusUnauthorized}
	}
	user, err := h.users.LoginExternal(r.Context(), claims.Subject, claims.PreferredUsername, claims.Email)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to sign in", Code: http.StatusInternalServerError}
	}
	if err := h.startSession(r, user); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to start session", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

// startSession binds the user to a fresh session token.
func (h *AuthHandler) startSession(r *http.Request, user *data.User) error {
	if err := h.session.RenewToken(r.Context()); err != nil {
		return err
	}
	h.session.Put(r.Context(), session.UserIDKey, user.ID)
	h.log.Info("User logged in: " + user.Username)
	return nil
}

// randString is a helper function to generate a random string for the 'state' parameter.
func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
