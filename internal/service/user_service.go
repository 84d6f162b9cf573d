package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-blog-app/internal/auth"
	"go-blog-app/internal/data"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// UserRepository defines the interface for database operations on users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *data.User) error
	GetUserByID(ctx context.Context, id int64) (*data.User, error)
	GetUserByUsername(ctx context.Context, username string) (*data.User, error)
	GetUserByOIDCSubject(ctx context.Context, subject string) (*data.User, error)
	UpdateProfile(ctx context.Context, user *data.User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// UserServicer defines the interface for accounts and profiles.
type UserServicer interface {
	Register(ctx context.Context, in RegistrationInput) (*data.User, error)
	Authenticate(ctx context.Context, username, password string) (*data.User, error)
	GetUser(ctx context.Context, id int64) (*data.User, error)
	UpdateProfile(ctx context.Context, v Viewer, in ProfileInput) (*data.User, error)
	ChangePassword(ctx context.Context, v Viewer, oldPassword, newPassword, confirm string) error
	LoginExternal(ctx context.Context, subject, preferredUsername, email string) (*data.User, error)
}

// RegistrationInput carries the sign-up form.
type RegistrationInput struct {
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Password        string
	PasswordConfirm string
}

// ProfileInput carries the self-editable profile fields.
type ProfileInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

const (
	maxUsernameLength = 150
	minPasswordLength = 8
)

// usernamePattern allows Unicode letters and digits plus @ . + - _.
var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// UserService provides account and profile logic.
type UserService struct {
	users UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(users UserRepository) *UserService {
	return &UserService{users: users}
}

// Register validates the form and creates a password account.
func (s *UserService) Register(ctx context.Context, in RegistrationInput) (*data.User, error) {
	errs := ValidationErrors{}
	username := strings.TrimSpace(in.Username)
	validateUsername(errs, username)
	validateEmail(errs, in.Email)
	validateNewPassword(errs, "password", in.Password, in.PasswordConfirm)
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &data.User{
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, data.ErrDuplicate) {
			return nil, ValidationErrors{"username": "A user with that username already exists."}
		}
		return nil, err
	}
	return user, nil
}

// Authenticate checks a username and password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*data.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" || !auth.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser returns a user by ID.
func (s *UserService) GetUser(ctx context.Context, id int64) (*data.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return user, nil
}

// UpdateProfile lets the viewer edit their own profile.
func (s *UserService) UpdateProfile(ctx context.Context, v Viewer, in ProfileInput) (*data.User, error) {
	if !v.Authenticated() {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetUserByID(ctx, v.ID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !Decide(v, ProfileContent{user}, ActionEdit, time.Now()) {
		return nil, ErrNotOwner
	}

	errs := ValidationErrors{}
	username := strings.TrimSpace(in.Username)
	validateUsername(errs, username)
	validateEmail(errs, in.Email)
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	user.Username = username
	user.Email = strings.TrimSpace(in.Email)
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, data.ErrDuplicate) {
			return nil, ValidationErrors{"username": "A user with that username already exists."}
		}
		return nil, mapNotFound(err)
	}
	return user, nil
}

// ChangePassword replaces the viewer's password after checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, v Viewer, oldPassword, newPassword, confirm string) error {
	if !v.Authenticated() {
		return ErrUnauthenticated
	}
	user, err := s.users.GetUserByID(ctx, v.ID)
	if err != nil {
		return mapNotFound(err)
	}
	errs := ValidationErrors{}
	if user.PasswordHash != "" && !auth.CheckPassword(oldPassword, user.PasswordHash) {
		errs.Add("old_password", "Your old password was entered incorrectly.")
	}
	validateNewPassword(errs, "new_password", newPassword, confirm)
	if err := errs.OrNil(); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return mapNotFound(s.users.UpdatePassword(ctx, user.ID, hash))
}

// LoginExternal finds the account linked to an OIDC subject, creating one
// on first sign-in. A taken username gets a numeric suffix.
func (s *UserService) LoginExternal(ctx context.Context, subject, preferredUsername, email string) (*data.User, error) {
	user, err := s.users.GetUserByOIDCSubject(ctx, subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, data.ErrNotFound) {
		return nil, err
	}

	base := sanitizeUsername(preferredUsername)
	if base == "" {
		base = sanitizeUsername(strings.Split(email, "@")[0])
	}
	if base == "" {
		base = "user"
	}
	for i := 0; i < 100; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s%d", base, i)
		}
		user = &data.User{
			Username:    candidate,
			Email:       email,
			OIDCSubject: sql.NullString{String: subject, Valid: true},
		}
		err = s.users.CreateUser(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, data.ErrDuplicate) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("no free username for %q: %w", base, err)
}

func validateUsername(errs ValidationErrors, username string) {
	switch {
	case username == "":
		errs.Add("username", "This field is required.")
	case utf8.RuneCountInString(username) > maxUsernameLength:
		errs.Add("username", fmt.Sprintf("Ensure this value has at most %d characters.", maxUsernameLength))
	case !usernamePattern.MatchString(username):
		errs.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
}

func validateEmail(errs ValidationErrors, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		return
	}
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		errs.Add("email", "Enter a valid email address.")
	}
}

func validateNewPassword(errs ValidationErrors, field, password, confirm string) {
	switch {
	case password == "":
		errs.Add(field, "This field is required.")
	case utf8.RuneCountInString(password) < minPasswordLength:
		errs.Add(field, fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength))
	case password != confirm:
		errs.Add(field+"_confirm", "The two password fields didn't match.")
	}
}

// sanitizeUsername keeps only the characters usernames allow.
func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range s {
		if usernamePattern.MatchString(string(r)) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > maxUsernameLength-3 {
		out = out[:maxUsernameLength-3]
	}
	return out
}
