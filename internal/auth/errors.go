package auth

import "errors"

// ErrMissingIDToken is returned when the token response has no id_token field.
var ErrMissingIDToken = errors.New("no id_token field in oauth2 token")
