package middleware

import (
	"fmt"
	"go-blog-app/internal/logger"
	"go-blog-app/internal/view"
	"net/http"
)

// AppError represents a custom error type for the application.
type AppError struct {
	Error   error
	Message string
	Code    int
}

// AppHandler is a custom handler function type that returns an AppError.
type AppHandler func(http.ResponseWriter, *http.Request) *AppError

// Error is a middleware that converts handler errors into user-friendly error pages.
func Error(log logger.Logger, v *view.View) func(AppHandler) http.Handler {
	return func(next AppHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					err, ok := rec.(error)
					if !ok {
						err = fmt.Errorf("%v", rec)
					}
					log.Error(err, "Panic recovered")
					RenderError(w, r, v, log, &AppError{Error: err, Message: "Internal Server Error", Code: http.StatusInternalServerError})
				}
			}()

			if err := next(w, r); err != nil {
				RenderError(w, r, v, log, err)
			}
		})
	}
}

// RenderError logs err and writes the error page with its status code.
// Client errors are logged as warnings, server errors as errors.
func RenderError(w http.ResponseWriter, r *http.Request, v *view.View, log logger.Logger, err *AppError) {
	if err.Code == 0 {
		err.Code = http.StatusInternalServerError
	}
	if err.Message == "" {
		err.Message = http.StatusText(err.Code)
	}

	fields := map[string]interface{}{"status": err.Code, "path": r.URL.Path}
	if err.Code >= http.StatusInternalServerError {
		log.With(fields).Error(err.Error, err.Message)
	} else {
		if err.Error != nil {
			fields["error"] = err.Error.Error()
		}
		log.With(fields).Warn(err.Message)
	}

	info := GetUserInfo(r.Context())
	data := map[string]interface{}{
		"StatusCode":  err.Code,
		"StatusText":  err.Message,
		"CurrentUser": info,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(err.Code)
	if rerr := v.Render(w, r, "error.html", data); rerr != nil {
		log.Error(rerr, "Failed to render error page")
	}
}
