package handler

import (
	"errors"
	"go-blog-app/internal/data"
	"go-blog-app/internal/media"
	"go-blog-app/internal/service"
	"go-blog-app/internal/view"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// acceptedDateLayouts are the publication date formats the post form accepts.
var acceptedDateLayouts = []string{view.InputDateLayout, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"}

// formFields copies the named form values, for redisplay.
func formFields(r *http.Request, names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = r.PostFormValue(n)
	}
	return out
}

var postFormFields = []string{"title", "text", "pub_date", "category", "location"}

// parsePostForm reads the post form. Parse failures are reported as field
// errors next to the redisplayed values.
func parsePostForm(r *http.Request) (service.PostInput, map[string]string, service.ValidationErrors) {
	form := formFields(r, postFormFields...)
	errs := service.ValidationErrors{}
	in := service.PostInput{Title: form["title"], Text: form["text"]}

	if raw := strings.TrimSpace(form["pub_date"]); raw != "" {
		t, err := parseFormDate(raw)
		if err != nil {
			errs.Add("pub_date", "Enter a valid date/time.")
		}
		in.PubDate = t
	}
	var err error
	if in.CategoryID, err = parseOptionalID(form["category"]); err != nil {
		errs.Add("category", "Select a valid choice.")
	}
	if in.LocationID, err = parseOptionalID(form["location"]); err != nil {
		errs.Add("location", "Select a valid choice.")
	}
	return in, form, errs
}

func parseFormDate(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range acceptedDateLayouts {
		t, err := time.ParseInLocation(layout, raw, time.Local)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func parseOptionalID(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return nil, errors.New("invalid id")
	}
	return &id, nil
}

// postFormValues fills the form from a stored post.
func postFormValues(p *data.Post) map[string]string {
	form := map[string]string{
		"title":    p.Title,
		"text":     p.Text,
		"pub_date": p.PubDate.Local().Format(view.InputDateLayout),
	}
	if p.CategoryID != nil {
		form["category"] = strconv.FormatInt(*p.CategoryID, 10)
	}
	if p.LocationID != nil {
		form["location"] = strconv.FormatInt(*p.LocationID, 10)
	}
	return form
}

// imageError converts a storage rejection into a field message.
func imageError(err error) (string, bool) {
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		return "Upload a valid image. The file you uploaded was either not an image or a corrupted image.", true
	case errors.Is(err, media.ErrTooLarge):
		return "The image is too large.", true
	}
	return "", false
}
