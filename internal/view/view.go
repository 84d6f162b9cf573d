package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// InputDateLayout is the datetime-local form field format.
const InputDateLayout = "2006-01-02T15:04"

var functions = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("2 January 2006, 15:04")
	},
	"inputDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format(InputDateLayout)
	},
	// linebreaks escapes plain text and keeps its line breaks.
	"linebreaks": func(s string) template.HTML {
		escaped := template.HTMLEscapeString(strings.ReplaceAll(s, "\r\n", "\n"))
		return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
	},
	"truncatewords": func(s string, n int) string {
		words := strings.Fields(s)
		if len(words) <= n {
			return strings.Join(words, " ")
		}
		return strings.Join(words[:n], " ") + " …"
	},
	"selected": func(current *int64, id int64) bool {
		return current != nil && *current == id
	},
}

// View represents a collection of parsed HTML templates.
type View struct {
	templates map[string]*template.Template
}

// New creates a new View by parsing all templates from the given filesystem.
func New(templateFS fs.FS) (*View, error) {
	v := &View{
		templates: make(map[string]*template.Template),
	}

	// First, get all the layout files
	layouts, err := fs.Glob(templateFS, "templates/layouts/*.html")
	if err != nil {
		return nil, err
	}

	// Then, get all the page files
	pages, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	// For each page, parse it with the layout files
	for _, page := range pages {
		files := append(append([]string{}, layouts...), page)
		// The name of the template is the base name of the page file
		name := filepath.Base(page)
		ts, err := template.New(name).Funcs(functions).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		v.templates[name] = ts
	}

	return v, nil
}

// Render executes a page template within the base layout.
func (v *View) Render(w io.Writer, r *http.Request, name string, data map[string]interface{}) error {
	ts, ok := v.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	if data == nil {
		data = make(map[string]interface{})
	}
	if _, ok := data["CurrentPath"]; !ok && r != nil {
		data["CurrentPath"] = r.URL.RequestURI()
	}

	// Execute the template into a buffer first to catch any errors
	// before writing to the response writer.
	buf := new(bytes.Buffer)
	if err := ts.ExecuteTemplate(buf, "base", data); err != nil {
		return err
	}

	_, err := buf.WriteTo(w)
	return err
}
