package web

import (
	"embed"
	"io/fs"
)

//go:embed all:templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// TemplateFS holds templates/layouts and templates/pages.
var TemplateFS fs.FS = templateFS

// Static returns the embedded assets rooted at the static directory, as
// served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// fs.Sub only fails on an invalid path.
		panic(err)
	}
	return sub
}
