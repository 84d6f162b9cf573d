package handler

import (
	"encoding/xml"
	"fmt"
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/service"
	"net/http"
	"strings"
)

// SeoHandler holds dependencies for SEO-related handlers.
type SeoHandler struct {
	posts   service.PostServicer
	baseURL string
}

// NewSeoHandler creates a new SeoHandler. baseURL prefixes every sitemap entry.
func NewSeoHandler(ps service.PostServicer, baseURL string) *SeoHandler {
	return &SeoHandler{posts: ps, baseURL: strings.TrimRight(baseURL, "/")}
}

// robotsHandler serves a static robots.txt file.
func (h *SeoHandler) robotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "User-agent: *")
	fmt.Fprintln(w, "Allow: /")
	fmt.Fprintln(w, "Disallow: /auth/")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Sitemap: %s/sitemap.xml\n", h.baseURL)
}

const sitemapDateFormat = "2006-01-02"

type sitemapURL struct {
	XMLName xml.Name `xml:"url"`
	Loc     string   `xml:"loc"`
	LastMod string   `xml:"lastmod,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// sitemapHandler lists the home page, published categories and visible posts.
func (h *SeoHandler) sitemapHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	posts, categories, err := h.posts.ListSitemap(r.Context())
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to generate sitemap", Code: http.StatusInternalServerError}
	}

	sitemap := urlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  make([]sitemapURL, 0, len(posts)+len(categories)+1),
	}
	sitemap.URLs = append(sitemap.URLs, sitemapURL{Loc: h.baseURL + "/"})
	for _, c := range categories {
		sitemap.URLs = append(sitemap.URLs, sitemapURL{Loc: h.baseURL + "/category/" + c.Slug + "/"})
	}
	for _, p := range posts {
		sitemap.URLs = append(sitemap.URLs, sitemapURL{
			Loc:     h.baseURL + postURL(p.ID),
			LastMod: p.UpdatedAt.Format(sitemapDateFormat),
		})
	}

	body, err := xml.MarshalIndent(sitemap, "", "  ")
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to generate sitemap XML", Code: http.StatusInternalServerError}
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(xml.Header))
	w.Write(body)
	return nil
}
