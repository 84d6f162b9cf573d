package service

import (
	"bytes"
	"fmt"
	"go-blog-app/internal/data"
	"html/template"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// ContentCache stores rendered HTML between requests.
type ContentCache interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, ttl time.Duration) error
}

// ContentRenderer turns a post body into safe HTML.
type ContentRenderer interface {
	RenderPost(post *data.Post) template.HTML
}

// MarkdownRenderer renders post text as GitHub-flavoured Markdown and
// sanitizes the result.
type MarkdownRenderer struct {
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
	cache     ContentCache
	ttl       time.Duration
}

// NewMarkdownRenderer creates a renderer. cache may be nil.
func NewMarkdownRenderer(cache ContentCache, ttl time.Duration) *MarkdownRenderer {
	// UGCPolicy keeps basic formatting like links, lists and emphasis
	// while stripping scripts and event handlers.
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.RequireNoReferrerOnLinks(true)

	return &MarkdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		sanitizer: sanitizer,
		cache:     cache,
		ttl:       ttl,
	}
}

// RenderPost returns the sanitized HTML body of the post, from the cache
// when the post has not changed since it was last rendered.
func (r *MarkdownRenderer) RenderPost(post *data.Post) template.HTML {
	key := fmt.Sprintf("post:%d:%d", post.ID, post.UpdatedAt.UnixNano())
	if r.cache != nil {
		if cached, err := r.cache.Get(key); err == nil && cached != nil {
			return template.HTML(cached)
		}
	}

	out := r.Render(post.Text)
	if r.cache != nil {
		// A failed cache write only costs a re-render.
		_ = r.cache.Set(key, []byte(out), r.ttl)
	}
	return out
}

// Render converts Markdown source to sanitized HTML.
func (r *MarkdownRenderer) Render(source string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return template.HTML(r.sanitizer.SanitizeBytes(buf.Bytes()))
}
