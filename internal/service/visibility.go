package service

import (
	"go-blog-app/internal/data"
	"time"
)

// Viewer is the identity a request acts as. The zero Viewer is anonymous.
type Viewer struct {
	ID       int64
	Username string
}

// Anonymous is the viewer of requests without a logged-in user.
var Anonymous = Viewer{}

// Authenticated reports whether the viewer is a logged-in user.
func (v Viewer) Authenticated() bool {
	return v.ID != 0
}

// Action is something a viewer may try to do with a piece of content.
type Action int

const (
	ActionView Action = iota
	ActionList
	ActionEdit
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionView:
		return "view"
	case ActionList:
		return "list"
	case ActionEdit:
		return "edit"
	case ActionDelete:
		return "delete"
	}
	return "unknown"
}

// Content is an authored item the filter can reason about.
type Content interface {
	// Owner returns the ID of the user allowed to mutate the item.
	Owner() int64
	// VisibleAt reports whether non-owners may see the item at the instant.
	VisibleAt(now time.Time) bool
}

// IsVisible is the public visibility rule for posts: the post is published,
// its category (when it has one) is published, and its publication date has
// been reached.
func IsVisible(p *data.Post, now time.Time) bool {
	if !p.IsPublished {
		return false
	}
	if p.CategoryID != nil && !(p.CategoryPublished.Valid && p.CategoryPublished.Bool) {
		return false
	}
	return !p.PubDate.After(now)
}

// IsOwner reports whether the viewer is the authenticated owner.
func IsOwner(v Viewer, ownerID int64) bool {
	return v.Authenticated() && v.ID == ownerID
}

// CanView reports whether the viewer may see the post: authors always see
// their own posts, everyone else only visible ones.
func CanView(v Viewer, p *data.Post, now time.Time) bool {
	return Decide(v, PostContent{p}, ActionView, now)
}

// Decide returns whether v may perform a on c.
func Decide(v Viewer, c Content, a Action, now time.Time) bool {
	switch a {
	case ActionView, ActionList:
		return IsOwner(v, c.Owner()) || c.VisibleAt(now)
	case ActionEdit, ActionDelete:
		return IsOwner(v, c.Owner())
	}
	return false
}

// PostContent adapts a post to Content.
type PostContent struct{ *data.Post }

func (p PostContent) Owner() int64                 { return p.AuthorID }
func (p PostContent) VisibleAt(now time.Time) bool { return IsVisible(p.Post, now) }

// CommentContent adapts a comment to Content. A comment is as visible as
// the post it was looked up through.
type CommentContent struct{ *data.Comment }

func (c CommentContent) Owner() int64             { return c.AuthorID }
func (c CommentContent) VisibleAt(time.Time) bool { return true }

// ProfileContent adapts a user profile to Content. Profiles are public;
// only the user may edit their own.
type ProfileContent struct{ *data.User }

func (u ProfileContent) Owner() int64             { return u.ID }
func (u ProfileContent) VisibleAt(time.Time) bool { return true }

// storedInstant returns now() at the precision timestamps are stored with.
// Every visibility check compares against this instant.
func storedInstant(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Second)
}
