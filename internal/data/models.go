package data

import (
	"database/sql"
	"html/template"
	"time"
)

// User represents a registered author or reader.
type User struct {
	ID           int64          `db:"id"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	PasswordHash string         `db:"password_hash"`
	OIDCSubject  sql.NullString `db:"oidc_subject"`
	CreatedAt    time.Time      `db:"created_at"`
}

// FullName joins the first and last name, falling back to the username.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}

// Category groups posts. Unpublished categories hide all of their posts.
type Category struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Slug        string    `db:"slug"`
	IsPublished bool      `db:"is_published"`
	CreatedAt   time.Time `db:"created_at"`
}

// Location is an optional place a post is tagged with.
type Location struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	IsPublished bool      `db:"is_published"`
	CreatedAt   time.Time `db:"created_at"`
}

// Post represents a single blog post in the database.
type Post struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Text        string    `db:"text"`
	PubDate     time.Time `db:"pub_date"`
	IsPublished bool      `db:"is_published"`
	Image       string    `db:"image"`
	AuthorID    int64     `db:"author_id"`
	CategoryID  *int64    `db:"category_id"`
	LocationID  *int64    `db:"location_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`

	// Joined columns, filled by the select queries.
	AuthorUsername    string         `db:"author_username"`
	CategoryTitle     sql.NullString `db:"category_title"`
	CategorySlug      sql.NullString `db:"category_slug"`
	CategoryPublished sql.NullBool   `db:"category_published"`
	LocationName      sql.NullString `db:"location_name"`
	CommentCount      int            `db:"comment_count"`

	HTMLText template.HTML `db:"-"`
}

// Comment is a reply to exactly one post.
type Comment struct {
	ID        int64     `db:"id"`
	Text      string    `db:"text"`
	PostID    int64     `db:"post_id"`
	AuthorID  int64     `db:"author_id"`
	CreatedAt time.Time `db:"created_at"`

	AuthorUsername string `db:"author_username"`
}
