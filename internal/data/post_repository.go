package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// postSelect joins everything a listing or detail page needs in one query.
const postSelect = `
SELECT p.id, p.title, p.text, p.pub_date, p.is_published, p.image, p.author_id,
       p.category_id, p.location_id, p.created_at, p.updated_at,
       u.username AS author_username,
       c.title AS category_title, c.slug AS category_slug, c.is_published AS category_published,
       l.name AS location_name,
       (SELECT COUNT(*) FROM comments cm WHERE cm.post_id = p.id) AS comment_count
FROM posts p
JOIN users u ON u.id = p.author_id
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN locations l ON l.id = p.location_id`

// PostFilter narrows a post listing. Zero values mean "no restriction".
type PostFilter struct {
	// VisibleAt keeps only posts that are published, whose category (if any)
	// is published, and whose publication date is not after the instant.
	VisibleAt  *time.Time
	AuthorID   *int64
	CategoryID *int64
}

// where renders the filter as a WHERE clause with its arguments.
func (f PostFilter) where() (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if f.VisibleAt != nil {
		clauses = append(clauses, "p.is_published = ? AND (p.category_id IS NULL OR c.is_published = ?) AND p.pub_date <= ?")
		args = append(args, true, true, f.VisibleAt.UTC())
	}
	if f.AuthorID != nil {
		clauses = append(clauses, "p.author_id = ?")
		args = append(args, *f.AuthorID)
	}
	if f.CategoryID != nil {
		clauses = append(clauses, "p.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// SQLPostRepository is the sqlx implementation of the post store.
type SQLPostRepository struct {
	db *sqlx.DB
}

// NewSQLPostRepository creates a new SQLPostRepository.
func NewSQLPostRepository(db *sqlx.DB) *SQLPostRepository {
	return &SQLPostRepository{db: db}
}

// CreatePost inserts a post and sets its ID.
func (r *SQLPostRepository) CreatePost(ctx context.Context, post *Post) error {
	query := `INSERT INTO posts (title, text, pub_date, is_published, image, author_id, category_id, location_id, created_at, updated_at)
		VALUES (:title, :text, :pub_date, :is_published, :image, :author_id, :category_id, :location_id, :created_at, :updated_at)`
	post.PubDate = post.PubDate.UTC()
	post.CreatedAt = post.CreatedAt.UTC()
	post.UpdatedAt = post.UpdatedAt.UTC()
	res, err := r.db.NamedExecContext(ctx, query, post)
	if err != nil {
		return fmt.Errorf("failed to execute create post query: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read post id: %w", err)
	}
	post.ID = id
	return nil
}

// GetPostByID retrieves a single post with its joined columns.
func (r *SQLPostRepository) GetPostByID(ctx context.Context, id int64) (*Post, error) {
	var post Post
	if err := r.db.GetContext(ctx, &post, postSelect+" WHERE p.id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post with id %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get post by id: %w", err)
	}
	return &post, nil
}

// ListPosts returns one page of posts matching the filter, newest first.
// Posts sharing a publication date are ordered by descending ID.
func (r *SQLPostRepository) ListPosts(ctx context.Context, filter PostFilter, limit, offset int) ([]*Post, error) {
	where, args := filter.where()
	query := postSelect + where + " ORDER BY p.pub_date DESC, p.id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var posts []*Post
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// CountPosts returns how many posts match the filter.
func (r *SQLPostRepository) CountPosts(ctx context.Context, filter PostFilter) (int, error) {
	where, args := filter.where()
	query := `SELECT COUNT(*) FROM posts p LEFT JOIN categories c ON c.id = p.category_id` + where

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

// UpdatePost updates the editable fields of an existing post.
func (r *SQLPostRepository) UpdatePost(ctx context.Context, post *Post) error {
	query := `UPDATE posts SET title = :title, text = :text, pub_date = :pub_date, image = :image,
		category_id = :category_id, location_id = :location_id, updated_at = :updated_at WHERE id = :id`
	post.PubDate = post.PubDate.UTC()
	post.UpdatedAt = post.UpdatedAt.UTC()
	result, err := r.db.NamedExecContext(ctx, query, post)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no post to update with id %d: %w", post.ID, ErrNotFound)
	}
	return nil
}

// DeletePost removes a post by its ID. Its comments go with it.
func (r *SQLPostRepository) DeletePost(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no post to delete with id %d: %w", id, ErrNotFound)
	}
	return nil
}
