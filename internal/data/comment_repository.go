package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const commentSelect = `
SELECT cm.id, cm.text, cm.post_id, cm.author_id, cm.created_at, u.username AS author_username
FROM comments cm
JOIN users u ON u.id = cm.author_id`

// SQLCommentRepository is the sqlx implementation of the comment store.
type SQLCommentRepository struct {
	db *sqlx.DB
}

// NewSQLCommentRepository creates a new SQLCommentRepository.
func NewSQLCommentRepository(db *sqlx.DB) *SQLCommentRepository {
	return &SQLCommentRepository{db: db}
}

// CreateComment inserts a comment and sets its ID.
func (r *SQLCommentRepository) CreateComment(ctx context.Context, comment *Comment) error {
	comment.CreatedAt = comment.CreatedAt.UTC()
	res, err := r.db.NamedExecContext(ctx,
		`INSERT INTO comments (text, post_id, author_id, created_at) VALUES (:text, :post_id, :author_id, :created_at)`, comment)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read comment id: %w", err)
	}
	comment.ID = id
	return nil
}

// GetCommentByID retrieves a single comment.
func (r *SQLCommentRepository) GetCommentByID(ctx context.Context, id int64) (*Comment, error) {
	var comment Comment
	if err := r.db.GetContext(ctx, &comment, commentSelect+" WHERE cm.id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("comment with id %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get comment by id: %w", err)
	}
	return &comment, nil
}

// ListByPost returns the comments of a post, oldest first.
func (r *SQLCommentRepository) ListByPost(ctx context.Context, postID int64) ([]*Comment, error) {
	var comments []*Comment
	query := commentSelect + " WHERE cm.post_id = ? ORDER BY cm.created_at, cm.id"
	if err := r.db.SelectContext(ctx, &comments, query, postID); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// UpdateComment replaces the text of a comment.
func (r *SQLCommentRepository) UpdateComment(ctx context.Context, comment *Comment) error {
	result, err := r.db.ExecContext(ctx, `UPDATE comments SET text = ? WHERE id = ?`, comment.Text, comment.ID)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no comment to update with id %d: %w", comment.ID, ErrNotFound)
	}
	return nil
}

// DeleteComment removes a comment by its ID.
func (r *SQLCommentRepository) DeleteComment(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no comment to delete with id %d: %w", id, ErrNotFound)
	}
	return nil
}
