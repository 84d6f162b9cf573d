package service

import (
	"context"
	"fmt"
	"go-blog-app/internal/data"
	"strings"
	"time"
)

// CommentRepository defines the interface for database operations on comments.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *data.Comment) error
	GetCommentByID(ctx context.Context, id int64) (*data.Comment, error)
	ListByPost(ctx context.Context, postID int64) ([]*data.Comment, error)
	UpdateComment(ctx context.Context, comment *data.Comment) error
	DeleteComment(ctx context.Context, id int64) error
}

// CommentServicer defines the interface for interacting with comments.
type CommentServicer interface {
	ListForPost(ctx context.Context, postID int64) ([]*data.Comment, error)
	AddComment(ctx context.Context, v Viewer, postID int64, text string) (*data.Comment, error)
	GetCommentForEdit(ctx context.Context, v Viewer, postID, commentID int64) (*data.Comment, error)
	UpdateComment(ctx context.Context, v Viewer, postID, commentID int64, text string) (*data.Comment, error)
	DeleteComment(ctx context.Context, v Viewer, postID, commentID int64) error
}

// CommentService provides business logic for comments.
type CommentService struct {
	comments CommentRepository
	posts    PostRepository
	now      func() time.Time
}

// NewCommentService creates a new CommentService.
func NewCommentService(comments CommentRepository, posts PostRepository) *CommentService {
	return &CommentService{comments: comments, posts: posts, now: time.Now}
}

// WithClock overrides the time source. Used by tests.
func (s *CommentService) WithClock(now func() time.Time) *CommentService {
	s.now = now
	return s
}

func (s *CommentService) clock() time.Time {
	return storedInstant(s.now)
}

// ListForPost returns the comments of a post, oldest first.
func (s *CommentService) ListForPost(ctx context.Context, postID int64) ([]*data.Comment, error) {
	return s.comments.ListByPost(ctx, postID)
}

// AddComment stores a comment by the viewer on an existing post.
func (s *CommentService) AddComment(ctx context.Context, v Viewer, postID int64, text string) (*data.Comment, error) {
	if !v.Authenticated() {
		return nil, ErrUnauthenticated
	}
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	// Commenting needs the same access as reading the post.
	if !CanView(v, post, s.clock()) {
		return nil, fmt.Errorf("post %d hidden from viewer: %w", postID, ErrNotFound)
	}
	if err := validateComment(text); err != nil {
		return nil, err
	}
	comment := &data.Comment{
		Text:      strings.TrimSpace(text),
		PostID:    postID,
		AuthorID:  v.ID,
		CreatedAt: s.clock(),
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// GetCommentForEdit returns a comment of the given post that the viewer may
// mutate. The post must exist and the comment must belong to it.
func (s *CommentService) GetCommentForEdit(ctx context.Context, v Viewer, postID, commentID int64) (*data.Comment, error) {
	if !v.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, mapNotFound(err)
	}
	comment, err := s.comments.GetCommentByID(ctx, commentID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if comment.PostID != postID {
		return nil, fmt.Errorf("comment %d is not on post %d: %w", commentID, postID, ErrNotFound)
	}
	if !Decide(v, CommentContent{comment}, ActionEdit, s.clock()) {
		return nil, ErrNotOwner
	}
	return comment, nil
}

// UpdateComment replaces the text of the viewer's comment.
func (s *CommentService) UpdateComment(ctx context.Context, v Viewer, postID, commentID int64, text string) (*data.Comment, error) {
	comment, err := s.GetCommentForEdit(ctx, v, postID, commentID)
	if err != nil {
		return nil, err
	}
	if err := validateComment(text); err != nil {
		return nil, err
	}
	comment.Text = strings.TrimSpace(text)
	if err := s.comments.UpdateComment(ctx, comment); err != nil {
		return nil, mapNotFound(err)
	}
	return comment, nil
}

// DeleteComment removes the viewer's comment.
func (s *CommentService) DeleteComment(ctx context.Context, v Viewer, postID, commentID int64) error {
	comment, err := s.GetCommentForEdit(ctx, v, postID, commentID)
	if err != nil {
		return err
	}
	return mapNotFound(s.comments.DeleteComment(ctx, comment.ID))
}

func validateComment(text string) error {
	errs := ValidationErrors{}
	if strings.TrimSpace(text) == "" {
		errs.Add("text", "This field is required.")
	}
	return errs.OrNil()
}
