package service

import (
	"context"
	"errors"
	"fmt"
	"go-blog-app/internal/data"
	"strings"
	"time"
	"unicode/utf8"
)

// PostRepository defines the interface for database operations on posts.
type PostRepository interface {
	CreatePost(ctx context.Context, post *data.Post) error
	GetPostByID(ctx context.Context, id int64) (*data.Post, error)
	ListPosts(ctx context.Context, filter data.PostFilter, limit, offset int) ([]*data.Post, error)
	CountPosts(ctx context.Context, filter data.PostFilter) (int, error)
	UpdatePost(ctx context.Context, post *data.Post) error
	DeletePost(ctx context.Context, id int64) error
}

// CategoryRepository defines the interface for database operations on categories.
type CategoryRepository interface {
	GetBySlug(ctx context.Context, slug string) (*data.Category, error)
	GetByID(ctx context.Context, id int64) (*data.Category, error)
	GetAll(ctx context.Context) ([]*data.Category, error)
	GetPublished(ctx context.Context) ([]*data.Category, error)
	Save(ctx context.Context, category *data.Category) (int64, error)
	SetPublished(ctx context.Context, slug string, published bool) error
}

// LocationRepository defines the interface for database operations on locations.
type LocationRepository interface {
	GetByID(ctx context.Context, id int64) (*data.Location, error)
	GetAll(ctx context.Context) ([]*data.Location, error)
	GetPublished(ctx context.Context) ([]*data.Location, error)
	Save(ctx context.Context, location *data.Location) (int64, error)
}

// PostServicer defines the interface for interacting with posts.
type PostServicer interface {
	ListPublic(ctx context.Context, page int) (*PostPage, error)
	ListCategory(ctx context.Context, slug string, page int) (*CategoryPage, error)
	ListProfile(ctx context.Context, v Viewer, username string, page int) (*ProfilePage, error)
	ListSitemap(ctx context.Context) ([]*data.Post, []*data.Category, error)
	GetPost(ctx context.Context, v Viewer, id int64) (*data.Post, error)
	GetPostForEdit(ctx context.Context, v Viewer, id int64) (*data.Post, error)
	CreatePost(ctx context.Context, v Viewer, in PostInput) (*data.Post, error)
	UpdatePost(ctx context.Context, v Viewer, id int64, in PostInput) (*data.Post, error)
	DeletePost(ctx context.Context, v Viewer, id int64) (*data.Post, error)
	FormChoices(ctx context.Context, post *data.Post) (*FormChoices, error)
}

// PostInput carries the user-editable fields of a post.
type PostInput struct {
	Title      string
	Text       string
	PubDate    time.Time
	CategoryID *int64
	LocationID *int64
	// Image is the stored media name. On update, empty keeps the current image.
	Image string
}

// PostPage is one page of posts.
type PostPage struct {
	Posts []*data.Post
	Page  Page
}

// CategoryPage is one page of a category listing.
type CategoryPage struct {
	Category *data.Category
	PostPage
}

// ProfilePage is one page of a user's posts.
type ProfilePage struct {
	Profile *data.User
	IsOwner bool
	PostPage
}

// FormChoices holds the options shown on the post form.
type FormChoices struct {
	Categories []*data.Category
	Locations  []*data.Location
}

const maxTitleLength = 256

// PostService provides business logic for posts, applying the visibility
// and ownership rules before every read and write.
type PostService struct {
	posts      PostRepository
	categories CategoryRepository
	locations  LocationRepository
	users      UserRepository
	renderer   ContentRenderer
	pageSize   int
	now        func() time.Time
}

// NewPostService creates a new PostService. renderer may be nil, in which
// case post bodies are not rendered.
func NewPostService(posts PostRepository, categories CategoryRepository, locations LocationRepository,
	users UserRepository, renderer ContentRenderer, pageSize int) *PostService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &PostService{
		posts:      posts,
		categories: categories,
		locations:  locations,
		users:      users,
		renderer:   renderer,
		pageSize:   pageSize,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Used by tests.
func (s *PostService) WithClock(now func() time.Time) *PostService {
	s.now = now
	return s
}

func (s *PostService) clock() time.Time {
	return storedInstant(s.now)
}

func (s *PostService) list(ctx context.Context, filter data.PostFilter, number int) (*PostPage, error) {
	total, err := s.posts.CountPosts(ctx, filter)
	if err != nil {
		return nil, err
	}
	page, err := NewPage(number, s.pageSize, total)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListPosts(ctx, filter, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	return &PostPage{Posts: posts, Page: page}, nil
}

// ListPublic returns a page of the posts visible to everyone.
func (s *PostService) ListPublic(ctx context.Context, page int) (*PostPage, error) {
	now := s.clock()
	return s.list(ctx, data.PostFilter{VisibleAt: &now}, page)
}

// ListCategory returns a page of the visible posts in a published category.
func (s *PostService) ListCategory(ctx context.Context, slug string, page int) (*CategoryPage, error) {
	category, err := s.categories.GetBySlug(ctx, slug)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !category.IsPublished {
		return nil, fmt.Errorf("category %q is unpublished: %w", slug, ErrNotFound)
	}
	now := s.clock()
	posts, err := s.list(ctx, data.PostFilter{VisibleAt: &now, CategoryID: &category.ID}, page)
	if err != nil {
		return nil, err
	}
	return &CategoryPage{Category: category, PostPage: *posts}, nil
}

// ListProfile returns a page of a user's posts. The owner sees every post
// they wrote; other viewers see only the visible ones.
func (s *PostService) ListProfile(ctx context.Context, v Viewer, username string, page int) (*ProfilePage, error) {
	profile, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, mapNotFound(err)
	}
	owner := IsOwner(v, profile.ID)
	filter := data.PostFilter{AuthorID: &profile.ID}
	if !owner {
		now := s.clock()
		filter.VisibleAt = &now
	}
	posts, err := s.list(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	return &ProfilePage{Profile: profile, IsOwner: owner, PostPage: *posts}, nil
}

// ListSitemap returns every visible post and published category.
func (s *PostService) ListSitemap(ctx context.Context) ([]*data.Post, []*data.Category, error) {
	now := s.clock()
	filter := data.PostFilter{VisibleAt: &now}
	total, err := s.posts.CountPosts(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	posts, err := s.posts.ListPosts(ctx, filter, total, 0)
	if err != nil {
		return nil, nil, err
	}
	categories, err := s.categories.GetPublished(ctx)
	if err != nil {
		return nil, nil, err
	}
	return posts, categories, nil
}

// GetPost returns a post for its detail page. Posts the viewer may not see
// are reported as not found.
func (s *PostService) GetPost(ctx context.Context, v Viewer, id int64) (*data.Post, error) {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !Decide(v, PostContent{post}, ActionView, s.clock()) {
		return nil, fmt.Errorf("post %d hidden from viewer: %w", id, ErrNotFound)
	}
	if s.renderer != nil {
		post.HTMLText = s.renderer.RenderPost(post)
	}
	return post, nil
}

// GetPostForEdit returns a post the viewer is allowed to mutate.
func (s *PostService) GetPostForEdit(ctx context.Context, v Viewer, id int64) (*data.Post, error) {
	if !v.Authenticated() {
		return nil, ErrUnauthenticated
	}
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !Decide(v, PostContent{post}, ActionEdit, s.clock()) {
		return nil, ErrNotOwner
	}
	return post, nil
}

// CreatePost validates the input and stores a new published post authored
// by the viewer.
func (s *PostService) CreatePost(ctx context.Context, v Viewer, in PostInput) (*data.Post, error) {
	if !v.Authenticated() {
		return nil, ErrUnauthenticated
	}
	now := s.clock()
	if err := s.validate(ctx, in, now, true, nil); err != nil {
		return nil, err
	}
	post := &data.Post{
		Title:       strings.TrimSpace(in.Title),
		Text:        in.Text,
		PubDate:     in.PubDate.UTC().Truncate(time.Second),
		IsPublished: true,
		Image:       in.Image,
		AuthorID:    v.ID,
		CategoryID:  in.CategoryID,
		LocationID:  in.LocationID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost applies the input to a post owned by the viewer.
func (s *PostService) UpdatePost(ctx context.Context, v Viewer, id int64, in PostInput) (*data.Post, error) {
	post, err := s.GetPostForEdit(ctx, v, id)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	// An unchanged date may already lie in the past; only a new one is checked.
	dateChanged := !in.PubDate.UTC().Truncate(time.Second).Equal(post.PubDate.UTC().Truncate(time.Second))
	// The post keeps its category even if that category was unpublished since.
	if err := s.validate(ctx, in, now, dateChanged, post.CategoryID); err != nil {
		return nil, err
	}
	post.Title = strings.TrimSpace(in.Title)
	post.Text = in.Text
	post.PubDate = in.PubDate.UTC().Truncate(time.Second)
	post.CategoryID = in.CategoryID
	post.LocationID = in.LocationID
	if in.Image != "" {
		post.Image = in.Image
	}
	post.UpdatedAt = now
	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, mapNotFound(err)
	}
	return post, nil
}

// DeletePost removes a post owned by the viewer and returns what was removed.
func (s *PostService) DeletePost(ctx context.Context, v Viewer, id int64) (*data.Post, error) {
	post, err := s.GetPostForEdit(ctx, v, id)
	if err != nil {
		return nil, err
	}
	if err := s.posts.DeletePost(ctx, id); err != nil {
		return nil, mapNotFound(err)
	}
	return post, nil
}

// FormChoices returns the published categories and locations. When editing,
// post is the stored post and its current category is offered even if it is
// no longer published.
func (s *PostService) FormChoices(ctx context.Context, post *data.Post) (*FormChoices, error) {
	categories, err := s.categories.GetPublished(ctx)
	if err != nil {
		return nil, err
	}
	if post != nil && post.CategoryID != nil && !containsCategory(categories, *post.CategoryID) {
		current, err := s.categories.GetByID(ctx, *post.CategoryID)
		switch {
		case err == nil:
			categories = append(categories, current)
		case !errors.Is(err, data.ErrNotFound):
			return nil, err
		}
	}
	locations, err := s.locations.GetPublished(ctx)
	if err != nil {
		return nil, err
	}
	return &FormChoices{Categories: categories, Locations: locations}, nil
}

func containsCategory(categories []*data.Category, id int64) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// validate checks the post fields. checkDate enables the scheduled
// publication check: the date may be today or later, never earlier.
// currentCategory is accepted even when unpublished.
func (s *PostService) validate(ctx context.Context, in PostInput, now time.Time, checkDate bool, currentCategory *int64) error {
	errs := ValidationErrors{}
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		errs.Add("title", "This field is required.")
	case utf8.RuneCountInString(title) > maxTitleLength:
		errs.Add("title", fmt.Sprintf("Ensure this value has at most %d characters.", maxTitleLength))
	}
	if strings.TrimSpace(in.Text) == "" {
		errs.Add("text", "This field is required.")
	}
	if in.PubDate.IsZero() {
		errs.Add("pub_date", "This field is required.")
	} else if checkDate && startOfDay(in.PubDate).Before(startOfDay(now)) {
		errs.Add("pub_date", "Expected today's date or a scheduled publication date.")
	}
	if in.CategoryID != nil {
		category, err := s.categories.GetByID(ctx, *in.CategoryID)
		switch {
		case errors.Is(err, data.ErrNotFound):
			errs.Add("category", "Select a valid choice.")
		case err != nil:
			return err
		case !category.IsPublished && (currentCategory == nil || *currentCategory != category.ID):
			errs.Add("category", "Select a valid choice.")
		}
	}
	if in.LocationID != nil {
		_, err := s.locations.GetByID(ctx, *in.LocationID)
		switch {
		case errors.Is(err, data.ErrNotFound):
			errs.Add("location", "Select a valid choice.")
		case err != nil:
			return err
		}
	}
	return errs.OrNil()
}

// startOfDay truncates t to midnight in the server's local time zone.
func startOfDay(t time.Time) time.Time {
	t = t.Local()
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// mapNotFound converts a repository miss into the service sentinel.
func mapNotFound(err error) error {
	if errors.Is(err, data.ErrNotFound) {
		return fmt.Errorf("%v: %w", err, ErrNotFound)
	}
	return err
}
