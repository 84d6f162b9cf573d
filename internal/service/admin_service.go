package service

import (
	"context"
	"errors"
	"go-blog-app/internal/data"
	"regexp"
	"strings"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// AdminService backs the administrator tooling for categories and locations.
type AdminService struct {
	categories CategoryRepository
	locations  LocationRepository
}

// NewAdminService creates a new AdminService.
func NewAdminService(categories CategoryRepository, locations LocationRepository) *AdminService {
	return &AdminService{categories: categories, locations: locations}
}

// AddCategory creates a category.
func (s *AdminService) AddCategory(ctx context.Context, title, slug, description string, published bool) (*data.Category, error) {
	errs := ValidationErrors{}
	title = strings.TrimSpace(title)
	if title == "" {
		errs.Add("title", "This field is required.")
	}
	if !slugPattern.MatchString(slug) {
		errs.Add("slug", "Enter a valid slug consisting of letters, numbers, underscores or hyphens.")
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	category := &data.Category{Title: title, Slug: slug, Description: description, IsPublished: published}
	if _, err := s.categories.Save(ctx, category); err != nil {
		if errors.Is(err, data.ErrDuplicate) {
			return nil, ValidationErrors{"slug": "A category with this slug already exists."}
		}
		return nil, err
	}
	return category, nil
}

// SetCategoryPublished publishes or hides a category and, with it, its posts.
func (s *AdminService) SetCategoryPublished(ctx context.Context, slug string, published bool) error {
	return mapNotFound(s.categories.SetPublished(ctx, slug, published))
}

// ListCategories returns every category.
func (s *AdminService) ListCategories(ctx context.Context) ([]*data.Category, error) {
	return s.categories.GetAll(ctx)
}

// AddLocation creates a location.
func (s *AdminService) AddLocation(ctx context.Context, name string, published bool) (*data.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ValidationErrors{"name": "This field is required."}
	}
	location := &data.Location{Name: name, IsPublished: published}
	if _, err := s.locations.Save(ctx, location); err != nil {
		return nil, err
	}
	return location, nil
}

// ListLocations returns every location.
func (s *AdminService) ListLocations(ctx context.Context) ([]*data.Location, error) {
	return s.locations.GetAll(ctx)
}
