package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// LocationRepository handles database operations for locations.
type LocationRepository struct {
	DB *sqlx.DB
}

// NewLocationRepository creates a new LocationRepository.
func NewLocationRepository(db *sqlx.DB) *LocationRepository {
	return &LocationRepository{DB: db}
}

// GetByID finds a location by its ID.
func (r *LocationRepository) GetByID(ctx context.Context, id int64) (*Location, error) {
	var location Location
	err := r.DB.GetContext(ctx, &location, "SELECT * FROM locations WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("location with id %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get location by id: %w", err)
	}
	return &location, nil
}

// GetAll retrieves every location.
func (r *LocationRepository) GetAll(ctx context.Context) ([]*Location, error) {
	var locations []*Location
	if err := r.DB.SelectContext(ctx, &locations, "SELECT * FROM locations ORDER BY name"); err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}

// GetPublished retrieves the locations offered on the post form.
func (r *LocationRepository) GetPublished(ctx context.Context) ([]*Location, error) {
	var locations []*Location
	err := r.DB.SelectContext(ctx, &locations, "SELECT * FROM locations WHERE is_published = ? ORDER BY name", true)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}

// Save creates a new location and returns its ID.
func (r *LocationRepository) Save(ctx context.Context, location *Location) (int64, error) {
	if location.CreatedAt.IsZero() {
		location.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	res, err := r.DB.NamedExecContext(ctx,
		"INSERT INTO locations (name, is_published, created_at) VALUES (:name, :is_published, :created_at)", location)
	if err != nil {
		return 0, fmt.Errorf("failed to save location: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	location.ID = id
	return id, nil
}
