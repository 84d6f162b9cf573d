//go:build unit

package service

import (
	"context"
	"fmt"
	"go-blog-app/internal/data"
	"sort"
	"time"
)

// mockPostRepository is an in-memory implementation of PostRepository.
type mockPostRepository struct {
	posts   map[int64]*data.Post
	nextID  int64
	deleted []int64
}

func newMockPostRepository(posts ...*data.Post) *mockPostRepository {
	m := &mockPostRepository{posts: make(map[int64]*data.Post)}
	for _, p := range posts {
		if p.ID > m.nextID {
			m.nextID = p.ID
		}
		m.posts[p.ID] = p
	}
	return m
}

func (m *mockPostRepository) CreatePost(ctx context.Context, post *data.Post) error {
	m.nextID++
	post.ID = m.nextID
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m *mockPostRepository) GetPostByID(ctx context.Context, id int64) (*data.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, fmt.Errorf("post with id %d: %w", id, data.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *mockPostRepository) matching(filter data.PostFilter) []*data.Post {
	var out []*data.Post
	for _, p := range m.posts {
		if filter.VisibleAt != nil && !IsVisible(p, *filter.VisibleAt) {
			continue
		}
		if filter.AuthorID != nil && p.AuthorID != *filter.AuthorID {
			continue
		}
		if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PubDate.Equal(out[j].PubDate) {
			return out[i].PubDate.After(out[j].PubDate)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *mockPostRepository) ListPosts(ctx context.Context, filter data.PostFilter, limit, offset int) ([]*data.Post, error) {
	all := m.matching(filter)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *mockPostRepository) CountPosts(ctx context.Context, filter data.PostFilter) (int, error) {
	return len(m.matching(filter)), nil
}

func (m *mockPostRepository) UpdatePost(ctx context.Context, post *data.Post) error {
	if _, ok := m.posts[post.ID]; !ok {
		return data.ErrNotFound
	}
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m *mockPostRepository) DeletePost(ctx context.Context, id int64) error {
	if _, ok := m.posts[id]; !ok {
		return data.ErrNotFound
	}
	delete(m.posts, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// mockCategoryRepository is an in-memory implementation of CategoryRepository.
type mockCategoryRepository struct {
	categories []*data.Category
}

func (m *mockCategoryRepository) GetBySlug(ctx context.Context, slug string) (*data.Category, error) {
	for _, c := range m.categories {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, data.ErrNotFound
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id int64) (*data.Category, error) {
	for _, c := range m.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, data.ErrNotFound
}

func (m *mockCategoryRepository) GetAll(ctx context.Context) ([]*data.Category, error) {
	return m.categories, nil
}

func (m *mockCategoryRepository) GetPublished(ctx context.Context) ([]*data.Category, error) {
	var out []*data.Category
	for _, c := range m.categories {
		if c.IsPublished {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCategoryRepository) Save(ctx context.Context, category *data.Category) (int64, error) {
	for _, c := range m.categories {
		if c.Slug == category.Slug {
			return 0, data.ErrDuplicate
		}
	}
	category.ID = int64(len(m.categories) + 1)
	m.categories = append(m.categories, category)
	return category.ID, nil
}

func (m *mockCategoryRepository) SetPublished(ctx context.Context, slug string, published bool) error {
	c, err := m.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	c.IsPublished = published
	return nil
}

// mockLocationRepository is an in-memory implementation of LocationRepository.
type mockLocationRepository struct {
	locations []*data.Location
}

func (m *mockLocationRepository) GetByID(ctx context.Context, id int64) (*data.Location, error) {
	for _, l := range m.locations {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, data.ErrNotFound
}

func (m *mockLocationRepository) GetAll(ctx context.Context) ([]*data.Location, error) {
	return m.locations, nil
}

func (m *mockLocationRepository) GetPublished(ctx context.Context) ([]*data.Location, error) {
	var out []*data.Location
	for _, l := range m.locations {
		if l.IsPublished {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLocationRepository) Save(ctx context.Context, location *data.Location) (int64, error) {
	location.ID = int64(len(m.locations) + 1)
	m.locations = append(m.locations, location)
	return location.ID, nil
}

// mockUserRepository is an in-memory implementation of UserRepository.
type mockUserRepository struct {
	users map[int64]*data.User
}

func newMockUserRepository(users ...*data.User) *mockUserRepository {
	m := &mockUserRepository{users: make(map[int64]*data.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepository) CreateUser(ctx context.Context, user *data.User) error {
	for _, u := range m.users {
		if u.Username == user.Username {
			return data.ErrDuplicate
		}
	}
	user.ID = int64(len(m.users) + 1)
	user.CreatedAt = time.Now()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepository) GetUserByID(ctx context.Context, id int64) (*data.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepository) GetUserByUsername(ctx context.Context, username string) (*data.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, data.ErrNotFound
}

func (m *mockUserRepository) GetUserByOIDCSubject(ctx context.Context, subject string) (*data.User, error) {
	for _, u := range m.users {
		if u.OIDCSubject.Valid && u.OIDCSubject.String == subject {
			cp := *u
			return &cp, nil
		}
	}
	return nil, data.ErrNotFound
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, user *data.User) error {
	for _, u := range m.users {
		if u.Username == user.Username && u.ID != user.ID {
			return data.ErrDuplicate
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return data.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

// mockCommentRepository is an in-memory implementation of CommentRepository.
type mockCommentRepository struct {
	comments map[int64]*data.Comment
	nextID   int64
}

func newMockCommentRepository(comments ...*data.Comment) *mockCommentRepository {
	m := &mockCommentRepository{comments: make(map[int64]*data.Comment)}
	for _, c := range comments {
		if c.ID > m.nextID {
			m.nextID = c.ID
		}
		m.comments[c.ID] = c
	}
	return m
}

func (m *mockCommentRepository) CreateComment(ctx context.Context, comment *data.Comment) error {
	m.nextID++
	comment.ID = m.nextID
	cp := *comment
	m.comments[comment.ID] = &cp
	return nil
}

func (m *mockCommentRepository) GetCommentByID(ctx context.Context, id int64) (*data.Comment, error) {
	c, ok := m.comments[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCommentRepository) ListByPost(ctx context.Context, postID int64) ([]*data.Comment, error) {
	var out []*data.Comment
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockCommentRepository) UpdateComment(ctx context.Context, comment *data.Comment) error {
	if _, ok := m.comments[comment.ID]; !ok {
		return data.ErrNotFound
	}
	cp := *comment
	m.comments[comment.ID] = &cp
	return nil
}

func (m *mockCommentRepository) DeleteComment(ctx context.Context, id int64) error {
	if _, ok := m.comments[id]; !ok {
		return data.ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

// mockCache is an in-memory ContentCache that counts writes.
type mockCache struct {
	items map[string][]byte
	sets  int
}

func (m *mockCache) Get(key string) ([]byte, error) {
	return m.items[key], nil
}

func (m *mockCache) Set(key string, value []byte, ttl time.Duration) error {
	if m.items == nil {
		m.items = make(map[string][]byte)
	}
	m.items[key] = value
	m.sets++
	return nil
}

func int64Ptr(v int64) *int64 { return &v }
