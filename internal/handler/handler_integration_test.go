//go:build integration

package handler

import (
	"context"
	"go-blog-app/internal/auth"
	"go-blog-app/internal/config"
	"go-blog-app/internal/data"
	"go-blog-app/internal/logger"
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/service"
	"go-blog-app/internal/session"
	"go-blog-app/internal/view"
	"go-blog-app/web"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/jmoiron/sqlx"
)

type testApp struct {
	server *httptest.Server
	db     *sqlx.DB
	users  map[string]*data.User
}

// setupApp wires the real repositories, services, sessions and policies
// over an in-memory SQLite database.
func setupApp(t *testing.T) *testApp {
	t.Helper()
	log := logger.Nop()

	db, err := data.NewDB(config.DBConfig{Driver: data.DriverSQLite, DSN: "file::memory:"})
	if err != nil {
		t.Fatalf("Failed to connect to sqlite test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	files, err := filepath.Glob("../../migrations/sqlite3/*.up.sql")
	if err != nil || len(files) == 0 {
		t.Fatalf("Failed to find migrations: %v", err)
	}
	for _, f := range files {
		schema, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", f, err)
		}
		db.MustExec(string(schema))
	}

	sessionManager := session.New(config.SessionConfig{Lifetime: 1}, sqlite3store.NewWithCleanupInterval(db.DB, 0), false)

	enforcer, err := auth.NewEnforcer(nil)
	if err != nil {
		t.Fatal(err)
	}
	auth.SeedDefaultPolicies(enforcer, log)
	v, err := view.New(web.TemplateFS)
	if err != nil {
		t.Fatal(err)
	}

	posts := data.NewSQLPostRepository(db)
	categories := data.NewCategoryRepository(db)
	locations := data.NewLocationRepository(db)
	users := data.NewSQLUserRepository(db)
	postService := service.NewPostService(posts, categories, locations, users, service.NewMarkdownRenderer(nil, 0), 10)
	commentService := service.NewCommentService(data.NewSQLCommentRepository(db), posts)
	userService := service.NewUserService(users)

	handlers := Handlers{
		Blog:    NewBlogHandler(postService, commentService, nil, 0, v, log),
		Profile: NewProfileHandler(postService, userService, v, log),
		Auth:    NewAuthHandler(userService, sessionManager, nil, v, log),
		SEO:     NewSeoHandler(postService, "http://blog.test"),
	}
	router := NewRouter(handlers, sessionManager,
		middleware.Authenticate(sessionManager, userService, log),
		middleware.Authorizer(enforcer, v, log),
		middleware.Error(log, v),
		Assets{})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	app := &testApp{server: server, db: db, users: map[string]*data.User{}}
	for _, name := range []string{"alice", "bob"} {
		u, err := userService.Register(context.Background(), service.RegistrationInput{
			Username: name, Email: name + "@example.com", Password: "secret-password", PasswordConfirm: "secret-password",
		})
		if err != nil {
			t.Fatalf("failed to register %s: %v", name, err)
		}
		app.users[name] = u
	}
	return app
}

// client returns an HTTP client with its own cookie jar that does not
// follow redirects.
func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (a *testApp) login(t *testing.T, username string) *http.Client {
	t.Helper()
	c := a.client(t)
	resp := a.post(t, c, "/auth/login/", url.Values{"username": {username}, "password": {"secret-password"}})
	if resp.code != http.StatusFound {
		t.Fatalf("login of %s failed with status %d", username, resp.code)
	}
	return c
}

type response struct {
	code     int
	body     string
	location string
}

func (a *testApp) get(t *testing.T, c *http.Client, path string) response {
	t.Helper()
	resp, err := c.Get(a.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return readResponse(t, resp)
}

func (a *testApp) post(t *testing.T, c *http.Client, path string, form url.Values) response {
	t.Helper()
	resp, err := c.PostForm(a.server.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return readResponse(t, resp)
}

func readResponse(t *testing.T, resp *http.Response) response {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return response{code: resp.StatusCode, body: string(body), location: resp.Header.Get("Location")}
}

func (a *testApp) createPost(t *testing.T, p *data.Post) *data.Post {
	t.Helper()
	if p.Text == "" {
		p.Text = "body of " + p.Title
	}
	if err := data.NewSQLPostRepository(a.db).CreatePost(context.Background(), p); err != nil {
		t.Fatalf("failed to create post %q: %v", p.Title, err)
	}
	return p
}

func (a *testApp) createCategory(t *testing.T, slug string, published bool) int64 {
	t.Helper()
	id, err := data.NewCategoryRepository(a.db).Save(context.Background(), &data.Category{
		Title: "Category " + slug, Slug: slug, Description: slug, IsPublished: published,
	})
	if err != nil {
		t.Fatalf("failed to create category %s: %v", slug, err)
	}
	return id
}

func TestVisibilityAcrossListings(t *testing.T) {
	app := setupApp(t)
	alice := app.users["alice"]
	now := time.Now().UTC()
	open := app.createCategory(t, "open", true)
	closed := app.createCategory(t, "closed", false)

	visible := app.createPost(t, &data.Post{Title: "Visible post", PubDate: now.Add(-time.Hour), IsPublished: true, AuthorID: alice.ID, CategoryID: &open})
	draft := app.createPost(t, &data.Post{Title: "Draft post", PubDate: now.Add(-time.Hour), IsPublished: false, AuthorID: alice.ID})
	hiddenCat := app.createPost(t, &data.Post{Title: "Hidden category post", PubDate: now.Add(-time.Hour), IsPublished: true, AuthorID: alice.ID, CategoryID: &closed})
	scheduled := app.createPost(t, &data.Post{Title: "Tomorrow post", PubDate: now.Add(24 * time.Hour), IsPublished: true, AuthorID: alice.ID})

	anon := app.client(t)
	bob := app.login(t, "bob")
	aliceClient := app.login(t, "alice")

	index := app.get(t, anon, "/")
	if !strings.Contains(index.body, "Visible post") {
		t.Error("index should list the visible post")
	}
	for _, title := range []string{"Draft post", "Hidden category post", "Tomorrow post"} {
		if strings.Contains(index.body, title) {
			t.Errorf("index should not list %q", title)
		}
	}

	for _, p := range []*data.Post{draft, hiddenCat, scheduled} {
		if resp := app.get(t, bob, postURL(p.ID)); resp.code != http.StatusNotFound {
			t.Errorf("non-author detail of %q: want 404; got %d", p.Title, resp.code)
		}
		if resp := app.get(t, aliceClient, postURL(p.ID)); resp.code != http.StatusOK {
			t.Errorf("author detail of %q: want 200; got %d", p.Title, resp.code)
		}
	}
	if resp := app.get(t, anon, postURL(visible.ID)); resp.code != http.StatusOK {
		t.Errorf("visible detail: want 200; got %d", resp.code)
	}

	own := app.get(t, aliceClient, "/profile/alice/")
	others := app.get(t, bob, "/profile/alice/")
	if !strings.Contains(own.body, "Tomorrow post") || !strings.Contains(own.body, "Draft post") {
		t.Error("author should see all their posts on their profile")
	}
	if strings.Contains(others.body, "Tomorrow post") || strings.Contains(others.body, "Hidden category post") {
		t.Error("other users should only see visible posts on a profile")
	}

	if resp := app.get(t, anon, "/category/closed/"); resp.code != http.StatusNotFound {
		t.Errorf("unpublished category: want 404; got %d", resp.code)
	}
	if resp := app.get(t, anon, "/category/open/"); resp.code != http.StatusOK || !strings.Contains(resp.body, "Visible post") {
		t.Errorf("published category: want listing; got %d", resp.code)
	}

	sitemap := app.get(t, anon, "/sitemap.xml")
	if !strings.Contains(sitemap.body, postURL(visible.ID)) || strings.Contains(sitemap.body, postURL(scheduled.ID)) {
		t.Errorf("sitemap should list only visible posts:\n%s", sitemap.body)
	}
}

func TestListingOrder(t *testing.T) {
	app := setupApp(t)
	alice := app.users["alice"]
	at := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)

	older := app.createPost(t, &data.Post{Title: "Older post", PubDate: at.Add(-time.Hour), IsPublished: true, AuthorID: alice.ID})
	first := app.createPost(t, &data.Post{Title: "Tied first", PubDate: at, IsPublished: true, AuthorID: alice.ID})
	second := app.createPost(t, &data.Post{Title: "Tied second", PubDate: at, IsPublished: true, AuthorID: alice.ID})

	body := app.get(t, app.client(t), "/").body
	iSecond := strings.Index(body, second.Title)
	iFirst := strings.Index(body, first.Title)
	iOlder := strings.Index(body, older.Title)
	if iSecond < 0 || iFirst < 0 || iOlder < 0 {
		t.Fatalf("missing posts on the index")
	}
	if !(iSecond < iFirst && iFirst < iOlder) {
		t.Errorf("want newest first with id tie-break; got positions %d, %d, %d", iSecond, iFirst, iOlder)
	}
}

func TestCreatePostFlow(t *testing.T) {
	app := setupApp(t)
	anon := app.client(t)

	resp := app.get(t, anon, "/posts/create/")
	if resp.code != http.StatusFound || !strings.HasPrefix(resp.location, "/auth/login/") {
		t.Fatalf("anonymous create: want login redirect; got %d %q", resp.code, resp.location)
	}

	c := app.login(t, "alice")
	today := time.Now().Format("2006-01-02") + "T00:00"
	resp = app.post(t, c, "/posts/create/", url.Values{"title": {"Fresh post"}, "text": {"Hello *world*"}, "pub_date": {today}})
	if resp.code != http.StatusFound || resp.location != "/profile/alice/" {
		t.Fatalf("create: want redirect to profile; got %d %q\n%s", resp.code, resp.location, resp.body)
	}

	index := app.get(t, anon, "/")
	if !strings.Contains(index.body, "Fresh post") {
		t.Error("new post should be published immediately")
	}

	resp = app.post(t, c, "/posts/create/", url.Values{"title": {""}, "text": {"x"}, "pub_date": {today}})
	if resp.code != http.StatusOK || !strings.Contains(resp.body, "This field is required.") {
		t.Errorf("invalid create: want the form with errors; got %d", resp.code)
	}

	resp = app.post(t, c, "/posts/create/", url.Values{"title": {"Late"}, "text": {"x"}, "pub_date": {"2001-01-01T10:00"}})
	if resp.code != http.StatusOK || !strings.Contains(resp.body, "scheduled publication date") {
		t.Errorf("past date: want the form with a date error; got %d", resp.code)
	}
}

func TestOwnershipFlow(t *testing.T) {
	app := setupApp(t)
	alice := app.users["alice"]
	post := app.createPost(t, &data.Post{Title: "Alice writes", PubDate: time.Now().UTC().Add(-time.Hour), IsPublished: true, AuthorID: alice.ID})
	detail := postURL(post.ID)

	aliceClient := app.login(t, "alice")
	bob := app.login(t, "bob")

	resp := app.post(t, bob, detail+"comment/", url.Values{"text": {"Bob replies"}})
	if resp.code != http.StatusFound || resp.location != detail {
		t.Fatalf("comment: want redirect to detail; got %d %q", resp.code, resp.location)
	}
	if resp := app.post(t, bob, "/posts/4242/comment/", url.Values{"text": {"lost"}}); resp.code != http.StatusNotFound {
		t.Errorf("comment on a missing post: want 404; got %d", resp.code)
	}
	var commentID int64
	if err := app.db.Get(&commentID, "SELECT id FROM comments WHERE post_id = ?", post.ID); err != nil {
		t.Fatalf("comment not stored: %v", err)
	}
	commentPath := func(action string) string {
		return detail + action + "/" + strconv.FormatInt(commentID, 10) + "/"
	}

	// Non-authors are redirected and nothing changes.
	for _, tc := range []struct {
		path string
		form url.Values
	}{
		{detail + "edit/", url.Values{"title": {"Hijacked"}, "text": {"x"}, "pub_date": {"2099-01-01T00:00"}}},
		{detail + "delete/", url.Values{}},
	} {
		if resp := app.post(t, bob, tc.path, tc.form); resp.code != http.StatusFound || resp.location != detail {
			t.Errorf("POST %s by non-author: want redirect to detail; got %d %q", tc.path, resp.code, resp.location)
		}
	}
	for _, path := range []string{commentPath("edit_comment"), commentPath("delete_comment")} {
		if resp := app.post(t, aliceClient, path, url.Values{"text": {"Edited by alice"}}); resp.code != http.StatusFound || resp.location != detail {
			t.Errorf("POST %s by non-author: want redirect to detail; got %d %q", path, resp.code, resp.location)
		}
	}
	page := app.get(t, bob, detail)
	if !strings.Contains(page.body, "Alice writes") || !strings.Contains(page.body, "Bob replies") {
		t.Fatal("content changed after non-author requests")
	}

	// Authors succeed.
	if resp := app.post(t, bob, commentPath("delete_comment"), url.Values{}); resp.code != http.StatusFound || resp.location != detail {
		t.Errorf("comment delete by author: got %d %q", resp.code, resp.location)
	}
	if strings.Contains(app.get(t, bob, detail).body, "Bob replies") {
		t.Error("comment should have been deleted")
	}
	if resp := app.post(t, aliceClient, detail+"delete/", url.Values{}); resp.code != http.StatusFound || resp.location != "/profile/alice/" {
		t.Errorf("post delete by author: got %d %q", resp.code, resp.location)
	}
	if resp := app.get(t, aliceClient, detail); resp.code != http.StatusNotFound {
		t.Errorf("deleted post: want 404; got %d", resp.code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	app := setupApp(t)
	c := app.client(t)

	resp := app.post(t, c, "/auth/login/?next=%2Fprofile%2Fedit%2F", url.Values{"username": {"alice"}, "password": {"secret-password"}, "next": {"/profile/edit/"}})
	if resp.code != http.StatusFound || resp.location != "/profile/edit/" {
		t.Fatalf("login: want redirect to next; got %d %q", resp.code, resp.location)
	}
	if resp := app.get(t, c, "/profile/edit/"); resp.code != http.StatusOK {
		t.Errorf("profile edit after login: want 200; got %d", resp.code)
	}

	resp = app.post(t, c, "/auth/password_change/", url.Values{"old_password": {"secret-password"}, "new_password": {"another-password"}, "new_password_confirm": {"another-password"}})
	if resp.code != http.StatusFound || resp.location != "/auth/password_change/done/" {
		t.Errorf("password change: got %d %q", resp.code, resp.location)
	}

	if resp := app.post(t, c, "/auth/logout/", url.Values{}); resp.code != http.StatusFound {
		t.Errorf("logout: want redirect; got %d", resp.code)
	}
	if resp := app.get(t, c, "/profile/edit/"); resp.code != http.StatusFound || !strings.HasPrefix(resp.location, "/auth/login/") {
		t.Errorf("profile edit after logout: want login redirect; got %d %q", resp.code, resp.location)
	}

	resp = app.post(t, c, "/auth/login/", url.Values{"username": {"alice"}, "password": {"another-password"}})
	if resp.code != http.StatusFound || resp.location != "/" {
		t.Errorf("login with the new password: got %d %q", resp.code, resp.location)
	}
}
