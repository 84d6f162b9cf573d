package main

import (
	"context"
	"errors"
	"fmt"
	"go-blog-app/internal/auth"
	"go-blog-app/internal/cache"
	"go-blog-app/internal/config"
	"go-blog-app/internal/data"
	"go-blog-app/internal/handler"
	"go-blog-app/internal/logger"
	"go-blog-app/internal/media"
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/service"
	"go-blog-app/internal/session"
	"go-blog-app/internal/view"
	"go-blog-app/web"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, nil)

	// --- Pre-flight Checks ---
	if cfg.Session.SecretKey == "" || cfg.Session.SecretKey == config.DefaultSecretKey {
		log.Fatal(errors.New("session secret key not set"), "Please set a secure BLOG_SESSION_SECRET_KEY environment variable.")
	}

	// --- Database Initialization and Migration ---
	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(cfg.DB); err != nil {
		log.Fatal(err, "Failed to apply migrations")
	}
	log.Info("Migrations applied successfully.")

	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()
	log.Info("Database connection successful.")

	// --- Session Management Setup ---
	sessionManager := session.New(cfg.Session, session.NewStore(cfg.DB.Driver, db.DB), cfg.Server.TLS.Enabled)

	// --- Authentication and Authorization Setup ---
	log.Info("Initializing authentication and authorization...")
	var authenticator *auth.Authenticator
	if cfg.OIDC.Enabled() {
		authenticator, err = auth.NewAuthenticator(context.Background(), &cfg.OIDC)
		if err != nil {
			log.Fatal(err, "Failed to initialize authenticator")
		}
	} else {
		log.Info("OIDC not configured, external sign-in disabled.")
	}
	policyDSN, err := data.DriverDSN(cfg.DB)
	if err != nil {
		log.Fatal(err, "Invalid database configuration")
	}
	enforcer, err := auth.NewEnforcer(auth.NewSQLAdapter(cfg.DB.Driver, policyDSN))
	if err != nil {
		log.Fatal(err, "Failed to initialize enforcer")
	}
	auth.SeedDefaultPolicies(enforcer, log)
	log.Info("Auth components initialized and policies seeded.")

	// --- View Template Initialization ---
	log.Info("Initializing view templates...")
	viewService, err := view.New(web.TemplateFS)
	if err != nil {
		log.Fatal(err, "Failed to initialize view templates")
	}
	log.Info("View templates initialized.")

	// --- Cache Initialization ---
	log.Info("Initializing SQLite cache...")
	contentCache, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal(err, "Failed to initialize cache")
	}
	defer contentCache.Close()
	if n, err := contentCache.Purge(); err != nil {
		log.Error(err, "Failed to purge expired cache entries")
	} else if n > 0 {
		log.Info(fmt.Sprintf("Purged %d expired cache entries.", n))
	}
	log.Info("Cache initialized.")

	// --- Media Storage ---
	images, err := media.New(cfg.Media)
	if err != nil {
		log.Fatal(err, "Failed to initialize media storage")
	}

	// --- Dependency Injection and Handler Initialization ---
	// Initialize the application layers, injecting dependencies from top to bottom.
	postRepository := data.NewSQLPostRepository(db)
	categoryRepository := data.NewCategoryRepository(db)
	locationRepository := data.NewLocationRepository(db)
	commentRepository := data.NewSQLCommentRepository(db)
	userRepository := data.NewSQLUserRepository(db)

	renderer := service.NewMarkdownRenderer(contentCache, cfg.Cache.TTL)
	postService := service.NewPostService(postRepository, categoryRepository, locationRepository, userRepository, renderer, cfg.Blog.PageSize)
	commentService := service.NewCommentService(commentRepository, postRepository)
	userService := service.NewUserService(userRepository)

	handlers := handler.Handlers{
		Blog:    handler.NewBlogHandler(postService, commentService, images, cfg.Media.MaxUploadMB<<20, viewService, log),
		Profile: handler.NewProfileHandler(postService, userService, viewService, log),
		Auth:    handler.NewAuthHandler(userService, sessionManager, authenticator, viewService, log),
		SEO:     handler.NewSeoHandler(postService, cfg.Server.BaseURL),
	}

	authnMiddleware := middleware.Authenticate(sessionManager, userService, log)
	authzMiddleware := middleware.Authorizer(enforcer, viewService, log)
	errorMiddleware := middleware.Error(log, viewService)

	assets := handler.Assets{Static: web.Static(), Media: http.Dir(images.Dir())}

	// --- Router Setup ---
	// The router is the central hub that directs incoming requests to the correct handlers.
	router := handler.NewRouter(handlers, sessionManager, authnMiddleware, authzMiddleware, errorMiddleware, assets)

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err, "Server forced to shutdown")
	}
	log.Info("Server exiting")
}
