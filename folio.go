// Package folio is a portfolio and blog engine built with Go, Echo, and templ.
// Post bodies are structured documents (package document) that are ingested
// from legacy HTML, edited with autosave, and rendered for pages and RSS.
//
// Users provide their own templ templates via the ViewFuncs struct, and folio
// handles the handler logic, middleware, storage, and rendering.
package folio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/eringen/folio/document"
	"github.com/eringen/folio/editor"
	"github.com/eringen/folio/storage"
)

// ViewFuncs holds the templ components the framework calls when rendering
// pages.
type ViewFuncs struct {
	Home             func(posts []BlogPost, activeTag string, tags []string, siteURL string) templ.Component
	HomePartial      func(posts []BlogPost, activeTag string, tags []string, siteURL string) templ.Component
	BlogSection      func(posts []BlogPost, activeTag string, tags []string) templ.Component
	Post             func(page PostPage) templ.Component
	PostPartial      func(page PostPage) templ.Component
	AdminLogin       func(showError bool, csrfToken string) templ.Component
	AdminDashboard   func(posts []BlogPost, message string, csrfToken string) templ.Component
	AdminFormPartial func(post BlogPost, csrfToken string) templ.Component
	AdminImages      func(images []Image, csrfToken string) templ.Component
	NotFound         func() templ.Component
	ServerError      func() templ.Component
}

// PostPage is everything a post template needs.
type PostPage struct {
	Post    BlogPost
	Body    templ.Component // rendered document with heading anchors
	TOC     []document.TocHeading
	Related []BlogPost
	SiteURL string
}

// App is the central folio application. It wires together the store, blob
// store, cache, draft sessions, handlers, middleware, and templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  PostStore
	Blobs  storage.BlobStore
	Cache  *PostCache
	Drafts *editor.Registry
	Views  ViewFuncs

	loginLimiter  *LoginLimiter
	uploadLimiter *rate.Limiter
	customRoutes  []func(*App)
	staticDir     string
	opened        bool
}

// New creates a new folio App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// OpenStore connects to PostgreSQL when cfg.DatabaseURL is set and to the
// SQLite file at cfg.DatabasePath otherwise.
func OpenStore(ctx context.Context, cfg SiteConfig) (PostStore, error) {
	cfg.setDefaults()
	if cfg.DatabaseURL != "" {
		return NewPGStore(ctx, cfg.DatabaseURL)
	}
	return NewStore(cfg.DatabasePath)
}

// NewBlobStore builds the image store selected by cfg.StorageBackend.
func NewBlobStore(cfg SiteConfig) (storage.BlobStore, error) {
	cfg.setDefaults()
	switch cfg.StorageBackend {
	case StorageLocal:
		return storage.NewLocal(cfg.UploadDir, strings.TrimRight(cfg.URL, "/")+uploadsRoute), nil
	case StorageSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
			return nil, errors.New("folio: supabase storage needs SupabaseURL and SupabaseServiceKey")
		}
		return storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket), nil
	}
	return nil, fmt.Errorf("folio: unknown storage backend %q", cfg.StorageBackend)
}

const uploadsRoute = "/uploads"

// Open validates the configuration, connects the stores that were not
// injected, and registers middleware and routes. Start calls it; tests call
// it directly and drive a.Echo.
func (a *App) Open(ctx context.Context) error {
	if a.opened {
		return nil
	}
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("folio: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("folio: SessionSecret is required")
	}

	if a.Store == nil {
		store, err := OpenStore(ctx, a.Config)
		if err != nil {
			return fmt.Errorf("folio: init store: %w", err)
		}
		a.Store = store
	}
	if a.Blobs == nil {
		blobs, err := NewBlobStore(a.Config)
		if err != nil {
			return err
		}
		a.Blobs = blobs
	}

	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)
	a.Drafts = editor.NewRegistry(editor.SaverFunc(a.saveDraft), editor.WithDelay(a.Config.AutosaveDelay))
	a.loginLimiter = NewLoginLimiter(5, time.Minute)
	a.uploadLimiter = newUploadLimiter()

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.opened = true
	return nil
}

// Start opens the app and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Open(context.Background()); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.staticDir)
	if _, ok := a.Blobs.(*storage.Local); ok {
		e.Static(uploadsRoute, a.Config.UploadDir)
	}
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	// Public routes
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/blog", handleBlogRedirect)
	e.GET("/", a.handleHome)
	e.GET("/blog/:slug/", a.handlePost)

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)

	admin := e.Group("/admin", requireAdmin)
	admin.GET("/new/", a.handleAdminNew)
	admin.GET("/post/:slug/", a.handleAdminPost)
	admin.POST("/save/", a.handleAdminSave)
	admin.DELETE("/post/:slug/", a.handleAdminDelete)
	admin.POST("/post/:slug/publish/", a.handleTogglePublish)
	admin.GET("/autosave/:slug/", a.handleAutosaveStatus)
	admin.POST("/autosave/:slug/", a.handleAutosave)
	admin.POST("/autosave/:slug/flush/", a.handleAutosaveFlush)
	admin.GET("/images/", a.handleImageList)
	admin.POST("/images/upload/", a.handleImageUpload)
	admin.DELETE("/images/:slug/:filename/", a.handleImageDelete)
}

// Shutdown saves pending drafts and stops the server.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Drafts != nil {
		if err := a.Drafts.FlushAll(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.Echo.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Close()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
