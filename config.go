package folio

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/eringen/folio/editor"
	"github.com/eringen/folio/storage"
)

// Storage backends for uploaded images.
const (
	StorageLocal    = "local"
	StorageSupabase = "supabase"
)

// SiteConfig holds all configuration for a folio site.
type SiteConfig struct {
	Name        string // Site name (default "Blog")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/blog.db")
	DatabaseURL  string // PostgreSQL URL; overrides DatabasePath when set

	StorageBackend     string // "local" or "supabase" (default "local")
	UploadDir          string // local backend directory (default "public/uploads")
	SupabaseURL        string
	SupabaseServiceKey string
	StorageBucket      string // default "blog-images"

	AdminPassword string // Required: admin login password
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	PostCacheTTL  time.Duration // Post cache TTL (default 5min)
	AutosaveDelay time.Duration // Editor quiet period (default 2s)
	FeedLimit     int           // Posts in the RSS feed (default 20)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.StorageBackend == "" {
		c.StorageBackend = StorageLocal
	}
	if c.UploadDir == "" {
		c.UploadDir = "public/uploads"
	}
	if c.StorageBucket == "" {
		c.StorageBucket = storage.DefaultBucket
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.AutosaveDelay == 0 {
		c.AutosaveDelay = editor.DefaultDelay
	}
	if c.FeedLimit <= 0 {
		c.FeedLimit = 20
	}
}

// LoadConfig reads a .env file if present and builds a SiteConfig from the
// environment. Defaults are applied by New.
func LoadConfig() SiteConfig {
	_ = godotenv.Load()

	return SiteConfig{
		Name:               os.Getenv("SITE_NAME"),
		URL:                os.Getenv("SITE_URL"),
		Description:        os.Getenv("SITE_DESCRIPTION"),
		Author:             os.Getenv("SITE_AUTHOR"),
		Addr:               os.Getenv("ADDR"),
		DatabasePath:       os.Getenv("DATABASE_PATH"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		StorageBackend:     os.Getenv("STORAGE_BACKEND"),
		UploadDir:          os.Getenv("UPLOAD_DIR"),
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		StorageBucket:      os.Getenv("STORAGE_BUCKET"),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
		SessionSecret:      os.Getenv("ADMIN_SESSION_SECRET"),
		CookieSecure:       envBool("COOKIE_SECURE"),
		PostCacheTTL:       envDuration("POST_CACHE_TTL"),
		AutosaveDelay:      envDuration("AUTOSAVE_DELAY"),
		FeedLimit:          envInt("FEED_LIMIT"),
	}
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

func envDuration(key string) time.Duration {
	d, _ := time.ParseDuration(os.Getenv(key))
	return d
}

func envInt(key string) int {
	n, _ := strconv.Atoi(os.Getenv(key))
	return n
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithStore injects the post store. Without it Open connects using the config.
func WithStore(s PostStore) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithBlobStore injects the image store. Without it Open builds one from the config.
func WithBlobStore(b storage.BlobStore) Option {
	return func(a *App) {
		a.Blobs = b
	}
}
