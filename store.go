package folio

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/eringen/folio/document"
)

// ErrNotFound is returned when a requested post or image does not exist.
var ErrNotFound = errors.New("folio: not found")

// PostStore persists posts and image metadata.
type PostStore interface {
	// ListPosts returns published posts, newest first, optionally filtered by tag.
	ListPosts(ctx context.Context, tag string) ([]BlogPost, error)
	ListTags(ctx context.Context) ([]string, error)
	// GetPost returns a published post by slug.
	GetPost(ctx context.Context, slug string) (BlogPost, error)
	// GetPostAny returns a post by slug regardless of published status.
	GetPostAny(ctx context.Context, slug string) (BlogPost, error)
	ListAllPosts(ctx context.Context) ([]BlogPost, error)
	// SavePost inserts or replaces a post, matching on ID when set and on
	// slug otherwise, and returns the stored row.
	SavePost(ctx context.Context, p BlogPost) (BlogPost, error)
	DeletePost(ctx context.Context, slug string) error
	// TogglePublish flips the published flag and returns the new value.
	TogglePublish(ctx context.Context, slug string) (bool, error)
	// ListImages returns images of one post, or of all posts when slug is "".
	ListImages(ctx context.Context, slug string) ([]Image, error)
	SaveImage(ctx context.Context, img Image) error
	DeleteImage(ctx context.Context, slug, filename string) error
	Close() error
}

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store wraps a SQLite database. Content is stored as document JSON and tags
// as a comma-delimited string (",go,web,").
type Store struct {
	db *sql.DB
}

var _ PostStore = (*Store)(nil)

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed during writes; busy_timeout makes writers wait
	// instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    tags TEXT NOT NULL,
    published INTEGER NOT NULL DEFAULT 0,
    excerpt TEXT,
    preview_image TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS posts_created_at ON posts (created_at DESC);
CREATE TABLE IF NOT EXISTS images (
    post_slug TEXT NOT NULL,
    filename TEXT NOT NULL,
    original_name TEXT NOT NULL,
    url TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL,
    PRIMARY KEY (post_slug, filename)
);
`)
	return err
}

const postColumns = `id, slug, title, content, tags, published, excerpt, preview_image, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(r rowScanner) (BlogPost, error) {
	var (
		p                    BlogPost
		content, tags        string
		published            int
		excerpt, preview     sql.NullString
		createdAt, updatedAt string
	)
	if err := r.Scan(&p.ID, &p.Slug, &p.Title, &content, &tags, &published, &excerpt, &preview, &createdAt, &updatedAt); err != nil {
		return BlogPost{}, err
	}
	doc, err := document.Parse([]byte(content))
	if err != nil {
		return BlogPost{}, fmt.Errorf("post %s: %w", p.Slug, err)
	}
	p.Content = doc
	p.Tags = ParseTags(tags)
	p.Published = published == 1
	if excerpt.Valid {
		p.Excerpt = &excerpt.String
	}
	if preview.Valid {
		p.PreviewImage = &preview.String
	}
	p.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	p.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	p.Link = postLink(p.Slug)
	return p, nil
}

func (s *Store) queryPosts(ctx context.Context, query string, args ...any) ([]BlogPost, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *Store) queryPost(ctx context.Context, query string, args ...any) (BlogPost, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return BlogPost{}, ErrNotFound
	}
	return p, err
}

// ListPosts returns all published posts ordered by creation time descending.
// If tag is non-empty, results are filtered to posts containing that tag.
func (s *Store) ListPosts(ctx context.Context, tag string) ([]BlogPost, error) {
	if tag == "" {
		return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE published = 1 ORDER BY created_at DESC`)
	}
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE published = 1 AND instr(lower(tags), ',' || ? || ',') > 0 ORDER BY created_at DESC`, normalizeTag(tag))
}

// ListTags returns a sorted, deduplicated slice of all tags from published posts.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tags FROM posts WHERE published = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var tags string
		if err := rows.Scan(&tags); err != nil {
			return nil, err
		}
		for _, t := range ParseTags(tags) {
			set[normalizeTag(t)] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sortedKeys(set), nil
}

func (s *Store) GetPost(ctx context.Context, slug string) (BlogPost, error) {
	return s.queryPost(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = ? AND published = 1`, slug)
}

func (s *Store) GetPostAny(ctx context.Context, slug string) (BlogPost, error) {
	return s.queryPost(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug)
}

// ListAllPosts returns every post (published and drafts), newest first.
func (s *Store) ListAllPosts(ctx context.Context) ([]BlogPost, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC`)
}

// SavePost upserts a post. Tags are normalized to lowercase. A zero CreatedAt
// keeps the stored creation time of an existing post.
func (s *Store) SavePost(ctx context.Context, p BlogPost) (BlogPost, error) {
	content, err := json.Marshal(p.Content)
	if err != nil {
		return BlogPost{}, fmt.Errorf("encode content: %w", err)
	}
	now := time.Now().UTC()
	keepCreated := p.CreatedAt.IsZero()
	if keepCreated {
		p.CreatedAt = now
	}
	created := p.CreatedAt.UTC().Format(timeLayout)
	updated := now.Format(timeLayout)
	tags := JoinTagString(p.Tags)
	published := boolInt(p.Published)
	override := boolInt(!keepCreated)

	if p.ID != "" {
		res, err := s.db.ExecContext(ctx, `UPDATE posts SET slug = ?, title = ?, content = ?, tags = ?, published = ?, excerpt = ?, preview_image = ?, updated_at = ?,
			created_at = CASE WHEN ? = 1 THEN ? ELSE created_at END WHERE id = ?`,
			p.Slug, p.Title, string(content), tags, published, p.Excerpt, p.PreviewImage, updated, override, created, p.ID)
		if err != nil {
			return BlogPost{}, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return s.GetPostAny(ctx, p.Slug)
		}
	} else {
		p.ID = uuid.NewString()
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(slug) DO UPDATE SET title = excluded.title, content = excluded.content, tags = excluded.tags,
    published = excluded.published, excerpt = excluded.excerpt, preview_image = excluded.preview_image,
    updated_at = excluded.updated_at,
    created_at = CASE WHEN ? = 1 THEN excluded.created_at ELSE posts.created_at END`,
		p.ID, p.Slug, p.Title, string(content), tags, published, p.Excerpt, p.PreviewImage, created, updated, override)
	if err != nil {
		return BlogPost{}, err
	}
	return s.GetPostAny(ctx, p.Slug)
}

// DeletePost removes a post and its image metadata.
func (s *Store) DeletePost(ctx context.Context, slug string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE slug = ?`, slug)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM images WHERE post_slug = ?`, slug)
	return err
}

func (s *Store) TogglePublish(ctx context.Context, slug string) (bool, error) {
	var published int
	err := s.db.QueryRowContext(ctx, `UPDATE posts SET published = 1 - published, updated_at = ? WHERE slug = ? RETURNING published`,
		time.Now().UTC().Format(timeLayout), slug).Scan(&published)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	return published == 1, err
}

func (s *Store) ListImages(ctx context.Context, slug string) ([]Image, error) {
	query := `SELECT post_slug, filename, original_name, url, width, height, size, uploaded_at FROM images`
	var args []any
	if slug != "" {
		query += ` WHERE post_slug = ?`
		args = append(args, slug)
	}
	query += ` ORDER BY uploaded_at DESC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		var uploaded string
		if err := rows.Scan(&img.PostSlug, &img.Filename, &img.OriginalName, &img.URL, &img.Width, &img.Height, &img.Size, &uploaded); err != nil {
			return nil, err
		}
		img.UploadedAt, _ = time.Parse(timeLayout, uploaded)
		images = append(images, img)
	}
	return images, rows.Err()
}

// SaveImage records image metadata, replacing a row with the same post and file name.
func (s *Store) SaveImage(ctx context.Context, img Image) error {
	if img.UploadedAt.IsZero() {
		img.UploadedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO images (post_slug, filename, original_name, url, width, height, size, uploaded_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		img.PostSlug, img.Filename, img.OriginalName, img.URL, img.Width, img.Height, img.Size, img.UploadedAt.UTC().Format(timeLayout))
	return err
}

func (s *Store) DeleteImage(ctx context.Context, slug, filename string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE post_slug = ? AND filename = ?`, slug, filename)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ParseTags splits a comma-delimited tag string (e.g. ",go,web,") into a slice.
func ParseTags(tagString string) []string {
	tagString = strings.Trim(tagString, ",")
	if tagString == "" {
		return nil
	}
	parts := strings.Split(tagString, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// JoinTagString normalizes tags and encodes them as ",a,b,".
func JoinTagString(tags []string) string {
	return "," + strings.Join(NormalizeTags(tags), ",") + ","
}

// NormalizeTags lowercases and trims tags, dropping empties and duplicates.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = normalizeTag(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	result := make([]string, 0, len(set))
	for t := range set {
		result = append(result, t)
	}
	sort.Strings(result)
	return result
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
