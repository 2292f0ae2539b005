package folio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eringen/folio/document"
)

// PGPool is the part of *pgxpool.Pool the store uses.
type PGPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PGStore keeps posts in PostgreSQL: content as JSONB, tags as text[].
type PGStore struct {
	Pool PGPool
}

var (
	_ PostStore = (*PGStore)(nil)
	_ PGPool    = (*pgxpool.Pool)(nil)
)

// NewPGStore connects to connString and ensures the schema exists.
func NewPGStore(ctx context.Context, connString string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PGStore{Pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PGStore) Close() error {
	s.Pool.Close()
	return nil
}

func (s *PGStore) ensureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS posts (
    id UUID PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    content JSONB NOT NULL,
    tags TEXT[] NOT NULL DEFAULT '{}',
    published BOOLEAN NOT NULL DEFAULT FALSE,
    excerpt TEXT,
    preview_image TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
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
    uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (post_slug, filename)
);`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const pgPostColumns = `id::text, slug, title, content, tags, published, excerpt, preview_image, created_at, updated_at`

func scanPGPost(r pgx.Row) (BlogPost, error) {
	var (
		p       BlogPost
		content []byte
	)
	if err := r.Scan(&p.ID, &p.Slug, &p.Title, &content, &p.Tags, &p.Published, &p.Excerpt, &p.PreviewImage, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return BlogPost{}, err
	}
	doc, err := document.Parse(content)
	if err != nil {
		return BlogPost{}, fmt.Errorf("post %s: %w", p.Slug, err)
	}
	p.Content = doc
	if len(p.Tags) == 0 {
		p.Tags = nil
	}
	p.Link = postLink(p.Slug)
	return p, nil
}

func (s *PGStore) queryPosts(ctx context.Context, query string, args ...any) ([]BlogPost, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		p, err := scanPGPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *PGStore) queryPost(ctx context.Context, query string, args ...any) (BlogPost, error) {
	p, err := scanPGPost(s.Pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return BlogPost{}, ErrNotFound
	}
	return p, err
}

func (s *PGStore) ListPosts(ctx context.Context, tag string) ([]BlogPost, error) {
	if tag == "" {
		return s.queryPosts(ctx, `SELECT `+pgPostColumns+` FROM posts WHERE published ORDER BY created_at DESC`)
	}
	return s.queryPosts(ctx, `SELECT `+pgPostColumns+` FROM posts WHERE published AND $1 = ANY(tags) ORDER BY created_at DESC`, normalizeTag(tag))
}

func (s *PGStore) ListTags(ctx context.Context) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `SELECT DISTINCT unnest(tags) AS tag FROM posts WHERE published ORDER BY tag`)
	if err != nil {
		return nil, err
	}
	tags, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *PGStore) GetPost(ctx context.Context, slug string) (BlogPost, error) {
	return s.queryPost(ctx, `SELECT `+pgPostColumns+` FROM posts WHERE slug = $1 AND published`, slug)
}

func (s *PGStore) GetPostAny(ctx context.Context, slug string) (BlogPost, error) {
	return s.queryPost(ctx, `SELECT `+pgPostColumns+` FROM posts WHERE slug = $1`, slug)
}

func (s *PGStore) ListAllPosts(ctx context.Context) ([]BlogPost, error) {
	return s.queryPosts(ctx, `SELECT `+pgPostColumns+` FROM posts ORDER BY created_at DESC`)
}

// SavePost upserts inside a transaction so a renamed slug and the content
// land together.
func (s *PGStore) SavePost(ctx context.Context, p BlogPost) (BlogPost, error) {
	content, err := json.Marshal(p.Content)
	if err != nil {
		return BlogPost{}, fmt.Errorf("encode content: %w", err)
	}
	var created *time.Time
	if !p.CreatedAt.IsZero() {
		created = &p.CreatedAt
	}
	tags := NormalizeTags(p.Tags)

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return BlogPost{}, err
	}
	defer tx.Rollback(ctx)

	updated := false
	if p.ID != "" {
		tag, err := tx.Exec(ctx, `UPDATE posts SET slug = $2, title = $3, content = $4, tags = $5, published = $6,
			excerpt = $7, preview_image = $8, created_at = COALESCE($9, created_at), updated_at = now()
			WHERE id::text = $1`,
			p.ID, p.Slug, p.Title, content, tags, p.Published, p.Excerpt, p.PreviewImage, created)
		if err != nil {
			return BlogPost{}, err
		}
		updated = tag.RowsAffected() > 0
	} else {
		p.ID = uuid.NewString()
	}

	if !updated {
		_, err = tx.Exec(ctx, `INSERT INTO posts (id, slug, title, content, tags, published, excerpt, preview_image, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()), now())
			ON CONFLICT (slug) DO UPDATE SET title = EXCLUDED.title, content = EXCLUDED.content, tags = EXCLUDED.tags,
				published = EXCLUDED.published, excerpt = EXCLUDED.excerpt, preview_image = EXCLUDED.preview_image,
				created_at = COALESCE($9, posts.created_at), updated_at = now()`,
			p.ID, p.Slug, p.Title, content, tags, p.Published, p.Excerpt, p.PreviewImage, created)
		if err != nil {
			return BlogPost{}, err
		}
	}

	saved, err := scanPGPost(tx.QueryRow(ctx, `SELECT `+pgPostColumns+` FROM posts WHERE slug = $1`, p.Slug))
	if err != nil {
		return BlogPost{}, err
	}
	return saved, tx.Commit(ctx)
}

func (s *PGStore) DeletePost(ctx context.Context, slug string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM posts WHERE slug = $1`, slug)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	_, err = s.Pool.Exec(ctx, `DELETE FROM images WHERE post_slug = $1`, slug)
	return err
}

func (s *PGStore) TogglePublish(ctx context.Context, slug string) (bool, error) {
	var published bool
	err := s.Pool.QueryRow(ctx, `UPDATE posts SET published = NOT published, updated_at = now() WHERE slug = $1 RETURNING published`, slug).Scan(&published)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	return published, err
}

func (s *PGStore) ListImages(ctx context.Context, slug string) ([]Image, error) {
	rows, err := s.Pool.Query(ctx, `SELECT post_slug, filename, original_name, url, width, height, size, uploaded_at
		FROM images WHERE $1 = '' OR post_slug = $1 ORDER BY uploaded_at DESC`, slug)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (Image, error) {
		var img Image
		err := r.Scan(&img.PostSlug, &img.Filename, &img.OriginalName, &img.URL, &img.Width, &img.Height, &img.Size, &img.UploadedAt)
		return img, err
	})
}

func (s *PGStore) SaveImage(ctx context.Context, img Image) error {
	if img.UploadedAt.IsZero() {
		img.UploadedAt = time.Now()
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO images (post_slug, filename, original_name, url, width, height, size, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (post_slug, filename) DO UPDATE SET original_name = EXCLUDED.original_name, url = EXCLUDED.url,
			width = EXCLUDED.width, height = EXCLUDED.height, size = EXCLUDED.size, uploaded_at = EXCLUDED.uploaded_at`,
		img.PostSlug, img.Filename, img.OriginalName, img.URL, img.Width, img.Height, img.Size, img.UploadedAt)
	return err
}

func (s *PGStore) DeleteImage(ctx context.Context, slug, filename string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM images WHERE post_slug = $1 AND filename = $2`, slug, filename)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
