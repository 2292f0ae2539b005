package migrate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/eringen/folio"
	"github.com/eringen/folio/document"
	"github.com/eringen/folio/storage"
)

// Importer converts archived pages and upserts them into Store, uploading
// each page's images to Blobs under the post's key namespace.
type Importer struct {
	Store  folio.PostStore
	Blobs  storage.BlobStore
	Ingest document.Ingester // zero value uses document.DefaultIngester
	Log    *log.Logger
	// DryRun converts pages without writing to Store or Blobs.
	DryRun bool
}

// ErrNotConfigured is returned when a non dry run has no Store or Blobs.
var ErrNotConfigured = errors.New("migrate: importer needs Store and Blobs unless DryRun is set")

func (im *Importer) check() error {
	if im.DryRun {
		return nil
	}
	if im.Store == nil || im.Blobs == nil {
		return ErrNotConfigured
	}
	return nil
}

// Report summarizes a run.
type Report struct {
	Imported int
	Skipped  int
	Failed   int
	Images   int
	Errors   []error
}

// Err joins the per-entry errors, or returns nil.
func (r Report) Err() error {
	return errors.Join(r.Errors...)
}

func (im *Importer) logf(format string, args ...any) {
	l := im.Log
	if l == nil {
		l = log.Default()
	}
	l.Printf(format, args...)
}

func (im *Importer) ingester() document.Ingester {
	if len(im.Ingest.ContainerClasses) == 0 {
		return document.DefaultIngester
	}
	return im.Ingest
}

// Run imports every manifest entry. Failures are logged and counted; the
// run only stops early when ctx is done.
func (im *Importer) Run(ctx context.Context, m Manifest) (Report, error) {
	var rep Report
	if err := im.check(); err != nil {
		return rep, err
	}
	for _, e := range m.Posts {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		post, images, err := im.ImportEntry(ctx, m.Archive, e)
		rep.Images += images
		switch {
		case errors.Is(err, fs.ErrNotExist):
			im.logf("skip %s: file not found", e.File)
			rep.Skipped++
		case err != nil:
			im.logf("failed %s: %v", e.File, err)
			rep.Failed++
			rep.Errors = append(rep.Errors, fmt.Errorf("%s: %w", e.File, err))
		default:
			im.logf("imported %s (%d blocks, %d images)", post.Slug, len(post.Content.Content), images)
			rep.Imported++
		}
	}
	return rep, nil
}

// ImportEntry converts one page and upserts it by slug. It returns the
// stored post and the number of images uploaded.
func (im *Importer) ImportEntry(ctx context.Context, archive string, e Entry) (folio.BlogPost, int, error) {
	if err := im.check(); err != nil {
		return folio.BlogPost{}, 0, err
	}
	raw, err := os.ReadFile(filepath.Join(archive, e.File))
	if err != nil {
		return folio.BlogPost{}, 0, err
	}
	src := string(raw)
	created, err := e.CreatedAt()
	if err != nil {
		return folio.BlogPost{}, 0, err
	}

	doc := im.ingester().Convert(src)
	uploaded, err := im.uploadAssets(ctx, e.Slug, e.AssetDir(archive))
	if err != nil {
		return folio.BlogPost{}, len(uploaded), err
	}
	doc = rewriteImages(doc, uploaded)

	excerpt := e.Description
	if excerpt == "" {
		excerpt = ExtractExcerpt(src)
	}
	if excerpt == "" {
		excerpt = folio.DeriveExcerpt(doc, excerptLength)
	}
	preview := e.PreviewImage
	if preview == "" {
		preview = ExtractPreviewImage(src)
	}
	if preview != "" && document.IsRelativeAsset(preview) && im.Blobs != nil {
		preview = im.Blobs.URL(storage.Key(e.Slug, document.AssetName(preview)))
	}

	post := folio.BlogPost{
		Slug:      e.Slug,
		Title:     e.Title,
		Content:   doc,
		Tags:      folio.NormalizeTags(e.Tags),
		Published: e.IsPublished(),
		CreatedAt: created,
	}
	if excerpt != "" {
		post.Excerpt = &excerpt
	}
	if preview != "" {
		post.PreviewImage = &preview
	}
	if im.DryRun {
		return post, len(uploaded), nil
	}
	saved, err := im.Store.SavePost(ctx, post)
	if err != nil {
		return folio.BlogPost{}, len(uploaded), fmt.Errorf("save post: %w", err)
	}
	return saved, len(uploaded), nil
}

// uploadAssets uploads every image in dir and records its metadata. It
// returns the uploaded file names keyed by their sanitized form. A missing
// directory means the page has no local assets.
func (im *Importer) uploadAssets(ctx context.Context, slug, dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, de := range entries {
		if !de.IsDir() && storage.IsImage(de.Name()) {
			names = append(names, de.Name())
		}
	}
	sort.Strings(names)

	uploaded := make(map[string]string, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return uploaded, err
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return uploaded, err
		}
		key := storage.Key(slug, name)
		url := ""
		if im.Blobs != nil {
			url = im.Blobs.URL(key)
		}
		if !im.DryRun {
			url, err = im.Blobs.Put(ctx, key, data, storage.ContentTypeFor(filepath.Ext(name)))
			if err != nil {
				return uploaded, fmt.Errorf("upload %s: %w", name, err)
			}
			if err := im.Store.SaveImage(ctx, imageRecord(slug, name, url, data)); err != nil {
				return uploaded, fmt.Errorf("record %s: %w", name, err)
			}
		}
		if url != "" {
			uploaded[storage.SanitizeFilename(name)] = url
		}
	}
	return uploaded, nil
}

func imageRecord(slug, name, url string, data []byte) folio.Image {
	img := folio.Image{
		Filename:     storage.SanitizeFilename(name),
		OriginalName: name,
		PostSlug:     slug,
		URL:          url,
		Size:         len(data),
		UploadedAt:   time.Now().UTC(),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.Width, img.Height = cfg.Width, cfg.Height
	}
	return img
}

// rewriteImages points relative image sources that were uploaded at their
// blob URLs. Others are left for the renderer to resolve.
func rewriteImages(doc document.Document, uploaded map[string]string) document.Document {
	if len(uploaded) == 0 {
		return doc
	}
	out := document.Document{Content: make([]document.Block, len(doc.Content))}
	for i, b := range doc.Content {
		if img, ok := b.(document.Image); ok && document.IsRelativeAsset(img.Src) {
			if url, ok := uploaded[storage.SanitizeFilename(document.AssetName(img.Src))]; ok {
				img.Src = url
				b = img
			}
		}
		out.Content[i] = b
	}
	return out
}
