package folio

import (
	"time"

	"github.com/eringen/folio/document"
)

// BlogPost is a post as stored and rendered. Content is replaced wholesale on
// every save.
type BlogPost struct {
	ID           string
	Slug         string
	Title        string
	Content      document.Document
	Tags         []string
	Published    bool
	Excerpt      *string
	PreviewImage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Link         string
}

// Date returns the creation date as YYYY-MM-DD.
func (p BlogPost) Date() string {
	if p.CreatedAt.IsZero() {
		return ""
	}
	return p.CreatedAt.Format(dateLayout)
}

// Summary returns the excerpt, or "" when the post has none.
func (p BlogPost) Summary() string {
	if p.Excerpt == nil {
		return ""
	}
	return *p.Excerpt
}

// Image is an uploaded image owned by a post.
type Image struct {
	Filename     string
	OriginalName string
	PostSlug     string
	URL          string
	Width        int
	Height       int
	Size         int
	UploadedAt   time.Time
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string // og:image, optional
}

const dateLayout = "2006-01-02"

func postLink(slug string) string {
	return "/blog/" + slug
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
