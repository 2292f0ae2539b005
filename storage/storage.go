// Package storage holds the blob stores that serve uploaded post images.
package storage

import (
	"context"
	"errors"
	"path"
	"regexp"
	"strings"
)

// DefaultBucket is the bucket post images live in.
const DefaultBucket = "blog-images"

// ErrNotFound is returned by Delete when the key does not exist.
var ErrNotFound = errors.New("storage: object not found")

// BlobStore stores binary objects under string keys and serves them at
// stable public URLs.
type BlobStore interface {
	// Put writes data under key, replacing any existing object, and returns
	// its public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	// URL returns the public URL for key without checking that it exists.
	URL(key string) string
}

var (
	reUnsafe      = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
	reUnderscores = regexp.MustCompile(`_{2,}`)
)

// SanitizeFilename replaces every character outside [a-zA-Z0-9.-] with an
// underscore, collapses underscore runs and trims underscores at both ends.
func SanitizeFilename(name string) string {
	s := reUnsafe.ReplaceAllString(name, "_")
	s = reUnderscores.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// Key returns the object key for a post image: public/<slug>/<sanitized base name>.
func Key(slug, name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	return "public/" + slug + "/" + SanitizeFilename(name)
}

// Resolver returns a function mapping asset file names of the post to their
// public URLs in s.
func Resolver(s BlobStore, slug string) func(name string) string {
	return func(name string) string {
		return s.URL(Key(slug, name))
	}
}

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".avif": "image/avif",
}

// ContentTypeFor maps an image extension (with or without the dot, any case)
// to its MIME type. Unknown extensions get application/octet-stream.
func ContentTypeFor(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// IsImage reports whether name has an image extension.
func IsImage(name string) bool {
	_, ok := contentTypes[strings.ToLower(path.Ext(name))]
	return ok
}
