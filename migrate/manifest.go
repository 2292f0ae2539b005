// Package migrate imports a legacy HTML blog archive into a folio store.
//
// An archive is a directory of saved pages ("Post Title.html") with their
// assets next to them ("Post Title_files/"). A YAML manifest lists the pages
// to import and the metadata the pages themselves do not carry reliably.
package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/eringen/folio"
)

// maxManifestSize bounds manifest files read from disk.
const maxManifestSize = 1 << 20

var (
	ErrEmptyManifest = errors.New("migrate: manifest lists no posts")
	ErrMissingFile   = errors.New("migrate: entry has no file")
)

// Manifest describes one archive import.
type Manifest struct {
	// Archive is the directory holding the saved pages. Relative paths are
	// resolved against the manifest's directory.
	Archive string  `yaml:"archive"`
	Posts   []Entry `yaml:"posts"`
}

// Entry is one page to import.
type Entry struct {
	File         string   `yaml:"file"`
	Slug         string   `yaml:"slug"`
	Title        string   `yaml:"title"`
	Date         string   `yaml:"date"` // YYYY-MM-DD
	Description  string   `yaml:"description"`
	Tags         []string `yaml:"tags"`
	PreviewImage string   `yaml:"preview_image"`
	Published    *bool    `yaml:"published"`
}

// IsPublished defaults to true; archived posts were public.
func (e Entry) IsPublished() bool {
	return e.Published == nil || *e.Published
}

// CreatedAt parses Date. A blank date yields the zero time.
func (e Entry) CreatedAt() (time.Time, error) {
	if e.Date == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", e.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("migrate: %s: invalid date %q", e.File, e.Date)
	}
	return t, nil
}

// AssetDir returns the directory holding the page's saved assets.
func (e Entry) AssetDir(archive string) string {
	return filepath.Join(archive, strings.TrimSuffix(e.File, filepath.Ext(e.File))+"_files")
}

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string) (Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Manifest{}, err
	}
	if info.Size() > maxManifestSize {
		return Manifest{}, fmt.Errorf("migrate: manifest %s exceeds %d bytes", path, maxManifestSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	return ParseManifest(data, filepath.Dir(path))
}

// ParseManifest decodes a manifest strictly, fills in derived slugs and titles,
// and resolves a relative archive path against dir.
func ParseManifest(data []byte, dir string) (Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalWithOptions(data, &m, yaml.Strict()); err != nil {
		return Manifest{}, fmt.Errorf("migrate: parse manifest: %w", err)
	}
	if len(m.Posts) == 0 {
		return Manifest{}, ErrEmptyManifest
	}
	if m.Archive == "" {
		m.Archive = "."
	}
	if !filepath.IsAbs(m.Archive) {
		m.Archive = filepath.Join(dir, m.Archive)
	}

	seen := make(map[string]int, len(m.Posts))
	for i := range m.Posts {
		e := &m.Posts[i]
		if strings.TrimSpace(e.File) == "" {
			return Manifest{}, fmt.Errorf("%w (entry %d)", ErrMissingFile, i+1)
		}
		if e.Title == "" {
			e.Title = strings.TrimSuffix(e.File, filepath.Ext(e.File))
		}
		if e.Slug == "" {
			e.Slug = folio.Slugify(e.Title)
		}
		if e.Slug != folio.Slugify(e.Slug) {
			return Manifest{}, fmt.Errorf("migrate: %s: slug %q is not URL-safe", e.File, e.Slug)
		}
		if prev, dup := seen[e.Slug]; dup {
			return Manifest{}, fmt.Errorf("migrate: slug %q used by entries %d and %d", e.Slug, prev+1, i+1)
		}
		seen[e.Slug] = i
		if _, err := e.CreatedAt(); err != nil {
			return Manifest{}, err
		}
	}
	return m, nil
}
