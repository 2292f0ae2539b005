package folio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/eringen/folio/storage"
)

const (
	maxImageWidth = 800
	jpegQuality   = 80
	maxUploadSize = 5 << 20 // 5MB
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// errInvalidImage marks validation failures that are the uploader's fault.
var errInvalidImage = errors.New("invalid image")

// validateUpload checks size, extension and sniffed content type.
func validateUpload(name string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty file", errInvalidImage)
	}
	if len(data) > maxUploadSize {
		return fmt.Errorf("%w: file too large (max 5MB)", errInvalidImage)
	}
	if !allowedImageExts[strings.ToLower(filepath.Ext(name))] {
		return fmt.Errorf("%w: only JPEG, PNG, GIF and WebP are allowed", errInvalidImage)
	}
	if ct := http.DetectContentType(data); !allowedImageTypes[ct] {
		return fmt.Errorf("%w: unsupported content type %s", errInvalidImage, ct)
	}
	return nil
}

// processImage decodes an image from src, resizes it to maxImageWidth if it
// is wider, and encodes it as JPEG. Returns metadata and the encoded bytes.
func processImage(src io.Reader, originalName string) (Image, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return Image{}, nil, fmt.Errorf("%w: decode: %v", errInvalidImage, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxImageWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Image{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return Image{
		Filename:     slugifyFilename(originalName) + ".jpg",
		OriginalName: originalName,
		Width:        w,
		Height:       h,
		Size:         buf.Len(),
		UploadedAt:   time.Now().UTC(),
	}, buf.Bytes(), nil
}

// slugifyFilename converts a filename (without extension) to a URL-safe slug.
func slugifyFilename(name string) string {
	ext := filepath.Ext(name)
	base := Slugify(strings.TrimSuffix(filepath.Base(name), ext))
	if base == "" {
		return "image"
	}
	return base
}

// ensureUniqueFilename appends a counter if the post already has an image
// with the same name.
func (a *App) ensureUniqueFilename(ctx context.Context, img *Image) error {
	existing, err := a.Store.ListImages(ctx, img.PostSlug)
	if err != nil {
		return err
	}
	taken := make(map[string]bool, len(existing))
	for _, ex := range existing {
		taken[ex.Filename] = true
	}
	base := strings.TrimSuffix(img.Filename, ".jpg")
	candidate := img.Filename
	for counter := 2; taken[candidate]; counter++ {
		candidate = fmt.Sprintf("%s-%d.jpg", base, counter)
	}
	img.Filename = candidate
	return nil
}

// uploadResponse is returned to the editor after an upload.
type uploadResponse struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}

// UploadImage validates, resizes and stores an image under the post's
// namespace and records its metadata.
func (a *App) UploadImage(ctx context.Context, slug, name string, data []byte) (Image, error) {
	if err := validateUpload(name, data); err != nil {
		return Image{}, err
	}
	img, encoded, err := processImage(bytes.NewReader(data), name)
	if err != nil {
		return Image{}, err
	}
	img.PostSlug = slug
	if err := a.ensureUniqueFilename(ctx, &img); err != nil {
		return Image{}, err
	}
	u, err := a.Blobs.Put(ctx, storage.Key(slug, img.Filename), encoded, "image/jpeg")
	if err != nil {
		return Image{}, fmt.Errorf("store image: %w", err)
	}
	img.URL = u
	if err := a.Store.SaveImage(ctx, img); err != nil {
		return Image{}, err
	}
	return img, nil
}

func (a *App) handleImageUpload(c echo.Context) error {
	if !a.uploadLimiter.Allow() {
		return c.String(http.StatusTooManyRequests, "Too many uploads. Try again shortly.")
	}
	slug := strings.TrimSpace(c.FormValue("slug"))
	if slug == "" || Slugify(slug) != slug {
		return c.String(http.StatusBadRequest, "A valid post slug is required")
	}
	file, err := c.FormFile("image")
	if err != nil {
		return c.String(http.StatusBadRequest, "No image file provided")
	}
	if file.Size > maxUploadSize {
		return c.String(http.StatusBadRequest, "File too large (max 5MB)")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize+1))
	if err != nil {
		return err
	}

	img, err := a.UploadImage(c.Request().Context(), slug, file.Filename, data)
	if err != nil {
		if errors.Is(err, errInvalidImage) {
			return c.String(http.StatusBadRequest, "Invalid image: "+strings.TrimPrefix(err.Error(), errInvalidImage.Error()+": "))
		}
		c.Logger().Errorf("upload image for %s: %v", slug, err)
		return c.String(http.StatusInternalServerError, "Upload failed. Please try again.")
	}

	// The editor inserts the image at the cursor once the upload has landed.
	if raw := c.FormValue("index"); raw != "" {
		if idx, err := strconv.Atoi(raw); err == nil {
			if s, ok := a.Drafts.Get(slug); ok {
				s.InsertImage(idx, img.URL, c.FormValue("alt"))
			}
		}
	}

	if c.Request().Header.Get("HX-Request") == "true" {
		return a.renderImageList(c, slug)
	}
	return c.JSON(http.StatusOK, uploadResponse{URL: img.URL, FileName: img.Filename})
}

func (a *App) deleteBlob(ctx context.Context, img Image) error {
	err := a.Blobs.Delete(ctx, storage.Key(img.PostSlug, img.Filename))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func (a *App) handleImageDelete(c echo.Context) error {
	ctx := c.Request().Context()
	slug, filename := c.Param("slug"), c.Param("filename")
	if filename == "" {
		return c.String(http.StatusBadRequest, "Filename required")
	}
	if err := a.deleteBlob(ctx, Image{PostSlug: slug, Filename: filename}); err != nil {
		c.Logger().Warnf("delete blob %s/%s: %v", slug, filename, err)
	}
	if err := a.Store.DeleteImage(ctx, slug, filename); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return a.renderImageList(c, slug)
}

func (a *App) handleImageList(c echo.Context) error {
	return a.renderImageList(c, c.QueryParam("slug"))
}

func (a *App) renderImageList(c echo.Context, slug string) error {
	images, err := a.Store.ListImages(c.Request().Context(), slug)
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminImages(images, CsrfToken(c)))
}
