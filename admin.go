package folio

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/document"
	"github.com/eringen/folio/editor"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminNew(c echo.Context) error {
	return Render(c, a.Views.AdminFormPartial(BlogPost{}, CsrfToken(c)))
}

func (a *App) handleAdminPost(c echo.Context) error {
	post, err := a.Store.GetPostAny(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.NoContent(http.StatusNotFound)
		}
		return err
	}
	// Start from the buffered draft when one is open so a reload shows
	// unsaved edits.
	if s, ok := a.Drafts.Get(post.Slug); ok {
		d := s.Draft()
		post.Title, post.Content, post.Tags, post.Published = d.Title, d.Content, d.Tags, d.Published
	}
	return Render(c, a.Views.AdminFormPartial(post, CsrfToken(c)))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	if !a.loginLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	return Render(c, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func redirectMsg(c echo.Context, msg string) error {
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape(msg))
}

func (a *App) handleAdminSave(c echo.Context) error {
	if err := c.Request().ParseForm(); err != nil {
		return err
	}
	title := strings.TrimSpace(c.FormValue("title"))
	slug := strings.TrimSpace(c.FormValue("slug"))
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return redirectMsg(c, "Slug is required. Add a title or slug.")
	}
	var created time.Time
	if date := strings.TrimSpace(c.FormValue("date")); date != "" {
		t, err := time.Parse(dateLayout, date)
		if err != nil {
			return redirectMsg(c, "Invalid date format. Use YYYY-MM-DD.")
		}
		created = t
	}
	doc := document.Document{}
	if raw := strings.TrimSpace(c.FormValue("content")); raw != "" {
		parsed, err := document.Parse([]byte(raw))
		if err != nil {
			return redirectMsg(c, "Content is not a valid document.")
		}
		doc = parsed
	}
	post := BlogPost{
		ID:           strings.TrimSpace(c.FormValue("id")),
		Slug:         slug,
		Title:        title,
		Content:      doc,
		Tags:         FilterEmpty(strings.Split(c.FormValue("tags"), ",")),
		Published:    c.FormValue("published") != "",
		Excerpt:      strPtr(strings.TrimSpace(c.FormValue("excerpt"))),
		PreviewImage: strPtr(strings.TrimSpace(c.FormValue("preview_image"))),
		CreatedAt:    created,
	}
	if post.Excerpt == nil {
		post.Excerpt = strPtr(DeriveExcerpt(doc, excerptLength))
	}
	// The form is authoritative; drop any pending autosave for this post.
	a.Drafts.Remove(slug)
	if _, err := a.Store.SavePost(c.Request().Context(), post); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return a.renderAdminDashboard(c, "saved")
}

func (a *App) handleAdminDelete(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")
	images, err := a.Store.ListImages(ctx, slug)
	if err != nil {
		return err
	}
	if err := a.Store.DeletePost(ctx, slug); err != nil {
		return err
	}
	a.Drafts.Remove(slug)
	for _, img := range images {
		if err := a.deleteBlob(ctx, img); err != nil {
			c.Logger().Warnf("delete image %s/%s: %v", img.PostSlug, img.Filename, err)
		}
	}
	a.Cache.Invalidate()
	return a.renderAdminDashboard(c, "deleted")
}

func (a *App) handleTogglePublish(c echo.Context) error {
	published, err := a.Store.TogglePublish(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	if s, ok := a.Drafts.Get(c.Param("slug")); ok {
		s.SetPublished(published)
	}
	a.Cache.Invalidate()
	if published {
		return a.renderAdminDashboard(c, "published")
	}
	return a.renderAdminDashboard(c, "unpublished")
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	posts, err := a.Store.ListAllPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(posts, msg, CsrfToken(c)))
}

// autosaveRequest carries the fields the editor changed; nil fields are left alone.
type autosaveRequest struct {
	Title     *string            `json:"title"`
	Content   *document.Document `json:"content"`
	Tags      []string           `json:"tags"`
	Published *bool              `json:"published"`
}

// draftSession returns the open session for slug, loading the stored post
// into a new one if needed.
func (a *App) draftSession(ctx context.Context, slug string) (*editor.Session, error) {
	if s, ok := a.Drafts.Get(slug); ok {
		return s, nil
	}
	d := editor.Draft{Slug: slug}
	post, err := a.Store.GetPostAny(ctx, slug)
	switch {
	case err == nil:
		d = draftFromPost(post)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	return a.Drafts.Open(d), nil
}

func (a *App) handleAutosave(c echo.Context) error {
	slug := c.Param("slug")
	if Slugify(slug) != slug {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid slug")
	}
	var req autosaveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid autosave payload")
	}
	s, err := a.draftSession(c.Request().Context(), slug)
	if err != nil {
		return err
	}
	if req.Title != nil {
		s.SetTitle(*req.Title)
	}
	if req.Content != nil {
		s.SetContent(*req.Content)
	}
	if req.Tags != nil {
		s.SetTags(FilterEmpty(req.Tags))
	}
	if req.Published != nil {
		s.SetPublished(*req.Published)
	}
	return c.JSON(http.StatusAccepted, s.Status())
}

func (a *App) handleAutosaveStatus(c echo.Context) error {
	s, ok := a.Drafts.Get(c.Param("slug"))
	if !ok {
		return c.JSON(http.StatusOK, editor.Status{State: editor.Idle})
	}
	return c.JSON(http.StatusOK, s.Status())
}

func (a *App) handleAutosaveFlush(c echo.Context) error {
	s, ok := a.Drafts.Get(c.Param("slug"))
	if !ok {
		return c.JSON(http.StatusOK, editor.Status{State: editor.Idle})
	}
	if err := s.Flush(c.Request().Context()); err != nil {
		c.Logger().Errorf("flush draft %s: %v", c.Param("slug"), err)
		return c.JSON(http.StatusInternalServerError, s.Status())
	}
	return c.JSON(http.StatusOK, s.Status())
}

func draftFromPost(p BlogPost) editor.Draft {
	return editor.Draft{
		PostID:    p.ID,
		Slug:      p.Slug,
		Title:     p.Title,
		Content:   p.Content,
		Tags:      p.Tags,
		Published: p.Published,
	}
}

// saveDraft is the editor's Saver. Fields the editor does not edit (excerpt,
// preview image, creation time) are kept from the stored post.
func (a *App) saveDraft(ctx context.Context, d editor.Draft) error {
	post := BlogPost{
		ID:        d.PostID,
		Slug:      d.Slug,
		Title:     d.Title,
		Content:   d.Content,
		Tags:      d.Tags,
		Published: d.Published,
	}
	existing, err := a.Store.GetPostAny(ctx, d.Slug)
	switch {
	case err == nil:
		post.Excerpt = existing.Excerpt
		post.PreviewImage = existing.PreviewImage
		if post.ID == "" {
			post.ID = existing.ID
		}
	case !errors.Is(err, ErrNotFound):
		return err
	}
	if post.Excerpt == nil {
		post.Excerpt = strPtr(DeriveExcerpt(d.Content, excerptLength))
	}
	if post.Title == "" {
		post.Title = "Untitled"
	}
	if _, err := a.Store.SavePost(ctx, post); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return nil
}
