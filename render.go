package folio

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/document"
	"github.com/eringen/folio/storage"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// PostRenderer returns the document renderer for a post: relative image
// sources resolve to the post's namespace in the blob store. Anchors are for
// pages with a table of contents; feeds leave them off.
func (a *App) PostRenderer(slug string, anchors bool) document.Renderer {
	r := document.Renderer{Anchors: anchors}
	if a.Blobs != nil {
		r.ResolveAsset = storage.Resolver(a.Blobs, slug)
	}
	return r
}

// RenderPostHTML renders a post body to an HTML string.
func (a *App) RenderPostHTML(p BlogPost, anchors bool) string {
	return a.PostRenderer(p.Slug, anchors).Render(p.Content)
}
