// Package views provides the default page components for a folio site.
// Each page is an html/template file embedded in the binary and exposed as a
// templ.Component, so sites can swap single pages for their own templ
// components without touching the rest.
package views

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"github.com/eringen/folio"
	"github.com/eringen/folio/document"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"join":       folio.JoinTags,
	"pathEscape": folio.PathEscape,
	"tagClass":   TagClass,
}

// pages maps a page name to its template set (layout plus the page).
var pages = func() map[string]*template.Template {
	base := template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/layout.html"))
	names := []string{"home", "post", "admin_login", "admin_dashboard", "admin_form", "admin_images", "not_found", "server_error"}
	out := make(map[string]*template.Template, len(names))
	for _, n := range names {
		out[n] = template.Must(template.Must(base.Clone()).ParseFS(templateFS, "templates/"+n+".html"))
	}
	return out
}()

// data is the single value every template receives.
type data struct {
	Site      folio.SiteConfig
	Meta      folio.PageMeta
	JSONLD    template.JS
	Posts     []folio.BlogPost
	Tags      []string
	ActiveTag string

	Post    folio.BlogPost
	Body    template.HTML
	TOC     []document.TocHeading
	Related []folio.BlogPost

	ShowError   bool
	Message     string
	CSRF        string
	Images      []folio.Image
	ContentJSON string
}

func component(page, block string, d data) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return pages[page].ExecuteTemplate(w, block, d)
	})
}

// full renders the page inside the site layout; partials render only the
// page's content block for htmx swaps.
func full(page string, d data) templ.Component    { return component(page, "layout", d) }
func partial(page string, d data) templ.Component { return component(page, "content", d) }

// Funcs returns the default ViewFuncs for cfg.
func Funcs(cfg folio.SiteConfig) folio.ViewFuncs {
	v := site{cfg: cfg}
	return folio.ViewFuncs{
		Home:             v.home,
		HomePartial:      v.homePartial,
		BlogSection:      v.blogSection,
		Post:             v.post,
		PostPartial:      v.postPartial,
		AdminLogin:       v.adminLogin,
		AdminDashboard:   v.adminDashboard,
		AdminFormPartial: v.adminForm,
		AdminImages:      v.adminImages,
		NotFound:         v.notFound,
		ServerError:      v.serverError,
	}
}

type site struct {
	cfg folio.SiteConfig
}

func (s site) base(title string) data {
	return data{
		Site: s.cfg,
		Meta: folio.PageMeta{
			Title:       title,
			Description: s.cfg.Description,
			URL:         folio.BuildURL(s.cfg.URL),
			OGType:      "website",
		},
	}
}

func (s site) listing(posts []folio.BlogPost, activeTag string, tags []string) data {
	d := s.base(s.cfg.Name)
	d.JSONLD = template.JS(folio.WebsiteJsonLD(s.cfg))
	d.Posts, d.ActiveTag, d.Tags = posts, activeTag, tags
	return d
}

func (s site) home(posts []folio.BlogPost, activeTag string, tags []string, _ string) templ.Component {
	return full("home", s.listing(posts, activeTag, tags))
}

func (s site) homePartial(posts []folio.BlogPost, activeTag string, tags []string, _ string) templ.Component {
	return partial("home", s.listing(posts, activeTag, tags))
}

func (s site) blogSection(posts []folio.BlogPost, activeTag string, tags []string) templ.Component {
	return component("home", "blog", s.listing(posts, activeTag, tags))
}

func (s site) postData(ctx context.Context, page folio.PostPage) (data, error) {
	p := page.Post
	d := s.base(p.Title + " | " + s.cfg.Name)
	d.Meta.Description = p.Summary()
	d.Meta.URL = folio.BuildURL(s.cfg.URL, "blog", p.Slug)
	d.Meta.OGType = "article"
	if p.PreviewImage != nil {
		d.Meta.Image = *p.PreviewImage
	}
	d.JSONLD = template.JS(folio.BlogPostingJsonLD(p, s.cfg))
	d.Post, d.TOC, d.Related = p, page.TOC, page.Related
	if page.Body != nil {
		body, err := templ.ToGoHTML(ctx, page.Body)
		if err != nil {
			return data{}, err
		}
		d.Body = body
	}
	return d, nil
}

func (s site) renderPost(page folio.PostPage, block string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		d, err := s.postData(ctx, page)
		if err != nil {
			return err
		}
		return pages["post"].ExecuteTemplate(w, block, d)
	})
}

func (s site) post(page folio.PostPage) templ.Component        { return s.renderPost(page, "layout") }
func (s site) postPartial(page folio.PostPage) templ.Component { return s.renderPost(page, "content") }

func (s site) adminLogin(showError bool, csrf string) templ.Component {
	d := s.base("Sign in | " + s.cfg.Name)
	d.ShowError, d.CSRF = showError, csrf
	return full("admin_login", d)
}

func (s site) adminDashboard(posts []folio.BlogPost, msg, csrf string) templ.Component {
	d := s.base("Admin | " + s.cfg.Name)
	d.Posts, d.Message, d.CSRF = posts, msg, csrf
	return full("admin_dashboard", d)
}

func (s site) adminForm(p folio.BlogPost, csrf string) templ.Component {
	d := s.base("Edit | " + s.cfg.Name)
	d.Post, d.CSRF = p, csrf
	if !p.Content.IsEmpty() {
		b, err := json.MarshalIndent(p.Content, "", "  ")
		if err == nil {
			d.ContentJSON = string(b)
		}
	}
	return partial("admin_form", d)
}

func (s site) adminImages(images []folio.Image, csrf string) templ.Component {
	d := s.base("Images")
	d.Images, d.CSRF = images, csrf
	return partial("admin_images", d)
}

func (s site) notFound() templ.Component {
	return full("not_found", s.base("Not found | "+s.cfg.Name))
}

func (s site) serverError() templ.Component {
	return full("server_error", s.base("Error | "+s.cfg.Name))
}

// TagClass returns CSS classes for a tag pill, with active variant.
func TagClass(active bool) string {
	base := "inline-flex items-center rounded border border-ink dark:border-white/30 bg-stone-100 dark:bg-neutral-700 px-2.5 py-1 text-[11px] font-semibold uppercase tracking-[0.12em] hover:-translate-y-0.5 hover:shadow-sm transition"
	if active {
		base += " bg-ink dark:bg-white text-white dark:text-ink"
	}
	return base
}
