package folio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/folio/storage"
)

const (
	testPassword = "correct-horse"
	testCSRF     = "test-csrf-token"
)

func write(format string, args ...any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, format, args...)
		return err
	})
}

func postTitles(posts []BlogPost) string {
	var titles []string
	for _, p := range posts {
		titles = append(titles, p.Title)
	}
	return strings.Join(titles, ",")
}

// stubViews renders just enough of each page for assertions.
func stubViews() ViewFuncs {
	post := func(page PostPage) templ.Component {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			fmt.Fprintf(w, "post:%s|", page.Post.Title)
			if err := page.Body.Render(ctx, w); err != nil {
				return err
			}
			for _, h := range page.TOC {
				fmt.Fprintf(w, "|toc:%s", h.ID)
			}
			fmt.Fprintf(w, "|related:%s", postTitles(page.Related))
			return nil
		})
	}
	return ViewFuncs{
		Home: func(posts []BlogPost, tag string, tags []string, siteURL string) templ.Component {
			return write("home:%s tags:%s", postTitles(posts), strings.Join(tags, ","))
		},
		HomePartial: func(posts []BlogPost, tag string, tags []string, siteURL string) templ.Component {
			return write("home-partial:%s", postTitles(posts))
		},
		BlogSection: func(posts []BlogPost, tag string, tags []string) templ.Component {
			return write("blog-section:%s", postTitles(posts))
		},
		Post:        post,
		PostPartial: post,
		AdminLogin: func(showError bool, csrf string) templ.Component {
			return write("login error=%t", showError)
		},
		AdminDashboard: func(posts []BlogPost, msg, csrf string) templ.Component {
			return write("dashboard:%s msg:%s", postTitles(posts), msg)
		},
		AdminFormPartial: func(p BlogPost, csrf string) templ.Component {
			return write("form:%s", p.Title)
		},
		AdminImages: func(images []Image, csrf string) templ.Component {
			var names []string
			for _, img := range images {
				names = append(names, img.Filename)
			}
			return write("images:%s", strings.Join(names, ","))
		},
		NotFound:    func() templ.Component { return write("not found") },
		ServerError: func() templ.Component { return write("server error") },
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "blog.db"))
	if err != nil {
		t.Fatal(err)
	}
	cfg := SiteConfig{
		Name:          "Test Site",
		URL:           "https://blog.example.com",
		Description:   "Testing",
		AdminPassword: testPassword,
		SessionSecret: "0123456789abcdef0123456789abcdef",
		UploadDir:     filepath.Join(dir, "uploads"),
		AutosaveDelay: time.Hour,
	}
	blobs := storage.NewLocal(cfg.UploadDir, cfg.URL+uploadsRoute)
	a := New(cfg, stubViews(), WithStore(store), WithBlobStore(blobs), WithStaticDir(dir))
	if err := a.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func (a *App) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

// withCSRF adds a matching CSRF cookie and header to a mutating request.
func withCSRF(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: "_csrf", Value: testCSRF})
	req.Header.Set("X-CSRF-Token", testCSRF)
	return req
}

// login returns the admin session cookie.
func login(t *testing.T, a *App) *http.Cookie {
	t.Helper()
	form := url.Values{"password": {testPassword}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := a.do(t, withCSRF(req))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionName {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func seedPost(t *testing.T, a *App, p BlogPost) BlogPost {
	t.Helper()
	saved, err := a.Store.SavePost(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	a.Cache.Invalidate()
	return saved
}

func TestHomeListsPublishedPosts(t *testing.T) {
	a := newTestApp(t)
	seedPost(t, a, BlogPost{Slug: "visible", Title: "Visible", Tags: []string{"go"}, Published: true})
	seedPost(t, a, BlogPost{Slug: "draft", Title: "Draft"})

	rec := a.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); body != "home:Visible tags:go" {
		t.Fatalf("body = %q", body)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", cc)
	}

	req := httptest.NewRequest(http.MethodGet, "/?partial=blog", nil)
	req.Header.Set("HX-Request", "true")
	if body := a.do(t, req).Body.String(); body != "blog-section:Visible" {
		t.Fatalf("partial body = %q", body)
	}
}

func TestPostPageRendersDocument(t *testing.T) {
	a := newTestApp(t)
	seedPost(t, a, BlogPost{Slug: "hello", Title: "Hello", Tags: []string{"go"}, Published: true, Content: sampleContent("Hi")})
	seedPost(t, a, BlogPost{Slug: "other", Title: "Other", Tags: []string{"go"}, Published: true})

	rec := a.do(t, httptest.NewRequest(http.MethodGet, "/blog/hello/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := `post:Hello|<h2 id="intro">Intro</h2><p>Hi <strong>bold</strong></p>|toc:intro|related:Other`
	if body := rec.Body.String(); body != want {
		t.Fatalf("body = %q\nwant %q", body, want)
	}
}

func TestPostPageNotFound(t *testing.T) {
	a := newTestApp(t)
	seedPost(t, a, BlogPost{Slug: "draft", Title: "Draft"})
	for _, path := range []string{"/blog/missing/", "/blog/draft/", "/no/such/route/"} {
		rec := a.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound || rec.Body.String() != "not found" {
			t.Errorf("%s: status = %d body = %q", path, rec.Code, rec.Body.String())
		}
	}
}

func TestTrailingSlashRedirect(t *testing.T) {
	a := newTestApp(t)
	rec := a.do(t, httptest.NewRequest(http.MethodGet, "/blog/hello", nil))
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAdminRoutesRequireLogin(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(t, httptest.NewRequest(http.MethodGet, "/admin/new/", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/admin/" {
		t.Fatalf("browser: status = %d location = %q", rec.Code, rec.Header().Get("Location"))
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/autosave/hello/", nil)
	req.Header.Set("Accept", "application/json")
	if rec := a.do(t, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("json: status = %d", rec.Code)
	}

	if body := a.do(t, httptest.NewRequest(http.MethodGet, "/admin/", nil)).Body.String(); body != "login error=false" {
		t.Fatalf("admin page = %q", body)
	}
}

func TestAdminLoginRejectsWrongPassword(t *testing.T) {
	a := newTestApp(t)
	form := url.Values{"password": {"nope"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := a.do(t, withCSRF(req))
	if rec.Body.String() != "login error=true" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestMutationsRequireCSRF(t *testing.T) {
	a := newTestApp(t)
	form := url.Values{"password": {testPassword}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if rec := a.do(t, req); rec.Code != http.StatusForbidden && rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want CSRF rejection", rec.Code)
	}
}

func TestAdminSaveStoresDocument(t *testing.T) {
	a := newTestApp(t)
	cookie := login(t, a)

	form := url.Values{
		"title":     {"Fresh Post"},
		"date":      {"2024-06-01"},
		"tags":      {"Go, web ,"},
		"published": {"on"},
		"content":   {`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Body text."}]}]}`},
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/save/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := a.do(t, withCSRF(req))
	if rec.Code != http.StatusOK || rec.Body.String() != "dashboard:Fresh Post msg:saved" {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}

	p, err := a.Store.GetPost(context.Background(), "fresh-post")
	if err != nil {
		t.Fatal(err)
	}
	if p.Date() != "2024-06-01" || p.Summary() != "Body text." || len(p.Tags) != 2 {
		t.Fatalf("stored post = %+v", p)
	}
}

func TestAdminSaveRejectsInvalidContent(t *testing.T) {
	a := newTestApp(t)
	cookie := login(t, a)
	form := url.Values{"title": {"Broken"}, "content": {`{"type":"paragraph"}`}}
	req := httptest.NewRequest(http.MethodPost, "/admin/save/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := a.do(t, withCSRF(req))
	if rec.Code != http.StatusSeeOther || !strings.Contains(rec.Header().Get("Location"), "msg=") {
		t.Fatalf("status = %d location = %q", rec.Code, rec.Header().Get("Location"))
	}
	if _, err := a.Store.GetPostAny(context.Background(), "broken"); err == nil {
		t.Fatal("invalid content must not be stored")
	}
}

func TestTogglePublishAndDelete(t *testing.T) {
	a := newTestApp(t)
	cookie := login(t, a)
	seedPost(t, a, BlogPost{Slug: "flip", Title: "Flip"})

	req := httptest.NewRequest(http.MethodPost, "/admin/post/flip/publish/", nil)
	req.AddCookie(cookie)
	if body := a.do(t, withCSRF(req)).Body.String(); body != "dashboard:Flip msg:published" {
		t.Fatalf("toggle body = %q", body)
	}
	if body := a.do(t, httptest.NewRequest(http.MethodGet, "/", nil)).Body.String(); !strings.Contains(body, "Flip") {
		t.Fatalf("published post missing from home: %q", body)
	}

	req = httptest.NewRequest(http.MethodDelete, "/admin/post/flip/", nil)
	req.AddCookie(cookie)
	if body := a.do(t, withCSRF(req)).Body.String(); body != "dashboard: msg:deleted" {
		t.Fatalf("delete body = %q", body)
	}
}

func TestAutosaveBuffersUntilFlush(t *testing.T) {
	a := newTestApp(t)
	cookie := login(t, a)
	seedPost(t, a, BlogPost{Slug: "editing", Title: "Before", Excerpt: strPtr("Kept excerpt")})

	body := `{"title":"After","content":{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Typed."}]}]}}`
	req := httptest.NewRequest(http.MethodPost, "/admin/autosave/editing/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.AddCookie(cookie)
	rec := a.do(t, withCSRF(req))
	if rec.Code != http.StatusAccepted || !strings.Contains(rec.Body.String(), `"dirty"`) {
		t.Fatalf("autosave status = %d body = %s", rec.Code, rec.Body.String())
	}

	stored, _ := a.Store.GetPostAny(context.Background(), "editing")
	if stored.Title != "Before" {
		t.Fatalf("draft saved before the quiet period: %q", stored.Title)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/post/editing/", nil)
	req.AddCookie(cookie)
	if body := a.do(t, req).Body.String(); body != "form:After" {
		t.Fatalf("editor did not show the open draft: %q", body)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/autosave/editing/flush/", nil)
	req.Header.Set("Accept", "application/json")
	req.AddCookie(cookie)
	rec = a.do(t, withCSRF(req))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"saved"`) {
		t.Fatalf("flush status = %d body = %s", rec.Code, rec.Body.String())
	}

	stored, err := a.Store.GetPostAny(context.Background(), "editing")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Title != "After" || stored.Summary() != "Kept excerpt" {
		t.Fatalf("stored = %q / %q", stored.Title, stored.Summary())
	}
}

func TestAutosaveRejectsBadSlug(t *testing.T) {
	a := newTestApp(t)
	cookie := login(t, a)
	req := httptest.NewRequest(http.MethodPost, "/admin/autosave/Bad_Slug/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	if rec := a.do(t, withCSRF(req)); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestShutdownFlushesDrafts(t *testing.T) {
	a := newTestApp(t)
	s := a.Drafts.Open(draftFromPost(BlogPost{Slug: "pending", Title: "Pending"}))
	s.SetTitle("Pending edit")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	p, err := a.Store.GetPostAny(context.Background(), "pending")
	if err != nil {
		t.Fatal(err)
	}
	if p.Title != "Pending edit" {
		t.Fatalf("Title = %q", p.Title)
	}
}

func TestOpenRequiresSecrets(t *testing.T) {
	a := New(SiteConfig{}, stubViews(), WithStore(setupTestStore(t)))
	if err := a.Open(context.Background()); err == nil {
		t.Fatal("expected an error without AdminPassword")
	}
}

func TestNewBlobStore(t *testing.T) {
	local, err := NewBlobStore(SiteConfig{URL: "https://example.com/"})
	if err != nil {
		t.Fatal(err)
	}
	if got := local.URL("public/a/b.jpg"); got != "https://example.com/uploads/public/a/b.jpg" {
		t.Errorf("local URL = %q", got)
	}

	if _, err := NewBlobStore(SiteConfig{StorageBackend: StorageSupabase}); err == nil {
		t.Error("supabase without credentials should fail")
	}
	sb, err := NewBlobStore(SiteConfig{StorageBackend: StorageSupabase, SupabaseURL: "https://x.supabase.co", SupabaseServiceKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if got := sb.URL("public/a/b.jpg"); got != "https://x.supabase.co/storage/v1/object/public/blog-images/public/a/b.jpg" {
		t.Errorf("supabase URL = %q", got)
	}

	if _, err := NewBlobStore(SiteConfig{StorageBackend: "ftp"}); err == nil {
		t.Error("unknown backend should fail")
	}
}
