package folio

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eringen/folio/document"
)

func feedPost() BlogPost {
	return BlogPost{
		Slug:      "hello",
		Title:     "Hello & Welcome",
		Excerpt:   strPtr("Short intro"),
		Tags:      []string{"go"},
		Published: true,
		CreatedAt: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Content: document.Document{Content: []document.Block{
			document.Heading{Level: 2, Content: []document.InlineRun{document.Text("Setup")}},
			document.NewParagraph(document.Text("See"), document.Text("docs", document.Link{Href: "https://go.dev"}), document.Text("now")),
			document.Image{Src: "diagram.png", Alt: "Diagram"},
			document.RawHTML{HTML: `<iframe src="https://player.example.com/1"></iframe>`},
		}},
	}
}

func TestBuildFeedRendersBodies(t *testing.T) {
	a := newTestApp(t)
	feed := a.buildFeed([]BlogPost{feedPost()})

	if len(feed.Channel.Items) != 1 {
		t.Fatalf("items = %d", len(feed.Channel.Items))
	}
	item := feed.Channel.Items[0]
	if item.Link != "https://blog.example.com/blog/hello/" || item.GUID != item.Link {
		t.Errorf("link = %q guid = %q", item.Link, item.GUID)
	}
	if item.Description != "Short intro" {
		t.Errorf("description = %q", item.Description)
	}
	body := item.Content.Value
	for _, want := range []string{
		`<h2>Setup</h2>`,
		`See <a href="https://go.dev">docs</a> now`,
		`src="https://blog.example.com/uploads/public/hello/diagram.png"`,
		`<iframe src="https://player.example.com/1"></iframe>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("content missing %q in %s", want, body)
		}
	}
	if strings.Contains(body, "id=") {
		t.Errorf("feed content should not carry heading anchors: %s", body)
	}
}

func TestFeedEndpoint(t *testing.T) {
	a := newTestApp(t)
	seedPost(t, a, feedPost())
	seedPost(t, a, BlogPost{Slug: "draft", Title: "Unpublished"})

	rec := a.do(t, httptest.NewRequest(http.MethodGet, "/feed.xml", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/rss+xml") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`xmlns:content="http://purl.org/rss/1.0/modules/content/"`,
		`<title>Hello &amp; Welcome</title>`,
		`<content:encoded><![CDATA[`,
		`<category>go</category>`,
		`<lastBuildDate>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("feed missing %q", want)
		}
	}
	if strings.Contains(body, "Unpublished") {
		t.Error("drafts must not appear in the feed")
	}
}

func TestFeedLimit(t *testing.T) {
	a := newTestApp(t)
	a.Config.FeedLimit = 2
	for i, slug := range []string{"a", "b", "c"} {
		seedPost(t, a, BlogPost{Slug: slug, Title: "Post " + slug, Published: true, CreatedAt: time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC)})
	}
	body := a.do(t, httptest.NewRequest(http.MethodGet, "/feed.xml", nil)).Body.String()
	if strings.Count(body, "<item>") != 2 || strings.Contains(body, "Post a") {
		t.Fatalf("feed = %s", body)
	}
}

func TestSitemapEndpoint(t *testing.T) {
	a := newTestApp(t)
	seedPost(t, a, feedPost())

	rec := a.do(t, httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<loc>https://blog.example.com/blog/hello/</loc>") {
		t.Errorf("sitemap missing post: %s", body)
	}
	today := time.Now().UTC().Format(dateLayout)
	if !strings.Contains(body, "<lastmod>"+today+"</lastmod>") {
		t.Errorf("sitemap lastmod should be the update date: %s", body)
	}
}
