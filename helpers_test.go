package folio

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/eringen/folio/document"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Go 1.24: What's New?  ", "go-1-24-what-s-new"},
		{"---", ""},
		{"Ünïcode title", "n-code-title"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://example.com", nil, "https://example.com"},
		{"https://example.com", []string{"blog", "post"}, "https://example.com/blog/post/"},
		{"https://example.com/sub/", []string{"blog"}, "https://example.com/sub/blog/"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestFilterEmpty(t *testing.T) {
	got := FilterEmpty([]string{" go ", "", "  ", "web"})
	if len(got) != 2 || got[0] != "go" || got[1] != "web" {
		t.Fatalf("FilterEmpty = %v", got)
	}
}

func TestFilterRelatedPosts(t *testing.T) {
	current := BlogPost{Slug: "current", Tags: []string{"Go"}}
	posts := []BlogPost{
		current,
		{Slug: "shares", Tags: []string{"web", "go"}},
		{Slug: "unrelated", Tags: []string{"rust"}},
	}
	related := FilterRelatedPosts(current, posts)
	if len(related) != 1 || related[0].Slug != "shares" {
		t.Fatalf("FilterRelatedPosts = %v", slugs(related))
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("héllo wörld", 5); got != "héllo..." {
		t.Errorf("Truncate = %q", got)
	}
}

func TestDeriveExcerpt(t *testing.T) {
	doc := document.Document{Content: []document.Block{
		document.Heading{Level: 1, Content: []document.InlineRun{document.Text("Title")}},
		document.NewParagraph(),
		document.NewParagraph(document.Text("First"), document.Text("bold", document.Bold{}), document.Text("words.")),
		document.NewParagraph(document.Text("Second paragraph")),
	}}
	if got := DeriveExcerpt(doc, 200); got != "First bold words." {
		t.Errorf("DeriveExcerpt = %q", got)
	}
	if got := DeriveExcerpt(doc, 5); got != "First..." {
		t.Errorf("DeriveExcerpt(5) = %q", got)
	}
	if got := DeriveExcerpt(document.Document{}, 10); got != "" {
		t.Errorf("DeriveExcerpt(empty) = %q", got)
	}
}

func TestBlogPostingJsonLD(t *testing.T) {
	post := BlogPost{
		Slug:         "hello",
		Title:        "Hello",
		Excerpt:      strPtr("An intro"),
		PreviewImage: strPtr("https://cdn.example.com/p.jpg"),
		Tags:         []string{"go", "web"},
	}
	cfg := SiteConfig{Name: "Site", URL: "https://example.com", Author: "Ada"}
	var data map[string]any
	if err := json.Unmarshal([]byte(BlogPostingJsonLD(post, cfg)), &data); err != nil {
		t.Fatal(err)
	}
	if data["url"] != "https://example.com/blog/hello/" {
		t.Errorf("url = %v", data["url"])
	}
	if data["description"] != "An intro" {
		t.Errorf("description = %v", data["description"])
	}
	if data["image"] != "https://cdn.example.com/p.jpg" {
		t.Errorf("image = %v", data["image"])
	}
	if data["keywords"] != "go, web" {
		t.Errorf("keywords = %v", data["keywords"])
	}
}

func TestWebsiteJsonLD(t *testing.T) {
	out := WebsiteJsonLD(SiteConfig{Name: "Site", URL: "https://example.com"})
	if !strings.Contains(out, `"@type":"WebSite"`) || strings.Contains(out, "author") {
		t.Errorf("WebsiteJsonLD = %s", out)
	}
}
