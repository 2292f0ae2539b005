package migrate

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/eringen/folio"
)

// excerptLength matches the excerpt length the admin derives for new posts.
const excerptLength = 200

// ExtractExcerpt returns the page's summary: the meta description, else the
// intro paragraph, else the first article paragraph cut to 200 characters.
func ExtractExcerpt(src string) string {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return ""
	}
	if m := find(root, metaWith("name", "description")); m != nil {
		if v := strings.TrimSpace(attr(m, "content")); v != "" {
			return v
		}
	}
	if intro := find(root, hasClass("blog-post-intro-contrainer")); intro != nil {
		if p := find(intro, hasClass("paragraph")); p != nil {
			if v := strings.TrimSpace(text(p)); v != "" {
				return v
			}
		}
	}
	if article := find(root, hasClass("article")); article != nil {
		if p := find(article, isElement("p")); p != nil {
			return folio.Truncate(text(p), excerptLength)
		}
	}
	return ""
}

// ExtractPreviewImage returns the page's preview image URL: og:image, else
// the hero image, else the first image inside the article.
func ExtractPreviewImage(src string) string {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return ""
	}
	if m := find(root, metaWith("property", "og:image")); m != nil {
		if v := strings.TrimSpace(attr(m, "content")); v != "" {
			return v
		}
	}
	if hero := find(root, hasClass("hero-image")); hero != nil {
		if v := strings.TrimSpace(attr(hero, "src")); v != "" {
			return v
		}
	}
	if article := find(root, hasClass("article")); article != nil {
		if img := find(article, isElement("img")); img != nil {
			return strings.TrimSpace(attr(img, "src"))
		}
	}
	return ""
}

type matcher func(*html.Node) bool

func isElement(tag string) matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func metaWith(key, val string) matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "meta" && strings.EqualFold(attr(n, key), val)
	}
}

func hasClass(class string) matcher {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				return true
			}
		}
		return false
	}
}

// find returns the first descendant of n in document order matching m.
func find(n *html.Node, m matcher) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m(c) {
			return c
		}
		if found := find(c, m); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
