package document

import (
	"strings"

	"golang.org/x/net/html"
)

// Sentinel texts used when ingestion finds nothing to convert.
const (
	ContentNotFound = "Content not found"
	NoContentFound  = "No content found"
)

// Ingester converts exported HTML pages into documents.
type Ingester struct {
	// ContainerClasses must all be present on the content container.
	ContainerClasses []string
	// EmbedClass marks div widgets whose text is kept as a plain paragraph.
	EmbedClass string
}

// DefaultIngester matches Webflow rich-text exports.
var DefaultIngester = Ingester{
	ContainerClasses: []string{"article", "w-richtext"},
	EmbedClass:       "w-embed",
}

// FromHTML converts src using DefaultIngester.
func FromHTML(src string) Document {
	return DefaultIngester.Convert(src)
}

// Convert parses src and converts the direct children of its content
// container. It never fails: a missing container yields a single
// "Content not found" paragraph.
func (in Ingester) Convert(src string) Document {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return sentinel(ContentNotFound)
	}
	container := findFirst(root, func(n *html.Node) bool {
		return hasClasses(n, in.ContainerClasses)
	})
	if container == nil {
		return sentinel(ContentNotFound)
	}

	var blocks []Block
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		blocks = append(blocks, in.convertElement(c)...)
	}
	if len(blocks) == 0 {
		return sentinel(NoContentFound)
	}
	return Document{Content: blocks}
}

func (in Ingester) convertElement(el *html.Node) []Block {
	switch tag := el.Data; tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		runs := extractRuns(el)
		if len(runs) == 0 {
			return nil
		}
		return []Block{Heading{Level: int(tag[1] - '0'), Content: runs}}
	case "p":
		return paragraphOf(extractRuns(el))
	case "ul":
		if items := listItems(el); len(items) > 0 {
			return []Block{BulletList{Items: items}}
		}
		return nil
	case "ol":
		if items := listItems(el); len(items) > 0 {
			return []Block{OrderedList{Items: items}}
		}
		return nil
	case "figure":
		return convertFigure(el)
	case "img":
		if img, ok := imageOf(el); ok {
			return []Block{img}
		}
		return nil
	case "blockquote":
		runs := extractRuns(el)
		if len(runs) == 0 {
			return nil
		}
		return []Block{Blockquote{Content: runs}}
	case "pre":
		src := el
		if code := findFirst(el, isTag("code")); code != nil {
			src = code
		}
		text := strings.TrimSpace(textContent(src))
		if text == "" {
			return nil
		}
		return []Block{CodeBlock{Text: text}}
	case "div":
		if in.EmbedClass != "" && hasClasses(el, []string{in.EmbedClass}) {
			return paragraphOf(plainRuns(textContent(el)))
		}
		return paragraphOf(extractRuns(el))
	default:
		return paragraphOf(plainRuns(textContent(el)))
	}
}

func paragraphOf(runs []InlineRun) []Block {
	if len(runs) == 0 {
		return nil
	}
	return []Block{Paragraph{Content: runs}}
}

func plainRuns(s string) []InlineRun {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return []InlineRun{Text(s)}
}

func listItems(list *html.Node) []ListItem {
	var items []ListItem
	for _, li := range findAll(list, isTag("li")) {
		runs := extractRuns(li)
		if len(runs) == 0 {
			continue
		}
		items = append(items, ListItem{Paragraph: Paragraph{Content: runs}})
	}
	return items
}

func convertFigure(fig *html.Node) []Block {
	img := findFirst(fig, isTag("img"))
	if img == nil {
		iframe := findFirst(fig, isTag("iframe"))
		if iframe == nil {
			return nil
		}
		title := strings.TrimSpace(attr(iframe, "title"))
		if title == "" {
			title = "Embedded Video"
		}
		return []Block{NewParagraph(Text("[Video: "+title+"]", Italic{}))}
	}

	block, ok := imageOf(img)
	if !ok {
		return nil
	}
	var caption string
	if fc := findFirst(fig, isTag("figcaption")); fc != nil {
		caption = strings.TrimSpace(textContent(fc))
	}
	if caption == "" {
		return []Block{block}
	}
	block.Title = &caption
	if block.Alt == "" {
		block.Alt = caption
	}
	return []Block{block, NewParagraph(Text(caption, Italic{}))}
}

func imageOf(img *html.Node) (Image, bool) {
	src := strings.TrimSpace(attr(img, "src"))
	if src == "" {
		return Image{}, false
	}
	return Image{Src: src, Alt: attr(img, "alt")}, true
}

// extractRuns maps each child node of el to at most one run.
func extractRuns(el *html.Node) []InlineRun {
	var runs []InlineRun
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if t := strings.TrimSpace(c.Data); t != "" {
				runs = append(runs, Text(t))
			}
		case html.ElementNode:
			t := strings.TrimSpace(textContent(c))
			if t == "" {
				continue
			}
			switch c.Data {
			case "strong", "b":
				runs = append(runs, Text(t, Bold{}))
			case "em", "i":
				runs = append(runs, Text(t, Italic{}))
			case "a":
				if href := attr(c, "href"); href != "" {
					runs = append(runs, Text(t, Link{Href: href}))
				} else {
					runs = append(runs, Text(t))
				}
			case "code":
				runs = append(runs, Text(t, Code{}))
			default:
				runs = append(runs, Text(t))
			}
		}
	}
	return runs
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func isTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

// findFirst returns the first descendant of n (n excluded) matching match.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			out = append(out, c)
		}
		out = append(out, findAll(c, match)...)
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClasses(n *html.Node, want []string) bool {
	if n.Type != html.ElementNode || len(want) == 0 {
		return false
	}
	have := strings.Fields(attr(n, "class"))
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
