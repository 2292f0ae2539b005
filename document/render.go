package document

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Renderer converts documents to HTML. The zero value renders without
// heading anchors and leaves image sources untouched.
type Renderer struct {
	// Anchors sets an id on every heading, matching ExtractHeadings.
	Anchors bool
	// ResolveAsset maps the file name of a relative image source to an
	// absolute URL. Nil disables rewriting.
	ResolveAsset func(name string) string
}

// HTML renders d for a web page: anchors on, no asset rewriting.
func HTML(d Document) string {
	return Renderer{Anchors: true}.Render(d)
}

// Render serializes d and applies the post-processing passes in order:
// raw HTML unescaping, link spacing, asset URL rewriting.
// Output is a pure function of d and r.
func (r Renderer) Render(d Document) string {
	var ids *slugger
	if r.Anchors {
		ids = newSlugger()
	}
	var b strings.Builder
	for _, blk := range d.Content {
		n := blockNode(blk, ids)
		if n == nil {
			continue
		}
		if err := html.Render(&b, n); err != nil {
			continue
		}
	}
	out := UnescapeRawHTML(b.String())
	out = NormalizeLinkSpacing(out)
	if r.ResolveAsset != nil {
		out = RewriteAssetURLs(out, r.ResolveAsset)
	}
	return out
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// blockNode returns nil for blocks it does not know, so one bad block never
// aborts the page.
func blockNode(b Block, ids *slugger) *html.Node {
	switch v := b.(type) {
	case Paragraph:
		p := element(atom.P)
		appendRuns(p, v.Content)
		return p
	case Heading:
		h := element(headingAtoms[clampLevel(v.Level)-1])
		if ids != nil {
			if id := ids.forHeading(v); id != "" {
				h.Attr = append(h.Attr, html.Attribute{Key: "id", Val: id})
			}
		}
		appendRuns(h, v.Content)
		return h
	case BulletList:
		return listNode(atom.Ul, v.Items)
	case OrderedList:
		return listNode(atom.Ol, v.Items)
	case Blockquote:
		q := element(atom.Blockquote)
		p := element(atom.P)
		appendRuns(p, v.Content)
		q.AppendChild(p)
		return q
	case CodeBlock:
		pre := element(atom.Pre)
		code := element(atom.Code)
		code.AppendChild(textNode(v.Text))
		pre.AppendChild(code)
		return pre
	case Image:
		src := SafeURL(v.Src)
		if src == "" {
			return nil
		}
		attrs := []html.Attribute{{Key: "src", Val: src}, {Key: "alt", Val: v.Alt}}
		if v.Title != nil {
			attrs = append(attrs, html.Attribute{Key: "title", Val: *v.Title})
		}
		return element(atom.Img, attrs...)
	case RawHTML:
		return element(atom.Div,
			html.Attribute{Key: rawMarkerAttr, Val: ""},
			html.Attribute{Key: "data-html", Val: v.HTML},
		)
	}
	return nil
}

var headingAtoms = [6]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

// clampLevel maps levels outside 1..6 to 1.
func clampLevel(level int) int {
	if level < 1 || level > 6 {
		return 1
	}
	return level
}

func listNode(a atom.Atom, items []ListItem) *html.Node {
	list := element(a)
	for _, it := range items {
		li := element(atom.Li)
		p := element(atom.P)
		appendRuns(p, it.Paragraph.Content)
		li.AppendChild(p)
		list.AppendChild(li)
	}
	return list
}

// appendRuns adds runs to parent, separating runs whose text touches without
// whitespace. Ingested runs are trimmed, so "Some" + bold "bold" + "text."
// renders as "Some <strong>bold</strong> text.".
func appendRuns(parent *html.Node, runs []InlineRun) {
	prev := ""
	for i, r := range runs {
		if r.Text == "" {
			continue
		}
		if i > 0 && needsSeparator(prev, r.Text) {
			parent.AppendChild(textNode(" "))
		}
		parent.AppendChild(runNode(r))
		prev = r.Text
	}
}

// runNode wraps the text in its marks using a fixed nesting order
// (a > strong > em > code) so the mark order never changes the output.
func runNode(r InlineRun) *html.Node {
	n := textNode(r.Text)
	wrap := func(a atom.Atom, attrs ...html.Attribute) {
		el := element(a, attrs...)
		el.AppendChild(n)
		n = el
	}
	if r.Has(Code{}) {
		wrap(atom.Code)
	}
	if r.Has(Italic{}) {
		wrap(atom.Em)
	}
	if r.Has(Bold{}) {
		wrap(atom.Strong)
	}
	if l, ok := r.link(); ok {
		if href := SafeURL(l.Href); href != "" {
			wrap(atom.A, html.Attribute{Key: "href", Val: href})
		}
	}
	return n
}

// runsText joins the run texts the way appendRuns spaces them on the page.
func runsText(runs []InlineRun) string {
	var b strings.Builder
	prev := ""
	for i, r := range runs {
		if r.Text == "" {
			continue
		}
		if i > 0 && needsSeparator(prev, r.Text) {
			b.WriteByte(' ')
		}
		b.WriteString(r.Text)
		prev = r.Text
	}
	return b.String()
}

const (
	closingPunct = `.,;:!?)]}'"%»…’”`
	openingPunct = `([{"'«‘“`
)

func needsSeparator(left, right string) bool {
	if left == "" || right == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(left)
	first, _ := utf8.DecodeRuneInString(right)
	if unicode.IsSpace(last) || unicode.IsSpace(first) {
		return false
	}
	if strings.ContainsRune(closingPunct, first) || strings.ContainsRune(openingPunct, last) {
		return false
	}
	return true
}
