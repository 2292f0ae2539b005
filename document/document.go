// Package document implements the structured rich-text model used for post
// bodies: a tree of typed blocks carrying inline text runs with style marks.
//
// Documents are produced by ingesting legacy HTML (FromHTML), stored as JSON in
// the wire shape used by TipTap-style editors, and rendered back to HTML for
// pages and feeds (Renderer). ExtractHeadings derives a table of contents whose
// ids match the anchors the renderer emits.
package document

// Document is the root of a post body. Content order is reading order.
type Document struct {
	Content []Block
}

// Block is one of Paragraph, Heading, BulletList, OrderedList, Blockquote,
// CodeBlock, Image or RawHTML. The set is closed.
type Block interface {
	blockType() string
}

// Paragraph is a run of inline text.
type Paragraph struct {
	Content []InlineRun
}

// Heading is a section title. A non-empty ID is used as its anchor when no
// earlier heading took it; AssignHeadingIDs fills it in.
type Heading struct {
	Level   int
	ID      string
	Content []InlineRun
}

// BulletList is an unordered list.
type BulletList struct {
	Items []ListItem
}

// OrderedList is a numbered list.
type OrderedList struct {
	Items []ListItem
}

// ListItem holds exactly one paragraph.
type ListItem struct {
	Paragraph Paragraph
}

// Blockquote is a quoted run of inline text.
type Blockquote struct {
	Content []InlineRun
}

// CodeBlock keeps its text verbatim, whitespace included.
type CodeBlock struct {
	Text string
}

// Image is a leaf block. Title is nil when absent.
type Image struct {
	Src   string
	Alt   string
	Title *string
}

// RawHTML is an opaque fragment rendered without escaping.
type RawHTML struct {
	HTML string
}

func (Paragraph) blockType() string   { return "paragraph" }
func (Heading) blockType() string     { return "heading" }
func (BulletList) blockType() string  { return "bulletList" }
func (OrderedList) blockType() string { return "orderedList" }
func (Blockquote) blockType() string  { return "blockquote" }
func (CodeBlock) blockType() string   { return "codeBlock" }
func (Image) blockType() string       { return "image" }
func (RawHTML) blockType() string     { return "rawHTML" }

// InlineRun is a span of text with a set of marks.
type InlineRun struct {
	Text  string
	Marks []Mark
}

// Mark is one of Bold, Italic, Code or Link. The set is closed.
type Mark interface {
	markType() string
}

type (
	Bold   struct{}
	Italic struct{}
	Code   struct{}
	Link   struct{ Href string }
)

func (Bold) markType() string   { return "bold" }
func (Italic) markType() string { return "italic" }
func (Code) markType() string   { return "code" }
func (Link) markType() string   { return "link" }

// Text returns a plain run.
func Text(s string, marks ...Mark) InlineRun {
	return InlineRun{Text: s, Marks: normalizeMarks(marks)}
}

// Has reports whether the run carries a mark of the same kind as m.
func (r InlineRun) Has(m Mark) bool {
	for _, have := range r.Marks {
		if have.markType() == m.markType() {
			return true
		}
	}
	return false
}

// link returns the run's link mark, if any.
func (r InlineRun) link() (Link, bool) {
	for _, m := range r.Marks {
		if l, ok := m.(Link); ok {
			return l, true
		}
	}
	return Link{}, false
}

// normalizeMarks drops nil marks and repeated kinds, keeping the first of each.
func normalizeMarks(marks []Mark) []Mark {
	if len(marks) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(marks))
	out := make([]Mark, 0, len(marks))
	for _, m := range marks {
		if m == nil {
			continue
		}
		k := m.markType()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// NewParagraph builds a paragraph from runs.
func NewParagraph(runs ...InlineRun) Paragraph {
	return Paragraph{Content: runs}
}

// IsEmpty reports whether the document has no blocks.
func (d Document) IsEmpty() bool {
	return len(d.Content) == 0
}

// sentinel returns a document holding a single plain paragraph.
func sentinel(msg string) Document {
	return Document{Content: []Block{NewParagraph(Text(msg))}}
}

// Walk visits blocks in pre-order. ListItem paragraphs are visited as
// Paragraph blocks after their list.
func Walk(d Document, fn func(Block)) {
	for _, b := range d.Content {
		walkBlock(b, fn)
	}
}

func walkBlock(b Block, fn func(Block)) {
	if b == nil {
		return
	}
	fn(b)
	switch v := b.(type) {
	case BulletList:
		for _, it := range v.Items {
			fn(it.Paragraph)
		}
	case OrderedList:
		for _, it := range v.Items {
			fn(it.Paragraph)
		}
	}
}
