package document

import (
	"encoding/json"
	"fmt"
	"strings"
)

// node is the wire shape shared with TipTap-style editors:
// {"type": ..., "attrs": {...}, "content": [...], "text": ..., "marks": [...]}.
type node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []node         `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []markNode     `json:"marks,omitempty"`
}

type markNode struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// MarshalJSON encodes the document as {"type":"doc","content":[...]}.
func (d Document) MarshalJSON() ([]byte, error) {
	root := node{Type: "doc", Content: make([]node, 0, len(d.Content))}
	for _, b := range d.Content {
		if n, ok := encodeBlock(b); ok {
			root.Content = append(root.Content, n)
		}
	}
	// "content" must be present even when empty.
	type docNode struct {
		Type    string `json:"type"`
		Content []node `json:"content"`
	}
	return json.Marshal(docNode{Type: root.Type, Content: root.Content})
}

// UnmarshalJSON decodes the wire shape. Unknown block types are skipped.
func (d *Document) UnmarshalJSON(data []byte) error {
	var root node
	if err := json.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("document: decode: %w", err)
	}
	if root.Type != "doc" {
		return fmt.Errorf("document: root type %q, want \"doc\"", root.Type)
	}
	blocks := make([]Block, 0, len(root.Content))
	for _, n := range root.Content {
		if b, ok := decodeBlock(n); ok {
			blocks = append(blocks, b)
		}
	}
	d.Content = blocks
	return nil
}

// Parse decodes a JSON document.
func Parse(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, err
	}
	return d, nil
}

func encodeBlock(b Block) (node, bool) {
	switch v := b.(type) {
	case Paragraph:
		return node{Type: "paragraph", Content: encodeRuns(v.Content)}, true
	case Heading:
		attrs := map[string]any{"level": v.Level}
		if v.ID != "" {
			attrs["id"] = v.ID
		}
		return node{Type: "heading", Attrs: attrs, Content: encodeRuns(v.Content)}, true
	case BulletList:
		return node{Type: "bulletList", Content: encodeItems(v.Items)}, true
	case OrderedList:
		return node{Type: "orderedList", Content: encodeItems(v.Items)}, true
	case Blockquote:
		return node{Type: "blockquote", Content: []node{{Type: "paragraph", Content: encodeRuns(v.Content)}}}, true
	case CodeBlock:
		n := node{Type: "codeBlock"}
		if v.Text != "" {
			n.Content = []node{{Type: "text", Text: v.Text}}
		}
		return n, true
	case Image:
		attrs := map[string]any{"src": v.Src, "alt": v.Alt, "title": nil}
		if v.Title != nil {
			attrs["title"] = *v.Title
		}
		return node{Type: "image", Attrs: attrs}, true
	case RawHTML:
		return node{Type: "rawHTML", Attrs: map[string]any{"html": v.HTML}}, true
	}
	return node{}, false
}

func encodeItems(items []ListItem) []node {
	out := make([]node, 0, len(items))
	for _, it := range items {
		out = append(out, node{
			Type:    "listItem",
			Content: []node{{Type: "paragraph", Content: encodeRuns(it.Paragraph.Content)}},
		})
	}
	return out
}

func encodeRuns(runs []InlineRun) []node {
	if len(runs) == 0 {
		return nil
	}
	out := make([]node, 0, len(runs))
	for _, r := range runs {
		n := node{Type: "text", Text: r.Text}
		for _, m := range r.Marks {
			switch mv := m.(type) {
			case Bold, Italic, Code:
				n.Marks = append(n.Marks, markNode{Type: m.markType()})
			case Link:
				n.Marks = append(n.Marks, markNode{Type: "link", Attrs: map[string]any{"href": mv.Href}})
			}
		}
		out = append(out, n)
	}
	return out
}

func decodeBlock(n node) (Block, bool) {
	switch n.Type {
	case "paragraph":
		return Paragraph{Content: decodeRuns(n.Content)}, true
	case "heading":
		level := intAttr(n.Attrs, "level")
		if level < 1 || level > 6 {
			level = 1
		}
		return Heading{Level: level, ID: stringAttr(n.Attrs, "id"), Content: decodeRuns(n.Content)}, true
	case "bulletList":
		return BulletList{Items: decodeItems(n.Content)}, true
	case "orderedList":
		return OrderedList{Items: decodeItems(n.Content)}, true
	case "blockquote":
		return Blockquote{Content: decodeInline(n.Content)}, true
	case "codeBlock":
		var b strings.Builder
		for _, c := range n.Content {
			b.WriteString(c.Text)
		}
		return CodeBlock{Text: b.String()}, true
	case "image":
		img := Image{Src: stringAttr(n.Attrs, "src"), Alt: stringAttr(n.Attrs, "alt")}
		if t, ok := n.Attrs["title"].(string); ok {
			img.Title = &t
		}
		return img, true
	case "rawHTML":
		return RawHTML{HTML: stringAttr(n.Attrs, "html")}, true
	}
	return nil, false
}

// decodeItems keeps the first paragraph of each list item.
func decodeItems(nodes []node) []ListItem {
	items := make([]ListItem, 0, len(nodes))
	for _, n := range nodes {
		if n.Type != "listItem" {
			continue
		}
		var item ListItem
		for _, c := range n.Content {
			if c.Type == "paragraph" {
				item.Paragraph = Paragraph{Content: decodeRuns(c.Content)}
				break
			}
		}
		items = append(items, item)
	}
	return items
}

// decodeInline accepts either text nodes directly or paragraphs wrapping them.
func decodeInline(nodes []node) []InlineRun {
	var runs []InlineRun
	for _, n := range nodes {
		switch n.Type {
		case "text":
			runs = append(runs, decodeRun(n))
		case "paragraph":
			runs = append(runs, decodeRuns(n.Content)...)
		}
	}
	return runs
}

func decodeRuns(nodes []node) []InlineRun {
	if len(nodes) == 0 {
		return nil
	}
	runs := make([]InlineRun, 0, len(nodes))
	for _, n := range nodes {
		if n.Type != "text" {
			continue
		}
		runs = append(runs, decodeRun(n))
	}
	return runs
}

func decodeRun(n node) InlineRun {
	marks := make([]Mark, 0, len(n.Marks))
	for _, m := range n.Marks {
		switch m.Type {
		case "bold":
			marks = append(marks, Bold{})
		case "italic":
			marks = append(marks, Italic{})
		case "code":
			marks = append(marks, Code{})
		case "link":
			marks = append(marks, Link{Href: stringAttr(m.Attrs, "href")})
		}
	}
	return Text(n.Text, marks...)
}

func stringAttr(attrs map[string]any, key string) string {
	s, _ := attrs[key].(string)
	return s
}

func intAttr(attrs map[string]any, key string) int {
	switch v := attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
