package document

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reSlugStrip  = regexp.MustCompile(`[^\w\s-]`)
	reSlugSpace  = regexp.MustCompile(`\s+`)
	reSlugHyphen = regexp.MustCompile(`-{2,}`)
)

// TocHeading is one table-of-contents entry.
type TocHeading struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// Slug converts heading text to an anchor id.
func Slug(text string) string {
	s := strings.ToLower(text)
	s = reSlugStrip.ReplaceAllString(s, "")
	s = reSlugSpace.ReplaceAllString(s, "-")
	s = reSlugHyphen.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// slugger hands out document-unique slugs.
type slugger struct {
	used map[string]struct{}
}

func newSlugger() *slugger {
	return &slugger{used: make(map[string]struct{})}
}

func (s *slugger) next(text string) string {
	base := Slug(text)
	id := base
	for n := 1; ; n++ {
		if _, taken := s.used[id]; !taken {
			break
		}
		id = base + "-" + strconv.Itoa(n)
	}
	s.used[id] = struct{}{}
	return id
}

// claim reserves id, reporting false when it is already taken.
func (s *slugger) claim(id string) bool {
	if _, taken := s.used[id]; taken {
		return false
	}
	s.used[id] = struct{}{}
	return true
}

// forHeading returns the anchor of h: its stored ID when set and still free,
// otherwise the next slug of its text. Headings without text get "".
func (s *slugger) forHeading(h Heading) string {
	text := headingText(h)
	if text == "" {
		return ""
	}
	if h.ID != "" && s.claim(h.ID) {
		return h.ID
	}
	return s.next(text)
}

// headingText returns the trimmed text of h as rendered, or "" when it has
// none.
func headingText(h Heading) string {
	return strings.TrimSpace(runsText(h.Content))
}

// ExtractHeadings lists headings in document order with the ids the
// renderer gives them. Headings without text are skipped.
func ExtractHeadings(d Document) []TocHeading {
	var out []TocHeading
	s := newSlugger()
	Walk(d, func(b Block) {
		h, ok := b.(Heading)
		if !ok {
			return
		}
		id := s.forHeading(h)
		if id == "" {
			return
		}
		out = append(out, TocHeading{ID: id, Text: headingText(h), Level: clampLevel(h.Level)})
	})
	return out
}

// AssignHeadingIDs returns a copy of d whose headings carry ids derived from
// their text, replacing stored ones. Rendering and ExtractHeadings of the
// copy agree on every anchor.
func AssignHeadingIDs(d Document) Document {
	s := newSlugger()
	out := Document{Content: make([]Block, len(d.Content))}
	for i, b := range d.Content {
		if h, ok := b.(Heading); ok {
			if text := headingText(h); text != "" {
				h.ID = s.next(text)
			} else {
				h.ID = ""
			}
			b = h
		}
		out.Content[i] = b
	}
	return out
}
