package document

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc() Document {
	title := "A caption"
	return Document{Content: []Block{
		Heading{Level: 1, Content: []InlineRun{Text("Intro")}},
		NewParagraph(Text("Hello"), Text("world", Bold{}), Text("!")),
		BulletList{Items: []ListItem{{Paragraph: NewParagraph(Text("a"))}, {Paragraph: NewParagraph(Text("b", Code{}))}}},
		OrderedList{Items: []ListItem{{Paragraph: NewParagraph(Text("first"))}}},
		Blockquote{Content: []InlineRun{Text("quoted")}},
		CodeBlock{Text: "if a < b {\n\treturn\n}"},
		Image{Src: "https://cdn.test/x.png", Alt: `say "hi"`, Title: &title},
		RawHTML{HTML: `<iframe src="https://video.test/?a=1&b=2"></iframe>`},
		Heading{Level: 2, Content: []InlineRun{Text("Intro")}},
	}}
}

func TestRenderBlocks(t *testing.T) {
	got := Renderer{}.Render(sampleDoc())
	want := `<h1>Intro</h1>` +
		`<p>Hello <strong>world</strong>!</p>` +
		`<ul><li><p>a</p></li><li><p><code>b</code></p></li></ul>` +
		`<ol><li><p>first</p></li></ol>` +
		`<blockquote><p>quoted</p></blockquote>` +
		"<pre><code>if a &lt; b {\n\treturn\n}</code></pre>" +
		`<img src="https://cdn.test/x.png" alt="say &#34;hi&#34;" title="A caption"/>` +
		`<div data-raw-html="" class="raw-html-block"><iframe src="https://video.test/?a=1&b=2"></iframe></div>` +
		`<h2>Intro</h2>`
	assert.Equal(t, want, got)
}

func TestRenderIsIdempotent(t *testing.T) {
	doc := sampleDoc()
	r := Renderer{Anchors: true, ResolveAsset: func(name string) string { return "https://blobs.test/" + name }}
	assert.Equal(t, r.Render(doc), r.Render(doc))
	assert.Equal(t, HTML(doc), HTML(doc))
}

func TestRenderAnchorsAreUnique(t *testing.T) {
	doc := Document{Content: []Block{
		Heading{Level: 2, Content: []InlineRun{Text("Overview")}},
		NewParagraph(Text("body")),
		Heading{Level: 3, Content: []InlineRun{Text("Overview")}},
		Heading{Level: 2, Content: []InlineRun{Text("Overview")}},
	}}
	got := HTML(doc)
	assert.Equal(t, `<h2 id="overview">Overview</h2><p>body</p><h3 id="overview-1">Overview</h3><h2 id="overview-2">Overview</h2>`, got)

	for _, h := range ExtractHeadings(doc) {
		assert.Contains(t, got, `id="`+h.ID+`"`)
	}
}

func TestRenderSkipsEmptyHeadingAnchor(t *testing.T) {
	doc := Document{Content: []Block{Heading{Level: 2}}}
	assert.Equal(t, `<h2></h2>`, HTML(doc))
}

func TestRenderInvalidHeadingLevel(t *testing.T) {
	doc := Document{Content: []Block{Heading{Level: 9, Content: []InlineRun{Text("x")}}}}
	assert.Equal(t, `<h1>x</h1>`, Renderer{}.Render(doc))
}

func TestRenderMarkOrderIndependent(t *testing.T) {
	a := Document{Content: []Block{NewParagraph(Text("x", Bold{}, Link{Href: "/a"}, Italic{}, Code{}))}}
	b := Document{Content: []Block{NewParagraph(Text("x", Code{}, Italic{}, Link{Href: "/a"}, Bold{}))}}
	want := `<p><a href="/a"><strong><em><code>x</code></em></strong></a></p>`
	assert.Equal(t, want, Renderer{}.Render(a))
	assert.Equal(t, want, Renderer{}.Render(b))
}

func TestRenderEscapesText(t *testing.T) {
	doc := Document{Content: []Block{NewParagraph(Text("a <b> & c"))}}
	assert.Equal(t, `<p>a &lt;b&gt; &amp; c</p>`, Renderer{}.Render(doc))
}

func TestRenderRawHTMLNoDoubleDecode(t *testing.T) {
	doc := Document{Content: []Block{RawHTML{HTML: `<p>&amp;lt;tag&amp;gt; 'quoted'</p>`}}}
	assert.Equal(t,
		`<div data-raw-html="" class="raw-html-block"><p>&amp;lt;tag&amp;gt; 'quoted'</p></div>`,
		Renderer{}.Render(doc))
}

func TestRenderSkipsUnknownBlocks(t *testing.T) {
	doc := Document{Content: []Block{nil, NewParagraph(Text("kept"))}}
	assert.Equal(t, `<p>kept</p>`, Renderer{}.Render(doc))
}

func TestRenderRunSeparators(t *testing.T) {
	tests := []struct {
		runs []InlineRun
		want string
	}{
		{[]InlineRun{Text("Some"), Text("bold", Bold{}), Text("text.")}, `<p>Some <strong>bold</strong> text.</p>`},
		{[]InlineRun{Text("Some "), Text("bold", Bold{}), Text(" text.")}, `<p>Some <strong>bold</strong> text.</p>`},
		{[]InlineRun{Text("see"), Text("docs", Link{Href: "/d"}), Text(", then")}, `<p>see <a href="/d">docs</a>, then</p>`},
		{[]InlineRun{Text("("), Text("aside", Italic{}), Text(")")}, `<p>(<em>aside</em>)</p>`},
		{[]InlineRun{Text(""), Text("only")}, `<p>only</p>`},
	}
	for _, tt := range tests {
		got := Renderer{}.Render(Document{Content: []Block{Paragraph{Content: tt.runs}}})
		assert.Equal(t, tt.want, got)
	}
}

func TestRenderRewritesRelativeAssets(t *testing.T) {
	doc := Document{Content: []Block{
		Image{Src: "./foo bar.png", Alt: "local"},
		Image{Src: "https://cdn.test/keep.png", Alt: "remote"},
		Image{Src: "images/a&b.png?v=2", Alt: "query"},
	}}
	r := Renderer{ResolveAsset: func(name string) string {
		return "https://blobs.test/public/my-post/" + strings.ReplaceAll(name, " ", "_")
	}}
	got := r.Render(doc)
	assert.Contains(t, got, `<img src="https://blobs.test/public/my-post/foo_bar.png" alt="local"/>`)
	assert.Contains(t, got, `<img src="https://cdn.test/keep.png" alt="remote"/>`)
	assert.Contains(t, got, `<img src="https://blobs.test/public/my-post/a&amp;b.png" alt="query"/>`)
}

func TestRenderDropsUnsafeURLs(t *testing.T) {
	doc := Document{Content: []Block{
		NewParagraph(Text("click", Link{Href: "javascript:alert(1)"}), Text("me")),
		NewParagraph(Text("shout", Bold{}, Link{Href: " JavaScript:alert(1)"})),
		NewParagraph(Text("mail", Link{Href: "mailto:a@b.test"})),
		Image{Src: "javascript:alert(1)", Alt: "x"},
		Image{Src: "data:text/html;base64,PHNjcmlwdD4=", Alt: "y"},
		Image{Src: "./kept.png", Alt: "z"},
	}}
	got := Renderer{}.Render(doc)
	assert.Equal(t,
		`<p>click me</p><p><strong>shout</strong></p><p><a href="mailto:a@b.test">mail</a></p><img src="./kept.png" alt="z"/>`,
		got)
	assert.NotContains(t, HTML(doc), "javascript")
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/a?b=c", "https://example.com/a?b=c"},
		{"  http://example.com ", "http://example.com"},
		{"/blog/post", "/blog/post"},
		{"#section", "#section"},
		{"images/a.png", "images/a.png"},
		{"//cdn.test/x.png", "//cdn.test/x.png"},
		{"mailto:me@example.com", "mailto:me@example.com"},
		{"tel:+15550100", "tel:+15550100"},
		{"javascript:alert(1)", ""},
		{"JAVASCRIPT:alert(1)", ""},
		{"java\tscript:alert(1)", ""},
		{"vbscript:msgbox", ""},
		{"data:image/png;base64,AAAA", ""},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeURL(tt.in), tt.in)
	}
}

func TestNormalizeLinkSpacing(t *testing.T) {
	in := `<p>see<a href="/x">x</a>now and <a href="/y">y</a>.</p>`
	assert.Equal(t, `<p>see <a href="/x">x</a> now and <a href="/y">y</a>.</p>`, NormalizeLinkSpacing(in))
}

func TestIsRelativeAsset(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"./foo.png", true},
		{"foo.png", true},
		{"../assets/foo.png", true},
		{"images/foo bar.png", true},
		{"", false},
		{"/static/foo.png", false},
		{"//cdn.test/foo.png", false},
		{"http://cdn.test/foo.png", false},
		{"https://cdn.test/foo.png", false},
		{"data:image/png;base64,AAAA", false},
		{"#anchor", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRelativeAsset(tt.src), tt.src)
	}
}

func TestAssetName(t *testing.T) {
	assert.Equal(t, "foo bar.png", AssetName("./img/foo%20bar.png?x=1#top"))
	assert.Equal(t, "pic.jpg", AssetName(`dir\pic.jpg`))
	assert.Equal(t, "", AssetName("./"))
}

func TestComponent(t *testing.T) {
	doc := Document{Content: []Block{Heading{Level: 2, Content: []InlineRun{Text("Hello World")}}}}
	var b strings.Builder
	require.NoError(t, Component(doc, Renderer{Anchors: true}).Render(context.Background(), &b))
	assert.Equal(t, `<h2 id="hello-world">Hello World</h2>`, b.String())
}
