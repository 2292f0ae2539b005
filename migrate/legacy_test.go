package migrate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func page(head, body string) string {
	return "<html><head>" + head + "</head><body>" + body + "</body></html>"
}

func TestExtractExcerpt(t *testing.T) {
	long := strings.Repeat("word ", 60)
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "meta description wins",
			src:  page(`<meta name="description" content=" From meta ">`, `<div class="blog-post-intro-contrainer"><p class="paragraph">Intro</p></div>`),
			want: "From meta",
		},
		{
			name: "intro paragraph",
			src:  page("", `<div class="blog-post-intro-contrainer"><div class="paragraph"> Intro text </div></div><div class="article"><p>Body</p></div>`),
			want: "Intro text",
		},
		{
			name: "first article paragraph",
			src:  page("", `<div class="article w-richtext"><h2>Title</h2><p>First <b>para</b>.</p><p>Second</p></div>`),
			want: "First para.",
		},
		{
			name: "long paragraph is cut",
			src:  page("", `<div class="article"><p>`+long+`</p></div>`),
			want: strings.TrimSpace(long[:200]) + "...",
		},
		{
			name: "nothing",
			src:  page("", "<p>loose</p>"),
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractExcerpt(tt.src))
		})
	}
}

func TestExtractPreviewImage(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "og image",
			src:  page(`<meta property="og:image" content="https://cdn.example.com/og.png">`, `<img class="hero-image" src="hero.png">`),
			want: "https://cdn.example.com/og.png",
		},
		{
			name: "hero image",
			src:  page("", `<img class="hero-image" src="Post_files/hero.png"><div class="article"><img src="a.png"></div>`),
			want: "Post_files/hero.png",
		},
		{
			name: "first article image",
			src:  page("", `<img src="logo.png"><div class="article"><figure><img src="inside.png"></figure></div>`),
			want: "inside.png",
		},
		{
			name: "none",
			src:  page("", `<img src="logo.png">`),
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPreviewImage(tt.src))
		})
	}
}
