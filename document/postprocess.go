package document

import (
	"html"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// rawMarkerAttr tags placeholders for RawHTML blocks. html.Render escapes
// everything it writes, so raw fragments travel through an attribute and are
// substituted back afterwards.
const rawMarkerAttr = "data-raw-html"

var (
	reRawBlock  = regexp.MustCompile(`<div data-raw-html="" data-html="([^"]*)"></div>`)
	reLinkClose = regexp.MustCompile(`</a>([A-Za-z0-9])`)
	reLinkOpen  = regexp.MustCompile(`([A-Za-z0-9])(<a\s)`)
	reImgSrc    = regexp.MustCompile(`(<img\b[^>]*?\ssrc=")([^"]*)(")`)
	reURLScheme = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)
)

// attrUnescaper reverses html.Render's attribute escaping, ampersand first.
var attrUnescaper = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#34;", `"`,
	"&#039;", "'",
	"&#39;", "'",
	"&#13;", "\r",
)

// UnescapeRawHTML replaces raw block placeholders with their literal HTML.
// Entities are decoded in one left-to-right pass, so "&amp;lt;" becomes
// "&lt;" and not "<".
func UnescapeRawHTML(s string) string {
	if !strings.Contains(s, rawMarkerAttr) {
		return s
	}
	return reRawBlock.ReplaceAllStringFunc(s, func(m string) string {
		sub := reRawBlock.FindStringSubmatch(m)
		return `<div data-raw-html="" class="raw-html-block">` + attrUnescaper.Replace(sub[1]) + `</div>`
	})
}

// NormalizeLinkSpacing puts a space between a link and an alphanumeric
// character touching it on either side.
func NormalizeLinkSpacing(s string) string {
	s = reLinkClose.ReplaceAllString(s, "</a> $1")
	return reLinkOpen.ReplaceAllString(s, "$1 $2")
}

// RewriteAssetURLs passes the file name of every relative <img src> through
// resolve. Absolute URLs are left alone.
func RewriteAssetURLs(s string, resolve func(name string) string) string {
	if resolve == nil {
		return s
	}
	return reImgSrc.ReplaceAllStringFunc(s, func(m string) string {
		sub := reImgSrc.FindStringSubmatch(m)
		src := html.UnescapeString(sub[2])
		if !IsRelativeAsset(src) {
			return m
		}
		name := AssetName(src)
		if name == "" {
			return m
		}
		return sub[1] + html.EscapeString(resolve(name)) + sub[3]
	})
}

// SafeURL returns raw trimmed when it is safe in an href or src attribute:
// relative references and http, https, mailto or tel URLs. Anything else,
// javascript: and data: included, yields "".
func SafeURL(raw string) string {
	val := strings.TrimSpace(raw)
	if val == "" {
		return ""
	}
	u, err := url.Parse(val)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto", "tel":
		return val
	}
	return ""
}

// IsRelativeAsset reports whether src points at a local file that should be
// served from the blob store.
func IsRelativeAsset(src string) bool {
	src = strings.TrimSpace(src)
	switch {
	case src == "",
		strings.HasPrefix(src, "/"),
		strings.HasPrefix(src, "#"),
		reURLScheme.MatchString(src):
		return false
	}
	return true
}

// AssetName returns the unescaped base file name of a relative source.
func AssetName(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	if dec, err := url.PathUnescape(src); err == nil {
		src = dec
	}
	name := path.Base(strings.ReplaceAll(src, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
