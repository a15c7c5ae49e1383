package inspector

import (
	"bytes"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed HTML page. Its methods are pure: they never touch the
// network, so heuristics can be checked against any markup.
type Document struct {
	dom *goquery.Document
	raw string
}

// ParseDocument parses an HTML body.
func ParseDocument(body []byte) (*Document, error) {
	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &Document{dom: dom, raw: string(body)}, nil
}

// Raw returns the unparsed body.
func (d *Document) Raw() string { return d.raw }

// Title returns the trimmed text of the first <title> element.
func (d *Document) Title() string {
	return strings.TrimSpace(d.dom.Find("title").First().Text())
}

// Links returns the href of every anchor in document order, verbatim.
// Duplicates are kept; anchors with an empty href are skipped.
func (d *Document) Links() []string {
	links := make([]string, 0)
	d.dom.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, _ := s.Attr("href"); href != "" {
			links = append(links, href)
		}
	})
	return links
}

// Images returns the src of every <img> in document order, verbatim.
func (d *Document) Images() []string {
	images := make([]string, 0)
	d.dom.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if src, _ := s.Attr("src"); src != "" {
			images = append(images, src)
		}
	})
	return images
}

// BaseHref returns the href of the first <base> element, if any.
func (d *Document) BaseHref() (string, bool) {
	href, ok := d.dom.Find("base[href]").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", false
	}
	return strings.TrimSpace(href), true
}

// MetaContent returns the content attribute of the first <meta> whose name
// matches (case-insensitively). The bool reports whether such a tag exists.
func (d *Document) MetaContent(name string) (string, bool) {
	var content string
	found := false
	d.dom.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		n, _ := s.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(n), name) {
			return true
		}
		content, _ = s.Attr("content")
		found = true
		return false
	})
	return content, found
}

// MetaDescription returns <meta name="description"> content.
func (d *Document) MetaDescription() (string, bool) {
	return d.MetaContent("description")
}

// HasMetaDescription reports a description tag with non-blank content.
func (d *Document) HasMetaDescription() bool {
	content, ok := d.MetaDescription()
	return ok && strings.TrimSpace(content) != ""
}

// Keywords returns the comma separated tokens of <meta name="keywords">,
// trimmed, in order. It is nil when the tag is absent.
func (d *Document) Keywords() []string {
	content, ok := d.MetaContent("keywords")
	if !ok {
		return nil
	}
	return SplitKeywords(content)
}

// HasKeywords reports a keywords tag with at least one token.
func (d *Document) HasKeywords() bool {
	return len(d.Keywords()) > 0
}

// SplitKeywords splits a keywords value on commas, trimming each token and
// dropping empty ones.
func SplitKeywords(content string) []string {
	keywords := make([]string, 0)
	for _, token := range strings.Split(content, ",") {
		if token = strings.TrimSpace(token); token != "" {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

// HasViewport reports a <meta name="viewport"> tag. It is the mobile-friendly
// heuristic: a page that declares a viewport expects small screens, but no
// rendering is performed to confirm it.
func (d *Document) HasViewport() bool {
	_, ok := d.MetaContent("viewport")
	return ok
}

// mediaQueryPattern matches a conditional @media rule, e.g.
// "@media (max-width: 600px)" or "@media screen and (min-width: 40em)".
var mediaQueryPattern = regexp.MustCompile(`(?i)@media[^{]*\(`)

// HasMediaQueries reports a conditional media query in an inline <style>
// block or in the media attribute of a <link>, <style> or <source> element.
// External stylesheets are not fetched.
func (d *Document) HasMediaQueries() bool {
	found := false
	d.dom.Find("style").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if mediaQueryPattern.MatchString(s.Text()) {
			found = true
			return false
		}
		return true
	})
	if found {
		return true
	}

	d.dom.Find("link[media], style[media], source[media]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		media, _ := s.Attr("media")
		if strings.Contains(media, "(") {
			found = true
			return false
		}
		return true
	})
	return found
}

// IsResponsive is the responsive-design heuristic: a viewport declaration
// together with at least one conditional media query in the markup.
func (d *Document) IsResponsive() bool {
	return d.HasViewport() && d.HasMediaQueries()
}

var analyticsMarkers = []string{
	"google-analytics.com/analytics.js",
	"google-analytics.com/ga.js",
	"google-analytics.com/urchin.js",
	"googletagmanager.com/gtag/js",
	"gtag(",
	"ga('create'",
	`ga("create"`,
}

// measurementIDPattern matches Universal Analytics (UA-XXXX-Y) and GA4
// (G-XXXXXXX) identifiers.
var measurementIDPattern = regexp.MustCompile(`\b(UA-\d{4,10}-\d{1,4}|G-[A-Z0-9]{6,12})\b`)

// ContainsAnalyticsMarker reports a known Google Analytics loader or call in
// raw markup.
func ContainsAnalyticsMarker(raw string) bool {
	lower := strings.ToLower(raw)
	for _, marker := range analyticsMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// HasGoogleAnalytics looks for a known analytics loader anywhere in the body,
// or a measurement ID inside a <script> element. Snippets loaded through a
// non-standard wrapper go unnoticed.
func (d *Document) HasGoogleAnalytics() bool {
	if ContainsAnalyticsMarker(d.raw) {
		return true
	}
	found := false
	d.dom.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if measurementIDPattern.MatchString(src) || measurementIDPattern.MatchString(s.Text()) {
			found = true
			return false
		}
		return true
	})
	return found
}

// HasSetCookie reports a Set-Cookie header.
func HasSetCookie(h http.Header) bool {
	return len(h.Values("Set-Cookie")) > 0
}
