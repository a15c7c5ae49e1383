package inspector

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title> Sample page </title>
  <meta name="description" content="hello">
  <meta name="Keywords" content="seo, web, analysis">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <style>
    body { margin: 0 }
    @media (max-width: 600px) { body { margin: 4px } }
  </style>
</head>
<body>
  <a href="a">A</a>
  <a href="/b">B</a>
  <a href="https://c.example/">C</a>
  <a href="a">A again</a>
  <a href="">empty</a>
  <a>no href</a>
  <img src="/logo.png"><img alt="no src">
</body>
</html>`

func parse(t *testing.T, html string) *Document {
	t.Helper()
	doc, err := ParseDocument([]byte(html))
	require.NoError(t, err)
	return doc
}

func TestDocument_SamplePage(t *testing.T) {
	doc := parse(t, samplePage)

	assert.Equal(t, "Sample page", doc.Title())
	assert.Equal(t, []string{"a", "/b", "https://c.example/", "a"}, doc.Links())
	assert.Equal(t, []string{"/logo.png"}, doc.Images())

	desc, ok := doc.MetaDescription()
	assert.True(t, ok)
	assert.Equal(t, "hello", desc)
	assert.True(t, doc.HasMetaDescription())

	assert.Equal(t, []string{"seo", "web", "analysis"}, doc.Keywords())
	assert.True(t, doc.HasKeywords())

	assert.True(t, doc.HasViewport())
	assert.True(t, doc.HasMediaQueries())
	assert.True(t, doc.IsResponsive())
	assert.False(t, doc.HasGoogleAnalytics())
}

func TestDocument_EmptyPage(t *testing.T) {
	doc := parse(t, "")

	assert.Empty(t, doc.Title())
	assert.NotNil(t, doc.Links())
	assert.Empty(t, doc.Links())
	assert.Nil(t, doc.Keywords())
	assert.False(t, doc.HasKeywords())
	assert.False(t, doc.HasMetaDescription())
	assert.False(t, doc.HasViewport())
	assert.False(t, doc.IsResponsive())
}

func TestDocument_MetaDescriptionPresence(t *testing.T) {
	testCases := []struct {
		name    string
		html    string
		present bool
		has     bool
	}{
		{"absent", `<head><title>x</title></head>`, false, false},
		{"empty content", `<meta name="description" content="">`, true, false},
		{"blank content", `<meta name="description" content="   ">`, true, false},
		{"no content attribute", `<meta name="description">`, true, false},
		{"upper-case name", `<meta name="DESCRIPTION" content="About us">`, true, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc := parse(t, tc.html)
			_, ok := doc.MetaDescription()
			assert.Equal(t, tc.present, ok)
			assert.Equal(t, tc.has, doc.HasMetaDescription())
		})
	}
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"seo", "web", "analysis"}, SplitKeywords("seo, web, analysis"))
	assert.Equal(t, []string{"a", "b"}, SplitKeywords(" a ,, b ,"))
	assert.Empty(t, SplitKeywords(""))
	assert.Empty(t, SplitKeywords(" , "))
}

func TestDocument_Keywords_EmptyTag(t *testing.T) {
	doc := parse(t, `<meta name="keywords" content=" , ">`)
	assert.NotNil(t, doc.Keywords())
	assert.Empty(t, doc.Keywords())
	assert.False(t, doc.HasKeywords())
}

func TestDocument_Responsive(t *testing.T) {
	const viewport = `<meta name="viewport" content="width=device-width">`

	testCases := []struct {
		name       string
		html       string
		responsive bool
	}{
		{"viewport only", viewport, false},
		{"media query without viewport", `<style>@media (min-width: 40em) { p {} }</style>`, false},
		{"viewport and inline query", viewport + `<style>@media screen and (min-width: 40em) { p {} }</style>`, true},
		{"unconditional media rule", viewport + `<style>@media print { p {} }</style>`, false},
		{"linked stylesheet media attribute", viewport + `<link rel="stylesheet" href="m.css" media="(max-width: 600px)">`, true},
		{"picture source media", viewport + `<picture><source media="(min-width: 800px)" srcset="big.png"></picture>`, true},
		{"screen media attribute", viewport + `<link rel="stylesheet" href="s.css" media="screen">`, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.responsive, parse(t, tc.html).IsResponsive())
		})
	}
}

func TestDocument_GoogleAnalytics(t *testing.T) {
	testCases := []struct {
		name string
		html string
		want bool
	}{
		{"gtag loader", `<script async src="https://www.googletagmanager.com/gtag/js?id=G-ABC1234567"></script>`, true},
		{"analytics.js", `<script>(function(){})(window,document,'script','https://www.google-analytics.com/analytics.js','ga');</script>`, true},
		{"ga create call", `<script>ga('create', 'UA-12345-1', 'auto');</script>`, true},
		{"measurement id only", `<script>var id = "UA-1234567-2";</script>`, true},
		{"id outside script", `<p>Order UA-1234567-2 shipped</p>`, false},
		{"no analytics", `<script src="/app.js"></script>`, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parse(t, tc.html).HasGoogleAnalytics())
		})
	}
}

func TestDocument_BaseHref(t *testing.T) {
	href, ok := parse(t, `<head><base href=" https://cdn.example/root/ "></head>`).BaseHref()
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example/root/", href)

	_, ok = parse(t, `<head></head>`).BaseHref()
	assert.False(t, ok)
}

func TestHasSetCookie(t *testing.T) {
	h := http.Header{}
	assert.False(t, HasSetCookie(h))
	h.Add("Set-Cookie", "session=abc; Path=/")
	assert.True(t, HasSetCookie(h))
}
