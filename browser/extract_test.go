package browser

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukemcguire/synthlinks/result"
)

var anchors = result.QuerySelector{ElementSelector: "a", GetAttributes: []string{"href"}}

func targetsOf(links []result.Link) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.TargetURI)
	}
	return out
}

func TestExtractLinks(t *testing.T) {
	baseURL, _ := url.Parse("https://example.com/docs/")

	tests := []struct {
		name     string
		html     string
		sel      result.QuerySelector
		dedupe   bool
		expected []string
	}{
		{
			name:     "extracts absolute link",
			html:     `<a href="https://example.com/page">Link</a>`,
			sel:      anchors,
			expected: []string{"https://example.com/page"},
		},
		{
			name:     "resolves relative link",
			html:     `<a href="intro">Intro</a><a href="/about">About</a>`,
			sel:      anchors,
			expected: []string{"https://example.com/docs/intro", "https://example.com/about"},
		},
		{
			name:     "filters non-http schemes",
			html:     `<a href="mailto:user@example.com">Email</a><a href="javascript:void(0)">Click</a><a href="tel:123">Call</a>`,
			sel:      anchors,
			expected: []string{},
		},
		{
			name:     "empty href points at the page",
			html:     `<a href="">Self</a>`,
			sel:      anchors,
			expected: []string{"https://example.com/docs/"},
		},
		{
			name:     "fragment link kept",
			html:     `<a href="#install">Install</a>`,
			sel:      anchors,
			expected: []string{"https://example.com/docs/#install"},
		},
		{
			name:     "anchor without href skipped",
			html:     `<a name="top">Top</a><a href="/x">X</a>`,
			sel:      anchors,
			expected: []string{"https://example.com/x"},
		},
		{
			name:     "duplicates kept by default",
			html:     `<a href="/page">1</a><a href="/page">2</a>`,
			sel:      anchors,
			expected: []string{"https://example.com/page", "https://example.com/page"},
		},
		{
			name:     "dedupe drops repeats",
			html:     `<a href="/page">1</a><a href="/page">2</a><a href="HTTPS://EXAMPLE.COM/page">3</a><a href="/other">4</a>`,
			sel:      anchors,
			dedupe:   true,
			expected: []string{"https://example.com/page", "https://example.com/other"},
		},
		{
			name: "custom selector and attributes",
			html: `<a href="/a">A</a>
			       <img src="/logo.png">
			       <link rel="stylesheet" href="/site.css">
			       <div data-href="/ignored"></div>`,
			sel:      result.QuerySelector{ElementSelector: "img, link", GetAttributes: []string{"src", "href"}},
			expected: []string{"https://example.com/logo.png", "https://example.com/site.css"},
		},
		{
			name:     "base element overrides document URL",
			html:     `<head><base href="https://cdn.example.net/assets/"></head><a href="app.js">App</a>`,
			sel:      anchors,
			expected: []string{"https://cdn.example.net/assets/app.js"},
		},
		{
			name:     "handles malformed HTML gracefully",
			html:     `<a href="/unclosed">Unclosed`,
			sel:      anchors,
			expected: []string{"https://example.com/unclosed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractLinks(strings.NewReader(tt.html), baseURL, tt.sel, tt.dedupe)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, targetsOf(got))
		})
	}
}

func TestExtractLinks_TextAndElement(t *testing.T) {
	baseURL, _ := url.Parse("https://example.com/")
	html := `<nav><a href="/about">
		About <b>us</b>
	</a><area href="/map" alt="map"></nav>`

	got, err := ExtractLinks(strings.NewReader(html), baseURL,
		result.QuerySelector{ElementSelector: "a, area", GetAttributes: []string{"href"}}, false)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, result.Link{TargetURI: "https://example.com/about", AnchorText: "About us", HTMLElement: "a"}, got[0])
	assert.Equal(t, "area", got[1].HTMLElement)
	assert.Empty(t, got[1].AnchorText)
}

func TestExtractLinks_EmptyInput(t *testing.T) {
	baseURL, _ := url.Parse("https://example.com")

	got, err := ExtractLinks(strings.NewReader(""), baseURL, anchors, true)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestExtractLinks_InvalidSelector(t *testing.T) {
	baseURL, _ := url.Parse("https://example.com")

	_, err := ExtractLinks(strings.NewReader("<a href='/'>x</a>"), baseURL,
		result.QuerySelector{ElementSelector: "a[href", GetAttributes: []string{"href"}}, false)
	assert.Error(t, err)
}
