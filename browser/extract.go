// Package browser implements the page engines a scan drives: a Playwright
// adapter for JavaScript-rendered pages and a plain HTTP engine, plus the
// HTML link extraction both share.
package browser

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/bits-and-blooms/bloom/v3"
	"golang.org/x/net/html"

	"github.com/lukemcguire/synthlinks/result"
	"github.com/lukemcguire/synthlinks/urlutil"
)

// dedupeFalsePositiveRate bounds how often dedupe wrongly drops a distinct link.
const dedupeFalsePositiveRate = 0.0001

// ExtractLinks parses the HTML document in r and returns one Link per
// matching element attribute, in document order. Attribute values are
// resolved against base (or the document's <base href>) and only http and
// https targets are kept. With dedupe set, repeated targets after the first
// are dropped.
func ExtractLinks(r io.Reader, base *url.URL, sel result.QuerySelector, dedupe bool) ([]result.Link, error) {
	matcher, err := cascadia.Compile(sel.ElementSelector)
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", sel.ElementSelector, err)
	}

	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, parseErr := url.Parse(strings.TrimSpace(href)); parseErr == nil {
			base = base.ResolveReference(ref)
		}
	}

	matches := doc.FindMatcher(matcher)

	var seen *bloom.BloomFilter
	if dedupe {
		seen = bloom.NewWithEstimates(uint(max(matches.Length()*len(sel.GetAttributes), 1)), dedupeFalsePositiveRate)
	}

	links := []result.Link{}
	matches.Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		tag := goquery.NodeName(s)

		for _, attr := range sel.GetAttributes {
			val, ok := s.Attr(attr)
			if !ok {
				continue
			}
			target, resolveErr := urlutil.Resolve(base, val)
			if resolveErr != nil || !urlutil.IsHTTPScheme(target) {
				continue
			}
			if seen != nil {
				key, canonErr := urlutil.Canonical(target)
				if canonErr != nil {
					key = target
				}
				if seen.TestAndAddString(key) {
					continue
				}
			}
			links = append(links, result.Link{TargetURI: target, AnchorText: text, HTMLElement: tag})
		}
	})

	return links, nil
}
